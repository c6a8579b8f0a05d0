package engine

import (
	"context"

	"github.com/sirupsen/logrus"

	"sniper/internal/registry"
)

// restore logs the positions each account already holds. Nothing is rebuilt:
// the exchange is the source of truth and ratchets start unarmed.
func (d *Desk) restore(ctx context.Context) {
	for _, acc := range d.accounts.All() {
		positions, err := acc.Gateway.GetPositions(ctx)
		if err != nil {
			d.accountEntry(acc.ID).WithError(err).Warn("Open positions not read.")
			continue
		}
		for _, pos := range positions {
			d.accountEntry(acc.ID).WithFields(logrus.Fields{
				"symbol": pos.Symbol,
				"side":   pos.Side,
				"size":   formatFloatPlain(pos.Size),
				"entry":  formatFloatPlain(pos.EntryPrice),
			}).Info("Open position found, not managed by the ratchet.")
		}
	}
}

// reconcile disarms the ratchet of acc when its position disappeared, which
// happens when the stop or the last target filled while the stream was down.
func (d *Desk) reconcile(ctx context.Context, acc *registry.Account) {
	snap := acc.Ratchet.Snapshot()
	if snap.Symbol == "" {
		return
	}

	positions, err := acc.Gateway.GetPositions(ctx)
	if err != nil {
		d.accountEntry(acc.ID).WithError(err).Warn("Positions not read after reconnect.")
		return
	}
	for _, pos := range positions {
		if pos.Symbol == snap.Symbol && pos.Side == snap.Side && pos.Size > 0 {
			return
		}
	}

	acc.Ratchet.Disarm()
	d.accountEntry(acc.ID).WithField("symbol", snap.Symbol).Warn("Position gone while the stream was down, ratchet disarmed.")
}
