package engine

import (
	"context"
	"errors"

	"github.com/sourcegraph/conc/pool"

	"sniper/internal/errs"
	"sniper/internal/models"
	"sniper/internal/ratchet"
)

type AccountStatus struct {
	AccountID string            `json:"account_id"`
	Master    bool              `json:"master"`
	Equity    float64           `json:"equity"`
	Positions []models.Position `json:"positions"`
	StopLoss  float64           `json:"stop_loss,omitempty"`
	Ladder    []ratchet.Level   `json:"ladder,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// Status reads equity and positions of every account. Per-account failures
// are reported inline; an error is returned only when no account answered.
func (d *Desk) Status(ctx context.Context) ([]AccountStatus, error) {
	accounts := d.accounts.All()
	out := make([]AccountStatus, len(accounts))
	master, _ := d.accounts.Master()

	p := pool.New()
	for i, acc := range accounts {
		p.Go(func() {
			st := AccountStatus{
				AccountID: acc.ID,
				Master:    master != nil && master.ID == acc.ID,
			}
			snap := acc.Ratchet.Snapshot()
			if snap.HasStop {
				st.StopLoss = snap.StopLoss
			}
			st.Ladder = snap.Ladder

			var errList []error
			equity, err := acc.Gateway.GetEquity(ctx, d.cfg.Trading.EquityAsset)
			if err != nil {
				errList = append(errList, errs.Scope(errs.KindEquity, acc.ID, "equity", err))
			}
			st.Equity = equity

			positions, err := acc.Gateway.GetPositions(ctx)
			if err != nil {
				errList = append(errList, errs.Scope(errs.KindConnection, acc.ID, "positions", err))
			}
			st.Positions = positions

			if err := errors.Join(errList...); err != nil {
				st.Error = err.Error()
			}
			out[i] = st
		})
	}
	p.Wait()

	failed := 0
	for _, st := range out {
		if st.Error != "" {
			failed++
		}
	}
	if len(out) > 0 && failed == len(out) {
		return out, errors.New("no account answered")
	}
	return out, nil
}
