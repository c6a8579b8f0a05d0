package engine

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"sniper/internal/bracket"
	"sniper/internal/exchange"
	"sniper/internal/metrics"
	"sniper/internal/models"
	"sniper/internal/registry"
)

func (d *Desk) handleEvents(ctx context.Context, acc *registry.Account, events <-chan exchange.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				d.accountEntry(acc.ID).Warn("Update stream closed.")
				return
			}
			switch event.Type {
			case exchange.EventTypeFill:
				if event.Fill != nil {
					d.handleFill(acc, *event.Fill)
				}
			case exchange.EventTypeOrder:
				if event.Order != nil {
					d.handleOrder(ctx, acc, *event.Order)
				}
			case exchange.EventTypeReconnect:
				d.mu.Lock()
				d.stateFor(acc.ID).Reconnects++
				d.mu.Unlock()
				d.accountEntry(acc.ID).Info("Update stream reconnected, reconciling position.")
				d.reconcile(ctx, acc)
			}
		}
	}
}

func (d *Desk) handleFill(acc *registry.Account, fill models.Fill) {
	d.mu.Lock()
	st := d.stateFor(acc.ID)
	if fill.ExecID != "" {
		if st.ProcessedExecIDs[fill.ExecID] {
			d.mu.Unlock()
			return
		}
		st.ProcessedExecIDs[fill.ExecID] = true
	}
	if !fill.Timestamp.IsZero() {
		st.LastFillAt = fill.Timestamp
	} else {
		st.LastFillAt = time.Now()
	}
	d.mu.Unlock()

	role := "external"
	if info, ok := bracket.ParseLinkID(fill.LinkID); ok {
		role = string(info.Role)
	}
	d.accountEntry(acc.ID).WithFields(logrus.Fields{
		"role":     role,
		"link_id":  fill.LinkID,
		"order_id": fill.OrderID,
		"symbol":   fill.Symbol,
		"side":     fill.Side,
		"qty":      fill.Qty,
		"price":    fill.Price,
	}).Info("Fill.")
}

// handleOrder reacts to orders reaching Filled: a take profit advances the
// ratchet, a stop loss ends the protection of the position.
func (d *Desk) handleOrder(ctx context.Context, acc *registry.Account, order models.OrderUpdate) {
	d.mu.Lock()
	st := d.stateFor(acc.ID)
	key := orderStateKey(order)
	if st.SeenOrderStates[key] {
		d.mu.Unlock()
		return
	}
	st.SeenOrderStates[key] = true
	d.mu.Unlock()

	if order.Status != models.OrderStatusFilled {
		return
	}
	info, ok := bracket.ParseLinkID(order.LinkID)
	if !ok {
		return
	}

	entry := d.accountEntry(acc.ID).WithField("link_id", order.LinkID)
	switch info.Role {
	case models.RoleTakeProfit:
		level, ok := acc.Ratchet.LevelOf(order.LinkID)
		if !ok {
			entry.Debug("Take profit filled outside the tracked ladder.")
			return
		}
		move, err := acc.Ratchet.OnTakeProfitFilled(ctx, level)
		if move.Moved {
			metrics.RatchetMoves.WithLabelValues(acc.ID).Inc()
		}
		if err != nil {
			entry.WithError(err).WithField("stop_loss", move.To).Error("Stop moved locally but the exchange order was not amended.")
		}
	case models.RoleStopLoss:
		acc.Ratchet.Disarm()
		entry.Info("Stop loss filled, ratchet disarmed.")
	case models.RoleEntry:
		entry.WithField("qty", order.FilledQty).Info("Entry filled.")
	}
}
