package engine

import (
	"context"
	"fmt"

	"sniper/internal/errs"
	"sniper/internal/registry"
)

// ResetTakeProfits clears every account's take-profit ladder and cancels the
// targets still resting. The stop loss is left where it is.
func (d *Desk) ResetTakeProfits(ctx context.Context) []AccountResult {
	return d.fanOut(ctx, "reset take profits", errs.KindCancel, func(ctx context.Context, acc *registry.Account) (string, error) {
		pending := pendingLevels(acc)
		if err := acc.Ratchet.ResetTakeProfits(ctx); err != nil {
			return "", err
		}
		return fmt.Sprintf("%d take profits cancelled", pending), nil
	})
}

// CancelTakeProfits behaves like ResetTakeProfits.
func (d *Desk) CancelTakeProfits(ctx context.Context) []AccountResult {
	return d.fanOut(ctx, "cancel take profits", errs.KindCancel, func(ctx context.Context, acc *registry.Account) (string, error) {
		pending := pendingLevels(acc)
		if err := acc.Ratchet.CancelTakeProfits(ctx); err != nil {
			return "", err
		}
		return fmt.Sprintf("%d take profits cancelled", pending), nil
	})
}

func pendingLevels(acc *registry.Account) int {
	n := 0
	for _, lvl := range acc.Ratchet.Snapshot().Ladder {
		if !lvl.Filled {
			n++
		}
	}
	return n
}
