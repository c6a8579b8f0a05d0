package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"

	"sniper/internal/errs"
	"sniper/internal/registry"
)

// AccountResult is the outcome of a desk-wide action on one account.
type AccountResult struct {
	AccountID string
	Detail    string
	Err       error
}

// fanOut runs fn on every account at once. Results follow roster order; one
// account failing or panicking does not affect the others.
func (d *Desk) fanOut(ctx context.Context, op string, kind errs.Kind, fn func(context.Context, *registry.Account) (string, error)) []AccountResult {
	accounts := d.accounts.All()
	results := make([]AccountResult, len(accounts))

	p := pool.New()
	for i, acc := range accounts {
		p.Go(func() {
			res := AccountResult{AccountID: acc.ID}
			recovered := panics.Try(func() {
				res.Detail, res.Err = fn(ctx, acc)
			})
			if recovered != nil {
				res.Err = recovered.AsError()
			}
			res.Err = errs.Scope(kind, acc.ID, op, res.Err)

			entry := d.accountEntry(acc.ID).WithField("op", op)
			if res.Err != nil {
				entry.WithError(res.Err).Error("Account action failed.")
			} else {
				entry.WithField("detail", res.Detail).Info("Account action done.")
			}
			results[i] = res
		})
	}
	p.Wait()
	return results
}

// CancelAll cancels every open order on every account. The ratchets are
// disarmed since their stop and targets no longer exist.
func (d *Desk) CancelAll(ctx context.Context) []AccountResult {
	return d.fanOut(ctx, "cancel all", errs.KindCancel, func(ctx context.Context, acc *registry.Account) (string, error) {
		if err := acc.Gateway.CancelAllOrders(ctx); err != nil {
			return "", err
		}
		acc.Ratchet.Disarm()
		return "open orders cancelled", nil
	})
}

// CloseAll closes every open position with a reduce-only market order.
func (d *Desk) CloseAll(ctx context.Context) []AccountResult {
	return d.fanOut(ctx, "close all", errs.KindSubmission, func(ctx context.Context, acc *registry.Account) (string, error) {
		positions, err := acc.Gateway.GetPositions(ctx)
		if err != nil {
			return "", err
		}
		if len(positions) == 0 {
			return "no open position", nil
		}

		var errList []error
		closed := 0
		for _, pos := range positions {
			if err := acc.Gateway.ClosePosition(ctx, pos); err != nil {
				errList = append(errList, err)
				continue
			}
			closed++
		}
		if len(errList) == 0 {
			acc.Ratchet.Disarm()
		}
		return fmt.Sprintf("%d/%d positions closed", closed, len(positions)), errors.Join(errList...)
	})
}

// Failed counts the failed results.
func Failed(results []AccountResult) int {
	n := 0
	for _, res := range results {
		if res.Err != nil {
			n++
		}
	}
	return n
}
