package engine

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"sniper/internal/copytrade"
	"sniper/internal/errs"
	"sniper/internal/models"
	"sniper/internal/sizing"
)

// Place routes intent to the master (when it trades) and every subscriber.
// Validation happens before any account is touched; the returned dispatch
// completes once every account has answered.
func (d *Desk) Place(ctx context.Context, intent models.TradeIntent) (*copytrade.Dispatch, error) {
	masterID := ""
	if master, ok := d.accounts.Master(); ok {
		masterID = master.ID
	}
	targets := d.Targets()
	if len(targets) == 0 {
		return nil, fmt.Errorf("no account to trade on: %s", d.Describe())
	}

	d.logEntry().WithFields(logrus.Fields{
		"symbol":  intent.Symbol,
		"side":    intent.Side,
		"targets": len(targets),
	}).Info("Placing intent.")

	return d.router.Mirror(ctx, intent, masterID, targets, d.pairs)
}

// Targets lists the accounts an intent is sent to: the master first when it
// trades itself, then the subscribers in roster order.
func (d *Desk) Targets() []string {
	var ids []string
	if master, ok := d.accounts.Master(); ok && d.cfg.Copy.MasterTrades {
		ids = append(ids, master.ID)
	}
	for _, acc := range d.accounts.Subscribers() {
		ids = append(ids, acc.ID)
	}
	return ids
}

// SizeForRisk sizes a position on the master account so that hitting a stop
// stopPercent away loses riskPercent of its equity. price is the intended
// entry; zero means the current market price.
func (d *Desk) SizeForRisk(ctx context.Context, symbol string, riskPercent, stopPercent, price float64) (float64, error) {
	master, ok := d.accounts.Master()
	if !ok {
		return 0, fmt.Errorf("no master account to size against")
	}

	equity, err := master.Gateway.GetEquity(ctx, d.cfg.Trading.EquityAsset)
	if err != nil {
		return 0, errs.Scope(errs.KindEquity, master.ID, "equity", err)
	}
	notional, err := sizing.PositionSize(equity, riskPercent, stopPercent)
	if err != nil {
		return 0, errs.Scope(errs.KindInvalidIntent, master.ID, "size", err)
	}

	if price <= 0 {
		price, err = master.Gateway.GetMarketPrice(ctx, symbol)
		if err != nil {
			return 0, errs.Scope(errs.KindPrice, master.ID, "price", err)
		}
	}
	qty, err := sizing.BaseQuantity(notional, price, d.cfg.Trading.QtyPrecision)
	if err != nil {
		return 0, errs.Scope(errs.KindInvalidIntent, master.ID, "size", err)
	}

	d.accountEntry(master.ID).WithFields(logrus.Fields{
		"equity":   formatFloatPlain(equity),
		"risk_pct": riskPercent,
		"stop_pct": stopPercent,
		"notional": formatFloatPlain(notional),
		"qty":      formatFloatPlain(qty),
	}).Info("Position sized from risk.")
	return qty, nil
}
