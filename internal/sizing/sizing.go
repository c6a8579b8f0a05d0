// Package sizing derives position sizes from account equity and risk.
package sizing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PositionSize returns the notional that loses riskPercent of equity when the
// stop stopPercent away is hit: equity * risk% / stop%.
func PositionSize(equity, riskPercent, stopPercent float64) (float64, error) {
	if equity <= 0 {
		return 0, fmt.Errorf("equity must be positive, got %v", equity)
	}
	if riskPercent <= 0 || riskPercent > 100 {
		return 0, fmt.Errorf("risk percent must be in (0, 100], got %v", riskPercent)
	}
	if stopPercent <= 0 {
		return 0, fmt.Errorf("stop percent must be positive, got %v", stopPercent)
	}

	notional := decimal.NewFromFloat(equity).
		Mul(decimal.NewFromFloat(riskPercent)).
		Div(decimal.NewFromFloat(stopPercent))
	return notional.InexactFloat64(), nil
}

// BaseQuantity converts a notional into base units at price, truncated to
// precision decimals.
func BaseQuantity(notional, price float64, precision int32) (float64, error) {
	if price <= 0 {
		return 0, fmt.Errorf("price must be positive, got %v", price)
	}
	qty := decimal.NewFromFloat(notional).Div(decimal.NewFromFloat(price)).Truncate(precision)
	if !qty.IsPositive() {
		return 0, fmt.Errorf("notional %v at price %v rounds to zero", notional, price)
	}
	return qty.InexactFloat64(), nil
}
