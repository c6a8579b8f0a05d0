package rest

import (
	"strconv"

	"github.com/shopspring/decimal"

	"sniper/internal/exchange"
)

// formatWithStep floors value to a multiple of step and prints it with the
// step's number of decimals.
func formatWithStep(value, step float64) string {
	if step <= 0 {
		return strconv.FormatFloat(value, 'f', -1, 64)
	}

	s := decimal.NewFromFloat(step)
	quantized := decimal.NewFromFloat(value).Div(s).Floor().Mul(s)

	return quantized.StringFixed(stepDecimals(s))
}

// closingQty quantises the size of a reduce-only order. A positive size that
// floors below the instrument minimum is raised to it and reported.
func closingQty(value float64, rules exchange.InstrumentRules) (string, bool) {
	qty := formatWithStep(value, rules.LotSize)
	if value <= 0 || rules.LotSize <= 0 {
		return qty, false
	}

	step := decimal.NewFromFloat(rules.LotSize)
	floor := step
	if minQty := decimal.NewFromFloat(rules.MinQty); minQty.GreaterThan(floor) {
		floor = minQty
	}
	if q, err := decimal.NewFromString(qty); err == nil && q.LessThan(floor) {
		return floor.StringFixed(stepDecimals(step)), true
	}
	return qty, false
}

func stepDecimals(step decimal.Decimal) int32 {
	if exp := step.Exponent(); exp < 0 {
		return -exp
	}
	return 0
}

func parseFloatOrZero(value string) (float64, error) {
	if value == "" {
		return 0, nil
	}
	return strconv.ParseFloat(value, 64)
}
