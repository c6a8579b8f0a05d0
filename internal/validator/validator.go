package validator

import (
	"math"
	"strings"

	"sniper/internal/errs"
	"sniper/internal/models"
)

const (
	MaxLimitSplits  = 100
	MaxMarketSplits = 30
	MaxBandPercent  = 5.0
	MaxTakeProfits  = 5
	MaxLeverage     = 100
)

func ValidSplitCount(style models.OrderStyle, count int) bool {
	if style == models.OrderStyleLimit && count > MaxLimitSplits {
		return false
	}
	if style == models.OrderStyleMarket && count > MaxMarketSplits {
		return false
	}
	return true
}

// ValidTakeProfits requires strictly ascending, strictly positive levels.
func ValidTakeProfits(values []float64) bool {
	last := 0.0
	for _, tp := range values {
		if !isFinite(tp) || tp <= 0 || tp <= last {
			return false
		}
		last = tp
	}
	return true
}

func ValidStopLoss(value float64) bool {
	return isFinite(value) && value > 0
}

// ValidateIntent checks everything the order core relies on and returns the
// first violation as an invalid-intent error.
func ValidateIntent(intent models.TradeIntent) error {
	if strings.TrimSpace(intent.Symbol) == "" {
		return errs.Invalid("symbol", intent.Symbol, "symbol is required")
	}
	if intent.Side != models.Long && intent.Side != models.Short {
		return errs.Invalid("side", intent.Side, "side must be LONG or SHORT")
	}
	switch intent.Style {
	case models.OrderStyleMarket:
	case models.OrderStyleLimit:
		if !isFinite(intent.Price) || intent.Price <= 0 {
			return errs.Invalid("price", intent.Price, "limit intents need a positive price")
		}
	default:
		return errs.Invalid("style", intent.Style, "unsupported order style")
	}
	if !isFinite(intent.Size) || intent.Size <= 0 {
		return errs.Invalid("size", intent.Size, "size must be positive")
	}
	if intent.Leverage <= 0 || intent.Leverage > MaxLeverage {
		return errs.Invalid("leverage", intent.Leverage, "leverage must be between 1 and 100")
	}
	if intent.MarginMode != models.MarginCross && intent.MarginMode != models.MarginIsolated {
		return errs.Invalid("margin_mode", intent.MarginMode, "margin mode must be CROSS or ISOLATED")
	}
	if intent.StopLossPercent != 0 && !ValidStopLoss(intent.StopLossPercent) {
		return errs.Invalid("stop_loss_percent", intent.StopLossPercent, "stop loss must be positive")
	}
	if !ValidTakeProfits(intent.TakeProfits) {
		return errs.Invalid("take_profits", intent.TakeProfits, "take profits must be positive and strictly ascending")
	}
	if len(intent.TakeProfits) > MaxTakeProfits {
		return errs.Invalid("take_profits", len(intent.TakeProfits), "at most 5 take profit levels")
	}
	if re := intent.RangeEntry; re != nil {
		if !isFinite(re.BandPercent) || re.BandPercent <= 0 || re.BandPercent > MaxBandPercent {
			return errs.Invalid("range_entry.band_percent", re.BandPercent, "band must be in (0, 5]")
		}
		if re.SplitCount < 1 {
			return errs.Invalid("range_entry.split_count", re.SplitCount, "split count must be at least 1")
		}
		if !ValidSplitCount(intent.Style, re.SplitCount) {
			return errs.Invalid("range_entry.split_count", re.SplitCount, "split count exceeds the limit for "+string(intent.Style)+" orders")
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
