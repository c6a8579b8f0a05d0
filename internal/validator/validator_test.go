package validator

import (
	"errors"
	"sort"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"sniper/internal/errs"
	"sniper/internal/models"
)

func TestValidSplitCount(t *testing.T) {
	cases := []struct {
		style models.OrderStyle
		count int
		want  bool
	}{
		{models.OrderStyleLimit, 100, true},
		{models.OrderStyleLimit, 101, false},
		{models.OrderStyleMarket, 30, true},
		{models.OrderStyleMarket, 31, false},
		{models.OrderStyleMarket, 1, true},
	}
	for _, c := range cases {
		if got := ValidSplitCount(c.style, c.count); got != c.want {
			t.Errorf("ValidSplitCount(%s, %d) = %v, want %v", c.style, c.count, got, c.want)
		}
	}
}

func TestValidTakeProfits(t *testing.T) {
	if !ValidTakeProfits([]float64{1, 2, 3}) {
		t.Error("[1,2,3] should be valid")
	}
	if ValidTakeProfits([]float64{3, 2, 1}) {
		t.Error("[3,2,1] should be rejected")
	}
	if ValidTakeProfits([]float64{1, 1, 2}) {
		t.Error("[1,1,2] should be rejected, ascent must be strict")
	}
	if ValidTakeProfits([]float64{-1, 2, 3}) {
		t.Error("[-1,2,3] should be rejected")
	}
	if !ValidTakeProfits(nil) {
		t.Error("empty ladder should be valid")
	}
}

func TestValidStopLoss(t *testing.T) {
	if !ValidStopLoss(1) {
		t.Error("1 should be valid")
	}
	if ValidStopLoss(0) {
		t.Error("0 should be rejected")
	}
	if ValidStopLoss(-5) {
		t.Error("-5 should be rejected")
	}
}

func validIntent() models.TradeIntent {
	return models.TradeIntent{
		Symbol:          "BTCUSDT",
		Side:            models.Long,
		Style:           models.OrderStyleLimit,
		Size:            1,
		Price:           100,
		Leverage:        10,
		MarginMode:      models.MarginIsolated,
		StopLossPercent: 2,
		TakeProfits:     []float64{1, 2, 3},
	}
}

func TestValidateIntent(t *testing.T) {
	if err := ValidateIntent(validIntent()); err != nil {
		t.Fatalf("expected valid intent, got %v", err)
	}

	mutations := map[string]func(*models.TradeIntent){
		"limit without price": func(i *models.TradeIntent) { i.Price = 0 },
		"zero size":           func(i *models.TradeIntent) { i.Size = 0 },
		"no leverage":         func(i *models.TradeIntent) { i.Leverage = 0 },
		"negative stop":       func(i *models.TradeIntent) { i.StopLossPercent = -1 },
		"descending tps":      func(i *models.TradeIntent) { i.TakeProfits = []float64{3, 2} },
		"six tps":             func(i *models.TradeIntent) { i.TakeProfits = []float64{1, 2, 3, 4, 5, 6} },
		"unknown style":       func(i *models.TradeIntent) { i.Style = "Stop" },
		"empty symbol":        func(i *models.TradeIntent) { i.Symbol = " " },
		"too many splits": func(i *models.TradeIntent) {
			i.RangeEntry = &models.RangeEntry{BandPercent: 1, SplitCount: 101}
		},
		"market split cap": func(i *models.TradeIntent) {
			i.Style = models.OrderStyleMarket
			i.RangeEntry = &models.RangeEntry{BandPercent: 1, SplitCount: 31}
		},
		"wide band": func(i *models.TradeIntent) {
			i.RangeEntry = &models.RangeEntry{BandPercent: 5.5, SplitCount: 3}
		},
	}
	for name, mutate := range mutations {
		intent := validIntent()
		mutate(&intent)
		err := ValidateIntent(intent)
		if err == nil {
			t.Errorf("%s: expected rejection", name)
			continue
		}
		if !errors.Is(err, errs.ErrInvalidIntent) {
			t.Errorf("%s: expected ErrInvalidIntent, got %v", name, err)
		}
	}
}

func TestValidateIntent_MarketWithoutPrice(t *testing.T) {
	intent := validIntent()
	intent.Style = models.OrderStyleMarket
	intent.Price = 0
	intent.StopLossPercent = 0
	if err := ValidateIntent(intent); err != nil {
		t.Fatalf("market intent without price or stop should pass, got %v", err)
	}
}

func TestProperty_SortedDistinctPositiveLaddersAreValid(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("sorted distinct positive ladders pass, their reverse fails", prop.ForAll(
		func(values []float64) bool {
			sort.Float64s(values)
			ladder := make([]float64, 0, len(values))
			for _, v := range values {
				if len(ladder) == 0 || v > ladder[len(ladder)-1] {
					ladder = append(ladder, v)
				}
			}
			if !ValidTakeProfits(ladder) {
				return false
			}
			if len(ladder) < 2 {
				return true
			}
			reversed := make([]float64, len(ladder))
			for i, v := range ladder {
				reversed[len(ladder)-1-i] = v
			}
			return !ValidTakeProfits(reversed)
		},
		gen.SliceOf(gen.Float64Range(0.01, 100)),
	))

	properties.TestingRun(t)
}
