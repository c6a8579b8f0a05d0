// Package bracket turns a trade intent into the entry order plus the stop-loss
// and take-profit orders that protect it. It performs no I/O: the reference
// price is resolved by the caller.
package bracket

import (
	"fmt"

	"github.com/shopspring/decimal"

	"sniper/internal/errs"
	"sniper/internal/models"
	"sniper/internal/splitter"
)

const DefaultQtyPrecision int32 = 8

type Builder struct {
	planner      *splitter.Planner
	qtyPrecision int32
	newID        func() string
}

type Option func(*Builder)

// WithQtyPrecision sets the number of decimals child sizes are truncated to.
func WithQtyPrecision(decimals int32) Option {
	return func(b *Builder) {
		if decimals >= 0 {
			b.qtyPrecision = decimals
		}
	}
}

func WithIDGenerator(fn func() string) Option {
	return func(b *Builder) {
		if fn != nil {
			b.newID = fn
		}
	}
}

func New(planner *splitter.Planner, opts ...Option) *Builder {
	b := &Builder{
		planner:      planner,
		qtyPrecision: DefaultQtyPrecision,
		newID:        NewBaseID,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// OrderSet is the full composite order for one account. Entry orders always
// come first, then the stop loss, then take profits in ladder order.
type OrderSet struct {
	BaseID   string
	Symbol   string
	Side     models.PositionSide
	Orders   []models.ChildOrder
	Warnings []string
}

func (s OrderSet) Entries() []models.ChildOrder {
	return s.byRole(models.RoleEntry)
}

func (s OrderSet) TakeProfits() []models.ChildOrder {
	return s.byRole(models.RoleTakeProfit)
}

func (s OrderSet) StopLoss() (models.ChildOrder, bool) {
	for _, o := range s.Orders {
		if o.Role == models.RoleStopLoss {
			return o, true
		}
	}
	return models.ChildOrder{}, false
}

func (s OrderSet) byRole(role models.OrderRole) []models.ChildOrder {
	var out []models.ChildOrder
	for _, o := range s.Orders {
		if o.Role == role {
			out = append(out, o)
		}
	}
	return out
}

// Build derives the order set for intent. referencePrice is the limit price
// for limit intents and the live market price for market intents.
func (b *Builder) Build(intent models.TradeIntent, referencePrice float64) (OrderSet, error) {
	switch intent.Style {
	case models.OrderStyleLimit:
		if intent.Price <= 0 {
			return OrderSet{}, errs.Invalid("price", intent.Price, "limit intents need a price")
		}
	case models.OrderStyleMarket:
	default:
		return OrderSet{}, errs.Invalid("style", intent.Style, "unsupported order style")
	}
	if referencePrice <= 0 {
		return OrderSet{}, errs.Invalid("reference_price", referencePrice, "reference price must be positive")
	}
	if intent.Size <= 0 {
		return OrderSet{}, errs.Invalid("size", intent.Size, "size must be positive")
	}

	baseID := b.newID()
	set := OrderSet{
		BaseID: baseID,
		Symbol: intent.Symbol,
		Side:   intent.Side,
	}

	set.Orders = append(set.Orders, b.entries(intent, referencePrice, baseID)...)

	if intent.HasStopLoss() {
		trigger := StopLossPrice(referencePrice, intent.StopLossPercent, intent.Side)
		set.Orders = append(set.Orders, models.NewStopLossOrder(intent.Symbol, intent.Side, trigger, intent.Size, StopLossLinkID(baseID)))
	}

	levels := make([]float64, 0, len(intent.TakeProfits))
	for i, tp := range intent.TakeProfits {
		if tp <= 0 {
			set.Warnings = append(set.Warnings, fmt.Sprintf("take profit %d skipped: non-positive value %v", i+1, tp))
			continue
		}
		levels = append(levels, tp)
	}
	if len(levels) == 0 {
		return set, nil
	}

	share, ok := b.tpShare(intent.Size, len(levels))
	if !ok {
		set.Warnings = append(set.Warnings, fmt.Sprintf(
			"take profit share of %v over %d levels truncates to zero at %d decimals, using minimum size %s",
			intent.Size, len(levels), b.qtyPrecision, share.String()))
	}
	qty := share.InexactFloat64()
	for i, tp := range levels {
		price := TakeProfitPrice(referencePrice, tp, intent.Side)
		set.Orders = append(set.Orders, models.NewTakeProfitOrder(intent.Symbol, intent.Side, i, price, qty, TakeProfitLinkID(baseID, i)))
	}
	return set, nil
}

func (b *Builder) entries(intent models.TradeIntent, referencePrice float64, baseID string) []models.ChildOrder {
	re := intent.RangeEntry
	if re == nil || b.planner == nil {
		return []models.ChildOrder{models.NewEntryOrder(intent.Symbol, intent.Side, intent.Style, intent.Price, intent.Size, EntryLinkID(baseID, 0))}
	}
	splits := b.planner.Generate(referencePrice, re.BandPercent, re.SplitCount, intent.Size, intent.Style)
	if len(splits) == 0 {
		return []models.ChildOrder{models.NewEntryOrder(intent.Symbol, intent.Side, intent.Style, intent.Price, intent.Size, EntryLinkID(baseID, 0))}
	}
	orders := make([]models.ChildOrder, 0, len(splits))
	for i, s := range splits {
		orders = append(orders, models.NewEntryOrder(intent.Symbol, intent.Side, intent.Style, s.Price, s.Size, EntryLinkID(baseID, i+1)))
	}
	return orders
}

// tpShare splits size evenly across n levels, truncated to the builder
// precision. A share that truncates to zero is bumped to the smallest
// representable size and reported through ok=false.
func (b *Builder) tpShare(size float64, n int) (decimal.Decimal, bool) {
	share := decimal.NewFromFloat(size).Div(decimal.NewFromInt(int64(n))).Truncate(b.qtyPrecision)
	if share.IsPositive() {
		return share, true
	}
	return decimal.New(1, -b.qtyPrecision), false
}

func StopLossPrice(reference, percent float64, side models.PositionSide) float64 {
	return offset(reference, percent, side == models.Short)
}

func TakeProfitPrice(reference, percent float64, side models.PositionSide) float64 {
	return offset(reference, percent, side == models.Long)
}

func offset(reference, percent float64, up bool) float64 {
	factor := decimal.NewFromFloat(percent).Div(decimal.NewFromInt(100))
	if up {
		factor = decimal.NewFromInt(1).Add(factor)
	} else {
		factor = decimal.NewFromInt(1).Sub(factor)
	}
	return decimal.NewFromFloat(reference).Mul(factor).InexactFloat64()
}
