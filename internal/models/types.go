package models

import (
	"strings"
	"time"
)

type PositionSide string
type OrderSide string
type OrderStyle string
type MarginMode string
type OrderRole string

const (
	Long  PositionSide = "LONG"
	Short PositionSide = "SHORT"

	OrderSideBuy  OrderSide = "Buy"
	OrderSideSell OrderSide = "Sell"

	OrderStyleMarket OrderStyle = "Market"
	OrderStyleLimit  OrderStyle = "Limit"

	MarginCross    MarginMode = "CROSS"
	MarginIsolated MarginMode = "ISOLATED"

	RoleEntry      OrderRole = "ENTRY"
	RoleStopLoss   OrderRole = "STOP_LOSS"
	RoleTakeProfit OrderRole = "TAKE_PROFIT"
)

// OrderSide is the exchange side that opens a position of this direction.
func (s PositionSide) OrderSide() OrderSide {
	if s == Short {
		return OrderSideSell
	}
	return OrderSideBuy
}

// Closing is the exchange side that reduces a position of this direction.
func (s PositionSide) Closing() OrderSide {
	if s == Short {
		return OrderSideBuy
	}
	return OrderSideSell
}

func ParsePositionSide(v string) (PositionSide, bool) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "LONG", "BUY":
		return Long, true
	case "SHORT", "SELL":
		return Short, true
	}
	return "", false
}

func ParseOrderStyle(v string) (OrderStyle, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "market":
		return OrderStyleMarket, true
	case "limit":
		return OrderStyleLimit, true
	}
	return "", false
}

func ParseMarginMode(v string) (MarginMode, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "cross":
		return MarginCross, true
	case "isolated":
		return MarginIsolated, true
	}
	return "", false
}

type RangeEntry struct {
	BandPercent float64 `json:"band_percent"`
	SplitCount  int     `json:"split_count"`
}

// TradeIntent is one trade request before it is decomposed into exchange orders.
// Price is zero for market intents; StopLossPercent is zero when no stop is wanted.
type TradeIntent struct {
	Symbol          string       `json:"symbol"`
	Side            PositionSide `json:"side"`
	Style           OrderStyle   `json:"style"`
	Size            float64      `json:"size"`
	Price           float64      `json:"price,omitempty"`
	Leverage        int          `json:"leverage"`
	MarginMode      MarginMode   `json:"margin_mode"`
	StopLossPercent float64      `json:"stop_loss_percent,omitempty"`
	TakeProfits     []float64    `json:"take_profits,omitempty"`
	RangeEntry      *RangeEntry  `json:"range_entry,omitempty"`
}

func (i TradeIntent) Clone() TradeIntent {
	out := i
	if i.TakeProfits != nil {
		out.TakeProfits = append([]float64(nil), i.TakeProfits...)
	}
	if i.RangeEntry != nil {
		re := *i.RangeEntry
		out.RangeEntry = &re
	}
	return out
}

func (i TradeIntent) HasStopLoss() bool {
	return i.StopLossPercent > 0
}

// ChildOrder is a single exchange order derived from an intent. Only the
// constructors below should be used to build one so that each role carries
// just the fields valid for it.
type ChildOrder struct {
	Role         OrderRole  `json:"role"`
	Level        int        `json:"level"`
	Symbol       string     `json:"symbol"`
	Side         OrderSide  `json:"side"`
	Style        OrderStyle `json:"style"`
	ReduceOnly   bool       `json:"reduce_only"`
	TriggerPrice float64    `json:"trigger_price,omitempty"`
	LimitPrice   float64    `json:"limit_price,omitempty"`
	Qty          float64    `json:"qty"`
	LinkID       string     `json:"link_id"`
}

func NewEntryOrder(symbol string, side PositionSide, style OrderStyle, price, qty float64, linkID string) ChildOrder {
	o := ChildOrder{
		Role:   RoleEntry,
		Symbol: symbol,
		Side:   side.OrderSide(),
		Style:  style,
		Qty:    qty,
		LinkID: linkID,
	}
	if style == OrderStyleLimit {
		o.LimitPrice = price
	}
	return o
}

// NewStopLossOrder is a market order fired once the trigger is crossed.
func NewStopLossOrder(symbol string, side PositionSide, trigger, qty float64, linkID string) ChildOrder {
	return ChildOrder{
		Role:         RoleStopLoss,
		Symbol:       symbol,
		Side:         side.Closing(),
		Style:        OrderStyleMarket,
		ReduceOnly:   true,
		TriggerPrice: trigger,
		Qty:          qty,
		LinkID:       linkID,
	}
}

// NewTakeProfitOrder is a limit order resting at price once price is reached.
func NewTakeProfitOrder(symbol string, side PositionSide, level int, price, qty float64, linkID string) ChildOrder {
	return ChildOrder{
		Role:         RoleTakeProfit,
		Level:        level,
		Symbol:       symbol,
		Side:         side.Closing(),
		Style:        OrderStyleLimit,
		ReduceOnly:   true,
		TriggerPrice: price,
		LimitPrice:   price,
		Qty:          qty,
		LinkID:       linkID,
	}
}

func (o ChildOrder) IsTrigger() bool {
	return o.TriggerPrice > 0
}

// OrderAck is the exchange answer for one child order of a batch.
type OrderAck struct {
	LinkID  string `json:"link_id"`
	OrderID string `json:"order_id"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (a OrderAck) Accepted() bool {
	return a.Code == 0 && a.OrderID != ""
}

type Position struct {
	Symbol     string       `json:"symbol"`
	Side       PositionSide `json:"side"`
	Size       float64      `json:"size"`
	EntryPrice float64      `json:"entry_price"`
	Leverage   float64      `json:"leverage"`
	UnrealPnL  float64      `json:"unrealised_pnl"`
}

type OrderStatus string

const (
	OrderStatusNew             OrderStatus = "New"
	OrderStatusPartiallyFilled OrderStatus = "PartiallyFilled"
	OrderStatusFilled          OrderStatus = "Filled"
	OrderStatusCancelled       OrderStatus = "Cancelled"
	OrderStatusRejected        OrderStatus = "Rejected"
	OrderStatusUntriggered     OrderStatus = "Untriggered"
	OrderStatusTriggered       OrderStatus = "Triggered"
)

type OrderUpdate struct {
	OrderID    string      `json:"order_id"`
	LinkID     string      `json:"link_id"`
	Symbol     string      `json:"symbol"`
	Side       OrderSide   `json:"side"`
	Price      float64     `json:"price"`
	Qty        float64     `json:"qty"`
	FilledQty  float64     `json:"filled_qty"`
	Status     OrderStatus `json:"status"`
	ReduceOnly bool        `json:"reduce_only"`
	Sequence   int64       `json:"sequence"`
	UpdateTime time.Time   `json:"update_time"`
}

type Fill struct {
	OrderID   string    `json:"order_id"`
	LinkID    string    `json:"link_id"`
	ExecID    string    `json:"exec_id"`
	Symbol    string    `json:"symbol"`
	Side      OrderSide `json:"side"`
	Price     float64   `json:"price"`
	Qty       float64   `json:"qty"`
	LeavesQty float64   `json:"leaves_qty"`
	Timestamp time.Time `json:"timestamp"`
	Sequence  int64     `json:"sequence"`
}
