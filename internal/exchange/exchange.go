package exchange

import (
	"context"

	"sniper/internal/models"
)

type EventType string

const (
	EventTypeOrder     EventType = "Order"
	EventTypeFill      EventType = "Fill"
	EventTypeReconnect EventType = "Reconnect"
)

type Event struct {
	Type      EventType
	AccountID string
	Order     *models.OrderUpdate
	Fill      *models.Fill
}

type InstrumentRules struct {
	TickSize    float64
	LotSize     float64
	MinQty      float64
	MaxLeverage float64
	BaseCoin    string
	QuoteCoin   string
}

// Gateway is one trading account on the exchange. Every failure it returns is
// an *errs.Error carrying the account id.
type Gateway interface {
	AccountID() string
	Connect(ctx context.Context) error
	GetMarketPrice(ctx context.Context, symbol string) (float64, error)
	GetEquity(ctx context.Context, asset string) (float64, error)
	// SubmitOrderBatch places orders in the given order, entries first. Acks
	// are returned per order even when some of them were rejected.
	SubmitOrderBatch(ctx context.Context, orders []models.ChildOrder) ([]models.OrderAck, error)
	SetLeverage(ctx context.Context, symbol string, leverage int, cross bool) error
	CancelAllOrders(ctx context.Context) error
	CancelOrder(ctx context.Context, symbol, linkID string) error
	AmendTriggerPrice(ctx context.Context, symbol, linkID string, price float64) error
	GetPositions(ctx context.Context) ([]models.Position, error)
	ClosePosition(ctx context.Context, position models.Position) error
	Close() error
}

// EventSource is implemented by gateways that push order and fill updates.
type EventSource interface {
	Events() <-chan Event
}
