// Package paper is an in-memory exchange.Gateway for dry runs. Orders never
// leave the process; resting orders are matched against prices fed in with
// SetPrice and fills are pushed on the event channel like the live stream does.
package paper

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"sniper/internal/errs"
	"sniper/internal/exchange"
	"sniper/internal/logger"
	"sniper/internal/models"
)

const (
	defaultPrice  = 100.0
	codeBadParams = 10001
)

var (
	_ exchange.Gateway     = (*Gateway)(nil)
	_ exchange.EventSource = (*Gateway)(nil)
)

type order struct {
	child   models.ChildOrder
	id      string
	status  models.OrderStatus
	updated time.Time
}

func (o *order) open() bool {
	return o.status == models.OrderStatusNew || o.status == models.OrderStatusUntriggered
}

type Gateway struct {
	accountID    string
	log          *logger.Logger
	defaultPrice float64

	mu        sync.Mutex
	connected bool
	equity    float64
	prices    map[string]float64
	orders    []*order
	byLink    map[string]*order
	positions map[string]models.Position
	leverage  map[string]int
	seq       int64
	events    chan exchange.Event
}

func New(accountID string, equity, startPrice float64, log *logger.Logger) *Gateway {
	if startPrice <= 0 {
		startPrice = defaultPrice
	}
	return &Gateway{
		accountID:    accountID,
		log:          log,
		defaultPrice: startPrice,
		equity:       equity,
		prices:       map[string]float64{},
		byLink:       map[string]*order{},
		positions:    map[string]models.Position{},
		leverage:     map[string]int{},
		events:       make(chan exchange.Event, 256),
	}
}

func (g *Gateway) AccountID() string {
	return g.accountID
}

func (g *Gateway) Connect(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.connected = true
	return nil
}

func (g *Gateway) Events() <-chan exchange.Event {
	return g.events
}

func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.connected = false
	return nil
}

func (g *Gateway) GetMarketPrice(ctx context.Context, symbol string) (float64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.connected {
		return 0, errs.Newf(errs.KindPrice, g.accountID, "price", "not connected")
	}
	return g.priceLocked(symbol), nil
}

func (g *Gateway) GetEquity(ctx context.Context, asset string) (float64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.connected {
		return 0, errs.Newf(errs.KindEquity, g.accountID, "equity", "not connected")
	}
	return g.equity, nil
}

func (g *Gateway) SetLeverage(ctx context.Context, symbol string, leverage int, cross bool) error {
	if leverage < 1 {
		return errs.Newf(errs.KindLeverage, g.accountID, "leverage", "leverage %d out of range", leverage)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.leverage[symbol] = leverage
	return nil
}

// SubmitOrderBatch accepts every order with a positive size. Market entries
// fill at once at the current price; everything else rests.
func (g *Gateway) SubmitOrderBatch(ctx context.Context, orders []models.ChildOrder) ([]models.OrderAck, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.connected {
		return nil, errs.Newf(errs.KindSubmission, g.accountID, "submit", "not connected")
	}

	acks := make([]models.OrderAck, 0, len(orders))
	rejected := 0
	for _, child := range orders {
		if child.Qty <= 0 || g.byLink[child.LinkID] != nil {
			acks = append(acks, models.OrderAck{LinkID: child.LinkID, Code: codeBadParams, Message: "invalid qty or duplicate link id"})
			rejected++
			continue
		}

		o := &order{child: child, id: uuid.NewString(), status: models.OrderStatusNew, updated: time.Now()}
		if child.IsTrigger() {
			o.status = models.OrderStatusUntriggered
		}
		g.orders = append(g.orders, o)
		g.byLink[child.LinkID] = o
		acks = append(acks, models.OrderAck{LinkID: child.LinkID, OrderID: o.id})

		if child.Role == models.RoleEntry && child.Style == models.OrderStyleMarket {
			g.fillLocked(o, g.priceLocked(child.Symbol))
		}
	}

	if rejected > 0 {
		return acks, errs.Newf(errs.KindSubmission, g.accountID, "submit", "%d of %d orders rejected", rejected, len(orders))
	}
	return acks, nil
}

func (g *Gateway) CancelAllOrders(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, o := range g.orders {
		if o.open() {
			g.setStatusLocked(o, models.OrderStatusCancelled)
		}
	}
	return nil
}

func (g *Gateway) CancelOrder(ctx context.Context, symbol, linkID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	o := g.byLink[linkID]
	if o == nil || !o.open() {
		return errs.Newf(errs.KindCancel, g.accountID, "cancel "+linkID, "no open order")
	}
	g.setStatusLocked(o, models.OrderStatusCancelled)
	return nil
}

func (g *Gateway) AmendTriggerPrice(ctx context.Context, symbol, linkID string, price float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	o := g.byLink[linkID]
	if o == nil || !o.open() || !o.child.IsTrigger() {
		return errs.Newf(errs.KindSubmission, g.accountID, "amend "+linkID, "no open trigger order")
	}
	o.child.TriggerPrice = price
	o.updated = time.Now()
	return nil
}

func (g *Gateway) GetPositions(ctx context.Context) ([]models.Position, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]models.Position, 0, len(g.positions))
	for _, p := range g.positions {
		out = append(out, p)
	}
	return out, nil
}

func (g *Gateway) ClosePosition(ctx context.Context, position models.Position) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.positions[position.Symbol]; !ok {
		return errs.Newf(errs.KindSubmission, g.accountID, "close "+position.Symbol, "no open position")
	}
	delete(g.positions, position.Symbol)
	return nil
}

// SetPrice moves the simulated market and fills whatever the move crosses.
func (g *Gateway) SetPrice(symbol string, price float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prices[symbol] = price

	for _, o := range g.orders {
		if !o.open() || o.child.Symbol != symbol {
			continue
		}
		if o.child.ReduceOnly {
			if _, ok := g.positions[symbol]; !ok {
				continue
			}
		}
		if crossed(o.child, price) {
			fillPrice := price
			if o.child.Style == models.OrderStyleLimit {
				fillPrice = o.child.LimitPrice
			}
			g.fillLocked(o, fillPrice)
		}
	}
}

// Order returns a copy of the order placed under linkID.
func (g *Gateway) Order(linkID string) (models.ChildOrder, models.OrderStatus, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	o := g.byLink[linkID]
	if o == nil {
		return models.ChildOrder{}, "", false
	}
	return o.child, o.status, true
}

func crossed(o models.ChildOrder, price float64) bool {
	buy := o.Side == models.OrderSideBuy
	switch o.Role {
	case models.RoleEntry:
		if buy {
			return price <= o.LimitPrice
		}
		return price >= o.LimitPrice
	case models.RoleStopLoss:
		if buy {
			return price >= o.TriggerPrice
		}
		return price <= o.TriggerPrice
	case models.RoleTakeProfit:
		if buy {
			return price <= o.TriggerPrice
		}
		return price >= o.TriggerPrice
	}
	return false
}

func (g *Gateway) priceLocked(symbol string) float64 {
	if p, ok := g.prices[symbol]; ok && p > 0 {
		return p
	}
	return g.defaultPrice
}

func (g *Gateway) fillLocked(o *order, price float64) {
	child := o.child
	pos, ok := g.positions[child.Symbol]

	qty := child.Qty
	if child.ReduceOnly {
		if !ok {
			return
		}
		qty = min(qty, pos.Size)
		pos.Size -= qty
		if pos.Size <= 0 {
			delete(g.positions, child.Symbol)
		} else {
			g.positions[child.Symbol] = pos
		}
	} else {
		side := models.Long
		if child.Side == models.OrderSideSell {
			side = models.Short
		}
		if !ok {
			pos = models.Position{Symbol: child.Symbol, Side: side, Leverage: float64(g.leverage[child.Symbol])}
		}
		notional := pos.EntryPrice*pos.Size + price*qty
		pos.Size += qty
		pos.EntryPrice = notional / pos.Size
		g.positions[child.Symbol] = pos
	}

	o.status = models.OrderStatusFilled
	o.updated = time.Now()
	g.seq++
	g.emitLocked(exchange.Event{
		Type: exchange.EventTypeFill,
		Fill: &models.Fill{
			OrderID:   o.id,
			LinkID:    child.LinkID,
			ExecID:    uuid.NewString(),
			Symbol:    child.Symbol,
			Side:      child.Side,
			Price:     price,
			Qty:       qty,
			Timestamp: o.updated,
			Sequence:  g.seq,
		},
	})
	g.emitOrderLocked(o, qty)
}

func (g *Gateway) setStatusLocked(o *order, status models.OrderStatus) {
	o.status = status
	o.updated = time.Now()
	g.seq++
	g.emitOrderLocked(o, 0)
}

func (g *Gateway) emitOrderLocked(o *order, filled float64) {
	price := o.child.LimitPrice
	if price == 0 {
		price = o.child.TriggerPrice
	}
	g.emitLocked(exchange.Event{
		Type: exchange.EventTypeOrder,
		Order: &models.OrderUpdate{
			OrderID:    o.id,
			LinkID:     o.child.LinkID,
			Symbol:     o.child.Symbol,
			Side:       o.child.Side,
			Price:      price,
			Qty:        o.child.Qty,
			FilledQty:  filled,
			Status:     o.status,
			ReduceOnly: o.child.ReduceOnly,
			Sequence:   g.seq,
			UpdateTime: o.updated,
		},
	})
}

func (g *Gateway) emitLocked(ev exchange.Event) {
	ev.AccountID = g.accountID
	select {
	case g.events <- ev:
	default:
		g.log.For("paper", g.accountID).WithField("type", ev.Type).Warn("Event buffer full, update dropped.")
	}
}
