package ws

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"sniper/internal/exchange"
	"sniper/internal/models"
)

type executionItem struct {
	OrderID   string `json:"orderId"`
	OrderLink string `json:"orderLinkId"`
	ExecID    string `json:"execId"`
	Symbol    string `json:"symbol"`
	Side      string `json:"side"`
	ExecPrice string `json:"execPrice"`
	ExecQty   string `json:"execQty"`
	LeavesQty string `json:"leavesQty"`
	ExecTime  string `json:"execTime"`
	Seq       int64  `json:"seq"`
}

type orderItem struct {
	OrderID      string `json:"orderId"`
	OrderLink    string `json:"orderLinkId"`
	Symbol       string `json:"symbol"`
	Side         string `json:"side"`
	OrderType    string `json:"orderType"`
	Price        string `json:"price"`
	Qty          string `json:"qty"`
	CumExecQty   string `json:"cumExecQty"`
	OrderStatus  string `json:"orderStatus"`
	ReduceOnly   bool   `json:"reduceOnly"`
	RejectReason string `json:"rejectReason"`
	UpdatedTime  string `json:"updatedTime"`
	Seq          int64  `json:"seq"`
}

func (w *Client) handleExecution(msg Message) {
	var data []executionItem

	if err := json.Unmarshal(msg.Data, &data); err != nil {
		w.logEntry().WithError(err).Warn("Cannot decode execution.")
		return
	}

	for _, item := range data {
		w.emit(exchange.Event{
			Type: exchange.EventTypeFill,
			Fill: parseExecution(item),
		})
	}
}

func parseExecution(item executionItem) *models.Fill {
	price, _ := strconv.ParseFloat(item.ExecPrice, 64)
	qty, _ := strconv.ParseFloat(item.ExecQty, 64)
	leaves, _ := strconv.ParseFloat(item.LeavesQty, 64)
	tsMs, _ := strconv.ParseInt(item.ExecTime, 10, 64)

	return &models.Fill{
		OrderID:   item.OrderID,
		LinkID:    item.OrderLink,
		ExecID:    item.ExecID,
		Symbol:    item.Symbol,
		Side:      models.OrderSide(item.Side),
		Price:     price,
		Qty:       qty,
		LeavesQty: leaves,
		Timestamp: time.UnixMilli(tsMs),
		Sequence:  item.Seq,
	}
}

func (w *Client) handleOrder(msg Message) {
	var data []orderItem

	if err := json.Unmarshal(msg.Data, &data); err != nil {
		w.logEntry().WithError(err).Warn("Cannot decode order update.")
		return
	}

	for _, item := range data {
		w.logEntry().WithFields(logrus.Fields{
			"symbol":        item.Symbol,
			"order_id":      item.OrderID,
			"link_id":       item.OrderLink,
			"status":        item.OrderStatus,
			"reject_reason": item.RejectReason,
		}).Debug("Order update.")

		w.emit(exchange.Event{
			Type:  exchange.EventTypeOrder,
			Order: parseOrder(item),
		})
	}
}

func parseOrder(item orderItem) *models.OrderUpdate {
	price, _ := strconv.ParseFloat(item.Price, 64)
	qty, _ := strconv.ParseFloat(item.Qty, 64)
	filled, _ := strconv.ParseFloat(item.CumExecQty, 64)
	tsMs, _ := strconv.ParseInt(item.UpdatedTime, 10, 64)

	return &models.OrderUpdate{
		OrderID:    item.OrderID,
		LinkID:     item.OrderLink,
		Symbol:     item.Symbol,
		Side:       models.OrderSide(item.Side),
		Price:      price,
		Qty:        qty,
		FilledQty:  filled,
		Status:     models.OrderStatus(item.OrderStatus),
		ReduceOnly: item.ReduceOnly,
		Sequence:   item.Seq,
		UpdateTime: time.UnixMilli(tsMs),
	}
}
