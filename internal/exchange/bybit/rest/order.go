package rest

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"sniper/internal/errs"
	"sniper/internal/exchange"
	"sniper/internal/models"
)

const (
	triggerRise = 1
	triggerFall = 2
)

// SubmitOrderBatch sends orders through create-batch in chunks of
// maxBatchSize, keeping their order. Per-order rejections come back as acks
// with a non-zero code and make the call return a submission error as well.
func (c *Client) SubmitOrderBatch(ctx context.Context, orders []models.ChildOrder) ([]models.OrderAck, error) {
	if len(orders) == 0 {
		return nil, nil
	}

	rules, err := c.GetInstrumentRules(ctx, orders[0].Symbol)
	if err != nil {
		return nil, errs.New(errs.KindSubmission, c.accountID, "instruments-info", err)
	}

	acks := make([]models.OrderAck, 0, len(orders))
	for start := 0; start < len(orders); start += maxBatchSize {
		end := min(start+maxBatchSize, len(orders))
		chunk := orders[start:end]

		chunkAcks, err := c.submitChunk(ctx, chunk, rules)
		if err != nil {
			return acks, errs.New(errs.KindSubmission, c.accountID, "create-batch", err)
		}
		acks = append(acks, chunkAcks...)
	}

	var rejected []string
	for _, ack := range acks {
		if !ack.Accepted() {
			rejected = append(rejected, fmt.Sprintf("%s: %s (code=%d)", ack.LinkID, ack.Message, ack.Code))
		}
	}
	if len(rejected) > 0 {
		return acks, errs.Newf(errs.KindSubmission, c.accountID, "create-batch", "%d of %d orders rejected: %s",
			len(rejected), len(acks), strings.Join(rejected, "; "))
	}

	return acks, nil
}

func (c *Client) submitChunk(ctx context.Context, chunk []models.ChildOrder, rules exchange.InstrumentRules) ([]models.OrderAck, error) {
	requests := make([]map[string]any, 0, len(chunk))
	for _, o := range chunk {
		req, raised := orderRequest(o, rules)
		if raised {
			c.logEntry().WithFields(logrus.Fields{
				"symbol":  o.Symbol,
				"link_id": o.LinkID,
				"qty":     o.Qty,
				"sent":    req["qty"],
			}).Warn("Closing order below the instrument lot size, sending the minimum.")
		}
		requests = append(requests, req)
	}

	body := map[string]any{
		"category": category,
		"request":  requests,
	}

	var resp batchResponse
	if err := c.doRequest(ctx, http.MethodPost, "/v5/order/create-batch", nil, body, true, &resp); err != nil {
		return nil, err
	}

	acks := make([]models.OrderAck, len(chunk))
	for i, o := range chunk {
		ack := models.OrderAck{LinkID: o.LinkID}
		if i < len(resp.Result.List) {
			ack.OrderID = resp.Result.List[i].OrderID
		}
		if i < len(resp.RetExtInfo.List) {
			ack.Code = resp.RetExtInfo.List[i].Code
			ack.Message = resp.RetExtInfo.List[i].Msg
		}
		if ack.Code == 0 && ack.OrderID == "" {
			ack.Code = -1
			ack.Message = "missing order id"
		}
		acks[i] = ack

		c.logEntry().WithFields(logrus.Fields{
			"symbol":   o.Symbol,
			"role":     o.Role,
			"link_id":  o.LinkID,
			"order_id": ack.OrderID,
			"code":     ack.Code,
		}).Debug("Order acknowledged.")
	}
	return acks, nil
}

// orderRequest builds one create-batch item. raised reports a reduce-only
// size lifted to the instrument minimum.
func orderRequest(o models.ChildOrder, rules exchange.InstrumentRules) (req map[string]any, raised bool) {
	qty := formatWithStep(o.Qty, rules.LotSize)
	if o.ReduceOnly {
		qty, raised = closingQty(o.Qty, rules)
	}

	req = map[string]any{
		"symbol":      o.Symbol,
		"side":        string(o.Side),
		"orderType":   string(o.Style),
		"qty":         qty,
		"orderLinkId": o.LinkID,
		"positionIdx": 0,
	}

	if o.Style == models.OrderStyleLimit && o.LimitPrice > 0 {
		req["price"] = formatWithStep(o.LimitPrice, rules.TickSize)
		req["timeInForce"] = "GTC"
	}

	if o.ReduceOnly {
		req["reduceOnly"] = true
	}

	if o.IsTrigger() {
		req["triggerPrice"] = formatWithStep(o.TriggerPrice, rules.TickSize)
		req["triggerDirection"] = triggerDirection(o)
		req["triggerBy"] = "LastPrice"
	}

	if o.Role == models.RoleStopLoss {
		req["closeOnTrigger"] = true
	}

	return req, raised
}

// triggerDirection tells Bybit whether the trigger fires on a rise or a fall.
// Closing sells protect longs: stops fall, targets rise. Closing buys mirror it.
func triggerDirection(o models.ChildOrder) int {
	sell := o.Side == models.OrderSideSell
	if o.Role == models.RoleStopLoss {
		if sell {
			return triggerFall
		}
		return triggerRise
	}
	if sell {
		return triggerRise
	}
	return triggerFall
}

func (c *Client) CancelAllOrders(ctx context.Context) error {
	body := map[string]any{
		"category":   category,
		"settleCoin": c.settleCoin,
	}

	var resp bybitResponse[struct {
		List []struct {
			OrderID     string `json:"orderId"`
			OrderLinkID string `json:"orderLinkId"`
		} `json:"list"`
	}]

	if err := c.doRequest(ctx, http.MethodPost, "/v5/order/cancel-all", nil, body, true, &resp); err != nil {
		return errs.New(errs.KindCancel, c.accountID, "cancel-all", err)
	}

	c.logEntry().WithField("cancelled", len(resp.Result.List)).Info("All orders cancelled.")
	return nil
}

func (c *Client) CancelOrder(ctx context.Context, symbol, linkID string) error {
	body := map[string]any{
		"category":    category,
		"symbol":      symbol,
		"orderLinkId": linkID,
	}

	var resp bybitResponse[struct{}]

	if err := c.doRequest(ctx, http.MethodPost, "/v5/order/cancel", nil, body, true, &resp); err != nil {
		return errs.New(errs.KindCancel, c.accountID, "cancel "+linkID, err)
	}
	return nil
}

// AmendTriggerPrice moves the trigger of a resting conditional order.
func (c *Client) AmendTriggerPrice(ctx context.Context, symbol, linkID string, price float64) error {
	rules, err := c.GetInstrumentRules(ctx, symbol)
	if err != nil {
		return errs.New(errs.KindSubmission, c.accountID, "amend "+linkID, err)
	}

	body := map[string]any{
		"category":     category,
		"symbol":       symbol,
		"orderLinkId":  linkID,
		"triggerPrice": formatWithStep(price, rules.TickSize),
	}

	var resp bybitResponse[struct {
		OrderID string `json:"orderId"`
	}]

	if err := c.doRequest(ctx, http.MethodPost, "/v5/order/amend", nil, body, true, &resp); err != nil {
		return errs.New(errs.KindSubmission, c.accountID, "amend "+linkID, err)
	}
	return nil
}
