package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"sniper/internal/errs"
	"sniper/internal/models"
)

func (c *Client) GetPositions(ctx context.Context) ([]models.Position, error) {
	params := url.Values{}
	params.Set("category", category)
	params.Set("settleCoin", c.settleCoin)

	var resp bybitResponse[struct {
		List []struct {
			Symbol        string `json:"symbol"`
			Side          string `json:"side"`
			Size          string `json:"size"`
			AvgPrice      string `json:"avgPrice"`
			Leverage      string `json:"leverage"`
			UnrealisedPnl string `json:"unrealisedPnl"`
		} `json:"list"`
	}]

	if err := c.doRequest(ctx, http.MethodGet, "/v5/position/list", params, nil, true, &resp); err != nil {
		return nil, errs.New(errs.KindConnection, c.accountID, "position-list", err)
	}

	var positions []models.Position
	for _, item := range resp.Result.List {
		size, _ := parseFloatOrZero(item.Size)
		if size == 0 {
			continue
		}

		side := models.Long
		if item.Side == string(models.OrderSideSell) {
			side = models.Short
		}

		entry, _ := parseFloatOrZero(item.AvgPrice)
		leverage, _ := parseFloatOrZero(item.Leverage)
		pnl, _ := parseFloatOrZero(item.UnrealisedPnl)

		positions = append(positions, models.Position{
			Symbol:     item.Symbol,
			Side:       side,
			Size:       size,
			EntryPrice: entry,
			Leverage:   leverage,
			UnrealPnL:  pnl,
		})
	}
	return positions, nil
}

// ClosePosition flattens position with a reduce-only market order.
func (c *Client) ClosePosition(ctx context.Context, position models.Position) error {
	rules, err := c.GetInstrumentRules(ctx, position.Symbol)
	if err != nil {
		return errs.New(errs.KindSubmission, c.accountID, "close "+position.Symbol, err)
	}

	body := map[string]any{
		"category":    category,
		"symbol":      position.Symbol,
		"side":        string(position.Side.Closing()),
		"orderType":   string(models.OrderStyleMarket),
		"qty":         formatWithStep(position.Size, rules.LotSize),
		"reduceOnly":  true,
		"positionIdx": 0,
		"orderLinkId": fmt.Sprintf("close-%d", time.Now().UnixMilli()),
	}

	var resp bybitResponse[struct {
		OrderID string `json:"orderId"`
	}]

	if err := c.doRequest(ctx, http.MethodPost, "/v5/order/create", nil, body, true, &resp); err != nil {
		return errs.New(errs.KindSubmission, c.accountID, "close "+position.Symbol, err)
	}

	c.logEntry().WithField("symbol", position.Symbol).WithField("order_id", resp.Result.OrderID).Info("Position closed.")
	return nil
}
