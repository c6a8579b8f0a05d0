package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"sniper/internal/errs"
	"sniper/internal/exchange"
)

// GetMarketPrice returns the last traded price, or the bid/ask mid when the
// ticker carries no last price.
func (c *Client) GetMarketPrice(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("category", category)
	params.Set("symbol", symbol)

	var resp bybitResponse[struct {
		List []struct {
			Symbol    string `json:"symbol"`
			LastPrice string `json:"lastPrice"`
			Bid1Price string `json:"bid1Price"`
			Ask1Price string `json:"ask1Price"`
		} `json:"list"`
	}]

	if err := c.doRequest(ctx, http.MethodGet, "/v5/market/tickers", params, nil, false, &resp); err != nil {
		return 0, errs.New(errs.KindPrice, c.accountID, "tickers", err)
	}

	if len(resp.Result.List) == 0 {
		return 0, errs.Newf(errs.KindPrice, c.accountID, "tickers", "no ticker for %s", symbol)
	}

	ticker := resp.Result.List[0]
	if last, err := parseFloatOrZero(ticker.LastPrice); err == nil && last > 0 {
		return last, nil
	}

	bid, _ := parseFloatOrZero(ticker.Bid1Price)
	ask, _ := parseFloatOrZero(ticker.Ask1Price)
	if bid > 0 && ask > 0 {
		return (bid + ask) / 2, nil
	}

	return 0, errs.Newf(errs.KindPrice, c.accountID, "tickers", "no last or mid price for %s", symbol)
}

// GetInstrumentRules returns tick and lot sizes for symbol, cached per client.
func (c *Client) GetInstrumentRules(ctx context.Context, symbol string) (exchange.InstrumentRules, error) {
	c.rulesMu.RLock()
	rules, ok := c.rules[symbol]
	c.rulesMu.RUnlock()
	if ok {
		return rules, nil
	}

	params := url.Values{}
	params.Set("category", category)
	params.Set("symbol", symbol)

	var resp bybitResponse[instrumentInfo]

	if err := c.doRequest(ctx, http.MethodGet, "/v5/market/instruments-info", params, nil, false, &resp); err != nil {
		return exchange.InstrumentRules{}, err
	}

	if len(resp.Result.List) == 0 {
		return exchange.InstrumentRules{}, fmt.Errorf("unknown symbol %s", symbol)
	}

	info := resp.Result.List[0]

	tick, err := strconv.ParseFloat(info.PriceFilter.TickSize, 64)
	if err != nil {
		return exchange.InstrumentRules{}, fmt.Errorf("bad tickSize=%q: %w", info.PriceFilter.TickSize, err)
	}

	lot, err := parseFloatOrZero(info.LotSizeFilter.QtyStep)
	if err != nil || lot == 0 {
		return exchange.InstrumentRules{}, fmt.Errorf("bad qtyStep=%q for %s", info.LotSizeFilter.QtyStep, symbol)
	}

	minQty, err := parseFloatOrZero(info.LotSizeFilter.MinOrderQty)
	if err != nil {
		return exchange.InstrumentRules{}, fmt.Errorf("bad minOrderQty=%q: %w", info.LotSizeFilter.MinOrderQty, err)
	}

	maxLeverage, _ := parseFloatOrZero(info.LeverageFilter.MaxLeverage)

	rules = exchange.InstrumentRules{
		TickSize:    tick,
		LotSize:     lot,
		MinQty:      minQty,
		MaxLeverage: maxLeverage,
		BaseCoin:    info.BaseCoin,
		QuoteCoin:   info.QuoteCoin,
	}

	c.rulesMu.Lock()
	c.rules[symbol] = rules
	c.rulesMu.Unlock()

	return rules, nil
}
