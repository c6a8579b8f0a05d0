package rest

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"sniper/internal/errs"
)

const (
	codeMarginModeUnchanged = 110026
	codeLeverageUnchanged   = 110043
	codeUnifiedForbidden    = 100028
)

// GetEquity returns the equity held in asset, or the total account equity when
// asset is empty.
func (c *Client) GetEquity(ctx context.Context, asset string) (float64, error) {
	params := url.Values{}
	params.Set("accountType", c.accountType)

	if asset != "" {
		params.Set("coin", asset)
	}

	var resp bybitResponse[struct {
		List []struct {
			TotalEquity string `json:"totalEquity"`
			Coin        []struct {
				Coin          string `json:"coin"`
				Equity        string `json:"equity"`
				WalletBalance string `json:"walletBalance"`
			} `json:"coin"`
		} `json:"list"`
	}]

	if err := c.doRequest(ctx, http.MethodGet, "/v5/account/wallet-balance", params, nil, true, &resp); err != nil {
		return 0, errs.New(errs.KindEquity, c.accountID, "wallet-balance", err)
	}

	for _, account := range resp.Result.List {
		if asset == "" {
			total, err := parseFloatOrZero(account.TotalEquity)
			if err != nil {
				return 0, errs.New(errs.KindEquity, c.accountID, "wallet-balance", err)
			}
			return total, nil
		}
		for _, item := range account.Coin {
			if item.Coin != asset {
				continue
			}
			equity, err := parseFloatOrZero(item.Equity)
			if err != nil {
				return 0, errs.New(errs.KindEquity, c.accountID, "wallet-balance", err)
			}
			if equity == 0 {
				equity, _ = parseFloatOrZero(item.WalletBalance)
			}
			return equity, nil
		}
	}

	return 0, errs.Newf(errs.KindEquity, c.accountID, "wallet-balance", "no %s balance", asset)
}

// SetLeverage switches the symbol's margin mode and leverage. Answers saying
// nothing changed count as success.
func (c *Client) SetLeverage(ctx context.Context, symbol string, leverage int, cross bool) error {
	lev := strconv.Itoa(leverage)

	tradeMode := 1
	if cross {
		tradeMode = 0
	}

	switchBody := map[string]any{
		"category":     category,
		"symbol":       symbol,
		"tradeMode":    tradeMode,
		"buyLeverage":  lev,
		"sellLeverage": lev,
	}

	var switchResp bybitResponse[struct{}]
	err := c.doRequest(ctx, http.MethodPost, "/v5/position/switch-isolated", nil, switchBody, true, &switchResp)
	if err != nil && !hasCode(err, codeMarginModeUnchanged, codeUnifiedForbidden) {
		return errs.New(errs.KindLeverage, c.accountID, "switch-isolated", err)
	}

	levBody := map[string]any{
		"category":     category,
		"symbol":       symbol,
		"buyLeverage":  lev,
		"sellLeverage": lev,
	}

	var levResp bybitResponse[struct{}]
	err = c.doRequest(ctx, http.MethodPost, "/v5/position/set-leverage", nil, levBody, true, &levResp)
	if err != nil && !hasCode(err, codeLeverageUnchanged) {
		return errs.New(errs.KindLeverage, c.accountID, "set-leverage", err)
	}

	c.logEntry().WithField("symbol", symbol).WithField("leverage", leverage).WithField("cross", cross).Debug("Leverage set.")
	return nil
}
