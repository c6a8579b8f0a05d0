package rest

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"sniper/internal/errs"
	"sniper/internal/exchange"
	"sniper/internal/exchange/bybit/ws"
	"sniper/internal/logger"
)

var (
	_ exchange.Gateway     = (*Client)(nil)
	_ exchange.EventSource = (*Client)(nil)
)

func New(cfg Config, log *logger.Logger) *Client {
	if cfg.AccountType == "" {
		cfg.AccountType = "UNIFIED"
	}
	if cfg.SettleCoin == "" {
		cfg.SettleCoin = "USDT"
	}
	if cfg.RecvWindow == "" {
		cfg.RecvWindow = "5000"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		accountID:    cfg.AccountID,
		baseURL:      cfg.BaseURL,
		wsPrivateURL: cfg.WSPrivateURL,
		accountType:  cfg.AccountType,
		settleCoin:   cfg.SettleCoin,
		recvWindow:   cfg.RecvWindow,
		apiKey:       cfg.APIKey,
		secret:       cfg.Secret,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		log:    log,
		events: make(chan exchange.Event, 100),
		rules:  map[string]exchange.InstrumentRules{},
	}
}

func (c *Client) AccountID() string {
	return c.accountID
}

// Connect checks the credentials against the account endpoint and, when a
// private stream url is configured, subscribes to order and execution updates.
func (c *Client) Connect(ctx context.Context) error {
	var resp bybitResponse[struct {
		MarginMode    string `json:"marginMode"`
		UnifiedMargin int    `json:"unifiedMarginStatus"`
	}]
	if err := c.doRequest(ctx, http.MethodGet, "/v5/account/info", url.Values{}, nil, true, &resp); err != nil {
		return errs.New(errs.KindConnection, c.accountID, "connect", err)
	}

	c.logEntry().WithField("margin_mode", resp.Result.MarginMode).Info("Account connected.")

	if c.wsPrivateURL == "" || c.wsPrivate != nil {
		return nil
	}

	stream, err := ws.New(c.wsPrivateURL, c.accountID, c.apiKey, c.secret, c.log)
	if err != nil {
		return errs.New(errs.KindConnection, c.accountID, "connect stream", err)
	}
	if err := stream.Connect(ctx); err != nil {
		return errs.New(errs.KindConnection, c.accountID, "connect stream", err)
	}
	if err := stream.SubscribeToTopics(ctx, []string{"order", "execution"}); err != nil {
		_ = stream.Close()
		return errs.New(errs.KindConnection, c.accountID, "subscribe stream", err)
	}
	c.wsPrivate = stream
	return nil
}

// Events returns the private stream updates. The channel stays silent until
// Connect has opened the stream.
func (c *Client) Events() <-chan exchange.Event {
	if c.wsPrivate != nil {
		return c.wsPrivate.Events()
	}
	return c.events
}

func (c *Client) Close() error {
	if c.wsPrivate != nil {
		return c.wsPrivate.Close()
	}
	return nil
}
