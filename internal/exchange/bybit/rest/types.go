package rest

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"sniper/internal/exchange"
	"sniper/internal/exchange/bybit/ws"
	"sniper/internal/logger"
)

const (
	category     = "linear"
	maxBatchSize = 10
)

type Config struct {
	AccountID    string
	BaseURL      string
	WSPrivateURL string
	APIKey       string
	Secret       string
	AccountType  string
	SettleCoin   string
	RecvWindow   string
	Timeout      time.Duration
}

// Client is a Bybit v5 linear-perpetual account. It implements exchange.Gateway
// and, once connected to the private stream, exchange.EventSource.
type Client struct {
	accountID    string
	baseURL      string
	wsPrivateURL string
	accountType  string
	settleCoin   string
	recvWindow   string
	apiKey       string
	secret       string
	httpClient   *http.Client
	log          *logger.Logger
	wsPrivate    *ws.Client
	events       chan exchange.Event

	rulesMu sync.RWMutex
	rules   map[string]exchange.InstrumentRules
}

type bybitResponse[T any] struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  T      `json:"result"`
	Time    int64  `json:"time"`
}

func (r *bybitResponse[T]) status() (int, string) { return r.RetCode, r.RetMsg }

type batchResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		List []struct {
			Symbol      string `json:"symbol"`
			OrderID     string `json:"orderId"`
			OrderLinkID string `json:"orderLinkId"`
		} `json:"list"`
	} `json:"result"`
	RetExtInfo struct {
		List []struct {
			Code int    `json:"code"`
			Msg  string `json:"msg"`
		} `json:"list"`
	} `json:"retExtInfo"`
}

func (r *batchResponse) status() (int, string) { return r.RetCode, r.RetMsg }

// envelope is implemented by every decoded Bybit answer.
type envelope interface {
	status() (code int, msg string)
}

type instrumentInfo struct {
	List []struct {
		Symbol      string `json:"symbol"`
		BaseCoin    string `json:"baseCoin"`
		QuoteCoin   string `json:"quoteCoin"`
		PriceFilter struct {
			TickSize string `json:"tickSize"`
		} `json:"priceFilter"`
		LotSizeFilter struct {
			MinOrderQty string `json:"minOrderQty"`
			QtyStep     string `json:"qtyStep"`
		} `json:"lotSizeFilter"`
		LeverageFilter struct {
			MaxLeverage string `json:"maxLeverage"`
		} `json:"leverageFilter"`
	} `json:"list"`
}

// apiError is a non-zero retCode answer.
type apiError struct {
	Code int
	Msg  string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("bybit: %s (code=%d)", e.Msg, e.Code)
}
