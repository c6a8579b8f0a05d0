package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"sniper/internal/exchange"
	"sniper/internal/logger"
)

type Client struct {
	url          string
	accountID    string
	apiKey       string
	secret       string
	log          *logger.Logger
	writeMu      sync.Mutex
	conn         *websocket.Conn
	events       chan exchange.Event
	stopCh       chan struct{}
	stopOnce     sync.Once
	topics       []string
	reconnectMin time.Duration
	reconnectMax time.Duration
}

type Message struct {
	Topic string          `json:"topic"`
	Op    string          `json:"op"`
	TS    int64           `json:"creationTime"`
	Data  json.RawMessage `json:"data"`
}

type AuthMessage struct {
	Op   string   `json:"op"`
	Args []string `json:"args"`
}

type SubscribeMessage struct {
	Op   string   `json:"op"`
	Args []string `json:"args"`
}
