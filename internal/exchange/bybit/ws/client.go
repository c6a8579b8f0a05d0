package ws

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"sniper/internal/exchange"
	"sniper/internal/logger"
)

func New(url, accountID, apiKey, secret string, log *logger.Logger) (*Client, error) {
	if url == "" {
		return nil, fmt.Errorf("empty stream url")
	}
	return &Client{
		url:          url,
		accountID:    accountID,
		apiKey:       apiKey,
		secret:       secret,
		log:          log,
		events:       make(chan exchange.Event, 100),
		stopCh:       make(chan struct{}),
		reconnectMin: 1 * time.Second,
		reconnectMax: 30 * time.Second,
	}, nil
}

func (w *Client) Connect(ctx context.Context) error {
	w.logEntry().WithField("url", w.url).Info("Connecting private stream.")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", w.url, err)
	}

	w.conn = conn
	w.conn.SetReadLimit(2 << 20)

	if w.apiKey != "" && w.secret != "" {
		if err := w.authenticate(); err != nil {
			_ = conn.Close()
			return err
		}
	}

	w.logEntry().Info("Private stream connected.")

	go w.readLoop()

	return nil
}

func (w *Client) Close() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.writeMu.Lock()
		defer w.writeMu.Unlock()
		if w.conn != nil {
			err = w.conn.Close()
		}
	})
	return err
}

func (w *Client) logEntry() *logrus.Entry {
	return w.log.For("bybit_ws", w.accountID)
}

func (w *Client) Events() <-chan exchange.Event {
	return w.events
}

func (w *Client) writeJSON(v any) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	return w.conn.WriteJSON(v)
}

// emit hands ev to the consumer unless the client is stopping.
func (w *Client) emit(ev exchange.Event) {
	ev.AccountID = w.accountID
	select {
	case w.events <- ev:
	case <-w.stopCh:
	}
}
