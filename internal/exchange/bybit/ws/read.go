package ws

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"sniper/internal/exchange"
)

func (w *Client) readLoop() {
	w.logEntry().Debug("Stream read loop started.")

	for {
		select {
		case <-w.stopCh:
			return
		default:
		}
		_, data, err := w.conn.ReadMessage()
		if err != nil {
			if w.stopping() {
				return
			}
			w.logEntry().WithError(err).Warn("Stream read failed.")

			if !w.reconnect() {
				return
			}
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			w.logEntry().WithError(err).Warn("Cannot decode stream message.")
			continue
		}

		switch {
		case strings.HasPrefix(msg.Topic, "execution"):
			w.handleExecution(msg)
		case strings.HasPrefix(msg.Topic, "order"):
			w.handleOrder(msg)
		default:
			continue
		}
	}
}

func (w *Client) stopping() bool {
	select {
	case <-w.stopCh:
		return true
	default:
		return false
	}
}

func (w *Client) reconnect() bool {
	backoff := w.reconnectMin

	for {
		w.logEntry().Info("Reconnecting private stream.")

		select {
		case <-w.stopCh:
			return false
		case <-time.After(backoff):
		}

		conn, _, err := websocket.DefaultDialer.Dial(w.url, nil)
		if err != nil {
			w.logEntry().WithError(err).Warn("Stream reconnect failed.")
			backoff = w.nextBackoff(backoff)
			continue
		}

		w.writeMu.Lock()
		if w.conn != nil {
			_ = w.conn.Close()
		}
		w.conn = conn
		w.conn.SetReadLimit(2 << 20)
		w.writeMu.Unlock()

		if w.apiKey != "" && w.secret != "" {
			if err := w.authenticate(); err != nil {
				w.logEntry().WithError(err).Warn("Stream re-auth failed.")
				backoff = w.nextBackoff(backoff)
				continue
			}
		}

		if len(w.topics) > 0 {
			if err := w.SubscribeToTopics(context.Background(), w.topics); err != nil {
				w.logEntry().WithError(err).Warn("Stream resubscribe failed.")
				backoff = w.nextBackoff(backoff)
				continue
			}
		}

		w.emit(exchange.Event{Type: exchange.EventTypeReconnect})
		w.logEntry().Info("Private stream reconnected.")
		return true
	}
}

func (w *Client) nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > w.reconnectMax {
		return w.reconnectMax
	}
	return next
}
