package ws

import (
	"context"
)

// SubscribeToTopics subscribes to private topics; they are replayed after a
// reconnect.
func (w *Client) SubscribeToTopics(ctx context.Context, topics []string) error {
	w.topics = topics

	msg := SubscribeMessage{
		Op:   "subscribe",
		Args: topics,
	}

	return w.writeJSON(msg)
}
