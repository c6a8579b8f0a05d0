package engine

import (
	"context"
	"math"
	"strings"
	"time"
)

const maxBackoff = 30 * time.Second

// withRetryVoid retries fn with exponential backoff, waiting longer when the
// exchange reports a rate limit.
func (d *Desk) withRetryVoid(ctx context.Context, accountID string, fn func() error) error {
	var lastErr error
	backoff := d.retryBackoff
	attempts := max(d.retryAttempts, 1)
	for i := 0; i < attempts; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if i == attempts-1 {
			break
		}

		wait := time.Duration(math.Min(float64(backoff), float64(maxBackoff)))
		if isRateLimitError(err) {
			wait = time.Duration(math.Min(float64(backoff*4), float64(maxBackoff)))
		}
		d.accountEntry(accountID).WithError(lastErr).WithField("wait", wait.String()).Warn("Request failed, retrying.")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		backoff *= 2
	}
	return lastErr
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Too many visits") || strings.Contains(msg, "429") || strings.Contains(msg, "10006")
}
