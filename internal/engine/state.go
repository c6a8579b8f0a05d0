package engine

import (
	"time"

	"sniper/internal/models"
)

// accountState is what the desk remembers about one account's update stream.
// It is rebuilt from scratch on every start.
type accountState struct {
	ProcessedExecIDs map[string]bool
	SeenOrderStates  map[string]bool
	LastFillAt       time.Time
	Reconnects       int
}

// stateFor returns the stream state of accountID, creating it on first use.
// Callers hold d.mu.
func (d *Desk) stateFor(accountID string) *accountState {
	st, ok := d.states[accountID]
	if !ok {
		st = &accountState{ProcessedExecIDs: map[string]bool{}, SeenOrderStates: map[string]bool{}}
		d.states[accountID] = st
	}
	return st
}

// orderStateKey identifies one status of one order. Updates sharing a push
// carry the same timestamp, so ordering by time cannot tell them apart.
func orderStateKey(order models.OrderUpdate) string {
	id := order.OrderID
	if id == "" {
		id = order.LinkID
	}
	return id + "/" + string(order.Status)
}
