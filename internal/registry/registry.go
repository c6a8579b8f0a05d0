// Package registry holds the trading accounts of one session: each account's
// gateway paired with the ratchet that owns its stop and ladder.
package registry

import (
	"fmt"
	"sync"

	"sniper/internal/exchange"
	"sniper/internal/logger"
	"sniper/internal/ratchet"
)

const MaxAccounts = 10

type Account struct {
	ID      string
	Gateway exchange.Gateway
	Ratchet *ratchet.Ratchet
}

type Registry struct {
	log *logger.Logger

	mu          sync.RWMutex
	accounts    []*Account
	byID        map[string]*Account
	master      string
	subscribers []string
}

func New(log *logger.Logger) *Registry {
	return &Registry{
		log:  log,
		byID: map[string]*Account{},
	}
}

// Add registers gw under its account id and builds its ratchet. The first
// account added becomes the master until SetMaster says otherwise.
func (r *Registry) Add(gw exchange.Gateway) (*Account, error) {
	id := gw.AccountID()
	if id == "" {
		return nil, fmt.Errorf("account without id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; ok {
		return nil, fmt.Errorf("account %s registered twice", id)
	}
	if len(r.accounts) >= MaxAccounts {
		return nil, fmt.Errorf("at most %d accounts supported", MaxAccounts)
	}

	acc := &Account{
		ID:      id,
		Gateway: gw,
		Ratchet: ratchet.New(id, gw, r.log),
	}
	r.accounts = append(r.accounts, acc)
	r.byID[id] = acc
	if r.master == "" {
		r.master = id
	}
	return acc, nil
}

func (r *Registry) Get(id string) (*Account, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acc, ok := r.byID[id]
	return acc, ok
}

// All returns the accounts in roster order.
func (r *Registry) All() []*Account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Account(nil), r.accounts...)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.accounts)
}

func (r *Registry) SetMaster(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return fmt.Errorf("unknown master account %s", id)
	}
	r.master = id
	return nil
}

func (r *Registry) Master() (*Account, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acc, ok := r.byID[r.master]
	return acc, ok
}

// SetSubscribers fixes the accounts that copy the master. An empty list means
// every account other than the master.
func (r *Registry) SetSubscribers(ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if _, ok := r.byID[id]; !ok {
			return fmt.Errorf("unknown subscriber account %s", id)
		}
	}
	r.subscribers = append([]string(nil), ids...)
	return nil
}

// Subscribers returns the copying accounts in roster order, never the master.
func (r *Registry) Subscribers() []*Account {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := map[string]bool{}
	for _, id := range r.subscribers {
		wanted[id] = true
	}

	out := make([]*Account, 0, len(r.accounts))
	for _, acc := range r.accounts {
		if acc.ID == r.master {
			continue
		}
		if len(wanted) > 0 && !wanted[acc.ID] {
			continue
		}
		out = append(out, acc)
	}
	return out
}
