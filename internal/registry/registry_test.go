package registry

import (
	"fmt"
	"testing"

	"sniper/internal/exchange/paper"
	"sniper/internal/logger"
)

func newRegistry(t *testing.T, n int) *Registry {
	t.Helper()
	r := New(logger.Nop())
	for i := 1; i <= n; i++ {
		if _, err := r.Add(paper.New(fmt.Sprintf("acc-%d", i), 1000, 100, logger.Nop())); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	return r
}

func TestRegistry_RosterOrderAndMaster(t *testing.T) {
	r := newRegistry(t, 4)

	master, ok := r.Master()
	if !ok || master.ID != "acc-1" {
		t.Fatalf("first account should be master, got %+v", master)
	}
	subs := r.Subscribers()
	if len(subs) != 3 || subs[0].ID != "acc-2" || subs[2].ID != "acc-4" {
		t.Fatalf("unexpected subscribers %v", ids(subs))
	}
	for _, acc := range r.All() {
		if acc.Ratchet == nil || acc.Ratchet.AccountID() != acc.ID {
			t.Fatalf("account %s has no ratchet of its own", acc.ID)
		}
	}

	if err := r.SetMaster("acc-3"); err != nil {
		t.Fatal(err)
	}
	if got := ids(r.Subscribers()); fmt.Sprint(got) != "[acc-1 acc-2 acc-4]" {
		t.Fatalf("master must never be a subscriber, got %v", got)
	}

	if err := r.SetSubscribers([]string{"acc-4", "acc-3"}); err != nil {
		t.Fatal(err)
	}
	if got := ids(r.Subscribers()); fmt.Sprint(got) != "[acc-4]" {
		t.Fatalf("explicit subscribers minus master expected, got %v", got)
	}
}

func TestRegistry_Rejects(t *testing.T) {
	r := newRegistry(t, MaxAccounts)
	if _, err := r.Add(paper.New("acc-11", 0, 0, logger.Nop())); err == nil {
		t.Fatal("eleventh account should be rejected")
	}
	if _, err := New(logger.Nop()).Add(paper.New("", 0, 0, logger.Nop())); err == nil {
		t.Fatal("account without id should be rejected")
	}

	r = newRegistry(t, 1)
	if _, err := r.Add(paper.New("acc-1", 0, 0, logger.Nop())); err == nil {
		t.Fatal("duplicate id should be rejected")
	}
	if err := r.SetMaster("nope"); err == nil {
		t.Fatal("unknown master should be rejected")
	}
	if err := r.SetSubscribers([]string{"nope"}); err == nil {
		t.Fatal("unknown subscriber should be rejected")
	}
}

func ids(accs []*Account) []string {
	out := make([]string, 0, len(accs))
	for _, a := range accs {
		out = append(out, a.ID)
	}
	return out
}
