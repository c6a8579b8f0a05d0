package errs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_IsMatchesKindSentinel(t *testing.T) {
	err := New(KindLeverage, "sub-1", "leverage", errors.New("110012 insufficient balance"))
	if !errors.Is(err, ErrLeverage) {
		t.Fatal("leverage error should match ErrLeverage")
	}
	if errors.Is(err, ErrSubmission) {
		t.Fatal("leverage error must not match ErrSubmission")
	}
	if AccountOf(fmt.Errorf("wrapped: %w", err)) != "sub-1" {
		t.Fatal("account id lost through wrapping")
	}
	if kind, ok := KindOf(err); !ok || kind != KindLeverage {
		t.Fatalf("KindOf = %s, %v", kind, ok)
	}
	if msg := err.Error(); !strings.Contains(msg, "sub-1") || !strings.Contains(msg, "110012") {
		t.Fatalf("message lacks account or cause: %s", msg)
	}
}

func TestNew_FlagsTimeouts(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	<-ctx.Done()

	err := New(KindSubmission, "sub-2", "submit", ctx.Err())
	if !err.Timeout || !IsTimeout(err) {
		t.Fatal("deadline should be flagged as a timeout")
	}
	if !strings.Contains(err.Error(), "(timeout)") {
		t.Fatalf("timeout not rendered: %s", err)
	}
	if IsTimeout(New(KindSubmission, "sub-2", "submit", errors.New("rejected"))) {
		t.Fatal("plain failure is not a timeout")
	}
}

func TestScope(t *testing.T) {
	if Scope(KindPrice, "a", "price", nil) != nil {
		t.Fatal("nil stays nil")
	}

	plain := Scope(KindPrice, "a", "price", errors.New("no ticker"))
	if !errors.Is(plain, ErrPrice) || AccountOf(plain) != "a" {
		t.Fatalf("plain error should be scoped to a as a price error: %v", plain)
	}

	owned := New(KindCancel, "b", "cancel", errors.New("gone"))
	if got := Scope(KindSubmission, "a", "submit", owned); got != error(owned) {
		t.Fatalf("an error naming an account is returned unchanged, got %v", got)
	}

	anonymous := Newf(KindEquity, "", "equity", "coin missing")
	scoped := Scope(KindSubmission, "c", "equity", anonymous)
	if !errors.Is(scoped, ErrEquity) || AccountOf(scoped) != "c" {
		t.Fatalf("kind should be kept and the account attached: %v", scoped)
	}

	invalid := Scope(KindSubmission, "d", "build", Invalid("price", 0, "required"))
	if !errors.Is(invalid, ErrInvalidIntent) {
		t.Fatalf("validation failures stay invalid intents: %v", invalid)
	}
}

func TestValidationError(t *testing.T) {
	err := Invalid("take_profits", []float64{2, 1}, "must be strictly ascending")
	if !errors.Is(err, ErrInvalidIntent) {
		t.Fatal("validation error should unwrap to ErrInvalidIntent")
	}
	if kind, ok := KindOf(err); !ok || kind != KindInvalidIntent {
		t.Fatalf("KindOf = %s, %v", kind, ok)
	}
	if !strings.Contains(err.Error(), "take_profits") {
		t.Fatalf("field missing from message: %s", err)
	}
}
