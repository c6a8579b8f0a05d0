// Package errs holds the typed failures reported by the order core and the
// account gateways. Every account-level failure names the account it belongs to.
package errs

import (
	"context"
	"errors"
	"fmt"
	"net"
)

type Kind string

const (
	KindInvalidIntent Kind = "invalid_intent"
	KindConnection    Kind = "connection"
	KindPrice         Kind = "price"
	KindEquity        Kind = "equity"
	KindSubmission    Kind = "submission"
	KindLeverage      Kind = "leverage"
	KindCancel        Kind = "cancel"
)

var (
	ErrInvalidIntent = errors.New("invalid intent")
	ErrConnection    = errors.New("connection failed")
	ErrPrice         = errors.New("price unavailable")
	ErrEquity        = errors.New("equity unavailable")
	ErrSubmission    = errors.New("order submission failed")
	ErrLeverage      = errors.New("leverage update failed")
	ErrCancel        = errors.New("cancel failed")
)

var sentinels = map[Kind]error{
	KindInvalidIntent: ErrInvalidIntent,
	KindConnection:    ErrConnection,
	KindPrice:         ErrPrice,
	KindEquity:        ErrEquity,
	KindSubmission:    ErrSubmission,
	KindLeverage:      ErrLeverage,
	KindCancel:        ErrCancel,
}

// Error is an account-scoped failure.
type Error struct {
	Kind      Kind
	AccountID string
	Op        string
	Cause     string
	Timeout   bool
	Err       error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("account %s: %s", e.AccountID, e.Kind)
	if e.Op != "" {
		msg += " [" + e.Op + "]"
	}
	if e.Timeout {
		msg += " (timeout)"
	}
	if e.Cause != "" {
		msg += ": " + e.Cause
	}
	if e.Err != nil && (e.Cause == "" || e.Cause != e.Err.Error()) {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

// New builds an account failure, flagging it as a timeout when err is one.
func New(kind Kind, accountID, op string, err error) *Error {
	e := &Error{
		Kind:      kind,
		AccountID: accountID,
		Op:        op,
		Err:       err,
		Timeout:   isTimeoutCause(err),
	}
	if err != nil {
		e.Cause = err.Error()
	}
	return e
}

// Scope attaches accountID to err unless err already names an account.
func Scope(kind Kind, accountID, op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) && e.AccountID != "" {
		return err
	}
	if k, ok := KindOf(err); ok {
		kind = k
	}
	return New(kind, accountID, op, err)
}

func Newf(kind Kind, accountID, op, format string, args ...any) *Error {
	return &Error{
		Kind:      kind,
		AccountID: accountID,
		Op:        op,
		Cause:     fmt.Sprintf(format, args...),
	}
}

func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	var v *ValidationError
	if errors.As(err, &v) {
		return KindInvalidIntent, true
	}
	return "", false
}

func AccountOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.AccountID
	}
	return ""
}

func IsTimeout(err error) bool {
	var e *Error
	if errors.As(err, &e) && e.Timeout {
		return true
	}
	return isTimeoutCause(err)
}

func isTimeoutCause(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// ValidationError rejects an intent before any network call is made.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid intent: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidIntent
}

func Invalid(field string, value any, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}
