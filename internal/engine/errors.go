package engine

import (
	"errors"
	"fmt"
)

// Protocol violations. An order failing with one of these changed nothing.
var (
	ErrWrongPhase     = errors.New("wrong phase")
	ErrNotYourTurn    = errors.New("not your turn")
	ErrUnknownUnit    = errors.New("unknown unit")
	ErrInvalidUnit    = errors.New("unit cannot act")
	ErrInvalidTarget  = errors.New("invalid target")
	ErrIllegalMove    = errors.New("illegal move")
	ErrMalformedOrder = errors.New("malformed order")
)

// RejectionError explains why an order was dropped.
type RejectionError struct {
	Reason string
	Err    error
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err, e.Reason)
}

func (e *RejectionError) Unwrap() error {
	return e.Err
}

func reject(err error, format string, args ...any) *RejectionError {
	return &RejectionError{Reason: fmt.Sprintf(format, args...), Err: err}
}
