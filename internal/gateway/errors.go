package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
)

type Kind string

const (
	KindAuth         Kind = "auth"
	KindRegistration Kind = "registration"
	KindSubmission   Kind = "submission"
	KindLookup       Kind = "lookup"
	KindTimeout      Kind = "timeout"
)

// Error is returned by every gateway call. Detail carries the upstream
// message when the gateway supplied one.
type Error struct {
	Kind       Kind
	Op         string
	StatusCode int
	Detail     string
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("gateway %s: %s failed", e.Op, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (http %d)", e.StatusCode)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the caller may safely try again later.
func (e *Error) Retryable() bool {
	return e.Kind == KindTimeout
}

func IsKind(err error, kind Kind) bool {
	var gerr *Error
	return errors.As(err, &gerr) && gerr.Kind == kind
}

func IsRetryable(err error) bool {
	var gerr *Error
	return errors.As(err, &gerr) && gerr.Retryable()
}

// transportError classifies a failed round trip: deadline and network
// timeouts become KindTimeout, everything else keeps the operation's kind.
func transportError(op string, kind Kind, err error) *Error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		kind = KindTimeout
	}
	return &Error{Kind: kind, Op: op, Err: err}
}
