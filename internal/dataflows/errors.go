package dataflows

import (
	"errors"
	"fmt"
)

// Kind classifies why an upstream call produced no usable data.
type Kind string

const (
	KindNotConfigured Kind = "not_configured"
	KindUnavailable   Kind = "unavailable"
	KindMalformed     Kind = "malformed"
	KindNoData        Kind = "no_data"
)

// Error is the failure type returned by every provider in this package.
type Error struct {
	Provider string
	Op       string
	Kind     Kind
	Err      error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %s", e.Provider, e.Op, e.Kind)
	}
	return fmt.Sprintf("%s %s: %s: %v", e.Provider, e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf reports the Kind carried by err. Errors that did not come from a
// provider are treated as unavailable.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnavailable
}

func notConfigured(provider, op, what string) error {
	return &Error{Provider: provider, Op: op, Kind: KindNotConfigured, Err: fmt.Errorf("%s not configured", what)}
}

func unavailable(provider, op string, err error) error {
	return &Error{Provider: provider, Op: op, Kind: KindUnavailable, Err: err}
}

func malformed(provider, op string, err error) error {
	return &Error{Provider: provider, Op: op, Kind: KindMalformed, Err: err}
}

func noData(provider, op, format string, args ...any) error {
	return &Error{Provider: provider, Op: op, Kind: KindNoData, Err: fmt.Errorf(format, args...)}
}

func statusError(provider, op string, status int) error {
	return unavailable(provider, op, fmt.Errorf("unexpected status %d", status))
}
