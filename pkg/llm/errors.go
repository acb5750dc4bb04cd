package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorKind classifies a completion failure.
type ErrorKind string

const (
	KindAuth        ErrorKind = "auth"
	KindRateLimited ErrorKind = "rate_limited"
	KindTimeout     ErrorKind = "timeout"
	KindOther       ErrorKind = "other"
)

// ErrMissingCredential is wrapped by KindAuth errors raised before any request
// is sent.
var ErrMissingCredential = errors.New("missing API credential")

// Error is a classified completion failure.
type Error struct {
	Kind       ErrorKind
	Provider   string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s error (status %d): %v", e.Provider, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s error: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable is false only for auth and configuration failures.
func (e *Error) Retryable() bool { return e.Kind != KindAuth }

// MissingCredential is the error a hosted provider returns when it has no key.
func MissingCredential(provider string) *Error {
	return &Error{Kind: KindAuth, Provider: provider, Err: ErrMissingCredential}
}

// StatusError classifies a non-2xx HTTP reply.
func StatusError(provider string, status int, body string) *Error {
	kind := KindOther
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = KindAuth
	case status == http.StatusTooManyRequests:
		kind = KindRateLimited
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		kind = KindTimeout
	}
	if len(body) > 512 {
		body = body[:512]
	}
	return &Error{Kind: kind, Provider: provider, StatusCode: status, Err: errors.New(body)}
}

// TransportError classifies a failure that happened before a status arrived.
func TransportError(provider string, err error) *Error {
	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}
	kind := KindOther
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = KindTimeout
	}
	return &Error{Kind: kind, Provider: provider, Err: err}
}

// KindOf returns the kind of a classified error, or KindOther.
func KindOf(err error) ErrorKind {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindOther
}
