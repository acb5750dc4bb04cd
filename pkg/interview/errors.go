package interview

import (
	"errors"
	"fmt"
	"math"
	"time"

	"ai-lifeplan-be/pkg/llm"
)

// ValidationError is a bad request: unknown phase, empty message, oversized
// history. Never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

// RateLimitedError carries when the caller may try again.
type RateLimitedError struct {
	Limit   int
	ResetIn time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit of %d requests exceeded, retry in %ds", e.Limit, e.ResetInSeconds())
}

// ResetInSeconds rounds up so a caller never retries a moment too early.
func (e *RateLimitedError) ResetInSeconds() int {
	return int(math.Ceil(e.ResetIn.Seconds()))
}

// UpstreamKind classifies a completion service failure.
type UpstreamKind string

const (
	UpstreamAuth      UpstreamKind = "auth"
	UpstreamTransient UpstreamKind = "transient"
	UpstreamOther     UpstreamKind = "other"
)

// UpstreamError is a failed completion call. Auth failures are
// configuration-level and must not be retried automatically.
type UpstreamError struct {
	Kind UpstreamKind
	Err  error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("completion service %s failure: %v", e.Kind, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Retryable() bool {
	return e.Kind != UpstreamAuth
}

// FromCompletion wraps a completion failure with its retry class.
func FromCompletion(err error) *UpstreamError {
	switch llm.KindOf(err) {
	case llm.KindAuth:
		return &UpstreamError{Kind: UpstreamAuth, Err: err}
	case llm.KindRateLimited, llm.KindTimeout:
		return &UpstreamError{Kind: UpstreamTransient, Err: err}
	default:
		return &UpstreamError{Kind: UpstreamOther, Err: err}
	}
}

// ExtractionFailedError means no usable structure came back for this attempt.
// Re-invoking with the same transcript is safe.
type ExtractionFailedError struct {
	Reason string
	Err    error
}

func (e *ExtractionFailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction failed: %s: %v", e.Reason, e.Err)
	}
	return "extraction failed: " + e.Reason
}

func (e *ExtractionFailedError) Unwrap() error { return e.Err }

// IsRetryable reports whether the caller may retry err with backoff.
func IsRetryable(err error) bool {
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return true
	}
	var up *UpstreamError
	if errors.As(err, &up) {
		return up.Retryable()
	}
	return false
}
