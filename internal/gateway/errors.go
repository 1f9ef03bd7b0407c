package gateway

import (
	"errors"
	"fmt"
	"time"

	"github.com/sells-group/thesis-scout/internal/resilience"
)

// Kind classifies a tool failure.
type Kind string

const (
	KindUnavailable     Kind = "unavailable"
	KindTimeout         Kind = "timeout"
	KindInvalidResponse Kind = "invalid_response"
	KindRateLimited     Kind = "rate_limited"
)

// Sentinels matched by errors.Is against a *ToolError of the same kind.
var (
	ErrUnavailable     = errors.New("tool unavailable")
	ErrTimeout         = errors.New("tool timeout")
	ErrInvalidResponse = errors.New("tool invalid response")
	ErrRateLimited     = errors.New("tool rate limited")
)

// ToolError is the typed failure returned by Gateway.Call.
type ToolError struct {
	Kind Kind
	Tool string
	Err  error
}

// NewToolError builds a ToolError.
func NewToolError(kind Kind, tool string, err error) *ToolError {
	return &ToolError{Kind: kind, Tool: tool, Err: err}
}

func (e *ToolError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("gateway: %s: %s", e.Tool, e.Kind)
	}
	return fmt.Sprintf("gateway: %s: %s: %v", e.Tool, e.Kind, e.Err)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *ToolError) Is(target error) bool {
	return target == sentinel(e.Kind)
}

// Retryable reports whether another attempt may succeed.
func (e *ToolError) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindRateLimited:
		return true
	case KindUnavailable:
		return resilience.IsTransient(e.Err)
	default:
		return false
	}
}

func sentinel(k Kind) error {
	switch k {
	case KindUnavailable:
		return ErrUnavailable
	case KindTimeout:
		return ErrTimeout
	case KindInvalidResponse:
		return ErrInvalidResponse
	case KindRateLimited:
		return ErrRateLimited
	default:
		return nil
	}
}

// KindOf extracts the failure kind from err, if it is a ToolError.
func KindOf(err error) (Kind, bool) {
	var te *ToolError
	if errors.As(err, &te) {
		return te.Kind, true
	}
	return "", false
}

// FromHTTPStatus maps an unexpected HTTP status from a tool backend to a
// ToolError. retryAfter is the delay the backend asked for, or zero.
func FromHTTPStatus(tool string, status int, retryAfter time.Duration, err error) *ToolError {
	switch resilience.StatusClass(status) {
	case resilience.ClassThrottled:
		return NewToolError(KindRateLimited, tool, &resilience.TransientError{Err: err, StatusCode: status, RetryAfter: retryAfter})
	case resilience.ClassTimeout:
		return NewToolError(KindTimeout, tool, err)
	case resilience.ClassTransient:
		return NewToolError(KindUnavailable, tool, &resilience.TransientError{Err: err, StatusCode: status, RetryAfter: retryAfter})
	default:
		return NewToolError(KindUnavailable, tool, err)
	}
}
