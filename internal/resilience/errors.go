package resilience

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// Class groups backend failures by how a caller should react to them.
type Class int

const (
	ClassPermanent Class = iota
	ClassTransient
	ClassThrottled
	ClassTimeout
)

// Retryable reports whether failures of this class warrant another attempt.
func (c Class) Retryable() bool {
	return c != ClassPermanent
}

// StatusClass classifies a non-success HTTP status from a tool or vendor API.
func StatusClass(code int) Class {
	switch code {
	case http.StatusTooManyRequests:
		return ClassThrottled
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return ClassTimeout
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return ClassTransient
	default:
		return ClassPermanent
	}
}

// TransientError marks a backend failure as safe to retry. RetryAfter is the
// minimum delay the server asked for, if it sent one.
type TransientError struct {
	Err        error
	StatusCode int
	RetryAfter time.Duration
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps err as retryable. statusCode is 0 for network failures.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// RetryAfter returns the server-requested delay carried anywhere in err's
// chain, or zero.
func RetryAfter(err error) time.Duration {
	var te *TransientError
	if errors.As(err, &te) {
		return te.RetryAfter
	}
	return 0
}

// ParseRetryAfter reads a Retry-After header in delta-seconds or HTTP-date
// form. Empty, malformed, and past values give zero.
func ParseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	at, err := http.ParseTime(v)
	if err != nil || !at.After(now) {
		return 0
	}
	return at.Sub(now)
}

// networkFailures are substrings of connection-level errors that HTTP
// clients tend to wrap beyond errors.Is reach.
var networkFailures = []string{
	"connection reset by peer",
	"broken pipe",
	"temporary failure in name resolution",
	"tls handshake timeout",
	"i/o timeout",
	"server closed idle connection",
	"unexpected eof",
}

// IsTransient reports whether err is marked transient or is a connection
// failure that a fresh attempt may not hit.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range networkFailures {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
