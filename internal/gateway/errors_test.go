package gateway

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/thesis-scout/internal/resilience"
)

func TestToolError_IsMatchesKind(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewToolError(KindRateLimited, "web_search", errors.New("slow down")))

	assert.ErrorIs(t, err, ErrRateLimited)
	assert.NotErrorIs(t, err, ErrTimeout)
	assert.Contains(t, err.Error(), "web_search: rate_limited: slow down")
}

func TestToolError_Retryable(t *testing.T) {
	assert.True(t, NewToolError(KindTimeout, "t", nil).Retryable())
	assert.True(t, NewToolError(KindRateLimited, "t", nil).Retryable())
	assert.False(t, NewToolError(KindInvalidResponse, "t", nil).Retryable())
	assert.False(t, NewToolError(KindUnavailable, "t", errors.New("403")).Retryable())
	assert.True(t, NewToolError(KindUnavailable, "t", resilience.NewTransientError(errors.New("502"), 502)).Retryable())
}

func TestFromHTTPStatus(t *testing.T) {
	base := errors.New("status")
	tests := []struct {
		status    int
		kind      Kind
		retryable bool
	}{
		{429, KindRateLimited, true},
		{408, KindTimeout, true},
		{504, KindTimeout, true},
		{503, KindUnavailable, true},
		{500, KindUnavailable, true},
		{404, KindUnavailable, false},
		{401, KindUnavailable, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			te := FromHTTPStatus("web_search", tt.status, 0, base)
			assert.Equal(t, tt.kind, te.Kind)
			assert.Equal(t, tt.retryable, te.Retryable())
			assert.ErrorIs(t, te, base)
		})
	}
}

func TestFromHTTPStatus_CarriesRetryAfter(t *testing.T) {
	te := FromHTTPStatus("web_search", 429, 3*time.Second, errors.New("slow down"))
	assert.ErrorIs(t, te, ErrRateLimited)
	assert.Equal(t, 3*time.Second, resilience.RetryAfter(te))

	te = FromHTTPStatus("fetch_page", 404, time.Second, errors.New("gone"))
	assert.Zero(t, resilience.RetryAfter(te))
}

func TestKindOf(t *testing.T) {
	_, ok := KindOf(errors.New("plain"))
	assert.False(t, ok)

	k, ok := KindOf(NewToolError(KindInvalidResponse, "t", nil))
	assert.True(t, ok)
	assert.Equal(t, KindInvalidResponse, k)
}
