package notion

import (
	"context"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockClient struct {
	mock.Mock
}

func (m *MockClient) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	args := m.Called(ctx, dbID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.DatabaseQueryResponse), args.Error(1)
}

func (m *MockClient) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.Page), args.Error(1)
}

func (m *MockClient) UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	args := m.Called(ctx, pageID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.Page), args.Error(1)
}

func TestMockClientSatisfiesInterface(t *testing.T) {
	t.Parallel()
	var _ Client = (*MockClient)(nil)
}

func TestNewClient_DefaultRateLimit(t *testing.T) {
	c := NewClient("secret").(*notionClient)
	if assert.NotNil(t, c.limiter) {
		assert.InDelta(t, 3.0, float64(c.limiter.Limit()), 0.001)
	}
	assert.NotNil(t, c.inner)
}

func TestWithRateLimit(t *testing.T) {
	c := NewClient("secret", WithRateLimit(10)).(*notionClient)
	assert.InDelta(t, 10.0, float64(c.limiter.Limit()), 0.001)
	assert.Equal(t, 10, c.limiter.Burst())

	c = NewClient("secret", WithRateLimit(0)).(*notionClient)
	assert.Nil(t, c.limiter)
	assert.NoError(t, c.wait(context.Background()))
}

func TestWait_CancelledContext(t *testing.T) {
	c := NewClient("secret", WithRateLimit(0.001)).(*notionClient)
	// Drain the single burst token.
	assert.NoError(t, c.wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.wait(ctx)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "notion: rate limit")
}
