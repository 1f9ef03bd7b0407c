package agent

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/thesis-scout/internal/gateway"
	"github.com/sells-group/thesis-scout/internal/resilience"
	"github.com/sells-group/thesis-scout/pkg/anthropic"
	"github.com/sells-group/thesis-scout/pkg/gemini"
	"github.com/sells-group/thesis-scout/pkg/perplexity"
)

type mockAnthropic struct{ mock.Mock }

func (m *mockAnthropic) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

type mockGemini struct{ mock.Mock }

func (m *mockGemini) Generate(ctx context.Context, req gemini.Request) (*gemini.Response, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gemini.Response), args.Error(1)
}

type mockPerplexity struct{ mock.Mock }

func (m *mockPerplexity) ChatCompletion(ctx context.Context, req perplexity.ChatCompletionRequest) (*perplexity.ChatCompletionResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*perplexity.ChatCompletionResponse), args.Error(1)
}

var searchSpec = gateway.ToolSpec{
	Name:        "web_search",
	Description: "Search the web",
	Params:      []gateway.Param{{Name: "query", Type: "string", Required: true}},
}

func TestAnthropicSession_ToolLoop(t *testing.T) {
	client := &mockAnthropic{}
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(r anthropic.MessageRequest) bool {
		return len(r.Messages) == 1
	})).Return(&anthropic.MessageResponse{
		StopReason: "tool_use",
		Content: []anthropic.ContentBlock{
			{Type: anthropic.BlockText, Text: "Let me search."},
			{Type: anthropic.BlockToolUse, ID: "tu1", Name: "web_search", Input: json.RawMessage(`{"query":"soil"}`)},
		},
		Usage: anthropic.TokenUsage{InputTokens: 10, OutputTokens: 5, CacheReadInputTokens: 3},
	}, nil).Once()
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(r anthropic.MessageRequest) bool {
		if len(r.Messages) != 3 {
			return false
		}
		last := r.Messages[2]
		return last.Role == "user" && last.Content[0].Type == anthropic.BlockToolResult && last.Content[0].ToolUseID == "tu1"
	})).Return(&anthropic.MessageResponse{
		StopReason: "end_turn",
		Content:    []anthropic.ContentBlock{{Type: anthropic.BlockText, Text: `{"segments":[]}`}},
	}, nil).Once()

	a := NewAnthropic("claude", "claude-sonnet-4-5", client)
	assert.Equal(t, "anthropic", a.Vendor())
	tools := a.ListTools([]gateway.ToolSpec{searchSpec})
	sess, err := a.NewSession(testContext(10), tools)
	require.NoError(t, err)

	t1, err := sess.SubmitTurn(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, t1.Final)
	require.Len(t, t1.ToolCalls, 1)
	assert.Equal(t, "soil", t1.ToolCalls[0].Args["query"])
	assert.Equal(t, int64(3), t1.Usage.CacheRead)

	t2, err := sess.SubmitTurn(context.Background(), []ToolResult{{CallID: "tu1", Name: "web_search", Content: json.RawMessage(`{}`)}})
	require.NoError(t, err)
	assert.True(t, t2.Final)
	assert.Equal(t, `{"segments":[]}`, t2.Text)
	client.AssertExpectations(t)
}

func TestAnthropicSession_MalformedToolInput(t *testing.T) {
	client := &mockAnthropic{}
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(&anthropic.MessageResponse{
		StopReason: "tool_use",
		Content: []anthropic.ContentBlock{
			{Type: anthropic.BlockToolUse, ID: "tu1", Name: "web_search", Input: json.RawMessage(`{"query":`)},
			{Type: anthropic.BlockToolUse, ID: "tu2", Name: "web_search", Input: json.RawMessage(`{"query":"soil"}`)},
		},
	}, nil)

	sess, err := NewAnthropic("claude", "m", client).NewSession(testContext(10), nil)
	require.NoError(t, err)

	turn, err := sess.SubmitTurn(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, turn.ToolCalls, 2)
	assert.Error(t, turn.ToolCalls[0].ArgsErr)
	assert.Contains(t, turn.ToolCalls[0].ArgsErr.Error(), "web_search")
	assert.NoError(t, turn.ToolCalls[1].ArgsErr)
	assert.Equal(t, "soil", turn.ToolCalls[1].Args["query"])
}

func TestAnthropicSession_MaxTokensIsNotFinal(t *testing.T) {
	client := &mockAnthropic{}
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(&anthropic.MessageResponse{
		StopReason: "max_tokens",
		Content:    []anthropic.ContentBlock{{Type: anthropic.BlockText, Text: `{"segments":[{"name":"Soil`}},
	}, nil)

	sess, err := NewAnthropic("claude", "m", client).NewSession(testContext(10), nil)
	require.NoError(t, err)

	turn, err := sess.SubmitTurn(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, turn.Final)

	_, err = sess.SubmitTurn(context.Background(), nil)
	require.NoError(t, err)
	req := client.Calls[1].Arguments.Get(1).(anthropic.MessageRequest)
	require.Len(t, req.Messages, 3)
	assert.Equal(t, "Continue.", req.Messages[2].Content[0].Text)
}

func TestAnthropicSession_QuotaError(t *testing.T) {
	client := &mockAnthropic{}
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	sess, err := NewAnthropic("claude", "m", client).NewSession(testContext(10), nil)
	require.NoError(t, err)
	_, err = sess.SubmitTurn(context.Background(), nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAuthFailure)
}

func TestGeminiSession_FunctionLoop(t *testing.T) {
	client := &mockGemini{}
	client.On("Generate", mock.Anything, mock.MatchedBy(func(r gemini.Request) bool {
		return len(r.Turns) == 1
	})).Return(&gemini.Response{
		Calls: []gemini.FunctionCall{{Name: "web_search", Args: map[string]any{"query": "biochar"}}},
		Usage: gemini.TokenUsage{InputTokens: 20, OutputTokens: 4},
	}, nil).Once()
	client.On("Generate", mock.Anything, mock.MatchedBy(func(r gemini.Request) bool {
		return len(r.Turns) == 3 && len(r.Turns[2].Results) == 1 && r.Turns[2].Results[0].Response["output"] == "plain"
	})).Return(&gemini.Response{Text: `[]`, FinishReason: "STOP"}, nil).Once()

	a := NewGemini("gemini", "gemini-2.5-flash", client)
	sess, err := a.NewSession(testContext(10), a.ListTools([]gateway.ToolSpec{searchSpec}))
	require.NoError(t, err)

	t1, err := sess.SubmitTurn(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, t1.Final)
	require.Len(t, t1.ToolCalls, 1)
	assert.Equal(t, int64(20), t1.Usage.Input)

	t2, err := sess.SubmitTurn(context.Background(), []ToolResult{{Name: "web_search", Content: json.RawMessage(`"plain"`)}})
	require.NoError(t, err)
	assert.True(t, t2.Final)
	client.AssertExpectations(t)

	req := client.Calls[0].Arguments.Get(1).(gemini.Request)
	require.Len(t, req.Functions, 1)
	assert.True(t, req.Functions[0].Params[0].Required)
}

func TestGeminiSession_AuthError(t *testing.T) {
	client := &mockGemini{}
	client.On("Generate", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	sess, err := NewGemini("gemini", "m", client).NewSession(testContext(10), nil)
	require.NoError(t, err)
	_, err = sess.SubmitTurn(context.Background(), nil)
	require.Error(t, err)
}

func TestResponseMap(t *testing.T) {
	assert.Equal(t, map[string]any{"a": 1.0}, responseMap(json.RawMessage(`{"a":1}`)))
	assert.Equal(t, map[string]any{"output": []any{"x"}}, responseMap(json.RawMessage(`["x"]`)))
	assert.Equal(t, map[string]any{"output": "not json"}, responseMap(json.RawMessage(`not json`)))
}

func TestPerplexitySession_SingleFinalTurn(t *testing.T) {
	client := &mockPerplexity{}
	client.On("ChatCompletion", mock.Anything, mock.Anything).Return(&perplexity.ChatCompletionResponse{
		Choices: []perplexity.Choice{{Message: perplexity.Message{Role: "assistant", Content: `{"segments":[]}`}}},
		Usage:   perplexity.Usage{PromptTokens: 50, CompletionTokens: 10},
	}, nil)

	a := NewPerplexity("pplx", "sonar-pro", client, resilience.NewPolicy(1, 1, 1))
	assert.Nil(t, a.ListTools([]gateway.ToolSpec{searchSpec}))

	sess, err := a.NewSession(testContext(10), nil)
	require.NoError(t, err)
	turn, err := sess.SubmitTurn(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, turn.Final)
	assert.Equal(t, 1, turn.Usage.Queries)
	assert.Equal(t, int64(50), turn.Usage.Input)

	req := client.Calls[0].Arguments.Get(1).(perplexity.ChatCompletionRequest)
	assert.Equal(t, "sonar-pro", req.Model)
	require.Len(t, req.Messages, 2)
	assert.Contains(t, req.Messages[1].Content, "Soil Health")
}

func TestPerplexitySession_RetriesThenQuota(t *testing.T) {
	client := &mockPerplexity{}
	client.On("ChatCompletion", mock.Anything, mock.Anything).
		Return(nil, &perplexity.StatusError{StatusCode: 429, Body: "slow down"})

	a := NewPerplexity("pplx", "sonar", client, resilience.NewPolicy(2, 1, 1))
	sess, err := a.NewSession(testContext(10), nil)
	require.NoError(t, err)

	_, err = sess.SubmitTurn(context.Background(), nil)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	client.AssertNumberOfCalls(t, "ChatCompletion", 2)
}

func TestPerplexitySession_AuthNotRetried(t *testing.T) {
	client := &mockPerplexity{}
	client.On("ChatCompletion", mock.Anything, mock.Anything).
		Return(nil, &perplexity.StatusError{StatusCode: 401, Body: "bad key"})

	a := NewPerplexity("pplx", "sonar", client, resilience.NewPolicy(3, 1, 1))
	sess, err := a.NewSession(testContext(10), nil)
	require.NoError(t, err)

	_, err = sess.SubmitTurn(context.Background(), nil)
	assert.ErrorIs(t, err, ErrAuthFailure)
	client.AssertNumberOfCalls(t, "ChatCompletion", 1)
}
