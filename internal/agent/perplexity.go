package agent

import (
	"context"
	"errors"

	"github.com/sells-group/thesis-scout/internal/cost"
	"github.com/sells-group/thesis-scout/internal/gateway"
	"github.com/sells-group/thesis-scout/internal/resilience"
	"github.com/sells-group/thesis-scout/pkg/perplexity"
)

// PerplexityAdapter runs a search-grounded Perplexity completion. It has no
// client-side tools, so its first answer is final.
type PerplexityAdapter struct {
	id     string
	model  string
	client perplexity.Client
	policy resilience.Policy
}

// NewPerplexity creates an adapter for provider id. Transient HTTP failures
// are retried with policy.
func NewPerplexity(id, model string, client perplexity.Client, policy resilience.Policy) *PerplexityAdapter {
	return &PerplexityAdapter{id: id, model: model, client: client, policy: policy}
}

func (a *PerplexityAdapter) ID() string     { return a.id }
func (a *PerplexityAdapter) Vendor() string { return "perplexity" }
func (a *PerplexityAdapter) Model() string  { return a.model }

// ListTools returns nothing: Perplexity searches server-side.
func (a *PerplexityAdapter) ListTools([]gateway.ToolSpec) []gateway.ToolSpec {
	return nil
}

// NewSession prepares the single completion request.
func (a *PerplexityAdapter) NewSession(actx AgentContext, _ []gateway.ToolSpec) (Session, error) {
	req := perplexity.ChatCompletionRequest{
		Model: a.model,
		Messages: []perplexity.Message{
			{Role: "system", Content: SystemPrompt(AgentContext{Thesis: actx.Thesis, KPIs: actx.KPIs})},
			{Role: "user", Content: UserPrompt(actx)},
		},
	}
	if actx.MaxTokens > 0 {
		mt := actx.MaxTokens
		req.MaxTokens = &mt
	}
	return &perplexitySession{adapter: a, req: req}, nil
}

type perplexitySession struct {
	adapter *PerplexityAdapter
	req     perplexity.ChatCompletionRequest
}

func (s *perplexitySession) SubmitTurn(ctx context.Context, _ []ToolResult) (*Turn, error) {
	p := s.adapter.policy
	p.Retryable = func(err error) bool {
		var se *perplexity.StatusError
		if errors.As(err, &se) {
			return resilience.StatusClass(se.StatusCode).Retryable()
		}
		return resilience.IsTransient(err)
	}
	p.OnRetry = resilience.RetryLogger("perplexity")

	resp, _, err := resilience.Retry(ctx, p, func(ctx context.Context) (*perplexity.ChatCompletionResponse, error) {
		return s.adapter.client.ChatCompletion(ctx, s.req)
	})
	if err != nil {
		var se *perplexity.StatusError
		status := 0
		if errors.As(err, &se) {
			status = se.StatusCode
		}
		return nil, classifyStatus(s.adapter.id, status, err)
	}

	return &Turn{
		Text:  resp.Text(),
		Final: true,
		Usage: cost.Usage{
			Input:   int64(resp.Usage.PromptTokens),
			Output:  int64(resp.Usage.CompletionTokens),
			Queries: 1,
		},
	}, nil
}
