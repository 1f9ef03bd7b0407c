package agent

import (
	"context"
	"encoding/json"

	"github.com/sells-group/thesis-scout/internal/cost"
	"github.com/sells-group/thesis-scout/internal/gateway"
	"github.com/sells-group/thesis-scout/pkg/gemini"
)

const geminiFinishMaxTokens = "MAX_TOKENS"

// GeminiAdapter runs Gemini with function calling.
type GeminiAdapter struct {
	id     string
	model  string
	client gemini.Client
}

// NewGemini creates an adapter for provider id.
func NewGemini(id, model string, client gemini.Client) *GeminiAdapter {
	return &GeminiAdapter{id: id, model: model, client: client}
}

func (a *GeminiAdapter) ID() string     { return a.id }
func (a *GeminiAdapter) Vendor() string { return "gemini" }
func (a *GeminiAdapter) Model() string  { return a.model }

// ListTools returns every available tool.
func (a *GeminiAdapter) ListTools(available []gateway.ToolSpec) []gateway.ToolSpec {
	return available
}

// NewSession starts a conversation seeded with the unit's prompts.
func (a *GeminiAdapter) NewSession(actx AgentContext, tools []gateway.ToolSpec) (Session, error) {
	fns := make([]gemini.Function, len(tools))
	for i, t := range tools {
		params := make([]gemini.Param, len(t.Params))
		for j, p := range t.Params {
			params[j] = gemini.Param{Name: p.Name, Type: p.Type, Description: p.Description, Required: p.Required}
		}
		fns[i] = gemini.Function{Name: t.Name, Description: t.Description, Params: params}
	}
	return &geminiSession{
		adapter:   a,
		system:    SystemPrompt(actx),
		functions: fns,
		maxTokens: int32(actx.MaxTokens),
		turns:     []gemini.Turn{{Role: gemini.RoleUser, Text: UserPrompt(actx)}},
	}, nil
}

type geminiSession struct {
	adapter   *GeminiAdapter
	system    string
	functions []gemini.Function
	maxTokens int32
	turns     []gemini.Turn
}

func (s *geminiSession) SubmitTurn(ctx context.Context, results []ToolResult) (*Turn, error) {
	switch {
	case len(results) > 0:
		frs := make([]gemini.FunctionResult, len(results))
		for i, r := range results {
			frs[i] = gemini.FunctionResult{ID: r.CallID, Name: r.Name, Response: responseMap(r.Content)}
		}
		s.turns = append(s.turns, gemini.Turn{Role: gemini.RoleUser, Results: frs})
	case s.turns[len(s.turns)-1].Role == gemini.RoleModel:
		s.turns = append(s.turns, gemini.Turn{Role: gemini.RoleUser, Text: "Continue."})
	}

	resp, err := s.adapter.client.Generate(ctx, gemini.Request{
		Model:           s.adapter.model,
		System:          s.system,
		Turns:           s.turns,
		Functions:       s.functions,
		MaxOutputTokens: s.maxTokens,
	})
	if err != nil {
		return nil, classifyStatus(s.adapter.id, gemini.StatusCode(err), err)
	}

	turn := &Turn{
		Text:  resp.Text,
		Usage: cost.Usage{Input: resp.Usage.InputTokens, Output: resp.Usage.OutputTokens},
	}
	if resp.Text == "" && len(resp.Calls) == 0 {
		turn.Final = true
		return turn, nil
	}
	s.turns = append(s.turns, gemini.Turn{Role: gemini.RoleModel, Text: resp.Text, Calls: resp.Calls})

	for _, c := range resp.Calls {
		turn.ToolCalls = append(turn.ToolCalls, ToolCall{ID: c.ID, Name: c.Name, Args: c.Args})
	}
	turn.Final = len(turn.ToolCalls) == 0 && resp.FinishReason != geminiFinishMaxTokens
	return turn, nil
}

// responseMap converts a tool result into the object form function
// responses require.
func responseMap(content json.RawMessage) map[string]any {
	var v any
	if err := json.Unmarshal(content, &v); err != nil {
		return map[string]any{"output": string(content)}
	}
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{"output": v}
}
