package agent

import (
	"context"
	"encoding/json"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/rotisserie/eris"

	"github.com/sells-group/thesis-scout/internal/cost"
	"github.com/sells-group/thesis-scout/internal/gateway"
	"github.com/sells-group/thesis-scout/pkg/anthropic"
)

// AnthropicAdapter runs Claude with client-side tool use.
type AnthropicAdapter struct {
	id     string
	model  string
	client anthropic.Client
}

// NewAnthropic creates an adapter for provider id.
func NewAnthropic(id, model string, client anthropic.Client) *AnthropicAdapter {
	return &AnthropicAdapter{id: id, model: model, client: client}
}

func (a *AnthropicAdapter) ID() string     { return a.id }
func (a *AnthropicAdapter) Vendor() string { return "anthropic" }
func (a *AnthropicAdapter) Model() string  { return a.model }

// ListTools returns every available tool.
func (a *AnthropicAdapter) ListTools(available []gateway.ToolSpec) []gateway.ToolSpec {
	return available
}

// NewSession starts a conversation seeded with the unit's prompts.
func (a *AnthropicAdapter) NewSession(actx AgentContext, tools []gateway.ToolSpec) (Session, error) {
	defs := make([]anthropic.Tool, len(tools))
	for i, t := range tools {
		props, required := paramSchema(t)
		defs[i] = anthropic.Tool{Name: t.Name, Description: t.Description, Properties: props, Required: required}
	}
	maxTokens := int64(actx.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &anthropicSession{
		adapter:   a,
		system:    []anthropic.SystemBlock{{Text: SystemPrompt(actx), Cached: true}},
		tools:     defs,
		maxTokens: maxTokens,
		messages:  []anthropic.Message{anthropic.TextMessage("user", UserPrompt(actx))},
	}, nil
}

type anthropicSession struct {
	adapter   *AnthropicAdapter
	system    []anthropic.SystemBlock
	tools     []anthropic.Tool
	maxTokens int64
	messages  []anthropic.Message
}

func (s *anthropicSession) SubmitTurn(ctx context.Context, results []ToolResult) (*Turn, error) {
	switch {
	case len(results) > 0:
		blocks := make([]anthropic.ContentBlock, len(results))
		for i, r := range results {
			blocks[i] = anthropic.ContentBlock{
				Type:      anthropic.BlockToolResult,
				ToolUseID: r.CallID,
				Text:      string(r.Content),
				IsError:   r.IsError,
			}
		}
		s.messages = append(s.messages, anthropic.Message{Role: "user", Content: blocks})
	case s.messages[len(s.messages)-1].Role == "assistant":
		s.messages = append(s.messages, anthropic.TextMessage("user", "Continue."))
	}

	resp, err := s.adapter.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     s.adapter.model,
		MaxTokens: s.maxTokens,
		System:    s.system,
		Messages:  s.messages,
		Tools:     s.tools,
	})
	if err != nil {
		return nil, classifyStatus(s.adapter.id, anthropic.StatusCode(err), err)
	}

	turn := &Turn{
		Text: resp.Text(),
		Usage: cost.Usage{
			Input:      resp.Usage.InputTokens,
			Output:     resp.Usage.OutputTokens,
			CacheWrite: resp.Usage.CacheCreationInputTokens,
			CacheRead:  resp.Usage.CacheReadInputTokens,
		},
	}
	if len(resp.Content) == 0 {
		turn.Final = true
		return turn, nil
	}
	s.messages = append(s.messages, anthropic.Message{Role: "assistant", Content: resp.Content})

	for _, u := range resp.ToolUses() {
		call := ToolCall{ID: u.ID, Name: u.Name}
		if len(u.Input) > 0 {
			if err := json.Unmarshal(u.Input, &call.Args); err != nil {
				call.ArgsErr = eris.Wrapf(err, "agent: decode %s input", u.Name)
			}
		}
		turn.ToolCalls = append(turn.ToolCalls, call)
	}
	turn.Final = len(turn.ToolCalls) == 0 && resp.StopReason != string(sdk.StopReasonMaxTokens)
	return turn, nil
}
