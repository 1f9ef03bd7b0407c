// Package agent drives bounded, tool-using vendor conversations.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rotisserie/eris"

	"github.com/sells-group/thesis-scout/internal/cost"
	"github.com/sells-group/thesis-scout/internal/gateway"
	"github.com/sells-group/thesis-scout/internal/model"
)

// Provider error kinds. Either aborts only the affected provider's run.
var (
	ErrAuthFailure   = eris.New("authentication failure")
	ErrQuotaExceeded = eris.New("quota exceeded")
)

// ProviderError is a vendor failure classified into a provider error kind.
type ProviderError struct {
	Kind     error
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("agent: %s: %v: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Is matches the error kind.
func (e *ProviderError) Is(target error) bool { return target == e.Kind }

// classifyStatus maps a vendor HTTP status to a provider error kind.
// Statuses without a kind are wrapped as-is.
func classifyStatus(provider string, status int, err error) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &ProviderError{Kind: ErrAuthFailure, Provider: provider, Err: err}
	case http.StatusPaymentRequired, http.StatusTooManyRequests:
		return &ProviderError{Kind: ErrQuotaExceeded, Provider: provider, Err: err}
	default:
		return eris.Wrapf(err, "agent: %s turn", provider)
	}
}

// AgentContext is the immutable input of one unit of work.
type AgentContext struct {
	RunID     string
	Thesis    string
	Segments  []model.Segment
	KPIs      []string
	MaxTurns  int
	MaxTokens int
}

// SegmentNames returns the names of the unit's segments.
func (a AgentContext) SegmentNames() []string {
	names := make([]string, len(a.Segments))
	for i, s := range a.Segments {
		names[i] = s.Name
	}
	return names
}

// ToolCall is one tool invocation requested by the agent.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any

	// ArgsErr is set when the vendor sent arguments that could not be
	// decoded. The call is answered with an error result and not dispatched.
	ArgsErr error
}

// ToolResult answers a ToolCall.
type ToolResult struct {
	CallID  string
	Name    string
	Content json.RawMessage
	IsError bool
}

// Turn is one agent response.
type Turn struct {
	Text      string
	ToolCalls []ToolCall
	Final     bool
	Usage     cost.Usage
}

// Session is one stateful vendor conversation.
type Session interface {
	// SubmitTurn sends the previous turn's tool results (nil on the first
	// turn) and returns the agent's next turn.
	SubmitTurn(ctx context.Context, results []ToolResult) (*Turn, error)
}

// Adapter is implemented once per vendor.
type Adapter interface {
	ID() string
	Vendor() string
	Model() string
	// ListTools filters the available tools down to those this vendor can use.
	ListTools(available []gateway.ToolSpec) []gateway.ToolSpec
	NewSession(actx AgentContext, tools []gateway.ToolSpec) (Session, error)
}

// paramSchema renders a tool's params as JSON-schema properties.
func paramSchema(spec gateway.ToolSpec) (map[string]any, []string) {
	props := make(map[string]any, len(spec.Params))
	var required []string
	for _, p := range spec.Params {
		props[p.Name] = map[string]any{"type": p.Type, "description": p.Description}
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return props, required
}
