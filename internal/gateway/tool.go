package gateway

import (
	"context"
	"encoding/json"
)

// Param describes one tool parameter.
type Param struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // "string", "integer", "number", "boolean"
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// ToolSpec describes a tool to agent vendors.
type ToolSpec struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Params      []Param `json:"params"`
}

// Tool is an external capability callable by agents and the enricher.
type Tool interface {
	Spec() ToolSpec
	Invoke(ctx context.Context, args []any, kwargs map[string]any) (json.RawMessage, error)
}

// Destinationer is implemented by tools whose target host depends on the
// call arguments. The gateway checks the host against the allowlist.
type Destinationer interface {
	Destination(args []any, kwargs map[string]any) string
}

// Stubber is implemented by tools that provide their own offline placeholder.
type Stubber interface {
	Stub(args []any, kwargs map[string]any) json.RawMessage
}

// Request is one tool invocation.
type Request struct {
	Tool   string         `json:"tool"`
	Args   []any          `json:"args"`
	Kwargs map[string]any `json:"kwargs"`
}

// Arg returns the named kwarg, or the positional arg at pos, as a string.
func Arg(args []any, kwargs map[string]any, name string, pos int) string {
	if v, ok := kwargs[name]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	if pos >= 0 && pos < len(args) {
		if s, ok := args[pos].(string); ok {
			return s
		}
	}
	return ""
}
