package model

import "time"

// RunStatus is the terminal status of one provider run.
type RunStatus string

const (
	RunStatusCompleted       RunStatus = "completed"
	RunStatusMaxTurnsReached RunStatus = "max_turns_reached"
	RunStatusError           RunStatus = "error"
)

// Telemetry captures per-provider run counters.
type Telemetry struct {
	Turns        int     `json:"turns"`
	ToolCalls    int     `json:"tool_calls"`
	ToolErrors   int     `json:"tool_errors"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
	DurationMs   int64   `json:"duration_ms"`
}

// ProviderRunResult is the outcome of one provider working one unit.
type ProviderRunResult struct {
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	Segments  []string  `json:"segments"`
	Status    RunStatus `json:"status"`
	RawOutput string    `json:"-"`
	Error     string    `json:"error,omitempty"`
	Telemetry Telemetry `json:"telemetry"`
	ParseTier string    `json:"parse_tier,omitempty"`
	Findings  int       `json:"findings"`
	Discarded int       `json:"discarded,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// HasOutput reports whether the run produced any text worth normalizing.
func (r *ProviderRunResult) HasOutput() bool {
	return r.RawOutput != ""
}
