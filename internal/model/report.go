package model

import "time"

// SchemaVersion is the current persisted report schema version.
const SchemaVersion = 1

// Decision is the terminal validation decision for a company.
type Decision string

const (
	DecisionAccepted Decision = "accepted"
	DecisionRejected Decision = "rejected"
)

// ValidationOutcome records how one company left validation.
type ValidationOutcome struct {
	Segment      string   `json:"segment"`
	CanonicalKey string   `json:"canonical_key"`
	Company      string   `json:"company"`
	Decision     Decision `json:"decision"`
	Score        float64  `json:"score"`
	Reason       string   `json:"reason"`
	Enrichment   []string `json:"enrichment,omitempty"`
}

// ValidationSummary holds run-level validation counts.
type ValidationSummary struct {
	Discovered   int                 `json:"discovered"`
	Deduplicated int                 `json:"deduplicated"`
	Enriched     int                 `json:"enriched"`
	Accepted     int                 `json:"accepted"`
	Rejected     int                 `json:"rejected"`
	Reasons      []ValidationOutcome `json:"reasons"`
}

// SegmentResult lists the accepted companies for one segment.
type SegmentResult struct {
	Name      string    `json:"name"`
	Companies []Company `json:"companies"`
}

// UnparsedPayload preserves provider output that yielded no companies.
type UnparsedPayload struct {
	Provider string   `json:"provider"`
	Segments []string `json:"segments"`
	Raw      string   `json:"raw"`
}

// ToolTelemetry is a snapshot of tool gateway counters.
type ToolTelemetry struct {
	Calls     int64 `json:"calls"`
	CacheHits int64 `json:"cache_hits"`
	Failures  int64 `json:"failures"`
	Retries   int64 `json:"retries"`
}

// Report is the immutable result of one orchestrated run.
type Report struct {
	SchemaVersion     int                      `json:"schema_version"`
	RunID             string                   `json:"run_id"`
	Timestamp         time.Time                `json:"timestamp"`
	Thesis            string                   `json:"thesis"`
	DryRun            bool                     `json:"dry_run"`
	Providers         []ProviderRunResult      `json:"providers"`
	Segments          []SegmentResult          `json:"segments"`
	ValidationSummary ValidationSummary        `json:"validation_summary"`
	Tools             map[string]ToolTelemetry `json:"tools,omitempty"`
	Unparsed          []UnparsedPayload        `json:"unparsed,omitempty"`
}

// AcceptedCount returns the number of accepted companies across segments.
func (r *Report) AcceptedCount() int {
	n := 0
	for _, s := range r.Segments {
		n += len(s.Companies)
	}
	return n
}
