package report

import (
	"fmt"
	"strings"

	"github.com/sells-group/thesis-scout/internal/model"
)

// Summary renders a short human-readable overview of a report.
func Summary(r *model.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Run %s\n", r.RunID)
	fmt.Fprintf(&b, "Timestamp: %s\n", r.Timestamp.UTC().Format("2006-01-02 15:04:05 UTC"))
	if r.DryRun {
		b.WriteString("Mode: dry run (no validation)\n")
	}
	b.WriteString("\n")

	b.WriteString("## Providers\n")
	var totalCost float64
	for _, p := range r.Providers {
		fmt.Fprintf(&b, "- %s [%s] %s: %s, %d turns, %d tool calls, %d findings ($%.4f)\n",
			p.Provider, strings.Join(p.Segments, ", "), p.Model, p.Status,
			p.Telemetry.Turns, p.Telemetry.ToolCalls, p.Findings, p.Telemetry.CostUSD)
		if p.Error != "" {
			fmt.Fprintf(&b, "  Error: %s\n", p.Error)
		}
		totalCost += p.Telemetry.CostUSD
	}
	fmt.Fprintf(&b, "Estimated cost: $%.4f\n\n", totalCost)

	vs := r.ValidationSummary
	b.WriteString("## Validation\n")
	fmt.Fprintf(&b, "- Discovered: %d\n", vs.Discovered)
	fmt.Fprintf(&b, "- Deduplicated: %d\n", vs.Deduplicated)
	fmt.Fprintf(&b, "- Enriched: %d\n", vs.Enriched)
	fmt.Fprintf(&b, "- Accepted: %d\n", vs.Accepted)
	fmt.Fprintf(&b, "- Rejected: %d\n\n", vs.Rejected)

	b.WriteString("## Segments\n")
	for _, s := range r.Segments {
		fmt.Fprintf(&b, "- %s: %d\n", s.Name, len(s.Companies))
	}

	if len(r.Unparsed) > 0 {
		fmt.Fprintf(&b, "\n%d provider payload(s) could not be parsed\n", len(r.Unparsed))
	}
	return b.String()
}
