package agent

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are a research analyst discovering companies that match an investment thesis.

Rules:
- Only list real companies you found evidence for; never invent companies or URLs
- Use the available tools to search the web and read pages before answering
- Every company needs a summary or at least one source URL
- Classify evidence_tier as "primary" (the company's own documentation, filings), "vendor" (vendor-authored or partner material) or "unverified" (directories, unsourced mentions)
- Put quantified claims (percentages, tonnes, hectares, revenue) in kpi_alignment when you have them
- Return your final answer as a single JSON document and nothing else`

const outputShape = `{"segments":[{"name":"<segment name>","companies":[{"company":"","website":"","country":"","summary":"","kpi_alignment":[""],"sources":[""],"evidence_tier":"primary|vendor|unverified"}]}]}`

// SystemPrompt renders the system instruction for a unit of work.
func SystemPrompt(actx AgentContext) string {
	var sb strings.Builder
	sb.WriteString(systemPrompt)
	fmt.Fprintf(&sb, "\n\nThesis:\n%s\n", strings.TrimSpace(actx.Thesis))

	if len(actx.KPIs) > 0 {
		sb.WriteString("\nKPIs to assess for each company:\n")
		for _, k := range actx.KPIs {
			fmt.Fprintf(&sb, "- %s\n", k)
		}
	}

	fmt.Fprintf(&sb, "\nFinal answer format:\n%s\n", outputShape)
	sb.WriteString(pacingHint(actx.MaxTurns))
	return sb.String()
}

// UserPrompt renders the opening request listing the unit's segments.
func UserPrompt(actx AgentContext) string {
	var sb strings.Builder
	sb.WriteString("Find companies for the following segments.\n")
	for _, s := range actx.Segments {
		fmt.Fprintf(&sb, "\nSegment: %s (target %d companies)\n", s.Name, s.TargetCount)
		if len(s.Anchors) > 0 {
			fmt.Fprintf(&sb, "Anchor examples: %s\n", strings.Join(s.Anchors, ", "))
		}
		if len(s.Include) > 0 {
			fmt.Fprintf(&sb, "Must relate to: %s\n", strings.Join(s.Include, ", "))
		}
		if len(s.Exclude) > 0 {
			fmt.Fprintf(&sb, "Exclude: %s\n", strings.Join(s.Exclude, ", "))
		}
	}
	return sb.String()
}

// pacingHint asks the agent to converge before the hard turn cap.
func pacingHint(maxTurns int) string {
	if maxTurns <= 0 {
		return ""
	}
	converge := maxTurns - 2
	if converge < 1 {
		converge = 1
	}
	return fmt.Sprintf("\nYou have at most %d turns. Converge and give your final answer by turn %d.\n", maxTurns, converge)
}
