package model

import "strings"

// EvidenceTier classifies how reliable the sources behind a company are.
type EvidenceTier string

const (
	TierPrimary    EvidenceTier = "primary"    // Company's own documentation, filings, registries
	TierVendor     EvidenceTier = "vendor"     // Vendor-authored or partner material
	TierUnverified EvidenceTier = "unverified" // Directory listings, unsourced mentions
)

// Rank orders tiers so that a higher rank is more reliable.
func (t EvidenceTier) Rank() int {
	switch t {
	case TierPrimary:
		return 3
	case TierVendor:
		return 2
	default:
		return 1
	}
}

// ParseEvidenceTier maps free-form tier labels to a known tier.
// Unknown or empty labels resolve to TierUnverified.
func ParseEvidenceTier(s string) EvidenceTier {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "primary", "primary_documentation", "primary documentation", "official", "first_party":
		return TierPrimary
	case "vendor", "vendor_authored", "vendor-authored", "partner":
		return TierVendor
	default:
		return TierUnverified
	}
}

// Segment is a thematic research bucket.
type Segment struct {
	Name        string   `json:"name"`
	TargetCount int      `json:"target_count"`
	Anchors     []string `json:"anchors,omitempty"`
	Include     []string `json:"include,omitempty"`
	Exclude     []string `json:"exclude,omitempty"`
}

// RawFinding is one company entry as recovered from a provider's output,
// before any cross-provider reconciliation.
type RawFinding struct {
	Provider     string       `json:"provider"`
	Model        string       `json:"model,omitempty"`
	Segment      string       `json:"segment"`
	Name         string       `json:"company"`
	Website      string       `json:"website,omitempty"`
	Country      string       `json:"country,omitempty"`
	Summary      string       `json:"summary,omitempty"`
	KPIAlignment []string     `json:"kpi_alignment,omitempty"`
	Sources      []string     `json:"sources,omitempty"`
	EvidenceTier EvidenceTier `json:"evidence_tier"`
	ParseTier    string       `json:"parse_tier,omitempty"`
}

// Company is the canonical, deduplicated record for one company in one segment.
type Company struct {
	CanonicalKey string              `json:"-"`
	Segment      string              `json:"-"`
	Name         string              `json:"company"`
	Website      string              `json:"website"`
	Country      string              `json:"country"`
	Summary      string              `json:"summary"`
	KPIAlignment []string            `json:"kpi_alignment"`
	Sources      []string            `json:"sources"`
	Confidence   float64             `json:"confidence"`
	EvidenceTier EvidenceTier        `json:"evidence_tier"`
	Providers    []string            `json:"providers,omitempty"`
	Conflicts    map[string][]string `json:"conflicts,omitempty"`

	// Summaries holds every distinct summary contributed by the merged
	// findings; Summary is the preferred one.
	Summaries []string `json:"-"`
}

// Clone returns a deep copy of the company.
func (c *Company) Clone() *Company {
	out := *c
	out.KPIAlignment = append([]string(nil), c.KPIAlignment...)
	out.Sources = append([]string(nil), c.Sources...)
	out.Providers = append([]string(nil), c.Providers...)
	out.Summaries = append([]string(nil), c.Summaries...)
	if c.Conflicts != nil {
		out.Conflicts = make(map[string][]string, len(c.Conflicts))
		for k, v := range c.Conflicts {
			out.Conflicts[k] = append([]string(nil), v...)
		}
	}
	return &out
}

// AllSummaries returns Summary followed by any other contributed summaries.
func (c *Company) AllSummaries() []string {
	out := make([]string, 0, 1+len(c.Summaries))
	if c.Summary != "" {
		out = append(out, c.Summary)
	}
	for _, s := range c.Summaries {
		if s != c.Summary {
			out = append(out, s)
		}
	}
	return out
}

// HasConflicts reports whether any scalar field is still disputed.
func (c *Company) HasConflicts() bool {
	return len(c.Conflicts) > 0
}
