package validate

import (
	"strings"

	"github.com/sells-group/thesis-scout/internal/company"
	"github.com/sells-group/thesis-scout/internal/model"
)

// Prior is the zero-cost local evidence signal.
type Prior int

const (
	PriorLow Prior = iota
	PriorHigh
)

func (p Prior) String() string {
	if p == PriorHigh {
		return "high"
	}
	return "low"
}

// evidence is the result of the local keyword scan.
type evidence struct {
	prior    Prior
	excluded string // matched exclude keyword, if any
}

// checkEvidence scans the company's own text for the segment's keywords
// without any external calls.
func checkEvidence(c model.Company, seg model.Segment) evidence {
	text := evidenceText(c)

	for _, kw := range seg.Exclude {
		if containsKeyword(text, kw) {
			return evidence{prior: PriorLow, excluded: kw}
		}
	}

	if len(seg.Include) == 0 && len(seg.Anchors) == 0 {
		return evidence{prior: PriorHigh}
	}
	for _, kw := range seg.Include {
		if containsKeyword(text, kw) {
			return evidence{prior: PriorHigh}
		}
	}
	name := company.NormalizeName(c.Name)
	for _, a := range seg.Anchors {
		if company.NormalizeName(a) == name {
			return evidence{prior: PriorHigh}
		}
	}
	return evidence{prior: PriorLow}
}

func evidenceText(c model.Company) string {
	summaries := c.AllSummaries()
	parts := make([]string, 0, 1+len(summaries)+len(c.KPIAlignment)+len(c.Sources))
	parts = append(parts, c.Name)
	parts = append(parts, summaries...)
	parts = append(parts, c.KPIAlignment...)
	parts = append(parts, c.Sources...)
	return strings.ToLower(strings.Join(parts, "\n"))
}

func containsKeyword(lowerText, kw string) bool {
	kw = strings.ToLower(strings.TrimSpace(kw))
	return kw != "" && strings.Contains(lowerText, kw)
}
