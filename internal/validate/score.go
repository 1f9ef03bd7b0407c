package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sells-group/thesis-scout/internal/model"
)

// Score weights.
const (
	basePrimary    = 0.45
	baseVendor     = 0.30
	baseUnverified = 0.15

	quantifiedBonus = 0.15
	twoProviders    = 0.15
	threeProviders  = 0.25
	priorBonus      = 0.15
	perSource       = 0.03
	maxSources      = 3
)

var (
	digitRe      = regexp.MustCompile(`\d`)
	quantitiesRe = regexp.MustCompile(`(?i)(\d+(\.\d+)?\s?(%|percent|x\b|tonnes?|tons?|hectares?|ha\b|acres?|kg|million|billion|bn\b)|[$€£]\s?\d)`)
)

// Score computes a deterministic confidence in [0,1]. It never decreases
// when a provider, a source, or a better evidence tier is added.
func Score(c model.Company, prior Prior) float64 {
	var s float64
	switch c.EvidenceTier {
	case model.TierPrimary:
		s = basePrimary
	case model.TierVendor:
		s = baseVendor
	default:
		s = baseUnverified
	}

	if hasQuantifiedClaim(c) {
		s += quantifiedBonus
	}

	switch n := len(c.Providers); {
	case n >= 3:
		s += threeProviders
	case n == 2:
		s += twoProviders
	}

	if prior == PriorHigh {
		s += priorBonus
	}

	s += perSource * float64(min(len(c.Sources), maxSources))

	return clamp01(s)
}

// hasQuantifiedClaim reports a KPI claim containing a number, or any
// contributed summary stating a quantity.
func hasQuantifiedClaim(c model.Company) bool {
	for _, k := range c.KPIAlignment {
		if digitRe.MatchString(k) {
			return true
		}
	}
	for _, s := range c.AllSummaries() {
		if quantitiesRe.MatchString(s) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// decisionReason explains a score against the threshold.
func decisionReason(c model.Company, score, threshold float64, prior Prior) string {
	if score >= threshold {
		return fmt.Sprintf("confidence %.2f meets threshold %.2f", score, threshold)
	}

	var why []string
	why = append(why, fmt.Sprintf("%s evidence", tierLabel(c.EvidenceTier)))
	why = append(why, fmt.Sprintf("%d provider(s)", len(c.Providers)))
	if !hasQuantifiedClaim(c) {
		why = append(why, "no quantified claims")
	}
	why = append(why, prior.String()+" keyword prior")
	return fmt.Sprintf("confidence %.2f below threshold %.2f (%s)", score, threshold, strings.Join(why, ", "))
}

func tierLabel(t model.EvidenceTier) string {
	if t == "" {
		return string(model.TierUnverified)
	}
	return string(t)
}
