// Package normalize recovers company groups from free-form agent output.
//
// Recovery runs through ordered tiers and stops at the first one that yields
// at least one well-formed group. It never returns an error and never
// panics; payloads nothing can be recovered from are tagged unparsed.
package normalize

import (
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/thesis-scout/internal/model"
)

// Tier identifies the recovery tier a result came from.
type Tier string

const (
	TierStrict        Tier = "strict"
	TierFenced        Tier = "fenced"
	TierSegmentScan   Tier = "segment_scan"
	TierOrphanSalvage Tier = "orphan_salvage"
	TierUnparsed      Tier = "unparsed"
)

// UnstructuredSegment groups salvaged companies with no recoverable segment.
const UnstructuredSegment = "unstructured"

// Group is the companies recovered for one segment.
type Group struct {
	Segment   string
	Companies []model.RawFinding
}

// Result is the outcome of normalizing one payload.
type Result struct {
	Tier      Tier
	Groups    []Group
	Discarded int
	Raw       string
}

// Unparsed reports whether no tier recovered anything.
func (r Result) Unparsed() bool {
	return r.Tier == TierUnparsed
}

// Count returns the number of recovered companies.
func (r Result) Count() int {
	n := 0
	for _, g := range r.Groups {
		n += len(g.Companies)
	}
	return n
}

// Findings flattens the groups into findings attributed to provider and
// the model that produced them.
func (r Result) Findings(provider, modelName string) []model.RawFinding {
	out := make([]model.RawFinding, 0, r.Count())
	for _, g := range r.Groups {
		for _, c := range g.Companies {
			c.Provider = provider
			c.Model = modelName
			c.Segment = g.Segment
			c.ParseTier = string(r.Tier)
			out = append(out, c)
		}
	}
	return out
}

// Normalize recovers company groups from raw.
func Normalize(raw string) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			zap.L().Error("normalize: recovered from panic", zap.Any("panic", p))
			res = Result{Tier: TierUnparsed, Raw: raw}
		}
	}()

	text := strings.TrimSpace(raw)
	if text == "" {
		return Result{Tier: TierUnparsed, Raw: raw}
	}

	if groups, discarded, ok := parseDocument(text); ok {
		return Result{Tier: TierStrict, Groups: groups, Discarded: discarded, Raw: raw}
	}

	for _, cand := range embeddedCandidates(text) {
		if !singleValue(cand) {
			continue
		}
		if groups, discarded, ok := parseDocument(salvage(cand)); ok {
			return Result{Tier: TierFenced, Groups: groups, Discarded: discarded, Raw: raw}
		}
	}

	spans := scanObjects(text)

	if groups, discarded := recoverSegments(text, spans); len(groups) > 0 {
		return Result{Tier: TierSegmentScan, Groups: groups, Discarded: discarded, Raw: raw}
	}

	if group, discarded := salvageOrphans(text, spans); len(group.Companies) > 0 {
		return Result{Tier: TierOrphanSalvage, Groups: []Group{group}, Discarded: discarded, Raw: raw}
	}

	return Result{Tier: TierUnparsed, Raw: raw}
}

// recoverSegments parses every outermost segment-shaped object
// independently. Objects nested inside an accepted segment are skipped.
func recoverSegments(text string, spans []span) ([]Group, int) {
	var (
		groups    []Group
		discarded int
	)
	walkSpans(text, spans, func(m map[string]any) bool {
		g, d, ok := parseSegment(m)
		if !ok {
			return false
		}
		discarded += d
		if len(g.Companies) > 0 {
			groups = append(groups, g)
		}
		return true
	})
	return groups, discarded
}

// salvageOrphans collects company-shaped objects under the unstructured
// segment.
func salvageOrphans(text string, spans []span) (Group, int) {
	group := Group{Segment: UnstructuredSegment}
	discarded := 0
	walkSpans(text, spans, func(m map[string]any) bool {
		if !companyShaped(m) {
			return false
		}
		if c, ok := parseCompany(m); ok {
			group.Companies = append(group.Companies, c)
		} else {
			discarded++
		}
		return true
	})
	return group, discarded
}
