package company

import (
	"slices"
	"strings"
	"sync"

	"github.com/sells-group/thesis-scout/internal/model"
)

// Conflict-tracked scalar fields.
const (
	FieldWebsite = "website"
	FieldCountry = "country"
)

// Record is a canonical company under construction. Merges are commutative
// and idempotent, so concurrent merges in any order converge on the same
// record.
type Record struct {
	mu sync.Mutex
	c  model.Company

	// rank and values track, per scalar field, the best evidence tier seen
	// and the distinct canonical values reported at that tier.
	rank   map[string]int
	values map[string]map[string]bool
}

// NewRecord creates an empty record for key in segment.
func NewRecord(segment, key string) *Record {
	return &Record{
		c:      model.Company{CanonicalKey: key, Segment: segment},
		rank:   make(map[string]int),
		values: make(map[string]map[string]bool),
	}
}

// Merge folds a finding into the record. Sources, KPI claims, providers, and
// contributed summaries are unioned. For scalar fields the higher evidence tier wins; equal-tier
// disagreements on website or country are kept as conflicts.
func (r *Record) Merge(f model.RawFinding) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rank := f.EvidenceTier.Rank()
	if rank > r.c.EvidenceTier.Rank() || r.c.EvidenceTier == "" {
		r.c.EvidenceTier = f.EvidenceTier
		if r.c.EvidenceTier == "" {
			r.c.EvidenceTier = model.TierUnverified
		}
	}

	r.preferred("name", &r.c.Name, f.Name, rank, func(a, b string) bool { return a < b })
	r.preferred("summary", &r.c.Summary, f.Summary, rank, func(a, b string) bool {
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a < b
	})
	r.conflicting(FieldWebsite, &r.c.Website, f.Website, rank, NormalizeDomain)
	r.conflicting(FieldCountry, &r.c.Country, f.Country, rank, func(s string) string {
		return strings.ToUpper(strings.TrimSpace(s))
	})

	r.c.Summaries = union(r.c.Summaries, trimAll([]string{f.Summary}))
	r.c.Sources = union(r.c.Sources, normalizeSources(f.Sources))
	r.c.KPIAlignment = union(r.c.KPIAlignment, trimAll(f.KPIAlignment))
	if f.Provider != "" {
		r.c.Providers = union(r.c.Providers, []string{f.Provider})
	}
}

// preferred sets a scalar with no conflict tracking: the higher tier wins,
// and better breaks ties between equal tiers.
func (r *Record) preferred(field string, cur *string, val string, rank int, better func(a, b string) bool) {
	val = strings.TrimSpace(val)
	if val == "" {
		return
	}
	have := r.rank[field]
	switch {
	case *cur == "" || rank > have:
		*cur, r.rank[field] = val, rank
	case rank == have && better(val, *cur):
		*cur = val
	}
}

// conflicting sets a scalar and records distinct equal-tier values, compared
// by their canonical form, as a conflict.
func (r *Record) conflicting(field string, cur *string, val string, rank int, canon func(string) string) {
	val = strings.TrimSpace(val)
	if val == "" {
		return
	}
	cv := canon(val)
	if cv == "" {
		cv = val
	}

	have := r.rank[field]
	switch {
	case *cur == "" || rank > have:
		*cur, r.rank[field] = val, rank
		r.values[field] = map[string]bool{cv: true}
	case rank < have:
		return
	default:
		r.values[field][cv] = true
		if val < *cur {
			*cur = val
		}
	}

	if len(r.values[field]) > 1 {
		if r.c.Conflicts == nil {
			r.c.Conflicts = make(map[string][]string)
		}
		vals := make([]string, 0, len(r.values[field]))
		for v := range r.values[field] {
			vals = append(vals, v)
		}
		slices.Sort(vals)
		r.c.Conflicts[field] = vals
	} else {
		delete(r.c.Conflicts, field)
		if len(r.c.Conflicts) == 0 {
			r.c.Conflicts = nil
		}
	}
}

// Fill sets an empty field from enrichment and reports whether it changed
// the record. Fill never overwrites an existing value.
func (r *Record) Fill(field, val string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	val = strings.TrimSpace(val)
	if val == "" {
		return false
	}
	var cur *string
	switch field {
	case FieldWebsite:
		cur = &r.c.Website
	case FieldCountry:
		cur = &r.c.Country
	default:
		return false
	}
	if *cur != "" {
		return false
	}
	*cur = val
	return true
}

// Resolve settles a conflicted field in favor of the conflicting value that
// matches evidence. It reports whether a conflict was resolved.
func (r *Record) Resolve(field, evidence string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	vals, ok := r.c.Conflicts[field]
	if !ok {
		return false
	}
	for _, v := range vals {
		if matchesEvidence(field, v, evidence) {
			switch field {
			case FieldWebsite:
				r.c.Website = v
			case FieldCountry:
				r.c.Country = strings.TrimSpace(evidence)
			}
			r.values[field] = map[string]bool{v: true}
			delete(r.c.Conflicts, field)
			if len(r.c.Conflicts) == 0 {
				r.c.Conflicts = nil
			}
			return true
		}
	}
	return false
}

func matchesEvidence(field, canonical, evidence string) bool {
	switch field {
	case FieldWebsite:
		return canonical == NormalizeDomain(evidence)
	case FieldCountry:
		return canonical == strings.ToUpper(strings.TrimSpace(evidence))
	default:
		return false
	}
}

// AddSource unions one corroborating source URL into the record.
func (r *Record) AddSource(src string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	before := len(r.c.Sources)
	r.c.Sources = union(r.c.Sources, normalizeSources([]string{src}))
	return len(r.c.Sources) > before
}

// Snapshot returns a copy of the record's current company.
func (r *Record) Snapshot() model.Company {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.c.Clone()
}

func normalizeSources(srcs []string) []string {
	out := make([]string, 0, len(srcs))
	for _, s := range srcs {
		s = strings.TrimRight(strings.TrimSpace(s), "/")
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func trimAll(ss []string) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// union returns the sorted, de-duplicated union of a and b.
func union(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	slices.Sort(out)
	return slices.Compact(out)
}
