// Package validate deduplicates, enriches, scores, and decides on normalized
// company findings.
package validate

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/thesis-scout/internal/company"
	"github.com/sells-group/thesis-scout/internal/config"
	"github.com/sells-group/thesis-scout/internal/gateway"
	"github.com/sells-group/thesis-scout/internal/model"
)

// ToolCaller dispatches enrichment calls. *gateway.Gateway satisfies it.
type ToolCaller interface {
	Call(ctx context.Context, req gateway.Request) (*gateway.Result, error)
}

// Config controls scoring and enrichment.
type Config struct {
	Threshold          float64
	MaxConcurrency     int
	RatePerSec         float64
	MaxCallsPerCompany int
	MaxCallsPerSegment int
	MaxCallsPerRun     int
}

// ConfigFrom builds a Config from application configuration.
func ConfigFrom(v config.ValidationConfig) Config {
	return Config{
		Threshold:          v.AcceptanceThreshold,
		MaxConcurrency:     v.MaxEnrichConcurrency,
		RatePerSec:         v.EnrichRatePerSec,
		MaxCallsPerCompany: v.MaxCallsPerCompany,
		MaxCallsPerSegment: v.MaxCallsPerSegment,
		MaxCallsPerRun:     v.MaxCallsPerRun,
	}
}

// Outcome is the result of validating one run's findings.
type Outcome struct {
	Segments []model.SegmentResult
	Rejected []model.Company
	Summary  model.ValidationSummary
}

// Validator turns findings into the accepted canonical set.
type Validator struct {
	cfg   Config
	tools ToolCaller
}

// New creates a Validator. A nil tools disables enrichment.
func New(cfg Config, tools ToolCaller) *Validator {
	return &Validator{cfg: cfg, tools: tools}
}

// candidate is one deduplicated company moving through validation.
type candidate struct {
	rec      *company.Record
	segment  model.Segment
	ev       evidence
	actions  []string
	enriched bool
}

// Validate deduplicates findings per segment, runs the local evidence
// check, enriches companies with gaps or weak evidence, then scores and
// decides each one. Given a deterministic gateway the partition depends only
// on the findings and the threshold.
func (v *Validator) Validate(ctx context.Context, segments []model.Segment, findings []model.RawFinding) Outcome {
	out := Outcome{Summary: model.ValidationSummary{Discovered: len(findings)}}

	dd := dedupe(findings)
	out.Summary.Deduplicated = dd.Len()

	order := make([]string, len(segments))
	bySegment := make(map[string]model.Segment, len(segments))
	for i, s := range segments {
		order[i] = s.Name
		bySegment[s.Name] = s
	}

	records := dd.Records(order)
	cands := make([]*candidate, len(records))
	for i, rec := range records {
		c := rec.Snapshot()
		seg, ok := bySegment[c.Segment]
		if !ok {
			seg = model.Segment{Name: c.Segment}
		}
		cands[i] = &candidate{rec: rec, segment: seg, ev: checkEvidence(c, seg)}
	}

	if v.tools != nil {
		v.enrichAll(ctx, cands)
	}

	accepted := make(map[string][]model.Company)
	for _, cand := range cands {
		c := cand.rec.Snapshot()
		if cand.enriched {
			out.Summary.Enriched++
		}

		o := model.ValidationOutcome{
			Segment:      c.Segment,
			CanonicalKey: c.CanonicalKey,
			Company:      c.Name,
			Enrichment:   cand.actions,
		}
		if cand.ev.excluded != "" {
			o.Decision = model.DecisionRejected
			o.Reason = fmt.Sprintf("matched exclude keyword %q", cand.ev.excluded)
		} else {
			c.Confidence = Score(c, cand.ev.prior)
			o.Score = c.Confidence
			o.Reason = decisionReason(c, c.Confidence, v.cfg.Threshold, cand.ev.prior)
			o.Decision = model.DecisionRejected
			if c.Confidence >= v.cfg.Threshold {
				o.Decision = model.DecisionAccepted
			}
		}

		if o.Decision == model.DecisionAccepted {
			out.Summary.Accepted++
			accepted[c.Segment] = append(accepted[c.Segment], c)
		} else {
			out.Summary.Rejected++
			out.Rejected = append(out.Rejected, c)
		}
		out.Summary.Reasons = append(out.Summary.Reasons, o)
	}

	out.Segments = segmentResults(order, accepted)

	zap.L().Info("validate: complete",
		zap.Int("discovered", out.Summary.Discovered),
		zap.Int("deduplicated", out.Summary.Deduplicated),
		zap.Int("enriched", out.Summary.Enriched),
		zap.Int("accepted", out.Summary.Accepted),
		zap.Int("rejected", out.Summary.Rejected),
	)
	return out
}

// dedupe merges findings concurrently, one goroutine per provider.
func dedupe(findings []model.RawFinding) *Deduper {
	keys := company.Keys(findings)
	byProvider := make(map[string][]int)
	for i, f := range findings {
		byProvider[f.Provider] = append(byProvider[f.Provider], i)
	}

	dd := NewDeduper()
	var g errgroup.Group
	for _, idx := range byProvider {
		g.Go(func() error {
			for _, i := range idx {
				dd.Add(keys[i], findings[i])
			}
			return nil
		})
	}
	_ = g.Wait()
	return dd
}

// enrichAll reserves call budgets in candidate order, then runs the
// reserved enrichment concurrently.
func (v *Validator) enrichAll(ctx context.Context, cands []*candidate) {
	run := newBudget(v.cfg.MaxCallsPerRun)
	segBudgets := make(map[string]*budget)

	plans := make(map[*candidate]plan)
	for _, cand := range cands {
		if cand.ev.excluded != "" {
			continue
		}
		c := cand.rec.Snapshot()
		p := plan{
			rec:     cand.rec,
			segment: cand.segment,
			prior:   cand.ev.prior,
			places:  c.Website == "" || c.Country == "" || c.HasConflicts(),
			search:  cand.ev.prior == PriorLow,
		}
		want := 0
		if p.places {
			want++
		}
		if p.search {
			want++
		}
		if v.cfg.MaxCallsPerCompany > 0 {
			want = min(want, v.cfg.MaxCallsPerCompany)
		}
		if want == 0 {
			continue
		}

		sb, ok := segBudgets[c.Segment]
		if !ok {
			sb = newBudget(v.cfg.MaxCallsPerSegment)
			segBudgets[c.Segment] = sb
		}
		got := sb.take(want)
		granted := run.take(got)
		sb.giveBack(got - granted)
		if granted == 0 {
			continue
		}
		// Gaps take priority over corroboration when calls are short.
		if granted == 1 && p.places {
			p.search = false
		}
		plans[cand] = p
	}

	e := newEnricher(v.tools, v.cfg)
	workers := max(1, v.cfg.MaxConcurrency) * 2

	var g errgroup.Group
	g.SetLimit(workers)
	for _, cand := range cands {
		p, ok := plans[cand]
		if !ok {
			continue
		}
		g.Go(func() error {
			actions, prior := e.enrich(ctx, p)
			cand.actions = actions
			cand.enriched = len(actions) > 0
			cand.ev.prior = prior
			return nil
		})
	}
	_ = g.Wait()
}

// segmentResults lists accepted companies in configured segment order,
// followed by any other segments by name.
func segmentResults(order []string, accepted map[string][]model.Company) []model.SegmentResult {
	seen := make(map[string]bool, len(order))
	out := make([]model.SegmentResult, 0, len(accepted))
	for _, name := range order {
		seen[name] = true
		out = append(out, model.SegmentResult{Name: name, Companies: nonNil(accepted[name])})
	}

	var extra []string
	for name := range accepted {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		out = append(out, model.SegmentResult{Name: name, Companies: accepted[name]})
	}
	return out
}

func nonNil(cs []model.Company) []model.Company {
	if cs == nil {
		return []model.Company{}
	}
	return cs
}
