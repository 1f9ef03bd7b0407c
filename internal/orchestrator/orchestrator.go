// Package orchestrator runs every enabled provider over the research
// segments, reconciles their output, and produces the run report.
package orchestrator

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/thesis-scout/internal/agent"
	"github.com/sells-group/thesis-scout/internal/config"
	"github.com/sells-group/thesis-scout/internal/cost"
	"github.com/sells-group/thesis-scout/internal/gateway"
	"github.com/sells-group/thesis-scout/internal/model"
	"github.com/sells-group/thesis-scout/internal/normalize"
	"github.com/sells-group/thesis-scout/internal/report"
	"github.com/sells-group/thesis-scout/internal/store"
	"github.com/sells-group/thesis-scout/internal/validate"
)

var (
	// ErrNoProviders aborts a run with no usable provider.
	ErrNoProviders = eris.New("orchestrator: no providers enabled")
	// ErrMissingContext aborts a run without a thesis or segments.
	ErrMissingContext = eris.New("orchestrator: thesis and segments are required")
)

// Orchestrator schedules provider runs and assembles the report.
type Orchestrator struct {
	cfg      *config.Config
	adapters map[string]agent.Adapter
	tools    []gateway.Tool
	writer   *report.Writer
	index    store.Store
	calc     *cost.Calculator
	now      func() time.Time
	newID    func() string
	deadline time.Duration
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithStore records written reports in the index.
func WithStore(s store.Store) Option {
	return func(o *Orchestrator) { o.index = s }
}

// WithClock overrides the report timestamp source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithRunID overrides run id generation.
func WithRunID(newID func() string) Option {
	return func(o *Orchestrator) { o.newID = newID }
}

// WithDeadline overrides run.deadline_mins.
func WithDeadline(d time.Duration) Option {
	return func(o *Orchestrator) { o.deadline = d }
}

// New creates an Orchestrator. adapters is keyed by provider id; tools back
// the run's gateway.
func New(cfg *config.Config, adapters map[string]agent.Adapter, tools []gateway.Tool, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg,
		adapters: adapters,
		tools:    tools,
		writer:   report.NewWriter(cfg.Run.OutputDir),
		calc:     cost.NewCalculator(cost.FromConfig(cfg.Pricing)),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes one full run and returns the written report. Provider and
// tool failures are contained in the report; only missing providers or
// research context abort the run.
func (o *Orchestrator) Run(ctx context.Context) (*model.Report, error) {
	if strings.TrimSpace(o.cfg.Research.Thesis) == "" || len(o.cfg.Research.Segments) == 0 {
		return nil, ErrMissingContext
	}
	providers := o.providers()
	if len(providers) == 0 {
		return nil, ErrNoProviders
	}

	runID := o.newID()
	dry := o.cfg.Run.Dry
	log := zap.L().With(zap.String("run_id", runID))

	segments := o.segments()
	units := buildUnits(providers, o.cfg.Providers, segments)
	log.Info("orchestrator: starting run",
		zap.Strings("providers", providers),
		zap.Int("segments", len(segments)),
		zap.Int("units", len(units)),
		zap.Bool("dry", dry),
	)

	deadline := o.deadline
	if deadline <= 0 {
		deadline = time.Duration(o.cfg.Run.DeadlineMins) * time.Minute
	}
	if deadline <= 0 {
		deadline = 90 * time.Minute
	}
	runCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	gw, closeGW := o.newGateway(dry)
	defer closeGW()

	results := o.runUnits(runCtx, gw, runID, units, len(providers))

	rep := &model.Report{
		SchemaVersion: model.SchemaVersion,
		RunID:         runID,
		Timestamp:     o.now().UTC(),
		Thesis:        o.cfg.Research.Thesis,
		DryRun:        dry,
	}

	var findings []model.RawFinding
	for i, res := range results {
		norm := normalize.Normalize(res.RawOutput)
		found := assignSegments(norm, units[i], segments).Findings(res.Provider, res.Model)

		res.ParseTier = string(norm.Tier)
		res.Findings = len(found)
		res.Discarded = norm.Discarded
		if norm.Unparsed() && res.HasOutput() {
			rep.Unparsed = append(rep.Unparsed, model.UnparsedPayload{
				Provider: res.Provider,
				Segments: res.Segments,
				Raw:      res.RawOutput,
			})
		}
		rep.Providers = append(rep.Providers, res)
		findings = append(findings, found...)
	}

	if dry {
		rep.Segments = dryRunSegments(segments, findings)
		rep.ValidationSummary = model.ValidationSummary{Discovered: len(findings)}
	} else {
		out := validate.New(validate.ConfigFrom(o.cfg.Validation), gw).Validate(runCtx, segments, findings)
		rep.Segments = out.Segments
		rep.ValidationSummary = out.Summary
	}
	rep.Tools = gw.ToolTelemetry()

	// The report is written even when the caller has given up on the run.
	persistCtx := context.WithoutCancel(ctx)
	art, err := o.writer.Write(persistCtx, rep)
	if err != nil {
		return rep, eris.Wrap(err, "orchestrator: write report")
	}

	if o.index != nil {
		entry := store.ReportEntry{
			RunID:     rep.RunID,
			CreatedAt: rep.Timestamp,
			Path:      art.Path,
			Checksum:  art.Checksum,
			Accepted:  rep.ValidationSummary.Accepted,
			Rejected:  rep.ValidationSummary.Rejected,
			DryRun:    rep.DryRun,
		}
		if err := o.index.RecordReport(persistCtx, entry); err != nil {
			log.Warn("orchestrator: failed to index report", zap.Error(err))
		}
	}

	log.Info("orchestrator: run complete",
		zap.String("report", art.Path),
		zap.Int("accepted", rep.ValidationSummary.Accepted),
		zap.Int("rejected", rep.ValidationSummary.Rejected),
		zap.Int("unparsed", len(rep.Unparsed)),
	)
	return rep, nil
}

// providers returns the enabled provider ids that have an adapter.
func (o *Orchestrator) providers() []string {
	var ids []string
	for _, id := range o.cfg.EnabledProviders() {
		if _, ok := o.adapters[id]; ok {
			ids = append(ids, id)
		} else {
			zap.L().Warn("orchestrator: enabled provider has no adapter", zap.String("provider", id))
		}
	}
	return ids
}

func (o *Orchestrator) segments() []model.Segment {
	out := make([]model.Segment, len(o.cfg.Research.Segments))
	for i, s := range o.cfg.Research.Segments {
		out[i] = model.Segment{
			Name:        s.Name,
			TargetCount: s.TargetCount,
			Anchors:     s.Anchors,
			Include:     s.Include,
			Exclude:     s.Exclude,
		}
	}
	return out
}

// runUnits executes units with bounded concurrency, defaulting to one slot
// per provider. Results are returned in unit order; unit goroutines never
// fail the group.
func (o *Orchestrator) runUnits(ctx context.Context, gw *gateway.Gateway, runID string, units []unit, providers int) []model.ProviderRunResult {
	runner := agent.NewRunner(gw, o.calc, o.cfg.Gateway.PerTurnConcurrency)
	results := make([]model.ProviderRunResult, len(units))

	limit := o.cfg.Run.Concurrency
	if limit <= 0 {
		limit = providers
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i, u := range units {
		g.Go(func() error {
			p := o.cfg.Providers[u.provider]
			actx := agent.AgentContext{
				RunID:     runID,
				Thesis:    o.cfg.Research.Thesis,
				Segments:  u.segments,
				KPIs:      o.cfg.Research.KPIs,
				MaxTurns:  p.MaxTurns,
				MaxTokens: p.MaxTokens,
			}
			results[i] = runner.Run(ctx, o.adapters[u.provider], actx)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// dryRunSegments lists normalized findings without validation.
func dryRunSegments(segments []model.Segment, findings []model.RawFinding) []model.SegmentResult {
	idx := make(map[string]int, len(segments))
	out := make([]model.SegmentResult, 0, len(segments))
	for _, s := range segments {
		idx[s.Name] = len(out)
		out = append(out, model.SegmentResult{Name: s.Name, Companies: []model.Company{}})
	}

	for _, f := range findings {
		i, ok := idx[f.Segment]
		if !ok {
			i = len(out)
			idx[f.Segment] = i
			out = append(out, model.SegmentResult{Name: f.Segment, Companies: []model.Company{}})
		}
		tier := f.EvidenceTier
		if tier == "" {
			tier = model.TierUnverified
		}
		out[i].Companies = append(out[i].Companies, model.Company{
			Segment:      f.Segment,
			Name:         f.Name,
			Website:      f.Website,
			Country:      f.Country,
			Summary:      f.Summary,
			KPIAlignment: f.KPIAlignment,
			Sources:      f.Sources,
			EvidenceTier: tier,
			Providers:    []string{f.Provider},
		})
	}
	return out
}
