package validate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/sells-group/thesis-scout/internal/company"
	"github.com/sells-group/thesis-scout/internal/gateway"
	"github.com/sells-group/thesis-scout/internal/model"
	"github.com/sells-group/thesis-scout/internal/tools"
)

// budget is a call allowance shared by concurrent takers. A negative
// allowance is unlimited.
type budget struct {
	remaining atomic.Int64
}

func newBudget(n int) *budget {
	b := &budget{}
	if n <= 0 {
		b.remaining.Store(-1)
	} else {
		b.remaining.Store(int64(n))
	}
	return b
}

// take reserves up to n calls and returns how many were granted.
func (b *budget) take(n int) int {
	for {
		cur := b.remaining.Load()
		if cur < 0 {
			return n
		}
		grant := min(int64(n), cur)
		if b.remaining.CompareAndSwap(cur, cur-grant) {
			return int(grant)
		}
	}
}

// giveBack returns unused calls.
func (b *budget) giveBack(n int) {
	if n <= 0 {
		return
	}
	for {
		cur := b.remaining.Load()
		if cur < 0 || b.remaining.CompareAndSwap(cur, cur+int64(n)) {
			return
		}
	}
}

// plan is the enrichment work reserved for one company.
type plan struct {
	rec     *company.Record
	segment model.Segment
	prior   Prior
	places  bool
	search  bool
}

// enricher fills gaps through rate-limited gateway calls.
type enricher struct {
	tools   ToolCaller
	sem     *semaphore.Weighted
	limiter *rate.Limiter
}

func newEnricher(tc ToolCaller, cfg Config) *enricher {
	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}
	conc := cfg.MaxConcurrency
	if conc <= 0 {
		conc = 1
	}
	return &enricher{
		tools:   tc,
		sem:     semaphore.NewWeighted(int64(conc)),
		limiter: rate.NewLimiter(limit, 1),
	}
}

// call performs one bounded enrichment call.
func (e *enricher) call(ctx context.Context, req gateway.Request) (json.RawMessage, error) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer e.sem.Release(1)

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	res, err := e.tools.Call(ctx, req)
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}

// enrich runs p and returns the actions that changed the record, plus the
// possibly upgraded prior.
func (e *enricher) enrich(ctx context.Context, p plan) ([]string, Prior) {
	var actions []string
	prior := p.prior
	c := p.rec.Snapshot()
	log := zap.L().With(zap.String("segment", c.Segment), zap.String("company", c.Name))

	if p.places {
		query := c.Name
		if c.Country != "" && !c.HasConflicts() {
			query += " " + c.Country
		}
		data, err := e.call(ctx, gateway.Request{Tool: tools.PlacesLookupName, Kwargs: map[string]any{"query": query}})
		if err != nil {
			log.Debug("validate: places lookup failed", zap.Error(err))
		} else {
			actions = append(actions, applyPlace(p.rec, c, data)...)
		}
	}

	if p.search {
		query := fmt.Sprintf("%q %s", c.Name, strings.Join(p.segment.Include, " "))
		data, err := e.call(ctx, gateway.Request{Tool: tools.WebSearchName, Kwargs: map[string]any{"query": strings.TrimSpace(query)}})
		if err != nil {
			log.Debug("validate: corroborating search failed", zap.Error(err))
		} else {
			acts, upgraded := applySearch(p.rec, c, p.segment, data)
			actions = append(actions, acts...)
			if upgraded {
				prior = PriorHigh
			}
		}
	}
	return actions, prior
}

// applyPlace resolves conflicts and fills empty website/country from a
// places result that names the same company.
func applyPlace(rec *company.Record, c model.Company, data json.RawMessage) []string {
	var info tools.PlaceInfo
	if err := json.Unmarshal(data, &info); err != nil || !info.Found {
		return nil
	}
	if company.NormalizeName(info.Name) != company.NormalizeName(c.Name) && !company.SameWebsite(info.Website, c.Website) {
		return nil
	}

	var actions []string
	if rec.Resolve(company.FieldWebsite, info.Website) {
		actions = append(actions, "places_lookup: resolved website conflict")
	}
	if rec.Resolve(company.FieldCountry, info.Country) {
		actions = append(actions, "places_lookup: resolved country conflict")
	}
	if rec.Fill(company.FieldWebsite, info.Website) {
		actions = append(actions, "places_lookup: filled website")
	}
	if rec.Fill(company.FieldCountry, info.Country) {
		actions = append(actions, "places_lookup: filled country")
	}
	return actions
}

// applySearch adds search hits that mention the company as corroborating
// sources. It reports whether a hit also matched a segment keyword.
func applySearch(rec *company.Record, c model.Company, seg model.Segment, data json.RawMessage) ([]string, bool) {
	var resp struct {
		Results []tools.SearchHit `json:"results"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, false
	}

	name := strings.ToLower(c.Name)
	var (
		actions  []string
		upgraded bool
	)
	for _, hit := range resp.Results {
		text := strings.ToLower(hit.Title + "\n" + hit.Snippet)
		if !strings.Contains(text, name) && !company.SameWebsite(hit.URL, c.Website) {
			continue
		}
		if hit.URL != "" && rec.AddSource(hit.URL) {
			actions = append(actions, "web_search: added source "+hit.URL)
		}
		for _, kw := range seg.Include {
			if containsKeyword(text, kw) {
				upgraded = true
			}
		}
	}
	return actions, upgraded
}
