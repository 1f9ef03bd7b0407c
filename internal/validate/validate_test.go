package validate

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/thesis-scout/internal/config"
	"github.com/sells-group/thesis-scout/internal/gateway"
	"github.com/sells-group/thesis-scout/internal/model"
	"github.com/sells-group/thesis-scout/internal/tools"
)

// fakeTools answers places_lookup and web_search from fixed tables.
type fakeTools struct {
	mu     sync.Mutex
	calls  []gateway.Request
	places map[string]tools.PlaceInfo   // keyed by query prefix
	search map[string][]tools.SearchHit // keyed by query substring
}

func (f *fakeTools) Call(_ context.Context, req gateway.Request) (*gateway.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()

	query, _ := req.Kwargs["query"].(string)
	switch req.Tool {
	case tools.PlacesLookupName:
		for prefix, info := range f.places {
			if strings.HasPrefix(query, prefix) {
				data, _ := json.Marshal(info)
				return &gateway.Result{Tool: req.Tool, Data: data}, nil
			}
		}
		return &gateway.Result{Tool: req.Tool, Data: json.RawMessage(`{"found":false}`)}, nil
	case tools.WebSearchName:
		for sub, hits := range f.search {
			if strings.Contains(query, sub) {
				data, _ := json.Marshal(map[string]any{"query": query, "results": hits})
				return &gateway.Result{Tool: req.Tool, Data: data}, nil
			}
		}
		return &gateway.Result{Tool: req.Tool, Data: json.RawMessage(`{"results":[]}`)}, nil
	}
	return nil, errors.New("unknown tool")
}

func (f *fakeTools) count(tool string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Tool == tool {
			n++
		}
	}
	return n
}

var soilHealth = model.Segment{
	Name:        "Soil Health",
	TargetCount: 5,
	Include:     []string{"soil"},
	Exclude:     []string{"fertilizer distributor"},
}

func soilFindings() []model.RawFinding {
	return []model.RawFinding{
		{Provider: "anthropic", Segment: "Soil Health", Name: "Biome Makers", Website: "https://biomemakers.com", Country: "US",
			Summary: "Soil microbiome analytics covering 2 million acres", Sources: []string{"https://biomemakers.com/about"}, EvidenceTier: model.TierPrimary},
		{Provider: "gemini", Segment: "Soil Health", Name: "Biome Makers Inc.", Website: "https://www.biomemakers.com/", Country: "US",
			Summary: "Soil microbiome lab", Sources: []string{"https://biomemakers.com/about"}, EvidenceTier: model.TierPrimary},
		{Provider: "anthropic", Segment: "Soil Health", Name: "Indigo Ag", Website: "https://indigoag.com", Country: "US",
			Summary: "Soil carbon program paying growers per tonne", Sources: []string{"https://indigoag.com/carbon"}, EvidenceTier: model.TierVendor},
		{Provider: "perplexity", Segment: "Soil Health", Name: "Indigo Ag Inc", Website: "https://indigoag.com", Country: "US",
			Summary: "Soil carbon credits", EvidenceTier: model.TierVendor},
		{Provider: "gemini", Segment: "Soil Health", Name: "Trace Genomics",
			Summary: "Soil DNA sequencing lab", EvidenceTier: model.TierPrimary},
		{Provider: "anthropic", Segment: "Soil Health", Name: "Pivot Bio", Country: "US",
			Summary: "Soil nitrogen microbes replacing 25% of synthetic fertilizer", Sources: []string{"https://pivotbio.com/product"}, EvidenceTier: model.TierVendor},
		{Provider: "perplexity", Segment: "Soil Health", Name: "AgriDirectory Co", Website: "https://agridirectory.example", Country: "US",
			Summary: "Listed soil testing provider", Sources: []string{"https://agridirectory.example/list"}, EvidenceTier: model.TierUnverified},
	}
}

func soilTools() *fakeTools {
	return &fakeTools{
		places: map[string]tools.PlaceInfo{
			"Trace Genomics": {Found: true, Name: "Trace Genomics", Website: "https://tracegenomics.com", Country: "United States"},
			"Pivot Bio":      {Found: true, Name: "Pivot Bio", Website: "https://pivotbio.com", Country: "United States"},
		},
	}
}

func testConfig() Config {
	return Config{Threshold: 0.5, MaxConcurrency: 2, MaxCallsPerCompany: 3, MaxCallsPerSegment: 40, MaxCallsPerRun: 200}
}

func acceptedNames(out Outcome) []string {
	var names []string
	for _, s := range out.Segments {
		for _, c := range s.Companies {
			names = append(names, c.Name)
		}
	}
	return names
}

func TestValidate_SoilHealthScenario(t *testing.T) {
	ft := soilTools()
	v := New(testConfig(), ft)

	out := v.Validate(context.Background(), []model.Segment{soilHealth}, soilFindings())

	assert.Equal(t, 7, out.Summary.Discovered)
	assert.Equal(t, 5, out.Summary.Deduplicated)
	assert.Equal(t, 2, out.Summary.Enriched)
	assert.Equal(t, 4, out.Summary.Accepted)
	assert.Equal(t, 1, out.Summary.Rejected)
	assert.Len(t, out.Summary.Reasons, 5)

	require.Len(t, out.Segments, 1)
	assert.ElementsMatch(t, []string{"Biome Makers", "Indigo Ag", "Trace Genomics", "Pivot Bio"}, acceptedNames(out))

	require.Len(t, out.Rejected, 1)
	assert.Equal(t, "AgriDirectory Co", out.Rejected[0].Name)

	for _, c := range out.Segments[0].Companies {
		assert.GreaterOrEqual(t, c.Confidence, 0.5, c.Name)
		assert.NotEmpty(t, c.Website, c.Name)
		if c.Name == "Trace Genomics" {
			assert.Equal(t, "https://tracegenomics.com", c.Website)
			assert.Equal(t, "United States", c.Country)
		}
		if c.Name == "Biome Makers" {
			assert.Equal(t, []string{"anthropic", "gemini"}, c.Providers)
		}
	}

	for _, r := range out.Summary.Reasons {
		if r.Company == "AgriDirectory Co" {
			assert.Equal(t, model.DecisionRejected, r.Decision)
			assert.Contains(t, r.Reason, "below threshold")
			assert.Contains(t, r.Reason, "unverified evidence")
		}
	}

	assert.Equal(t, 2, ft.count(tools.PlacesLookupName))
	assert.Equal(t, 0, ft.count(tools.WebSearchName))
}

func TestValidate_DeterministicAcrossInputOrder(t *testing.T) {
	base := New(testConfig(), soilTools()).Validate(context.Background(), []model.Segment{soilHealth}, soilFindings())

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		findings := soilFindings()
		rng.Shuffle(len(findings), func(a, b int) { findings[a], findings[b] = findings[b], findings[a] })

		out := New(testConfig(), soilTools()).Validate(context.Background(), []model.Segment{soilHealth}, findings)
		assert.Equal(t, base.Segments, out.Segments)
		assert.Equal(t, base.Summary, out.Summary)
	}
}

func TestValidate_Idempotent(t *testing.T) {
	first := New(testConfig(), nil).Validate(context.Background(), []model.Segment{soilHealth}, soilFindings())

	doubled := append(soilFindings(), soilFindings()...)
	second := New(testConfig(), nil).Validate(context.Background(), []model.Segment{soilHealth}, doubled)

	assert.Equal(t, first.Segments, second.Segments)
	assert.Equal(t, first.Summary.Deduplicated, second.Summary.Deduplicated)
}

func TestValidate_ExcludeKeywordRejects(t *testing.T) {
	findings := []model.RawFinding{{
		Provider: "anthropic", Segment: "Soil Health", Name: "Farm Supply Partners", Website: "https://fsp.example", Country: "US",
		Summary: "Regional fertilizer distributor with soil testing", EvidenceTier: model.TierPrimary,
	}}
	ft := soilTools()
	out := New(testConfig(), ft).Validate(context.Background(), []model.Segment{soilHealth}, findings)

	assert.Equal(t, 0, out.Summary.Accepted)
	require.Len(t, out.Summary.Reasons, 1)
	assert.Equal(t, model.DecisionRejected, out.Summary.Reasons[0].Decision)
	assert.Contains(t, out.Summary.Reasons[0].Reason, `"fertilizer distributor"`)
	assert.Empty(t, ft.calls)
}

func TestValidate_SecondProviderNeverLowersScore(t *testing.T) {
	biochar := model.Segment{Name: "Biochar", Include: []string{"biochar"}}
	cfg := testConfig()
	cfg.Threshold = 0.4

	first := model.RawFinding{
		Provider: "anthropic", Segment: "Biochar", Name: "Carbonix",
		Summary: "Biochar cuts emissions 30%", Sources: []string{"https://carbonix.example/news"},
		EvidenceTier: model.TierUnverified,
	}
	second := model.RawFinding{
		Provider: "gemini", Segment: "Biochar", Name: "Carbonix",
		Summary: "An industrial company operating several plants across northern Europe",
		Sources: []string{"https://carbonix.example/news"}, EvidenceTier: model.TierUnverified,
	}

	one := New(cfg, nil).Validate(context.Background(), []model.Segment{biochar}, []model.RawFinding{first})
	two := New(cfg, nil).Validate(context.Background(), []model.Segment{biochar}, []model.RawFinding{first, second})

	require.Len(t, one.Summary.Reasons, 1)
	require.Len(t, two.Summary.Reasons, 1)
	assert.Equal(t, model.DecisionAccepted, one.Summary.Reasons[0].Decision)
	assert.Equal(t, model.DecisionAccepted, two.Summary.Reasons[0].Decision)
	assert.GreaterOrEqual(t, two.Summary.Reasons[0].Score, one.Summary.Reasons[0].Score)

	require.Len(t, two.Segments[0].Companies, 1)
	assert.Equal(t, second.Summary, two.Segments[0].Companies[0].Summary)
}

func TestValidate_SearchCorroboratesLowPrior(t *testing.T) {
	findings := []model.RawFinding{{
		Provider: "gemini", Segment: "Soil Health", Name: "Nori", Website: "https://nori.com", Country: "US",
		Summary: "Carbon removal marketplace", Sources: []string{"https://nori.com"}, EvidenceTier: model.TierVendor,
	}}

	without := New(testConfig(), nil).Validate(context.Background(), []model.Segment{soilHealth}, findings)
	assert.Equal(t, 0, without.Summary.Accepted)

	ft := &fakeTools{search: map[string][]tools.SearchHit{
		"Nori": {
			{Title: "Nori soil carbon removal", URL: "https://nori.com/soil", Snippet: "Nori pays farmers for soil carbon"},
			{Title: "Unrelated", URL: "https://other.example", Snippet: "nothing to see"},
		},
	}}
	out := New(testConfig(), ft).Validate(context.Background(), []model.Segment{soilHealth}, findings)

	assert.Equal(t, 1, out.Summary.Accepted)
	assert.Equal(t, 1, out.Summary.Enriched)
	require.Len(t, out.Segments[0].Companies, 1)
	assert.Equal(t, []string{"https://nori.com", "https://nori.com/soil"}, out.Segments[0].Companies[0].Sources)
	assert.Equal(t, []string{"web_search: added source https://nori.com/soil"}, out.Summary.Reasons[0].Enrichment)
}

func TestValidate_RunBudgetCapsCalls(t *testing.T) {
	cfg := testConfig()
	cfg.MaxCallsPerRun = 1
	ft := soilTools()

	out := New(cfg, ft).Validate(context.Background(), []model.Segment{soilHealth}, soilFindings())

	assert.Len(t, ft.calls, 1)
	assert.Equal(t, 1, out.Summary.Enriched)
}

func TestValidate_SegmentBudgetCapsCalls(t *testing.T) {
	cfg := testConfig()
	cfg.MaxCallsPerSegment = 1
	ft := soilTools()

	New(cfg, ft).Validate(context.Background(), []model.Segment{soilHealth}, soilFindings())
	assert.Len(t, ft.calls, 1)
}

func TestValidate_PlacesMismatchIgnored(t *testing.T) {
	findings := []model.RawFinding{{
		Provider: "gemini", Segment: "Soil Health", Name: "Trace Genomics", Summary: "Soil DNA sequencing", EvidenceTier: model.TierPrimary,
	}}
	ft := &fakeTools{places: map[string]tools.PlaceInfo{
		"Trace Genomics": {Found: true, Name: "Trace Minerals Ltd", Website: "https://traceminerals.example", Country: "UK"},
	}}

	out := New(testConfig(), ft).Validate(context.Background(), []model.Segment{soilHealth}, findings)
	assert.Equal(t, 0, out.Summary.Enriched)
	require.Len(t, out.Segments[0].Companies, 1)
	assert.Empty(t, out.Segments[0].Companies[0].Website)
}

func TestValidate_EmptySegmentKeptInOrder(t *testing.T) {
	water := model.Segment{Name: "Water"}
	out := New(testConfig(), nil).Validate(context.Background(), []model.Segment{water, soilHealth}, soilFindings())

	require.Len(t, out.Segments, 2)
	assert.Equal(t, "Water", out.Segments[0].Name)
	assert.NotNil(t, out.Segments[0].Companies)
	assert.Empty(t, out.Segments[0].Companies)
	assert.Equal(t, "Soil Health", out.Segments[1].Name)
}

func TestBudget(t *testing.T) {
	b := newBudget(3)
	assert.Equal(t, 2, b.take(2))
	assert.Equal(t, 1, b.take(2))
	assert.Equal(t, 0, b.take(1))
	b.giveBack(1)
	assert.Equal(t, 1, b.take(5))

	unlimited := newBudget(0)
	assert.Equal(t, 100, unlimited.take(100))
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.ValidationConfig{
		AcceptanceThreshold:  0.6,
		MaxEnrichConcurrency: 4,
		EnrichRatePerSec:     1.5,
		MaxCallsPerCompany:   2,
		MaxCallsPerSegment:   10,
		MaxCallsPerRun:       50,
	})
	assert.Equal(t, Config{Threshold: 0.6, MaxConcurrency: 4, RatePerSec: 1.5, MaxCallsPerCompany: 2, MaxCallsPerSegment: 10, MaxCallsPerRun: 50}, cfg)
}
