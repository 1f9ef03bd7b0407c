package company

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/thesis-scout/internal/model"
)

func finding(provider, name, website, country string, tier model.EvidenceTier, sources ...string) model.RawFinding {
	return model.RawFinding{
		Provider:     provider,
		Segment:      "Soil Health",
		Name:         name,
		Website:      website,
		Country:      country,
		Summary:      "Soil microbiome analytics",
		Sources:      sources,
		EvidenceTier: tier,
	}
}

func TestMerge_UnionsAndPrefersHigherTier(t *testing.T) {
	r := NewRecord("Soil Health", "BIOME MAKERS")
	r.Merge(finding("gemini", "biome makers, inc.", "https://biome.example", "USA", model.TierUnverified, "https://a.io/"))
	r.Merge(finding("claude", "Biome Makers", "https://biomemakers.com", "United States", model.TierPrimary, "https://b.io", "https://a.io"))

	c := r.Snapshot()
	assert.Equal(t, "Biome Makers", c.Name)
	assert.Equal(t, "https://biomemakers.com", c.Website)
	assert.Equal(t, "United States", c.Country)
	assert.Equal(t, model.TierPrimary, c.EvidenceTier)
	assert.Equal(t, []string{"https://a.io", "https://b.io"}, c.Sources)
	assert.Equal(t, []string{"claude", "gemini"}, c.Providers)
	assert.False(t, c.HasConflicts())
}

func TestMerge_EqualTierConflict(t *testing.T) {
	r := NewRecord("Soil Health", "BIOME MAKERS")
	r.Merge(finding("claude", "Biome Makers", "https://biomemakers.com", "Spain", model.TierVendor))
	r.Merge(finding("gemini", "Biome Makers", "https://www.biomemakers.com/", "United States", model.TierVendor))

	c := r.Snapshot()
	assert.NotContains(t, c.Conflicts, FieldWebsite)
	require.Contains(t, c.Conflicts, FieldCountry)
	assert.Equal(t, []string{"SPAIN", "UNITED STATES"}, c.Conflicts[FieldCountry])

	// A higher tier settles the dispute.
	r.Merge(finding("pplx", "Biome Makers", "", "United States", model.TierPrimary))
	c = r.Snapshot()
	assert.False(t, c.HasConflicts())
	assert.Equal(t, "United States", c.Country)
}

func TestMerge_KeepsEverySummary(t *testing.T) {
	short := finding("claude", "Biome Makers", "", "", model.TierVendor)
	short.Summary = "Soil analytics on 2 million acres"
	long := finding("gemini", "Biome Makers", "", "", model.TierPrimary)
	long.Summary = "Biome Makers sells microbial sequencing to vineyards"

	r := NewRecord("Soil Health", "BIOME MAKERS")
	r.Merge(short)
	r.Merge(long)

	c := r.Snapshot()
	assert.Equal(t, long.Summary, c.Summary)
	assert.Equal(t, []string{long.Summary, short.Summary}, c.AllSummaries())
}

func TestMerge_Idempotent(t *testing.T) {
	f := finding("claude", "Biome Makers", "https://biomemakers.com", "Spain", model.TierVendor, "https://x.io")
	f.KPIAlignment = []string{"1,000 farms"}

	once := NewRecord("Soil Health", "K")
	once.Merge(f)

	twice := NewRecord("Soil Health", "K")
	twice.Merge(f)
	twice.Merge(f)

	assert.Equal(t, once.Snapshot(), twice.Snapshot())
}

func TestMerge_OrderIndependentUnderConcurrency(t *testing.T) {
	findings := []model.RawFinding{
		finding("a", "Biome Makers", "https://biomemakers.com", "Spain", model.TierVendor, "https://1.io"),
		finding("b", "biome makers, inc.", "https://biome.example", "United States", model.TierVendor, "https://2.io"),
		finding("c", "Biome Makers", "", "", model.TierUnverified, "https://3.io"),
	}

	sequential := NewRecord("Soil Health", "K")
	for i := len(findings) - 1; i >= 0; i-- {
		sequential.Merge(findings[i])
	}

	concurrent := NewRecord("Soil Health", "K")
	var wg sync.WaitGroup
	for _, f := range findings {
		wg.Add(1)
		go func() {
			defer wg.Done()
			concurrent.Merge(f)
		}()
	}
	wg.Wait()

	assert.Equal(t, sequential.Snapshot(), concurrent.Snapshot())
}

func TestFill(t *testing.T) {
	r := NewRecord("Soil Health", "K")
	r.Merge(finding("a", "Biome Makers", "", "Spain", model.TierVendor))

	assert.True(t, r.Fill(FieldWebsite, "https://biomemakers.com"))
	assert.False(t, r.Fill(FieldWebsite, "https://other.com"))
	assert.False(t, r.Fill(FieldCountry, "France"))
	assert.False(t, r.Fill("summary", "x"))

	c := r.Snapshot()
	assert.Equal(t, "https://biomemakers.com", c.Website)
	assert.Equal(t, "Spain", c.Country)
}

func TestResolve(t *testing.T) {
	r := NewRecord("Soil Health", "K")
	r.Merge(finding("a", "Biome Makers", "https://biomemakers.com", "", model.TierVendor))
	r.Merge(finding("b", "Biome Makers", "https://biome.example", "", model.TierVendor))
	before := r.Snapshot()
	require.True(t, before.HasConflicts())

	assert.False(t, r.Resolve(FieldWebsite, "https://unrelated.com"))
	assert.True(t, r.Resolve(FieldWebsite, "https://www.biomemakers.com/"))

	c := r.Snapshot()
	assert.False(t, c.HasConflicts())
	assert.Equal(t, "biomemakers.com", c.Website)
}

func TestAddSource(t *testing.T) {
	r := NewRecord("Soil Health", "K")
	assert.True(t, r.AddSource("https://a.io/"))
	assert.False(t, r.AddSource("https://a.io"))
	assert.Equal(t, []string{"https://a.io"}, r.Snapshot().Sources)
}
