package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/thesis-scout/internal/config"
	"github.com/sells-group/thesis-scout/internal/tools"
)

func toolNames(cfg *config.Config) []string {
	var names []string
	for _, t := range BuildTools(cfg) {
		names = append(names, t.Spec().Name)
	}
	return names
}

func TestBuildTools_OptionalBackends(t *testing.T) {
	cfg := &config.Config{}
	assert.Equal(t, []string{tools.WebSearchName, tools.FetchPageName}, toolNames(cfg))

	cfg.Google.Key = "g-key"
	cfg.Firecrawl.Key = "fc-key"
	assert.Equal(t, []string{tools.WebSearchName, tools.FetchPageName, tools.PlacesLookupName}, toolNames(cfg))
}

func TestBuildAdapters(t *testing.T) {
	cfg := &config.Config{Providers: map[string]config.ProviderConfig{
		"claude":  {Enabled: true, Vendor: "anthropic", Model: "claude-sonnet-4-5"},
		"sonar":   {Enabled: true, Vendor: "perplexity", Model: "sonar-pro"},
		"offline": {Enabled: false, Vendor: "gemini"},
	}}

	adapters, err := BuildAdapters(context.Background(), cfg)
	require.NoError(t, err)
	assert.Len(t, adapters, 2)
	assert.Contains(t, adapters, "claude")
	assert.Contains(t, adapters, "sonar")
}

func TestBuildAdapters_UnsupportedVendor(t *testing.T) {
	cfg := &config.Config{Providers: map[string]config.ProviderConfig{
		"x": {Enabled: true, Vendor: "mistral"},
	}}

	_, err := BuildAdapters(context.Background(), cfg)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}
