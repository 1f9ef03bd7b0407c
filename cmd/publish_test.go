package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/thesis-scout/internal/config"
	"github.com/sells-group/thesis-scout/internal/publish"
)

func withConfig(t *testing.T, c *config.Config) {
	t.Helper()
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}

func TestInitSink_Notion(t *testing.T) {
	withConfig(t, &config.Config{
		Publish: config.PublishConfig{Target: "notion"},
		Notion:  config.NotionConfig{Token: "secret", DatabaseID: "db-1"},
	})

	sink, err := initSink()
	require.NoError(t, err)
	assert.IsType(t, &publish.NotionPublisher{}, sink)
}

func TestInitSink_SalesforceMissingKey(t *testing.T) {
	withConfig(t, &config.Config{
		Publish:    config.PublishConfig{Target: "salesforce"},
		Salesforce: config.SalesforceConfig{KeyPath: filepath.Join(t.TempDir(), "missing.pem")},
	})

	_, err := initSink()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read salesforce JWT private key")
}

func TestInitSink_Unknown(t *testing.T) {
	withConfig(t, &config.Config{Publish: config.PublishConfig{Target: "hubspot"}})

	_, err := initSink()
	assert.ErrorContains(t, err, "unsupported publish target")
}
