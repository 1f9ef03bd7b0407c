package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrInvalidConfig marks configuration problems that must abort a run.
var ErrInvalidConfig = errors.New("invalid configuration")

// Validate checks the configuration required by a command mode.
// Supported modes are "run", "publish" and "serve".
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "run":
		problems = append(problems, c.validateRun()...)
	case "publish":
		problems = append(problems, c.validatePublish()...)
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
		}
	}

	if c.Store.Driver != "" && c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
		problems = append(problems, fmt.Sprintf("store.driver %q is not supported", c.Store.Driver))
	}

	if len(problems) == 0 {
		return nil
	}
	return eris.Wrap(ErrInvalidConfig, strings.Join(problems, "; "))
}

func (c *Config) validateRun() []string {
	var problems []string

	if strings.TrimSpace(c.Research.Thesis) == "" {
		problems = append(problems, "research.thesis is required")
	}
	if len(c.Research.Segments) == 0 {
		problems = append(problems, "research.segments is required")
	}
	for i, s := range c.Research.Segments {
		if strings.TrimSpace(s.Name) == "" {
			problems = append(problems, fmt.Sprintf("research.segments[%d].name is required", i))
		}
	}

	enabled := c.EnabledProviders()
	if len(enabled) == 0 {
		problems = append(problems, "at least one provider must be enabled")
	}
	for _, id := range enabled {
		p := c.Providers[id]
		if p.Model == "" {
			problems = append(problems, fmt.Sprintf("providers.%s.model is required", id))
		}
		if p.MaxTurns < 1 {
			problems = append(problems, fmt.Sprintf("providers.%s.max_turns must be at least 1", id))
		}
		switch p.Vendor {
		case "anthropic", "gemini", "perplexity":
		default:
			problems = append(problems, fmt.Sprintf("providers.%s.vendor %q is not supported", id, p.Vendor))
		}
	}

	t := c.Validation.AcceptanceThreshold
	if t <= 0 || t > 1 {
		problems = append(problems, "validation.acceptance_threshold is required and must be in (0, 1]")
	}
	if c.Validation.MaxEnrichConcurrency < 1 {
		problems = append(problems, "validation.max_enrich_concurrency must be at least 1")
	}
	if c.Validation.EnrichRatePerSec <= 0 {
		problems = append(problems, "validation.enrich_rate_per_sec must be positive")
	}
	if c.Run.Concurrency < 0 {
		problems = append(problems, "run.concurrency must not be negative")
	}
	if c.Run.DeadlineMins <= 0 {
		problems = append(problems, "run.deadline_mins must be positive")
	}
	if c.Gateway.TimeoutSecs <= 0 {
		problems = append(problems, "gateway.timeout_secs must be positive")
	}
	return problems
}

func (c *Config) validatePublish() []string {
	var problems []string
	switch c.Publish.Target {
	case "notion":
		if c.Notion.Token == "" {
			problems = append(problems, "notion.token is required to publish")
		}
		if c.Notion.DatabaseID == "" {
			problems = append(problems, "notion.database_id is required to publish")
		}
	case "salesforce":
		if c.Salesforce.ClientID == "" {
			problems = append(problems, "salesforce.client_id is required to publish")
		}
		if c.Salesforce.Username == "" {
			problems = append(problems, "salesforce.username is required to publish")
		}
		if c.Salesforce.KeyPath == "" {
			problems = append(problems, "salesforce.key_path is required to publish")
		}
	default:
		problems = append(problems, fmt.Sprintf("publish.target %q is not supported", c.Publish.Target))
	}
	return problems
}
