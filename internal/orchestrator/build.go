package orchestrator

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/thesis-scout/internal/agent"
	"github.com/sells-group/thesis-scout/internal/config"
	"github.com/sells-group/thesis-scout/internal/gateway"
	"github.com/sells-group/thesis-scout/internal/resilience"
	"github.com/sells-group/thesis-scout/internal/tools"
	"github.com/sells-group/thesis-scout/pkg/anthropic"
	"github.com/sells-group/thesis-scout/pkg/firecrawl"
	"github.com/sells-group/thesis-scout/pkg/gemini"
	"github.com/sells-group/thesis-scout/pkg/google"
	"github.com/sells-group/thesis-scout/pkg/jina"
	"github.com/sells-group/thesis-scout/pkg/perplexity"
)

// BuildAdapters creates an adapter for every enabled provider.
func BuildAdapters(ctx context.Context, cfg *config.Config) (map[string]agent.Adapter, error) {
	out := make(map[string]agent.Adapter)
	policy := retryPolicy(cfg.Gateway)

	for _, id := range cfg.EnabledProviders() {
		p := cfg.Providers[id]
		switch p.Vendor {
		case "anthropic":
			out[id] = agent.NewAnthropic(id, p.Model, anthropic.NewClient(cfg.Anthropic.Key))
		case "gemini":
			client, err := gemini.NewClient(ctx, cfg.Gemini.Key)
			if err != nil {
				return nil, eris.Wrapf(err, "orchestrator: gemini client for %s", id)
			}
			out[id] = agent.NewGemini(id, p.Model, client)
		case "perplexity":
			client := perplexity.NewClient(cfg.Perplexity.Key,
				perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
				perplexity.WithModel(p.Model),
			)
			out[id] = agent.NewPerplexity(id, p.Model, client, policy)
		default:
			return nil, eris.Wrapf(config.ErrInvalidConfig, "provider %s has unsupported vendor %q", id, p.Vendor)
		}
	}
	return out, nil
}

// BuildTools creates the research toolset. places_lookup needs a Google key
// and the Firecrawl page fallback needs a Firecrawl key.
func BuildTools(cfg *config.Config) []gateway.Tool {
	j := jina.NewClient(cfg.Jina.Key,
		jina.WithBaseURL(cfg.Jina.BaseURL),
		jina.WithSearchBaseURL(cfg.Jina.SearchBaseURL),
	)
	var g google.Client
	if cfg.Google.Key != "" {
		g = google.NewClient(cfg.Google.Key, google.WithBaseURL(cfg.Google.BaseURL))
	}
	var fc firecrawl.Client
	if cfg.Firecrawl.Key != "" {
		fc = firecrawl.NewClient(cfg.Firecrawl.Key, firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL))
	}
	return tools.New(j, g, fc)
}

func retryPolicy(gc config.GatewayConfig) resilience.Policy {
	return resilience.NewPolicy(gc.MaxAttempts, gc.InitialBackoffMs, gc.MaxBackoffMs)
}

// newGateway builds the run-scoped gateway. Dry runs never reach the
// network. The returned func releases the shared cache connection.
func (o *Orchestrator) newGateway(dry bool) (*gateway.Gateway, func()) {
	gc := o.cfg.Gateway
	opts := []gateway.Option{
		gateway.WithPolicy(retryPolicy(gc)),
		gateway.WithAllowlist(gc.Allowlist),
		gateway.WithStub(gc.Stub || dry),
	}
	if gc.TimeoutSecs > 0 {
		opts = append(opts, gateway.WithTimeout(time.Duration(gc.TimeoutSecs)*time.Second))
	}
	if gc.BreakerFailures > 0 {
		opts = append(opts, gateway.WithBreakers(resilience.NewBreakers(gc.BreakerFailures, time.Duration(gc.BreakerResetSecs)*time.Second)))
	}

	closeFn := func() {}
	if url := o.cfg.Cache.RedisURL; url != "" && !dry {
		rc, err := gateway.NewRedisCache(url, time.Duration(o.cfg.Cache.TTLHours)*time.Hour)
		if err != nil {
			zap.L().Warn("orchestrator: shared tool cache disabled", zap.Error(err))
		} else {
			opts = append(opts, gateway.WithSharedCache(rc))
			closeFn = func() { _ = rc.Close() }
		}
	}
	return gateway.New(o.tools, opts...), closeFn
}
