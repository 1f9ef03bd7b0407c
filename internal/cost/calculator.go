package cost

import (
	"github.com/sells-group/thesis-scout/internal/config"
)

// Rates holds per-vendor pricing configuration.
type Rates struct {
	Anthropic  map[string]ModelRate `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini     map[string]ModelRate `yaml:"gemini" mapstructure:"gemini"`
	Perplexity PerplexityRate       `yaml:"perplexity" mapstructure:"perplexity"`
}

// ModelRate holds per-model token pricing (per million tokens).
type ModelRate struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// PerplexityRate holds Perplexity pricing.
type PerplexityRate struct {
	PerQuery float64 `yaml:"per_query" mapstructure:"per_query"`
}

// Usage is the token usage of one agent run.
type Usage struct {
	Input      int64
	Output     int64
	CacheWrite int64
	CacheRead  int64
	Queries    int
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Claude computes the cost for Claude token usage.
func (c *Calculator) Claude(model string, u Usage) float64 {
	rate, ok := c.rates.Anthropic[model]
	if !ok {
		return 0
	}

	inCost := (float64(u.Input) / 1e6) * rate.Input
	outCost := (float64(u.Output) / 1e6) * rate.Output
	cwCost := (float64(u.CacheWrite) / 1e6) * rate.Input * rate.CacheWriteMul
	crCost := (float64(u.CacheRead) / 1e6) * rate.Input * rate.CacheReadMul

	return inCost + outCost + cwCost + crCost
}

// Gemini computes the cost for Gemini token usage.
func (c *Calculator) Gemini(model string, u Usage) float64 {
	rate, ok := c.rates.Gemini[model]
	if !ok {
		return 0
	}
	return (float64(u.Input)/1e6)*rate.Input + (float64(u.Output)/1e6)*rate.Output
}

// PerplexityQuery returns the flat cost per Perplexity query.
func (c *Calculator) PerplexityQuery() float64 {
	return c.rates.Perplexity.PerQuery
}

// Estimate returns the cost of a run on the given vendor. Unknown vendors
// and models cost zero.
func (c *Calculator) Estimate(vendor, model string, u Usage) float64 {
	switch vendor {
	case "anthropic":
		return c.Claude(model, u)
	case "gemini":
		return c.Gemini(model, u)
	case "perplexity":
		return float64(u.Queries) * c.PerplexityQuery()
	default:
		return 0
	}
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5-20251001": {
				Input: 1.00, Output: 5.00,
				CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
			"claude-sonnet-4-5-20250929": {
				Input: 3.00, Output: 15.00,
				CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
			"claude-opus-4-6": {
				Input: 15.00, Output: 75.00,
				CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
		},
		Gemini: map[string]ModelRate{
			"gemini-2.5-flash": {Input: 0.30, Output: 2.50},
			"gemini-2.5-pro":   {Input: 1.25, Output: 10.00},
		},
		Perplexity: PerplexityRate{PerQuery: 0.005},
	}
}

// FromConfig overlays configured pricing onto the defaults.
func FromConfig(p config.PricingConfig) Rates {
	rates := DefaultRates()
	for model, mp := range p.Anthropic {
		r := rates.Anthropic[model]
		r.Input, r.Output = mp.Input, mp.Output
		if r.CacheWriteMul == 0 {
			r.CacheWriteMul, r.CacheReadMul = 1.25, 0.1
		}
		rates.Anthropic[model] = r
	}
	for model, mp := range p.Gemini {
		rates.Gemini[model] = ModelRate{Input: mp.Input, Output: mp.Output}
	}
	if p.Perplexity.PerQuery > 0 {
		rates.Perplexity.PerQuery = p.Perplexity.PerQuery
	}
	return rates
}
