package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/thesis-scout/internal/model"
)

func TestSystemPrompt(t *testing.T) {
	p := SystemPrompt(AgentContext{
		Thesis:   "  Regenerative agriculture inputs  ",
		KPIs:     []string{"hectares under management", "yield uplift"},
		MaxTurns: 20,
	})

	assert.Contains(t, p, "Thesis:\nRegenerative agriculture inputs\n")
	assert.Contains(t, p, "- yield uplift")
	assert.Contains(t, p, `"evidence_tier":"primary|vendor|unverified"`)
	assert.Contains(t, p, "at most 20 turns")
	assert.Contains(t, p, "by turn 18")
}

func TestUserPrompt(t *testing.T) {
	p := UserPrompt(AgentContext{Segments: []model.Segment{
		{Name: "Soil Health", TargetCount: 5, Anchors: []string{"Biome Makers"}, Include: []string{"microbiome"}, Exclude: []string{"fertilizer"}},
		{Name: "Biochar", TargetCount: 3},
	}})

	assert.Contains(t, p, "Segment: Soil Health (target 5 companies)")
	assert.Contains(t, p, "Anchor examples: Biome Makers")
	assert.Contains(t, p, "Must relate to: microbiome")
	assert.Contains(t, p, "Exclude: fertilizer")
	assert.Contains(t, p, "Segment: Biochar (target 3 companies)")
}

func TestPacingHint(t *testing.T) {
	assert.Empty(t, pacingHint(0))
	assert.Contains(t, pacingHint(2), "by turn 1")
	assert.Contains(t, pacingHint(10), "by turn 8")
}
