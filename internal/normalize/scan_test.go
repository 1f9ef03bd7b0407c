package normalize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepairTruncatedJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{`{"a":[1,2`, `{"a":[1,2]}`},
		{`{"a":"unterminated`, `{"a":"unterminated"}`},
		{`{"a":"esc\`, `{"a":"esc"}`},
		{`[{"a":"}"}`, `[{"a":"}"}]`},
		{``, ``},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, repairTruncatedJSON(tt.in))
	}
}

func TestSalvage_BacksOffToElementBoundary(t *testing.T) {
	out := salvage(`{"companies":[{"company":"A","summary":"x"},{"company":"B","summ`)
	require.True(t, json.Valid([]byte(out)), out)

	var doc struct {
		Companies []map[string]string `json:"companies"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.NotEmpty(t, doc.Companies)
	assert.Equal(t, "A", doc.Companies[0]["company"])
}

func TestScanObjects(t *testing.T) {
	text := `x {"a":{"b":"}"}} y {"c":1`
	spans := scanObjects(text)

	require.Len(t, spans, 3)
	assert.Equal(t, `{"a":{"b":"}"}}`, spans[0].text(text))
	assert.Equal(t, `{"b":"}"}`, spans[1].text(text))
	assert.False(t, spans[2].closed)
	assert.Equal(t, `{"c":1}`, spans[2].text(text))
}

func TestEmbeddedCandidates(t *testing.T) {
	text := "intro\n```json\n{\"a\":1}\n```\nmiddle\n```\n[2]\n```"
	cands := embeddedCandidates(text)

	require.Len(t, cands, 3)
	assert.Equal(t, `{"a":1}`, cands[0])
	assert.Equal(t, `[2]`, cands[1])
}

func TestOutermostSpan(t *testing.T) {
	assert.Equal(t, `{"a":1}`, outermostSpan(`say {"a":1} ok`))
	assert.Equal(t, `[1,2`, outermostSpan(`list [1,2`))
	assert.Empty(t, outermostSpan("nothing"))
}

func TestSingleValue(t *testing.T) {
	assert.True(t, singleValue(`{"a":[1,2]}`))
	assert.True(t, singleValue(`{"a":"}"} `))
	assert.True(t, singleValue(`{"a":[1,2`))
	assert.False(t, singleValue(`{"a":1} prose {"b":2}`))
}
