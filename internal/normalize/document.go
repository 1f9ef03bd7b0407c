package normalize

import (
	"encoding/json"
	"strings"

	"github.com/sells-group/thesis-scout/internal/model"
)

// parseDocument strictly parses text as a segment document: an object with
// a segments list, a bare list of segments, or a single segment object.
func parseDocument(text string) ([]Group, int, bool) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, 0, false
	}

	var items []any
	switch doc := v.(type) {
	case map[string]any:
		if segs, ok := doc["segments"].([]any); ok {
			items = segs
		} else {
			items = []any{doc}
		}
	case []any:
		items = doc
	default:
		return nil, 0, false
	}

	var (
		groups    []Group
		discarded int
	)
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		g, d, ok := parseSegment(m)
		if !ok {
			continue
		}
		discarded += d
		if len(g.Companies) > 0 {
			groups = append(groups, g)
		}
	}
	return groups, discarded, len(groups) > 0
}

// parseSegment reads a {name|segment, companies} object. It reports the
// number of company entries that failed the minimum-field contract.
func parseSegment(m map[string]any) (Group, int, bool) {
	name := firstString(m, "name", "segment", "segment_name")
	list, ok := m["companies"].([]any)
	if name == "" || !ok {
		return Group{}, 0, false
	}

	g := Group{Segment: name}
	discarded := 0
	for _, item := range list {
		cm, ok := item.(map[string]any)
		if !ok {
			discarded++
			continue
		}
		c, ok := parseCompany(cm)
		if !ok {
			discarded++
			continue
		}
		g.Companies = append(g.Companies, c)
	}
	return g, discarded, true
}

// parseCompany maps a company object onto a finding. It fails unless the
// object has a name and either a summary or at least one source.
func parseCompany(m map[string]any) (model.RawFinding, bool) {
	c := model.RawFinding{
		Name:         firstString(m, "company", "name", "company_name"),
		Website:      firstString(m, "website", "url", "domain"),
		Country:      firstString(m, "country", "hq_country"),
		Summary:      firstString(m, "summary", "description"),
		KPIAlignment: stringList(m, "kpi_alignment", "kpis"),
		Sources:      stringList(m, "sources", "source", "urls"),
		EvidenceTier: model.ParseEvidenceTier(firstString(m, "evidence_tier", "tier")),
	}
	if c.Name == "" || (c.Summary == "" && len(c.Sources) == 0) {
		return model.RawFinding{}, false
	}
	return c, true
}

// companyShaped reports whether m looks like a company rather than a
// segment or some unrelated object.
func companyShaped(m map[string]any) bool {
	if _, ok := m["companies"]; ok {
		return false
	}
	if _, ok := m["segments"]; ok {
		return false
	}
	return firstString(m, "company", "name", "company_name") != ""
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

// stringList reads a list-or-string field. Non-string list entries and
// blanks are dropped.
func stringList(m map[string]any, keys ...string) []string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return []string{s}
			}
		case []any:
			var out []string
			for _, item := range v {
				if s, ok := item.(string); ok {
					if s = strings.TrimSpace(s); s != "" {
						out = append(out, s)
					}
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	return nil
}
