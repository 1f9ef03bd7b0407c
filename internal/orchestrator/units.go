package orchestrator

import (
	"strings"

	"github.com/sells-group/thesis-scout/internal/config"
	"github.com/sells-group/thesis-scout/internal/model"
	"github.com/sells-group/thesis-scout/internal/normalize"
)

// unit is one provider working one segment, or a batch of segments.
type unit struct {
	provider string
	segments []model.Segment
}

// buildUnits expands providers × segments, honoring per-provider batching.
func buildUnits(providers []string, cfgs map[string]config.ProviderConfig, segments []model.Segment) []unit {
	var units []unit
	for _, id := range providers {
		if cfgs[id].BatchSegments {
			units = append(units, unit{provider: id, segments: segments})
			continue
		}
		for _, s := range segments {
			units = append(units, unit{provider: id, segments: []model.Segment{s}})
		}
	}
	return units
}

// segmentKey folds case and spacing so "soil  health" matches "Soil Health".
func segmentKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// assignSegments maps recovered group names onto configured segments.
// Groups a single-segment unit could not place go to that segment; for
// batches they fall back to the unstructured pseudo-segment.
func assignSegments(res normalize.Result, u unit, segments []model.Segment) normalize.Result {
	known := make(map[string]string, len(segments))
	for _, s := range segments {
		known[segmentKey(s.Name)] = s.Name
	}

	out := res
	out.Groups = make([]normalize.Group, len(res.Groups))
	for i, g := range res.Groups {
		name, ok := known[segmentKey(g.Segment)]
		switch {
		case ok:
		case len(u.segments) == 1:
			name = u.segments[0].Name
		default:
			name = normalize.UnstructuredSegment
		}
		out.Groups[i] = normalize.Group{Segment: name, Companies: g.Companies}
	}
	return out
}
