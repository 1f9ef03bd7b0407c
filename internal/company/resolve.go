package company

import (
	"strings"

	"github.com/sells-group/thesis-scout/internal/model"
)

// Keys assigns each finding its canonical key. Findings in the same segment
// share a key when their normalized names match or, secondarily, their
// websites share a domain. A cluster's key is its smallest normalized name,
// so the assignment does not depend on input order.
func Keys(findings []model.RawFinding) []string {
	parent := make([]int, len(findings))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	type scoped struct{ segment, value string }
	byName := make(map[scoped]int)
	byDomain := make(map[scoped]int)
	names := make([]string, len(findings))

	for i, f := range findings {
		names[i] = NormalizeName(f.Name)
		if names[i] != "" {
			k := scoped{f.Segment, names[i]}
			if j, ok := byName[k]; ok {
				union(j, i)
			} else {
				byName[k] = i
			}
		}
		if d := identifyingDomain(f.Website); d != "" {
			k := scoped{f.Segment, d}
			if j, ok := byDomain[k]; ok {
				union(j, i)
			} else {
				byDomain[k] = i
			}
		}
	}

	best := make(map[int]string)
	for i := range findings {
		key := names[i]
		if key == "" {
			key = "RAW " + strings.ToLower(strings.TrimSpace(findings[i].Name))
		}
		r := find(i)
		if cur, ok := best[r]; !ok || key < cur {
			best[r] = key
		}
	}

	keys := make([]string, len(findings))
	for i := range findings {
		keys[i] = best[find(i)]
	}
	return keys
}
