package validate

import (
	"sort"
	"sync"

	"github.com/sells-group/thesis-scout/internal/company"
	"github.com/sells-group/thesis-scout/internal/model"
)

type recordKey struct {
	segment string
	key     string
}

// Deduper collects findings into canonical records, one per segment and
// canonical key. The map lock only guards record lookup; merges take the
// record's own lock.
type Deduper struct {
	mu      sync.Mutex
	records map[recordKey]*company.Record
}

// NewDeduper creates an empty Deduper.
func NewDeduper() *Deduper {
	return &Deduper{records: make(map[recordKey]*company.Record)}
}

// Add merges f into the record for (f.Segment, key). Safe for concurrent use.
func (d *Deduper) Add(key string, f model.RawFinding) {
	rk := recordKey{segment: f.Segment, key: key}

	d.mu.Lock()
	rec, ok := d.records[rk]
	if !ok {
		rec = company.NewRecord(f.Segment, key)
		d.records[rk] = rec
	}
	d.mu.Unlock()

	rec.Merge(f)
}

// Len returns the number of canonical records.
func (d *Deduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.records)
}

// Records returns the records ordered by segment rank, then canonical key.
// Segments missing from order sort after known ones, by name.
func (d *Deduper) Records(order []string) []*company.Record {
	rank := make(map[string]int, len(order))
	for i, s := range order {
		rank[s] = i
	}
	segRank := func(s string) int {
		if r, ok := rank[s]; ok {
			return r
		}
		return len(order)
	}

	d.mu.Lock()
	keys := make([]recordKey, 0, len(d.records))
	for k := range d.records {
		keys = append(keys, k)
	}
	d.mu.Unlock()

	sort.Slice(keys, func(i, j int) bool {
		ri, rj := segRank(keys[i].segment), segRank(keys[j].segment)
		if ri != rj {
			return ri < rj
		}
		if keys[i].segment != keys[j].segment {
			return keys[i].segment < keys[j].segment
		}
		return keys[i].key < keys[j].key
	})

	out := make([]*company.Record, len(keys))
	d.mu.Lock()
	for i, k := range keys {
		out[i] = d.records[k]
	}
	d.mu.Unlock()
	return out
}
