package gateway

import (
	"sync"
	"sync/atomic"

	"github.com/sells-group/thesis-scout/internal/model"
)

type counters struct {
	calls     atomic.Int64
	cacheHits atomic.Int64
	failures  atomic.Int64
	retries   atomic.Int64
}

func (c *counters) snapshot() model.ToolTelemetry {
	return model.ToolTelemetry{
		Calls:     c.calls.Load(),
		CacheHits: c.cacheHits.Load(),
		Failures:  c.failures.Load(),
		Retries:   c.retries.Load(),
	}
}

// telemetry holds run totals and per-tool counters.
type telemetry struct {
	total   counters
	perTool sync.Map // tool name -> *counters
}

func (t *telemetry) tool(name string) *counters {
	if c, ok := t.perTool.Load(name); ok {
		return c.(*counters)
	}
	c, _ := t.perTool.LoadOrStore(name, &counters{})
	return c.(*counters)
}

func (t *telemetry) call(name string) {
	t.total.calls.Add(1)
	t.tool(name).calls.Add(1)
}

func (t *telemetry) hit(name string) {
	t.total.cacheHits.Add(1)
	t.tool(name).cacheHits.Add(1)
}

func (t *telemetry) failure(name string) {
	t.total.failures.Add(1)
	t.tool(name).failures.Add(1)
}

func (t *telemetry) retry(name string) {
	t.total.retries.Add(1)
	t.tool(name).retries.Add(1)
}

// Telemetry returns run totals.
func (g *Gateway) Telemetry() model.ToolTelemetry {
	return g.telemetry.total.snapshot()
}

// ToolTelemetry returns a per-tool snapshot.
func (g *Gateway) ToolTelemetry() map[string]model.ToolTelemetry {
	out := make(map[string]model.ToolTelemetry)
	g.telemetry.perTool.Range(func(k, v any) bool {
		out[k.(string)] = v.(*counters).snapshot()
		return true
	})
	return out
}
