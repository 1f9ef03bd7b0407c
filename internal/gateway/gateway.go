// Package gateway routes tool calls from agents and the enricher through a
// shared, run-scoped cache with timeouts, retries, and failure isolation.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/thesis-scout/internal/resilience"
)

// Result is a successful tool call.
type Result struct {
	Tool     string          `json:"tool"`
	Key      string          `json:"key"`
	Data     json.RawMessage `json:"data"`
	Cached   bool            `json:"cached"`
	Attempts int             `json:"attempts"`
	Duration time.Duration   `json:"duration"`
}

// Gateway dispatches tool calls. It is safe for concurrent use; one Gateway
// lives for one run.
type Gateway struct {
	tools     map[string]Tool
	order     []string
	timeout   time.Duration
	policy    resilience.Policy
	allowlist []string
	stub      bool
	breakers  *resilience.Breakers
	shared    SharedCache

	cache     sync.Map // key -> json.RawMessage
	group     singleflight.Group
	telemetry telemetry
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.timeout = d }
}

// WithPolicy sets the retry policy.
func WithPolicy(p resilience.Policy) Option {
	return func(g *Gateway) { g.policy = p }
}

// WithAllowlist restricts destination hosts. An empty list allows all.
func WithAllowlist(hosts []string) Option {
	return func(g *Gateway) {
		g.allowlist = nil
		for _, h := range hosts {
			if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
				g.allowlist = append(g.allowlist, h)
			}
		}
	}
}

// WithStub makes the gateway answer with deterministic placeholders and no I/O.
func WithStub(stub bool) Option {
	return func(g *Gateway) { g.stub = stub }
}

// WithBreakers sets the per-tool circuit breakers.
func WithBreakers(b *resilience.Breakers) Option {
	return func(g *Gateway) { g.breakers = b }
}

// WithSharedCache adds a second-level cache consulted on local misses.
func WithSharedCache(c SharedCache) Option {
	return func(g *Gateway) { g.shared = c }
}

// New creates a Gateway over the given tools.
func New(tools []Tool, opts ...Option) *Gateway {
	g := &Gateway{
		tools:    make(map[string]Tool, len(tools)),
		timeout:  30 * time.Second,
		policy:   resilience.DefaultPolicy(),
		breakers: resilience.NewBreakers(5, 30*time.Second),
	}
	for _, t := range tools {
		name := t.Spec().Name
		if _, dup := g.tools[name]; !dup {
			g.order = append(g.order, name)
		}
		g.tools[name] = t
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Specs returns tool specs in registration order. When names are given,
// only those tools are returned.
func (g *Gateway) Specs(names ...string) []ToolSpec {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []ToolSpec
	for _, name := range g.order {
		if len(want) > 0 && !want[name] {
			continue
		}
		out = append(out, g.tools[name].Spec())
	}
	return out
}

// Call executes a tool request. Concurrent calls with the same cache key
// share one execution; successful results are cached for the gateway's
// lifetime and failures are not.
func (g *Gateway) Call(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	g.telemetry.call(req.Tool)

	tool, ok := g.tools[req.Tool]
	if !ok {
		g.telemetry.failure(req.Tool)
		return nil, NewToolError(KindUnavailable, req.Tool, errors.New("unknown tool"))
	}

	key, err := CacheKey(req)
	if err != nil {
		g.telemetry.failure(req.Tool)
		return nil, NewToolError(KindUnavailable, req.Tool, err)
	}

	if data, ok := g.cache.Load(key); ok {
		g.telemetry.hit(req.Tool)
		return &Result{Tool: req.Tool, Key: key, Data: data.(json.RawMessage), Cached: true, Duration: time.Since(start)}, nil
	}

	// Coalesced callers share this execution, so it must not end with the
	// first caller's context. Each attempt still has its own timeout.
	shared := context.WithoutCancel(ctx)
	ch := g.group.DoChan(key, func() (any, error) {
		return g.resolve(shared, tool, req, key)
	})

	select {
	case <-ctx.Done():
		g.telemetry.failure(req.Tool)
		return nil, NewToolError(KindTimeout, req.Tool, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			g.telemetry.failure(req.Tool)
			return nil, res.Err
		}
		out := *res.Val.(*Result)
		out.Duration = time.Since(start)
		return &out, nil
	}
}

// resolve runs under singleflight for one key.
func (g *Gateway) resolve(ctx context.Context, tool Tool, req Request, key string) (*Result, error) {
	if data, ok := g.cache.Load(key); ok {
		g.telemetry.hit(req.Tool)
		return &Result{Tool: req.Tool, Key: key, Data: data.(json.RawMessage), Cached: true}, nil
	}

	if err := g.checkAllowed(tool, req); err != nil {
		return nil, err
	}

	if g.stub {
		data := stubPayload(tool, req, key)
		g.cache.Store(key, data)
		return &Result{Tool: req.Tool, Key: key, Data: data, Attempts: 0}, nil
	}

	if g.shared != nil {
		if val, ok, err := g.shared.Get(ctx, key); err != nil {
			zap.L().Debug("gateway: shared cache get failed", zap.String("tool", req.Tool), zap.Error(err))
		} else if ok && json.Valid(val) {
			g.telemetry.hit(req.Tool)
			data := json.RawMessage(val)
			g.cache.Store(key, data)
			return &Result{Tool: req.Tool, Key: key, Data: data, Cached: true}, nil
		}
	}

	breaker := g.breakers.Get(req.Tool)
	if err := breaker.Allow(); err != nil {
		return nil, NewToolError(KindUnavailable, req.Tool, err)
	}

	policy := g.policy
	policy.Retryable = func(err error) bool {
		var te *ToolError
		return errors.As(err, &te) && te.Retryable()
	}
	policy.OnRetry = func(attempt int, err error) {
		g.telemetry.retry(req.Tool)
		resilience.RetryLogger(req.Tool)(attempt, err)
	}

	data, attempts, err := resilience.Retry(ctx, policy, func(ctx context.Context) (json.RawMessage, error) {
		return g.attempt(ctx, tool, req)
	})
	breaker.Record(err != nil && ctx.Err() == nil)
	if err != nil {
		var te *ToolError
		if !errors.As(err, &te) {
			te = NewToolError(KindUnavailable, req.Tool, err)
		}
		return nil, te
	}

	g.cache.Store(key, data)
	if g.shared != nil {
		if err := g.shared.Set(ctx, key, data); err != nil {
			zap.L().Debug("gateway: shared cache set failed", zap.String("tool", req.Tool), zap.Error(err))
		}
	}
	return &Result{Tool: req.Tool, Key: key, Data: data, Attempts: attempts}, nil
}

// attempt performs one invocation under its own timeout and classifies the outcome.
func (g *Gateway) attempt(ctx context.Context, tool Tool, req Request) (json.RawMessage, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	data, err := tool.Invoke(attemptCtx, req.Args, req.Kwargs)
	if err != nil {
		var te *ToolError
		switch {
		case errors.As(err, &te):
			return nil, te
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(attemptCtx.Err(), context.DeadlineExceeded):
			return nil, NewToolError(KindTimeout, req.Tool, err)
		default:
			return nil, NewToolError(KindUnavailable, req.Tool, err)
		}
	}
	if !json.Valid(data) {
		return nil, NewToolError(KindInvalidResponse, req.Tool, errors.New("payload is not valid JSON"))
	}
	return data, nil
}

func (g *Gateway) checkAllowed(tool Tool, req Request) error {
	if len(g.allowlist) == 0 {
		return nil
	}
	d, ok := tool.(Destinationer)
	if !ok {
		return nil
	}
	host := hostOf(d.Destination(req.Args, req.Kwargs))
	if host == "" {
		return NewToolError(KindUnavailable, req.Tool, errors.New("destination has no host"))
	}
	for _, allowed := range g.allowlist {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return nil
		}
	}
	return NewToolError(KindUnavailable, req.Tool, errors.New("destination "+host+" not in allowlist"))
}

func hostOf(dest string) string {
	dest = strings.TrimSpace(dest)
	if dest == "" {
		return ""
	}
	if !strings.Contains(dest, "://") {
		dest = "https://" + dest
	}
	u, err := url.Parse(dest)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func stubPayload(tool Tool, req Request, key string) json.RawMessage {
	if s, ok := tool.(Stubber); ok {
		if data := s.Stub(req.Args, req.Kwargs); json.Valid(data) {
			return data
		}
	}
	data, _ := json.Marshal(map[string]any{"stub": true, "tool": req.Tool, "key": key})
	return data
}
