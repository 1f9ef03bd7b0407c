package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/thesis-scout/internal/cost"
	"github.com/sells-group/thesis-scout/internal/gateway"
	"github.com/sells-group/thesis-scout/internal/model"
)

// ToolCaller dispatches tool calls. *gateway.Gateway satisfies it.
type ToolCaller interface {
	Call(ctx context.Context, req gateway.Request) (*gateway.Result, error)
	Specs(names ...string) []gateway.ToolSpec
}

// Runner drives one adapter's conversation per unit of work.
type Runner struct {
	tools   ToolCaller
	calc    *cost.Calculator
	perTurn int
}

// NewRunner creates a Runner. perTurn bounds concurrent tool calls within
// one turn.
func NewRunner(tools ToolCaller, calc *cost.Calculator, perTurn int) *Runner {
	if perTurn <= 0 {
		perTurn = 4
	}
	return &Runner{tools: tools, calc: calc, perTurn: perTurn}
}

// Run executes turns until the agent gives a final answer, the turn cap is
// hit, the vendor fails, or ctx is done. It never returns an error: every
// outcome is carried by the result status, and partial text is kept.
func (r *Runner) Run(ctx context.Context, a Adapter, actx AgentContext) model.ProviderRunResult {
	start := time.Now()
	res := model.ProviderRunResult{
		Provider:  a.ID(),
		Model:     a.Model(),
		Segments:  actx.SegmentNames(),
		StartedAt: start.UTC(),
	}
	log := zap.L().With(
		zap.String("run_id", actx.RunID),
		zap.String("provider", a.ID()),
		zap.Strings("segments", res.Segments),
	)

	var (
		partial []string
		usage   cost.Usage
	)
	finish := func(status model.RunStatus, raw, reason string) model.ProviderRunResult {
		res.Status = status
		res.RawOutput = raw
		res.Error = reason
		res.Telemetry.InputTokens = usage.Input + usage.CacheWrite + usage.CacheRead
		res.Telemetry.OutputTokens = usage.Output
		if r.calc != nil {
			res.Telemetry.CostUSD = r.calc.Estimate(a.Vendor(), a.Model(), usage)
		}
		res.Telemetry.DurationMs = time.Since(start).Milliseconds()
		log.Info("agent: run finished",
			zap.String("status", string(status)),
			zap.Int("turns", res.Telemetry.Turns),
			zap.Int("tool_calls", res.Telemetry.ToolCalls),
			zap.Int("tool_errors", res.Telemetry.ToolErrors),
			zap.String("reason", reason),
		)
		return res
	}
	joined := func() string { return strings.Join(partial, "\n") }

	sess, err := a.NewSession(actx, a.ListTools(r.tools.Specs()))
	if err != nil {
		return finish(model.RunStatusError, "", err.Error())
	}

	var results []ToolResult
	for turn := 1; turn <= actx.MaxTurns; turn++ {
		if ctx.Err() != nil {
			return finish(model.RunStatusError, joined(), cancelReason(ctx))
		}

		t, err := sess.SubmitTurn(ctx, results)
		if err != nil {
			if ctx.Err() != nil {
				return finish(model.RunStatusError, joined(), cancelReason(ctx))
			}
			log.Warn("agent: turn failed", zap.Int("turn", turn), zap.Error(err))
			return finish(model.RunStatusError, joined(), err.Error())
		}

		res.Telemetry.Turns = turn
		usage.Input += t.Usage.Input
		usage.Output += t.Usage.Output
		usage.CacheWrite += t.Usage.CacheWrite
		usage.CacheRead += t.Usage.CacheRead
		usage.Queries += t.Usage.Queries
		if t.Text != "" {
			partial = append(partial, t.Text)
		}

		if t.Final {
			raw := t.Text
			if raw == "" {
				raw = joined()
			}
			return finish(model.RunStatusCompleted, raw, "")
		}

		log.Debug("agent: turn", zap.Int("turn", turn), zap.Int("tool_calls", len(t.ToolCalls)))
		results = r.dispatch(ctx, t.ToolCalls, &res.Telemetry)
	}

	return finish(model.RunStatusMaxTurnsReached, joined(), "")
}

// dispatch runs one turn's tool calls concurrently and returns results in
// call order. Failed calls become error results.
func (r *Runner) dispatch(ctx context.Context, calls []ToolCall, tel *model.Telemetry) []ToolResult {
	if len(calls) == 0 {
		return nil
	}

	results := make([]ToolResult, len(calls))
	var failures atomic.Int64

	var g errgroup.Group
	g.SetLimit(r.perTurn)
	for i, c := range calls {
		g.Go(func() error {
			results[i] = ToolResult{CallID: c.ID, Name: c.Name}
			if c.ArgsErr != nil {
				failures.Add(1)
				results[i].IsError = true
				results[i].Content, _ = json.Marshal(map[string]string{"error": "invalid_arguments", "message": c.ArgsErr.Error()})
				return nil
			}
			out, err := r.tools.Call(ctx, gateway.Request{Tool: c.Name, Kwargs: c.Args})
			if err != nil {
				failures.Add(1)
				results[i].IsError = true
				results[i].Content = errorContent(err)
				return nil
			}
			results[i].Content = out.Data
			return nil
		})
	}
	_ = g.Wait()

	tel.ToolCalls += len(calls)
	tel.ToolErrors += int(failures.Load())
	return results
}

func errorContent(err error) json.RawMessage {
	kind := "unavailable"
	if k, ok := gateway.KindOf(err); ok {
		kind = string(k)
	}
	b, _ := json.Marshal(map[string]string{"error": kind, "message": err.Error()})
	return b
}

func cancelReason(ctx context.Context) string {
	if errors.Is(ctx.Err(), context.Canceled) {
		return "cancelled"
	}
	return "deadline exceeded"
}
