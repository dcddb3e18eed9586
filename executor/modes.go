package executor

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/agentpilot/core"
)

// runSequential dispatches the calls one at a time in input order. Under
// FailFast the first failed call stops dispatch and the remaining calls
// settle as skipped, so the batch still yields one result per call.
func (e *Executor) runSequential(ctx context.Context, runID string, state *core.TurnState, calls []core.PendingToolCall) []core.ToolCallResult {
	results := make([]core.ToolCallResult, 0, len(calls))
	for i, call := range calls {
		result := e.runCall(ctx, runID, state, call)
		results = append(results, result)

		if e.opts.FailureMode == FailFast && result.Failed() {
			for _, rest := range calls[i+1:] {
				results = append(results, e.skippedResult(rest, call.Name))
			}
			break
		}
	}
	return results
}

// runParallel dispatches every call concurrently and waits for all of them.
// Results come back in input order. The group context is cancelled once the
// batch settles, which is the courtesy signal late handlers can observe.
func (e *Executor) runParallel(ctx context.Context, runID string, state *core.TurnState, calls []core.PendingToolCall) []core.ToolCallResult {
	results := make([]core.ToolCallResult, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			results[i] = e.runCall(gctx, runID, state, call)
			return nil
		})
	}
	// Goroutines settle their slot and never return an error.
	_ = g.Wait()

	return results
}
