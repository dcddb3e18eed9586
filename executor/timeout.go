package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/agentpilot/core"
	"github.com/hupe1980/agentpilot/tool"
)

// callOutcome carries a handler's return values across the dispatch goroutine
// boundary.
type callOutcome struct {
	value any
	err   error
}

// effectiveTimeout resolves the per-call timeout: the tool's own declaration
// wins over the default, and MaxTimeout caps both.
func (e *Executor) effectiveTimeout(t tool.Tool) time.Duration {
	d := t.Timeout()
	if d <= 0 {
		d = e.opts.DefaultTimeout
	}
	if e.opts.MaxTimeout > 0 && d > e.opts.MaxTimeout {
		d = e.opts.MaxTimeout
	}
	return d
}

// runCall settles exactly one call, consuming the retry budget for
// retryable failures (execution errors and timeouts) with a doubling backoff
// between attempts. The last attempt's result wins.
func (e *Executor) runCall(ctx context.Context, runID string, state *core.TurnState, call core.PendingToolCall) core.ToolCallResult {
	t, ok := e.registry.Get(call.Name)
	if !ok {
		return e.notFoundResult(call)
	}

	result := e.attemptCall(ctx, runID, state, call, t)
	delay := e.opts.RetryDelay
	for attempt := 1; attempt <= e.opts.RetryAttempts; attempt++ {
		if !result.Failed() || result.Error == nil || !core.Classify(result.Error.Kind).Retryable {
			break
		}
		e.opts.Logger.Debug("tool.call.retry",
			"tool", call.Name,
			"call_id", call.ID,
			"attempt", attempt,
			"delay", delay,
		)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return result
		}
		delay *= 2
		result = e.attemptCall(ctx, runID, state, call, t)
	}
	return result
}

// attemptCall dispatches one attempt and always settles it with a result.
//
// The timeout is advisory. The handler runs on its own goroutine with the
// call context cancelled at the deadline, but it is never preempted: when the
// deadline wins the race the call settles as KindToolTimeout and a late
// handler return is discarded. Handler panics settle as KindToolExecution.
func (e *Executor) attemptCall(ctx context.Context, runID string, state *core.TurnState, call core.PendingToolCall, t tool.Tool) core.ToolCallResult {
	timeout := e.effectiveTimeout(t)
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	e.opts.Logger.Debug("tool.call.start", "tool", call.Name, "call_id", call.ID, "timeout", timeout)
	e.opts.Hooks.ToolCallStart(call)

	start := time.Now()
	done := make(chan callOutcome, 1) // buffered so a late handler never blocks

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- callOutcome{err: core.NewAgentError(core.KindToolExecution, "tool %q panicked: %v", call.Name, r)}
			}
		}()
		tc := core.NewToolContext(callCtx, runID, call.ID, state, e.opts.Logger)
		value, err := t.Call(tc, call.Arguments)
		done <- callOutcome{value: value, err: err}
	}()

	var result core.ToolCallResult
	select {
	case outcome := <-done:
		result = e.settle(call, outcome, time.Since(start))
	case <-callCtx.Done():
		result = e.settleTimeout(call, timeout, callCtx.Err(), time.Since(start))
	}

	e.opts.Logger.Debug("tool.call.end",
		"tool", call.Name,
		"call_id", call.ID,
		"success", result.Success,
		"duration", result.Duration,
	)
	e.opts.Hooks.ToolCallEnd(result)
	return result
}

// settle converts a handler outcome into a result, classifying handler
// errors that are not already classified.
func (e *Executor) settle(call core.PendingToolCall, outcome callOutcome, elapsed time.Duration) core.ToolCallResult {
	if outcome.err != nil {
		ae := core.WrapError(core.KindToolExecution, outcome.err, "tool %q failed: %v", call.Name, outcome.err).
			With("tool", call.Name).
			With("call_id", call.ID)
		e.opts.Hooks.Error(ae)
		return core.ToolCallResult{CallID: call.ID, Tool: call.Name, Error: ae, Duration: elapsed}
	}
	return core.ToolCallResult{CallID: call.ID, Tool: call.Name, Success: true, Result: outcome.value, Duration: elapsed}
}

// settleTimeout synthesizes the result for a call whose deadline won. The
// outer run context cancelling also lands here; it keeps the timeout kind so
// the retry policy stays uniform, with the cause preserved for inspection.
func (e *Executor) settleTimeout(call core.PendingToolCall, timeout time.Duration, cause error, elapsed time.Duration) core.ToolCallResult {
	ae := core.NewAgentError(core.KindToolTimeout, "tool %q did not settle within %s", call.Name, timeout).
		With("tool", call.Name).
		With("call_id", call.ID).
		With("timeout", timeout.String())
	if cause != nil && cause != context.DeadlineExceeded {
		ae.Err = fmt.Errorf("call context: %w", cause)
	}
	e.opts.Logger.Warn("tool.call.timeout", "tool", call.Name, "call_id", call.ID, "timeout", timeout)
	e.opts.Hooks.Error(ae)
	return core.ToolCallResult{CallID: call.ID, Tool: call.Name, Error: ae, Duration: elapsed}
}
