package executor

import (
	"context"
	"time"

	"github.com/hupe1980/agentpilot/core"
	"github.com/hupe1980/agentpilot/logging"
	"github.com/hupe1980/agentpilot/tool"
)

// FailureMode controls how a batch outcome is judged once all calls settled.
type FailureMode string

const (
	// FailFast stops dispatching at the first failed call (sequential mode)
	// and fails the round.
	FailFast FailureMode = "fail_fast"
	// FailAtEnd runs every call to completion and fails the round if any
	// call failed.
	FailAtEnd FailureMode = "fail_at_end"
	// ContinueOnFailure never fails the round; failures are surfaced to the
	// model through the results.
	ContinueOnFailure FailureMode = "continue_on_failure"
	// PartialSuccess fails the round only when the failure ratio exceeds
	// the configured tolerance.
	PartialSuccess FailureMode = "partial_success"
)

// Options configures an Executor. Use the With* functions to set them.
type Options struct {
	// Parallel dispatches independent calls concurrently.
	Parallel bool
	// UseDependencies schedules calls along the declared tool dependency
	// graph instead of flat order. Implies concurrent dispatch of ready
	// calls.
	UseDependencies bool
	// FailureMode selects the round failure policy.
	FailureMode FailureMode
	// FailureTolerance is the accepted failure ratio for PartialSuccess.
	FailureTolerance float64
	// DefaultTimeout applies to tools that do not declare their own.
	DefaultTimeout time.Duration
	// MaxTimeout, when positive, caps every per-call timeout.
	MaxTimeout time.Duration
	// RetryAttempts is the number of extra attempts for retryable call
	// failures (execution errors and timeouts).
	RetryAttempts int
	// RetryDelay is the backoff before the first retry; it doubles per attempt.
	RetryDelay time.Duration
	// Gate, when set, restricts dispatch to tools it accepts. Calls to
	// registered but rejected tools settle as synthesized failures.
	Gate func(name string) bool
	// Logger receives executor events. Defaults to a no-op logger.
	Logger logging.Logger
	// Hooks receives per-call lifecycle callbacks.
	Hooks *core.Hooks
}

// Option mutates executor options.
type Option func(*Options)

// WithParallel enables concurrent dispatch of the batch.
func WithParallel(parallel bool) Option {
	return func(o *Options) { o.Parallel = parallel }
}

// WithDependencies enables dependency-graph scheduling.
func WithDependencies(use bool) Option {
	return func(o *Options) { o.UseDependencies = use }
}

// WithFailureMode sets the round failure policy.
func WithFailureMode(mode FailureMode) Option {
	return func(o *Options) { o.FailureMode = mode }
}

// WithFailureTolerance sets the accepted failure ratio for PartialSuccess.
func WithFailureTolerance(tolerance float64) Option {
	return func(o *Options) { o.FailureTolerance = tolerance }
}

// WithDefaultTimeout sets the fallback per-call timeout.
func WithDefaultTimeout(d time.Duration) Option {
	return func(o *Options) { o.DefaultTimeout = d }
}

// WithMaxTimeout caps every per-call timeout.
func WithMaxTimeout(d time.Duration) Option {
	return func(o *Options) { o.MaxTimeout = d }
}

// WithRetry configures the retry budget and initial backoff for retryable
// call failures.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(o *Options) {
		o.RetryAttempts = attempts
		o.RetryDelay = delay
	}
}

// WithToolGate restricts dispatch to the tools the gate accepts. Rejected
// calls never execute; they settle as synthesized not-found failures so the
// model learns the tool is out of reach in this round.
func WithToolGate(gate func(name string) bool) Option {
	return func(o *Options) { o.Gate = gate }
}

// WithLogger sets the executor logger.
func WithLogger(logger logging.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

// WithHooks sets the per-call lifecycle hooks.
func WithHooks(hooks *core.Hooks) Option {
	return func(o *Options) { o.Hooks = hooks }
}

// BatchResult is the settled outcome of one batch. Results holds exactly one
// entry per pending call, in input order; synthesized failures occupy the
// position of the call that produced them. Err is the round-level verdict
// under the configured failure mode; a non-nil Err still comes with the full
// result set.
type BatchResult struct {
	Results []core.ToolCallResult
	Err     *core.AgentError
}

// Failures returns the failed results, skipped ones included.
func (b *BatchResult) Failures() []core.ToolCallResult {
	var failed []core.ToolCallResult
	for _, r := range b.Results {
		if r.Failed() {
			failed = append(failed, r)
		}
	}
	return failed
}

// Executor settles batches of pending tool calls against a registry. An
// Executor is stateless between batches and safe for concurrent use.
type Executor struct {
	registry *tool.Registry
	opts     Options
}

// New creates an Executor over the given registry.
func New(registry *tool.Registry, opts ...Option) *Executor {
	options := Options{
		FailureMode:      FailAtEnd,
		FailureTolerance: 0.5,
		DefaultTimeout:   30 * time.Second,
		RetryAttempts:    3,
		RetryDelay:       time.Second,
		Logger:           logging.NoOpLogger{},
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = logging.NoOpLogger{}
	}
	return &Executor{registry: registry, opts: options}
}

// ExecuteBatch settles every call in the batch and judges the round.
//
// Calls naming an unregistered tool, and calls the configured gate rejects,
// settle immediately as synthesized KindToolNotFound failures without ever
// being dispatched. The remaining calls run sequentially, flat-parallel, or
// along the dependency graph depending on the options. Every input call
// produces exactly one result, at its input position.
func (e *Executor) ExecuteBatch(ctx context.Context, runID string, state *core.TurnState, calls []core.PendingToolCall) *BatchResult {
	if len(calls) == 0 {
		return &BatchResult{}
	}

	e.opts.Logger.Debug("tool.batch.start", "run_id", runID, "calls", len(calls))

	results := make([]core.ToolCallResult, len(calls))
	known := make([]core.PendingToolCall, 0, len(calls))
	slots := make([]int, 0, len(calls))
	for i, call := range calls {
		switch {
		case !e.registry.Has(call.Name):
			results[i] = e.notFoundResult(call)
		case e.opts.Gate != nil && !e.opts.Gate(call.Name):
			results[i] = e.deniedResult(call)
		default:
			known = append(known, call)
			slots = append(slots, i)
		}
	}

	var settled []core.ToolCallResult
	switch {
	case e.opts.UseDependencies:
		settled = e.runGraph(ctx, runID, state, known)
	case e.opts.Parallel:
		settled = e.runParallel(ctx, runID, state, known)
	default:
		settled = e.runSequential(ctx, runID, state, known)
	}
	for i, r := range settled {
		results[slots[i]] = r
	}

	batch := &BatchResult{Results: results, Err: e.judge(results)}

	e.opts.Logger.Debug("tool.batch.end",
		"run_id", runID,
		"results", len(batch.Results),
		"failed", len(batch.Failures()),
		"round_failed", batch.Err != nil,
	)
	return batch
}

// notFoundResult synthesizes the settled result for a call to an
// unregistered tool.
func (e *Executor) notFoundResult(call core.PendingToolCall) core.ToolCallResult {
	err := core.NewAgentError(core.KindToolNotFound, "tool %q is not registered", call.Name).
		With("tool", call.Name).
		With("call_id", call.ID)
	e.opts.Logger.Warn("tool.call.unknown", "tool", call.Name, "call_id", call.ID)
	e.opts.Hooks.Error(err)

	result := core.ToolCallResult{CallID: call.ID, Tool: call.Name, Error: err}
	e.opts.Hooks.ToolCallEnd(result)
	return result
}

// deniedResult synthesizes the settled result for a call to a tool that is
// registered but not offered in this round.
func (e *Executor) deniedResult(call core.PendingToolCall) core.ToolCallResult {
	err := core.NewAgentError(core.KindToolNotFound, "tool %q is not available in this round", call.Name).
		With("tool", call.Name).
		With("call_id", call.ID)
	e.opts.Logger.Warn("tool.call.denied", "tool", call.Name, "call_id", call.ID)
	e.opts.Hooks.Error(err)

	result := core.ToolCallResult{CallID: call.ID, Tool: call.Name, Error: err}
	e.opts.Hooks.ToolCallEnd(result)
	return result
}

// skippedResult synthesizes the settled result for a call whose dependency
// failed and which was therefore never dispatched.
func (e *Executor) skippedResult(call core.PendingToolCall, failedDep string) core.ToolCallResult {
	err := core.NewAgentError(core.KindToolExecution, "tool %q skipped: dependency %q failed", call.Name, failedDep).
		With("tool", call.Name).
		With("call_id", call.ID).
		With("failed_dependency", failedDep)
	e.opts.Logger.Warn("tool.call.skipped", "tool", call.Name, "call_id", call.ID, "failed_dependency", failedDep)

	result := core.ToolCallResult{CallID: call.ID, Tool: call.Name, Error: err, Skipped: true}
	e.opts.Hooks.ToolCallEnd(result)
	return result
}

// judge applies the failure mode to the settled results.
func (e *Executor) judge(results []core.ToolCallResult) *core.AgentError {
	total := len(results)
	if total == 0 {
		return nil
	}

	var failures []core.ToolCallResult
	for _, r := range results {
		if r.Failed() {
			failures = append(failures, r)
		}
	}
	if len(failures) == 0 {
		return nil
	}

	switch e.opts.FailureMode {
	case ContinueOnFailure:
		return nil
	case PartialSuccess:
		ratio := float64(len(failures)) / float64(total)
		if ratio <= e.opts.FailureTolerance {
			return nil
		}
		return core.NewAgentError(firstFailureKind(failures),
			"%d of %d tool calls failed (tolerance %.2f)", len(failures), total, e.opts.FailureTolerance).
			With("failed", len(failures)).
			With("total", total).
			With("failure_ratio", ratio)
	default: // FailFast, FailAtEnd
		return core.NewAgentError(firstFailureKind(failures),
			"%d of %d tool calls failed", len(failures), total).
			With("failed", len(failures)).
			With("total", total)
	}
}

// firstFailureKind picks the kind of the first non-skipped failure so the
// round error classifies the root cause, not a propagated skip.
func firstFailureKind(failures []core.ToolCallResult) core.ErrorKind {
	for _, r := range failures {
		if !r.Skipped && r.Error != nil {
			return r.Error.Kind
		}
	}
	if failures[0].Error != nil {
		return failures[0].Error.Kind
	}
	return core.KindToolExecution
}
