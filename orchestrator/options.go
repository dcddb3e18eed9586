package orchestrator

import (
	"time"

	"github.com/hupe1980/agentpilot/core"
	"github.com/hupe1980/agentpilot/executor"
	"github.com/hupe1980/agentpilot/logging"
)

const defaultSystemPrompt = `You are a capable assistant that solves tasks by calling tools.
Respond with tool calls only, exactly in the format described below. Never
answer in free text.`

// Options configures an Orchestrator. Zero values are replaced by the
// documented defaults in New.
type Options struct {
	// MaxIterations is the round budget before the run fails terminally.
	// Default 100.
	MaxIterations int
	// ToolTimeout applies to tools without their own timeout. Default 30s.
	ToolTimeout time.Duration
	// MaxToolTimeout, when positive, caps every per-call timeout.
	MaxToolTimeout time.Duration
	// RetryAttempts is the retry budget for retryable failures, both model
	// transport errors and tool execution failures. Default 3.
	RetryAttempts int
	// RetryDelay is the backoff before the first retry; it doubles per
	// attempt. Default 1s.
	RetryDelay time.Duration
	// SleepBetweenIterations is the pause between rounds. Default 2s.
	SleepBetweenIterations time.Duration
	// ParallelExecution dispatches independent worker tool calls concurrently.
	ParallelExecution bool
	// UseDependencies schedules worker batches along the declared tool
	// dependency graph. Implies concurrent dispatch of ready calls.
	UseDependencies bool
	// FailureMode selects the worker round failure policy. Default
	// executor.FailAtEnd.
	FailureMode executor.FailureMode
	// FailureTolerance is the accepted failure ratio for
	// executor.PartialSuccess. Default 0.5.
	FailureTolerance float64
	// StagnationThreshold is how many consecutive identical batches trigger
	// the stagnation warning. Default 3. Zero disables detection.
	StagnationThreshold int
	// SystemPrompt replaces the built-in system prompt.
	SystemPrompt string
	// Format names the response format ("json", "yaml", "toml", "xml").
	// Default "json".
	Format string
	// Logger receives run events. Defaults to a no-op logger.
	Logger logging.Logger
	// Hooks receives lifecycle callbacks.
	Hooks *core.Hooks
}

// Option mutates orchestrator options.
type Option func(*Options)

// WithMaxIterations sets the round budget.
func WithMaxIterations(n int) Option {
	return func(o *Options) { o.MaxIterations = n }
}

// WithToolTimeout sets the default per-call timeout.
func WithToolTimeout(d time.Duration) Option {
	return func(o *Options) { o.ToolTimeout = d }
}

// WithMaxToolTimeout caps every per-call timeout.
func WithMaxToolTimeout(d time.Duration) Option {
	return func(o *Options) { o.MaxToolTimeout = d }
}

// WithRetry sets the retry budget and initial backoff for retryable failures.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(o *Options) {
		o.RetryAttempts = attempts
		o.RetryDelay = delay
	}
}

// WithSleepBetweenIterations sets the pause between rounds.
func WithSleepBetweenIterations(d time.Duration) Option {
	return func(o *Options) { o.SleepBetweenIterations = d }
}

// WithParallelExecution enables concurrent dispatch of worker batches.
func WithParallelExecution(parallel bool) Option {
	return func(o *Options) { o.ParallelExecution = parallel }
}

// WithDependencies enables dependency-graph scheduling of worker batches.
func WithDependencies(use bool) Option {
	return func(o *Options) { o.UseDependencies = use }
}

// WithFailureMode sets the worker round failure policy.
func WithFailureMode(mode executor.FailureMode) Option {
	return func(o *Options) { o.FailureMode = mode }
}

// WithFailureTolerance sets the accepted failure ratio for partial success.
func WithFailureTolerance(tolerance float64) Option {
	return func(o *Options) { o.FailureTolerance = tolerance }
}

// WithStagnationThreshold sets the consecutive identical batch count that
// triggers the stagnation warning. Zero disables detection.
func WithStagnationThreshold(n int) Option {
	return func(o *Options) { o.StagnationThreshold = n }
}

// WithSystemPrompt replaces the built-in system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(o *Options) { o.SystemPrompt = prompt }
}

// WithFormat names the response format.
func WithFormat(name string) Option {
	return func(o *Options) { o.Format = name }
}

// WithLogger sets the run logger.
func WithLogger(logger logging.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

// WithHooks sets the lifecycle hooks.
func WithHooks(hooks *core.Hooks) Option {
	return func(o *Options) { o.Hooks = hooks }
}

func defaultOptions() Options {
	return Options{
		MaxIterations:          100,
		ToolTimeout:            30 * time.Second,
		RetryAttempts:          3,
		RetryDelay:             time.Second,
		SleepBetweenIterations: 2 * time.Second,
		FailureMode:            executor.FailAtEnd,
		FailureTolerance:       0.5,
		StagnationThreshold:    3,
		SystemPrompt:           defaultSystemPrompt,
		Format:                 "json",
		Logger:                 logging.NoOpLogger{},
	}
}

// validate rejects configurations the loop cannot run with. All violations
// are fatal KindConfiguration errors.
func (o *Options) validate() error {
	if o.MaxIterations <= 0 {
		return core.NewAgentError(core.KindConfiguration, "max iterations must be positive, got %d", o.MaxIterations)
	}
	if o.RetryAttempts < 0 {
		return core.NewAgentError(core.KindConfiguration, "retry attempts must not be negative, got %d", o.RetryAttempts)
	}
	if o.ToolTimeout <= 0 {
		return core.NewAgentError(core.KindConfiguration, "tool timeout must be positive, got %s", o.ToolTimeout)
	}
	if o.FailureTolerance < 0 || o.FailureTolerance > 1 {
		return core.NewAgentError(core.KindConfiguration, "failure tolerance must be within [0,1], got %g", o.FailureTolerance)
	}
	switch o.FailureMode {
	case executor.FailFast, executor.FailAtEnd, executor.ContinueOnFailure, executor.PartialSuccess:
	default:
		return core.NewAgentError(core.KindConfiguration, "unknown failure mode %q", o.FailureMode)
	}
	return nil
}
