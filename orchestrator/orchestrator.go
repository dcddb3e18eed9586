package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/agentpilot/core"
	"github.com/hupe1980/agentpilot/executor"
	"github.com/hupe1980/agentpilot/format"
	"github.com/hupe1980/agentpilot/model"
	"github.com/hupe1980/agentpilot/prompt"
	"github.com/hupe1980/agentpilot/tool"
)

// Orchestrator drives the supervisor/worker control loop against one model
// and one tool registry. It is safe for concurrent runs: all per-run state
// lives in the run, not on the Orchestrator.
type Orchestrator struct {
	model    model.Model
	opts     Options
	registry *tool.Registry
	format   format.ResponseFormat
	builder  *prompt.Builder
	supExec  *executor.Executor
	workExec *executor.Executor
}

// New creates an Orchestrator for the given model. Configuration violations
// surface as fatal KindConfiguration errors.
func New(m model.Model, opts ...Option) (*Orchestrator, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = defaultOptions().Logger
	}
	if err := options.validate(); err != nil {
		return nil, err
	}

	f, err := format.New(options.Format)
	if err != nil {
		return nil, err
	}

	registry := tool.NewRegistry()

	shared := []executor.Option{
		executor.WithDefaultTimeout(options.ToolTimeout),
		executor.WithMaxTimeout(options.MaxToolTimeout),
		executor.WithRetry(options.RetryAttempts, options.RetryDelay),
		executor.WithLogger(options.Logger),
		executor.WithHooks(options.Hooks),
	}

	// Control tool batches are small and order sensitive, so the supervisor
	// always executes sequentially regardless of the worker configuration.
	// Each executor is gated to the tools its role is offered: the prompt
	// restriction alone would not stop a model from naming a tool that
	// belongs to the other role.
	supExec := executor.New(registry, append(shared,
		executor.WithFailureMode(executor.FailAtEnd),
		executor.WithToolGate(isControlTool),
	)...)
	workExec := executor.New(registry, append(shared,
		executor.WithParallel(options.ParallelExecution),
		executor.WithDependencies(options.UseDependencies),
		executor.WithFailureMode(options.FailureMode),
		executor.WithFailureTolerance(options.FailureTolerance),
		executor.WithToolGate(func(name string) bool { return !isControlTool(name) }),
	)...)

	return &Orchestrator{
		model:    m,
		opts:     options,
		registry: registry,
		format:   f,
		builder:  prompt.NewBuilder(),
		supExec:  supExec,
		workExec: workExec,
	}, nil
}

// RegisterTool adds a tool to the orchestrator's registry. Registration
// failures (invalid name, duplicate, dependency cycle) are fatal.
func (o *Orchestrator) RegisterTool(t tool.Tool) error {
	return o.registry.Register(t)
}

// Tools returns the registered tools in registration order.
func (o *Orchestrator) Tools() []tool.Tool {
	return o.registry.Tools()
}

// Run executes one complete supervisor/worker loop for the user prompt. It
// never returns an error: terminal failures are classified and carried in
// the RunResult, and the complete interaction history is returned either way.
func (o *Orchestrator) Run(ctx context.Context, userPrompt string) *core.RunResult {
	r := &run{
		o:          o,
		id:         uuid.NewString(),
		state:      core.NewTurnState(),
		started:    time.Now(),
		det:        newStagnationDetector(o.opts.StagnationThreshold),
		role:       core.RoleSupervisor,
		userPrompt: userPrompt,
	}

	o.opts.Logger.Info("run.start", "run_id", r.id, "model", o.model.Info().String(), "format", o.format.Name())
	o.opts.Hooks.RunStart(r.id, userPrompt)
	r.history = append(r.history, core.NewUserPromptInteraction(userPrompt))

	if err := o.ensureControlTools(); err != nil {
		return r.terminal(core.AsAgentError(err))
	}

	return r.loop(ctx)
}

// ensureControlTools registers the built-in control tools unless the caller
// already registered tools under their names.
func (o *Orchestrator) ensureControlTools() error {
	builtins := []tool.Tool{
		tool.NewFinalAnswerTool(),
		tool.NewProgressReportTool(),
		tool.NewDelegateTool(),
	}
	for _, t := range builtins {
		if o.registry.Has(t.Name()) {
			continue
		}
		if err := o.registry.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// isControlTool reports whether name is a supervisor-only control tool.
func isControlTool(name string) bool {
	return name == tool.FinalAnswerName || name == tool.DelegateName
}

// supervisorTools is the restricted control tool set: answer or delegate.
func (o *Orchestrator) supervisorTools() []tool.Tool {
	var tools []tool.Tool
	for _, name := range []string{tool.FinalAnswerName, tool.DelegateName} {
		if t, ok := o.registry.Get(name); ok {
			tools = append(tools, t)
		}
	}
	return tools
}

// workerTools is every registered tool except the supervisor-only controls.
func (o *Orchestrator) workerTools() []tool.Tool {
	var tools []tool.Tool
	for _, t := range o.registry.Tools() {
		if isControlTool(t.Name()) {
			continue
		}
		tools = append(tools, t)
	}
	return tools
}
