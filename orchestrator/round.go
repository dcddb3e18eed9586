package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/agentpilot/core"
	"github.com/hupe1980/agentpilot/executor"
	"github.com/hupe1980/agentpilot/model"
	"github.com/hupe1980/agentpilot/prompt"
	"github.com/hupe1980/agentpilot/tool"
)

// run is the per-run state of one control loop execution. It is owned by a
// single goroutine; the TurnState it carries has its own locking for the
// tool handlers that share it.
type run struct {
	o       *Orchestrator
	id      string
	state   *core.TurnState
	history []core.Interaction
	started time.Time
	det     *stagnationDetector

	role        core.Role
	userPrompt  string
	instruction string
	lastErr     *core.AgentError

	rounds     int
	modelCalls int
	toolCalls  int
}

// loop plays rounds until a terminal outcome: a final answer, a fatal error,
// cancellation, or the exhausted iteration budget.
func (r *run) loop(ctx context.Context) *core.RunResult {
	for round := 1; round <= r.o.opts.MaxIterations; round++ {
		if err := ctx.Err(); err != nil {
			return r.terminal(core.WrapError(core.KindUnknown, err, "run cancelled"))
		}
		r.rounds = round

		var result *core.RunResult
		if r.role == core.RoleSupervisor {
			result = r.supervisorRound(ctx, round)
		} else {
			result = r.workerRound(ctx, round)
		}
		if result != nil {
			return result
		}

		if round < r.o.opts.MaxIterations {
			if !sleepCtx(ctx, r.o.opts.SleepBetweenIterations) {
				return r.terminal(core.WrapError(core.KindUnknown, ctx.Err(), "run cancelled"))
			}
		}
	}
	return r.terminal(core.NewAgentError(core.KindMaxIterations,
		"no final answer after %d iterations", r.o.opts.MaxIterations))
}

// supervisorRound asks the supervisor to answer or delegate, then executes
// the control batch sequentially. A recorded final answer terminates the run;
// a recorded delegation hands the next round to the worker.
func (r *run) supervisorRound(ctx context.Context, round int) *core.RunResult {
	calls, result := r.proposeBatch(ctx, round, r.o.supervisorTools())
	if result != nil || calls == nil {
		return result
	}

	batch := r.o.supExec.ExecuteBatch(ctx, r.id, r.state, calls)
	r.toolCalls += len(calls)
	r.history = append(r.history, core.NewToolResultsInteraction(core.RoleSupervisor, batch.Results, buildReport("", batch)))

	if answer, ok := r.state.GetAndClear(tool.StateKeyFinalAnswer); ok {
		return r.success(fmt.Sprint(answer))
	}
	if instr, ok := r.state.GetAndClear(tool.StateKeyDelegatedTask); ok {
		r.role = core.RoleWorker
		r.instruction = fmt.Sprint(instr)
		r.lastErr = nil
		r.o.opts.Logger.Info("run.delegate", "run_id", r.id, "round", round)
		return nil
	}

	return r.handleBatchError(batch)
}

// workerRound executes the delegated instruction with the full tool set and
// unconditionally hands control back to the supervisor with a report.
func (r *run) workerRound(ctx context.Context, round int) *core.RunResult {
	calls, result := r.proposeBatch(ctx, round, r.o.workerTools())
	if result != nil || calls == nil {
		return result
	}

	batch := r.o.workExec.ExecuteBatch(ctx, r.id, r.state, calls)
	r.toolCalls += len(calls)

	progress := ""
	if v, ok := r.state.GetAndClear(tool.StateKeyProgressReport); ok {
		progress = fmt.Sprint(v)
	}
	r.history = append(r.history, core.NewToolResultsInteraction(core.RoleWorker, batch.Results, buildReport(progress, batch)))

	if result := r.handleBatchError(batch); result != nil {
		return result
	}

	r.role = core.RoleSupervisor
	r.instruction = ""
	return nil
}

// proposeBatch builds the round prompt, calls the model and parses the
// response into pending calls. A nil, nil return ends the round without a
// batch (the failure was recorded for the next prompt); a non-nil RunResult
// is terminal.
func (r *run) proposeBatch(ctx context.Context, round int, tools []tool.Tool) ([]core.PendingToolCall, *core.RunResult) {
	defs := model.Definitions(tools)

	request := r.userPrompt
	if r.role == core.RoleWorker {
		request = r.instruction
	}
	text, err := r.o.builder.Build(prompt.Input{
		System:       r.o.opts.SystemPrompt,
		Role:         r.role,
		Request:      request,
		History:      r.history,
		ToolFragment: r.o.format.FormatToolDefinitions(defs),
		LastError:    r.lastErr,
	})
	if err != nil {
		return nil, r.terminal(core.WrapError(core.KindConfiguration, err, "prompt build failed"))
	}
	r.o.opts.Hooks.PromptCreated(r.role, text)

	response, aerr := r.completeWithRetry(ctx, round, model.Request{
		System: r.o.opts.SystemPrompt,
		Prompt: text,
		Tools:  defs,
	})
	if aerr != nil {
		if core.Classify(aerr.Kind).Fatal {
			return nil, r.terminal(aerr)
		}
		r.recordRoundError(aerr)
		return nil, nil
	}
	r.history = append(r.history, core.NewAgentResponseInteraction(r.role, response))

	calls, perr := r.o.format.ParseResponse(response, defs)
	if perr != nil {
		r.recordRoundError(core.AsAgentError(perr))
		return nil, nil
	}
	if len(calls) == 0 {
		r.recordRoundError(core.NewAgentError(core.KindInvalidResponse,
			"no tool calls found in the response; respond with %s tool calls only", r.o.format.Name()))
		return nil, nil
	}

	if serr, terminal := r.det.observe(r.role, calls); serr != nil {
		if terminal {
			return nil, r.terminal(serr)
		}
		// The repeated batch is not executed; the model sees the warning
		// in its next prompt instead.
		r.recordRoundError(serr)
		return nil, nil
	}

	r.lastErr = nil
	return calls, nil
}

// completeWithRetry performs the model round trip, consuming the retry
// budget with doubling backoff for retryable transport failures.
func (r *run) completeWithRetry(ctx context.Context, round int, req model.Request) (string, *core.AgentError) {
	delay := r.o.opts.RetryDelay
	var lastErr *core.AgentError

	for attempt := 0; attempt <= r.o.opts.RetryAttempts; attempt++ {
		if attempt > 0 {
			r.o.opts.Logger.Debug("model.call.retry", "run_id", r.id, "attempt", attempt, "delay", delay)
			if !sleepCtx(ctx, delay) {
				return "", core.WrapError(core.KindUnknown, ctx.Err(), "run cancelled")
			}
			delay *= 2
		}

		r.o.opts.Hooks.ModelCallStart(r.role, round)
		r.modelCalls++
		response, err := r.o.model.Complete(ctx, req)
		r.o.opts.Hooks.ModelCallEnd(r.role, round, response, err)

		if err == nil && strings.TrimSpace(response) == "" {
			err = model.ErrEmptyResponse(r.o.model.Info().Provider)
		}
		if err == nil {
			return response, nil
		}

		lastErr = core.AsAgentError(err)
		r.o.opts.Logger.Warn("model.call.error", "run_id", r.id, "kind", lastErr.Kind, "attempt", attempt)
		if !core.Classify(lastErr.Kind).Retryable {
			break
		}
	}
	return "", lastErr
}

// handleBatchError applies the error policy to a round-level batch failure.
// Tool-level retries were already consumed inside the executor, so what is
// left is feeding back, ending the round, or terminating.
func (r *run) handleBatchError(batch *executor.BatchResult) *core.RunResult {
	if batch.Err == nil {
		r.lastErr = nil
		return nil
	}
	decision := core.Classify(batch.Err.Kind)
	if decision.Fatal {
		return r.terminal(batch.Err)
	}
	r.o.opts.Hooks.Error(batch.Err)
	if decision.FeedBack {
		r.lastErr = batch.Err
	}
	return nil
}

// recordRoundError records a non-terminal round failure: it is logged,
// surfaced through the hooks, appended to the history, and fed back to the
// model when the policy says so.
func (r *run) recordRoundError(ae *core.AgentError) {
	r.o.opts.Logger.Warn("round.error", "run_id", r.id, "round", r.rounds, "kind", ae.Kind, "message", ae.Message)
	r.o.opts.Hooks.Error(ae)
	r.history = append(r.history, core.NewErrorInteraction(r.role, ae))
	if core.Classify(ae.Kind).FeedBack {
		r.lastErr = ae
	}
}

// success finishes the run with the supervisor's final answer. The answer is
// appended as the terminal interaction so the history alone reconstructs the
// full run.
func (r *run) success(answer string) *core.RunResult {
	r.history = append(r.history, core.NewAgentResponseInteraction(core.RoleSupervisor, answer))

	result := r.result()
	result.Answer = answer
	r.o.opts.Logger.Info("run.end", "run_id", r.id, "rounds", r.rounds, "elapsed", result.Elapsed)
	r.o.opts.Hooks.RunEnd(r.id, result)
	return result
}

// terminal finishes the run with a classified failure.
func (r *run) terminal(ae *core.AgentError) *core.RunResult {
	r.history = append(r.history, core.NewErrorInteraction(r.role, ae))
	r.o.opts.Hooks.Error(ae)

	result := r.result()
	result.Err = ae
	r.o.opts.Logger.Error("run.failed", "run_id", r.id, "rounds", r.rounds, "kind", ae.Kind, "message", ae.Message)
	r.o.opts.Hooks.RunEnd(r.id, result)
	return result
}

func (r *run) result() *core.RunResult {
	return &core.RunResult{
		RunID:      r.id,
		History:    r.history,
		Rounds:     r.rounds,
		ModelCalls: r.modelCalls,
		ToolCalls:  r.toolCalls,
		Elapsed:    time.Since(r.started),
	}
}

// buildReport summarizes a settled batch for the supervisor's next prompt.
func buildReport(progress string, batch *executor.BatchResult) string {
	var parts []string
	if progress != "" {
		parts = append(parts, progress)
	}

	ok := 0
	for _, res := range batch.Results {
		if !res.Failed() {
			ok++
		}
	}
	parts = append(parts, fmt.Sprintf("%d/%d tool calls succeeded", ok, len(batch.Results)))

	for _, f := range batch.Failures() {
		if f.Error == nil {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s failed: %s", f.Tool, f.Error.Message))
	}
	return strings.Join(parts, "; ")
}

// sleepCtx sleeps for d unless the context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
