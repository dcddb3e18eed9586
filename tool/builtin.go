package tool

import (
	"fmt"

	"github.com/hupe1980/agentpilot/core"
)

// Names of the control tools the orchestrator depends on. FinalAnswerName and
// ProgressReportName are always present: the orchestrator auto-registers the
// built-in implementations unless the caller has defined tools with the same
// names.
const (
	// FinalAnswerName communicates the terminal answer to the caller and ends
	// the run (supervisor role only).
	FinalAnswerName = "final_answer"
	// ProgressReportName summarizes what a worker round accomplished.
	ProgressReportName = "progress_report"
	// DelegateName hands an instruction from the supervisor to the worker.
	DelegateName = "delegate_task"
)

// TurnState keys the built-in control tools write. The orchestrator consumes
// these with read-once semantics after each batch.
const (
	StateKeyFinalAnswer    = "pilot.final_answer"
	StateKeyProgressReport = "pilot.progress_report"
	StateKeyDelegatedTask  = "pilot.delegated_task"
)

// NewFinalAnswerTool builds the built-in final answer tool. The handler
// stores the answer in TurnState; the orchestrator picks it up and terminates
// the run successfully.
func NewFinalAnswerTool() *FunctionTool {
	return NewFunctionTool(
		FinalAnswerName,
		"Deliver the final answer to the user. Call this only when the task is complete; it ends the conversation.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"answer": map[string]any{
					"type":        "string",
					"description": "The complete final answer for the user",
				},
			},
			"required": []string{"answer"},
		},
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			answer, ok := args["answer"].(string)
			if !ok || answer == "" {
				return nil, fmt.Errorf("answer must be a non-empty string")
			}
			toolCtx.SetState(StateKeyFinalAnswer, answer)
			return "final answer recorded", nil
		},
	)
}

// NewProgressReportTool builds the built-in progress report tool. Workers are
// expected to call it once per round to summarize what was done; the
// orchestrator folds the summary into the report handed back to the
// supervisor.
func NewProgressReportTool() *FunctionTool {
	return NewFunctionTool(
		ProgressReportName,
		"Report progress on the current task: what was attempted, what succeeded, what remains.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"summary": map[string]any{
					"type":        "string",
					"description": "Concise summary of the work performed in this round",
				},
			},
			"required": []string{"summary"},
		},
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			summary, ok := args["summary"].(string)
			if !ok || summary == "" {
				return nil, fmt.Errorf("summary must be a non-empty string")
			}
			toolCtx.SetState(StateKeyProgressReport, summary)
			return "progress recorded", nil
		},
	)
}

// NewDelegateTool builds the built-in delegation tool available to the
// supervisor. A successful call transitions the control loop to the worker
// role for the next round, carrying the instruction forward.
func NewDelegateTool() *FunctionTool {
	return NewFunctionTool(
		DelegateName,
		"Delegate a concrete instruction to the worker, which has access to the full tool set.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"instruction": map[string]any{
					"type":        "string",
					"description": "Specific, self-contained instruction for the worker to execute",
				},
			},
			"required": []string{"instruction"},
		},
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			instruction, ok := args["instruction"].(string)
			if !ok || instruction == "" {
				return nil, fmt.Errorf("instruction must be a non-empty string")
			}
			toolCtx.SetState(StateKeyDelegatedTask, instruction)
			return "task delegated", nil
		},
	)
}
