package core

import (
	"time"
)

// Role identifies which phase of the control loop produced a prompt,
// response or batch of tool calls.
type Role string

const (
	// RoleSupervisor decides what to do next and when to answer the caller.
	RoleSupervisor Role = "supervisor"
	// RoleWorker executes delegated instructions and reports back.
	RoleWorker Role = "worker"
)

// PendingToolCall is a parsed, not-yet-validated tool request produced by a
// response format collaborator. One PendingToolCall exists per action the
// model proposed in a round; it carries an open argument bag that is only
// validated against the tool's schema at execution time.
type PendingToolCall struct {
	// ID uniquely identifies the call within a run (uuid).
	ID string `json:"id"`
	// Name is the tool the model wants to invoke.
	Name string `json:"name"`
	// Arguments is the raw argument bag as parsed from the model output.
	Arguments map[string]any `json:"arguments,omitempty"`
}

// ToolCallResult is the settled outcome of exactly one PendingToolCall.
// Every call in a batch ends in exactly one result: executed successfully,
// executed and failed, synthesized for an unknown tool, or synthesized as
// skipped because a declared dependency failed. Immutable once produced.
type ToolCallResult struct {
	CallID   string        `json:"call_id"`
	Tool     string        `json:"tool"`
	Success  bool          `json:"success"`
	Result   any           `json:"result,omitempty"`
	Error    *AgentError   `json:"error,omitempty"`
	Skipped  bool          `json:"skipped,omitempty"` // true when synthesized for a failed dependency
	Duration time.Duration `json:"duration,omitempty"`
}

// Failed reports whether the call settled with an error.
func (r ToolCallResult) Failed() bool { return !r.Success }

// RunResult is the terminal outcome of one orchestrator run. Either Answer is
// set (the supervisor communicated a final answer) or Err carries the terminal
// classified failure. History always contains the complete, ordered
// interaction log, so the entire run is reconstructable from it alone.
type RunResult struct {
	RunID      string        `json:"run_id"`
	Answer     string        `json:"answer,omitempty"`
	Err        *AgentError   `json:"error,omitempty"`
	History    []Interaction `json:"history"`
	Rounds     int           `json:"rounds"`
	ModelCalls int           `json:"model_calls"`
	ToolCalls  int           `json:"tool_calls"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Success reports whether the run terminated with an answer.
func (r *RunResult) Success() bool { return r.Err == nil }
