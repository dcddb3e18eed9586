// Package tool implements the capability subsystem that lets the orchestrator
// invoke structured tools with schema validated arguments, static dependency
// declarations and per-tool timeouts.
package tool

import (
	"time"

	"github.com/hupe1980/agentpilot/core"
)

// Tool defines a named capability the model can invoke.
//
// Tools are registered once with the orchestrator's Registry and owned by it
// for the run's lifetime. Dependencies declare other tool names that must
// complete first within the same batch; a dependency naming a tool absent
// from the current batch is treated as already satisfied. The declared
// dependency relation over the full registered set must be acyclic, which the
// Registry enforces at registration time.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Define a proper JSON schema for parameters
//   - Handle errors gracefully and return classified *core.AgentError where
//     the failure kind matters
//   - Be safe for concurrent use: independent calls may run in parallel
type Tool interface {
	// Name returns the unique identifier for this tool. Names must match
	// ^[a-zA-Z_][a-zA-Z0-9_]*$ (snake_case recommended).
	Name() string

	// Description returns a human-readable description of what this tool does.
	// The description is shown to the model to guide tool selection.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments.
	Parameters() map[string]any

	// Dependencies returns the names of tools that must complete before this
	// tool may start within the same batch. May be nil.
	Dependencies() []string

	// Timeout returns the per-tool execution timeout. Zero means "use the
	// executor default". The executor caps it at the global ceiling.
	Timeout() time.Duration

	// Call executes the tool with already-parsed arguments and a ToolContext
	// giving access to the run's TurnState and logger.
	Call(toolCtx *core.ToolContext, args map[string]any) (any, error)
}
