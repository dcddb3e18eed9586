package core

import (
	"context"

	"github.com/hupe1980/agentpilot/logging"
)

// ToolContext provides a constrained, auditable surface for tool handlers.
// It binds the invocation to its run, its call ID and the shared TurnState,
// and exposes a structured logger.
//
// The Context is cancelled when the call's timeout elapses. Cancellation is
// advisory: the executor does not preempt the handler, it only discards a
// late result, so long-running handlers should observe Context() themselves
// if they want to stop wasted work.
type ToolContext struct {
	ctx    context.Context
	runID  string
	callID string
	state  *TurnState
	logger logging.Logger
}

// NewToolContext constructs a tool context bound to a run and unique call ID.
func NewToolContext(ctx context.Context, runID, callID string, state *TurnState, logger logging.Logger) *ToolContext {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &ToolContext{ctx: ctx, runID: runID, callID: callID, state: state, logger: logger}
}

// Context returns the context associated with the tool invocation.
func (tc *ToolContext) Context() context.Context { return tc.ctx }

// RunID returns the run ID associated with the tool invocation.
func (tc *ToolContext) RunID() string { return tc.runID }

// CallID returns the unique call ID associated with the tool invocation.
func (tc *ToolContext) CallID() string { return tc.callID }

// State returns the per-run TurnState shared by all handlers in this run.
func (tc *ToolContext) State() *TurnState { return tc.state }

// Logger returns the logger associated with the tool invocation.
func (tc *ToolContext) Logger() logging.Logger { return tc.logger }

// GetState retrieves the turn state value associated with the given key.
func (tc *ToolContext) GetState(key string) (any, bool) { return tc.state.Get(key) }

// SetState records a turn state value visible to later calls in the same run.
func (tc *ToolContext) SetState(key string, value any) { tc.state.Set(key, value) }
