package tool

import (
	"time"

	"github.com/hupe1980/agentpilot/core"
	"github.com/hupe1980/agentpilot/internal/util"
)

// HandlerFunc is the signature of a FunctionTool implementation. It receives
// a ToolContext plus already-validated arguments.
type HandlerFunc func(toolCtx *core.ToolContext, args map[string]any) (any, error)

// FunctionTool is a generic adapter that exposes a plain Go function as a Tool.
//
// Responsibilities:
//   - Holds a lightweight JSON-Schema-like parameter specification
//   - Validates model supplied arguments against that schema before execution
//   - Carries the tool's static dependency declaration and optional timeout
//   - Normalizes validation failures into classified *core.AgentError values
//     (KindInvalidInput) so the orchestrator's policy table applies uniformly
//
// A FunctionTool has no internal mutable state after construction and is safe
// for concurrent use by multiple goroutines.
type FunctionTool struct {
	name         string
	description  string
	parameters   map[string]any
	dependencies []string
	timeout      time.Duration
	fn           HandlerFunc
}

// Option customizes a FunctionTool at construction time.
type Option func(*FunctionTool)

// WithDependencies declares tools that must complete before this one within
// the same batch.
func WithDependencies(names ...string) Option {
	return func(t *FunctionTool) { t.dependencies = names }
}

// WithTimeout sets a per-tool execution timeout. The executor caps it at the
// configured global ceiling.
func WithTimeout(d time.Duration) Option {
	return func(t *FunctionTool) { t.timeout = d }
}

// NewFunctionTool constructs a FunctionTool from explicit schema and function.
//
// Example:
//
//	sumTool := NewFunctionTool(
//	  "calculate_sum",
//	  "Calculate the sum of two numbers",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "a": map[string]any{"type": "number"},
//	      "b": map[string]any{"type": "number"},
//	    },
//	    "required": []string{"a", "b"},
//	  },
//	  func(tc *core.ToolContext, args map[string]any) (any, error) {
//	    return args["a"].(float64) + args["b"].(float64), nil
//	  },
//	)
func NewFunctionTool(name, description string, parameters map[string]any, fn HandlerFunc, opts ...Option) *FunctionTool {
	t := &FunctionTool{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// NewFunctionToolFromStruct derives the parameter schema from a struct using
// reflection. Convenience for simple argument containers.
//
// Example:
//
//	type SumArgs struct {
//	  A float64 `json:"a" description:"First addend"`
//	  B float64 `json:"b" description:"Second addend"`
//	}
//
//	sumTool := NewFunctionToolFromStruct("calculate_sum", "Add two numbers", SumArgs{}, handler)
func NewFunctionToolFromStruct(name, description string, structType any, fn HandlerFunc, opts ...Option) *FunctionTool {
	return NewFunctionTool(name, description, util.CreateSchema(structType), fn, opts...)
}

// Name returns the unique tool name used in call routing.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the natural language description exposed to models.
func (t *FunctionTool) Description() string { return t.description }

// Parameters returns the JSON schema describing expected arguments.
func (t *FunctionTool) Parameters() map[string]any { return t.parameters }

// Dependencies returns the declared same-batch predecessor tool names.
func (t *FunctionTool) Dependencies() []string { return t.dependencies }

// Timeout returns the per-tool timeout (zero means executor default).
func (t *FunctionTool) Timeout() time.Duration { return t.timeout }

// Call validates the provided args against the declared schema then invokes
// the underlying function.
//
// Error semantics:
//
//	schema mismatch      -> *core.AgentError{Kind: KindInvalidInput}
//	handler error        -> forwarded unchanged (the executor classifies
//	                        unclassified errors as KindToolExecution)
func (t *FunctionTool) Call(toolCtx *core.ToolContext, args map[string]any) (any, error) {
	logger := toolCtx.Logger()

	if t.parameters != nil {
		if err := util.ValidateParameters(args, t.parameters); err != nil {
			logger.Warn("tool.call.validation_failed", "tool", t.name, "call_id", toolCtx.CallID(), "error", err.Error())
			return nil, core.WrapError(core.KindInvalidInput, err, "parameter validation failed for tool %s", t.name)
		}
	}

	return t.fn(toolCtx, args)
}
