// Package testutil provides shared builders for package tests: canned model
// responses in the JSON wire shape and small deterministic tools.
package testutil

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/agentpilot/core"
	"github.com/hupe1980/agentpilot/tool"
)

// Call is one tool invocation in a canned model response.
type Call struct {
	Name string
	Args map[string]any
}

// ToolCallsJSON renders calls into the JSON envelope the json response
// format parses.
func ToolCallsJSON(calls ...Call) string {
	wire := make([]map[string]any, len(calls))
	for i, c := range calls {
		args := c.Args
		if args == nil {
			args = map[string]any{}
		}
		wire[i] = map[string]any{"name": c.Name, "arguments": args}
	}
	out, err := json.Marshal(map[string]any{"tool_calls": wire})
	if err != nil {
		panic(err)
	}
	return string(out)
}

// FinalAnswerJSON is a canned supervisor response delivering answer.
func FinalAnswerJSON(answer string) string {
	return ToolCallsJSON(Call{Name: tool.FinalAnswerName, Args: map[string]any{"answer": answer}})
}

// DelegateJSON is a canned supervisor response delegating instruction.
func DelegateJSON(instruction string) string {
	return ToolCallsJSON(Call{Name: tool.DelegateName, Args: map[string]any{"instruction": instruction}})
}

// ProgressJSON is a canned worker response reporting summary.
func ProgressJSON(summary string) string {
	return ToolCallsJSON(Call{Name: tool.ProgressReportName, Args: map[string]any{"summary": summary}})
}

// anySchema accepts every argument bag.
func anySchema() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}

// NewEchoTool returns a tool that succeeds and echoes its arguments.
func NewEchoTool(name string, opts ...tool.Option) *tool.FunctionTool {
	return tool.NewFunctionTool(name, "echoes its arguments", anySchema(),
		func(_ *core.ToolContext, args map[string]any) (any, error) {
			return args, nil
		}, opts...)
}

// NewFailingTool returns a tool whose handler always errors with msg.
func NewFailingTool(name, msg string, opts ...tool.Option) *tool.FunctionTool {
	return tool.NewFunctionTool(name, "always fails", anySchema(),
		func(_ *core.ToolContext, _ map[string]any) (any, error) {
			return nil, fmt.Errorf("%s", msg)
		}, opts...)
}

// NewSlowTool returns a tool that sleeps for d before succeeding, unless its
// context is cancelled first.
func NewSlowTool(name string, d time.Duration, opts ...tool.Option) *tool.FunctionTool {
	return tool.NewFunctionTool(name, "sleeps then succeeds", anySchema(),
		func(tc *core.ToolContext, _ map[string]any) (any, error) {
			select {
			case <-time.After(d):
				return "slept", nil
			case <-tc.Context().Done():
				return nil, tc.Context().Err()
			}
		}, opts...)
}

// Recorder collects tool invocation order across goroutines.
type Recorder struct {
	mu    sync.Mutex
	order []string
}

// Tool returns a succeeding tool that records its name on every call.
func (r *Recorder) Tool(name string, opts ...tool.Option) *tool.FunctionTool {
	return tool.NewFunctionTool(name, "records its invocation", anySchema(),
		func(_ *core.ToolContext, _ map[string]any) (any, error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.order = append(r.order, name)
			return name, nil
		}, opts...)
}

// Order returns a snapshot of the recorded invocation order.
func (r *Recorder) Order() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Index returns the position of name in the recorded order, or -1.
func (r *Recorder) Index(name string) int {
	for i, n := range r.Order() {
		if n == name {
			return i
		}
	}
	return -1
}
