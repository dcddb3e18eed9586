// Package agentpilot provides a high-level façade over the orchestrator
// control loop, the tool registry and the response formats, enabling rapid
// construction of supervised tool-calling agents. Most applications interact
// with this package by:
//  1. Creating an AgentPilot via New() with a model transport
//  2. Registering tools (plain functions or struct-derived schemas)
//  3. Running prompts synchronously via Run()
//
// The façade delegates the control loop to orchestrator.Orchestrator while
// keeping setup ergonomics concise. Defaults are safe for local development:
// JSON response format, sequential tool execution and a no-op logger.
package agentpilot

import (
	"context"

	"github.com/hupe1980/agentpilot/core"
	"github.com/hupe1980/agentpilot/model"
	"github.com/hupe1980/agentpilot/orchestrator"
	"github.com/hupe1980/agentpilot/tool"
)

// AgentPilot is the high-level façade aggregating the orchestrator and its
// tool registry.
type AgentPilot struct {
	orch *orchestrator.Orchestrator
}

// New creates an AgentPilot driving the given model. Options are forwarded
// to the orchestrator unchanged.
func New(m model.Model, opts ...orchestrator.Option) (*AgentPilot, error) {
	orch, err := orchestrator.New(m, opts...)
	if err != nil {
		return nil, err
	}
	return &AgentPilot{orch: orch}, nil
}

// RegisterTool adds a tool to the agent's registry.
func (a *AgentPilot) RegisterTool(t tool.Tool) error {
	return a.orch.RegisterTool(t)
}

// RegisterTools adds multiple tools, stopping at the first failure.
func (a *AgentPilot) RegisterTools(tools ...tool.Tool) error {
	for _, t := range tools {
		if err := a.orch.RegisterTool(t); err != nil {
			return err
		}
	}
	return nil
}

// Run executes one complete control loop for the prompt. Terminal failures
// are carried in the result, never returned as a Go error.
func (a *AgentPilot) Run(ctx context.Context, prompt string) *core.RunResult {
	return a.orch.Run(ctx, prompt)
}
