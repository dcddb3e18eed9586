package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/agentpilot/core"
)

// ToolDefinition declaratively exposes a callable tool to the model, either
// rendered into prompt text by a response format or passed natively to
// providers that support function calling.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual tool exposed to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset expected).
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolSpec is the minimal view of a tool needed to build a ToolDefinition.
// tool.Tool satisfies it; keeping the interface here avoids an import cycle.
type ToolSpec interface {
	Name() string
	Description() string
	Parameters() map[string]any
}

// Definitions converts tool specs into wire ToolDefinitions.
func Definitions[T ToolSpec](specs []T) []ToolDefinition {
	defs := make([]ToolDefinition, len(specs))
	for i, s := range specs {
		defs[i] = ToolDefinition{
			Type: "function",
			Function: FunctionDefinition{
				Name:        s.Name(),
				Description: s.Description(),
				Parameters:  s.Parameters(),
			},
		}
	}
	return defs
}

// Request captures one completion request: the fully built prompt text plus
// optional tool schema hints for providers with native function calling.
type Request struct {
	System string           `json:"system,omitempty"`
	Prompt string           `json:"prompt"`
	Tools  []ToolDefinition `json:"tools,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "mock", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the transport boundary the orchestrator drives. Implementations
// return the raw response text; a non-text or empty result must be surfaced
// as a classified KindInvalidResponse error, transport failures as
// KindConnection. Retry/backoff is the orchestrator's concern, not the
// transport's.
type Model interface {
	// Complete performs one completion round trip.
	Complete(ctx context.Context, req Request) (string, error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockModel is a lightweight in-memory Model useful for tests & examples.
// Responses are consumed from a FIFO script; transport failures can be
// injected ahead of any response to exercise retry paths.
type MockModel struct {
	mu       sync.Mutex
	info     Info
	script   []string
	failures []error
	fallback string
	Requests []Request // recorded requests, in order
}

// NewMockModel constructs a MockModel.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info:     Info{Name: name, Provider: "mock", SupportsTools: true},
		fallback: "",
	}
}

// Enqueue appends scripted responses returned in FIFO order.
func (m *MockModel) Enqueue(responses ...string) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, responses...)
	return m
}

// FailNext injects transport errors consumed before any scripted response.
func (m *MockModel) FailNext(errs ...error) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, errs...)
	return m
}

// SetFallback sets the response returned once the script is exhausted.
func (m *MockModel) SetFallback(response string) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = response
	return m
}

// Complete implements Model.
func (m *MockModel) Complete(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", core.WrapError(core.KindConnection, err, "mock transport cancelled")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)

	if len(m.failures) > 0 {
		err := m.failures[0]
		m.failures = m.failures[1:]
		return "", core.WrapError(core.KindConnection, err, "mock transport failure")
	}

	if len(m.script) > 0 {
		resp := m.script[0]
		m.script = m.script[1:]
		return resp, nil
	}

	if m.fallback != "" {
		return m.fallback, nil
	}

	return "", core.NewAgentError(core.KindInvalidResponse, "mock script exhausted after %d requests", len(m.Requests))
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }

// CallCount returns the number of Complete invocations so far.
func (m *MockModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

var _ Model = (*MockModel)(nil)

// ErrEmptyResponse builds the classified error for an empty/non-text
// completion. Shared by provider adapters.
func ErrEmptyResponse(provider string) error {
	return core.NewAgentError(core.KindInvalidResponse, "%s returned an empty response", provider)
}

// ErrTransport builds the classified error for a provider transport failure.
func ErrTransport(provider string, err error) error {
	return core.WrapError(core.KindConnection, err, "%s api error", provider)
}

// String renders a short human readable description of the model.
func (i Info) String() string { return fmt.Sprintf("%s/%s", i.Provider, i.Name) }
