package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentpilot/core"
)

func TestMockModel_ScriptFIFO(t *testing.T) {
	m := NewMockModel("scripted").Enqueue("first", "second")

	resp, err := m.Complete(context.Background(), Request{Prompt: "p1"})
	require.NoError(t, err)
	assert.Equal(t, "first", resp)

	resp, err = m.Complete(context.Background(), Request{Prompt: "p2"})
	require.NoError(t, err)
	assert.Equal(t, "second", resp)

	assert.Equal(t, 2, m.CallCount())
	assert.Equal(t, "p1", m.Requests[0].Prompt)
}

func TestMockModel_FailuresConsumedFirst(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	m := NewMockModel("flaky").FailNext(cause).Enqueue("recovered")

	_, err := m.Complete(context.Background(), Request{})
	require.Error(t, err)
	assert.Equal(t, core.KindConnection, core.AsAgentError(err).Kind)
	assert.ErrorIs(t, err, cause)

	resp, err := m.Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp)
}

func TestMockModel_ExhaustedScript(t *testing.T) {
	m := NewMockModel("empty")

	_, err := m.Complete(context.Background(), Request{})
	require.Error(t, err)
	assert.Equal(t, core.KindInvalidResponse, core.AsAgentError(err).Kind)
}

func TestMockModel_Fallback(t *testing.T) {
	m := NewMockModel("fallback").SetFallback("always this")

	for i := 0; i < 3; i++ {
		resp, err := m.Complete(context.Background(), Request{})
		require.NoError(t, err)
		assert.Equal(t, "always this", resp)
	}
}

func TestMockModel_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewMockModel("cancelled").Enqueue("never")
	_, err := m.Complete(ctx, Request{})
	require.Error(t, err)
	assert.Equal(t, core.KindConnection, core.AsAgentError(err).Kind)
}

func TestDefinitions(t *testing.T) {
	specs := []fakeSpec{
		{name: "read_file", desc: "Read a file"},
		{name: "list_dir", desc: "List a directory"},
	}

	defs := Definitions(specs)
	require.Len(t, defs, 2)
	assert.Equal(t, "function", defs[0].Type)
	assert.Equal(t, "read_file", defs[0].Function.Name)
	assert.Equal(t, "List a directory", defs[1].Function.Description)
}

func TestInfo_String(t *testing.T) {
	info := Info{Name: "gpt-4o-mini", Provider: "openai"}
	assert.Equal(t, "openai/gpt-4o-mini", info.String())
}

type fakeSpec struct {
	name string
	desc string
}

func (s fakeSpec) Name() string               { return s.name }
func (s fakeSpec) Description() string        { return s.desc }
func (s fakeSpec) Parameters() map[string]any { return map[string]any{"type": "object"} }
