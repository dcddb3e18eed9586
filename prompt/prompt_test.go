package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentpilot/core"
)

func TestBuilder_SupervisorPrompt(t *testing.T) {
	b := NewBuilder()

	text, err := b.Build(Input{
		System:       "You are helpful.",
		Role:         core.RoleSupervisor,
		Request:      "Summarize the report",
		ToolFragment: "Available tools: final_answer, delegate_task",
	})
	require.NoError(t, err)

	assert.Contains(t, text, "You are helpful.")
	assert.Contains(t, text, "supervisor")
	assert.Contains(t, text, "Summarize the report")
	assert.Contains(t, text, "final_answer")
	assert.NotContains(t, text, "previous action failed")
}

func TestBuilder_WorkerPrompt(t *testing.T) {
	b := NewBuilder()

	text, err := b.Build(Input{
		System:       "You are helpful.",
		Role:         core.RoleWorker,
		Request:      "Count the lines in a.txt",
		ToolFragment: "Available tools: read_file",
	})
	require.NoError(t, err)

	assert.Contains(t, text, "worker")
	assert.Contains(t, text, "Count the lines in a.txt")
	assert.Contains(t, text, "progress_report")
}

func TestBuilder_IncludesReportsFromHistory(t *testing.T) {
	b := NewBuilder()

	history := []core.Interaction{
		core.NewUserPromptInteraction("do things"),
		core.NewToolResultsInteraction(core.RoleWorker, nil, "counted 12 lines"),
		core.NewAgentResponseInteraction(core.RoleWorker, "raw response"),
		core.NewToolResultsInteraction(core.RoleWorker, nil, "wrote summary file"),
	}

	text, err := b.Build(Input{
		Role:    core.RoleSupervisor,
		Request: "do things",
		History: history,
	})
	require.NoError(t, err)

	assert.Contains(t, text, "counted 12 lines")
	assert.Contains(t, text, "wrote summary file")
	assert.NotContains(t, text, "raw response")
}

func TestBuilder_SurfacesLastError(t *testing.T) {
	b := NewBuilder()

	text, err := b.Build(Input{
		Role:      core.RoleWorker,
		Request:   "retry the thing",
		LastError: core.NewAgentError(core.KindToolNotFound, "tool \"ghost\" is not registered"),
	})
	require.NoError(t, err)

	assert.Contains(t, text, "previous action failed")
	assert.Contains(t, text, "TOOL_NOT_FOUND")
	assert.Contains(t, text, "ghost")
}
