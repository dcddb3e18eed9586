package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentpilot/core"
)

func pending(name string, args map[string]any) core.PendingToolCall {
	return core.PendingToolCall{ID: "id-" + name, Name: name, Arguments: args}
}

func TestBatchSignature_OrderInsensitive(t *testing.T) {
	a := pending("read_file", map[string]any{"path": "a.txt"})
	b := pending("list_dir", map[string]any{"path": "."})

	sig1 := batchSignature(core.RoleWorker, []core.PendingToolCall{a, b})
	sig2 := batchSignature(core.RoleWorker, []core.PendingToolCall{b, a})
	assert.Equal(t, sig1, sig2)
}

func TestBatchSignature_ArgumentSensitive(t *testing.T) {
	sig1 := batchSignature(core.RoleWorker, []core.PendingToolCall{pending("read_file", map[string]any{"path": "a.txt"})})
	sig2 := batchSignature(core.RoleWorker, []core.PendingToolCall{pending("read_file", map[string]any{"path": "b.txt"})})
	assert.NotEqual(t, sig1, sig2)
}

func TestBatchSignature_RoleSensitive(t *testing.T) {
	calls := []core.PendingToolCall{pending("delegate_task", map[string]any{})}
	assert.NotEqual(t,
		batchSignature(core.RoleSupervisor, calls),
		batchSignature(core.RoleWorker, calls),
	)
}

func TestStagnationDetector_WarnsThenTerminates(t *testing.T) {
	det := newStagnationDetector(3)
	calls := []core.PendingToolCall{pending("read_file", map[string]any{"path": "a.txt"})}

	err, terminal := det.observe(core.RoleWorker, calls)
	assert.Nil(t, err)
	err, terminal = det.observe(core.RoleWorker, calls)
	assert.Nil(t, err)

	// Third identical batch reaches the threshold: warning, not terminal.
	err, terminal = det.observe(core.RoleWorker, calls)
	require.NotNil(t, err)
	assert.Equal(t, core.KindStagnation, err.Kind)
	assert.False(t, terminal)

	// Repeating after the warning is terminal.
	err, terminal = det.observe(core.RoleWorker, calls)
	require.NotNil(t, err)
	assert.True(t, terminal)
}

func TestStagnationDetector_ResetsOnNewSignature(t *testing.T) {
	det := newStagnationDetector(2)
	first := []core.PendingToolCall{pending("read_file", map[string]any{"path": "a.txt"})}
	second := []core.PendingToolCall{pending("read_file", map[string]any{"path": "b.txt"})}

	_, _ = det.observe(core.RoleWorker, first)
	err, _ := det.observe(core.RoleWorker, second)
	assert.Nil(t, err)

	// The count restarted with the new signature.
	err, terminal := det.observe(core.RoleWorker, second)
	require.NotNil(t, err)
	assert.False(t, terminal)
}

func TestStagnationDetector_Disabled(t *testing.T) {
	det := newStagnationDetector(0)
	calls := []core.PendingToolCall{pending("x", nil)}

	for i := 0; i < 10; i++ {
		err, terminal := det.observe(core.RoleWorker, calls)
		assert.Nil(t, err)
		assert.False(t, terminal)
	}
}
