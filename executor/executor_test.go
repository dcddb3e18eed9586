package executor

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentpilot/core"
	"github.com/hupe1980/agentpilot/internal/testutil"
	"github.com/hupe1980/agentpilot/tool"
)

func newRegistry(t *testing.T, tools ...tool.Tool) *tool.Registry {
	t.Helper()
	r := tool.NewRegistry()
	for _, tl := range tools {
		require.NoError(t, r.Register(tl))
	}
	return r
}

func call(name string) core.PendingToolCall {
	return core.PendingToolCall{ID: "call-" + name, Name: name, Arguments: map[string]any{}}
}

func resultFor(t *testing.T, batch *BatchResult, callID string) core.ToolCallResult {
	t.Helper()
	for _, r := range batch.Results {
		if r.CallID == callID {
			return r
		}
	}
	t.Fatalf("no result for call %q", callID)
	return core.ToolCallResult{}
}

func TestExecuteBatch_Sequential(t *testing.T) {
	rec := &testutil.Recorder{}
	reg := newRegistry(t, rec.Tool("first"), rec.Tool("second"))
	ex := New(reg)

	batch := ex.ExecuteBatch(context.Background(), "run-1", core.NewTurnState(), []core.PendingToolCall{
		call("first"), call("second"),
	})

	require.Len(t, batch.Results, 2)
	assert.Nil(t, batch.Err)
	assert.Equal(t, []string{"first", "second"}, rec.Order())
	for _, r := range batch.Results {
		assert.True(t, r.Success)
	}
}

func TestExecuteBatch_UnknownToolSynthesized(t *testing.T) {
	reg := newRegistry(t, testutil.NewEchoTool("known"))
	ex := New(reg, WithFailureMode(ContinueOnFailure))

	batch := ex.ExecuteBatch(context.Background(), "run-1", core.NewTurnState(), []core.PendingToolCall{
		call("known"), call("ghost"),
	})

	require.Len(t, batch.Results, 2)
	assert.Nil(t, batch.Err)

	ghost := resultFor(t, batch, "call-ghost")
	assert.False(t, ghost.Success)
	assert.False(t, ghost.Skipped)
	require.NotNil(t, ghost.Error)
	assert.Equal(t, core.KindToolNotFound, ghost.Error.Kind)

	assert.True(t, resultFor(t, batch, "call-known").Success)
}

func TestExecuteBatch_ResultsKeepInputOrder(t *testing.T) {
	// Synthesized failures occupy the position of the call that produced
	// them instead of being collected up front.
	reg := newRegistry(t, testutil.NewEchoTool("known"), testutil.NewEchoTool("other"))
	ex := New(reg, WithFailureMode(ContinueOnFailure), WithParallel(true))

	batch := ex.ExecuteBatch(context.Background(), "run-1", core.NewTurnState(), []core.PendingToolCall{
		call("known"), call("ghost"), call("other"),
	})

	require.Len(t, batch.Results, 3)
	assert.Equal(t, []string{"call-known", "call-ghost", "call-other"},
		[]string{batch.Results[0].CallID, batch.Results[1].CallID, batch.Results[2].CallID})
	assert.Equal(t, core.KindToolNotFound, batch.Results[1].Error.Kind)
}

func TestExecuteBatch_ToolGateDeniesCall(t *testing.T) {
	rec := &testutil.Recorder{}
	reg := newRegistry(t, rec.Tool("open"), rec.Tool("restricted"))
	ex := New(reg,
		WithFailureMode(ContinueOnFailure),
		WithToolGate(func(name string) bool { return name != "restricted" }),
	)

	batch := ex.ExecuteBatch(context.Background(), "run-1", core.NewTurnState(), []core.PendingToolCall{
		call("open"), call("restricted"),
	})

	require.Len(t, batch.Results, 2)
	assert.True(t, resultFor(t, batch, "call-open").Success)

	denied := resultFor(t, batch, "call-restricted")
	assert.False(t, denied.Success)
	require.NotNil(t, denied.Error)
	assert.Equal(t, core.KindToolNotFound, denied.Error.Kind)
	assert.Contains(t, denied.Error.Message, "not available")

	// The gated tool never ran.
	assert.Equal(t, []string{"open"}, rec.Order())
}

func TestExecuteBatch_FailFastStopsDispatch(t *testing.T) {
	rec := &testutil.Recorder{}
	reg := newRegistry(t,
		rec.Tool("first"),
		testutil.NewFailingTool("breaks", "boom"),
		rec.Tool("never"),
	)
	ex := New(reg, WithFailureMode(FailFast), WithRetry(0, 0))

	batch := ex.ExecuteBatch(context.Background(), "run-1", core.NewTurnState(), []core.PendingToolCall{
		call("first"), call("breaks"), call("never"),
	})

	require.Len(t, batch.Results, 3)
	require.NotNil(t, batch.Err)
	assert.Equal(t, core.KindToolExecution, batch.Err.Kind)

	// "never" was not dispatched; it settled as skipped.
	assert.Equal(t, []string{"first"}, rec.Order())
	never := resultFor(t, batch, "call-never")
	assert.True(t, never.Skipped)
	assert.False(t, never.Success)
}

func TestExecuteBatch_PartialSuccessTolerance(t *testing.T) {
	reg := newRegistry(t,
		testutil.NewEchoTool("ok1"), testutil.NewEchoTool("ok2"),
		testutil.NewFailingTool("bad1", "boom"), testutil.NewFailingTool("bad2", "boom"),
		testutil.NewFailingTool("bad3", "boom"),
	)
	ex := New(reg, WithFailureMode(PartialSuccess), WithFailureTolerance(0.5), WithRetry(0, 0))

	// 2 of 4 failed: ratio 0.5 is within tolerance.
	batch := ex.ExecuteBatch(context.Background(), "run-1", core.NewTurnState(), []core.PendingToolCall{
		call("ok1"), call("ok2"), call("bad1"), call("bad2"),
	})
	assert.Nil(t, batch.Err)
	assert.Len(t, batch.Failures(), 2)

	// 3 of 4 failed: ratio 0.75 exceeds tolerance.
	batch = ex.ExecuteBatch(context.Background(), "run-1", core.NewTurnState(), []core.PendingToolCall{
		call("ok1"), call("bad1"), call("bad2"), call("bad3"),
	})
	require.NotNil(t, batch.Err)
	assert.Equal(t, core.KindToolExecution, batch.Err.Kind)
}

func TestExecuteBatch_ContinueOnFailureNeverFailsRound(t *testing.T) {
	reg := newRegistry(t, testutil.NewFailingTool("bad", "boom"))
	ex := New(reg, WithFailureMode(ContinueOnFailure), WithRetry(0, 0))

	batch := ex.ExecuteBatch(context.Background(), "run-1", core.NewTurnState(), []core.PendingToolCall{
		call("bad"),
	})

	assert.Nil(t, batch.Err)
	assert.Len(t, batch.Failures(), 1)
}

func TestExecuteBatch_Parallel(t *testing.T) {
	reg := newRegistry(t,
		testutil.NewSlowTool("slow1", 50*time.Millisecond),
		testutil.NewSlowTool("slow2", 50*time.Millisecond),
		testutil.NewSlowTool("slow3", 50*time.Millisecond),
	)
	ex := New(reg, WithParallel(true))

	start := time.Now()
	batch := ex.ExecuteBatch(context.Background(), "run-1", core.NewTurnState(), []core.PendingToolCall{
		call("slow1"), call("slow2"), call("slow3"),
	})
	elapsed := time.Since(start)

	require.Len(t, batch.Results, 3)
	assert.Nil(t, batch.Err)
	// Concurrent dispatch: well under the 150ms a sequential run would need.
	assert.Less(t, elapsed, 120*time.Millisecond)
}

func TestExecuteBatch_DependencySkipPropagation(t *testing.T) {
	// A succeeds, B fails, C depends on B: C settles as skipped.
	reg := newRegistry(t,
		testutil.NewEchoTool("a"),
		testutil.NewFailingTool("b", "boom"),
		testutil.NewEchoTool("c", tool.WithDependencies("b")),
	)
	ex := New(reg, WithDependencies(true), WithFailureMode(ContinueOnFailure), WithRetry(0, 0))

	batch := ex.ExecuteBatch(context.Background(), "run-1", core.NewTurnState(), []core.PendingToolCall{
		call("a"), call("b"), call("c"),
	})

	require.Len(t, batch.Results, 3)
	assert.True(t, resultFor(t, batch, "call-a").Success)
	assert.False(t, resultFor(t, batch, "call-b").Success)

	c := resultFor(t, batch, "call-c")
	assert.True(t, c.Skipped)
	require.NotNil(t, c.Error)
	assert.Equal(t, "b", c.Error.Context["failed_dependency"])
}

func TestExecuteBatch_TransitiveSkip(t *testing.T) {
	// a fails; b depends on a, c depends on b: both pruned, exactly once.
	reg := newRegistry(t,
		testutil.NewFailingTool("a", "boom"),
		testutil.NewEchoTool("b", tool.WithDependencies("a")),
		testutil.NewEchoTool("c", tool.WithDependencies("b")),
	)
	ex := New(reg, WithDependencies(true), WithFailureMode(ContinueOnFailure), WithRetry(0, 0))

	batch := ex.ExecuteBatch(context.Background(), "run-1", core.NewTurnState(), []core.PendingToolCall{
		call("a"), call("b"), call("c"),
	})

	require.Len(t, batch.Results, 3)
	assert.True(t, resultFor(t, batch, "call-b").Skipped)
	assert.True(t, resultFor(t, batch, "call-c").Skipped)
}

func TestExecuteBatch_DiamondDependencies(t *testing.T) {
	rec := &testutil.Recorder{}
	reg := newRegistry(t,
		rec.Tool("fetch"),
		rec.Tool("parse", tool.WithDependencies("fetch")),
		rec.Tool("enrich", tool.WithDependencies("fetch")),
		rec.Tool("store", tool.WithDependencies("parse", "enrich")),
	)
	ex := New(reg, WithDependencies(true))

	batch := ex.ExecuteBatch(context.Background(), "run-1", core.NewTurnState(), []core.PendingToolCall{
		call("store"), call("enrich"), call("parse"), call("fetch"),
	})

	require.Len(t, batch.Results, 4)
	assert.Nil(t, batch.Err)

	order := rec.Order()
	require.Len(t, order, 4)
	assert.Equal(t, "fetch", order[0])
	assert.Equal(t, "store", order[3])
	assert.Less(t, rec.Index("parse"), rec.Index("store"))
	assert.Less(t, rec.Index("enrich"), rec.Index("store"))
}

func TestExecuteBatch_DependenciesOutsideBatchSatisfied(t *testing.T) {
	// "parse" depends on "fetch", but fetch is not in this batch.
	reg := newRegistry(t,
		testutil.NewEchoTool("fetch"),
		testutil.NewEchoTool("parse", tool.WithDependencies("fetch")),
	)
	ex := New(reg, WithDependencies(true))

	batch := ex.ExecuteBatch(context.Background(), "run-1", core.NewTurnState(), []core.PendingToolCall{
		call("parse"),
	})

	require.Len(t, batch.Results, 1)
	assert.True(t, batch.Results[0].Success)
}

func TestRunCall_Timeout(t *testing.T) {
	blocking := tool.NewFunctionTool("block", "ignores cancellation",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ *core.ToolContext, _ map[string]any) (any, error) {
			time.Sleep(300 * time.Millisecond)
			return "late", nil
		},
		tool.WithTimeout(50*time.Millisecond),
	)
	reg := newRegistry(t, blocking, testutil.NewEchoTool("quick"))
	ex := New(reg, WithParallel(true), WithFailureMode(ContinueOnFailure), WithRetry(0, 0))

	start := time.Now()
	batch := ex.ExecuteBatch(context.Background(), "run-1", core.NewTurnState(), []core.PendingToolCall{
		call("block"), call("quick"),
	})
	elapsed := time.Since(start)

	blocked := resultFor(t, batch, "call-block")
	assert.False(t, blocked.Success)
	require.NotNil(t, blocked.Error)
	assert.Equal(t, core.KindToolTimeout, blocked.Error.Kind)

	// The batch settles at the timeout, not at the handler's sleep.
	assert.Less(t, elapsed, 250*time.Millisecond)

	// Siblings are unaffected by the timeout.
	assert.True(t, resultFor(t, batch, "call-quick").Success)
}

func TestRunCall_PanicContained(t *testing.T) {
	panicky := tool.NewFunctionTool("panics", "panics",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ *core.ToolContext, _ map[string]any) (any, error) {
			panic("kaboom")
		})
	reg := newRegistry(t, panicky)
	ex := New(reg, WithRetry(0, 0))

	batch := ex.ExecuteBatch(context.Background(), "run-1", core.NewTurnState(), []core.PendingToolCall{
		call("panics"),
	})

	require.Len(t, batch.Results, 1)
	require.NotNil(t, batch.Results[0].Error)
	assert.Equal(t, core.KindToolExecution, batch.Results[0].Error.Kind)
	assert.Contains(t, batch.Results[0].Error.Message, "kaboom")
}

func TestRunCall_RetryEventuallySucceeds(t *testing.T) {
	var attempts int32
	flaky := tool.NewFunctionTool("flaky", "fails twice then succeeds",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ *core.ToolContext, _ map[string]any) (any, error) {
			if atomic.AddInt32(&attempts, 1) < 3 {
				return nil, fmt.Errorf("transient")
			}
			return "done", nil
		})
	reg := newRegistry(t, flaky)
	ex := New(reg, WithRetry(3, time.Millisecond))

	batch := ex.ExecuteBatch(context.Background(), "run-1", core.NewTurnState(), []core.PendingToolCall{
		call("flaky"),
	})

	require.Len(t, batch.Results, 1)
	assert.True(t, batch.Results[0].Success)
	assert.Equal(t, "done", batch.Results[0].Result)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestRunCall_InvalidInputNotRetried(t *testing.T) {
	var attempts int32
	strict := tool.NewFunctionTool("strict", "requires a path",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{"type": "string"},
			},
			"required": []string{"path"},
		},
		func(_ *core.ToolContext, _ map[string]any) (any, error) {
			atomic.AddInt32(&attempts, 1)
			return nil, nil
		})
	reg := newRegistry(t, strict)
	ex := New(reg, WithRetry(3, time.Millisecond))

	batch := ex.ExecuteBatch(context.Background(), "run-1", core.NewTurnState(), []core.PendingToolCall{
		call("strict"),
	})

	require.NotNil(t, batch.Results[0].Error)
	assert.Equal(t, core.KindInvalidInput, batch.Results[0].Error.Kind)
	assert.Equal(t, int32(0), atomic.LoadInt32(&attempts))
}

func TestExecuteBatch_MultipleCallsSameTool(t *testing.T) {
	reg := newRegistry(t, testutil.NewEchoTool("echo"))
	ex := New(reg, WithDependencies(true))

	calls := []core.PendingToolCall{
		{ID: "c1", Name: "echo", Arguments: map[string]any{"n": 1.0}},
		{ID: "c2", Name: "echo", Arguments: map[string]any{"n": 2.0}},
	}
	batch := ex.ExecuteBatch(context.Background(), "run-1", core.NewTurnState(), calls)

	require.Len(t, batch.Results, 2)
	for _, r := range batch.Results {
		assert.True(t, r.Success)
	}
}

func TestExecuteBatch_EmptyBatch(t *testing.T) {
	ex := New(newRegistry(t))
	batch := ex.ExecuteBatch(context.Background(), "run-1", core.NewTurnState(), nil)
	assert.Empty(t, batch.Results)
	assert.Nil(t, batch.Err)
}
