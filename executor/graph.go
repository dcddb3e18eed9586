package executor

import (
	"context"
	"sync"

	"github.com/hupe1980/agentpilot/core"
)

// runGraph schedules the batch along the declared tool dependency graph.
// Calls of independent tools run concurrently; a tool's calls start only once
// every dependency that also appears in this batch has settled successfully.
// When a dependency fails, every transitive dependent settles as skipped
// without being dispatched. Results come back in input order.
func (e *Executor) runGraph(ctx context.Context, runID string, state *core.TurnState, calls []core.PendingToolCall) []core.ToolCallResult {
	if len(calls) == 0 {
		return nil
	}

	s := newGraphScheduler(e, ctx, runID, state, calls)
	s.run()

	results := make([]core.ToolCallResult, 0, len(calls))
	for _, call := range calls {
		results = append(results, s.results[call.ID])
	}
	return results
}

// graphScheduler tracks the settlement state of one batch. All maps are keyed
// by tool name; readiness is a property of the tool, not of individual calls,
// so multiple calls to the same tool start together and the tool settles when
// its last call does. All mutable state is guarded by mu.
type graphScheduler struct {
	ex    *Executor
	ctx   context.Context
	runID string
	state *core.TurnState

	mu         sync.Mutex
	wg         sync.WaitGroup
	calls      map[string][]core.PendingToolCall
	pending    map[string]int      // unsettled dependencies, restricted to this batch
	dependents map[string][]string // dependency name -> dependent tool names
	remaining  map[string]int      // unsettled calls per tool
	started    map[string]bool
	settled    map[string]bool
	failed     map[string]bool // at least one call of the tool failed
	results    map[string]core.ToolCallResult
}

func newGraphScheduler(e *Executor, ctx context.Context, runID string, state *core.TurnState, batch []core.PendingToolCall) *graphScheduler {
	s := &graphScheduler{
		ex:         e,
		ctx:        ctx,
		runID:      runID,
		state:      state,
		calls:      map[string][]core.PendingToolCall{},
		pending:    map[string]int{},
		dependents: map[string][]string{},
		remaining:  map[string]int{},
		started:    map[string]bool{},
		settled:    map[string]bool{},
		failed:     map[string]bool{},
		results:    make(map[string]core.ToolCallResult, len(batch)),
	}

	for _, call := range batch {
		s.calls[call.Name] = append(s.calls[call.Name], call)
	}
	for name, tcalls := range s.calls {
		s.remaining[name] = len(tcalls)
		t, _ := e.registry.Get(name)
		for _, dep := range t.Dependencies() {
			// Dependencies outside the batch are satisfied by definition.
			if _, inBatch := s.calls[dep]; !inBatch || dep == name {
				continue
			}
			s.pending[name]++
			s.dependents[dep] = append(s.dependents[dep], name)
		}
	}

	return s
}

// run starts every ready tool and blocks until the whole batch settled.
// Progress is guaranteed because the registry rejects dependency cycles.
func (s *graphScheduler) run() {
	s.mu.Lock()
	for name := range s.calls {
		if s.pending[name] == 0 {
			s.startTool(name)
		}
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// startTool dispatches every call of the tool on its own goroutine. Caller
// holds mu. Bookkeeping on completion happens under mu before wg.Done, so
// the WaitGroup counter cannot reach zero while a newly ready tool is still
// being started.
func (s *graphScheduler) startTool(name string) {
	s.started[name] = true
	for _, call := range s.calls[name] {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			result := s.ex.runCall(s.ctx, s.runID, s.state, call)

			s.mu.Lock()
			defer s.mu.Unlock()
			s.results[call.ID] = result
			if result.Failed() {
				s.failed[name] = true
			}
			s.remaining[name]--
			if s.remaining[name] == 0 {
				s.settleTool(name)
			}
		}()
	}
}

// settleTool marks the tool settled and releases or prunes its dependents.
// Caller holds mu.
func (s *graphScheduler) settleTool(name string) {
	s.settled[name] = true
	for _, dep := range s.dependents[name] {
		if s.failed[name] {
			s.skipTool(dep, name)
			continue
		}
		s.pending[dep]--
		if s.pending[dep] == 0 && !s.started[dep] && !s.settled[dep] {
			s.startTool(dep)
		}
	}
}

// skipTool settles every call of the tool as skipped and prunes its own
// dependents in turn. The settled flag doubles as the visited set, so a tool
// reachable through several failed paths is only pruned once. Caller holds mu.
func (s *graphScheduler) skipTool(name, failedDep string) {
	if s.started[name] || s.settled[name] {
		return
	}
	s.settled[name] = true
	s.remaining[name] = 0

	for _, call := range s.calls[name] {
		s.results[call.ID] = s.ex.skippedResult(call, failedDep)
	}
	for _, dep := range s.dependents[name] {
		s.skipTool(dep, name)
	}
}
