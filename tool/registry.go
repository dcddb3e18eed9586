package tool

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/hupe1980/agentpilot/core"
)

var namePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Registry holds the tool set owned by an orchestrator. Registration happens
// at construction time; during a run the registry is read-only, so lookups
// need no locking beyond the RWMutex used for safety in mixed scenarios.
//
// Register enforces the name pattern, rejects duplicates, and re-checks the
// dependency relation for cycles across the full registered set after every
// addition. Registration failures are programmer errors: they are returned as
// fatal classified errors and should abort construction.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string // registration order, for stable prompt fragments
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: map[string]Tool{}}
}

// Register adds a tool to the registry.
//
// Errors (all fatal, per the registration policy):
//
//	KindInvalidToolName    name does not match ^[a-zA-Z_][a-zA-Z0-9_]*$
//	KindDuplicateToolName  a tool with the same name already exists
//	KindConfiguration      the addition closes a dependency cycle
func (r *Registry) Register(t Tool) error {
	name := t.Name()
	if !namePattern.MatchString(name) {
		return core.NewAgentError(core.KindInvalidToolName, "invalid tool name %q", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return core.NewAgentError(core.KindDuplicateToolName, "tool %q already registered", name)
	}

	r.tools[name] = t
	r.order = append(r.order, name)

	if cycle := r.findCycle(); cycle != nil {
		delete(r.tools, name)
		r.order = r.order[:len(r.order)-1]
		return core.NewAgentError(core.KindConfiguration, "tool dependency cycle: %s", strings.Join(cycle, " -> ")).
			With("cycle", cycle)
	}

	return nil
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Has reports whether a tool is registered under name.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Tools returns the registered tools in registration order.
func (r *Registry) Tools() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tools := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		tools = append(tools, r.tools[name])
	}
	return tools
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// ValidateDependencies checks the declared dependency relation across the
// full registered set and returns a fatal configuration error naming the
// exact cycle path if one exists. Dependencies on unregistered names are
// ignored (they can never be scheduled, so they cannot cycle).
func (r *Registry) ValidateDependencies() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if cycle := r.findCycle(); cycle != nil {
		return core.NewAgentError(core.KindConfiguration, "tool dependency cycle: %s", strings.Join(cycle, " -> ")).
			With("cycle", cycle)
	}
	return nil
}

// findCycle runs a depth-first search with an explicit recursion stack over
// the dependency relation. It returns the cycle path (closing node repeated
// at the end) or nil. Caller must hold at least a read lock.
func (r *Registry) findCycle() []string {
	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)

	state := make(map[string]int, len(r.tools))
	var stack []string

	// Sorted start order keeps the reported cycle deterministic.
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	var visit func(name string) []string
	visit = func(name string) []string {
		state[name] = inStack
		stack = append(stack, name)

		t := r.tools[name]
		for _, dep := range t.Dependencies() {
			if _, registered := r.tools[dep]; !registered {
				continue
			}
			switch state[dep] {
			case inStack:
				// Found a cycle; slice the stack from the first occurrence.
				for i, n := range stack {
					if n == dep {
						return append(append([]string{}, stack[i:]...), dep)
					}
				}
			case unvisited:
				if cycle := visit(dep); cycle != nil {
					return cycle
				}
			}
		}

		stack = stack[:len(stack)-1]
		state[name] = done
		return nil
	}

	for _, name := range names {
		if state[name] == unvisited {
			if cycle := visit(name); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}
