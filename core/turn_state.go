package core

import (
	"fmt"
	"sync"
)

// TurnState is an ephemeral key/value store scoped to a single orchestrator
// run. It is handed to every tool handler so one action's result can be
// consumed by a later action in the same turn (for example "the file just
// written"). Created at run start, discarded at run end; no cross-run
// visibility.
//
// Handlers run on separate goroutines, so access is guarded by a mutex.
// There is no transactional isolation: the last writer within a round wins.
type TurnState struct {
	mu   sync.RWMutex
	data map[string]any
}

// NewTurnState creates an empty per-run store.
func NewTurnState() *TurnState {
	return &TurnState{data: map[string]any{}}
}

// Set stores a value under key, replacing any previous value.
func (s *TurnState) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

// Get returns the value for key and whether it exists.
func (s *TurnState) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// Has reports whether key is set.
func (s *TurnState) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[key]
	return ok
}

// GetOrFail returns the value for key or an error if it is absent. Intended
// for handlers that require a hand-off value produced earlier in the turn.
func (s *TurnState) GetOrFail(key string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, fmt.Errorf("turn state key %q not set", key)
	}
	return v, nil
}

// GetAndClear returns the value for key and removes it, giving read-once
// semantics for hand-off values.
func (s *TurnState) GetAndClear(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if ok {
		delete(s.data, key)
	}
	return v, ok
}

// Clear removes all keys.
func (s *TurnState) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = map[string]any{}
}

// Keys returns a snapshot of the currently set keys.
func (s *TurnState) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of set keys.
func (s *TurnState) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
