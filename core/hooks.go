package core

// Hooks are optional lifecycle callbacks fired by the orchestrator and
// executor. All fields may be nil. Hooks run synchronously on the calling
// goroutine, so implementations should be fast and must not panic.
type Hooks struct {
	OnRunStart       func(runID, prompt string)
	OnRunEnd         func(runID string, result *RunResult)
	OnPromptCreated  func(role Role, prompt string)
	OnModelCallStart func(role Role, round int)
	OnModelCallEnd   func(role Role, round int, response string, err error)
	OnToolCallStart  func(call PendingToolCall)
	OnToolCallEnd    func(result ToolCallResult)
	OnError          func(err *AgentError)
}

// RunStart fires OnRunStart if set.
func (h *Hooks) RunStart(runID, prompt string) {
	if h != nil && h.OnRunStart != nil {
		h.OnRunStart(runID, prompt)
	}
}

// RunEnd fires OnRunEnd if set.
func (h *Hooks) RunEnd(runID string, result *RunResult) {
	if h != nil && h.OnRunEnd != nil {
		h.OnRunEnd(runID, result)
	}
}

// PromptCreated fires OnPromptCreated if set.
func (h *Hooks) PromptCreated(role Role, prompt string) {
	if h != nil && h.OnPromptCreated != nil {
		h.OnPromptCreated(role, prompt)
	}
}

// ModelCallStart fires OnModelCallStart if set.
func (h *Hooks) ModelCallStart(role Role, round int) {
	if h != nil && h.OnModelCallStart != nil {
		h.OnModelCallStart(role, round)
	}
}

// ModelCallEnd fires OnModelCallEnd if set.
func (h *Hooks) ModelCallEnd(role Role, round int, response string, err error) {
	if h != nil && h.OnModelCallEnd != nil {
		h.OnModelCallEnd(role, round, response, err)
	}
}

// ToolCallStart fires OnToolCallStart if set.
func (h *Hooks) ToolCallStart(call PendingToolCall) {
	if h != nil && h.OnToolCallStart != nil {
		h.OnToolCallStart(call)
	}
}

// ToolCallEnd fires OnToolCallEnd if set.
func (h *Hooks) ToolCallEnd(result ToolCallResult) {
	if h != nil && h.OnToolCallEnd != nil {
		h.OnToolCallEnd(result)
	}
}

// Error fires OnError if set.
func (h *Hooks) Error(err *AgentError) {
	if h != nil && h.OnError != nil {
		h.OnError(err)
	}
}
