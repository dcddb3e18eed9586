package core

import "time"

// InteractionKind tags the variants of the Interaction union.
type InteractionKind string

const (
	// InteractionUserPrompt is the caller's request that started the run.
	InteractionUserPrompt InteractionKind = "user_prompt"
	// InteractionToolResults is a batch-level report of executed tool calls.
	InteractionToolResults InteractionKind = "tool_results"
	// InteractionAgentResponse is a model-authored response: a delegation, a
	// progress report, the final answer, or the terminal error.
	InteractionAgentResponse InteractionKind = "agent_response"
)

// Interaction is one entry of the append-only run history. The history is
// ordered by occurrence and returned intact to the caller, who owns
// persistence across turns. Replaying the Role fields in order reconstructs
// the exact sequence of role transitions the run took.
type Interaction struct {
	Kind      InteractionKind  `json:"kind"`
	Role      Role             `json:"role,omitempty"` // empty for the user prompt
	Timestamp time.Time        `json:"timestamp"`
	Prompt    string           `json:"prompt,omitempty"`   // InteractionUserPrompt
	Results   []ToolCallResult `json:"results,omitempty"`  // InteractionToolResults
	Report    string           `json:"report,omitempty"`   // batch-level summary
	Response  string           `json:"response,omitempty"` // InteractionAgentResponse
	Err       *AgentError      `json:"error,omitempty"`    // terminal error, if any
}

// NewUserPromptInteraction records the caller's request.
func NewUserPromptInteraction(prompt string) Interaction {
	return Interaction{Kind: InteractionUserPrompt, Timestamp: time.Now(), Prompt: prompt}
}

// NewToolResultsInteraction records an executed batch plus its report summary.
func NewToolResultsInteraction(role Role, results []ToolCallResult, report string) Interaction {
	return Interaction{
		Kind:      InteractionToolResults,
		Role:      role,
		Timestamp: time.Now(),
		Results:   results,
		Report:    report,
	}
}

// NewAgentResponseInteraction records a model-authored response.
func NewAgentResponseInteraction(role Role, response string) Interaction {
	return Interaction{Kind: InteractionAgentResponse, Role: role, Timestamp: time.Now(), Response: response}
}

// NewErrorInteraction records a classified failure in the history.
func NewErrorInteraction(role Role, err *AgentError) Interaction {
	return Interaction{Kind: InteractionAgentResponse, Role: role, Timestamp: time.Now(), Err: err}
}
