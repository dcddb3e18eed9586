package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure raised anywhere inside a run. The kind alone
// determines policy (retry, feed back to the model, or terminate) via Classify.
type ErrorKind string

const (
	// KindToolNotFound means the model requested a tool that is not registered.
	KindToolNotFound ErrorKind = "TOOL_NOT_FOUND"
	// KindToolExecution means a tool handler returned an error or panicked.
	KindToolExecution ErrorKind = "TOOL_EXECUTION_ERROR"
	// KindToolTimeout means a tool handler did not settle within its timeout.
	KindToolTimeout ErrorKind = "TOOL_TIMEOUT_ERROR"
	// KindInvalidResponse means the model output could not be parsed into calls.
	KindInvalidResponse ErrorKind = "INVALID_RESPONSE"
	// KindInvalidInput means tool arguments failed schema validation.
	KindInvalidInput ErrorKind = "INVALID_INPUT"
	// KindConnection means the model transport failed.
	KindConnection ErrorKind = "CONNECTION_ERROR"
	// KindUnknown is the catch-all for unclassified failures.
	KindUnknown ErrorKind = "UNKNOWN"
	// KindMaxIterations means the iteration budget was exhausted without an answer.
	KindMaxIterations ErrorKind = "MAX_ITERATIONS_REACHED"
	// KindStagnation means the model repeated a functionally identical action
	// pattern across rounds without making progress.
	KindStagnation ErrorKind = "STAGNATION_ERROR"
	// KindDuplicateToolName is raised at registration time for a name collision.
	KindDuplicateToolName ErrorKind = "DUPLICATE_TOOL_NAME"
	// KindInvalidToolName is raised at registration time for a malformed name.
	KindInvalidToolName ErrorKind = "INVALID_TOOL_NAME"
	// KindConfiguration is raised at construction time for invalid options or
	// an invalid dependency declaration (for example a cycle).
	KindConfiguration ErrorKind = "CONFIGURATION_ERROR"
)

// AgentError is a classified failure. It is never silently discarded: every
// AgentError becomes a retry signal, a model-visible message, or a terminal
// run result.
type AgentError struct {
	Kind    ErrorKind      `json:"kind"`
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
	Err     error          `json:"-"` // wrapped cause, if any
}

// Error implements the error interface.
func (e *AgentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped cause for errors.Is / errors.As chains.
func (e *AgentError) Unwrap() error { return e.Err }

// With attaches a context key/value to the error and returns it for chaining.
func (e *AgentError) With(key string, value any) *AgentError {
	if e.Context == nil {
		e.Context = map[string]any{}
	}
	e.Context[key] = value
	return e
}

// NewAgentError creates a classified error with a formatted message.
func NewAgentError(kind ErrorKind, format string, args ...any) *AgentError {
	return &AgentError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError classifies an underlying error, preserving it as the cause.
// If err is already an *AgentError it is returned unchanged so classification
// done closer to the failure site wins.
func WrapError(kind ErrorKind, err error, format string, args ...any) *AgentError {
	var ae *AgentError
	if errors.As(err, &ae) {
		return ae
	}
	return &AgentError{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// AsAgentError extracts an *AgentError from err, wrapping unclassified errors
// as KindUnknown.
func AsAgentError(err error) *AgentError {
	if err == nil {
		return nil
	}
	var ae *AgentError
	if errors.As(err, &ae) {
		return ae
	}
	return &AgentError{Kind: KindUnknown, Message: err.Error(), Err: err}
}

// Decision is the policy outcome for a classified failure kind.
type Decision struct {
	// Retryable failures consume the retry budget before EndRound applies.
	Retryable bool
	// EndRound stops the current round (after retries, where applicable); the
	// loop then continues with the next iteration.
	EndRound bool
	// FeedBack surfaces the failure to the model in the next prompt so it can
	// correct itself.
	FeedBack bool
	// Fatal terminates the whole run immediately.
	Fatal bool
	// FatalOnLastChance upgrades to Fatal only when the failure repeats after
	// the model was already warned (stagnation).
	FatalOnLastChance bool
}

// Classify maps an error kind to its handling policy. Pure function, no I/O.
//
//	Connection/Unknown               retry silently, end round after retries
//	InvalidResponse/NotFound/Input   keep the round alive, tell the model
//	ToolExecution/Timeout            retry, then end round, tell the model
//	Stagnation                       tell the model; fatal only on last chance
//	MaxIterations                    fatal
//	Registration/Configuration       fatal (programmer error)
func Classify(kind ErrorKind) Decision {
	switch kind {
	case KindConnection, KindUnknown:
		return Decision{Retryable: true, EndRound: true}
	case KindInvalidResponse, KindToolNotFound, KindInvalidInput:
		return Decision{FeedBack: true}
	case KindToolExecution, KindToolTimeout:
		return Decision{Retryable: true, EndRound: true, FeedBack: true}
	case KindStagnation:
		return Decision{FeedBack: true, FatalOnLastChance: true}
	case KindMaxIterations:
		return Decision{Fatal: true}
	case KindDuplicateToolName, KindInvalidToolName, KindConfiguration:
		return Decision{Fatal: true}
	default:
		return Decision{Retryable: true, EndRound: true}
	}
}

// ClassifyError is a convenience that classifies err's kind, treating
// unclassified errors as KindUnknown.
func ClassifyError(err error) Decision {
	return Classify(AsAgentError(err).Kind)
}
