package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_PolicyTable(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want Decision
	}{
		{KindConnection, Decision{Retryable: true, EndRound: true}},
		{KindUnknown, Decision{Retryable: true, EndRound: true}},
		{KindInvalidResponse, Decision{FeedBack: true}},
		{KindToolNotFound, Decision{FeedBack: true}},
		{KindInvalidInput, Decision{FeedBack: true}},
		{KindToolExecution, Decision{Retryable: true, EndRound: true, FeedBack: true}},
		{KindToolTimeout, Decision{Retryable: true, EndRound: true, FeedBack: true}},
		{KindStagnation, Decision{FeedBack: true, FatalOnLastChance: true}},
		{KindMaxIterations, Decision{Fatal: true}},
		{KindDuplicateToolName, Decision{Fatal: true}},
		{KindInvalidToolName, Decision{Fatal: true}},
		{KindConfiguration, Decision{Fatal: true}},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.kind))
		})
	}
}

func TestClassify_UnknownKindFallsBack(t *testing.T) {
	assert.Equal(t, Decision{Retryable: true, EndRound: true}, Classify(ErrorKind("SOMETHING_NEW")))
}

func TestWrapError_PreservesExistingClassification(t *testing.T) {
	inner := NewAgentError(KindToolTimeout, "took too long")
	wrapped := WrapError(KindUnknown, inner, "outer message")

	assert.Same(t, inner, wrapped)
	assert.Equal(t, KindToolTimeout, wrapped.Kind)
}

func TestWrapError_ClassifiesPlainError(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	wrapped := WrapError(KindConnection, cause, "api call failed")

	assert.Equal(t, KindConnection, wrapped.Kind)
	assert.Equal(t, "api call failed", wrapped.Message)
	assert.ErrorIs(t, wrapped, cause)
}

func TestWrapError_UnwrapsThroughFmtChain(t *testing.T) {
	inner := NewAgentError(KindInvalidInput, "bad args")
	chained := fmt.Errorf("calling tool: %w", inner)

	got := AsAgentError(chained)
	assert.Equal(t, KindInvalidInput, got.Kind)
}

func TestAsAgentError(t *testing.T) {
	assert.Nil(t, AsAgentError(nil))

	plain := errors.New("boom")
	ae := AsAgentError(plain)
	assert.Equal(t, KindUnknown, ae.Kind)
	assert.Equal(t, "boom", ae.Message)
}

func TestAgentError_With(t *testing.T) {
	err := NewAgentError(KindToolNotFound, "tool %q is not registered", "missing").
		With("tool", "missing")

	assert.Equal(t, "missing", err.Context["tool"])
	assert.Contains(t, err.Error(), "TOOL_NOT_FOUND")
	assert.Contains(t, err.Error(), `tool "missing" is not registered`)
}
