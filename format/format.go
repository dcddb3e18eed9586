// Package format implements the response format collaborators that sit
// between raw model output and the executor: each format parses model text
// into pending tool calls and renders tool definitions into a prompt
// fragment. Formats contain no scheduling logic and are swappable per
// orchestrator instance.
package format

import (
	"strings"

	"github.com/google/uuid"
	"github.com/hupe1980/agentpilot/core"
	"github.com/hupe1980/agentpilot/model"
)

// ResponseFormat is the boundary contract between the orchestrator and one
// wire format. ParseResponse fails with a classified KindInvalidResponse
// error on malformed input; it does not validate tool names or arguments
// (the executor does).
type ResponseFormat interface {
	// Name identifies the format ("json", "yaml", "toml", "xml").
	Name() string

	// ParseResponse parses model output into pending tool calls.
	ParseResponse(text string, defs []model.ToolDefinition) ([]core.PendingToolCall, error)

	// FormatToolDefinitions renders the tool set into the prompt fragment
	// instructing the model how to emit calls in this format.
	FormatToolDefinitions(defs []model.ToolDefinition) string
}

// New returns the response format registered under name.
func New(name string) (ResponseFormat, error) {
	switch strings.ToLower(name) {
	case "json", "":
		return NewJSONFormat(), nil
	case "yaml":
		return NewYAMLFormat(), nil
	case "toml":
		return NewTOMLFormat(), nil
	case "xml":
		return NewXMLFormat(), nil
	default:
		return nil, core.NewAgentError(core.KindConfiguration, "unknown response format %q", name)
	}
}

// wireCall is the neutral shape every format decodes into.
type wireCall struct {
	Name      string         `json:"name" yaml:"name" toml:"name"`
	Arguments map[string]any `json:"arguments" yaml:"arguments" toml:"arguments"`
}

// toPending converts decoded wire calls into PendingToolCalls with fresh IDs.
func toPending(calls []wireCall) []core.PendingToolCall {
	pending := make([]core.PendingToolCall, len(calls))
	for i, c := range calls {
		args := c.Arguments
		if args == nil {
			args = map[string]any{}
		}
		pending[i] = core.PendingToolCall{
			ID:        uuid.NewString(),
			Name:      c.Name,
			Arguments: args,
		}
	}
	return pending
}

// parseError builds the classified error for unparseable model output.
func parseError(format string, err error, text string) error {
	preview := text
	if len(preview) > 200 {
		preview = preview[:200] + "..."
	}
	ae := core.WrapError(core.KindInvalidResponse, err, "response is not valid %s tool call syntax", format)
	return ae.With("format", format).With("preview", preview)
}

// extractFencedBlock returns the contents of the first ```lang fenced code
// block, falling back to the first anonymous fence, or "" when none exists.
func extractFencedBlock(text, lang string) string {
	for _, marker := range []string{"```" + lang, "```"} {
		start := strings.Index(text, marker)
		if start < 0 {
			continue
		}
		rest := text[start+len(marker):]
		// Skip to the end of the fence line.
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
	}
	return ""
}
