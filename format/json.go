package format

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/agentpilot/core"
	"github.com/hupe1980/agentpilot/model"
)

// JSONFormat parses the function-call JSON wire format:
//
//	{"tool_calls": [{"name": "read_file", "arguments": {"path": "a.txt"}}]}
//
// The envelope may be emitted raw, inside a ```json fence, or embedded in
// surrounding prose (first '{' to last '}').
type JSONFormat struct{}

// NewJSONFormat creates the JSON response format.
func NewJSONFormat() *JSONFormat { return &JSONFormat{} }

// Name implements ResponseFormat.
func (f *JSONFormat) Name() string { return "json" }

type jsonEnvelope struct {
	ToolCalls []wireCall `json:"tool_calls"`
}

// ParseResponse implements ResponseFormat.
func (f *JSONFormat) ParseResponse(text string, _ []model.ToolDefinition) ([]core.PendingToolCall, error) {
	candidates := []string{strings.TrimSpace(text)}
	if block := extractFencedBlock(text, "json"); block != "" {
		candidates = append(candidates, block)
	}
	if start, end := strings.IndexByte(text, '{'), strings.LastIndexByte(text, '}'); start >= 0 && end > start {
		candidates = append(candidates, text[start:end+1])
	}

	var lastErr error
	for _, candidate := range candidates {
		var env jsonEnvelope
		if err := json.Unmarshal([]byte(candidate), &env); err != nil {
			lastErr = err
			continue
		}
		if len(env.ToolCalls) == 0 {
			lastErr = fmt.Errorf("no tool_calls entry found")
			continue
		}
		return toPending(env.ToolCalls), nil
	}

	return nil, parseError("json", lastErr, text)
}

// FormatToolDefinitions implements ResponseFormat.
func (f *JSONFormat) FormatToolDefinitions(defs []model.ToolDefinition) string {
	var b strings.Builder
	b.WriteString("Respond with a single JSON object of the form:\n")
	b.WriteString("{\"tool_calls\": [{\"name\": \"<tool>\", \"arguments\": {...}}]}\n\n")
	b.WriteString("Available tools:\n")
	for _, def := range defs {
		schema, _ := json.Marshal(def.Function.Parameters)
		fmt.Fprintf(&b, "- %s: %s\n  schema: %s\n", def.Function.Name, def.Function.Description, schema)
	}
	return b.String()
}

var _ ResponseFormat = (*JSONFormat)(nil)
