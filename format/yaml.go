package format

import (
	"fmt"
	"strings"

	"github.com/hupe1980/agentpilot/core"
	"github.com/hupe1980/agentpilot/model"
	"gopkg.in/yaml.v3"
)

// YAMLFormat parses the YAML wire format:
//
//	tool_calls:
//	  - name: read_file
//	    arguments:
//	      path: a.txt
//
// The document may be emitted raw or inside a ```yaml fence.
type YAMLFormat struct{}

// NewYAMLFormat creates the YAML response format.
func NewYAMLFormat() *YAMLFormat { return &YAMLFormat{} }

// Name implements ResponseFormat.
func (f *YAMLFormat) Name() string { return "yaml" }

type yamlEnvelope struct {
	ToolCalls []wireCall `yaml:"tool_calls"`
}

// ParseResponse implements ResponseFormat.
func (f *YAMLFormat) ParseResponse(text string, _ []model.ToolDefinition) ([]core.PendingToolCall, error) {
	candidates := []string{strings.TrimSpace(text)}
	if block := extractFencedBlock(text, "yaml"); block != "" {
		candidates = append(candidates, block)
	}

	var lastErr error
	for _, candidate := range candidates {
		var env yamlEnvelope
		if err := yaml.Unmarshal([]byte(candidate), &env); err != nil {
			lastErr = err
			continue
		}
		if len(env.ToolCalls) == 0 {
			lastErr = fmt.Errorf("no tool_calls entry found")
			continue
		}
		return toPending(normalizeYAMLCalls(env.ToolCalls)), nil
	}

	return nil, parseError("yaml", lastErr, text)
}

// normalizeYAMLCalls converts yaml's map[any]any argument values into the
// map[string]any shape the rest of the system expects.
func normalizeYAMLCalls(calls []wireCall) []wireCall {
	for i := range calls {
		for k, v := range calls[i].Arguments {
			calls[i].Arguments[k] = normalizeYAMLValue(v)
		}
	}
	return calls
}

func normalizeYAMLValue(v any) any {
	switch val := v.(type) {
	case map[any]any:
		m := make(map[string]any, len(val))
		for k, inner := range val {
			m[fmt.Sprintf("%v", k)] = normalizeYAMLValue(inner)
		}
		return m
	case map[string]any:
		for k, inner := range val {
			val[k] = normalizeYAMLValue(inner)
		}
		return val
	case []any:
		for i, inner := range val {
			val[i] = normalizeYAMLValue(inner)
		}
		return val
	case int:
		// YAML decodes integers as int; arguments travel as float64 like JSON.
		return float64(val)
	default:
		return v
	}
}

// FormatToolDefinitions implements ResponseFormat.
func (f *YAMLFormat) FormatToolDefinitions(defs []model.ToolDefinition) string {
	var b strings.Builder
	b.WriteString("Respond with a single YAML document of the form:\n")
	b.WriteString("tool_calls:\n  - name: <tool>\n    arguments:\n      <key>: <value>\n\n")
	b.WriteString("Available tools:\n")
	for _, def := range defs {
		schema, _ := yaml.Marshal(def.Function.Parameters)
		fmt.Fprintf(&b, "- %s: %s\n  schema:\n%s", def.Function.Name, def.Function.Description, indent(string(schema), "    "))
	}
	return b.String()
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n") + "\n"
}

var _ ResponseFormat = (*YAMLFormat)(nil)
