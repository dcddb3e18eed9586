package format

import (
	"fmt"
	"strings"

	"github.com/hupe1980/agentpilot/core"
	"github.com/hupe1980/agentpilot/model"
	"github.com/pelletier/go-toml/v2"
)

// TOMLFormat parses the TOML wire format:
//
//	[[tool_calls]]
//	name = "read_file"
//	[tool_calls.arguments]
//	path = "a.txt"
//
// The document may be emitted raw or inside a ```toml fence.
type TOMLFormat struct{}

// NewTOMLFormat creates the TOML response format.
func NewTOMLFormat() *TOMLFormat { return &TOMLFormat{} }

// Name implements ResponseFormat.
func (f *TOMLFormat) Name() string { return "toml" }

type tomlEnvelope struct {
	ToolCalls []wireCall `toml:"tool_calls"`
}

// ParseResponse implements ResponseFormat.
func (f *TOMLFormat) ParseResponse(text string, _ []model.ToolDefinition) ([]core.PendingToolCall, error) {
	candidates := []string{strings.TrimSpace(text)}
	if block := extractFencedBlock(text, "toml"); block != "" {
		candidates = append(candidates, block)
	}

	var lastErr error
	for _, candidate := range candidates {
		var env tomlEnvelope
		if err := toml.Unmarshal([]byte(candidate), &env); err != nil {
			lastErr = err
			continue
		}
		if len(env.ToolCalls) == 0 {
			lastErr = fmt.Errorf("no tool_calls table found")
			continue
		}
		return toPending(normalizeTOMLCalls(env.ToolCalls)), nil
	}

	return nil, parseError("toml", lastErr, text)
}

// normalizeTOMLCalls widens TOML integer arguments to float64 so argument
// bags look the same regardless of wire format.
func normalizeTOMLCalls(calls []wireCall) []wireCall {
	for i := range calls {
		for k, v := range calls[i].Arguments {
			if iv, ok := v.(int64); ok {
				calls[i].Arguments[k] = float64(iv)
			}
		}
	}
	return calls
}

// FormatToolDefinitions implements ResponseFormat.
func (f *TOMLFormat) FormatToolDefinitions(defs []model.ToolDefinition) string {
	var b strings.Builder
	b.WriteString("Respond with a single TOML document of the form:\n")
	b.WriteString("[[tool_calls]]\nname = \"<tool>\"\n[tool_calls.arguments]\n<key> = <value>\n\n")
	b.WriteString("Available tools:\n")
	for _, def := range defs {
		fmt.Fprintf(&b, "- %s: %s\n", def.Function.Name, def.Function.Description)
		for prop, spec := range properties(def.Function.Parameters) {
			fmt.Fprintf(&b, "    %s: %s\n", prop, describeProperty(spec))
		}
	}
	return b.String()
}

func properties(schema map[string]any) map[string]any {
	props, _ := schema["properties"].(map[string]any)
	return props
}

func describeProperty(spec any) string {
	m, ok := spec.(map[string]any)
	if !ok {
		return "any"
	}
	typ, _ := m["type"].(string)
	desc, _ := m["description"].(string)
	if desc != "" {
		return fmt.Sprintf("%s (%s)", typ, desc)
	}
	return typ
}

var _ ResponseFormat = (*TOMLFormat)(nil)
