package format

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/hupe1980/agentpilot/core"
	"github.com/hupe1980/agentpilot/model"
)

// XMLFormat parses the XML wire format:
//
//	<tool_calls>
//	  <call name="write_file">
//	    <arg name="path">/tmp/report.txt</arg>
//	    <arg name="content"><![CDATA[...]]></arg>
//	  </call>
//	</tool_calls>
//
// Argument values are scalar-coerced: text that parses as a JSON number,
// boolean or null becomes that value, everything else stays a string.
//
// The envelope locator is compiled lazily once per instance; the format
// holds no process-wide mutable state.
type XMLFormat struct {
	initOnce sync.Once
	envelope *regexp.Regexp
}

// NewXMLFormat creates the XML response format.
func NewXMLFormat() *XMLFormat { return &XMLFormat{} }

// Name implements ResponseFormat.
func (f *XMLFormat) Name() string { return "xml" }

func (f *XMLFormat) init() {
	f.initOnce.Do(func() {
		f.envelope = regexp.MustCompile(`(?s)<tool_calls>.*</tool_calls>`)
	})
}

type xmlArg struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type xmlCall struct {
	Name string   `xml:"name,attr"`
	Args []xmlArg `xml:"arg"`
}

type xmlEnvelope struct {
	XMLName xml.Name  `xml:"tool_calls"`
	Calls   []xmlCall `xml:"call"`
}

// ParseResponse implements ResponseFormat.
func (f *XMLFormat) ParseResponse(text string, _ []model.ToolDefinition) ([]core.PendingToolCall, error) {
	f.init()

	candidate := f.envelope.FindString(text)
	if candidate == "" {
		if block := extractFencedBlock(text, "xml"); block != "" {
			candidate = f.envelope.FindString(block)
		}
	}
	if candidate == "" {
		return nil, parseError("xml", fmt.Errorf("no <tool_calls> envelope found"), text)
	}

	var env xmlEnvelope
	if err := xml.Unmarshal([]byte(candidate), &env); err != nil {
		return nil, parseError("xml", err, text)
	}
	if len(env.Calls) == 0 {
		return nil, parseError("xml", fmt.Errorf("empty <tool_calls> envelope"), text)
	}

	calls := make([]wireCall, len(env.Calls))
	for i, c := range env.Calls {
		args := make(map[string]any, len(c.Args))
		for _, a := range c.Args {
			args[a.Name] = coerceScalar(a.Value)
		}
		calls[i] = wireCall{Name: c.Name, Arguments: args}
	}

	return toPending(calls), nil
}

// coerceScalar turns XML character data into a typed scalar where possible.
func coerceScalar(raw string) any {
	trimmed := strings.TrimSpace(raw)
	var v any
	if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
		switch v.(type) {
		case float64, bool, nil:
			return v
		}
	}
	return trimmed
}

// FormatToolDefinitions implements ResponseFormat.
func (f *XMLFormat) FormatToolDefinitions(defs []model.ToolDefinition) string {
	var b strings.Builder
	b.WriteString("Respond with a single XML envelope of the form:\n")
	b.WriteString("<tool_calls>\n  <call name=\"<tool>\">\n    <arg name=\"<key>\">value</arg>\n  </call>\n</tool_calls>\n")
	b.WriteString("Wrap free-form text values in <![CDATA[...]]> sections.\n\n")
	b.WriteString("Available tools:\n")
	for _, def := range defs {
		fmt.Fprintf(&b, "- %s: %s\n", def.Function.Name, def.Function.Description)
		for prop, spec := range properties(def.Function.Parameters) {
			fmt.Fprintf(&b, "    %s: %s\n", prop, describeProperty(spec))
		}
	}
	return b.String()
}

var _ ResponseFormat = (*XMLFormat)(nil)
