// Package prompt builds the prompt text handed to the model each round. The
// Builder is a pure function of its inputs (system prompt, role, history,
// tool definitions, last error) with no side effects, so it can be replaced
// wholesale per response format if a format needs different framing.
package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/hupe1980/agentpilot/core"
)

const supervisorTemplate = `{{ .System }}

You are the supervisor. You decide what happens next. You can either answer
the user directly or delegate one concrete instruction to the worker.

User request:
{{ .Request }}
{{ if .Reports }}
Progress so far:
{{ range .Reports }}- {{ . }}
{{ end }}{{ end }}{{ if .LastError }}
Your previous action failed: {{ .LastError }}
Correct the problem and try again.
{{ end }}
{{ .ToolFragment }}`

const workerTemplate = `{{ .System }}

You are the worker. Execute the instruction below using the available tools,
then call {{ .ReportTool }} with a summary of what you did.

Instruction:
{{ .Request }}
{{ if .LastError }}
Your previous action failed: {{ .LastError }}
Correct the problem and try again.
{{ end }}
{{ .ToolFragment }}`

// Input aggregates everything a prompt depends on for one round.
type Input struct {
	System       string
	Role         core.Role
	Request      string // user request (supervisor) or delegated instruction (worker)
	History      []core.Interaction
	ToolFragment string
	LastError    *core.AgentError
}

// Builder renders role-specific prompts from parsed templates.
type Builder struct {
	supervisor *template.Template
	worker     *template.Template
}

// NewBuilder parses the built-in templates. Parsing happens once; Build is
// safe for concurrent use afterwards.
func NewBuilder() *Builder {
	return &Builder{
		supervisor: template.Must(template.New("supervisor").Parse(supervisorTemplate)),
		worker:     template.Must(template.New("worker").Parse(workerTemplate)),
	}
}

// Build renders the prompt for the given round input.
func (b *Builder) Build(in Input) (string, error) {
	data := map[string]any{
		"System":       in.System,
		"Request":      in.Request,
		"Reports":      reportLines(in.History),
		"ToolFragment": in.ToolFragment,
		"ReportTool":   "progress_report",
		"LastError":    errorLine(in.LastError),
	}

	tmpl := b.supervisor
	if in.Role == core.RoleWorker {
		tmpl = b.worker
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", in.Role, err)
	}
	return strings.TrimSpace(buf.String()) + "\n", nil
}

// reportLines extracts the batch-level reports accumulated in the history,
// oldest first, for the supervisor's situational view.
func reportLines(history []core.Interaction) []string {
	var lines []string
	for _, in := range history {
		if in.Kind != core.InteractionToolResults || in.Report == "" {
			continue
		}
		lines = append(lines, in.Report)
	}
	return lines
}

// errorLine renders the model-visible form of the last classified failure.
func errorLine(err *core.AgentError) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", err.Kind, err.Message)
}
