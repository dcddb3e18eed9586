package orchestrator

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/hupe1980/agentpilot/core"
)

// stagnationDetector watches the stream of proposed batches for a run and
// flags the model repeating a functionally identical action pattern. The
// signature is order insensitive and argument sensitive: the same tools with
// the same arguments in a different order still count as a repeat.
//
// Detection has last-chance semantics. Reaching the threshold produces a
// warning the model sees in its next prompt; repeating the same signature
// after the warning is terminal.
type stagnationDetector struct {
	threshold int
	last      string
	count     int
	warned    bool
}

func newStagnationDetector(threshold int) *stagnationDetector {
	return &stagnationDetector{threshold: threshold}
}

// observe records one proposed batch. It returns a KindStagnation error when
// the threshold is reached, with terminal reporting whether the model already
// used its last chance.
func (d *stagnationDetector) observe(role core.Role, calls []core.PendingToolCall) (err *core.AgentError, terminal bool) {
	if d.threshold <= 0 {
		return nil, false
	}

	sig := batchSignature(role, calls)
	if sig != d.last {
		d.last = sig
		d.count = 1
		d.warned = false
		return nil, false
	}
	d.count++
	if d.count < d.threshold {
		return nil, false
	}

	if d.warned {
		return core.NewAgentError(core.KindStagnation,
			"still repeating the same %d action(s) after being warned", len(calls)).
			With("signature", sig).
			With("repeats", d.count), true
	}
	d.warned = true
	return core.NewAgentError(core.KindStagnation,
		"the same %d action(s) were proposed %d times in a row without progress; try a different approach",
		len(calls), d.count).
		With("signature", sig).
		With("repeats", d.count), false
}

// batchSignature canonicalizes a proposed batch: role plus the sorted list of
// tool invocations with their arguments serialized deterministically
// (json.Marshal orders map keys).
func batchSignature(role core.Role, calls []core.PendingToolCall) string {
	parts := make([]string, len(calls))
	for i, call := range calls {
		args, err := json.Marshal(call.Arguments)
		if err != nil {
			args = []byte(fmt.Sprintf("%v", call.Arguments))
		}
		parts[i] = call.Name + "(" + string(args) + ")"
	}
	sort.Strings(parts)
	return string(role) + ";" + strings.Join(parts, ",")
}
