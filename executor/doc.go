// Package executor settles batches of pending tool calls. It supports
// sequential, flat parallel and dependency-graph dispatch, per-call advisory
// timeouts with panic containment, and a configurable round failure policy
// (fail fast, fail at end, continue on failure, partial success). Every call
// in a batch settles with exactly one result, including calls to unknown
// tools and calls pruned because a dependency failed.
package executor
