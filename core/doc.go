// Package core defines the data model shared by every AgentPilot component:
// pending tool calls and their results, the append-only Interaction history,
// the per-run TurnState scratch store, the classified AgentError taxonomy
// with its handling policy, the ToolContext handed to tool handlers, and the
// lifecycle Hooks surface.
//
// The package is deliberately free of I/O and scheduling logic. Policy lives
// here as pure functions (Classify); mechanism lives in the executor and
// orchestrator packages.
package core
