// Package orchestrator implements the supervisor/worker control loop. A
// supervisor round decides between answering the caller and delegating one
// instruction; a worker round executes the instruction with the full tool
// set and reports back. Rounds repeat until a final answer, a fatal
// classified error, or the exhausted iteration budget, with retry, feedback
// and stagnation policies applied per error kind along the way.
package orchestrator
