// Package model defines the transport boundary between the orchestrator and
// AI completion providers, plus a MockModel for tests and examples.
//
// The Model interface is intentionally thin: prompt text in, response text
// out. Parsing the response into structured tool calls is the job of the
// format package; retrying failed transports is the job of the orchestrator.
// Provider adapters live in the openai and anthropic subpackages.
package model
