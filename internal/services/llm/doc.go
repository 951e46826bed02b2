// Package llm provides an OpenRouter chat client used for storyboard planning
// and shot code generation.
//
// CompleteJSON sends a system/user prompt pair and returns a JSON payload;
// DecodeLLMJSON tolerates code fences and prose around the object. Stream
// issues a streaming completion and hands each content delta to a callback,
// which the code generator turns into its line-oriented event protocol.
//
// Requests that fail with HTTP 408/429/5xx or a network timeout are retried
// with exponential backoff (base 1s, max 10s, 5 attempts by default). A
// streaming request is only retried while no delta has been delivered.
// Context cancellation aborts retries immediately.
package llm
