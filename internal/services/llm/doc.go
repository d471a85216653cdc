// Package llm wraps an OpenAI-compatible chat completion API with bounded
// retries and tolerant JSON decoding. The deepcast analysis step is its only
// consumer.
package llm
