// Package gemini provides an inference.Answerer backed by Google's Gemini
// API.
//
// Gemini has no access to a space's vector index, so answers are generated
// from the question and the conversation history alone. Transient API
// failures are retried with exponential backoff and jitter; blocked or
// malformed responses are returned immediately.
package gemini
