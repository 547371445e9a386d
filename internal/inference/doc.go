// Package inference defines the contracts of the external services that
// ingest documents into a per-space vector index and answer questions
// against it. Implementations live under internal/platform: an HTTP client
// for the ingestion and answer service, and Gemini and Ollama backed
// Answerers.
package inference
