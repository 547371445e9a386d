// Package ragserver is an HTTP client for the document ingestion and answer
// service. The service exposes two JSON endpoints, POST /learn and POST /ask,
// that both reply with a success flag and, on failure, an error string.
//
// Client implements inference.Ingester and inference.Answerer.
package ragserver
