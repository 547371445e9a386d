// Package api adapts HTTP to the space, file, message and task services.
// Handlers authenticate through the middleware package, resolve the
// caller's space, and translate service errors into status codes with
// MapErrorToStatusCode. Live updates are streamed over a websocket.
package api
