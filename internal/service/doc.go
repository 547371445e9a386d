// Package service contains the caller-facing operations of the API: spaces,
// files, messages and tasks. Operations that do background work build a task
// handle with the task factory and hand it to the dispatcher; everything
// else goes straight to the record stores.
//
// Service methods return the sentinel errors below for expected conditions
// and wrap everything else in *ServiceError. The API layer maps both to
// HTTP status codes.
package service
