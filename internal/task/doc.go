// Package task runs the background work of a space: waiting for uploads to
// settle, ingesting files into the vector index and answering chat
// messages.
//
// Every task kind implements Definition and is wrapped in an Instance,
// which persists the task row and publishes its progress. The Dispatcher
// runs setup on the caller's goroutine and the remaining phases in the
// background, with the run phase bounded by a shared semaphore.
package task
