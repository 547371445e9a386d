// Package store declares the record stores that tasks and services write
// through: spaces, files, messages and task rows. Every mutating call
// returns the full updated record so callers can publish it as is.
//
// Implementations live in internal/platform/postgres and
// internal/platform/memory.
package store
