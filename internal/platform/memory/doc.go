// Package memory provides mutex-guarded in-process implementations of the
// store interfaces. It backs the "memory" database driver and the tests of
// packages that need a working store without Postgres.
package memory
