// Package events broadcasts lifecycle notifications about tasks, files and
// messages.
//
// The primary components are:
// - Event: a self-contained notification carrying the full updated record
// - Publisher: the interface producers depend on
// - Bus: a bounded, lossy broadcast implementing Publisher
package events
