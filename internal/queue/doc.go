// Package queue persists transcode tasks in a flat JSON file and mediates
// all access to it through atomic read-modify-write cycles guarded by a
// cross-process file lock.
//
// The on-disk file is the single source of truth. Every mutation loads the
// full task list, applies the change in memory, and atomically replaces the
// file, so a reader never observes a partially written store. The lock file
// lives next to the store and is shared by the daemon and the CLI.
package queue
