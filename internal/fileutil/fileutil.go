// Package fileutil holds small filesystem helpers shared by the watcher
// and worker.
package fileutil

import "os"

// Size returns the byte size of the file at path, or 0 when it cannot be
// determined.
func Size(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// CanOpen reports whether the file at path can currently be opened for
// reading. A file still being written by another process may fail here on
// some platforms; the watcher treats that as "not yet stable".
func CanOpen(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}
