//go:build windows

package editor

import "os"

// osReplace relies on os.Rename, which uses MoveFileEx with
// MOVEFILE_REPLACE_EXISTING on Windows.
func osReplace(tmpPath, dest string) error {
	return os.Rename(tmpPath, dest)
}

// syncDir is a no-op on Windows; directory fsync is not available.
func syncDir(dir string) error { return nil }
