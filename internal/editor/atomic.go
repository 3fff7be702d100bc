package editor

import (
	"bufio"
	"os"
	"path/filepath"

	"latex-refiner/internal/types"
)

// WriteAtomic writes data to path through a temporary file in the same
// directory, fsyncs it and renames it over the destination. The original
// file is untouched unless the final rename succeeds.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".latex-refiner-*")
	if err != nil {
		return types.NewAppErrorWithDetails(types.ErrWriteFailure, "failed to create temp file", dir, err)
	}
	tmpPath := tmp.Name()
	_ = os.Chmod(tmpPath, perm)

	fail := func(msg string, cause error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return types.NewAppErrorWithDetails(types.ErrWriteFailure, msg, path, cause)
	}

	bw := bufio.NewWriter(tmp)
	if _, err := bw.Write(data); err != nil {
		return fail("failed to write temp file", err)
	}
	if err := bw.Flush(); err != nil {
		return fail("failed to write temp file", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("failed to sync temp file", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return types.NewAppErrorWithDetails(types.ErrWriteFailure, "failed to close temp file", path, err)
	}
	if err := osReplace(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return types.NewAppErrorWithDetails(types.ErrWriteFailure, "failed to replace file", path, err)
	}
	// best effort
	_ = syncDir(dir)
	return nil
}
