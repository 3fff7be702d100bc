package editor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"latex-refiner/internal/layout"
	"latex-refiner/internal/types"
)

func TestWriteAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chapter.tex")
	writeFile(t, path, "old")

	require.NoError(t, WriteAtomic(path, []byte("new"), 0600))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// no temp files left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteAtomic_MissingDir(t *testing.T) {
	err := WriteAtomic(filepath.Join(t.TempDir(), "no", "such", "chapter.tex"), []byte("x"), 0644)
	require.Error(t, err)
	assert.Equal(t, types.ErrWriteFailure, types.CodeOf(err))
}

func TestSource_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chapter.tex")
	writeFile(t, path, "\xEF\xBB\xBFfirst\r\nsecond\r\n")

	src, err := ReadSource(path)
	require.NoError(t, err)
	assert.Equal(t, layout.Document{"first", "second"}, src.Document)
	assert.Equal(t, EncodingUTF8BOM, src.Encoding)
	assert.True(t, src.Format.CRLF)

	require.NoError(t, src.Save(layout.Document{"first", "second", "third"}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first\r\nsecond\r\nthird\r\n", string(data))
}

func TestReadSource_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadSource(filepath.Join(dir, "missing.tex"))
	assert.Equal(t, types.ErrFileNotFound, types.CodeOf(err))

	_, err = ReadSource(dir)
	assert.Equal(t, types.ErrInvalidInput, types.CodeOf(err))
}
