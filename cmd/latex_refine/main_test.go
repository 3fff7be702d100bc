package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const portraitNote = `\automarginnote{\includegraphics[width=\linewidth]{Portraits/Chapter-Introduction/BobBemer.jpg}}`

var chapter = "Bob Bemer met Ada.\nfiller\nBob Bemer later wrote." + portraitNote + "\n\\clearpage\n"

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeChapter(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "Chapter-Introduction.tex")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRun_Usage(t *testing.T) {
	code, _, stderr := runCLI(t)
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, "Usage:")

	code, stdout, _ := runCLI(t, "help")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "latex-refine refine")

	code, _, stderr = runCLI(t, "frobnicate")
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, "Unknown command: frobnicate")
}

func TestRun_Names(t *testing.T) {
	t.Chdir(t.TempDir())
	code, stdout, _ := runCLI(t, "names", "GeoffreyHinton.jpg", "ArthurSamuel.png")
	assert.Equal(t, exitOK, code)
	assert.Equal(t, "GeoffreyHinton.jpg\tGeoffrey Hinton\nArthurSamuel.png\tArthur Samuel\n", stdout)
}

func TestRun_NamesWithOverride(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	cfg := "people:\n  - name: Yann LeCun\n    file: YannLeCun.jpg\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "latex-refiner.yaml"), []byte(cfg), 0644))

	code, stdout, _ := runCLI(t, "names", "YannLeCun.jpg")
	assert.Equal(t, exitOK, code)
	assert.Equal(t, "YannLeCun.jpg\tYann LeCun\n", stdout)
}

func TestRun_RefineStdout(t *testing.T) {
	path := writeChapter(t, chapter)

	code, stdout, stderr := runCLI(t, "refine", "--stdout", path)
	require.Equal(t, exitOK, code, stderr)

	assert.Equal(t, "Bob Bemer met Ada."+portraitNote+"\nfiller\nBob Bemer later wrote.\n\\clearpage\n", stdout)
	assert.Contains(t, stderr, "Changes pending")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, chapter, string(data))
}

func TestRun_RefineWrites(t *testing.T) {
	path := writeChapter(t, "Bob Bemer met Ada.\nBob Bemer again."+portraitNote+"\n\\clearpage\n")
	metricsFile := filepath.Join(filepath.Dir(path), "refine.prom")

	code, stdout, stderr := runCLI(t, "refine", "--no-backup", "--metrics-file", metricsFile, path)
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "✓ Written")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Bob Bemer met Ada."+portraitNote+"\nBob Bemer again.\n\\clearpage\n", string(data))

	prom, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `latex_refiner_files_total{result="written"} 1`)

	backups, err := filepath.Glob(path + ".backup_*")
	require.NoError(t, err)
	assert.Empty(t, backups)
}

func TestRun_RefineErrors(t *testing.T) {
	t.Chdir(t.TempDir())

	code, _, _ := runCLI(t, "refine")
	assert.Equal(t, exitUsage, code)

	code, _, _ = runCLI(t, "refine", "--stdout", "a.tex", "b.tex")
	assert.Equal(t, exitUsage, code)

	code, _, _ = runCLI(t, "refine", "--config", "missing.yaml", "a.tex")
	assert.Equal(t, exitUsage, code)

	code, stdout, _ := runCLI(t, "refine", "missing.tex")
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stdout, "FAILED")
}

func TestRun_Validate(t *testing.T) {
	good := writeChapter(t, "\\begin{figure}\n\\end{figure}\n")
	bad := filepath.Join(filepath.Dir(good), "bad.tex")
	require.NoError(t, os.WriteFile(bad, []byte("\\begin{figure}\n"), 0644))

	code, stdout, _ := runCLI(t, "validate", good)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "Validation PASSED")

	code, stdout, _ = runCLI(t, "validate", good, bad)
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stdout, "Validation FAILED")
}

func TestRun_Backup(t *testing.T) {
	path := writeChapter(t, chapter)

	code, stdout, _ := runCLI(t, "backup", "list", path)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "No backups found")

	code, stdout, _ = runCLI(t, "backup", "create", path)
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "Backup created")

	require.NoError(t, os.WriteFile(path, []byte("changed\n"), 0644))

	backups, err := filepath.Glob(path + ".backup_*")
	require.NoError(t, err)
	require.Len(t, backups, 1)

	code, _, _ = runCLI(t, "backup", "restore", backups[0], path)
	require.Equal(t, exitOK, code)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, chapter, string(data))

	code, stdout, _ = runCLI(t, "backup", "list", path)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "Backups (1):")

	code, stdout, _ = runCLI(t, "backup", "cleanup", "--keep", "0", path)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "Removed 1 backup(s)")

	code, _, _ = runCLI(t, "backup", "explode", path)
	assert.Equal(t, exitUsage, code)
}

func TestRun_Config(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	code, stdout, _ := runCLI(t, "config", "init")
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "latex-refiner.yaml")
	assert.FileExists(t, filepath.Join(dir, "latex-refiner.yaml"))

	code, _, stderr := runCLI(t, "config", "init")
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr, "already exists")

	code, stdout, _ = runCLI(t, "config", "show")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "marker_command: automarginnote")
	assert.Contains(t, stdout, "clearpage_every: 0")
}
