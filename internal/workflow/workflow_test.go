package workflow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"latex-refiner/internal/config"
	"latex-refiner/internal/layout"
	"latex-refiner/internal/metrics"
	"latex-refiner/internal/types"
)

func portrait(file string) string {
	return `\automarginnote{\includegraphics[width=\linewidth]{Portraits/Chapter-Introduction/` + file + `}}`
}

var chapter = strings.Join([]string{
	"Ada Lovelace and Bob Bemer met." + portrait("AdaLovelace.jpg") + portrait("BobBemer.jpg"),
	"filler",
	"filler",
	"Bob Bemer later wrote.",
	`\clearpage`,
}, "\n") + "\n"

var refined = strings.Join([]string{
	"Ada Lovelace and Bob Bemer met." + portrait("AdaLovelace.jpg"),
	"filler",
	"filler",
	"Bob Bemer later wrote." + portrait("BobBemer.jpg"),
	`\clearpage`,
}, "\n") + "\n"

// setup writes content to dir/Chapter-Introduction.tex and returns a
// config whose backups go to dir/bak.
func setup(t *testing.T, content string) (string, *config.Config) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "Chapter-Introduction.tex")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := config.Default()
	cfg.Backup.Dir = filepath.Join(dir, "bak")
	return path, cfg
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestRefineFile_WritesWithBackup(t *testing.T) {
	path, cfg := setup(t, chapter)
	r, err := New(cfg)
	require.NoError(t, err)

	res, err := r.RefineFile(context.Background(), path)
	require.NoError(t, err)

	assert.True(t, res.Changed)
	assert.True(t, res.Written)
	assert.True(t, res.Validation.Valid)
	require.Len(t, res.Report.Placements, 2)
	assert.Equal(t, 3, res.Report.Placements[1].Line)
	assert.Equal(t, refined, readFile(t, path))

	require.NotEmpty(t, res.BackupPath)
	assert.Equal(t, filepath.Join(cfg.Backup.Dir, filepath.Base(res.BackupPath)), res.BackupPath)
	assert.Equal(t, chapter, readFile(t, res.BackupPath))
}

func TestRefineFile_UnchangedIsNotWritten(t *testing.T) {
	path, cfg := setup(t, refined)
	r, err := New(cfg)
	require.NoError(t, err)

	res, err := r.RefineFile(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.False(t, res.Written)
	assert.Empty(t, res.BackupPath)
	assert.NoDirExists(t, cfg.Backup.Dir)
}

func TestRefineFile_DryRun(t *testing.T) {
	path, cfg := setup(t, chapter)
	r, err := New(cfg, WithDryRun(true))
	require.NoError(t, err)

	res, err := r.RefineFile(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.False(t, res.Written)
	assert.Equal(t, chapter, readFile(t, path))

	// Output is what would have been written.
	assert.Equal(t, layout.Document(strings.Split(strings.TrimSuffix(refined, "\n"), "\n")), res.Output)
}

func TestRefineFile_NoBackup(t *testing.T) {
	path, cfg := setup(t, chapter)
	r, err := New(cfg, WithBackups(false))
	require.NoError(t, err)

	res, err := r.RefineFile(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, res.Written)
	assert.Empty(t, res.BackupPath)
	assert.NoDirExists(t, cfg.Backup.Dir)
}

func TestRefineFile_StrictValidation(t *testing.T) {
	content := "\\begin{itemize}\nAlan Turing.\n"
	path, cfg := setup(t, content)
	cfg.Strict = true
	r, err := New(cfg)
	require.NoError(t, err)

	res, err := r.RefineFile(context.Background(), path)
	require.Error(t, err)
	assert.Equal(t, types.ErrValidation, types.CodeOf(err))
	require.NotNil(t, res)
	assert.False(t, res.Validation.Valid)
	assert.False(t, res.Written)
	assert.Equal(t, content, readFile(t, path))
}

func TestRefineFile_LenientValidationStillWrites(t *testing.T) {
	path, cfg := setup(t, "\\begin{itemize}\nAlan Turing.\n")
	r, err := New(cfg)
	require.NoError(t, err)

	res, err := r.RefineFile(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, res.Validation.Valid)
	assert.True(t, res.Written)
	assert.Equal(t, "\\begin{itemize}\nAlan Turing.\n\n\\clearpage\n", readFile(t, path))
}

func TestRefineDocument_StableOnSecondRun(t *testing.T) {
	r, err := New(config.Default())
	require.NoError(t, err)

	doc := layout.Document{
		`\emph{Arthur Samuel wrote`,
		`the checkers program.}`,
		"",
		"Arthur Samuel again." + portrait("ArthurSamuel.jpg"),
		`\clearpage`,
	}

	first := r.RefineDocument(doc, "Chapter-Introduction")
	require.True(t, first.Validation.Valid)
	assert.Equal(t, `\emph{Arthur Samuel wrote`+portrait("ArthurSamuel.jpg"), first.Output[0])
	assert.Equal(t, `the checkers program.}`, first.Output[1])

	second := r.RefineDocument(first.Output, "Chapter-Introduction")
	assert.True(t, second.Validation.Valid)
	assert.Empty(t, second.FixCounts)
	assert.Equal(t, first.Output, second.Output)
}

func TestRefineFile_RestoresMissingPortraits(t *testing.T) {
	path, cfg := setup(t, "Alan Turing asked.\n\\clearpage\n")
	cfg.People = []layout.Person{{Name: "Alan Turing", File: "AlanTuring.jpg"}}
	r, err := New(cfg)
	require.NoError(t, err)

	res, err := r.RefineFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Restored)
	assert.Equal(t, "Alan Turing asked."+portrait("AlanTuring.jpg")+"\n\\clearpage\n", readFile(t, path))
}

func TestRefineFile_Missing(t *testing.T) {
	r, err := New(config.Default())
	require.NoError(t, err)

	res, err := r.RefineFile(context.Background(), filepath.Join(t.TempDir(), "missing.tex"))
	assert.Nil(t, res)
	assert.Equal(t, types.ErrFileNotFound, types.CodeOf(err))
}

func TestRefineFiles_KeepsOrderAndContinues(t *testing.T) {
	first, cfg := setup(t, chapter)
	second := filepath.Join(filepath.Dir(first), "Chapter-Two.tex")
	require.NoError(t, os.WriteFile(second, []byte("Nothing here.\n\\clearpage\n"), 0644))
	missing := filepath.Join(filepath.Dir(first), "missing.tex")

	r, err := New(cfg)
	require.NoError(t, err)

	results, err := r.RefineFiles(context.Background(), []string{first, missing, second}, 2)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, first, results[0].Path)
	assert.True(t, results[0].Written)
	assert.NoError(t, results[0].Err)

	assert.Equal(t, missing, results[1].Path)
	assert.Equal(t, types.ErrFileNotFound, types.CodeOf(results[1].Err))

	assert.Equal(t, second, results[2].Path)
	assert.False(t, results[2].Changed)
	assert.NoError(t, results[2].Err)
}

func TestRefineFiles_CancelledContext(t *testing.T) {
	path, cfg := setup(t, chapter)
	r, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := r.RefineFiles(ctx, []string{path}, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, errors.Is(results[0].Err, context.Canceled))
	assert.Equal(t, chapter, readFile(t, path))
}

func TestRefineFile_RecordsMetrics(t *testing.T) {
	path, cfg := setup(t, chapter)
	m := metrics.New()
	r, err := New(cfg, WithMetrics(m))
	require.NoError(t, err)

	_, err = r.RefineFile(context.Background(), path)
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "refiner.prom")
	require.NoError(t, m.WriteTextfile(out))
	text := readFile(t, out)
	assert.Contains(t, text, `latex_refiner_files_total{result="written"} 1`)
	assert.Contains(t, text, `latex_refiner_annotations_extracted_total 2`)
	assert.Contains(t, text, `latex_refiner_placements_total{kind="mention"} 2`)
}

func TestNew_InvalidLayout(t *testing.T) {
	cfg := config.Default()
	cfg.Layout.CaptionPattern = "("
	_, err := New(cfg)
	assert.Equal(t, types.ErrConfig, types.CodeOf(err))
}

func TestFormatResult(t *testing.T) {
	path, cfg := setup(t, chapter)
	r, err := New(cfg)
	require.NoError(t, err)
	res, err := r.RefineFile(context.Background(), path)
	require.NoError(t, err)

	out := FormatResult(res)
	assert.Contains(t, out, "✓ Written")
	assert.Contains(t, out, "Annotations: 2 extracted, 2 placed")
	assert.Contains(t, out, "BobBemer.jpg")
	assert.Contains(t, out, "line 4 (mention)")
	assert.Contains(t, out, "Backup: ")
	assert.Contains(t, out, "✓ Valid")

	failed := FormatResult(&FileResult{Path: "x.tex", Err: errors.New("boom")})
	assert.Contains(t, failed, "✗ FAILED: boom")
}
