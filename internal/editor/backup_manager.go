// Package editor provides the file-level side of chapter refinement:
// decoding, line splitting, validation, backups and atomic write-back.
package editor

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"latex-refiner/internal/logger"
	"latex-refiner/internal/types"
)

const backupTimeFormat = "20060102_150405"

// BackupManager manages file backups for safe editing
type BackupManager struct {
	backupDir string
	now       func() time.Time
}

// NewBackupManager creates a new BackupManager
// If backupDir is empty, backups are created in the same directory as the original file
func NewBackupManager(backupDir string) *BackupManager {
	return &BackupManager{
		backupDir: backupDir,
		now:       time.Now,
	}
}

// CreateBackup copies path to <file>.backup_<YYYYMMDD_HHMMSS> and returns
// the backup path. A second backup within the same second gets a numeric
// suffix instead of overwriting the first.
func (m *BackupManager) CreateBackup(path string) (string, error) {
	logger.Debug("creating backup", logger.String("path", path))

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", types.NewAppErrorWithDetails(types.ErrFileNotFound, "file does not exist", path, err)
	}

	dir := filepath.Dir(path)
	if m.backupDir != "" {
		if err := os.MkdirAll(m.backupDir, 0755); err != nil {
			logger.Error("failed to create backup directory", err)
			return "", types.NewAppError(types.ErrWriteFailure, "failed to create backup directory", err)
		}
		dir = m.backupDir
	}

	base := filepath.Join(dir, filepath.Base(path)+".backup_"+m.now().Format(backupTimeFormat))
	backupPath := base
	for i := 1; fileExists(backupPath); i++ {
		backupPath = fmt.Sprintf("%s_%d", base, i)
	}

	if err := copyFile(path, backupPath); err != nil {
		logger.Error("failed to copy file", err)
		return "", types.NewAppError(types.ErrWriteFailure, "failed to copy file", err)
	}

	logger.Info("backup created successfully", logger.String("backupPath", backupPath))
	return backupPath, nil
}

// Restore restores a file from its backup
func (m *BackupManager) Restore(backupPath string, originalPath string) error {
	logger.Debug("restoring from backup",
		logger.String("backupPath", backupPath),
		logger.String("originalPath", originalPath))

	if _, err := os.Stat(backupPath); os.IsNotExist(err) {
		return types.NewAppErrorWithDetails(types.ErrFileNotFound, "backup file does not exist", backupPath, err)
	}

	data, err := os.ReadFile(backupPath)
	if err != nil {
		return types.NewAppError(types.ErrFileNotFound, "failed to read backup", err)
	}
	perm := os.FileMode(0644)
	if info, err := os.Stat(backupPath); err == nil {
		perm = info.Mode().Perm()
	}
	if err := WriteAtomic(originalPath, data, perm); err != nil {
		logger.Error("failed to restore backup", err)
		return err
	}

	logger.Info("file restored from backup successfully", logger.String("path", originalPath))
	return nil
}

// ListBackups lists all backups for a given file, newest first.
func (m *BackupManager) ListBackups(path string) ([]string, error) {
	searchDir := filepath.Dir(path)
	if m.backupDir != "" {
		searchDir = m.backupDir
	}

	entries, err := os.ReadDir(searchDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	type backup struct {
		path  string
		stamp string
		seq   int
	}
	var found []backup
	prefix := filepath.Base(path) + ".backup_"
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		stamp, seq := parseBackupSuffix(strings.TrimPrefix(entry.Name(), prefix))
		found = append(found, backup{filepath.Join(searchDir, entry.Name()), stamp, seq})
	}

	// newest timestamp first; within one second the highest _N is newest
	sort.Slice(found, func(i, j int) bool {
		if found[i].stamp != found[j].stamp {
			return found[i].stamp > found[j].stamp
		}
		return found[i].seq > found[j].seq
	})

	backups := make([]string, len(found))
	for i, b := range found {
		backups[i] = b.path
	}
	return backups, nil
}

// parseBackupSuffix splits "YYYYMMDD_HHMMSS[_N]" into the timestamp and N
// (0 when absent). Unparseable suffixes keep the whole text as stamp.
func parseBackupSuffix(suffix string) (string, int) {
	n := len(backupTimeFormat)
	if len(suffix) <= n+1 || suffix[n] != '_' {
		return suffix, 0
	}
	seq, err := strconv.Atoi(suffix[n+1:])
	if err != nil {
		return suffix, 0
	}
	return suffix[:n], seq
}

// CleanupBackups removes old backups, keeping only the most recent N backups
func (m *BackupManager) CleanupBackups(path string, keepCount int) (int, error) {
	logger.Debug("cleaning up backups",
		logger.String("path", path),
		logger.Int("keepCount", keepCount))

	if keepCount < 0 {
		return 0, types.NewAppErrorWithDetails(types.ErrInvalidInput, "keep count must not be negative", fmt.Sprint(keepCount), nil)
	}

	backups, err := m.ListBackups(path)
	if err != nil {
		return 0, err
	}

	removed := 0
	for i := keepCount; i < len(backups); i++ {
		if err := os.Remove(backups[i]); err != nil {
			logger.Warn("failed to remove backup", logger.Err(err), logger.String("path", backups[i]))
			continue
		}
		removed++
		logger.Debug("removed old backup", logger.String("path", backups[i]))
	}

	logger.Info("backup cleanup completed",
		logger.Int("totalBackups", len(backups)),
		logger.Int("kept", len(backups)-removed),
		logger.Int("removed", removed))

	return removed, nil
}

// GetLatestBackup returns the path to the most recent backup for a file
func (m *BackupManager) GetLatestBackup(path string) (string, error) {
	backups, err := m.ListBackups(path)
	if err != nil {
		return "", err
	}

	if len(backups) == 0 {
		return "", types.NewAppErrorWithDetails(types.ErrFileNotFound, "no backups found for file", path, nil)
	}

	return backups[0], nil
}

func fileExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// copyFile copies a file from src to dst
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	sourceInfo, err := sourceFile.Stat()
	if err != nil {
		return err
	}

	destFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, sourceInfo.Mode().Perm())
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}

	// Sync to ensure data is written to disk
	return destFile.Sync()
}
