package staging

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"subdetx/internal/logging"
)

// CleanStaleResult reports which abandoned request directories were removed.
type CleanStaleResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a request directory with the error that kept it on disk.
type CleanupError struct {
	Path  string
	Error error
}

// DirInfo describes one request directory still on disk.
type DirInfo struct {
	ID      string
	Name    string
	Path    string
	ModTime time.Time
	Size    int64
}

// CleanStale removes request directories left behind by uploads that never
// finished (crash, kill) and are older than maxAge. Anything not created by
// NewRequestDir is left alone. A non-positive maxAge disables cleanup.
func CleanStale(ctx context.Context, stagingDir string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	var result CleanStaleResult
	if maxAge <= 0 {
		return result
	}

	dirs, scanErrs := scanRequestDirs(stagingDir)
	result.Errors = append(result.Errors, scanErrs...)
	cutoff := time.Now().Add(-maxAge)

	for _, dir := range dirs {
		if ctx.Err() != nil {
			break
		}
		if !dir.ModTime.Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(dir.Path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dir.Path, Error: err})
			logging.WarnWithContext(logger, "failed to remove abandoned upload", "request_dir_expire_failed",
				logging.String("request_id", dir.ID),
				logging.String("request_dir", dir.Path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check paths.staging_dir permissions"),
				logging.String(logging.FieldImpact, "upload bytes stay on disk until removed by hand"),
			)
			continue
		}
		result.Removed = append(result.Removed, dir.Path)
		if logger != nil {
			logger.Info("removed abandoned upload",
				logging.String(logging.FieldEventType, "request_dir_expired"),
				logging.String("request_id", dir.ID),
				logging.Duration("age", time.Since(dir.ModTime)),
				logging.Int64("upload_bytes", dir.Size),
			)
		}
	}
	return result
}

// ListDirectories returns the request directories currently staged, with the
// bytes each one holds. A missing staging directory yields nil.
func ListDirectories(stagingDir string) ([]DirInfo, error) {
	dirs, errs := scanRequestDirs(stagingDir)
	if len(errs) > 0 && len(dirs) == 0 {
		return nil, errs[0].Error
	}
	return dirs, nil
}

// scanRequestDirs reads the request directories directly under stagingDir.
// Entries whose metadata cannot be read are reported and skipped.
func scanRequestDirs(stagingDir string) ([]DirInfo, []CleanupError) {
	stagingDir = strings.TrimSpace(stagingDir)
	if stagingDir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, []CleanupError{{Path: stagingDir, Error: err}}
	}

	var (
		dirs []DirInfo
		errs []CleanupError
	)
	for _, entry := range entries {
		id, ok := strings.CutPrefix(entry.Name(), RequestPrefix)
		if !entry.IsDir() || !ok {
			continue
		}
		path := filepath.Join(stagingDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			errs = append(errs, CleanupError{Path: path, Error: err})
			continue
		}
		dirs = append(dirs, DirInfo{
			ID:      id,
			Name:    entry.Name(),
			Path:    path,
			ModTime: info.ModTime(),
			Size:    uploadBytes(path),
		})
	}
	return dirs, errs
}

// uploadBytes sums the regular files saved into a request directory. Files
// that vanish mid-walk are skipped.
func uploadBytes(dir string) int64 {
	var size int64
	_ = filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, infoErr := d.Info(); infoErr == nil {
			size += info.Size()
		}
		return nil
	})
	return size
}
