// Package artifacts persists run outputs: scored metrics, git metadata,
// encoded example dumps, and serialized helper state. Artifacts are
// addressed by (run ID, name); local disk is the default backend and an
// S3-compatible bucket covers shared storage.
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store reads and writes named artifacts scoped to a run.
type Store interface {
	// Put stores the artifact and returns a stable reference to it.
	Put(ctx context.Context, runID, name string, data io.Reader) (string, error)
	// Get opens the artifact for reading.
	Get(ctx context.Context, runID, name string) (io.ReadCloser, error)
	// Exists reports whether the artifact is present.
	Exists(ctx context.Context, runID, name string) (bool, error)
	// Delete removes the artifact; deleting a missing artifact is not an
	// error.
	Delete(ctx context.Context, runID, name string) error
	// List returns the artifact names stored for a run, sorted.
	List(ctx context.Context, runID string) ([]string, error)
	// Close releases backend resources.
	Close() error
}

// validateKey rejects run IDs and names that would escape the store's
// key space.
func validateKey(runID, name string) error {
	for _, part := range []string{runID, name} {
		if part == "" {
			return fmt.Errorf("artifact run ID and name are required")
		}
		if strings.ContainsAny(part, `/\`) || part == "." || part == ".." {
			return fmt.Errorf("artifact key %q must not contain path separators", part)
		}
	}
	return nil
}

// LocalStore keeps artifacts on local disk under base/<runID>/<name>.
// The layout is deterministic, so no index is kept and concurrent stores
// over the same directory see each other's writes.
type LocalStore struct {
	basePath string
}

// NewLocalStore creates a local disk store rooted at basePath.
func NewLocalStore(basePath string) (*LocalStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}
	return &LocalStore{basePath: basePath}, nil
}

// Put writes the artifact via a temp file and an atomic rename, so
// readers never observe a half-written artifact.
func (s *LocalStore) Put(ctx context.Context, runID, name string, data io.Reader) (string, error) {
	if err := validateKey(runID, name); err != nil {
		return "", err
	}
	dir := filepath.Join(s.basePath, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}

	filePath := filepath.Join(dir, name)
	tmpPath := filePath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(f, data); err != nil {
		f.Close()
		os.Remove(tmpPath) //nolint:errcheck
		return "", fmt.Errorf("write artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath) //nolint:errcheck
		return "", fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		os.Remove(tmpPath) //nolint:errcheck
		return "", fmt.Errorf("rename artifact: %w", err)
	}
	return "file://" + filePath, nil
}

// Get opens a stored artifact.
func (s *LocalStore) Get(ctx context.Context, runID, name string) (io.ReadCloser, error) {
	if err := validateKey(runID, name); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.basePath, runID, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("artifact not found: %s/%s", runID, name)
		}
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	return f, nil
}

// Exists reports whether the artifact file is present.
func (s *LocalStore) Exists(ctx context.Context, runID, name string) (bool, error) {
	if err := validateKey(runID, name); err != nil {
		return false, err
	}
	_, err := os.Stat(filepath.Join(s.basePath, runID, name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat artifact: %w", err)
}

// Delete removes an artifact; a missing artifact is already deleted.
func (s *LocalStore) Delete(ctx context.Context, runID, name string) error {
	if err := validateKey(runID, name); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.basePath, runID, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete artifact: %w", err)
	}
	return nil
}

// List returns the sorted artifact names stored for runID. A run with no
// artifacts lists empty rather than failing.
func (s *LocalStore) List(ctx context.Context, runID string) ([]string, error) {
	if runID == "" {
		return nil, fmt.Errorf("artifact run ID is required")
	}
	entries, err := os.ReadDir(filepath.Join(s.basePath, runID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), ".tmp") {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

// Close releases resources.
func (s *LocalStore) Close() error {
	return nil
}

// PruneOlderThan removes run directories whose newest artifact is older
// than age. It returns the number of runs removed.
func (s *LocalStore) PruneOlderThan(ctx context.Context, age time.Duration) (int, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read artifact directory: %w", err)
	}

	cutoff := time.Now().Add(-age)
	pruned := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return pruned, err
		}
		if !entry.IsDir() {
			continue
		}
		runDir := filepath.Join(s.basePath, entry.Name())
		newest, err := newestModTime(runDir)
		if err != nil {
			return pruned, err
		}
		if newest.After(cutoff) {
			continue
		}
		if err := os.RemoveAll(runDir); err != nil {
			return pruned, fmt.Errorf("remove run %s: %w", entry.Name(), err)
		}
		pruned++
	}
	return pruned, nil
}

// newestModTime returns the most recent modification time of any file
// under dir, or the directory's own time when it holds no files.
func newestModTime(dir string) (time.Time, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return time.Time{}, fmt.Errorf("stat run dir: %w", err)
	}
	newest := info.ModTime()
	entries, err := os.ReadDir(dir)
	if err != nil {
		return time.Time{}, fmt.Errorf("read run dir: %w", err)
	}
	for _, entry := range entries {
		fi, err := entry.Info()
		if err != nil {
			return time.Time{}, fmt.Errorf("stat artifact: %w", err)
		}
		if fi.ModTime().After(newest) {
			newest = fi.ModTime()
		}
	}
	return newest, nil
}
