// Package filestore persists progress snapshots as one JSON document per
// user in a directory on disk.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/phrazzld/scry-cue/internal/domain"
	"github.com/phrazzld/scry-cue/internal/store"
)

// Store is a directory of per-user snapshot files.
type Store struct {
	dir    string
	logger *slog.Logger
}

var _ store.ProgressStore = (*Store)(nil)

// New creates the directory if needed and returns a store rooted at it.
func New(dir string, logger *slog.Logger) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("storage directory is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &Store{
		dir:    filepath.Clean(dir),
		logger: logger.With(slog.String("component", "file_progress_store")),
	}, nil
}

// Path returns the snapshot file used for userID. User IDs are escaped so
// that no ID can name a file outside the store directory.
func (s *Store) Path(userID string) string {
	return filepath.Join(s.dir, url.PathEscape(userID)+".json")
}

// LoadProgress implements store.ProgressStore.
func (s *Store) LoadProgress(ctx context.Context, userID string) (map[string]domain.ReviewState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path(userID))
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]domain.ReviewState{}, nil
	}
	if err != nil {
		return nil, store.NewStoreError("progress", "load", "read snapshot file", err)
	}

	states, err := store.DecodeSnapshot(data)
	if err != nil {
		return nil, store.NewStoreError("progress", "load", "decode snapshot file", err)
	}
	return states, nil
}

// SaveProgress implements store.ProgressStore.
func (s *Store) SaveProgress(ctx context.Context, userID string, states map[string]domain.ReviewState) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := store.EncodeSnapshot(userID, states)
	if err != nil {
		return store.NewStoreError("progress", "save", "encode snapshot", err)
	}

	if err := WriteFileAtomic(s.Path(userID), data, 0o644); err != nil {
		return store.NewStoreError("progress", "save", "write snapshot file", err)
	}

	s.logger.DebugContext(ctx, "saved progress snapshot",
		slog.String("user_id", userID),
		slog.Int("states", len(states)))
	return nil
}

// WriteFileAtomic writes data to a temporary file next to path and renames it
// into place, so readers see either the old or the new content.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op once the rename has succeeded.
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
