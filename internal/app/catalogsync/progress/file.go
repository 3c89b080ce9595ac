// Package progress persists the crawl cursor between runs.
package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/g33ktony/hot-wheels-manager-sub006/internal/domain"
)

// FileStore keeps one ProgressState as a JSON file.
type FileStore struct {
	path string
	log  *slog.Logger
	now  func() time.Time
}

// NewFileStore creates a FileStore writing to path.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	return &FileStore{
		path: path,
		log:  logger.With("component", "progress"),
		now:  time.Now,
	}
}

// Path returns the progress file location.
func (s *FileStore) Path() string { return s.path }

// Load returns the state to run with over universe. A clean start ignores
// whatever is on disk; the file is replaced on the first Save. A missing
// file yields a fresh state. A file that exists but cannot be read back
// fails with domain.ErrStateCorrupt.
func (s *FileStore) Load(clean bool, universe []domain.PageTitle) (domain.ProgressState, error) {
	now := s.now()
	if clean {
		s.log.Info("clean start, ignoring persisted progress", slog.String("path", s.path))
		return domain.NewProgressState(uuid.NewString(), len(universe), true, now), nil
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Info("no progress file, starting fresh", slog.String("path", s.path))
		return domain.NewProgressState(uuid.NewString(), len(universe), false, now), nil
	}
	if err != nil {
		return domain.ProgressState{}, fmt.Errorf("progress: read %s: %w: %w", s.path, domain.ErrStateCorrupt, err)
	}

	var state domain.ProgressState
	if err := json.Unmarshal(data, &state); err != nil {
		return domain.ProgressState{}, fmt.Errorf("progress: decode %s: %w: %w", s.path, domain.ErrStateCorrupt, err)
	}
	if state.RunID == "" {
		return domain.ProgressState{}, fmt.Errorf("progress: %s has no run_id: %w", s.path, domain.ErrStateCorrupt)
	}

	state.TotalTitles = len(universe)
	state.CleanStart = false

	s.log.Info("resuming",
		slog.String("run_id", state.RunID),
		slog.Int("processed", len(state.ProcessedTitles)),
		slog.Int("pending", len(state.Pending(universe))),
		slog.String("last_cursor", state.LastCursor.String()),
	)
	return state, nil
}

// Save writes state durably: data goes to a temp file in the same
// directory, is fsynced, renamed over the target, and the directory is
// fsynced so the rename itself survives a crash.
func (s *FileStore) Save(state domain.ProgressState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("progress: encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("progress: mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("progress: create temp: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("progress: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("progress: sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("progress: close temp: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("progress: rename: %w", err)
	}

	if d, err := os.Open(dir); err == nil {
		syncErr := d.Sync()
		d.Close()
		if syncErr != nil {
			return fmt.Errorf("progress: sync dir: %w", syncErr)
		}
	}

	s.log.Debug("progress saved",
		slog.String("run_id", state.RunID),
		slog.Int("processed", len(state.ProcessedTitles)),
	)
	return nil
}
