// Package store persists completed reviews to a JSON file.
package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dshills/difftriage/internal/triage"
)

// ErrNotFound is returned when no review matches the requested ID.
var ErrNotFound = errors.New("review not found")

// Review is one persisted run: where it ran, what it covered, what it found.
type Review struct {
	ID          string        `json:"id"`
	ProjectPath string        `json:"project_path"`
	HeadCommit  string        `json:"head_commit"`
	StatusHash  string        `json:"status_hash"`
	Mode        string        `json:"mode"`
	Lenses      []string      `json:"lenses"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
	Result      triage.Result `json:"result"`
}

type reviewFile struct {
	Reviews []Review `json:"reviews"`
}

// Store keeps reviews in a single JSON file, newest first.
type Store struct {
	path string
	mu   sync.RWMutex
}

// New creates a store backed by the given file path.
func New(path string) *Store {
	return &Store{path: path}
}

// List returns all persisted reviews, newest first.
func (s *Store) List() ([]Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := s.load()
	if err != nil {
		return nil, err
	}
	return file.Reviews, nil
}

// Get returns a review by ID.
func (s *Store) Get(id string) (Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := s.load()
	if err != nil {
		return Review{}, err
	}
	for _, r := range file.Reviews {
		if r.ID == id {
			return r, nil
		}
	}
	return Review{}, ErrNotFound
}

// Save adds a review, pruning the oldest entries past maxEntries. A
// maxEntries of zero keeps everything.
func (s *Store) Save(r Review, maxEntries int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return err
	}

	file.Reviews = append([]Review{r}, file.Reviews...)
	if maxEntries > 0 && len(file.Reviews) > maxEntries {
		file.Reviews = file.Reviews[:maxEntries]
	}

	return s.save(file)
}

func (s *Store) load() (reviewFile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return reviewFile{}, nil
		}
		return reviewFile{}, err
	}
	if len(data) == 0 {
		return reviewFile{}, nil
	}

	var file reviewFile
	if err := json.Unmarshal(data, &file); err != nil {
		return reviewFile{}, err
	}
	return file, nil
}

func (s *Store) save(file reviewFile) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
