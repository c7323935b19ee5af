package state

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
)

// Record describes one successful compile.
type Record struct {
	Fingerprint  string    `json:"fingerprint"`
	DocumentHash string    `json:"document_hash"`
	CompiledAt   time.Time `json:"compiled_at"`
	Session      string    `json:"session"`
	Frames       int64     `json:"frames"`
	Playlists    int       `json:"playlists"`
	Chapters     int       `json:"chapters"`
}

// CompileState is the persisted state of a project's last compile.
type CompileState struct {
	Last *Record `json:"last,omitempty"`
}

// Load reads compile state from path. A missing or corrupt file returns an
// empty state without error.
func Load(path string) (*CompileState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return &CompileState{}, nil
	}
	var cs CompileState
	if err := json.Unmarshal(data, &cs); err != nil {
		return &CompileState{}, nil
	}
	return &cs, nil
}

// Save writes the state atomically to path.
func (cs *CompileState) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create state dir")
	}
	data, err := json.MarshalIndent(cs, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode state")
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "write state")
	}
	return errors.Wrap(os.Rename(tmp, path), "replace state")
}

// Store serializes read-modify-write cycles on a state file: a mutex within
// the process and a lock file across processes.
type Store struct {
	path string
	mu   sync.Mutex
	lock *flock.Flock
}

// NewStore returns a store for the state at path guarded by lockPath.
func NewStore(path, lockPath string) *Store {
	return &Store{path: path, lock: flock.New(lockPath)}
}

// Path returns the state file location.
func (s *Store) Path() string { return s.path }

// Update loads the state under the lock, applies fn and saves the result.
// It waits for the lock until ctx is done.
func (s *Store) Update(ctx context.Context, fn func(*CompileState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.lock.Path()), 0o755); err != nil {
		return errors.Wrap(err, "create lock dir")
	}
	locked, err := s.lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return errors.Wrap(err, "acquire state lock")
	}
	if !locked {
		return errors.New("acquire state lock: not acquired")
	}
	defer s.lock.Unlock()

	cs, err := Load(s.path)
	if err != nil {
		return err
	}
	if err := fn(cs); err != nil {
		return err
	}
	return cs.Save(s.path)
}

// Read returns the current state without taking the lock.
func (s *Store) Read() (*CompileState, error) {
	return Load(s.path)
}
