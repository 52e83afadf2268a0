// Package checkpoint persists how far replication has progressed.
package checkpoint

import (
	"os"
	"sync"
	"time"

	"github.com/datazip-inc/fimo/constants"
	"github.com/datazip-inc/fimo/types"
	"github.com/datazip-inc/fimo/utils"
)

// Store loads and persists the single checkpoint of a run.
// Load returns a nil checkpoint when replication has never progressed.
type Store interface {
	Load() (types.Checkpoint, error)
	Persist(checkpoint types.Checkpoint) error
}

// FileStore keeps the checkpoint as a json file replaced atomically on every persist
type FileStore struct {
	path  string
	mode  types.SyncMode
	field string
	now   func() time.Time
}

func NewFileStore(path string, mode types.SyncMode, field string) *FileStore {
	return &FileStore{
		path:  path,
		mode:  mode,
		field: field,
		now:   time.Now,
	}
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load() (types.Checkpoint, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, types.CheckpointIO.Wrap(err, "failed to read checkpoint file %s", s.path)
	}

	checkpoint, err := types.UnmarshalCheckpoint(data)
	if err != nil {
		return nil, types.CheckpointMismatch.Wrap(err, "checkpoint file %s", s.path)
	}
	if err := verify(checkpoint, s.mode, s.field); err != nil {
		return nil, types.CheckpointMismatch.Wrap(err, "checkpoint file %s", s.path)
	}

	return checkpoint, nil
}

func (s *FileStore) Persist(checkpoint types.Checkpoint) error {
	if err := verify(checkpoint, s.mode, s.field); err != nil {
		return err
	}

	data, err := types.MarshalCheckpoint(checkpoint, s.now())
	if err != nil {
		return types.CheckpointIO.Wrap(err, "failed to encode checkpoint %s", checkpoint)
	}
	if err := utils.WriteFileAtomic(s.path, data, constants.CheckpointFileMode); err != nil {
		return types.CheckpointIO.Wrap(err, "failed to write checkpoint file %s", s.path)
	}

	return nil
}

// MemoryStore holds the checkpoint for the lifetime of the process only
type MemoryStore struct {
	mu         sync.Mutex
	mode       types.SyncMode
	field      string
	checkpoint types.Checkpoint
	persisted  int
}

func NewMemoryStore(mode types.SyncMode, field string, initial types.Checkpoint) *MemoryStore {
	return &MemoryStore{mode: mode, field: field, checkpoint: initial}
}

func (s *MemoryStore) Load() (types.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.checkpoint == nil {
		return nil, nil
	}
	if err := verify(s.checkpoint, s.mode, s.field); err != nil {
		return nil, types.CheckpointMismatch.Wrap(err, "in memory checkpoint")
	}
	return s.checkpoint, nil
}

func (s *MemoryStore) Persist(checkpoint types.Checkpoint) error {
	if err := verify(checkpoint, s.mode, s.field); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoint = checkpoint
	s.persisted++
	return nil
}

// Persisted returns how many times a checkpoint was written
func (s *MemoryStore) Persisted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persisted
}

func verify(checkpoint types.Checkpoint, mode types.SyncMode, field string) error {
	if checkpoint.Type() != mode.CheckpointType() {
		return types.CheckpointMismatch.New("stored checkpoint is of type [%s] but sync runs in [%s] mode; pass an explicit resume value or start from a fresh checkpoint file", checkpoint.Type(), mode)
	}

	if cp, ok := checkpoint.(*types.FieldCheckpoint); ok && cp.Field != field {
		return types.CheckpointMismatch.New("stored checkpoint tracks field [%s] but sync field is [%s]", cp.Field, field)
	}

	return nil
}
