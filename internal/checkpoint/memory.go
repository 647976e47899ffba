package checkpoint

import (
	"fmt"
	"sync"
	"time"

	"github.com/solguard-dev/solguard/pkg/shared/errors"
)

// MemoryStore keeps checkpoints in memory. Used in tests and for one-shot
// runs where durability is not requested.
type MemoryStore struct {
	mu   sync.Mutex
	runs map[string][]Checkpoint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string][]Checkpoint)}
}

func (s *MemoryStore) Put(cp Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.runs[cp.RunID]
	if len(history) > 0 && cp.Seq <= history[len(history)-1].Seq {
		return errors.NewCheckpointWriteError(cp.RunID, cp.Seq,
			fmt.Errorf("sequence must advance past %d", history[len(history)-1].Seq))
	}

	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.runs[cp.RunID] = append(history, cp)
	return nil
}

func (s *MemoryStore) GetLatest(runID string) (Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.runs[runID]
	if len(history) == 0 {
		return Checkpoint{}, errors.NewCheckpointNotFoundError(runID)
	}
	return history[len(history)-1], nil
}

func (s *MemoryStore) Close() error {
	return nil
}
