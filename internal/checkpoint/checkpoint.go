package checkpoint

import (
	"encoding/json"
	"time"
)

// Checkpoint is one durable snapshot of a run's progress. Seq increases
// strictly within a run; the payload is the orchestrator's serialized state.
type Checkpoint struct {
	RunID     string          `json:"run_id"`
	Seq       int             `json:"seq"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// Store persists run checkpoints. Put must reject non-monotonic sequence
// numbers so a resumed run can trust the latest checkpoint.
type Store interface {
	Put(cp Checkpoint) error
	GetLatest(runID string) (Checkpoint, error)
	Close() error
}
