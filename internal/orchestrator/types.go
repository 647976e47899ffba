package orchestrator

import (
	"time"

	"github.com/solguard-dev/solguard/internal/findings"
	"github.com/solguard-dev/solguard/internal/profile"
	"github.com/solguard-dev/solguard/internal/snapshot"
)

// RunState is the lifecycle state of an analysis run.
type RunState string

const (
	StatePending     RunState = "pending"
	StateRunning     RunState = "running"
	StateAggregating RunState = "aggregating"
	StateCompleted   RunState = "completed"
	StateFailed      RunState = "failed"
	StateCancelled   RunState = "cancelled"
)

// Terminal reports whether no further transition can happen.
func (s RunState) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Stage and engine outcome labels used in results and checkpoints.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
)

// EngineResult is the outcome of one engine invocation inside a stage.
type EngineResult struct {
	Engine   string `json:"engine"`
	Status   string `json:"status"`
	Findings int    `json:"findings"`
	Error    string `json:"error,omitempty"`
}

// StageResult is the sealed outcome of one pipeline stage. Once checkpointed
// it is never re-executed on resume.
type StageResult struct {
	Name     string             `json:"name"`
	Status   string             `json:"status"`
	Attempts int                `json:"attempts"`
	Engines  []EngineResult     `json:"engines"`
	Findings []findings.Finding `json:"findings"`
	Duration time.Duration      `json:"duration_ns"`
	Error    string             `json:"error,omitempty"`
}

// AnalysisRun is the full, checkpointable state of one run. Everything needed
// to resume lives here; the checkpoint payload is its JSON encoding.
type AnalysisRun struct {
	RunID         string             `json:"run_id"`
	TenantID      string             `json:"tenant_id,omitempty"`
	Profile       profile.Profile    `json:"profile"`
	Snapshot      *snapshot.Snapshot `json:"snapshot"`
	Seed          int64              `json:"seed,omitempty"`
	State         RunState           `json:"state"`
	NextStage     int                `json:"next_stage"`
	EventSeq      int                `json:"event_seq"`
	CheckpointSeq int                `json:"checkpoint_seq"`
	Stages        []StageResult      `json:"stages"`
	Findings      []findings.Finding `json:"findings"`
	Error         string             `json:"error,omitempty"`
	StartedAt     time.Time          `json:"started_at"`
	FinishedAt    time.Time          `json:"finished_at,omitempty"`
}
