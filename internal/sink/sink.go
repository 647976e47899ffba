package sink

import (
	"time"

	"github.com/solguard-dev/solguard/internal/findings"
)

// StageSummary captures one executed stage for the final report.
type StageSummary struct {
	Name        string        `json:"name"`
	Engines     []string      `json:"engines"`
	Status      string        `json:"status"`
	Attempts    int           `json:"attempts"`
	Duration    time.Duration `json:"duration_ns"`
	RawFindings int           `json:"raw_findings"`
	Error       string        `json:"error,omitempty"`
}

// RunRecord is the terminal artifact of a completed run: metadata plus the
// consolidated findings in report order.
type RunRecord struct {
	RunID          string             `json:"run_id"`
	TenantID       string             `json:"tenant_id,omitempty"`
	Profile        string             `json:"profile"`
	State          string             `json:"state"`
	Commit         string             `json:"commit,omitempty"`
	Framework      string             `json:"framework"`
	SourceFiles    int                `json:"source_files"`
	EngineVersions map[string]string  `json:"engine_versions"`
	Stages         []StageSummary     `json:"stages"`
	Findings       []findings.Finding `json:"findings"`
	StartedAt      time.Time          `json:"started_at"`
	FinishedAt     time.Time          `json:"finished_at"`
}

// Sink receives the final run record. Sinks run after the terminal state is
// reached; a sink failure is reported but does not change the run's outcome.
type Sink interface {
	Deliver(record *RunRecord) error
}
