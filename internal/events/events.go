package events

import (
	"time"

	"github.com/solguard-dev/solguard/internal/findings"
)

// EventType discriminates the wire payloads sent to progress subscribers.
type EventType string

const (
	EventTypeStage   EventType = "stage"
	EventTypeFinding EventType = "finding"
)

// StageStatus is the reported lifecycle of one stage execution.
type StageStatus string

const (
	StageStarted   StageStatus = "started"
	StageCompleted StageStatus = "completed"
	StageFailed    StageStatus = "failed"
	StageSkipped   StageStatus = "skipped"
)

// StageEvent reports a stage transition. Seq is strictly increasing within a
// run so subscribers can detect gaps after reconnecting.
type StageEvent struct {
	RunID     string      `json:"run_id"`
	Stage     string      `json:"stage"`
	Engine    string      `json:"engine,omitempty"`
	Status    StageStatus `json:"status"`
	Detail    string      `json:"detail,omitempty"`
	Seq       int         `json:"seq"`
	Timestamp time.Time   `json:"timestamp"`
}

// FindingEvent streams one consolidated finding as soon as consensus produced
// it, ahead of the final report.
type FindingEvent struct {
	RunID     string           `json:"run_id"`
	Finding   findings.Finding `json:"finding"`
	Seq       int              `json:"seq"`
	Timestamp time.Time        `json:"timestamp"`
}

// Publisher delivers progress events. Delivery is best effort: a failing
// publisher must never fail the run.
type Publisher interface {
	PublishStage(ev StageEvent)
	PublishFinding(ev FindingEvent)
	Close() error
}
