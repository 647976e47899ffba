package orchestrator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/solguard-dev/solguard/internal/checkpoint"
	"github.com/solguard-dev/solguard/internal/events"
	"github.com/solguard-dev/solguard/internal/findings"
	"github.com/solguard-dev/solguard/internal/sink"
)

// execute drives the run through its remaining stages to a terminal state.
// The returned error is also recorded on the run itself.
func (o *Orchestrator) execute(ctx context.Context, run *AnalysisRun) error {
	sem := o.tenantSemaphore(run.TenantID)
	if err := sem.Acquire(ctx, 1); err != nil {
		return o.finish(run, StateCancelled, err)
	}
	defer sem.Release(1)

	logger := o.logger.With("runID", run.RunID, "profile", run.Profile.Name)
	run.State = StateRunning
	logger.Info("run started", "stages", len(run.Profile.Stages), "nextStage", run.NextStage)

	for i := run.NextStage; i < len(run.Profile.Stages); i++ {
		stage := run.Profile.Stages[i]
		o.publishStage(run, stage.Name, "", events.StageStarted, "")

		result := o.runStage(ctx, logger, run, stage)
		run.Stages = append(run.Stages, result)
		// only successful or skipped stages seal; a failed stage re-runs
		// on resume
		if result.Status != OutcomeFailed {
			run.NextStage = i + 1
		}

		// The stage is sealed only once its checkpoint is durable. A failed
		// checkpoint write fails the whole run.
		if err := o.checkpointRun(run); err != nil {
			logger.Error("checkpoint write failed", "stage", stage.Name, "error", err)
			return o.finish(run, StateFailed, err)
		}

		switch result.Status {
		case OutcomeCompleted:
			o.publishStage(run, stage.Name, "", events.StageCompleted, "")
		case OutcomeSkipped:
			o.publishStage(run, stage.Name, "", events.StageSkipped, result.Error)
		case OutcomeFailed:
			o.publishStage(run, stage.Name, "", events.StageFailed, result.Error)
			if ctx.Err() != nil {
				return o.finish(run, StateCancelled, ctx.Err())
			}
			return o.finish(run, StateFailed, stageError(stage.Name, result))
		}

		if ctx.Err() != nil {
			return o.finish(run, StateCancelled, ctx.Err())
		}
	}

	run.State = StateAggregating
	o.aggregate(run)

	if err := o.checkpointRun(run); err != nil {
		logger.Error("final checkpoint write failed", "error", err)
		return o.finish(run, StateFailed, err)
	}

	if err := o.finish(run, StateCompleted, nil); err != nil {
		return err
	}

	o.deliver(logger, run)
	return nil
}

// aggregate merges all per-stage findings through the consensus engine and
// streams the consolidated findings to subscribers.
func (o *Orchestrator) aggregate(run *AnalysisRun) {
	var all []findings.Finding
	for _, stage := range run.Stages {
		all = append(all, stage.Findings...)
	}
	run.Findings = o.consensus.Merge(all)

	for _, f := range run.Findings {
		o.publishFinding(run, f)
	}
}

func (o *Orchestrator) finish(run *AnalysisRun, state RunState, err error) error {
	run.State = state
	run.FinishedAt = time.Now().UTC()
	if err != nil {
		run.Error = err.Error()
	}

	// best effort: the terminal state should survive a restart, but a failed
	// write here must not mask the run's own outcome
	if cpErr := o.checkpointRun(run); cpErr != nil {
		o.logger.Warn("could not persist terminal state", "runID", run.RunID, "error", cpErr)
	}
	return err
}

func (o *Orchestrator) deliver(logger hclog.Logger, run *AnalysisRun) {
	if o.sink == nil {
		return
	}
	record := o.buildRecord(run)
	if err := o.sink.Deliver(record); err != nil {
		logger.Error("report delivery failed", "error", err)
	}
}

func (o *Orchestrator) buildRecord(run *AnalysisRun) *sink.RunRecord {
	stages := make([]sink.StageSummary, 0, len(run.Stages))
	for _, s := range run.Stages {
		var engines []string
		raw := 0
		for _, er := range s.Engines {
			engines = append(engines, er.Engine)
			raw += er.Findings
		}
		stages = append(stages, sink.StageSummary{
			Name:        s.Name,
			Engines:     engines,
			Status:      s.Status,
			Attempts:    s.Attempts,
			Duration:    s.Duration,
			RawFindings: raw,
			Error:       s.Error,
		})
	}

	return &sink.RunRecord{
		RunID:          run.RunID,
		TenantID:       run.TenantID,
		Profile:        run.Profile.Name,
		State:          string(run.State),
		Commit:         run.Snapshot.Commit,
		Framework:      string(run.Snapshot.Framework),
		SourceFiles:    len(run.Snapshot.Files),
		EngineVersions: o.registry.Versions(),
		Stages:         stages,
		Findings:       run.Findings,
		StartedAt:      run.StartedAt,
		FinishedAt:     run.FinishedAt,
	}
}

func (o *Orchestrator) checkpointRun(run *AnalysisRun) error {
	run.CheckpointSeq++
	payload, err := json.Marshal(run)
	if err != nil {
		return err
	}
	return o.store.Put(checkpoint.Checkpoint{
		RunID:   run.RunID,
		Seq:     run.CheckpointSeq,
		Payload: payload,
	})
}

// Event sequence numbers are strictly increasing within a run. The lock keeps
// the numbering and the delivery order consistent when a parallel stage
// publishes from several goroutines.
func (o *Orchestrator) publishStage(run *AnalysisRun, stage, engineName string, status events.StageStatus, detail string) {
	o.eventMu.Lock()
	defer o.eventMu.Unlock()

	run.EventSeq++
	o.publisher.PublishStage(events.StageEvent{
		RunID:     run.RunID,
		Stage:     stage,
		Engine:    engineName,
		Status:    status,
		Detail:    detail,
		Seq:       run.EventSeq,
		Timestamp: time.Now().UTC(),
	})
}

func (o *Orchestrator) publishFinding(run *AnalysisRun, f findings.Finding) {
	o.eventMu.Lock()
	defer o.eventMu.Unlock()

	run.EventSeq++
	o.publisher.PublishFinding(events.FindingEvent{
		RunID:     run.RunID,
		Finding:   f,
		Seq:       run.EventSeq,
		Timestamp: time.Now().UTC(),
	})
}
