package orchestrator

import (
	"context"
	goerrors "errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/solguard-dev/solguard/internal/engine"
	"github.com/solguard-dev/solguard/internal/events"
	"github.com/solguard-dev/solguard/internal/findings"
	"github.com/solguard-dev/solguard/internal/profile"
	"github.com/solguard-dev/solguard/pkg/shared/errors"
	"github.com/solguard-dev/solguard/pkg/shared/files"
)

// executionGrace is added on top of the stage timeout before the orchestrator
// gives up on an engine that did not honor its own wall clock.
const executionGrace = 30 * time.Second

func (o *Orchestrator) runStage(ctx context.Context, logger hclog.Logger, run *AnalysisRun, stage profile.Stage) StageResult {
	started := time.Now()
	result := StageResult{Name: stage.Name}

	adapters, err := o.registry.Resolve(stage.Engines)
	if err != nil {
		result.Status = OutcomeFailed
		result.Error = err.Error()
		result.Duration = time.Since(started)
		return result
	}

	switch stage.Policy {
	case profile.PolicyParallel:
		o.runParallel(ctx, logger, run, stage, adapters, &result)
	default:
		o.runSequential(ctx, logger, run, stage, adapters[0], &result)
	}

	result.Duration = time.Since(started)
	return result
}

// runSequential executes the stage's single engine, retrying transient
// failures with exponential backoff up to the stage's retry budget.
func (o *Orchestrator) runSequential(ctx context.Context, logger hclog.Logger, run *AnalysisRun, stage profile.Stage, adapter engine.Adapter, result *StageResult) {
	var stageFindings []findings.Finding

	op := func() error {
		result.Attempts++
		fs, err := o.runEngine(ctx, logger, run, stage, adapter)
		if err != nil {
			var unsupported *errors.UnsupportedProjectError
			if goerrors.As(err, &unsupported) {
				return backoff.Permanent(err)
			}
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			logger.Warn("engine attempt failed", "stage", stage.Name, "engine", adapter.Name(),
				"attempt", result.Attempts, "error", err)
			return err
		}
		stageFindings = fs
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(stage.Retries)), ctx)
	err := backoff.Retry(op, policy)

	engineResult := EngineResult{Engine: adapter.Name()}
	switch {
	case err == nil:
		engineResult.Status = OutcomeCompleted
		engineResult.Findings = len(stageFindings)
		result.Status = OutcomeCompleted
		result.Findings = stageFindings
	case isUnsupported(err):
		engineResult.Status = OutcomeSkipped
		engineResult.Error = err.Error()
		result.Status = OutcomeSkipped
		result.Error = err.Error()
	default:
		engineResult.Status = OutcomeFailed
		engineResult.Error = err.Error()
		result.Status = OutcomeFailed
		result.Error = err.Error()
	}
	result.Engines = []EngineResult{engineResult}
}

// runParallel fans the stage's engines out under the stage parallelism limit.
// The stage completes when at least one engine succeeds; engines that cannot
// process the project are skipped, not failed.
func (o *Orchestrator) runParallel(ctx context.Context, logger hclog.Logger, run *AnalysisRun, stage profile.Stage, adapters []engine.Adapter, result *StageResult) {
	var (
		mu            sync.Mutex
		stageFindings []findings.Finding
	)
	engineResults := make([]EngineResult, len(adapters))

	var g errgroup.Group
	if stage.Parallelism > 0 {
		g.SetLimit(stage.Parallelism)
	}

	for i, adapter := range adapters {
		i, adapter := i, adapter
		g.Go(func() error {
			fs, err := o.runEngine(ctx, logger, run, stage, adapter)

			er := EngineResult{Engine: adapter.Name()}
			switch {
			case err == nil:
				er.Status = OutcomeCompleted
				er.Findings = len(fs)
			case isUnsupported(err):
				er.Status = OutcomeSkipped
				er.Error = err.Error()
			default:
				er.Status = OutcomeFailed
				er.Error = err.Error()
				logger.Warn("engine failed in parallel stage", "stage", stage.Name,
					"engine", adapter.Name(), "error", err)
			}

			mu.Lock()
			engineResults[i] = er
			stageFindings = append(stageFindings, fs...)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	result.Attempts = 1
	result.Engines = engineResults

	completed, failed := 0, 0
	var firstError string
	for _, er := range engineResults {
		switch er.Status {
		case OutcomeCompleted:
			completed++
		case OutcomeFailed:
			failed++
			if firstError == "" {
				firstError = er.Error
			}
		}
	}

	switch {
	case completed > 0:
		result.Status = OutcomeCompleted
		result.Findings = stageFindings
		if failed > 0 {
			result.Error = fmt.Sprintf("%d of %d engines failed: %s", failed, len(adapters), firstError)
		}
	case failed == 0:
		result.Status = OutcomeSkipped
		result.Error = "no engine supports this project"
	default:
		result.Status = OutcomeFailed
		result.Error = firstError
	}
}

// runEngine drives one adapter through prepare, execute and parse, then
// normalizes the raw findings.
func (o *Orchestrator) runEngine(ctx context.Context, logger hclog.Logger, run *AnalysisRun, stage profile.Stage, adapter engine.Adapter) ([]findings.Finding, error) {
	outputDir := filepath.Join(o.workDir, run.RunID, stage.Name, adapter.Name())
	if err := files.CreateFolderIfNotExists(outputDir); err != nil {
		return nil, errors.NewEngineError(adapter.Name(), errors.EngineErrorInvocation, err)
	}

	settings := engine.StageSettings{
		Stage:     stage.Name,
		Timeout:   stage.Timeout,
		Seed:      engineSeed(run.Seed, run.RunID, stage.Name, adapter.Name()),
		OutputDir: outputDir,
	}

	spec, err := adapter.Prepare(run.Snapshot, settings)
	if err != nil {
		return nil, err
	}

	o.publishStage(run, stage.Name, adapter.Name(), events.StageStarted, "")

	execCtx, cancel := context.WithTimeout(ctx, stage.Timeout+executionGrace)
	defer cancel()

	out, err := adapter.Execute(execCtx, spec)
	if err != nil {
		o.publishStage(run, stage.Name, adapter.Name(), events.StageFailed, err.Error())
		return nil, err
	}

	raws, err := adapter.Parse(out)
	if err != nil {
		o.publishStage(run, stage.Name, adapter.Name(), events.StageFailed, err.Error())
		return nil, err
	}

	normalized := o.normalizer.Normalize(adapter, raws)
	logger.Debug("engine finished", "stage", stage.Name, "engine", adapter.Name(), "findings", len(normalized))
	o.publishStage(run, stage.Name, adapter.Name(), events.StageCompleted, "")
	return normalized, nil
}

func isUnsupported(err error) bool {
	var unsupported *errors.UnsupportedProjectError
	return goerrors.As(err, &unsupported)
}

func stageError(stage string, result StageResult) error {
	return fmt.Errorf("stage %q failed: %s", stage, result.Error)
}
