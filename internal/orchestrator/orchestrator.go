package orchestrator

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/semaphore"

	"github.com/solguard-dev/solguard/internal/checkpoint"
	"github.com/solguard-dev/solguard/internal/consensus"
	"github.com/solguard-dev/solguard/internal/engine"
	"github.com/solguard-dev/solguard/internal/events"
	"github.com/solguard-dev/solguard/internal/normalize"
	"github.com/solguard-dev/solguard/internal/profile"
	"github.com/solguard-dev/solguard/internal/sink"
	"github.com/solguard-dev/solguard/internal/snapshot"
	"github.com/solguard-dev/solguard/pkg/shared/errors"
)

// Options wires the orchestrator's collaborators.
type Options struct {
	Registry  *engine.Registry
	Store     checkpoint.Store
	Publisher events.Publisher
	Sink      sink.Sink
	// TenantConcurrency caps concurrently executing runs per tenant.
	// Zero means 1.
	TenantConcurrency int64
	// WorkDir hosts per-run engine output directories. Defaults to the
	// system temp dir.
	WorkDir   string
	Consensus consensus.Options
}

// Request describes one analysis to run.
type Request struct {
	RunID    string
	TenantID string
	Profile  *profile.Profile
	Snapshot *snapshot.Snapshot
	// Seed makes the run reproducible: runs with the same seed, snapshot and
	// profile derive identical per-engine seeds. Zero means seed off the run ID.
	Seed int64
}

// Orchestrator drives analysis runs through their stage pipeline, checkpoints
// progress after every stage and hands completed runs to the sinks.
type Orchestrator struct {
	logger     hclog.Logger
	registry   *engine.Registry
	store      checkpoint.Store
	publisher  events.Publisher
	sink       sink.Sink
	normalizer *normalize.Normalizer
	consensus  *consensus.Engine

	workDir     string
	tenantLimit int64

	mu      sync.Mutex
	tenants map[string]*semaphore.Weighted
	jobs    map[string]*job

	eventMu sync.Mutex
}

type job struct {
	run    *AnalysisRun
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func New(logger hclog.Logger, opts Options) *Orchestrator {
	limit := opts.TenantConcurrency
	if limit <= 0 {
		limit = 1
	}
	workDir := opts.WorkDir
	if workDir == "" {
		workDir = filepath.Join(os.TempDir(), "solguard")
	}
	return &Orchestrator{
		logger:      logger.Named("orchestrator"),
		registry:    opts.Registry,
		store:       opts.Store,
		publisher:   opts.Publisher,
		sink:        opts.Sink,
		normalizer:  normalize.New(logger.Named("normalize")),
		consensus:   consensus.New(logger.Named("consensus"), opts.Consensus),
		workDir:     workDir,
		tenantLimit: limit,
		tenants:     make(map[string]*semaphore.Weighted),
		jobs:        make(map[string]*job),
	}
}

// Start validates the request and launches the run. It returns the run ID
// immediately; Wait blocks for the outcome.
func (o *Orchestrator) Start(ctx context.Context, req Request) (string, error) {
	if req.Profile == nil {
		return "", errors.NewConfigurationError("run request carries no profile")
	}
	if err := profile.Validate(req.Profile); err != nil {
		return "", err
	}
	if req.Snapshot == nil {
		return "", errors.NewConfigurationError("run request carries no project snapshot")
	}
	if _, err := o.resolveAllEngines(req.Profile); err != nil {
		return "", err
	}

	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	run := &AnalysisRun{
		RunID:     runID,
		TenantID:  req.TenantID,
		Profile:   *req.Profile,
		Snapshot:  req.Snapshot,
		Seed:      req.Seed,
		State:     StatePending,
		StartedAt: time.Now().UTC(),
	}
	return o.launch(ctx, run)
}

// Resume restarts a run from its latest checkpoint. Stages sealed by a
// checkpoint are not re-executed. Resuming a completed run is a no-op that
// returns the run ID unchanged.
func (o *Orchestrator) Resume(ctx context.Context, runID string, snap *snapshot.Snapshot) (string, error) {
	cp, err := o.store.GetLatest(runID)
	if err != nil {
		return "", err
	}

	var run AnalysisRun
	if err := json.Unmarshal(cp.Payload, &run); err != nil {
		return "", errors.NewConfigurationError("checkpoint for run %q is unreadable: %v", runID, err)
	}

	if run.State == StateCompleted {
		o.logger.Info("run already completed, resume is a no-op", "runID", runID)
		o.mu.Lock()
		j := &job{run: &run, done: make(chan struct{})}
		close(j.done)
		o.jobs[runID] = j
		o.mu.Unlock()
		return runID, nil
	}

	if snap != nil {
		run.Snapshot = snap
	}
	// failed attempts stay in the stage log for audit; the NextStage cursor
	// alone decides which stages re-run
	run.Findings = nil
	run.CheckpointSeq = cp.Seq
	run.State = StatePending
	run.Error = ""

	o.logger.Info("resuming run", "runID", runID, "nextStage", run.NextStage)
	return o.launch(ctx, &run)
}

// Cancel requests cooperative cancellation of a running run.
func (o *Orchestrator) Cancel(runID string) error {
	o.mu.Lock()
	j, ok := o.jobs[runID]
	o.mu.Unlock()

	if !ok {
		return errors.NewRunStateError(runID, "unknown", "cancel")
	}
	// a closed done channel means the run already reached a terminal state
	select {
	case <-j.done:
		return errors.NewRunStateError(runID, string(j.run.State), "cancel")
	default:
	}
	j.cancel()
	return nil
}

// Wait blocks until the run reaches a terminal state and returns it.
func (o *Orchestrator) Wait(runID string) (*AnalysisRun, error) {
	o.mu.Lock()
	j, ok := o.jobs[runID]
	o.mu.Unlock()

	if !ok {
		return nil, errors.NewRunStateError(runID, "unknown", "wait")
	}
	<-j.done
	return j.run, j.err
}

func (o *Orchestrator) launch(ctx context.Context, run *AnalysisRun) (string, error) {
	runCtx, cancel := context.WithCancel(ctx)
	j := &job{run: run, cancel: cancel, done: make(chan struct{})}

	o.mu.Lock()
	if existing, ok := o.jobs[run.RunID]; ok {
		select {
		case <-existing.done:
		default:
			o.mu.Unlock()
			cancel()
			return "", errors.NewRunStateError(run.RunID, "active", "start")
		}
	}
	o.jobs[run.RunID] = j
	o.mu.Unlock()

	go func() {
		defer close(j.done)
		defer cancel()
		j.err = o.execute(runCtx, run)
	}()

	return run.RunID, nil
}

func (o *Orchestrator) tenantSemaphore(tenantID string) *semaphore.Weighted {
	o.mu.Lock()
	defer o.mu.Unlock()

	sem, ok := o.tenants[tenantID]
	if !ok {
		sem = semaphore.NewWeighted(o.tenantLimit)
		o.tenants[tenantID] = sem
	}
	return sem
}

func (o *Orchestrator) resolveAllEngines(p *profile.Profile) ([]engine.Adapter, error) {
	var names []string
	for _, stage := range p.Stages {
		names = append(names, stage.Engines...)
	}
	return o.registry.Resolve(names)
}
