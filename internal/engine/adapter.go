package engine

import (
	"context"
	"time"

	"github.com/solguard-dev/solguard/internal/findings"
	"github.com/solguard-dev/solguard/internal/snapshot"
)

// ResourceLimits are the per-invocation quotas the sandbox applies around a
// tool process. A zero value means "no explicit limit" for that resource.
type ResourceLimits struct {
	CPUSeconds int
	MemoryMB   int
	WallClock  time.Duration
}

// NetworkPolicy is deny-by-default: an empty allowlist means no network access.
type NetworkPolicy struct {
	AllowHosts []string
}

// ExecutionSpec is the prepared sandbox invocation for one engine run.
// Produced by Prepare, consumed by Execute; it carries everything the sandbox
// needs and nothing about the engine's internals.
type ExecutionSpec struct {
	Engine     string
	Command    []string
	WorkDir    string
	Env        []string
	OutputPath string
	Limits     ResourceLimits
	Network    NetworkPolicy
	Seed       int64
}

// RawOutput is the opaque tool-native output of one execution.
type RawOutput struct {
	Engine string
	Format string
	Path   string
	Data   []byte
}

// StageSettings are the per-stage knobs the orchestrator passes to Prepare.
// Seed is the run-scoped deterministic seed for this (stage, engine) pair.
type StageSettings struct {
	Stage     string
	Timeout   time.Duration
	Seed      int64
	OutputDir string
	ExtraArgs []string
}

// Adapter is the uniform contract wrapping one external analysis tool.
//
// Prepare is pure: it computes the sandbox invocation without side effects
// beyond laying out the output directory, and fails with
// UnsupportedProjectError when the adapter cannot handle the project's
// framework/compiler combination. Execute runs the tool under the prepared
// constraints and must be cancellable; a tool exiting with "vulnerabilities
// found" is success, only infrastructure failures are EngineError. Parse is a
// deterministic, pure transformation of the tool-native output; unparseable
// records are dropped with a warning, never merged into valid findings.
type Adapter interface {
	Name() string
	Version() string
	SeverityMap() map[string]findings.Severity
	RuleCategories() map[string]findings.Category
	DefaultConfidence() float64
	Prepare(snap *snapshot.Snapshot, settings StageSettings) (ExecutionSpec, error)
	Execute(ctx context.Context, spec ExecutionSpec) (RawOutput, error)
	Parse(out RawOutput) ([]findings.RawFinding, error)
}
