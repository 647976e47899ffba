package engine

import (
	"context"
	"time"

	"github.com/solguard-dev/solguard/internal/findings"
	"github.com/solguard-dev/solguard/internal/snapshot"
	"github.com/solguard-dev/solguard/pkg/shared"
	"github.com/solguard-dev/solguard/pkg/shared/errors"
)

// Remote adapts an out-of-process engine plugin to the in-process Adapter
// interface. The descriptor is fetched once at construction; the blocking RPC
// calls are raced against the context so cancellation still works even though
// net/rpc cannot propagate it to the plugin (the plugin process is killed by
// its client when the run tears down).
type Remote struct {
	eng  shared.Engine
	desc shared.EngineDescriptor
}

func NewRemote(eng shared.Engine) (*Remote, error) {
	desc, err := eng.Describe()
	if err != nil {
		return nil, err
	}
	return &Remote{eng: eng, desc: desc}, nil
}

func (r *Remote) Name() string    { return r.desc.Name }
func (r *Remote) Version() string { return r.desc.Version }

func (r *Remote) SeverityMap() map[string]findings.Severity {
	m := make(map[string]findings.Severity, len(r.desc.SeverityMap))
	for k, v := range r.desc.SeverityMap {
		if sev, ok := findings.ParseSeverity(v); ok {
			m[k] = sev
		}
	}
	return m
}

func (r *Remote) RuleCategories() map[string]findings.Category {
	m := make(map[string]findings.Category, len(r.desc.RuleCategories))
	for k, v := range r.desc.RuleCategories {
		m[k] = findings.ParseCategory(v)
	}
	return m
}

func (r *Remote) DefaultConfidence() float64 {
	return r.desc.DefaultConfidence
}

func (r *Remote) Prepare(snap *snapshot.Snapshot, settings StageSettings) (ExecutionSpec, error) {
	wire, err := r.eng.Prepare(shared.EnginePrepareRequest{
		ProjectRoot:     snap.Root,
		SourceFiles:     snap.Files,
		Framework:       string(snap.Framework),
		CompilerVersion: snap.CompilerVersion,
		Stage:           settings.Stage,
		OutputDir:       settings.OutputDir,
		Seed:            settings.Seed,
		TimeoutSeconds:  int(settings.Timeout.Seconds()),
		ExtraArgs:       settings.ExtraArgs,
	})
	if err != nil {
		return ExecutionSpec{}, err
	}
	return specFromWire(wire), nil
}

func (r *Remote) Execute(ctx context.Context, spec ExecutionSpec) (RawOutput, error) {
	type result struct {
		out shared.EngineRawOutput
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := r.eng.Execute(specToWire(spec))
		done <- result{out: out, err: err}
	}()

	select {
	case <-ctx.Done():
		return RawOutput{}, errors.NewEngineError(r.desc.Name, errors.EngineErrorCancelled, ctx.Err())
	case res := <-done:
		if res.err != nil {
			return RawOutput{}, errors.NewEngineError(r.desc.Name, errors.EngineErrorCrash, res.err)
		}
		return RawOutput{
			Engine: res.out.Engine,
			Format: res.out.Format,
			Path:   res.out.Path,
			Data:   res.out.Data,
		}, nil
	}
}

func (r *Remote) Parse(out RawOutput) ([]findings.RawFinding, error) {
	wire, err := r.eng.Parse(shared.EngineRawOutput{
		Engine: out.Engine,
		Format: out.Format,
		Path:   out.Path,
		Data:   out.Data,
	})
	if err != nil {
		return nil, err
	}

	raws := make([]findings.RawFinding, 0, len(wire))
	for _, w := range wire {
		raws = append(raws, findings.RawFinding{
			Engine:      w.Engine,
			RuleID:      w.RuleID,
			Severity:    w.Severity,
			Title:       w.Title,
			Description: w.Description,
			Span: findings.CodeSpan{
				FilePath:    w.FilePath,
				StartLine:   w.StartLine,
				StartColumn: w.StartColumn,
				EndLine:     w.EndLine,
				EndColumn:   w.EndColumn,
			},
			Confidence: w.Confidence,
		})
	}
	return raws, nil
}

func specFromWire(w shared.EngineExecutionSpec) ExecutionSpec {
	return ExecutionSpec{
		Engine:     w.Engine,
		Command:    w.Command,
		WorkDir:    w.WorkDir,
		Env:        w.Env,
		OutputPath: w.OutputPath,
		Limits: ResourceLimits{
			CPUSeconds: w.CPUSeconds,
			MemoryMB:   w.MemoryMB,
			WallClock:  wallClock(w.WallClockSeconds),
		},
		Network: NetworkPolicy{AllowHosts: w.AllowHosts},
	}
}

func wallClock(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

func specToWire(s ExecutionSpec) shared.EngineExecutionSpec {
	return shared.EngineExecutionSpec{
		Engine:           s.Engine,
		Command:          s.Command,
		WorkDir:          s.WorkDir,
		Env:              s.Env,
		OutputPath:       s.OutputPath,
		CPUSeconds:       s.Limits.CPUSeconds,
		MemoryMB:         s.Limits.MemoryMB,
		WallClockSeconds: int(s.Limits.WallClock.Seconds()),
		AllowHosts:       s.Network.AllowHosts,
	}
}
