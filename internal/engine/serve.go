package engine

import (
	"context"
	"time"

	"github.com/solguard-dev/solguard/internal/snapshot"
	"github.com/solguard-dev/solguard/pkg/shared"
)

// Server exposes an in-process Adapter over the wire-level Engine contract so
// the same adapter implementations back both the embedded registry and the
// plugin binaries under plugins/.
type Server struct {
	Adapter Adapter
}

func NewServer(a Adapter) *Server {
	return &Server{Adapter: a}
}

func (s *Server) Describe() (shared.EngineDescriptor, error) {
	sevMap := make(map[string]string)
	for k, v := range s.Adapter.SeverityMap() {
		sevMap[k] = string(v)
	}
	catMap := make(map[string]string)
	for k, v := range s.Adapter.RuleCategories() {
		catMap[k] = string(v)
	}
	return shared.EngineDescriptor{
		Name:              s.Adapter.Name(),
		Version:           s.Adapter.Version(),
		SeverityMap:       sevMap,
		RuleCategories:    catMap,
		DefaultConfidence: s.Adapter.DefaultConfidence(),
	}, nil
}

func (s *Server) Prepare(args shared.EnginePrepareRequest) (shared.EngineExecutionSpec, error) {
	snap := &snapshot.Snapshot{
		Root:            args.ProjectRoot,
		Files:           args.SourceFiles,
		Framework:       snapshot.Framework(args.Framework),
		CompilerVersion: args.CompilerVersion,
	}
	spec, err := s.Adapter.Prepare(snap, StageSettings{
		Stage:     args.Stage,
		Timeout:   time.Duration(args.TimeoutSeconds) * time.Second,
		Seed:      args.Seed,
		OutputDir: args.OutputDir,
		ExtraArgs: args.ExtraArgs,
	})
	if err != nil {
		return shared.EngineExecutionSpec{}, err
	}
	return specToWire(spec), nil
}

func (s *Server) Execute(wire shared.EngineExecutionSpec) (shared.EngineRawOutput, error) {
	out, err := s.Adapter.Execute(context.Background(), specFromWire(wire))
	if err != nil {
		return shared.EngineRawOutput{}, err
	}
	return shared.EngineRawOutput{
		Engine: out.Engine,
		Format: out.Format,
		Path:   out.Path,
		Data:   out.Data,
	}, nil
}

func (s *Server) Parse(wire shared.EngineRawOutput) ([]shared.EngineRawFinding, error) {
	raws, err := s.Adapter.Parse(RawOutput{
		Engine: wire.Engine,
		Format: wire.Format,
		Path:   wire.Path,
		Data:   wire.Data,
	})
	if err != nil {
		return nil, err
	}

	out := make([]shared.EngineRawFinding, 0, len(raws))
	for _, r := range raws {
		out = append(out, shared.EngineRawFinding{
			Engine:      r.Engine,
			RuleID:      r.RuleID,
			Severity:    r.Severity,
			Title:       r.Title,
			Description: r.Description,
			FilePath:    r.Span.FilePath,
			StartLine:   r.Span.StartLine,
			StartColumn: r.Span.StartColumn,
			EndLine:     r.Span.EndLine,
			EndColumn:   r.Span.EndColumn,
			Confidence:  r.Confidence,
		})
	}
	return out, nil
}
