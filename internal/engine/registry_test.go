package engine

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/hashicorp/go-hclog"

	"github.com/solguard-dev/solguard/internal/findings"
	"github.com/solguard-dev/solguard/internal/snapshot"
	"github.com/solguard-dev/solguard/pkg/shared/errors"
)

type stubAdapter struct {
	name    string
	version string
}

func (s *stubAdapter) Name() string                                 { return s.name }
func (s *stubAdapter) Version() string                              { return s.version }
func (s *stubAdapter) SeverityMap() map[string]findings.Severity    { return nil }
func (s *stubAdapter) RuleCategories() map[string]findings.Category { return nil }
func (s *stubAdapter) DefaultConfidence() float64                   { return 0.5 }

func (s *stubAdapter) Prepare(*snapshot.Snapshot, StageSettings) (ExecutionSpec, error) {
	return ExecutionSpec{Engine: s.name}, nil
}

func (s *stubAdapter) Execute(context.Context, ExecutionSpec) (RawOutput, error) {
	return RawOutput{Engine: s.name}, nil
}

func (s *stubAdapter) Parse(RawOutput) ([]findings.RawFinding, error) {
	return nil, nil
}

func TestRegistryResolve(t *testing.T) {
	r := NewRegistry(hclog.NewNullLogger())
	r.Register(&stubAdapter{name: "slither", version: "0.10.0"})
	r.Register(&stubAdapter{name: "mythril", version: "0.24.8"})

	adapters, err := r.Resolve([]string{"slither", "mythril"})
	if err != nil {
		t.Fatal(err)
	}
	if len(adapters) != 2 {
		t.Fatalf("expected 2 adapters, got %d", len(adapters))
	}
	if adapters[0].Name() != "slither" || adapters[1].Name() != "mythril" {
		t.Fatalf("resolve order must follow request order")
	}
}

func TestRegistryResolveMissingEngine(t *testing.T) {
	r := NewRegistry(hclog.NewNullLogger())
	r.Register(&stubAdapter{name: "slither", version: "0.10.0"})

	_, err := r.Resolve([]string{"slither", "echidna"})
	if err == nil {
		t.Fatal("expected error for unregistered engine")
	}
	var cfgErr *errors.ConfigurationError
	if !stderrors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %T", err)
	}
}

func TestRegistryVersions(t *testing.T) {
	r := NewRegistry(hclog.NewNullLogger())
	r.Register(&stubAdapter{name: "slither", version: "0.10.0"})
	r.Register(&stubAdapter{name: "echidna", version: "2.2.3"})

	versions := r.Versions()
	if versions["slither"] != "0.10.0" || versions["echidna"] != "2.2.3" {
		t.Fatalf("unexpected versions map: %v", versions)
	}
	names := r.Names()
	if len(names) != 2 || names[0] != "echidna" || names[1] != "slither" {
		t.Fatalf("expected sorted names, got %v", names)
	}
}
