package profile

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadBuiltinProfiles(t *testing.T) {
	tests := []struct {
		name   string
		stages []string
	}{
		{ProfileQuick, []string{"static_analysis"}},
		{ProfileStandard, []string{"static_analysis", "symbolic_execution"}},
		{ProfileComprehensive, []string{"static_analysis", "symbolic_execution", "dynamic_analysis"}},
	}

	for _, tt := range tests {
		p, err := Load(tt.name, "")
		if err != nil {
			t.Fatalf("profile %q: %v", tt.name, err)
		}
		if err := Validate(p); err != nil {
			t.Fatalf("profile %q invalid: %v", tt.name, err)
		}
		if len(p.Stages) != len(tt.stages) {
			t.Fatalf("profile %q: expected %d stages, got %d", tt.name, len(tt.stages), len(p.Stages))
		}
		for i, name := range tt.stages {
			if p.Stages[i].Name != name {
				t.Fatalf("profile %q: expected stage %q at %d, got %q", tt.name, name, i, p.Stages[i].Name)
			}
		}
	}
}

func TestLoadUnknownProfile(t *testing.T) {
	if _, err := Load("paranoid", ""); err == nil {
		t.Fatal("expected error for unknown profile")
	}
}

func TestLoadCustomProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yml")
	content := `name: audit
stages:
  - name: static_analysis
    engines: [slither]
    timeout_seconds: 120
    retries: 1
  - name: deep
    engines: [mythril, echidna]
    policy: parallel
    timeout_seconds: 900
    parallelism: 2
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := Load(ProfileCustom, path)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "audit" {
		t.Fatalf("expected name audit, got %q", p.Name)
	}
	if p.Stages[0].Policy != PolicySequential {
		t.Fatalf("expected default sequential policy, got %q", p.Stages[0].Policy)
	}
	if p.Stages[1].Timeout != 900*time.Second {
		t.Fatalf("expected 900s timeout, got %v", p.Stages[1].Timeout)
	}
}

func TestValidateRejectsBrokenStages(t *testing.T) {
	tests := []struct {
		name  string
		stage Stage
	}{
		{"no engines", Stage{Name: "s", Policy: PolicySequential, Timeout: time.Second}},
		{"no timeout", Stage{Name: "s", Engines: []string{"slither"}, Policy: PolicySequential}},
		{"bad policy", Stage{Name: "s", Engines: []string{"slither"}, Policy: "fanout", Timeout: time.Second}},
		{"sequential multi-engine", Stage{Name: "s", Engines: []string{"a", "b"}, Policy: PolicySequential, Timeout: time.Second}},
	}

	for _, tt := range tests {
		p := &Profile{Name: "x", Stages: []Stage{tt.stage}}
		if err := Validate(p); err == nil {
			t.Fatalf("%s: expected validation error", tt.name)
		}
	}
}
