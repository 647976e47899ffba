package profile

import (
	"time"

	"github.com/solguard-dev/solguard/pkg/shared/config"
)

// ConcurrencyPolicy controls how a stage invokes its adapters.
type ConcurrencyPolicy string

const (
	PolicySequential ConcurrencyPolicy = "sequential"
	PolicyParallel   ConcurrencyPolicy = "parallel"
)

// Stage is a named unit of work bound to one or more engines, a concurrency
// policy, a timeout and a retry budget. Stages are static per profile.
type Stage struct {
	Name        string            `yaml:"name"`
	Engines     []string          `yaml:"engines"`
	Policy      ConcurrencyPolicy `yaml:"policy"`
	Timeout     time.Duration     `yaml:"timeout"`
	Retries     int               `yaml:"retries"`
	Parallelism int               `yaml:"parallelism"`
}

// Profile is a validated set of stage definitions.
type Profile struct {
	Name   string  `yaml:"name"`
	Stages []Stage `yaml:"stages"`
}

const (
	ProfileQuick         = "quick"
	ProfileStandard      = "standard"
	ProfileComprehensive = "comprehensive"
	ProfileCustom        = "custom"
)

// Stage and engine timeout ceilings mirror the operational limits of the
// wrapped tools: slither is fast, mythril explores paths for minutes, echidna
// campaigns run the longest.
func builtins() map[string]*Profile {
	static := Stage{
		Name:    "static_analysis",
		Engines: []string{"slither"},
		Policy:  PolicySequential,
		Timeout: 300 * time.Second,
		Retries: 1,
	}
	symbolic := Stage{
		Name:    "symbolic_execution",
		Engines: []string{"mythril"},
		Policy:  PolicySequential,
		Timeout: 600 * time.Second,
		Retries: 2,
	}
	dynamic := Stage{
		Name:        "dynamic_analysis",
		Engines:     []string{"echidna", "ecorisk"},
		Policy:      PolicyParallel,
		Timeout:     1800 * time.Second,
		Retries:     0,
		Parallelism: 2,
	}

	return map[string]*Profile{
		ProfileQuick: {
			Name:   ProfileQuick,
			Stages: []Stage{static},
		},
		ProfileStandard: {
			Name:   ProfileStandard,
			Stages: []Stage{static, symbolic},
		},
		ProfileComprehensive: {
			Name:   ProfileComprehensive,
			Stages: []Stage{static, symbolic, dynamic},
		},
	}
}

// Load resolves a built-in profile by name, or loads a custom profile from
// customPath when name is "custom".
func Load(name, customPath string) (*Profile, error) {
	if name == ProfileCustom {
		return loadCustom(customPath)
	}
	p, ok := builtins()[name]
	if !ok {
		return nil, unknownProfileError(name)
	}
	return p, nil
}

type customProfileFile struct {
	Name   string        `yaml:"name"`
	Stages []customStage `yaml:"stages"`
}

type customStage struct {
	Name        string   `yaml:"name"`
	Engines     []string `yaml:"engines"`
	Policy      string   `yaml:"policy"`
	TimeoutSecs int      `yaml:"timeout_seconds"`
	Retries     int      `yaml:"retries"`
	Parallelism int      `yaml:"parallelism"`
}

func loadCustom(path string) (*Profile, error) {
	var raw customProfileFile
	if err := config.LoadYAML(path, &raw); err != nil {
		return nil, err
	}

	p := &Profile{Name: ProfileCustom}
	if raw.Name != "" {
		p.Name = raw.Name
	}
	for _, s := range raw.Stages {
		policy := ConcurrencyPolicy(s.Policy)
		if s.Policy == "" {
			policy = PolicySequential
		}
		p.Stages = append(p.Stages, Stage{
			Name:        s.Name,
			Engines:     s.Engines,
			Policy:      policy,
			Timeout:     time.Duration(s.TimeoutSecs) * time.Second,
			Retries:     s.Retries,
			Parallelism: s.Parallelism,
		})
	}

	if err := Validate(p); err != nil {
		return nil, err
	}
	return p, nil
}
