package profile

import (
	"github.com/solguard-dev/solguard/pkg/shared/errors"
)

func unknownProfileError(name string) error {
	return errors.NewConfigurationError("unknown profile %q", name)
}

// Validate checks the structural invariants of a profile: at least one stage,
// unique stage names, engines bound to every stage, positive timeouts and a
// known concurrency policy.
func Validate(p *Profile) error {
	if p == nil || len(p.Stages) == 0 {
		return errors.NewConfigurationError("profile has no stages")
	}

	seen := make(map[string]struct{}, len(p.Stages))
	for _, s := range p.Stages {
		if s.Name == "" {
			return errors.NewConfigurationError("stage with empty name in profile %q", p.Name)
		}
		if _, dup := seen[s.Name]; dup {
			return errors.NewConfigurationError("duplicate stage %q in profile %q", s.Name, p.Name)
		}
		seen[s.Name] = struct{}{}

		if len(s.Engines) == 0 {
			return errors.NewConfigurationError("stage %q binds no engines", s.Name)
		}
		if s.Timeout <= 0 {
			return errors.NewConfigurationError("stage %q has no timeout", s.Name)
		}
		if s.Retries < 0 {
			return errors.NewConfigurationError("stage %q has a negative retry budget", s.Name)
		}
		switch s.Policy {
		case PolicySequential:
			if len(s.Engines) != 1 {
				return errors.NewConfigurationError("sequential stage %q must bind exactly one engine", s.Name)
			}
		case PolicyParallel:
			if s.Parallelism < 0 {
				return errors.NewConfigurationError("stage %q has a negative parallelism cap", s.Name)
			}
		default:
			return errors.NewConfigurationError("stage %q has unknown policy %q", s.Name, s.Policy)
		}
	}
	return nil
}
