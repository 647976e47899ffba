package ecorisk

import (
	goerrors "errors"

	"github.com/solguard-dev/solguard/internal/engine"
	"github.com/solguard-dev/solguard/pkg/shared/errors"
)

func validateSpec(spec engine.ExecutionSpec) error {
	if len(spec.Command) < 2 || spec.Command[0] != "ecorisk" || spec.Command[1] != "scan" {
		return errors.NewEngineError(engineName, errors.EngineErrorInvocation,
			goerrors.New("execution spec was not prepared by the ecorisk adapter"))
	}
	if spec.OutputPath == "" {
		return errors.NewEngineError(engineName, errors.EngineErrorInvocation,
			goerrors.New("execution spec has no output path"))
	}
	return nil
}
