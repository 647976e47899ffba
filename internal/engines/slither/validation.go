package slither

import (
	goerrors "errors"
	"strings"

	"github.com/solguard-dev/solguard/internal/engine"
	"github.com/solguard-dev/solguard/pkg/shared/errors"
)

func validateSpec(spec engine.ExecutionSpec) error {
	if len(spec.Command) == 0 || spec.Command[0] != "slither" {
		return errors.NewEngineError(engineName, errors.EngineErrorInvocation,
			goerrors.New("execution spec was not prepared by the slither adapter"))
	}
	if spec.OutputPath == "" {
		return errors.NewEngineError(engineName, errors.EngineErrorInvocation,
			goerrors.New("execution spec has no output path"))
	}
	return nil
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return strings.TrimSpace(s)
}
