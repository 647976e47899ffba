package echidna

import (
	goerrors "errors"
	"strconv"

	"github.com/solguard-dev/solguard/internal/engine"
	"github.com/solguard-dev/solguard/pkg/shared/errors"
)

func validateSpec(spec engine.ExecutionSpec) error {
	if len(spec.Command) == 0 || spec.Command[0] != "echidna" {
		return errors.NewEngineError(engineName, errors.EngineErrorInvocation,
			goerrors.New("execution spec was not prepared by the echidna adapter"))
	}
	hasSeed := false
	for _, arg := range spec.Command {
		if arg == "--seed" {
			hasSeed = true
		}
	}
	if !hasSeed {
		return errors.NewEngineError(engineName, errors.EngineErrorInvocation,
			goerrors.New("execution spec carries no fuzzing seed"))
	}
	return nil
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func itoa64(n int64) string {
	return strconv.FormatInt(n, 10)
}
