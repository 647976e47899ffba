package mythril

import (
	goerrors "errors"
	"strconv"

	"github.com/solguard-dev/solguard/internal/engine"
	"github.com/solguard-dev/solguard/pkg/shared/errors"
)

func validateSpec(spec engine.ExecutionSpec) error {
	if len(spec.Command) == 0 || spec.Command[0] != "myth" {
		return errors.NewEngineError(engineName, errors.EngineErrorInvocation,
			goerrors.New("execution spec was not prepared by the mythril adapter"))
	}
	return nil
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
