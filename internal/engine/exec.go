package engine

import (
	"bytes"
	"context"
	goerrors "errors"
	"io"
	"os/exec"

	"github.com/hashicorp/go-hclog"

	"github.com/solguard-dev/solguard/pkg/shared/errors"
)

// RunTool executes the prepared command under the spec's wall-clock quota,
// streaming tool output to the logger. It returns the combined output and the
// tool's exit code; interpreting non-zero exit codes is the adapter's job,
// since several tools signal "findings present" through the exit status.
// Infrastructure failures come back as EngineError.
func RunTool(ctx context.Context, logger hclog.Logger, spec ExecutionSpec) ([]byte, int, error) {
	if len(spec.Command) == 0 {
		return nil, 0, errors.NewEngineError(spec.Engine, errors.EngineErrorInvocation, goerrors.New("empty command"))
	}

	if spec.Limits.WallClock > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, spec.Limits.WallClock)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, spec.Command[0], spec.Command[1:]...)
	cmd.Dir = spec.WorkDir
	if spec.Env != nil {
		cmd.Env = spec.Env
	}
	logger.Debug("executing tool", "engine", spec.Engine, "cmd", cmd.Args, "workdir", spec.WorkDir)

	var stdBuffer bytes.Buffer
	mw := io.MultiWriter(logger.StandardWriter(&hclog.StandardLoggerOptions{
		InferLevels: true,
	}), &stdBuffer)
	cmd.Stdout = mw
	cmd.Stderr = mw

	err := cmd.Run()
	output := stdBuffer.Bytes()

	if ctxErr := ctx.Err(); ctxErr != nil {
		kind := errors.EngineErrorCancelled
		if goerrors.Is(ctxErr, context.DeadlineExceeded) {
			kind = errors.EngineErrorTimeout
		}
		return output, -1, errors.NewEngineError(spec.Engine, kind, ctxErr)
	}

	if err != nil {
		var exitErr *exec.ExitError
		if goerrors.As(err, &exitErr) {
			return output, exitErr.ExitCode(), nil
		}
		return output, -1, errors.NewEngineError(spec.Engine, errors.EngineErrorInvocation, err)
	}

	return output, 0, nil
}
