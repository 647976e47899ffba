package errors

import "fmt"

// ConfigurationError reports an invalid profile, stage or adapter binding.
// It is fatal and surfaced before any execution starts.
type ConfigurationError struct {
	Detail string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Detail)
}

// NewConfigurationError creates a ConfigurationError from a format string.
func NewConfigurationError(format string, args ...interface{}) error {
	return &ConfigurationError{Detail: fmt.Sprintf(format, args...)}
}

// UnsupportedProjectError reports that an adapter cannot process the project's
// framework/compiler combination. Non-fatal to the run when the stage's fan-out
// policy allows partial success.
type UnsupportedProjectError struct {
	Engine string
	Reason string
}

func (e *UnsupportedProjectError) Error() string {
	return fmt.Sprintf("engine %q does not support this project: %s", e.Engine, e.Reason)
}

func NewUnsupportedProjectError(engine, reason string) error {
	return &UnsupportedProjectError{Engine: engine, Reason: reason}
}

// EngineErrorKind classifies infrastructure failures of one adapter invocation.
type EngineErrorKind string

const (
	EngineErrorTimeout    EngineErrorKind = "timeout"
	EngineErrorOOM        EngineErrorKind = "oom"
	EngineErrorCrash      EngineErrorKind = "crash"
	EngineErrorInvocation EngineErrorKind = "invocation"
	EngineErrorCancelled  EngineErrorKind = "cancelled"
)

// EngineError represents an infrastructure failure of one adapter invocation.
// A tool exiting with "vulnerabilities found" is success, never an EngineError.
type EngineError struct {
	Engine string
	Kind   EngineErrorKind
	Err    error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("engine %q failed (%s): %v", e.Engine, e.Kind, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

func NewEngineError(engine string, kind EngineErrorKind, err error) error {
	return &EngineError{Engine: engine, Kind: kind, Err: err}
}

// CheckpointWriteError reports a failed checkpoint persistence. Fatal to the
// run: the pipeline must not proceed without a durable checkpoint.
type CheckpointWriteError struct {
	RunID string
	Seq   int
	Err   error
}

func (e *CheckpointWriteError) Error() string {
	return fmt.Sprintf("failed to write checkpoint %d for run %q: %v", e.Seq, e.RunID, e.Err)
}

func (e *CheckpointWriteError) Unwrap() error {
	return e.Err
}

func NewCheckpointWriteError(runID string, seq int, err error) error {
	return &CheckpointWriteError{RunID: runID, Seq: seq, Err: err}
}

// CheckpointNotFoundError reports a resume request for a run with no persisted
// state. Fatal to the resume call only.
type CheckpointNotFoundError struct {
	RunID string
}

func (e *CheckpointNotFoundError) Error() string {
	return fmt.Sprintf("no checkpoint found for run %q", e.RunID)
}

func NewCheckpointNotFoundError(runID string) error {
	return &CheckpointNotFoundError{RunID: runID}
}

// RunStateError reports an operation applied to a run in an incompatible state,
// e.g. cancelling a run that already reached a terminal state.
type RunStateError struct {
	RunID string
	State string
	Op    string
}

func (e *RunStateError) Error() string {
	return fmt.Sprintf("cannot %s run %q in state %q", e.Op, e.RunID, e.State)
}

func NewRunStateError(runID, state, op string) error {
	return &RunStateError{RunID: runID, State: state, Op: op}
}
