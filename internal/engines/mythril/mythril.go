package mythril

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"path/filepath"

	"github.com/hashicorp/go-hclog"

	"github.com/solguard-dev/solguard/internal/engine"
	"github.com/solguard-dev/solguard/internal/findings"
	"github.com/solguard-dev/solguard/internal/snapshot"
	"github.com/solguard-dev/solguard/pkg/shared/errors"
)

const (
	engineName  = "mythril"
	toolVersion = "0.24.8"
)

// Adapter drives the mythril symbolic execution tool. Mythril reports issues
// as a JSON document on stdout, keyed by SWC identifiers.
type Adapter struct {
	logger hclog.Logger
}

func New(logger hclog.Logger) *Adapter {
	return &Adapter{logger: logger}
}

func (a *Adapter) Name() string    { return engineName }
func (a *Adapter) Version() string { return toolVersion }

func (a *Adapter) SeverityMap() map[string]findings.Severity {
	return map[string]findings.Severity{
		"High":   findings.SeverityHigh,
		"Medium": findings.SeverityMedium,
		"Low":    findings.SeverityLow,
	}
}

// RuleCategories maps SWC registry identifiers onto the category vocabulary.
func (a *Adapter) RuleCategories() map[string]findings.Category {
	return map[string]findings.Category{
		"SWC-101": findings.CategoryArithmetic,     // integer overflow and underflow
		"SWC-104": findings.CategoryUncheckedCalls, // unchecked call return value
		"SWC-105": findings.CategoryAccessControl,  // unprotected ether withdrawal
		"SWC-106": findings.CategoryAccessControl,  // unprotected selfdestruct
		"SWC-107": findings.CategoryReentrancy,
		"SWC-112": findings.CategoryUpgradeability, // delegatecall to untrusted callee
		"SWC-114": findings.CategoryFrontRunning,   // transaction order dependence
		"SWC-115": findings.CategoryAccessControl,  // authorization through tx.origin
		"SWC-116": findings.CategoryFrontRunning,   // block values as a proxy for time
		"SWC-120": findings.CategoryFrontRunning,   // weak sources of randomness
		"SWC-128": findings.CategoryGasOptimization,
	}
}

func (a *Adapter) DefaultConfidence() float64 { return 0.7 }

func (a *Adapter) Prepare(snap *snapshot.Snapshot, settings engine.StageSettings) (engine.ExecutionSpec, error) {
	if len(snap.Files) == 0 {
		return engine.ExecutionSpec{}, errors.NewUnsupportedProjectError(engineName, "no Solidity sources in snapshot")
	}

	outputPath := filepath.Join(settings.OutputDir, "mythril.json")

	// Mythril analyzes one entrypoint at a time; the first source in the
	// sorted snapshot keeps the choice stable between runs.
	target := snap.Files[0]
	execTimeout := int(settings.Timeout.Seconds())
	if execTimeout > 60 {
		// leave headroom so mythril winds down before the wall clock fires
		execTimeout -= 30
	}

	args := []string{
		"myth", "analyze", target,
		"-o", "json",
		"--execution-timeout", itoa(execTimeout),
	}
	if snap.CompilerVersion != "" {
		args = append(args, "--solv", snap.CompilerVersion)
	}
	args = append(args, settings.ExtraArgs...)

	return engine.ExecutionSpec{
		Engine:     engineName,
		Command:    args,
		WorkDir:    snap.Root,
		OutputPath: outputPath,
		Limits: engine.ResourceLimits{
			CPUSeconds: int(settings.Timeout.Seconds()),
			MemoryMB:   8192,
			WallClock:  settings.Timeout,
		},
		Seed: settings.Seed,
	}, nil
}

func (a *Adapter) Execute(ctx context.Context, spec engine.ExecutionSpec) (engine.RawOutput, error) {
	if err := validateSpec(spec); err != nil {
		return engine.RawOutput{}, err
	}

	// Mythril writes the JSON report to stdout, not to a file.
	output, exitCode, err := engine.RunTool(ctx, a.logger, spec)
	if err != nil {
		return engine.RawOutput{}, err
	}
	if len(output) == 0 {
		a.logger.Error("mythril produced no output", "exitCode", exitCode)
		return engine.RawOutput{}, errors.NewEngineError(engineName, errors.EngineErrorCrash,
			goerrors.New("empty report after execution"))
	}

	return engine.RawOutput{
		Engine: engineName,
		Format: "json",
		Path:   spec.OutputPath,
		Data:   output,
	}, nil
}

type mythrilReport struct {
	Success bool           `json:"success"`
	Error   string         `json:"error"`
	Issues  []mythrilIssue `json:"issues"`
}

type mythrilIssue struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	SwcID       string `json:"swc-id"`
	Filename    string `json:"filename"`
	Lineno      int    `json:"lineno"`
	Function    string `json:"function"`
}

func (a *Adapter) Parse(out engine.RawOutput) ([]findings.RawFinding, error) {
	var report mythrilReport
	if err := json.Unmarshal(out.Data, &report); err != nil {
		return nil, errors.NewEngineError(engineName, errors.EngineErrorInvocation, err)
	}
	if !report.Success && report.Error != "" {
		return nil, errors.NewEngineError(engineName, errors.EngineErrorCrash,
			goerrors.New(report.Error))
	}

	raws := make([]findings.RawFinding, 0, len(report.Issues))
	for _, issue := range report.Issues {
		if issue.Filename == "" {
			a.logger.Warn("dropping mythril issue without a source location", "title", issue.Title)
			continue
		}
		raws = append(raws, findings.RawFinding{
			Engine:      engineName,
			RuleID:      issue.SwcID,
			Severity:    issue.Severity,
			Title:       issue.Title,
			Description: issue.Description,
			Span: findings.CodeSpan{
				FilePath:  issue.Filename,
				StartLine: issue.Lineno,
				EndLine:   issue.Lineno,
			},
		})
	}
	return raws, nil
}
