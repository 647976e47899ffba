package slither

import (
	"context"
	goerrors "errors"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	sarif "github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/solguard-dev/solguard/internal/engine"
	"github.com/solguard-dev/solguard/internal/findings"
	"github.com/solguard-dev/solguard/internal/snapshot"
	"github.com/solguard-dev/solguard/pkg/shared/errors"
)

const (
	engineName  = "slither"
	toolVersion = "0.10.0"
)

// Adapter wraps the slither static analyzer. Slither emits SARIF, which Parse
// maps to raw findings through its detector tables.
type Adapter struct {
	logger hclog.Logger
}

func New(logger hclog.Logger) *Adapter {
	return &Adapter{logger: logger}
}

func (a *Adapter) Name() string    { return engineName }
func (a *Adapter) Version() string { return toolVersion }

// SeverityMap covers both SARIF levels and slither impact labels; the SARIF
// level is what slither writes, the impact labels appear in rule properties.
func (a *Adapter) SeverityMap() map[string]findings.Severity {
	return map[string]findings.Severity{
		"error":         findings.SeverityHigh,
		"warning":       findings.SeverityMedium,
		"note":          findings.SeverityInfo,
		"high":          findings.SeverityHigh,
		"medium":        findings.SeverityMedium,
		"low":           findings.SeverityLow,
		"informational": findings.SeverityInfo,
		"optimization":  findings.SeverityInfo,
	}
}

// RuleCategories maps slither detector identifiers onto the closed category
// vocabulary. Detectors not listed here fall back to other.
func (a *Adapter) RuleCategories() map[string]findings.Category {
	return map[string]findings.Category{
		"reentrancy-eth":          findings.CategoryReentrancy,
		"reentrancy-no-eth":       findings.CategoryReentrancy,
		"reentrancy-benign":       findings.CategoryReentrancy,
		"reentrancy-events":       findings.CategoryReentrancy,
		"arbitrary-send":          findings.CategoryAccessControl,
		"suicidal":                findings.CategoryAccessControl,
		"tx-origin":               findings.CategoryAccessControl,
		"unprotected-upgrade":     findings.CategoryUpgradeability,
		"controlled-delegatecall": findings.CategoryUpgradeability,
		"delegatecall-loop":       findings.CategoryUpgradeability,
		"unchecked-transfer":      findings.CategoryUncheckedCalls,
		"unchecked-lowlevel":      findings.CategoryUncheckedCalls,
		"unchecked-send":          findings.CategoryUncheckedCalls,
		"divide-before-multiply":  findings.CategoryArithmetic,
		"incorrect-exp":           findings.CategoryArithmetic,
		"tautology":               findings.CategoryArithmetic,
		"weak-prng":               findings.CategoryFrontRunning,
		"timestamp":               findings.CategoryFrontRunning,
		"costly-loop":             findings.CategoryGasOptimization,
		"cache-array-length":      findings.CategoryGasOptimization,
	}
}

func (a *Adapter) DefaultConfidence() float64 { return 0.8 }

func (a *Adapter) Prepare(snap *snapshot.Snapshot, settings engine.StageSettings) (engine.ExecutionSpec, error) {
	if len(snap.Files) == 0 {
		return engine.ExecutionSpec{}, errors.NewUnsupportedProjectError(engineName, "no Solidity sources in snapshot")
	}
	if snap.Framework == snapshot.FrameworkRemix {
		return engine.ExecutionSpec{}, errors.NewUnsupportedProjectError(engineName, "remix projects cannot be compiled locally")
	}

	outputPath := filepath.Join(settings.OutputDir, "slither.sarif")

	// --fail-none keeps the exit status clean when findings are present; the
	// SARIF file is the result channel.
	args := []string{"slither", ".", "--sarif", outputPath, "--fail-none"}
	switch snap.Framework {
	case snapshot.FrameworkHardhat:
		args = append(args, "--compile-force-framework", "hardhat")
	case snapshot.FrameworkFoundry:
		args = append(args, "--compile-force-framework", "foundry")
	case snapshot.FrameworkTruffle:
		args = append(args, "--compile-force-framework", "truffle")
	}
	args = append(args, settings.ExtraArgs...)

	return engine.ExecutionSpec{
		Engine:     engineName,
		Command:    args,
		WorkDir:    snap.Root,
		OutputPath: outputPath,
		Limits: engine.ResourceLimits{
			CPUSeconds: int(settings.Timeout.Seconds()),
			MemoryMB:   4096,
			WallClock:  settings.Timeout,
		},
		Seed: settings.Seed,
	}, nil
}

func (a *Adapter) Execute(ctx context.Context, spec engine.ExecutionSpec) (engine.RawOutput, error) {
	if err := validateSpec(spec); err != nil {
		return engine.RawOutput{}, err
	}

	output, exitCode, err := engine.RunTool(ctx, a.logger, spec)
	if err != nil {
		return engine.RawOutput{}, err
	}

	data, readErr := os.ReadFile(spec.OutputPath)
	if readErr != nil {
		a.logger.Error("slither produced no report", "exitCode", exitCode, "output", string(output))
		return engine.RawOutput{}, errors.NewEngineError(engineName, errors.EngineErrorCrash,
			goerrors.New("report file missing after execution"))
	}

	return engine.RawOutput{
		Engine: engineName,
		Format: "sarif",
		Path:   spec.OutputPath,
		Data:   data,
	}, nil
}

func (a *Adapter) Parse(out engine.RawOutput) ([]findings.RawFinding, error) {
	report, err := sarif.FromBytes(out.Data)
	if err != nil {
		return nil, errors.NewEngineError(engineName, errors.EngineErrorInvocation, err)
	}

	var raws []findings.RawFinding
	for _, run := range report.Runs {
		for _, result := range run.Results {
			raw, ok := a.resultToRawFinding(result)
			if !ok {
				a.logger.Warn("dropping unparseable slither result", "result", result)
				continue
			}
			raws = append(raws, raw)
		}
	}
	return raws, nil
}

func (a *Adapter) resultToRawFinding(result *sarif.Result) (findings.RawFinding, bool) {
	if result.RuleID == nil || result.Message.Text == nil {
		return findings.RawFinding{}, false
	}
	if len(result.Locations) == 0 {
		return findings.RawFinding{}, false
	}

	loc := result.Locations[0]
	if loc.PhysicalLocation == nil || loc.PhysicalLocation.ArtifactLocation == nil ||
		loc.PhysicalLocation.ArtifactLocation.URI == nil {
		return findings.RawFinding{}, false
	}

	span := findings.CodeSpan{FilePath: *loc.PhysicalLocation.ArtifactLocation.URI}
	if region := loc.PhysicalLocation.Region; region != nil {
		if region.StartLine != nil {
			span.StartLine = *region.StartLine
		}
		if region.EndLine != nil {
			span.EndLine = *region.EndLine
		}
		if region.StartColumn != nil {
			span.StartColumn = *region.StartColumn
		}
		if region.EndColumn != nil {
			span.EndColumn = *region.EndColumn
		}
	}

	severity := ""
	if result.Level != nil {
		severity = *result.Level
	}

	message := *result.Message.Text
	return findings.RawFinding{
		Engine:      engineName,
		RuleID:      *result.RuleID,
		Severity:    severity,
		Title:       firstLine(message),
		Description: message,
		Span:        span,
	}, true
}
