package ecorisk

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"

	"github.com/solguard-dev/solguard/internal/engine"
	"github.com/solguard-dev/solguard/internal/findings"
	"github.com/solguard-dev/solguard/internal/snapshot"
	"github.com/solguard-dev/solguard/pkg/shared/errors"
)

const (
	engineName  = "ecorisk"
	toolVersion = "1.4.2"
)

// Adapter wraps the ecorisk economic risk analyzer, which models oracle
// dependencies, MEV exposure, and liquidity assumptions of DeFi protocols.
// It emits its own JSON findings format with per-finding confidence scores.
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
		"critical": findings.SeverityCritical,
		"high":     findings.SeverityHigh,
		"medium":   findings.SeverityMedium,
		"low":      findings.SeverityLow,
		"info":     findings.SeverityInfo,
	}
}

func (a *Adapter) RuleCategories() map[string]findings.Category {
	return map[string]findings.Category{
		"spot-price-oracle":       findings.CategoryOracle,
		"stale-oracle-feed":       findings.CategoryOracle,
		"single-oracle-source":    findings.CategoryOracle,
		"sandwich-exposure":       findings.CategoryFrontRunning,
		"mev-extractable":         findings.CategoryFrontRunning,
		"deadline-missing":        findings.CategoryFrontRunning,
		"unbounded-slippage":      findings.CategoryFrontRunning,
		"flashloan-governance":    findings.CategoryAccessControl,
		"admin-key-concentration": findings.CategoryAccessControl,
	}
}

func (a *Adapter) DefaultConfidence() float64 { return 0.6 }

func (a *Adapter) Prepare(snap *snapshot.Snapshot, settings engine.StageSettings) (engine.ExecutionSpec, error) {
	if len(snap.Files) == 0 {
		return engine.ExecutionSpec{}, errors.NewUnsupportedProjectError(engineName, "no Solidity sources in snapshot")
	}

	outputPath := filepath.Join(settings.OutputDir, "ecorisk.json")

	args := []string{
		"ecorisk", "scan", ".",
		"--output", outputPath,
		"--format", "json",
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
		a.logger.Error("ecorisk produced no report", "exitCode", exitCode, "output", string(output))
		return engine.RawOutput{}, errors.NewEngineError(engineName, errors.EngineErrorCrash,
			goerrors.New("report file missing after execution"))
	}

	return engine.RawOutput{
		Engine: engineName,
		Format: "json",
		Path:   spec.OutputPath,
		Data:   data,
	}, nil
}

type ecoriskReport struct {
	Version  string         `json:"version"`
	Findings []ecoriskIssue `json:"findings"`
}

type ecoriskIssue struct {
	Rule        string  `json:"rule"`
	Severity    string  `json:"severity"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	File        string  `json:"file"`
	StartLine   int     `json:"start_line"`
	EndLine     int     `json:"end_line"`
	Confidence  float64 `json:"confidence"`
}

func (a *Adapter) Parse(out engine.RawOutput) ([]findings.RawFinding, error) {
	var report ecoriskReport
	if err := json.Unmarshal(out.Data, &report); err != nil {
		return nil, errors.NewEngineError(engineName, errors.EngineErrorInvocation, err)
	}

	raws := make([]findings.RawFinding, 0, len(report.Findings))
	for _, issue := range report.Findings {
		if issue.File == "" {
			a.logger.Warn("dropping ecorisk finding without a source location", "rule", issue.Rule)
			continue
		}
		raws = append(raws, findings.RawFinding{
			Engine:      engineName,
			RuleID:      issue.Rule,
			Severity:    issue.Severity,
			Title:       issue.Title,
			Description: issue.Description,
			Span: findings.CodeSpan{
				FilePath:  issue.File,
				StartLine: issue.StartLine,
				EndLine:   issue.EndLine,
			},
			Confidence: issue.Confidence,
		})
	}
	return raws, nil
}
