package echidna

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"

	"github.com/solguard-dev/solguard/internal/engine"
	"github.com/solguard-dev/solguard/internal/findings"
	"github.com/solguard-dev/solguard/internal/snapshot"
	"github.com/solguard-dev/solguard/pkg/shared/errors"
)

const (
	engineName  = "echidna"
	toolVersion = "2.2.3"
)

// Adapter runs the echidna property fuzzer. A falsified property becomes a
// finding carrying the shrunken counterexample call sequence in its
// description.
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
		"falsified": findings.SeverityHigh,
		"error":     findings.SeverityMedium,
	}
}

func (a *Adapter) RuleCategories() map[string]findings.Category {
	return map[string]findings.Category{
		"assertion-failure": findings.CategoryArithmetic,
		"property-failure":  findings.CategoryOther,
	}
}

func (a *Adapter) DefaultConfidence() float64 { return 0.9 }

func (a *Adapter) Prepare(snap *snapshot.Snapshot, settings engine.StageSettings) (engine.ExecutionSpec, error) {
	if len(snap.Files) == 0 {
		return engine.ExecutionSpec{}, errors.NewUnsupportedProjectError(engineName, "no Solidity sources in snapshot")
	}
	if snap.Framework == snapshot.FrameworkUnknown || snap.Framework == snapshot.FrameworkRemix {
		return engine.ExecutionSpec{}, errors.NewUnsupportedProjectError(engineName,
			fmt.Sprintf("fuzzing requires a buildable project, framework is %s", snap.Framework))
	}

	outputPath := filepath.Join(settings.OutputDir, "echidna.json")

	args := []string{
		"echidna", ".",
		"--format", "json",
		"--test-mode", "assertion",
		"--timeout", itoa(int(settings.Timeout.Seconds())),
		"--seed", itoa64(settings.Seed),
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
			// fuzzing campaigns wind down on their own timeout, the wall
			// clock only guards against a hung process
			WallClock: settings.Timeout + settings.Timeout/4,
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
	if len(output) == 0 {
		a.logger.Error("echidna produced no output", "exitCode", exitCode)
		return engine.RawOutput{}, errors.NewEngineError(engineName, errors.EngineErrorCrash,
			goerrors.New("empty campaign report after execution"))
	}

	if writeErr := os.WriteFile(spec.OutputPath, output, 0644); writeErr != nil {
		a.logger.Warn("could not persist echidna report", "path", spec.OutputPath, "error", writeErr)
	}

	return engine.RawOutput{
		Engine: engineName,
		Format: "json",
		Path:   spec.OutputPath,
		Data:   output,
	}, nil
}

type campaignReport struct {
	Seed  int64          `json:"seed"`
	Tests []propertyTest `json:"tests"`
}

type propertyTest struct {
	Contract string   `json:"contract"`
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Status   string   `json:"status"`
	File     string   `json:"file"`
	Line     int      `json:"line"`
	Calls    []string `json:"transactions"`
	Error    string   `json:"error"`
}

func (a *Adapter) Parse(out engine.RawOutput) ([]findings.RawFinding, error) {
	var report campaignReport
	if err := json.Unmarshal(out.Data, &report); err != nil {
		return nil, errors.NewEngineError(engineName, errors.EngineErrorInvocation, err)
	}

	var raws []findings.RawFinding
	for _, test := range report.Tests {
		if test.Status != "falsified" && test.Status != "error" {
			continue
		}
		if test.File == "" {
			a.logger.Warn("dropping falsified property without a source location",
				"contract", test.Contract, "property", test.Name)
			continue
		}

		ruleID := "property-failure"
		if test.Type == "assertion" {
			ruleID = "assertion-failure"
		}

		raws = append(raws, findings.RawFinding{
			Engine:      engineName,
			RuleID:      ruleID,
			Severity:    test.Status,
			Title:       fmt.Sprintf("Property %s.%s violated", test.Contract, test.Name),
			Description: describeViolation(test),
			Span: findings.CodeSpan{
				FilePath:  test.File,
				StartLine: test.Line,
				EndLine:   test.Line,
			},
		})
	}
	return raws, nil
}

func describeViolation(test propertyTest) string {
	desc := fmt.Sprintf("Fuzzing falsified %s.%s.", test.Contract, test.Name)
	if len(test.Calls) > 0 {
		desc += " Counterexample call sequence:"
		for _, call := range test.Calls {
			desc += "\n  " + call
		}
	}
	if test.Error != "" {
		desc += "\nCampaign error: " + test.Error
	}
	return desc
}
