package sink

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/solguard-dev/solguard/internal/findings"
	"github.com/solguard-dev/solguard/pkg/shared/files"
)

// SarifSink exports the consolidated findings as a SARIF 2.1.0 report so the
// results plug into code scanning UIs.
type SarifSink struct {
	dir    string
	logger hclog.Logger
}

func NewSarifSink(logger hclog.Logger, dir string) *SarifSink {
	return &SarifSink{dir: dir, logger: logger}
}

func (s *SarifSink) Deliver(record *RunRecord) error {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return fmt.Errorf("failed to create SARIF report: %w", err)
	}

	run := sarif.NewRunWithInformationURI("solguard", "https://github.com/solguard-dev/solguard")
	for _, f := range record.Findings {
		ruleID := string(f.Category)
		run.AddRule(ruleID).
			WithDescription(f.Title).
			WithDefaultConfiguration(&sarif.ReportingConfiguration{
				Level: toSarifLevel(f.Severity),
			})

		location := sarif.NewLocation().WithPhysicalLocation(
			sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewArtifactLocation().WithUri(f.Span.FilePath)).
				WithRegion(sarif.NewRegion().
					WithStartLine(f.Span.StartLine).
					WithEndLine(f.Span.EndLine)),
		)

		result := sarif.NewRuleResult(ruleID).
			WithMessage(sarif.NewTextMessage(f.Description)).
			WithLevel(toSarifLevel(f.Severity)).
			WithLocations([]*sarif.Location{location})
		run.AddResult(result)
	}
	report.AddRun(run)

	if err := files.CreateFolderIfNotExists(s.dir); err != nil {
		return err
	}
	path := filepath.Join(s.dir, fmt.Sprintf("solguard-report-%s.sarif", record.RunID))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("error writing SARIF report: %v", err)
	}
	defer func() { _ = file.Close() }()
	if err := report.PrettyWrite(file); err != nil {
		return err
	}

	s.logger.Info("SARIF report written", "path", path)
	return nil
}

func toSarifLevel(severity findings.Severity) string {
	switch severity {
	case findings.SeverityCritical, findings.SeverityHigh:
		return "error"
	case findings.SeverityMedium:
		return "warning"
	case findings.SeverityLow, findings.SeverityInfo:
		return "note"
	default:
		return "none"
	}
}
