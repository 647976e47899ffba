package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/solguard-dev/solguard/internal/sink"
	"github.com/solguard-dev/solguard/pkg/shared/config"
	"github.com/solguard-dev/solguard/pkg/shared/files"
	"github.com/solguard-dev/solguard/pkg/shared/logger"
)

// ReportOptions holds the arguments for the report command.
type ReportOptions struct {
	Output string
}

var (
	AppConfig          *config.Config
	reportOptions      ReportOptions
	exampleReportUsage = `  # Export a stored run record as SARIF next to it
  solguard report /path/to/solguard-report-<run-id>-<ts>.json

  # Export into a specific directory
  solguard report /path/to/solguard-report.json --output /path/to/exports`
)

// ReportCmd represents the report command.
var ReportCmd = &cobra.Command{
	Use:                   "report REPORT_FILE [--output DIR]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleReportUsage,
	Short:                 "Export a stored run record as a SARIF report",
	Args:                  cobra.ExactArgs(1),
	RunE:                  runReportCommand,
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

func init() {
	ReportCmd.Flags().StringVarP(&reportOptions.Output, "output", "o", "", "output directory (default is the report's directory)")
}

func runReportCommand(cmd *cobra.Command, args []string) error {
	log := logger.NewLogger(AppConfig, "core-report")
	inputPath := args[0]

	if err := files.ValidatePath(inputPath); err != nil {
		return err
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read run record: %w", err)
	}

	var record sink.RunRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return fmt.Errorf("failed to parse run record: %w", err)
	}
	if record.RunID == "" {
		return fmt.Errorf("%q does not look like a solguard run record", inputPath)
	}

	outputDir := reportOptions.Output
	if outputDir == "" {
		outputDir = filepath.Dir(inputPath)
	}

	sarifSink := sink.NewSarifSink(log, outputDir)
	if err := sarifSink.Deliver(&record); err != nil {
		log.Error("SARIF export failed", "error", err)
		return err
	}

	log.Info("SARIF export complete", "runID", record.RunID, "dir", outputDir)
	return nil
}
