package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/solguard-dev/solguard/cmd/report"
	"github.com/solguard-dev/solguard/cmd/resume"
	"github.com/solguard-dev/solguard/cmd/run"
	"github.com/solguard-dev/solguard/cmd/version"
	"github.com/solguard-dev/solguard/pkg/shared/config"
)

var (
	cfgFile   string
	AppConfig *config.Config
	rootCmd   = &cobra.Command{
		Use:                   "solguard [command]",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Short:                 "Solguard orchestrates security analysis pipelines for smart contracts.",
		Long: `Solguard runs multiple analysis engines (static analysis, symbolic execution,
fuzzing, economic risk modeling) against a smart contract project, deduplicates
their findings into a consensus report, and checkpoints progress so interrupted
runs resume where they stopped.
`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is config.yml)")
	rootCmd.AddCommand(run.RunCmd)
	rootCmd.AddCommand(resume.ResumeCmd)
	rootCmd.AddCommand(report.ReportCmd)
	rootCmd.AddCommand(version.NewVersionCmd())
}

func Execute() int {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		return 1
	}
	return 0
}

func initConfig() {
	var err error

	if cfgFile == "" {
		cfgFile = "config.yml"
	}
	AppConfig, err = config.LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	run.Init(AppConfig)
	resume.Init(AppConfig)
	report.Init(AppConfig)
}
