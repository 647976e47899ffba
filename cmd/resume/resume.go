package resume

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/solguard-dev/solguard/internal/app"
	"github.com/solguard-dev/solguard/internal/snapshot"
	"github.com/solguard-dev/solguard/pkg/shared/config"
	"github.com/solguard-dev/solguard/pkg/shared/logger"
)

// ResumeOptions holds the arguments for the resume command.
type ResumeOptions struct {
	Path string
}

var (
	AppConfig          *config.Config
	resumeOptions      ResumeOptions
	exampleResumeUsage = `  # Resume an interrupted run from its latest checkpoint
  solguard resume 6f1d2eab-774c-90d1-5a38-b6e2f3a1c7de

  # Resume with the project sources at a new location
  solguard resume 6f1d2eab-774c-90d1-5a38-b6e2f3a1c7de --path /path/to/my_project`
)

// ResumeCmd represents the resume command.
var ResumeCmd = &cobra.Command{
	Use:                   "resume RUN_ID [--path PATH]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleResumeUsage,
	Short:                 "Resume an interrupted run from its latest checkpoint",
	Args:                  cobra.ExactArgs(1),
	RunE:                  runResumeCommand,
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

func init() {
	ResumeCmd.Flags().StringVar(&resumeOptions.Path, "path", "", "project path when the original working copy moved")
}

func runResumeCommand(cmd *cobra.Command, args []string) error {
	log := logger.NewLogger(AppConfig, "core-resume")
	runID := args[0]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var snap *snapshot.Snapshot
	if resumeOptions.Path != "" {
		provider := &snapshot.LocalProvider{Path: resumeOptions.Path}
		var err error
		snap, err = provider.Snapshot(ctx)
		if err != nil {
			log.Error("failed to materialize project snapshot", "error", err)
			return err
		}
	}

	orch, cleanup, err := app.BuildOrchestrator(AppConfig, log)
	if err != nil {
		log.Error("failed to assemble pipeline", "error", err)
		return err
	}
	defer cleanup()

	resumedID, err := orch.Resume(ctx, runID, snap)
	if err != nil {
		log.Error("failed to resume run", "runID", runID, "error", err)
		return err
	}

	go func() {
		<-ctx.Done()
		if err := orch.Cancel(resumedID); err != nil {
			log.Debug("cancel request not applicable", "error", err)
		}
	}()

	run, waitErr := orch.Wait(resumedID)
	if waitErr != nil {
		return fmt.Errorf("run %s finished in state %s: %w", resumedID, run.State, waitErr)
	}
	log.Info("run completed", "runID", resumedID, "state", run.State, "findings", len(run.Findings))
	return nil
}
