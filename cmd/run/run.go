package run

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/solguard-dev/solguard/internal/app"
	"github.com/solguard-dev/solguard/internal/orchestrator"
	"github.com/solguard-dev/solguard/internal/profile"
	"github.com/solguard-dev/solguard/pkg/shared"
	"github.com/solguard-dev/solguard/pkg/shared/config"
	"github.com/solguard-dev/solguard/pkg/shared/logger"
)

// RunOptions holds the arguments for the run command.
type RunOptions struct {
	Profile       string
	ProfileConfig string
	Repository    string
	Commit        string
	TenantID      string
	RunID         string
	Seed          int64
}

var (
	AppConfig       *config.Config
	runOptions      RunOptions
	exampleRunUsage = `  # Run the standard profile against a local project
  solguard run /path/to/my_project

  # Run the quick profile
  solguard run --profile quick /path/to/my_project

  # Analyze a pinned commit of a remote repository
  solguard run --repository https://github.com/org/protocol --commit 3f2a91c

  # Run a custom profile definition
  solguard run --profile custom --profile-config ./profile.yml /path/to/my_project`
)

// RunCmd represents the run command.
var RunCmd = &cobra.Command{
	Use:                   "run [--profile NAME] [--repository URL [--commit SHA]] [PATH]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleRunUsage,
	Short:                 "Run an analysis pipeline against a smart contract project",
	RunE:                  runRunCommand,
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

func runRunCommand(cmd *cobra.Command, args []string) error {
	log := logger.NewLogger(AppConfig, "core-run")

	if len(args) == 0 && !shared.HasFlags(cmd.Flags()) {
		return cmd.Help()
	}

	if err := validateRunArgs(&runOptions, args); err != nil {
		log.Error("invalid run arguments", "error", err)
		return err
	}

	p, err := profile.Load(runOptions.Profile, runOptions.ProfileConfig)
	if err != nil {
		log.Error("failed to load profile", "profile", runOptions.Profile, "error", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := snapshotProvider(&runOptions, args, log)
	if err != nil {
		return err
	}
	snap, err := provider.Snapshot(ctx)
	if err != nil {
		log.Error("failed to materialize project snapshot", "error", err)
		return err
	}
	log.Info("project snapshot ready", "files", len(snap.Files), "framework", snap.Framework)

	orch, cleanup, err := app.BuildOrchestrator(AppConfig, log)
	if err != nil {
		log.Error("failed to assemble pipeline", "error", err)
		return err
	}
	defer cleanup()

	runID, err := orch.Start(ctx, orchestrator.Request{
		RunID:    runOptions.RunID,
		TenantID: runOptions.TenantID,
		Profile:  p,
		Snapshot: snap,
		Seed:     runOptions.Seed,
	})
	if err != nil {
		log.Error("failed to start run", "error", err)
		return err
	}
	log.Info("run started", "runID", runID, "profile", p.Name)

	// first interrupt cancels the run cooperatively, a second one kills us
	go func() {
		<-ctx.Done()
		log.Info("interrupt received, cancelling run", "runID", runID)
		if err := orch.Cancel(runID); err != nil {
			log.Debug("cancel request not applicable", "error", err)
		}
	}()

	run, waitErr := orch.Wait(runID)
	printSummary(run)

	if waitErr != nil {
		return fmt.Errorf("run %s finished in state %s: %w", runID, run.State, waitErr)
	}
	log.Info("run completed", "runID", runID, "findings", len(run.Findings))
	return nil
}
