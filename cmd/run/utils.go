package run

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"

	"github.com/solguard-dev/solguard/internal/orchestrator"
	"github.com/solguard-dev/solguard/internal/snapshot"
	"github.com/solguard-dev/solguard/pkg/shared"
	"github.com/solguard-dev/solguard/pkg/shared/files"
)

// snapshotProvider picks the snapshot source: a clone of the requested
// repository or the local project path.
func snapshotProvider(opts *RunOptions, args []string, log hclog.Logger) (snapshot.Provider, error) {
	if opts.Repository != "" {
		targetDir := filepath.Join(shared.GetSolguardHome(), "projects", sanitizeRepoDir(opts.Repository))
		return snapshot.NewGitProvider(opts.Repository, opts.Commit, targetDir, log), nil
	}
	path, err := files.ExpandPath(args[0])
	if err != nil {
		return nil, err
	}
	return &snapshot.LocalProvider{Path: path}, nil
}

func sanitizeRepoDir(url string) string {
	out := make([]rune, 0, len(url))
	for _, r := range url {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			out = append(out, r)
		default:
			out = append(out, '-')
		}
	}
	return string(out)
}

func printSummary(run *orchestrator.AnalysisRun) {
	if run == nil {
		return
	}

	fmt.Fprintf(os.Stdout, "\nrun %s: %s\n", run.RunID, run.State)
	for _, stage := range run.Stages {
		fmt.Fprintf(os.Stdout, "  stage %-20s %-10s attempts=%d findings=%d\n",
			stage.Name, stage.Status, stage.Attempts, len(stage.Findings))
	}

	counts := map[string]int{}
	for _, f := range run.Findings {
		counts[string(f.Severity)]++
	}
	fmt.Fprintf(os.Stdout, "findings: %d total", len(run.Findings))
	for _, sev := range []string{"critical", "high", "medium", "low", "info"} {
		if counts[sev] > 0 {
			fmt.Fprintf(os.Stdout, "  %s=%d", sev, counts[sev])
		}
	}
	fmt.Fprintln(os.Stdout)
}

func init() {
	RunCmd.Flags().StringVarP(&runOptions.Profile, "profile", "p", "standard", "analysis profile (quick, standard, comprehensive, custom)")
	RunCmd.Flags().StringVar(&runOptions.ProfileConfig, "profile-config", "", "path to a custom profile definition (with --profile custom)")
	RunCmd.Flags().StringVar(&runOptions.Repository, "repository", "", "git repository URL to analyze")
	RunCmd.Flags().StringVar(&runOptions.Commit, "commit", "", "commit to pin the analysis to (with --repository)")
	RunCmd.Flags().StringVar(&runOptions.TenantID, "tenant", "", "tenant identifier for concurrency accounting")
	RunCmd.Flags().StringVar(&runOptions.RunID, "run-id", "", "explicit run identifier (generated when empty)")
	RunCmd.Flags().Int64Var(&runOptions.Seed, "seed", 0, "seed for reproducible runs (0 derives one from the run identifier)")
}
