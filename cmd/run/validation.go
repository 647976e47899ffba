package run

import (
	"fmt"
	"os"

	"github.com/solguard-dev/solguard/internal/snapshot"
)

// validateRunArgs validates the arguments provided to the run command.
func validateRunArgs(opts *RunOptions, args []string) error {
	if opts.Repository == "" && len(args) == 0 {
		return fmt.Errorf("either a project path or the 'repository' flag must be specified")
	}
	if opts.Repository != "" && len(args) > 0 {
		return fmt.Errorf("you cannot use the 'repository' flag and a project path at the same time")
	}
	if opts.Commit != "" && opts.Repository == "" {
		return fmt.Errorf("the 'commit' flag requires the 'repository' flag")
	}

	if len(args) > 0 {
		target := args[0]
		if snapshot.IsContractAddress(target) {
			return fmt.Errorf("%q is a contract address; analysis needs verified sources, provide a project path or a repository URL", target)
		}
		if _, err := os.Stat(target); os.IsNotExist(err) {
			return fmt.Errorf("the project path does not exist: %v", target)
		}
	}
	return nil
}
