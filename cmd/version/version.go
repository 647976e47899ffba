package version

import (
	"fmt"
	"runtime"
	"sort"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/solguard-dev/solguard/internal/app"
)

var (
	CoreVersion = "unknown"
	BuildTime   = "unknown"
)

// NewVersionCmd creates a new cobra.Command for the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:                   "version",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Short:                 "Print the version of the application and its engine adapters",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("solguard %s (built %s, %s)\n", CoreVersion, BuildTime, runtime.Version())

			registry := app.NewRegistry(hclog.NewNullLogger())
			versions := registry.Versions()

			names := make([]string, 0, len(versions))
			for name := range versions {
				names = append(names, name)
			}
			sort.Strings(names)

			fmt.Println("engines:")
			for _, name := range names {
				fmt.Printf("  %-10s %s\n", name, versions[name])
			}
		},
	}
}
