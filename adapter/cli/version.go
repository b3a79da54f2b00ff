package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/sendflowr/pulse/internal/timing/domain"
)

// Build identity, injected via -ldflags at release time.
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

var versionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build and model versions",
	Run: func(cmd *cobra.Command, args []string) {
		if versionShort {
			fmt.Println(Version)
			return
		}
		fmt.Printf("pulse %s (%s, built %s, %s)\n", Version, Commit, BuildDate, runtime.Version())
		fmt.Printf("  decision model: %s\n", domain.ModelVersion)
		fmt.Printf("  feature schema: %s\n", domain.FeatureVersion)
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "print the bare version number")
	rootCmd.AddCommand(versionCmd)
}
