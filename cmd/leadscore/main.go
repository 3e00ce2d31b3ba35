package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "leadscore",
		Short: "Lead scoring and qualification engine",
		Long: `leadscore rates prospects on demographic, behavioral, engagement and fit
signals, optionally asks a language model to qualify them, ranks them and
tracks how well the estimates matched real outcomes.

Configuration comes from defaults, the YAML file named by LEADSCORE_CONFIG
and LEADSCORE_* environment variables.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}
	root.AddCommand(newServeCmd(), newScoreCmd(), newMigrateCmd(), newSimulateCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
