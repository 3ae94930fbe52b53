package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/chris-regnier/sharplint/internal/output"
)

var (
	// Version information injected by goreleaser
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	flagQuiet   bool
	flagVerbose bool
	flagDebug   bool
)

// errRejected is returned when the gate rejects a run. main maps it to exit
// code 2 so CI can tell a failed gate from a failed run.
var errRejected = errors.New("quality gate rejected the analysis")

var rootCmd = &cobra.Command{
	Use:           "sharplint",
	Short:         "Static analysis for C# with SARIF output and a Rego quality gate",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		slog.SetDefault(output.SetupLogger(flagQuiet, flagVerbose, flagDebug, cmd.ErrOrStderr()))
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "sharplint %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built at: %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress log output")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log progress")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Log everything, including per-unit detail")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if errors.Is(err, errRejected) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
