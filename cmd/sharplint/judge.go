package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/chris-regnier/sharplint/internal/output"
	"github.com/chris-regnier/sharplint/internal/store"
)

var (
	flagJudgeResult  string
	flagJudgeOutput  string
	flagJudgeRegoDir string
	flagJudgeProject string
	flagJudgeFormat  string
)

func init() {
	judgeCmd := &cobra.Command{
		Use:   "judge",
		Short: "Re-evaluate a stored SARIF analysis with Rego policies",
		Long: `Evaluate a previously stored SARIF analysis using Rego policies and store the
new verdict. By default evaluates the most recent analysis.`,
		RunE: runJudge,
	}

	judgeCmd.Flags().StringVar(&flagJudgeResult, "result", "", "Analysis result ID to evaluate (default: most recent)")
	judgeCmd.Flags().StringVar(&flagJudgeOutput, "output", ".sharplint/results", "Directory containing analysis results")
	judgeCmd.Flags().StringVar(&flagJudgeRegoDir, "rego", ".sharplint/rego", "Directory containing Rego policies")
	judgeCmd.Flags().StringVar(&flagJudgeProject, "project", ".", "Project root holding .sharplint/sharplint.yaml")
	judgeCmd.Flags().StringVarP(&flagJudgeFormat, "format", "f", output.FormatJSON, "Output format: json, sarif, markdown, pretty")

	rootCmd.AddCommand(judgeCmd)
}

func runJudge(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	cfg, err := loadConfig(flagJudgeProject)
	if err != nil {
		return err
	}
	shutdown, err := startTelemetry(ctx, cfg)
	if err != nil {
		return err
	}
	defer shutdown()

	fs := store.NewFileStore(flagJudgeOutput)

	id := flagJudgeResult
	if id == "" {
		id, err = store.Latest(ctx, fs)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no analysis results found in %s", flagJudgeOutput)
		}
		if err != nil {
			return fmt.Errorf("listing results: %w", err)
		}
	}

	sarifLog, err := fs.ReadSARIF(ctx, id)
	if err != nil {
		return fmt.Errorf("reading SARIF for %s: %w", id, err)
	}

	verdict, err := judge(ctx, fs, id, sarifLog, flagJudgeRegoDir)
	if err != nil {
		return err
	}

	result := &output.AnalysisOutput{RunID: id, Verdict: verdict, SARIFLog: sarifLog}
	if err := render(cmd.OutOrStdout(), flagJudgeFormat, result); err != nil {
		return err
	}
	if verdict.Blocking() {
		return errRejected
	}
	return nil
}
