package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/chris-regnier/sharplint/internal/analysis"
	"github.com/chris-regnier/sharplint/internal/cache"
	"github.com/chris-regnier/sharplint/internal/config"
	"github.com/chris-regnier/sharplint/internal/evaluator"
	"github.com/chris-regnier/sharplint/internal/input"
	"github.com/chris-regnier/sharplint/internal/metrics"
	"github.com/chris-regnier/sharplint/internal/output"
	"github.com/chris-regnier/sharplint/internal/rules"
	"github.com/chris-regnier/sharplint/internal/runner"
	"github.com/chris-regnier/sharplint/internal/sarif"
	"github.com/chris-regnier/sharplint/internal/store"
	"github.com/chris-regnier/sharplint/internal/telemetry"
)

var analyzeTracer = otel.Tracer("github.com/chris-regnier/sharplint/cmd/sharplint/analyze")

var (
	flagFiles     []string
	flagDiff      string
	flagDir       string
	flagRoot      string
	flagProject   string
	flagOutput    string
	flagRegoDir   string
	flagFormat    string
	flagPartition string
	flagWorkers   int
	flagNoCache   bool
	flagMetrics   string
	flagStats     bool
)

func init() {
	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze C# sources and gate the result",
		Long: `Analyze C# sources with the built-in rules, store the SARIF log and the
gate verdict, and print the result. Exits with code 2 when the gate rejects.`,
		RunE: runAnalyze,
	}

	analyzeCmd.Flags().StringSliceVar(&flagFiles, "files", nil, "Files to analyze")
	analyzeCmd.Flags().StringVar(&flagDiff, "diff", "", "Path to diff file (or - for stdin)")
	analyzeCmd.Flags().StringVar(&flagDir, "dir", "", "Directory to analyze")
	analyzeCmd.Flags().StringVar(&flagRoot, "root", ".", "Repository root the diff paths are relative to")
	analyzeCmd.Flags().StringVar(&flagProject, "project", ".", "Project root holding .sharplint/sharplint.yaml")
	analyzeCmd.Flags().StringVar(&flagOutput, "output", ".sharplint/results", "Output directory for results")
	analyzeCmd.Flags().StringVar(&flagRegoDir, "rego", ".sharplint/rego", "Directory containing Rego policies")
	analyzeCmd.Flags().StringVarP(&flagFormat, "format", "f", "", "Output format: json, sarif, markdown, pretty (default: pretty on a terminal, json otherwise)")
	analyzeCmd.Flags().StringVar(&flagPartition, "partition", runner.PartitionAll, "Compilation units: all, dir or file")
	analyzeCmd.Flags().IntVar(&flagWorkers, "workers", 0, "Concurrent compilation units (default: config, then one per CPU)")
	analyzeCmd.Flags().BoolVar(&flagNoCache, "no-cache", false, "Disable the result cache")
	analyzeCmd.Flags().StringVar(&flagMetrics, "metrics", "", "Write analysis metrics as JSON to this path")
	analyzeCmd.Flags().BoolVar(&flagStats, "stats", false, "Include aggregate stats in the output")

	rootCmd.AddCommand(analyzeCmd)
}

// loadConfig reads the tiered configuration for the project rooted at root.
func loadConfig(root string) (*config.Config, error) {
	cfg, err := config.LoadTiered(config.MachinePath(), config.ProjectPath(root))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// startTelemetry initializes telemetry and returns a shutdown bounded to 5s.
func startTelemetry(ctx context.Context, cfg *config.Config) (func(), error) {
	if cfg.Telemetry.ServiceVersion == "" {
		cfg.Telemetry.ServiceVersion = version
	}
	shutdown, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown", "err", err)
		}
	}, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	cfg, err := loadConfig(flagProject)
	if err != nil {
		return err
	}
	if flagFormat != "" {
		cfg.Output.Format = flagFormat
	}
	if flagWorkers > 0 {
		cfg.Analysis.Workers = flagWorkers
	}

	shutdown, err := startTelemetry(ctx, cfg)
	if err != nil {
		return err
	}
	defer shutdown()

	ctx, span := analyzeTracer.Start(ctx, "analyze")
	defer span.End()

	artifacts, scope, err := readInput(cmd.InOrStdin(), cfg.Analysis.Exclude)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("reading input: %w", err)
	}
	slog.Info("collected sources", "files", len(artifacts), "scope", scope)

	units, err := runner.Split(artifacts, flagPartition)
	if err != nil {
		return err
	}

	opts, err := cfg.AnalysisOptions()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	registry := rules.DefaultRegistry()
	driver := analysis.NewDriver(registry.Analyzers(),
		analysis.WithOptions(opts),
		analysis.WithLogger(slog.Default()),
	)

	collector := metrics.NewCollector()
	runOpts := []runner.Option{
		runner.WithWorkers(cfg.Analysis.Workers),
		runner.WithEngineVersion(version),
		runner.WithRecorder(metrics.NewRecorder(collector, scope)),
	}
	if cfg.Analysis.CacheEnabled() && !flagNoCache {
		runOpts = append(runOpts, runner.WithCache(
			cache.NewTieredCache(cache.New(), cache.NewLocalDiskCache(cfg.Analysis.CacheDir)),
		))
	}

	summary, err := runner.New(driver, runOpts...).Run(ctx, units)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("analyzing: %w", err)
	}
	if err := summary.Err(); err != nil {
		slog.Warn("some compilation units failed", "failed", summary.Failed, "err", err)
	}
	slog.Info("analysis complete",
		"units", len(summary.Units),
		"diagnostics", len(summary.Diagnostics),
		"faults", len(summary.Faults),
		"cache_hits", summary.CacheHits,
		"duration", summary.Duration,
	)

	sarifLog := sarif.NewAssembler(version).
		AddRules(registry.Descriptors(), opts).
		AddDiagnostics(summary.SortedDiagnostics()).
		AddFaults(summary.Faults).
		WithInputScope(string(scope)).
		WithProperty("sharplint/units", len(summary.Units)).
		Build()

	fs := store.NewFileStore(flagOutput)
	id, err := fs.WriteSARIF(ctx, sarifLog)
	if err != nil {
		return fmt.Errorf("storing SARIF: %w", err)
	}

	verdict, err := judge(ctx, fs, id, sarifLog, flagRegoDir)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetAttributes(
		attribute.String("sharplint.run_id", id),
		attribute.String("sharplint.gate.decision", verdict.Decision),
	)

	result := &output.AnalysisOutput{RunID: id, Verdict: verdict, SARIFLog: sarifLog}
	if flagStats {
		stats := collector.GetStats()
		result.Stats = &stats
	}
	if err := render(cmd.OutOrStdout(), cfg.Output.Format, result); err != nil {
		return err
	}

	if flagMetrics != "" {
		if err := metrics.NewExporter(collector).ExportJSON(flagMetrics); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}

	if verdict.Blocking() {
		return errRejected
	}
	return nil
}

// readInput collects sources from whichever of --files, --diff or --dir is set.
func readInput(stdin io.Reader, excludes []string) ([]input.Artifact, metrics.Scope, error) {
	h, err := input.NewHandler(excludes...)
	if err != nil {
		return nil, "", err
	}

	switch {
	case len(flagFiles) > 0:
		artifacts, err := h.ReadFiles(flagFiles)
		return artifacts, metrics.ScopeFiles, err
	case flagDiff != "":
		var data []byte
		if flagDiff == "-" {
			data, err = io.ReadAll(stdin)
		} else {
			data, err = os.ReadFile(flagDiff)
		}
		if err != nil {
			return nil, "", err
		}
		artifacts, err := h.ReadDiff(string(data), flagRoot)
		return artifacts, metrics.ScopeDiff, err
	case flagDir != "":
		artifacts, err := h.ReadDirectory(flagDir)
		return artifacts, metrics.ScopeDir, err
	default:
		return nil, "", fmt.Errorf("specify --files, --diff, or --dir")
	}
}

// judge evaluates log against the policies in regoDir and stores the
// verdict for run id.
func judge(ctx context.Context, s store.Store, id string, log *sarif.Log, regoDir string) (*store.Verdict, error) {
	ctx, span := analyzeTracer.Start(ctx, "judge", trace.WithAttributes(
		attribute.String("sharplint.run_id", id),
	))
	defer span.End()

	eval, err := evaluator.NewEvaluator(ctx, regoDir)
	if err != nil {
		return nil, fmt.Errorf("creating evaluator: %w", err)
	}
	verdict, err := eval.Evaluate(ctx, log)
	if err != nil {
		return nil, fmt.Errorf("evaluating: %w", err)
	}
	if err := s.WriteVerdict(ctx, id, verdict); err != nil {
		return nil, fmt.Errorf("storing verdict: %w", err)
	}
	span.SetAttributes(attribute.String("sharplint.gate.decision", verdict.Decision))
	return verdict, nil
}

func render(w io.Writer, format string, result *output.AnalysisOutput) error {
	f, err := output.NewFormatter(output.ResolveFormat(format, output.IsTerminal(os.Stdout)))
	if err != nil {
		return err
	}
	data, err := f.Format(result)
	if err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}
	_, err = w.Write(data)
	return err
}
