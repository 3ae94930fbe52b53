package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/chris-regnier/sharplint/internal/analysis"
	"github.com/chris-regnier/sharplint/internal/cache"
	"github.com/chris-regnier/sharplint/internal/lsp"
	"github.com/chris-regnier/sharplint/internal/rules"
	"github.com/chris-regnier/sharplint/internal/runner"
)

var (
	flagLSPProject string
	flagLSPNoCache bool
)

func init() {
	lspCmd := &cobra.Command{
		Use:   "lsp",
		Short: "Start the Language Server Protocol server",
		Long: `Start sharplint in LSP mode to report diagnostics in your editor as you
edit. The server speaks JSON-RPC on stdin/stdout; logs go to stderr.
Each open document is analyzed on its own.`,
		RunE: runLSP,
	}
	lspCmd.Flags().StringVar(&flagLSPProject, "project", ".", "Project root holding .sharplint/sharplint.yaml")
	lspCmd.Flags().BoolVar(&flagLSPNoCache, "no-cache", false, "Do not read or write cached results")

	rootCmd.AddCommand(lspCmd)
}

func runLSP(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	cfg, err := loadConfig(flagLSPProject)
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

	runOpts := []runner.Option{runner.WithEngineVersion(version)}
	var tiered *cache.TieredCache
	if cfg.Analysis.CacheEnabled() && !flagLSPNoCache {
		tiered = cache.NewTieredCache(cache.New(), cache.NewLocalDiskCache(cfg.Analysis.CacheDir))
		runOpts = append(runOpts, runner.WithCache(tiered))
	}
	analyzer := lsp.NewAnalyzer(driver, registry.Descriptors(), version, runOpts...)

	server, err := lsp.NewServer(
		bufio.NewReader(cmd.InOrStdin()),
		bufio.NewWriter(cmd.OutOrStdout()),
		analyzer.Analyze,
		lsp.ServerConfig{
			Watcher: lsp.WatcherConfigFromConfig(cfg.LSP),
			Version: version,
		},
	)
	if err != nil {
		return fmt.Errorf("creating LSP server: %w", err)
	}
	if tiered != nil {
		server.SetCacheClearer(tiered)
	}

	slog.Info("starting LSP server", "project", flagLSPProject, "cache", tiered != nil)
	return server.Run(ctx)
}
