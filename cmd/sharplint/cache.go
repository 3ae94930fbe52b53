package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chris-regnier/sharplint/internal/cache"
)

var flagCacheProject string

func init() {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the analysis result cache",
	}
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached result",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flagCacheProject)
			if err != nil {
				return err
			}
			n, err := cache.NewLocalDiskCache(cfg.Analysis.CacheDir).Clear(cmd.Context())
			if err != nil {
				return fmt.Errorf("clearing cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d cached results from %s\n", n, cfg.Analysis.CacheDir)
			return nil
		},
	}
	cacheCmd.PersistentFlags().StringVar(&flagCacheProject, "project", ".", "Project root holding .sharplint/sharplint.yaml")
	cacheCmd.AddCommand(clearCmd)

	rootCmd.AddCommand(cacheCmd)
}
