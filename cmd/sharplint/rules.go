package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/chris-regnier/sharplint/internal/analysis"
	"github.com/chris-regnier/sharplint/internal/rules"
)

var (
	flagRulesProject string
	flagRulesTag     string
	flagRulesJSON    bool
)

func init() {
	rulesCmd := &cobra.Command{
		Use:   "rules",
		Short: "List the built-in rules with their effective configuration",
		RunE:  runRules,
	}

	rulesCmd.Flags().StringVar(&flagRulesProject, "project", ".", "Project root holding .sharplint/sharplint.yaml")
	rulesCmd.Flags().StringVar(&flagRulesTag, "tag", "", "Only list rules carrying this tag")
	rulesCmd.Flags().BoolVar(&flagRulesJSON, "json", false, "Print the catalog as JSON")

	rootCmd.AddCommand(rulesCmd)
}

// ruleRow is one catalog entry after configuration is applied.
type ruleRow struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Severity    string   `json:"severity"`
	Enabled     bool     `json:"enabled"`
	Tags        []string `json:"tags,omitempty"`
	Remediation string   `json:"remediation,omitempty"`
}

func runRules(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(flagRulesProject)
	if err != nil {
		return err
	}
	opts, err := cfg.AnalysisOptions()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	rows := catalog(rules.DefaultRegistry().Descriptors(), opts, flagRulesTag)
	if flagRulesJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	renderRules(cmd.OutOrStdout(), rows)
	return nil
}

func catalog(descriptors []*analysis.Descriptor, opts analysis.Options, tag string) []ruleRow {
	rows := make([]ruleRow, 0, len(descriptors))
	for _, d := range descriptors {
		if tag != "" && !d.HasTag(tag) {
			continue
		}
		rows = append(rows, ruleRow{
			ID:          d.ID,
			Title:       d.Title,
			Severity:    opts.Severity(d).String(),
			Enabled:     opts.Enabled(d),
			Tags:        d.Tags,
			Remediation: d.Remediation,
		})
	}
	return rows
}

func renderRules(w io.Writer, rows []ruleRow) {
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rules)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Title", "Severity", "Enabled", "Tags", "Fix"})
	for _, r := range rows {
		enabled := "no"
		if r.Enabled {
			enabled = "yes"
		}
		t.AppendRow(table.Row{r.ID, r.Title, r.Severity, enabled, strings.Join(r.Tags, ", "), r.Remediation})
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rules)\n", len(rows))
}
