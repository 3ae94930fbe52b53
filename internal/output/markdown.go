package output

import (
	"fmt"
	"sort"
	"strings"

	"github.com/chris-regnier/sharplint/internal/sarif"
)

// MarkdownFormatter renders GitHub-Flavored Markdown for PR comments, one
// collapsible section per finding.
type MarkdownFormatter struct{}

func severityEmoji(level string) string {
	switch level {
	case "error":
		return ":red_circle:"
	case "warning":
		return ":warning:"
	case "note":
		return ":information_source:"
	default:
		return ":grey_question:"
	}
}

func decisionBanner(decision string) string {
	switch decision {
	case "merge":
		return ":white_check_mark: Merge"
	case "reject":
		return ":x: Reject"
	case "review":
		return ":warning: Review Required"
	default:
		return decision
	}
}

func (f *MarkdownFormatter) Format(result *AnalysisOutput) ([]byte, error) {
	if result == nil || result.Verdict == nil {
		return nil, fmt.Errorf("markdown formatter: verdict is required")
	}

	var results []sarif.Result
	if result.SARIFLog != nil {
		results = result.SARIFLog.Results()
	}

	files := make(map[string]bool)
	byLevel := make(map[string]int)
	byRule := make(map[string]int)
	for _, r := range results {
		if fp := resultFilePath(r); fp != "" {
			files[fp] = true
		}
		byLevel[r.Level]++
		byRule[r.RuleID]++
	}

	var b strings.Builder
	b.WriteString("## sharplint Analysis Summary\n\n")
	fmt.Fprintf(&b, "**Decision:** %s | **Findings:** %d | **Files:** %d\n",
		decisionBanner(result.Verdict.Decision), len(results), len(files))

	if len(results) == 0 {
		b.WriteString("\nNo findings detected.\n")
	} else {
		b.WriteString("\n### Findings by Severity\n")
		b.WriteString("| Severity | Count |\n")
		b.WriteString("|----------|-------|\n")
		for _, level := range []string{"error", "warning", "note"} {
			if n := byLevel[level]; n > 0 {
				fmt.Fprintf(&b, "| %s | %d |\n", level, n)
			}
		}

		b.WriteString("\n### Findings by Rule\n")
		b.WriteString("| Rule | Title | Count |\n")
		b.WriteString("|------|-------|-------|\n")
		ids := make([]string, 0, len(byRule))
		for id := range byRule {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Fprintf(&b, "| %s | %s | %d |\n", id, ruleTitle(result.SARIFLog, id), byRule[id])
		}

		sorted := append([]sarif.Result(nil), results...)
		sort.SliceStable(sorted, func(i, j int) bool {
			pi, pj := severityPriority(sorted[i].Level), severityPriority(sorted[j].Level)
			if pi != pj {
				return pi < pj
			}
			return resultFilePath(sorted[i]) < resultFilePath(sorted[j])
		})

		b.WriteString("\n### Findings\n\n")
		for _, r := range sorted {
			writeFinding(&b, result.SARIFLog, r)
		}
	}

	b.WriteString("---\n")
	b.WriteString("*Generated by [sharplint](" + InformationURI + ")*\n")
	return []byte(b.String()), nil
}

func writeFinding(b *strings.Builder, log *sarif.Log, r sarif.Result) {
	fp := resultFilePath(r)
	region := resultRegion(r)

	where := ""
	if fp != "" {
		where = fmt.Sprintf(" in <code>%s:%d</code>", fp, region.StartLine)
	}

	b.WriteString("<details>\n")
	fmt.Fprintf(b, "<summary>%s <strong>%s</strong> %s: %s%s</summary>\n\n",
		severityEmoji(r.Level), r.Level, r.RuleID, truncate(r.Message.Text, 80), where)

	fmt.Fprintf(b, "**Rule:** %s\n", r.RuleID)
	if sev, ok := r.Properties["sharplint/severity"].(string); ok {
		fmt.Fprintf(b, "**Severity:** %s\n", sev)
	}
	if fp != "" {
		fmt.Fprintf(b, "**File:** `%s` line %d, column %d\n", fp, region.StartLine, region.StartColumn)
	}
	fmt.Fprintf(b, "\n> %s\n", r.Message.Text)

	if rd, ok := log.Rule(r.RuleID); ok {
		if rem, ok := rd.Properties["sharplint/remediation"].(string); ok {
			fmt.Fprintf(b, "\n**Estimated fix:** %s\n", rem)
		}
	}
	b.WriteString("\n</details>\n\n")
}

func ruleTitle(log *sarif.Log, id string) string {
	if rd, ok := log.Rule(id); ok {
		return rd.ShortDescription.Text
	}
	return ""
}

// truncate shortens s to maxLen bytes, ending in "...".
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
