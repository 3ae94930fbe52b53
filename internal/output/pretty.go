package output

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/chris-regnier/sharplint/internal/sarif"
)

var (
	fileStyle     = lipgloss.NewStyle().Bold(true).Underline(true)
	positionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	ruleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	warningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	noteStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	summaryStyle  = lipgloss.NewStyle().Bold(true)

	decisionStyles = map[string]lipgloss.Style{
		"merge":  lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true),
		"review": warningStyle,
		"reject": errorStyle,
	}
)

// PrettyFormatter renders findings for a terminal, grouped by file and
// ordered by position.
type PrettyFormatter struct{}

func levelStyle(level string) lipgloss.Style {
	switch level {
	case "error":
		return errorStyle
	case "warning":
		return warningStyle
	default:
		return noteStyle
	}
}

func (f *PrettyFormatter) Format(result *AnalysisOutput) ([]byte, error) {
	if result == nil || result.SARIFLog == nil {
		return nil, fmt.Errorf("pretty formatter: SARIF log is required")
	}

	byFile := make(map[string][]sarif.Result)
	var files []string
	for _, r := range result.SARIFLog.Results() {
		fp := resultFilePath(r)
		if _, seen := byFile[fp]; !seen {
			files = append(files, fp)
		}
		byFile[fp] = append(byFile[fp], r)
	}
	sort.Strings(files)

	var b strings.Builder
	for _, fp := range files {
		results := byFile[fp]
		sort.SliceStable(results, func(i, j int) bool {
			ri, rj := resultRegion(results[i]), resultRegion(results[j])
			if ri.StartLine != rj.StartLine {
				return ri.StartLine < rj.StartLine
			}
			return ri.StartColumn < rj.StartColumn
		})

		b.WriteString(fileStyle.Render(displayPath(fp)))
		b.WriteString("\n")
		for _, r := range results {
			region := resultRegion(r)
			pos := fmt.Sprintf("%d:%d", region.StartLine, region.StartColumn)
			fmt.Fprintf(&b, "  %s  %s  %s  %s\n",
				positionStyle.Render(fmt.Sprintf("%-8s", pos)),
				levelStyle(r.Level).Render(fmt.Sprintf("%-7s", r.Level)),
				r.Message.Text,
				ruleStyle.Render(r.RuleID),
			)
		}
		b.WriteString("\n")
	}

	counts := result.SARIFLog.CountByLevel()
	total := counts["error"] + counts["warning"] + counts["note"]
	if total == 0 {
		b.WriteString(summaryStyle.Render("No findings."))
	} else {
		b.WriteString(summaryStyle.Render(fmt.Sprintf("%d %s in %d %s",
			total, plural(total, "finding"), len(files), plural(len(files), "file"))))
		fmt.Fprintf(&b, " (%s, %s, %s)",
			errorStyle.Render(fmt.Sprintf("%d error", counts["error"])),
			warningStyle.Render(fmt.Sprintf("%d warning", counts["warning"])),
			noteStyle.Render(fmt.Sprintf("%d note", counts["note"])),
		)
	}
	b.WriteString("\n")

	if faults := faultCount(result.SARIFLog); faults > 0 {
		b.WriteString(errorStyle.Render(fmt.Sprintf("%d analyzer %s failed; results may be incomplete", faults, plural(faults, "callback"))))
		b.WriteString("\n")
	}

	if v := result.Verdict; v != nil {
		style, ok := decisionStyles[v.Decision]
		if !ok {
			style = summaryStyle
		}
		fmt.Fprintf(&b, "Decision: %s\n", style.Render(strings.ToUpper(v.Decision)))
	}
	if result.RunID != "" {
		fmt.Fprintf(&b, "%s\n", positionStyle.Render("Run: "+result.RunID))
	}
	return []byte(b.String()), nil
}

func displayPath(fp string) string {
	if fp == "" {
		return "(no file)"
	}
	return fp
}

func faultCount(log *sarif.Log) int {
	n := 0
	for _, run := range log.Runs {
		for _, inv := range run.Invocations {
			n += len(inv.ToolExecutionNotifications)
		}
	}
	return n
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
