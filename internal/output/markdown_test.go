package output

import (
	"strings"
	"testing"

	"github.com/chris-regnier/sharplint/internal/sarif"
	"github.com/chris-regnier/sharplint/internal/store"
)

func TestMarkdownFormatter(t *testing.T) {
	data, err := (&MarkdownFormatter{}).Format(testOutput("reject"))
	if err != nil {
		t.Fatal(err)
	}
	md := string(data)

	for _, want := range []string{
		"## sharplint Analysis Summary",
		"**Decision:** :x: Reject | **Findings:** 3 | **Files:** 2",
		"| error | 1 |",
		"| warning | 2 |",
		"| S1172 | Unused method parameters should be removed | 2 |",
		"<code>src/A.cs:12</code>",
		"**Severity:** major",
		"**Estimated fix:** 5min",
		"**File:** `src/B.cs` line 3, column 9",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("expected markdown to contain %q\n%s", want, md)
		}
	}

	// errors come before warnings
	if strings.Index(md, "S927: ") > strings.Index(md, "S1172: ") {
		t.Error("expected the error finding first")
	}
}

func TestMarkdownFormatter_NoFindings(t *testing.T) {
	out := &AnalysisOutput{
		Verdict:  &store.Verdict{Decision: "merge"},
		SARIFLog: sarif.NewLog("sharplint", "dev"),
	}
	data, err := (&MarkdownFormatter{}).Format(out)
	if err != nil {
		t.Fatal(err)
	}
	md := string(data)
	if !strings.Contains(md, "No findings detected.") || !strings.Contains(md, ":white_check_mark: Merge") {
		t.Errorf("unexpected markdown:\n%s", md)
	}
	if strings.Contains(md, "### Findings") {
		t.Error("expected no findings section")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := truncate("0123456789abc", 10); got != "0123456..." {
		t.Errorf("got %q", got)
	}
}
