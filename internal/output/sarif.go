package output

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/chris-regnier/sharplint/internal/sarif"
)

// InformationURI is written into the SARIF tool driver.
const InformationURI = "https://github.com/chris-regnier/sharplint"

// SARIFFormatter renders the SARIF log enriched for GitHub Code Scanning:
// partial fingerprints, security-severity, precision and the working
// directory.
type SARIFFormatter struct{}

func (f *SARIFFormatter) Format(result *AnalysisOutput) ([]byte, error) {
	if result == nil || result.SARIFLog == nil {
		return nil, fmt.Errorf("sarif formatter: SARIF log is required")
	}

	log := result.SARIFLog
	for i := range log.Runs {
		enrichRun(&log.Runs[i])
	}

	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("sarif formatter: %w", err)
	}
	return append(data, '\n'), nil
}

func enrichRun(run *sarif.Run) {
	run.Tool.Driver.InformationURI = InformationURI

	if len(run.Invocations) == 0 {
		run.Invocations = []sarif.Invocation{{ExecutionSuccessful: true}}
	}
	if wd, err := os.Getwd(); err == nil {
		for i := range run.Invocations {
			if run.Invocations[i].WorkingDirectory == nil {
				run.Invocations[i].WorkingDirectory = &sarif.ArtifactLocation{URI: wd}
			}
		}
	}

	for i := range run.Tool.Driver.Rules {
		rd := &run.Tool.Driver.Rules[i]
		if rd.Properties == nil {
			rd.Properties = make(map[string]any)
		}
		rd.Properties["precision"] = "very-high"
		if rd.DefaultConfig != nil {
			rd.Properties["security-severity"] = securitySeverity(rd.DefaultConfig.Level)
		}
	}

	for j := range run.Results {
		enrichResult(&run.Results[j])
	}
}

func enrichResult(r *sarif.Result) {
	if r.PartialFingerprints == nil {
		r.PartialFingerprints = make(map[string]string)
	}
	if r.Properties == nil {
		r.Properties = make(map[string]any)
	}
	r.PartialFingerprints["primaryLocationLineHash"] = fingerprint(r)
	r.Properties["security-severity"] = securitySeverity(r.Level)
}

// fingerprint hashes rule, file, start line and message.
func fingerprint(r *sarif.Result) string {
	region := resultRegion(*r)
	input := fmt.Sprintf("%s|%s|%d|%s", r.RuleID, resultFilePath(*r), region.StartLine, r.Message.Text)
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:16])
}

// securitySeverity maps SARIF levels to Code Scanning scores.
func securitySeverity(level string) string {
	switch level {
	case "error":
		return "8.0"
	case "warning":
		return "5.0"
	default:
		return "2.0"
	}
}
