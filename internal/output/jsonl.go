package output

import (
	"encoding/json"
	"io"

	"github.com/ancients-collective/vitals/internal/types"
)

// JSONLFormatter writes a scan as newline-delimited JSON (one object per line).
// The first line is a header with system information and the scores.
// Subsequent lines are individual issues.
type JSONLFormatter struct{}

// Write renders the scan as JSONL: header line + one line per issue.
func (f *JSONLFormatter) Write(w io.Writer, result *types.ScanResult) error {
	enc := json.NewEncoder(w)

	// Header line
	header := struct {
		Type       string           `json:"type"`
		ScanID     string           `json:"scan_id"`
		Timestamp  string           `json:"timestamp"`
		DurationMS int64            `json:"duration_ms"`
		System     types.SystemInfo `json:"system"`
		Scores     types.Scores     `json:"scores"`
	}{
		Type:       "header",
		ScanID:     result.ScanID,
		Timestamp:  result.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		DurationMS: result.DurationMS,
		System:     result.System,
		Scores:     result.Scores,
	}
	if err := enc.Encode(header); err != nil {
		return err
	}

	// One line per issue
	for _, issue := range result.Issues {
		line := struct {
			Type  string      `json:"type"`
			Issue types.Issue `json:"issue"`
		}{
			Type:  "issue",
			Issue: issue,
		}
		if err := enc.Encode(line); err != nil {
			return err
		}
	}

	return nil
}
