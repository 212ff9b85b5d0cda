package domain

import "time"

// DiagnosticStatus indicates whether a single environment check passed.
type DiagnosticStatus string

const (
	DiagnosticStatusPass DiagnosticStatus = "pass"
	DiagnosticStatusFail DiagnosticStatus = "fail"
)

// Item ids for the environment checks run before a transcription task
// can start.
const (
	DiagnosticModelPath  = "model_path"
	DiagnosticOutputDir  = "output_dir"
	DiagnosticToolPrefix = "tool_"
)

// ToolDiagnosticID builds the item id for a required CLI tool check
// (ffmpeg, ffprobe, whisper-cli).
func ToolDiagnosticID(tool string) string {
	return DiagnosticToolPrefix + tool
}

// DiagnosticItem is one environment check result. Failed items carry a
// remediation hint surfaced next to the transcription controls.
type DiagnosticItem struct {
	ID      string           `json:"id"`
	Name    string           `json:"name"`
	Status  DiagnosticStatus `json:"status"`
	Message string           `json:"message"`
	Hint    string           `json:"hint,omitempty"`
}

// Failed reports whether this check blocks transcription.
func (i DiagnosticItem) Failed() bool {
	return i.Status == DiagnosticStatusFail
}

// DiagnosticReport aggregates environment checks for the UI and for
// remediation requests.
type DiagnosticReport struct {
	GeneratedAt time.Time        `json:"generatedAt"`
	HasFailures bool             `json:"hasFailures"`
	Items       []DiagnosticItem `json:"items"`
}
