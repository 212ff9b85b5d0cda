package domain

import "time"

// TaskStatus tracks the lifecycle of one transcription task.
type TaskStatus string

const (
	TaskStatusQueued    TaskStatus = "queued"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusPaused    TaskStatus = "paused"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Terminal reports whether no further transitions may leave this status.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// Segment is one recognized span of audio with start/end timestamps.
// Immutable once produced.
type Segment struct {
	Index       int    `json:"index"`
	StartMillis int64  `json:"start_ms"`
	EndMillis   int64  `json:"end_ms"`
	Text        string `json:"text"`
}

// TaskLog is one append-only log entry on a task record.
type TaskLog struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	Progress  float64   `json:"progress,omitempty"`
}

// TaskRecord is the full serializable state of one transcription task.
// Records are owned by the task store; every mutation goes through it.
type TaskRecord struct {
	ID         string            `json:"id"`
	Status     TaskStatus        `json:"status"`
	Progress   float64           `json:"progress"`
	Message    string            `json:"message"`
	ResultText string            `json:"result_text"`
	Segments   []Segment         `json:"segments"`
	Source     map[string]string `json:"source"`
	Error      string            `json:"error,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
	Logs       []TaskLog         `json:"logs"`
}

// Settings contains user-selectable runtime configuration.
type Settings struct {
	ModelPath            string `json:"modelPath"`
	OutputDir            string `json:"outputDir"`
	Language             string `json:"language"`
	ChunkDurationMillis  int64  `json:"chunkDurationMillis"`
	MaxCueChars          int    `json:"maxCueChars"`
	MaxCueDurationMillis int64  `json:"maxCueDurationMillis"`
	MinCueDurationMillis int64  `json:"minCueDurationMillis"`
}
