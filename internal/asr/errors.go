package asr

import (
	"errors"
	"fmt"
)

// ErrModelUnavailable indicates required model artifacts are missing or
// failed to load.
var ErrModelUnavailable = errors.New("speech model unavailable")

// StageError is a stage-aware pipeline failure with optional command
// context. Probe and extraction failures abort the whole transcription.
type StageError struct {
	Stage      string     `json:"stage"`
	Message    string     `json:"message"`
	CommandLog CommandLog `json:"commandLog"`
	Err        error      `json:"-"`
}

// Error formats pipeline failures for logs and UI.
func (e *StageError) Error() string {
	if e == nil {
		return ""
	}
	if e.CommandLog.Command == "" {
		return fmt.Sprintf("%s: %s", e.Stage, e.Message)
	}

	return fmt.Sprintf(
		"%s: %s (cmd=%s exit=%d)",
		e.Stage,
		e.Message,
		e.CommandLog.Command,
		e.CommandLog.ExitCode,
	)
}

// Unwrap exposes underlying error for errors.Is / errors.As.
func (e *StageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
