package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"audioscribe/internal/asr"
	"audioscribe/internal/domain"
	"audioscribe/internal/export"
	"audioscribe/internal/tasks"
)

// ErrNoActiveControl is returned when pausing or resuming a task that
// has no running pipeline, e.g. one that already finished.
var ErrNoActiveControl = errors.New("no active control for task")

// CreateTask copies the source media into the upload workspace,
// registers a queued task record, and starts the pipeline worker.
func (a *App) CreateTask(inputPath, language string) (string, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return "", fmt.Errorf("load settings: %w", err)
	}
	if strings.TrimSpace(language) == "" {
		language = settings.Language
	}

	taskID := strings.ReplaceAll(uuid.NewString(), "-", "")
	savedPath, err := a.saveSource(inputPath, taskID)
	if err != nil {
		return "", fmt.Errorf("save source media: %w", err)
	}

	record := domain.TaskRecord{
		ID:     taskID,
		Status: domain.TaskStatusQueued,
		Source: map[string]string{
			"type":     "upload",
			"name":     filepath.Base(inputPath),
			"path":     savedPath,
			"language": language,
		},
	}
	if _, err := a.Tasks.Create(record); err != nil {
		_ = os.Remove(savedPath)
		return "", err
	}

	control := tasks.NewControl()
	a.Controls.Put(taskID, control)
	a.watchTask(taskID)

	go a.runTask(taskID, savedPath, language, settings, control)
	return taskID, nil
}

// GetTask returns the full snapshot for one task.
func (a *App) GetTask(taskID string) (domain.TaskRecord, error) {
	return a.Tasks.Get(taskID)
}

// ListTasks returns snapshots of all known tasks.
func (a *App) ListTasks() []domain.TaskRecord {
	return a.Tasks.List()
}

// DeleteTask cancels the task if running, removes its source artifact,
// and drops the record. Subscriber streams terminate.
func (a *App) DeleteTask(taskID string) error {
	record, err := a.Tasks.Get(taskID)
	if err != nil {
		return err
	}

	if control, ok := a.Controls.Get(taskID); ok {
		control.Cancel()
		a.Controls.Remove(taskID)
	}

	// Best-effort cleanup; a missing source file is not an error.
	if sourcePath := record.Source["path"]; sourcePath != "" {
		if err := os.Remove(sourcePath); err != nil && !os.IsNotExist(err) {
			a.emitEvent("task:cleanup-error", fmt.Sprintf("remove %s: %v", sourcePath, err))
		}
	}

	a.unwatchTask(taskID)
	return a.Tasks.Delete(taskID)
}

// PauseTask closes the task's pause gate and records the paused state.
func (a *App) PauseTask(taskID string) error {
	control, ok := a.Controls.Get(taskID)
	if !ok {
		return ErrNoActiveControl
	}

	control.Pause()
	status := domain.TaskStatusPaused
	message := "paused"
	_, err := a.Tasks.Apply(taskID, tasks.Update{
		Status:  &status,
		Message: &message,
		Log:     &domain.TaskLog{Kind: "info", Message: "task paused"},
	})
	return err
}

// ResumeTask reopens the task's pause gate and records the running
// state.
func (a *App) ResumeTask(taskID string) error {
	control, ok := a.Controls.Get(taskID)
	if !ok {
		return ErrNoActiveControl
	}

	control.Resume()
	status := domain.TaskStatusRunning
	message := "resumed"
	_, err := a.Tasks.Apply(taskID, tasks.Update{
		Status:  &status,
		Message: &message,
		Log:     &domain.TaskLog{Kind: "info", Message: "task resumed"},
	})
	return err
}

// CancelTask cancels a running task. The worker observes the flag at
// the next chunk boundary and writes the terminal cancelled state with
// whatever partial output accumulated.
func (a *App) CancelTask(taskID string) error {
	control, ok := a.Controls.Get(taskID)
	if !ok {
		return ErrNoActiveControl
	}

	control.Cancel()
	_, err := a.Tasks.Apply(taskID, tasks.Update{
		Log: &domain.TaskLog{Kind: "info", Message: "cancellation requested"},
	})
	return err
}

// ExportTask renders the task result in the requested format.
func (a *App) ExportTask(taskID, format string) (string, error) {
	record, err := a.Tasks.Get(taskID)
	if err != nil {
		return "", err
	}

	settings, err := a.Store.Load()
	if err != nil {
		return "", fmt.Errorf("load settings: %w", err)
	}

	return export.Render(record, export.Format(format), export.ReflowOptions{
		MaxChars:          settings.MaxCueChars,
		MaxDurationMillis: settings.MaxCueDurationMillis,
		MinDurationMillis: settings.MinCueDurationMillis,
	})
}

// SaveExport writes the rendered export into the configured output
// directory and returns the file path.
func (a *App) SaveExport(taskID, format string) (string, error) {
	content, err := a.ExportTask(taskID, format)
	if err != nil {
		return "", err
	}

	settings, err := a.Store.Load()
	if err != nil {
		return "", fmt.Errorf("load settings: %w", err)
	}
	if strings.TrimSpace(settings.OutputDir) == "" {
		return "", fmt.Errorf("output directory is not configured")
	}
	if err := os.MkdirAll(settings.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	outPath := filepath.Join(settings.OutputDir, taskID+"."+strings.ToLower(format))
	if err := os.WriteFile(outPath, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return outPath, nil
}

// WatchTask starts pushing task snapshots to the UI as "task:update"
// events until the task is deleted or UnwatchTask is called.
func (a *App) WatchTask(taskID string) {
	a.watchTask(taskID)
}

// UnwatchTask stops the snapshot stream for one task.
func (a *App) UnwatchTask(taskID string) {
	a.unwatchTask(taskID)
}

// runTask drives the pipeline worker for one task and writes the
// terminal state back exactly once.
func (a *App) runTask(taskID, sourcePath, language string, settings domain.Settings, control *tasks.Control) {
	defer func() {
		a.Controls.Remove(taskID)
		if err := os.Remove(sourcePath); err != nil && !os.IsNotExist(err) {
			a.emitEvent("task:cleanup-error", fmt.Sprintf("remove %s: %v", sourcePath, err))
		}
	}()

	a.applyTaskUpdate(taskID, taskUpdate{
		status:   statusPtr(domain.TaskStatusRunning),
		progress: floatPtr(0.01),
		message:  strPtr("preparing"),
		log:      &domain.TaskLog{Kind: "info", Message: "task started"},
	})

	engine := a.engineFor(settings)
	onProgress := func(progress float64, stage string, partialText string) {
		status := domain.TaskStatusRunning
		if control.Paused() {
			status = domain.TaskStatusPaused
		}
		a.applyTaskUpdate(taskID, taskUpdate{
			status:     &status,
			progress:   &progress,
			message:    &stage,
			resultText: &partialText,
			log: &domain.TaskLog{
				Kind:     "progress",
				Message:  stage,
				Progress: progress,
			},
		})
	}

	result, err := engine.Transcribe(context.Background(), asr.Request{
		InputPath:  sourcePath,
		Language:   language,
		Control:    control,
		OnProgress: onProgress,
	})
	if err != nil {
		// Failed tasks keep their last progress value; the error
		// message is preserved verbatim for the UI.
		a.applyTaskUpdate(taskID, taskUpdate{
			status:  statusPtr(domain.TaskStatusFailed),
			message: strPtr("failed"),
			errText: strPtr(err.Error()),
			log:     &domain.TaskLog{Kind: "error", Message: err.Error()},
		})
		return
	}

	if control.Cancelled() {
		a.applyTaskUpdate(taskID, taskUpdate{
			status:     statusPtr(domain.TaskStatusCancelled),
			message:    strPtr("cancelled"),
			resultText: &result.Text,
			segments:   result.Segments,
			log:        &domain.TaskLog{Kind: "info", Message: "task cancelled mid-run"},
		})
		return
	}

	a.applyTaskUpdate(taskID, taskUpdate{
		status:     statusPtr(domain.TaskStatusCompleted),
		progress:   floatPtr(1.0),
		message:    strPtr("completed"),
		resultText: &result.Text,
		segments:   result.Segments,
		log:        &domain.TaskLog{Kind: "info", Message: "task completed"},
	})
}

// taskUpdate mirrors tasks.Update with bootstrap-local field names.
type taskUpdate struct {
	status     *domain.TaskStatus
	progress   *float64
	message    *string
	resultText *string
	segments   []domain.Segment
	errText    *string
	log        *domain.TaskLog
}

// applyTaskUpdate forwards a partial update to the task store. A
// NotFound result means the task was deleted mid-run; the worker stops
// reporting silently.
func (a *App) applyTaskUpdate(taskID string, update taskUpdate) {
	_, err := a.Tasks.Apply(taskID, tasks.Update{
		Status:     update.status,
		Progress:   update.progress,
		Message:    update.message,
		ResultText: update.resultText,
		Segments:   update.segments,
		Error:      update.errText,
		Log:        update.log,
	})
	if err != nil && !errors.Is(err, tasks.ErrNotFound) {
		a.emitEvent("task:store-error", err.Error())
	}
}

// watchTask subscribes to store snapshots for one task and forwards
// them to the UI runtime.
func (a *App) watchTask(taskID string) {
	a.mu.Lock()
	if _, exists := a.watchers[taskID]; exists {
		a.mu.Unlock()
		return
	}
	snapshots, cancel := a.Tasks.Subscribe(taskID)
	a.watchers[taskID] = cancel
	a.mu.Unlock()

	go func() {
		for snapshot := range snapshots {
			a.emitEvent("task:update", snapshot)
		}
		a.emitEvent("task:closed", taskID)

		a.mu.Lock()
		delete(a.watchers, taskID)
		a.mu.Unlock()
	}()
}

// unwatchTask cancels the snapshot subscription for one task.
func (a *App) unwatchTask(taskID string) {
	a.mu.Lock()
	cancel := a.watchers[taskID]
	delete(a.watchers, taskID)
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// saveSource copies the input media into the upload workspace so the
// original file is never touched by cleanup.
func (a *App) saveSource(inputPath, taskID string) (string, error) {
	source, err := os.Open(inputPath)
	if err != nil {
		return "", err
	}
	defer source.Close()

	if err := os.MkdirAll(a.uploadDir, 0o755); err != nil {
		return "", err
	}

	suffix := filepath.Ext(inputPath)
	if suffix == "" {
		suffix = ".wav"
	}
	targetPath := filepath.Join(a.uploadDir, taskID+suffix)

	target, err := os.Create(targetPath)
	if err != nil {
		return "", err
	}
	defer target.Close()

	if _, err := io.Copy(target, source); err != nil {
		_ = os.Remove(targetPath)
		return "", err
	}
	return targetPath, nil
}

func statusPtr(status domain.TaskStatus) *domain.TaskStatus { return &status }

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }
