package asr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"audioscribe/internal/domain"
)

// DefaultChunkDurationMillis is the default decode unit length.
const DefaultChunkDurationMillis int64 = 15_000

// ProgressFunc receives chunk-granular progress with a stage label and
// the partial transcript accumulated so far. It is invoked from the
// worker goroutine running the chunk loop.
type ProgressFunc func(progress float64, stage string, partialText string)

// Signal is the worker-side view of a task control: cancellation checks
// at chunk boundaries and blocking pause waits.
type Signal interface {
	Cancelled() bool
	Wait() bool
}

// Request describes one transcription run.
type Request struct {
	InputPath  string
	Language   string
	Control    Signal
	OnProgress ProgressFunc
}

// Result is the final transcription outcome. When a run was cancelled
// mid-way it holds whatever accumulated before cancellation took
// effect; the caller decides the task's terminal status.
type Result struct {
	Text           string
	Segments       []domain.Segment
	DurationMillis int64
}

// Engine drives the external recognizer over fixed-duration chunks of a
// source file, honoring pause/cancel signals and reporting progress.
type Engine struct {
	chunkMillis int64
	media       MediaTool
	recognizer  Recognizer

	loadMu sync.Mutex
	loaded bool

	// decodeMu serializes decode calls; the recognizer is not
	// guaranteed safe for concurrent use.
	decodeMu sync.Mutex
}

// NewEngine constructs an engine. chunkMillis <= 0 selects the default
// chunk duration.
func NewEngine(media MediaTool, recognizer Recognizer, chunkMillis int64) *Engine {
	if chunkMillis <= 0 {
		chunkMillis = DefaultChunkDurationMillis
	}
	return &Engine{
		chunkMillis: chunkMillis,
		media:       media,
		recognizer:  recognizer,
	}
}

// EnsureModel loads the recognizer's model once. Concurrent calls
// collapse into a single load.
func (e *Engine) EnsureModel(onProgress DownloadProgressFunc) error {
	e.loadMu.Lock()
	defer e.loadMu.Unlock()

	if e.loaded {
		return nil
	}
	if err := e.recognizer.EnsureModel(onProgress); err != nil {
		return err
	}
	e.loaded = true
	return nil
}

// HasModel reports whether the recognizer's model artifacts are present.
func (e *Engine) HasModel() bool {
	return e.recognizer.HasModel()
}

// Transcribe produces the final transcript for one source file. Probe
// and extraction failures abort the run; empty or failed decodes
// contribute no segments and are not fatal. Cancellation is observed at
// chunk boundaries and pause-wait points only; the engine never decides
// the task's terminal status.
func (e *Engine) Transcribe(ctx context.Context, req Request) (Result, error) {
	if err := e.EnsureModel(nil); err != nil {
		return Result{}, err
	}

	durationMillis, err := e.media.ProbeDurationMillis(ctx, req.InputPath)
	if err != nil {
		return Result{}, err
	}

	chunkCount := int((durationMillis + e.chunkMillis - 1) / e.chunkMillis)
	if chunkCount < 1 {
		chunkCount = 1
	}

	var accumulated []domain.Segment
	partialText := ""

	for index := 0; index < chunkCount; index++ {
		if req.Control != nil && !req.Control.Wait() {
			break
		}

		startMillis := int64(index) * e.chunkMillis
		endMillis := startMillis + e.chunkMillis
		if endMillis > durationMillis {
			endMillis = durationMillis
		}

		text, err := e.decodeChunk(ctx, req, startMillis, endMillis-startMillis)
		if err != nil {
			var stageErr *StageError
			if errors.As(err, &stageErr) {
				return Result{}, err
			}
			text = ""
		}

		if text != "" {
			sentences := splitSentences(text)
			if len(sentences) == 0 {
				sentences = []string{strings.TrimSpace(text)}
			}
			chunkSegments := allocateTimestamps(sentences, startMillis, endMillis, len(accumulated))
			accumulated = append(accumulated, chunkSegments...)
			partialText = joinSegmentText(accumulated)
		}

		if req.OnProgress != nil {
			progress := float64(index+1) / float64(chunkCount)
			stage := fmt.Sprintf("chunk %d/%d", index+1, chunkCount)
			req.OnProgress(progress, stage, partialText)
		}
	}

	return Result{
		Text:           partialText,
		Segments:       accumulated,
		DurationMillis: durationMillis,
	}, nil
}

// decodeChunk extracts and decodes one chunk. Extraction failures
// return a *StageError; decode failures return plain errors that the
// chunk loop downgrades to empty output.
func (e *Engine) decodeChunk(ctx context.Context, req Request, startMillis, durationMillis int64) (string, error) {
	chunk, err := e.media.ExtractChunk(ctx, req.InputPath, startMillis, durationMillis)
	if err != nil {
		return "", err
	}
	defer chunk.Cleanup()

	e.decodeMu.Lock()
	defer e.decodeMu.Unlock()
	return e.recognizer.Decode(ctx, chunk.Path, req.Language)
}
