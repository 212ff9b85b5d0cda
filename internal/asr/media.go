package asr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Chunk is one extracted slice of source audio, stored as a 16 kHz mono
// PCM WAV file ready for decoding.
type Chunk struct {
	Path string

	tempDir string
}

// Cleanup removes the chunk's temporary files. Best effort; errors are
// discarded.
func (c Chunk) Cleanup() {
	if c.tempDir != "" {
		_ = os.RemoveAll(c.tempDir)
		return
	}
	if c.Path != "" {
		_ = os.Remove(c.Path)
	}
}

// MediaTool probes source durations and extracts decodable audio chunks.
type MediaTool interface {
	ProbeDurationMillis(ctx context.Context, path string) (int64, error)
	ExtractChunk(ctx context.Context, path string, startMillis, durationMillis int64) (Chunk, error)
}

// FFmpegTool implements MediaTool on top of the ffprobe and ffmpeg
// binaries.
type FFmpegTool struct {
	ffprobePath string
	ffmpegPath  string
	runner      commandRunner
	mkdirTemp   func(dir, pattern string) (string, error)
}

// NewFFmpegTool constructs the production media tool with OS dependencies.
func NewFFmpegTool() *FFmpegTool {
	return &FFmpegTool{
		ffprobePath: "ffprobe",
		ffmpegPath:  "ffmpeg",
		runner:      &execRunner{},
		mkdirTemp:   os.MkdirTemp,
	}
}

// ProbeDurationMillis returns the source duration in milliseconds.
func (t *FFmpegTool) ProbeDurationMillis(ctx context.Context, path string) (int64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	result, err := t.runner.Run(ctx, t.ffprobePath, args...)
	log := CommandLog{
		Command:  t.ffprobePath,
		Args:     args,
		ExitCode: result.ExitCode,
		Stdout:   result.Stdout,
		Stderr:   result.Stderr,
	}
	if err != nil {
		return 0, &StageError{
			Stage:      "probe",
			Message:    "ffprobe duration query failed",
			CommandLog: log,
			Err:        err,
		}
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(result.Stdout), 64)
	if err != nil {
		return 0, &StageError{
			Stage:      "probe",
			Message:    "cannot parse audio duration",
			CommandLog: log,
			Err:        err,
		}
	}
	return int64(seconds * 1000), nil
}

// ExtractChunk slices [startMillis, startMillis+durationMillis) from the
// source into a mono 16 kHz WAV file.
func (t *FFmpegTool) ExtractChunk(ctx context.Context, path string, startMillis, durationMillis int64) (Chunk, error) {
	dir, err := t.mkdirTemp("", "audioscribe-chunk-*")
	if err != nil {
		return Chunk{}, &StageError{
			Stage:   "extract",
			Message: "failed to create temporary chunk workspace",
			Err:     err,
		}
	}

	outPath := filepath.Join(dir, "chunk.wav")
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-ss", formatMillis(startMillis),
		"-i", path,
		"-t", formatMillis(durationMillis),
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		outPath,
	}

	result, err := t.runner.Run(ctx, t.ffmpegPath, args...)
	if err != nil {
		_ = os.RemoveAll(dir)
		return Chunk{}, &StageError{
			Stage:   "extract",
			Message: "ffmpeg chunk extraction failed",
			CommandLog: CommandLog{
				Command:  t.ffmpegPath,
				Args:     args,
				ExitCode: result.ExitCode,
				Stdout:   result.Stdout,
				Stderr:   result.Stderr,
			},
			Err: err,
		}
	}

	return Chunk{Path: outPath, tempDir: dir}, nil
}

// formatMillis renders a millisecond offset as fractional seconds for
// ffmpeg CLI flags.
func formatMillis(millis int64) string {
	return fmt.Sprintf("%.3f", float64(millis)/1000.0)
}

// NewFFmpegToolForTests constructs a media tool with injectable
// dependencies.
func NewFFmpegToolForTests(
	ffprobePath string,
	ffmpegPath string,
	runner commandRunner,
	mkdirTemp func(dir, pattern string) (string, error),
) *FFmpegTool {
	return &FFmpegTool{
		ffprobePath: ffprobePath,
		ffmpegPath:  ffmpegPath,
		runner:      runner,
		mkdirTemp:   mkdirTemp,
	}
}
