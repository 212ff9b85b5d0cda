package asr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DownloadProgressFunc reports model preparation progress for UI display.
type DownloadProgressFunc func(stage string, fraction float64, message string)

// Recognizer is the opaque speech-recognition model: decodable audio in,
// recognized text out, plus model readiness checks.
type Recognizer interface {
	EnsureModel(onProgress DownloadProgressFunc) error
	HasModel() bool
	Decode(ctx context.Context, audioPath, language string) (string, error)
}

// WhisperRecognizer drives the whisper.cpp CLI against a local model
// file.
type WhisperRecognizer struct {
	binaryPath string
	modelPath  string
	runner     commandRunner
	stat       func(name string) (os.FileInfo, error)
	readDir    func(name string) ([]os.DirEntry, error)
	readFile   func(name string) ([]byte, error)
	mkdirTemp  func(dir, pattern string) (string, error)
	removeAll  func(path string) error
}

// NewWhisperRecognizer constructs the production recognizer. modelPath
// may be a model file or a directory holding .bin/.gguf models.
func NewWhisperRecognizer(modelPath string) *WhisperRecognizer {
	return &WhisperRecognizer{
		binaryPath: "whisper-cli",
		modelPath:  modelPath,
		runner:     &execRunner{},
		stat:       os.Stat,
		readDir:    os.ReadDir,
		readFile:   os.ReadFile,
		mkdirTemp:  os.MkdirTemp,
		removeAll:  os.RemoveAll,
	}
}

// EnsureModel verifies the configured model artifact exists. The
// whisper CLI loads the model per invocation, so readiness here is a
// filesystem check.
func (r *WhisperRecognizer) EnsureModel(onProgress DownloadProgressFunc) error {
	if onProgress != nil {
		onProgress("model", 0, "checking model artifacts")
	}

	resolved, err := r.resolveModelFile()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	if onProgress != nil {
		onProgress("model", 1, "model ready: "+filepath.Base(resolved))
	}
	return nil
}

// HasModel reports whether a usable model artifact is present.
func (r *WhisperRecognizer) HasModel() bool {
	_, err := r.resolveModelFile()
	return err == nil
}

// Decode transcribes one audio chunk and returns recognized text,
// possibly empty.
func (r *WhisperRecognizer) Decode(ctx context.Context, audioPath, language string) (string, error) {
	modelFile, err := r.resolveModelFile()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	outDir, err := r.mkdirTemp("", "audioscribe-decode-*")
	if err != nil {
		return "", fmt.Errorf("create decode workspace: %w", err)
	}
	defer func() { _ = r.removeAll(outDir) }()

	textBase := filepath.Join(outDir, "chunk")
	args := []string{
		"-m", modelFile,
		"-f", audioPath,
		"-of", textBase,
		"-otxt",
	}
	if lang := normalizeLanguage(language); lang != "" {
		args = append(args, "-l", lang)
	}

	if _, err := r.runner.Run(ctx, r.binaryPath, args...); err != nil {
		return "", fmt.Errorf("whisper decode failed: %w", err)
	}

	content, err := r.readFile(textBase + ".txt")
	if err != nil {
		return "", fmt.Errorf("read decoded transcript: %w", err)
	}
	return strings.TrimSpace(string(content)), nil
}

// resolveModelFile returns the model file path from file or directory
// input.
func (r *WhisperRecognizer) resolveModelFile() (string, error) {
	modelPath := strings.TrimSpace(r.modelPath)
	if modelPath == "" {
		return "", fmt.Errorf("model path is not configured")
	}

	info, err := r.stat(modelPath)
	if err != nil {
		return "", fmt.Errorf("cannot access model path: %s", modelPath)
	}
	if !info.IsDir() {
		return modelPath, nil
	}

	entries, err := r.readDir(modelPath)
	if err != nil {
		return "", fmt.Errorf("cannot read model directory: %s", modelPath)
	}

	modelNames := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".bin" || ext == ".gguf" {
			modelNames = append(modelNames, entry.Name())
		}
	}
	if len(modelNames) == 0 {
		return "", fmt.Errorf("no .bin or .gguf model files found in: %s", modelPath)
	}

	sort.Strings(modelNames)
	return filepath.Join(modelPath, modelNames[0]), nil
}

// normalizeLanguage maps "auto" and empty language to no CLI override.
func normalizeLanguage(raw string) string {
	lang := strings.TrimSpace(raw)
	if lang == "" || strings.EqualFold(lang, "auto") {
		return ""
	}
	return lang
}

// NewWhisperRecognizerForTests constructs a recognizer with injectable
// dependencies.
func NewWhisperRecognizerForTests(
	binaryPath string,
	modelPath string,
	runner commandRunner,
	stat func(name string) (os.FileInfo, error),
	readDir func(name string) ([]os.DirEntry, error),
	readFile func(name string) ([]byte, error),
	mkdirTemp func(dir, pattern string) (string, error),
) *WhisperRecognizer {
	return &WhisperRecognizer{
		binaryPath: binaryPath,
		modelPath:  modelPath,
		runner:     runner,
		stat:       stat,
		readDir:    readDir,
		readFile:   readFile,
		mkdirTemp:  mkdirTemp,
		removeAll:  os.RemoveAll,
	}
}
