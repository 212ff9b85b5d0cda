package asr

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeModelFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("model"), 0o644); err != nil {
		t.Fatalf("write model file: %v", err)
	}
	return path
}

// TestEnsureModelWithModelFile verifies a direct model file passes the
// readiness check and reports progress.
func TestEnsureModelWithModelFile(t *testing.T) {
	modelFile := writeModelFile(t, t.TempDir(), "ggml-base.bin")
	recognizer := NewWhisperRecognizerForTests(
		"whisper-cli", modelFile, &scriptedRunner{}, os.Stat, os.ReadDir, os.ReadFile, os.MkdirTemp,
	)

	var stages []string
	err := recognizer.EnsureModel(func(stage string, fraction float64, message string) {
		stages = append(stages, stage)
	})
	if err != nil {
		t.Fatalf("ensure model: %v", err)
	}
	if len(stages) != 2 {
		t.Fatalf("progress callbacks = %d, want 2", len(stages))
	}
	if !recognizer.HasModel() {
		t.Fatal("expected model present")
	}
}

// TestEnsureModelMissingPath verifies missing artifacts map to
// ErrModelUnavailable.
func TestEnsureModelMissingPath(t *testing.T) {
	recognizer := NewWhisperRecognizerForTests(
		"whisper-cli", filepath.Join(t.TempDir(), "nope.bin"),
		&scriptedRunner{}, os.Stat, os.ReadDir, os.ReadFile, os.MkdirTemp,
	)

	if err := recognizer.EnsureModel(nil); !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("error = %v, want %v", err, ErrModelUnavailable)
	}
	if recognizer.HasModel() {
		t.Fatal("expected no model")
	}
}

// TestResolveModelFilePicksFirstSortedModel verifies directory scanning
// prefers the lexicographically first .bin/.gguf artifact.
func TestResolveModelFilePicksFirstSortedModel(t *testing.T) {
	dir := t.TempDir()
	writeModelFile(t, dir, "ggml-small.bin")
	writeModelFile(t, dir, "ggml-base.bin")
	writeModelFile(t, dir, "readme.txt")

	recognizer := NewWhisperRecognizerForTests(
		"whisper-cli", dir, &scriptedRunner{}, os.Stat, os.ReadDir, os.ReadFile, os.MkdirTemp,
	)

	resolved, err := recognizer.resolveModelFile()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if filepath.Base(resolved) != "ggml-base.bin" {
		t.Fatalf("resolved = %q, want ggml-base.bin", resolved)
	}
}

// TestResolveModelFileEmptyDirectory verifies a model directory with no
// artifacts fails readiness.
func TestResolveModelFileEmptyDirectory(t *testing.T) {
	recognizer := NewWhisperRecognizerForTests(
		"whisper-cli", t.TempDir(), &scriptedRunner{}, os.Stat, os.ReadDir, os.ReadFile, os.MkdirTemp,
	)

	if recognizer.HasModel() {
		t.Fatal("expected empty directory to have no model")
	}
}

// TestDecodeReadsTranscript verifies the CLI invocation and transcript
// pickup.
func TestDecodeReadsTranscript(t *testing.T) {
	modelFile := writeModelFile(t, t.TempDir(), "ggml-base.bin")
	outDir := t.TempDir()

	runner := &scriptedRunner{results: map[string]commandResult{}}
	recognizer := NewWhisperRecognizerForTests(
		"whisper-cli", modelFile, runner, os.Stat, os.ReadDir,
		func(name string) ([]byte, error) {
			if name != filepath.Join(outDir, "chunk.txt") {
				t.Fatalf("read %q, want transcript path", name)
			}
			return []byte("  hello from whisper \n"), nil
		},
		func(dir, pattern string) (string, error) { return outDir, nil },
	)

	text, err := recognizer.Decode(context.Background(), "chunk.wav", "zh")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if text != "hello from whisper" {
		t.Fatalf("text = %q", text)
	}

	if len(runner.calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(runner.calls))
	}
	joined := strings.Join(runner.calls[0].Args, " ")
	for _, want := range []string{"-m " + modelFile, "-f chunk.wav", "-otxt", "-l zh"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("decode args %q missing %q", joined, want)
		}
	}
}

// TestDecodeAutoLanguageOmitsFlag verifies "auto" suppresses the
// language override.
func TestDecodeAutoLanguageOmitsFlag(t *testing.T) {
	modelFile := writeModelFile(t, t.TempDir(), "ggml-base.bin")
	runner := &scriptedRunner{results: map[string]commandResult{}}
	recognizer := NewWhisperRecognizerForTests(
		"whisper-cli", modelFile, runner, os.Stat, os.ReadDir,
		func(name string) ([]byte, error) { return []byte("text"), nil },
		func(dir, pattern string) (string, error) { return t.TempDir(), nil },
	)

	if _, err := recognizer.Decode(context.Background(), "chunk.wav", "auto"); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, arg := range runner.calls[0].Args {
		if arg == "-l" {
			t.Fatalf("decode args %v include language flag for auto", runner.calls[0].Args)
		}
	}
}

// TestDecodeCommandFailure verifies CLI failures propagate as plain
// errors.
func TestDecodeCommandFailure(t *testing.T) {
	modelFile := writeModelFile(t, t.TempDir(), "ggml-base.bin")
	runner := &scriptedRunner{
		results: map[string]commandResult{"whisper-cli": {ExitCode: 3}},
		errs:    map[string]error{"whisper-cli": errors.New("exit status 3")},
	}
	recognizer := NewWhisperRecognizerForTests(
		"whisper-cli", modelFile, runner, os.Stat, os.ReadDir, os.ReadFile, os.MkdirTemp,
	)

	if _, err := recognizer.Decode(context.Background(), "chunk.wav", ""); err == nil {
		t.Fatal("expected decode error")
	}
}

// TestNormalizeLanguage checks auto and whitespace handling.
func TestNormalizeLanguage(t *testing.T) {
	cases := map[string]string{
		"":      "",
		"auto":  "",
		"AUTO":  "",
		" zh ":  "zh",
		"en-US": "en-US",
	}
	for raw, want := range cases {
		if got := normalizeLanguage(raw); got != want {
			t.Fatalf("normalizeLanguage(%q) = %q, want %q", raw, got, want)
		}
	}
}
