package diagnostics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"audioscribe/internal/domain"
)

func allToolsFound(name string) (string, error) {
	return "/usr/bin/" + name, nil
}

func newTestChecker(lookPath func(string) (string, error)) *Checker {
	return NewCheckerForTests(lookPath, os.Stat, os.ReadDir, os.MkdirAll, os.CreateTemp, os.Remove)
}

func itemByID(t *testing.T, report domain.DiagnosticReport, id string) domain.DiagnosticItem {
	t.Helper()
	for _, item := range report.Items {
		if item.ID == id {
			return item
		}
	}
	t.Fatalf("no diagnostic item %q in %+v", id, report.Items)
	return domain.DiagnosticItem{}
}

// TestRunAllChecksPass verifies a healthy environment reports no
// failures.
func TestRunAllChecksPass(t *testing.T) {
	modelDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(modelDir, "ggml-base.bin"), []byte("model"), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}

	checker := newTestChecker(allToolsFound)
	report := checker.Run(domain.Settings{
		ModelPath: modelDir,
		OutputDir: t.TempDir(),
	})

	if report.HasFailures {
		t.Fatalf("report has failures: %+v", report.Items)
	}
	if len(report.Items) != 5 {
		t.Fatalf("items = %d, want 5", len(report.Items))
	}
	if report.GeneratedAt.IsZero() {
		t.Fatal("GeneratedAt not set")
	}
}

// TestRunMissingTool verifies an absent CLI binary fails its check.
func TestRunMissingTool(t *testing.T) {
	modelDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(modelDir, "ggml-base.bin"), []byte("model"), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}

	checker := newTestChecker(func(name string) (string, error) {
		if name == "whisper-cli" {
			return "", errors.New("not found")
		}
		return "/usr/bin/" + name, nil
	})
	report := checker.Run(domain.Settings{
		ModelPath: modelDir,
		OutputDir: t.TempDir(),
	})

	if !report.HasFailures {
		t.Fatal("expected failures")
	}
	item := itemByID(t, report, "tool_whisper-cli")
	if item.Status != domain.DiagnosticStatusFail {
		t.Fatalf("whisper-cli status = %s, want fail", item.Status)
	}
	if itemByID(t, report, "tool_ffmpeg").Status != domain.DiagnosticStatusPass {
		t.Fatal("ffmpeg check should pass")
	}
}

// TestRunModelFileDirectly verifies a file-valued model path passes.
func TestRunModelFileDirectly(t *testing.T) {
	modelFile := filepath.Join(t.TempDir(), "ggml-base.bin")
	if err := os.WriteFile(modelFile, []byte("model"), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}

	checker := newTestChecker(allToolsFound)
	report := checker.Run(domain.Settings{ModelPath: modelFile, OutputDir: t.TempDir()})

	if item := itemByID(t, report, "model_path"); item.Status != domain.DiagnosticStatusPass {
		t.Fatalf("model path status = %s, message %q", item.Status, item.Message)
	}
}

// TestRunModelDirectoryWithoutModels verifies a directory lacking .bin
// or .gguf files fails the model check.
func TestRunModelDirectoryWithoutModels(t *testing.T) {
	modelDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(modelDir, "readme.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	checker := newTestChecker(allToolsFound)
	report := checker.Run(domain.Settings{ModelPath: modelDir, OutputDir: t.TempDir()})

	item := itemByID(t, report, "model_path")
	if item.Status != domain.DiagnosticStatusFail {
		t.Fatalf("model path status = %s, want fail", item.Status)
	}
	if item.Hint == "" {
		t.Fatal("expected a remediation hint")
	}
}

// TestRunEmptyModelPath verifies an unset model path fails.
func TestRunEmptyModelPath(t *testing.T) {
	checker := newTestChecker(allToolsFound)
	report := checker.Run(domain.Settings{ModelPath: "  ", OutputDir: t.TempDir()})

	if item := itemByID(t, report, "model_path"); item.Status != domain.DiagnosticStatusFail {
		t.Fatalf("model path status = %s, want fail", item.Status)
	}
}

// TestRunOutputDirCreatedWhenMissing verifies the writable-dir check
// creates missing directories.
func TestRunOutputDirCreatedWhenMissing(t *testing.T) {
	modelDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(modelDir, "ggml-base.bin"), []byte("model"), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	outputDir := filepath.Join(t.TempDir(), "deeper", "transcripts")

	checker := newTestChecker(allToolsFound)
	report := checker.Run(domain.Settings{ModelPath: modelDir, OutputDir: outputDir})

	if item := itemByID(t, report, "output_dir"); item.Status != domain.DiagnosticStatusPass {
		t.Fatalf("output dir status = %s, message %q", item.Status, item.Message)
	}
	if _, err := os.Stat(outputDir); err != nil {
		t.Fatalf("output dir not created: %v", err)
	}
}

// TestRunUnwritableOutputDir verifies write failures are reported.
func TestRunUnwritableOutputDir(t *testing.T) {
	modelDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(modelDir, "ggml-base.bin"), []byte("model"), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}

	checker := NewCheckerForTests(
		allToolsFound, os.Stat, os.ReadDir,
		func(string, os.FileMode) error { return nil },
		func(string, string) (*os.File, error) { return nil, errors.New("read-only filesystem") },
		os.Remove,
	)
	report := checker.Run(domain.Settings{ModelPath: modelDir, OutputDir: "/readonly"})

	if item := itemByID(t, report, "output_dir"); item.Status != domain.DiagnosticStatusFail {
		t.Fatalf("output dir status = %s, want fail", item.Status)
	}
	if !report.HasFailures {
		t.Fatal("expected failures")
	}
}
