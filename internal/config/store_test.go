package config

import (
	"os"
	"path/filepath"
	"testing"

	"audioscribe/internal/domain"
)

// TestLoadMissingFileReturnsDefaults verifies first-launch behavior.
func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	store := NewJSONStore(filepath.Join(t.TempDir(), "settings.json"))

	cfg, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	defaults := DefaultSettings()
	if cfg != defaults {
		t.Fatalf("settings = %+v, want defaults %+v", cfg, defaults)
	}
}

// TestSaveThenLoadRoundTrip verifies persisted settings survive reload.
func TestSaveThenLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")
	store := NewJSONStore(path)

	want := domain.Settings{
		ModelPath:            "/models/ggml-base.bin",
		OutputDir:            "/out",
		Language:             "zh",
		ChunkDurationMillis:  10_000,
		MaxCueChars:          32,
		MaxCueDurationMillis: 5_000,
		MinCueDurationMillis: 600,
	}
	if err := store.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != want {
		t.Fatalf("settings = %+v, want %+v", got, want)
	}
}

// TestLoadInvalidJSONFails verifies corrupt settings surface an error.
func TestLoadInvalidJSONFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := NewJSONStore(path).Load(); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

// TestLoadPartialFileKeepsDefaults verifies fields absent from older
// settings files keep default values.
func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(`{"language":"en"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := NewJSONStore(path).Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	defaults := DefaultSettings()
	if cfg.Language != "en" {
		t.Fatalf("language = %q, want en", cfg.Language)
	}
	if cfg.ChunkDurationMillis != defaults.ChunkDurationMillis {
		t.Fatalf("chunk duration = %d, want default %d", cfg.ChunkDurationMillis, defaults.ChunkDurationMillis)
	}
	if cfg.ModelPath != defaults.ModelPath {
		t.Fatalf("model path = %q, want default %q", cfg.ModelPath, defaults.ModelPath)
	}
}

// TestNormalizeFillsInvalidLimits verifies zero or negative limits fall
// back to defaults.
func TestNormalizeFillsInvalidLimits(t *testing.T) {
	got := Normalize(domain.Settings{
		ModelPath:           "/models",
		OutputDir:           "/out",
		ChunkDurationMillis: -1,
		MaxCueChars:         0,
	})

	defaults := DefaultSettings()
	if got.ChunkDurationMillis != defaults.ChunkDurationMillis {
		t.Fatalf("chunk duration = %d, want %d", got.ChunkDurationMillis, defaults.ChunkDurationMillis)
	}
	if got.MaxCueChars != defaults.MaxCueChars {
		t.Fatalf("max cue chars = %d, want %d", got.MaxCueChars, defaults.MaxCueChars)
	}
	if got.MaxCueDurationMillis != defaults.MaxCueDurationMillis {
		t.Fatalf("max cue duration = %d, want %d", got.MaxCueDurationMillis, defaults.MaxCueDurationMillis)
	}
	if got.Language != defaults.Language {
		t.Fatalf("language = %q, want %q", got.Language, defaults.Language)
	}
	if got.ModelPath != "/models" {
		t.Fatalf("model path = %q, want preserved", got.ModelPath)
	}
}
