package config

import (
	"os"
	"path/filepath"

	"audioscribe/internal/domain"
)

// DefaultSettings returns baseline local configuration for first launch.
func DefaultSettings() domain.Settings {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	return domain.Settings{
		ModelPath:            filepath.Join(homeDir, ".audioscribe", "models"),
		OutputDir:            filepath.Join(homeDir, "Documents", "Transcripts"),
		Language:             "auto",
		ChunkDurationMillis:  15_000,
		MaxCueChars:          40,
		MaxCueDurationMillis: 6_000,
		MinCueDurationMillis: 800,
	}
}
