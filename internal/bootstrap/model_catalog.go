package bootstrap

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"audioscribe/internal/asr"
	"audioscribe/internal/domain"
)

const modelDownloadTimeout = 30 * time.Minute

var modelCatalog = []domain.ModelOption{
	{
		ID:          "tiny",
		Name:        "Tiny (Multilingual)",
		FileName:    "ggml-tiny.bin",
		URL:         "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-tiny.bin",
		SizeLabel:   "~75 MB",
		Description: "Fastest multilingual model.",
	},
	{
		ID:          "base",
		Name:        "Base (Multilingual)",
		FileName:    "ggml-base.bin",
		URL:         "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-base.bin",
		SizeLabel:   "~142 MB",
		Description: "Balanced speed/quality, multilingual.",
	},
	{
		ID:          "small",
		Name:        "Small (Multilingual)",
		FileName:    "ggml-small.bin",
		URL:         "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-small.bin",
		SizeLabel:   "~466 MB",
		Description: "Higher quality multilingual model.",
	},
	{
		ID:          "medium",
		Name:        "Medium (Multilingual)",
		FileName:    "ggml-medium.bin",
		URL:         "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-medium.bin",
		SizeLabel:   "~1.5 GB",
		Description: "High quality multilingual model.",
	},
	{
		ID:          "large-v3-turbo",
		Name:        "Large v3 Turbo",
		FileName:    "ggml-large-v3-turbo.bin",
		URL:         "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-large-v3-turbo.bin",
		SizeLabel:   "~1.6 GB",
		Description: "Fast high-quality large model.",
	},
}

// GetModels returns built-in model presets for one-click downloads.
func (a *App) GetModels() []domain.ModelOption {
	models := make([]domain.ModelOption, len(modelCatalog))
	copy(models, modelCatalog)

	settings, err := a.Store.Load()
	if err != nil {
		return models
	}
	markDownloadedModels(models, resolveKnownModelDirs(settings))
	return models
}

// DownloadModel downloads the selected model preset, reports progress
// through "model:progress" events, and points settings.ModelPath at the
// downloaded file.
func (a *App) DownloadModel(modelID string) (domain.Settings, error) {
	id := strings.TrimSpace(modelID)
	if id == "" {
		return domain.Settings{}, fmt.Errorf("model id is required")
	}

	model, found := modelByID(id)
	if !found {
		return domain.Settings{}, fmt.Errorf("unknown model id: %s", id)
	}

	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	downloadDir, err := resolveModelDownloadDirectory(settings.ModelPath)
	if err != nil {
		return domain.Settings{}, err
	}

	onProgress := func(stage string, fraction float64, message string) {
		a.emitEvent("model:progress", domain.DownloadProgress{
			ModelID:  model.ID,
			Stage:    stage,
			Fraction: fraction,
			Message:  message,
		})
	}

	targetPath := filepath.Join(downloadDir, model.FileName)
	if err := downloadURLToFile(targetPath, model.URL, modelDownloadTimeout, onProgress); err != nil {
		return domain.Settings{}, fmt.Errorf("%w: download model %s: %v", asr.ErrModelUnavailable, model.Name, err)
	}

	settings.ModelPath = targetPath
	if err := a.Store.Save(settings); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = settings
	if a.checker != nil {
		a.Diagnostics = a.checker.Run(settings)
	}
	a.mu.Unlock()

	return settings, nil
}

func modelByID(id string) (domain.ModelOption, bool) {
	for _, model := range modelCatalog {
		if model.ID == id {
			return model, true
		}
	}
	return domain.ModelOption{}, false
}

// resolveModelDownloadDirectory picks the directory a model download
// should land in, from a model file path, a model directory, or an
// unset setting.
func resolveModelDownloadDirectory(modelPath string) (string, error) {
	trimmed := strings.TrimSpace(modelPath)
	if trimmed == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve user home: %w", err)
		}
		return filepath.Join(homeDir, ".audioscribe", "models"), nil
	}

	info, err := os.Stat(trimmed)
	if err == nil {
		if info.IsDir() {
			return trimmed, nil
		}
		ext := strings.ToLower(filepath.Ext(trimmed))
		if ext == ".bin" || ext == ".gguf" {
			return filepath.Dir(trimmed), nil
		}
		return "", fmt.Errorf("model path points to non-model file: %s", trimmed)
	}

	if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("check model path: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(trimmed))
	if ext == ".bin" || ext == ".gguf" {
		return filepath.Dir(trimmed), nil
	}
	return trimmed, nil
}

// resolveKnownModelDirs lists directories that may already hold model
// files.
func resolveKnownModelDirs(settings domain.Settings) []string {
	seen := map[string]struct{}{}
	add := func(path string) {
		p := strings.TrimSpace(path)
		if p == "" {
			return
		}
		clean := filepath.Clean(p)
		if clean == "." {
			return
		}
		seen[clean] = struct{}{}
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		add(filepath.Join(homeDir, ".audioscribe", "models"))
	}

	if modelPath := strings.TrimSpace(settings.ModelPath); modelPath != "" {
		if info, err := os.Stat(modelPath); err == nil && info.IsDir() {
			add(modelPath)
		} else {
			add(filepath.Dir(modelPath))
		}
	}

	result := make([]string, 0, len(seen))
	for dir := range seen {
		result = append(result, dir)
	}
	return result
}

func markDownloadedModels(models []domain.ModelOption, modelDirs []string) {
	for i := range models {
		for _, dir := range modelDirs {
			candidate := filepath.Join(dir, models[i].FileName)
			info, err := os.Stat(candidate)
			if err != nil || info.IsDir() {
				continue
			}
			models[i].Downloaded = true
			models[i].LocalPath = candidate
			break
		}
	}
}

// downloadURLToFile streams the URL into destinationPath, reporting
// fraction progress from the response content length. The file is
// written to a temporary name first and renamed on success.
func downloadURLToFile(destinationPath, sourceURL string, timeout time.Duration, onProgress asr.DownloadProgressFunc) error {
	if err := os.MkdirAll(filepath.Dir(destinationPath), 0o755); err != nil {
		return fmt.Errorf("create model directory: %w", err)
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(sourceURL)
	if err != nil {
		return fmt.Errorf("request model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected download status: %s", resp.Status)
	}

	tmpPath := destinationPath + ".partial"
	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create model file: %w", err)
	}

	if onProgress != nil {
		onProgress("download", 0, "downloading "+filepath.Base(destinationPath))
	}

	var written int64
	total := resp.ContentLength
	buf := make([]byte, 1<<20)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				_ = out.Close()
				_ = os.Remove(tmpPath)
				return fmt.Errorf("write model file: %w", writeErr)
			}
			written += int64(n)
			if onProgress != nil && total > 0 {
				fraction := float64(written) / float64(total)
				onProgress("download", fraction, fmt.Sprintf("%d / %d bytes", written, total))
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			_ = out.Close()
			_ = os.Remove(tmpPath)
			return fmt.Errorf("read model body: %w", readErr)
		}
	}

	if err := out.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close model file: %w", err)
	}
	if err := os.Rename(tmpPath, destinationPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("finalize model file: %w", err)
	}

	if onProgress != nil {
		onProgress("download", 1, "download complete")
	}
	return nil
}
