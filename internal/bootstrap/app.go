package bootstrap

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"audioscribe/internal/asr"
	"audioscribe/internal/config"
	"audioscribe/internal/diagnostics"
	"audioscribe/internal/domain"
	"audioscribe/internal/tasks"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

var mediaDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "Media files",
		Pattern:     "*.mp4;*.mov;*.mkv;*.avi;*.mp3;*.wav;*.m4a;*.flac;*.aac;*.ogg;*.webm",
	},
	{
		DisplayName: "All files",
		Pattern:     "*",
	},
}

// transcriber isolates the chunked pipeline behind an interface.
type transcriber interface {
	Transcribe(ctx context.Context, req asr.Request) (asr.Result, error)
	EnsureModel(onProgress asr.DownloadProgressFunc) error
	HasModel() bool
}

// engineFactory builds a pipeline engine for the given settings.
type engineFactory func(settings domain.Settings) transcriber

// App wires configuration, the task store, per-task controls, the
// chunked pipeline, and UI runtime callbacks.
type App struct {
	Settings    domain.Settings
	Store       config.Store
	Tasks       *tasks.Store
	Controls    *tasks.Controls
	Diagnostics domain.DiagnosticReport

	assets    fs.FS
	checker   *diagnostics.Checker
	newEngine engineFactory
	uploadDir string

	mu         sync.Mutex
	runtimeCtx context.Context
	watchers   map[string]func()
	engine     transcriber
	engineKey  string
}

// New builds the application with persisted settings and startup
// diagnostics.
func New() (*App, error) {
	return NewWithAssets(nil)
}

// NewWithAssets builds the application and optionally configures
// embedded frontend assets.
func NewWithAssets(assets fs.FS) (*App, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve user home: %w", err)
	}

	store := config.NewJSONStore(filepath.Join(homeDir, ".audioscribe", "settings.json"))
	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	checker := diagnostics.NewChecker()
	report := checker.Run(settings)

	return &App{
		Settings:    settings,
		Store:       store,
		Tasks:       tasks.NewStore(),
		Controls:    tasks.NewControls(),
		Diagnostics: report,
		assets:      assets,
		checker:     checker,
		newEngine:   defaultEngineFactory,
		uploadDir:   filepath.Join(os.TempDir(), "audioscribe-uploads"),
		watchers:    make(map[string]func()),
	}, nil
}

// defaultEngineFactory builds the production ffmpeg + whisper engine.
func defaultEngineFactory(settings domain.Settings) transcriber {
	return asr.NewEngine(
		asr.NewFFmpegTool(),
		asr.NewWhisperRecognizer(settings.ModelPath),
		settings.ChunkDurationMillis,
	)
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		assetOptions.Handler = http.FileServer(http.Dir("./frontend"))
	}

	return wails.Run(&options.App{
		Title:       "Audioscribe",
		Width:       1180,
		Height:      780,
		AssetServer: assetOptions,
		OnStartup:   a.Startup,
		OnShutdown: func(ctx context.Context) {
			a.mu.Lock()
			defer a.mu.Unlock()
			a.runtimeCtx = nil
		},
		Bind: []interface{}{a},
	})
}

// Startup stores Wails runtime context for push events.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runtimeCtx = ctx
}

// GetDiagnostics returns the latest cached diagnostics report.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	return a.Diagnostics
}

// RefreshDiagnostics reloads settings and reruns dependency checks.
func (a *App) RefreshDiagnostics() (domain.DiagnosticReport, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}

	a.Settings = settings
	a.Diagnostics = a.checker.Run(settings)
	return a.Diagnostics, nil
}

// GetSettings loads and returns the latest persisted settings.
func (a *App) GetSettings() (domain.Settings, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = settings
	a.mu.Unlock()

	return settings, nil
}

// SaveSettings normalizes and persists settings, then refreshes
// diagnostics.
func (a *App) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	normalized := normalizeSettings(settings)
	if err := a.Store.Save(normalized); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = normalized
	if a.checker != nil {
		a.Diagnostics = a.checker.Run(normalized)
	}
	a.mu.Unlock()

	return normalized, nil
}

// HasModel reports whether the configured model artifacts are present.
func (a *App) HasModel() bool {
	settings, err := a.Store.Load()
	if err != nil {
		return false
	}
	return a.engineFor(settings).HasModel()
}

// PickInputFile opens a native file dialog for media selection.
func (a *App) PickInputFile() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenFileDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Select media file",
		Filters: mediaDialogFilter,
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

// PickOutputDirectory opens a native directory picker for transcript
// exports.
func (a *App) PickOutputDirectory() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenDirectoryDialog(ctx, wailsruntime.OpenDialogOptions{
		Title: "Select output directory",
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

// OpenOutputFolder opens the given path (or configured output dir) in
// the platform file manager.
func (a *App) OpenOutputFolder(path string) error {
	target := strings.TrimSpace(path)
	if target == "" {
		a.mu.Lock()
		target = a.Settings.OutputDir
		a.mu.Unlock()
	}
	if target == "" {
		return fmt.Errorf("output path is empty")
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	openPath := target
	if !info.IsDir() {
		openPath = filepath.Dir(target)
	}

	return openInFileManager(openPath)
}

// engineFor returns the process-wide engine, rebuilding it only when
// the model path or chunk duration changed.
func (a *App) engineFor(settings domain.Settings) transcriber {
	key := fmt.Sprintf("%s|%d", settings.ModelPath, settings.ChunkDurationMillis)

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.engine == nil || a.engineKey != key {
		a.engine = a.newEngine(settings)
		a.engineKey = key
	}
	return a.engine
}

// emitEvent pushes one runtime event when the UI is attached.
func (a *App) emitEvent(name string, payload interface{}) {
	a.mu.Lock()
	ctx := a.runtimeCtx
	a.mu.Unlock()
	if ctx != nil {
		wailsruntime.EventsEmit(ctx, name, payload)
	}
}

// runtimeContext returns current Wails runtime context for dialog APIs.
func (a *App) runtimeContext() (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runtimeCtx == nil {
		return nil, fmt.Errorf("runtime context is not initialized")
	}
	return a.runtimeCtx, nil
}

// normalizeSettings trims user inputs and fills defaulted limits.
func normalizeSettings(settings domain.Settings) domain.Settings {
	settings.ModelPath = strings.TrimSpace(settings.ModelPath)
	settings.OutputDir = strings.TrimSpace(settings.OutputDir)
	settings.Language = strings.TrimSpace(settings.Language)
	return config.Normalize(settings)
}

// openInFileManager launches the platform file explorer for the
// provided path.
func openInFileManager(path string) error {
	var cmd *exec.Cmd
	switch goruntime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("explorer", filepath.Clean(path))
	default:
		cmd = exec.Command("xdg-open", path)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch file manager: %w", err)
	}
	return nil
}
