package bootstrap

import (
	"fmt"
	"os"
	"strings"

	"audioscribe/internal/domain"
)

// defaultDownloadModelID is the preset fetched when fixing a missing
// model path.
const defaultDownloadModelID = "base"

// FixDiagnostic applies a remediation for one failed diagnostic item
// and returns the refreshed report. Missing CLI tools cannot be fixed
// from here; those items keep their install hints.
func (a *App) FixDiagnostic(itemID string) (domain.DiagnosticReport, error) {
	id := strings.TrimSpace(itemID)
	if id == "" {
		return domain.DiagnosticReport{}, fmt.Errorf("diagnostic item id is required")
	}

	switch {
	case id == domain.DiagnosticModelPath:
		if _, err := a.DownloadModel(defaultDownloadModelID); err != nil {
			return domain.DiagnosticReport{}, err
		}

	case id == domain.DiagnosticOutputDir:
		settings, err := a.Store.Load()
		if err != nil {
			return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
		}
		if strings.TrimSpace(settings.OutputDir) == "" {
			return domain.DiagnosticReport{}, fmt.Errorf("output directory is not configured")
		}
		if err := os.MkdirAll(settings.OutputDir, 0o755); err != nil {
			return domain.DiagnosticReport{}, fmt.Errorf("create output directory: %w", err)
		}

	case strings.HasPrefix(id, domain.DiagnosticToolPrefix):
		return domain.DiagnosticReport{}, fmt.Errorf("%s must be installed manually; see the item hint", strings.TrimPrefix(id, domain.DiagnosticToolPrefix))

	default:
		return domain.DiagnosticReport{}, fmt.Errorf("unknown diagnostic item id: %s", id)
	}

	return a.RefreshDiagnostics()
}
