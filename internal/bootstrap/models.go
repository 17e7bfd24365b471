package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"fabla-transcriber/internal/domain"
	"fabla-transcriber/internal/models"
)

// GetWhisperModels returns built-in whisper.cpp model presets for one-click downloads.
func (a *App) GetWhisperModels() []models.Option {
	modelPath := ""
	if settings, err := a.loadSettings(); err == nil {
		modelPath = settings.ModelPath
	}
	return models.List(modelPath)
}

// DownloadWhisperModel downloads the selected model next to the configured model
// path, selects it, and persists the settings.
func (a *App) DownloadWhisperModel(modelID string) (domain.Settings, error) {
	id := strings.TrimSpace(modelID)
	if id == "" {
		return domain.Settings{}, fmt.Errorf("model id is required")
	}

	model, found := models.Lookup(id)
	if !found {
		return domain.Settings{}, fmt.Errorf("unknown model id: %s", id)
	}

	settings, err := a.loadSettings()
	if err != nil {
		return domain.Settings{}, err
	}

	dir, err := models.DownloadDir(settings.ModelPath)
	if err != nil {
		return domain.Settings{}, err
	}
	if _, err := models.Download(context.Background(), a.httpClient, model, dir); err != nil {
		return domain.Settings{}, err
	}

	settings.ModelPath = dir
	settings.ModelName = model.ID
	if err := a.Store.Save(settings); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.refreshDiagnosticsFromSettings(settings)
	return settings, nil
}
