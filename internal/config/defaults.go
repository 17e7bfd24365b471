package config

import (
	"os"
	"path/filepath"
	"strings"

	"fabla-transcriber/internal/domain"
)

// AppDirName is the per-user state directory under $HOME.
const AppDirName = ".fabla-transcriber"

// DefaultSettings returns baseline local configuration for first launch.
func DefaultSettings() domain.Settings {
	return domain.Settings{
		Engine:       domain.EngineWhisperCpp,
		ModelPath:    filepath.Join(appDir(), "models"),
		ModelName:    "base",
		Language:     "auto",
		Delimiter:    domain.DefaultDelimiter,
		IDPosition:   domain.DefaultIDPosition,
		DatePosition: domain.DefaultDatePosition,
		TimePosition: domain.DefaultTimePosition,
		Extensions:   []string{".wav", ".mp3", ".aac"},
		LogLevel:     "info",
	}
}

// DefaultPath is where the CLI and desktop app look for settings.
func DefaultPath() string {
	return filepath.Join(appDir(), "config.toml")
}

// Normalize fills blank fields with defaults. Positions below zero are reset.
func Normalize(cfg domain.Settings) domain.Settings {
	def := DefaultSettings()

	cfg.Engine = strings.ToLower(strings.TrimSpace(cfg.Engine))
	if cfg.Engine == "" {
		cfg.Engine = def.Engine
	}
	if strings.TrimSpace(cfg.ModelPath) == "" {
		cfg.ModelPath = def.ModelPath
	}
	if strings.TrimSpace(cfg.ModelName) == "" {
		cfg.ModelName = def.ModelName
	}
	if strings.TrimSpace(cfg.Language) == "" {
		cfg.Language = def.Language
	}
	if cfg.Delimiter == "" {
		cfg.Delimiter = def.Delimiter
	}
	if cfg.IDPosition < 0 {
		cfg.IDPosition = def.IDPosition
	}
	if cfg.DatePosition < 0 {
		cfg.DatePosition = def.DatePosition
	}
	if cfg.TimePosition < 0 {
		cfg.TimePosition = def.TimePosition
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = def.Extensions
	}
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = def.LogLevel
	}
	return cfg
}

func appDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, AppDirName)
}
