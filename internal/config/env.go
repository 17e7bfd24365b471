package config

import (
	"errors"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"fabla-transcriber/internal/domain"
)

// Environment variables that override stored settings.
const (
	EnvEngine    = "FABLA_ENGINE"
	EnvModelPath = "FABLA_MODEL_PATH"
	EnvModel     = "FABLA_MODEL"
	EnvLanguage  = "FABLA_LANGUAGE"
	EnvOutputDir = "FABLA_OUTPUT_DIR"
	EnvLogLevel  = "FABLA_LOG_LEVEL"
	EnvOpenAIKey = "OPENAI_API_KEY"
)

// LoadDotEnv loads variables from the given .env files (default ".env") without
// overriding values already set in the process. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// ApplyEnv overlays non-empty environment values onto cfg. A nil getenv uses
// os.Getenv.
func ApplyEnv(cfg domain.Settings, getenv func(string) string) domain.Settings {
	if getenv == nil {
		getenv = os.Getenv
	}
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	set(&cfg.Engine, EnvEngine)
	set(&cfg.ModelPath, EnvModelPath)
	set(&cfg.ModelName, EnvModel)
	set(&cfg.Language, EnvLanguage)
	set(&cfg.OutputDir, EnvOutputDir)
	set(&cfg.LogLevel, EnvLogLevel)
	set(&cfg.OpenAIAPIKey, EnvOpenAIKey)
	return cfg
}

// Resolve loads .env files, the store, and environment overrides in that order.
func Resolve(store Store) (domain.Settings, error) {
	if err := LoadDotEnv(); err != nil {
		return domain.Settings{}, err
	}
	cfg, err := store.Load()
	if err != nil {
		return domain.Settings{}, err
	}
	return Normalize(ApplyEnv(cfg, nil)), nil
}
