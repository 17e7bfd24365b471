package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestApplyEnvOverrides verifies environment values win over stored settings.
func TestApplyEnvOverrides(t *testing.T) {
	env := map[string]string{
		EnvEngine:    "openai",
		EnvModel:     "whisper-1",
		EnvLanguage:  "fr",
		EnvOpenAIKey: "sk-test",
		EnvOutputDir: "  ",
	}
	base := DefaultSettings()
	base.OutputDir = "/kept"

	got := ApplyEnv(base, func(k string) string { return env[k] })
	if got.Engine != "openai" || got.ModelName != "whisper-1" || got.Language != "fr" {
		t.Fatalf("settings = %+v", got)
	}
	if got.OpenAIAPIKey != "sk-test" {
		t.Fatalf("api key = %q", got.OpenAIAPIKey)
	}
	if got.OutputDir != "/kept" {
		t.Fatalf("blank env should not override, got %q", got.OutputDir)
	}
}

// TestLoadDotEnv verifies .env files populate unset variables only.
func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("FABLA_TEST_A=from-file\nFABLA_TEST_B=from-file\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("FABLA_TEST_B", "from-env")
	t.Setenv("FABLA_TEST_A", "")
	os.Unsetenv("FABLA_TEST_A")

	if err := LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := os.Getenv("FABLA_TEST_A"); got != "from-file" {
		t.Fatalf("A = %q, want from-file", got)
	}
	if got := os.Getenv("FABLA_TEST_B"); got != "from-env" {
		t.Fatalf("B = %q, want from-env", got)
	}
}
