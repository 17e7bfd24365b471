package diagnostics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fabla-transcriber/internal/domain"
)

func foundAll(name string) (string, error) { return "/usr/local/bin/" + name, nil }

func newTestChecker(goos string, lookPath func(string) (string, error)) *Checker {
	return NewCheckerForTests(goos, lookPath, os.Stat, os.ReadDir, os.MkdirAll, os.CreateTemp, os.Remove)
}

// TestCheckerRunAllPass validates happy-path diagnostics report.
func TestCheckerRunAllPass(t *testing.T) {
	root := t.TempDir()
	modelDir := filepath.Join(root, "models")
	if err := os.MkdirAll(modelDir, 0o755); err != nil {
		t.Fatalf("mkdir models: %v", err)
	}
	if err := os.WriteFile(filepath.Join(modelDir, "ggml-base.bin"), []byte("stub"), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}

	report := newTestChecker("linux", foundAll).Run(domain.Settings{
		Engine:    domain.EngineWhisperCpp,
		ModelPath: modelDir,
		OutputDir: filepath.Join(root, "output"),
	})

	if report.HasFailures {
		t.Fatalf("expected no failures, got %+v", report.Items)
	}
	assertStatusByID(t, report, "output_dir", domain.DiagnosticStatusPass)
}

// TestCheckerRunMissingToolsAndPaths validates failure reporting and hints.
func TestCheckerRunMissingToolsAndPaths(t *testing.T) {
	checker := newTestChecker("darwin", func(string) (string, error) { return "", errors.New("not found") })

	report := checker.Run(domain.Settings{ModelPath: "/path/that/does/not/exist"})

	if !report.HasFailures {
		t.Fatal("expected failures")
	}
	assertStatusByID(t, report, "tool_ffmpeg", domain.DiagnosticStatusFail)
	assertStatusByID(t, report, "tool_whisper.cpp", domain.DiagnosticStatusFail)
	assertStatusByID(t, report, "model_path", domain.DiagnosticStatusFail)
	assertStatusByID(t, report, "output_dir", domain.DiagnosticStatusPass)

	if len(report.Failed()) != 3 {
		t.Fatalf("failed items = %d, want 3", len(report.Failed()))
	}
	for _, item := range report.Items {
		if item.ID == "tool_ffmpeg" && !strings.Contains(item.Hint, "brew install ffmpeg") {
			t.Fatalf("ffmpeg hint = %q", item.Hint)
		}
	}
}

// TestCheckerUsesConfiguredToolPaths verifies custom binaries are looked up.
func TestCheckerUsesConfiguredToolPaths(t *testing.T) {
	var looked []string
	checker := newTestChecker("linux", func(name string) (string, error) {
		looked = append(looked, name)
		return name, nil
	})
	checker.Run(domain.Settings{FFmpegPath: "/opt/ffmpeg", WhisperPath: "/opt/whisper-cli", ModelPath: t.TempDir()})

	if len(looked) != 2 || looked[0] != "/opt/ffmpeg" || looked[1] != "/opt/whisper-cli" {
		t.Fatalf("looked up %v", looked)
	}
}

// TestCheckerOpenAIEngine validates the API key check replaces tool checks.
func TestCheckerOpenAIEngine(t *testing.T) {
	checker := newTestChecker("linux", func(string) (string, error) { return "", errors.New("not found") })

	report := checker.Run(domain.Settings{Engine: domain.EngineOpenAI})
	assertStatusByID(t, report, "openai_api_key", domain.DiagnosticStatusFail)
	for _, item := range report.Items {
		if strings.HasPrefix(item.ID, "tool_") {
			t.Fatalf("unexpected tool check for openai: %+v", item)
		}
	}

	report = checker.Run(domain.Settings{Engine: domain.EngineOpenAI, OpenAIAPIKey: "sk-test"})
	if report.HasFailures {
		t.Fatalf("expected no failures, got %+v", report.Items)
	}
}

// TestCheckerRunModelDirectoryWithoutModelFilesFails validates model check.
func TestCheckerRunModelDirectoryWithoutModelFilesFails(t *testing.T) {
	modelDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(modelDir, "README.txt"), []byte("no model"), 0o644); err != nil {
		t.Fatalf("write readme: %v", err)
	}

	report := newTestChecker("linux", foundAll).Run(domain.Settings{ModelPath: modelDir})
	assertStatusByID(t, report, "model_path", domain.DiagnosticStatusFail)
}

// TestCheckerOutputDirNotWritableWarns validates the writability probe.
func TestCheckerOutputDirNotWritableWarns(t *testing.T) {
	checker := NewCheckerForTests("linux", foundAll, os.Stat, os.ReadDir,
		func(string, os.FileMode) error { return nil },
		func(string, string) (*os.File, error) { return nil, os.ErrPermission },
		os.Remove,
	)
	report := checker.Run(domain.Settings{Engine: domain.EngineOpenAI, OpenAIAPIKey: "k", OutputDir: "/readonly"})
	assertStatusByID(t, report, "output_dir", domain.DiagnosticStatusWarn)
	if report.HasFailures {
		t.Fatal("warning should not count as failure")
	}
}

// assertStatusByID checks status for one diagnostic item by ID.
func assertStatusByID(t *testing.T, report domain.DiagnosticReport, id string, want domain.DiagnosticStatus) {
	t.Helper()
	for _, item := range report.Items {
		if item.ID == id {
			if item.Status != want {
				t.Fatalf("item %s: got %s, want %s", id, item.Status, want)
			}
			return
		}
	}
	t.Fatalf("diagnostic item not found: %s", id)
}
