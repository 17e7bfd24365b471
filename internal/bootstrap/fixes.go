package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	goruntime "runtime"
	"strings"
	"time"

	"fabla-transcriber/internal/domain"
	"fabla-transcriber/internal/models"
)

const installCommandTimeout = 45 * time.Minute

type installOption struct {
	manager  string
	commands [][]string
}

// installer runs package-manager commands; fields are swapped in tests.
type installer struct {
	goos     string
	lookPath func(string) (string, error)
	run      func(name string, args ...string) error
}

func newInstaller() *installer {
	return &installer{
		goos:     goruntime.GOOS,
		lookPath: exec.LookPath,
		run:      runCommand,
	}
}

// InstallOrFixDiagnostic applies a remediation for one failed diagnostic item and
// returns the refreshed report.
func (a *App) InstallOrFixDiagnostic(itemID string) (domain.DiagnosticReport, error) {
	id := strings.TrimSpace(itemID)
	if id == "" {
		return domain.DiagnosticReport{}, fmt.Errorf("diagnostic item id is required")
	}

	settings, err := a.loadSettings()
	if err != nil {
		return domain.DiagnosticReport{}, err
	}

	inst := a.installer
	if inst == nil {
		inst = newInstaller()
	}

	settingsChanged := false
	var fixErr error

	switch id {
	case "tool_ffmpeg":
		fixErr = inst.install("ffmpeg", ffmpegOptions(inst.goos))
	case "tool_whisper.cpp":
		fixErr = inst.install("whisper.cpp", whisperOptions(inst.goos))
	case "model_path":
		settings, settingsChanged, fixErr = a.fixModelPath(settings)
	case "output_dir":
		settings, settingsChanged, fixErr = fixOutputDir(settings)
	case "openai_api_key":
		return a.GetDiagnostics(), errors.New("set OPENAI_API_KEY in the environment or a .env file and restart")
	default:
		return domain.DiagnosticReport{}, fmt.Errorf("unsupported diagnostic item id: %s", id)
	}

	if settingsChanged {
		if saveErr := a.Store.Save(settings); saveErr != nil {
			report := a.refreshDiagnosticsFromSettings(settings)
			return report, fmt.Errorf("save settings after fix: %w", saveErr)
		}
	}

	report := a.refreshDiagnosticsFromSettings(settings)
	return report, fixErr
}

// fixModelPath downloads the configured (or base) model into the model directory.
func (a *App) fixModelPath(settings domain.Settings) (domain.Settings, bool, error) {
	model, ok := models.Lookup(settings.ModelName)
	if !ok {
		model, _ = models.Lookup("base")
	}

	dir, err := models.DownloadDir(settings.ModelPath)
	if err != nil {
		return settings, false, err
	}
	if _, err := models.Download(context.Background(), a.httpClient, model, dir); err != nil {
		return settings, false, err
	}

	changed := settings.ModelPath != dir || settings.ModelName != model.ID
	settings.ModelPath = dir
	settings.ModelName = model.ID
	return settings, changed, nil
}

// fixOutputDir creates the configured directory, or clears an unusable one so
// transcripts go back into the scanned folder.
func fixOutputDir(settings domain.Settings) (domain.Settings, bool, error) {
	outputDir := strings.TrimSpace(settings.OutputDir)
	if outputDir == "" {
		return settings, false, nil
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		settings.OutputDir = ""
		return settings, true, fmt.Errorf("create output directory %s: %w; reverted to the scanned folder", outputDir, err)
	}
	return settings, false, nil
}

func ffmpegOptions(goos string) []installOption {
	switch goos {
	case "windows":
		return []installOption{
			{manager: "winget", commands: [][]string{{"winget", "install", "--id", "Gyan.FFmpeg", "--exact", "--accept-source-agreements", "--accept-package-agreements"}}},
			{manager: "choco", commands: [][]string{{"choco", "install", "ffmpeg", "-y"}}},
		}
	case "darwin":
		return []installOption{
			{manager: "brew", commands: [][]string{{"brew", "install", "ffmpeg"}}},
		}
	default:
		return []installOption{
			{manager: "apt-get", commands: [][]string{{"apt-get", "update"}, {"apt-get", "install", "-y", "ffmpeg"}}},
			{manager: "dnf", commands: [][]string{{"dnf", "install", "-y", "ffmpeg"}}},
			{manager: "pacman", commands: [][]string{{"pacman", "-Sy", "--noconfirm", "ffmpeg"}}},
		}
	}
}

func whisperOptions(goos string) []installOption {
	switch goos {
	case "darwin", "linux":
		return []installOption{
			{manager: "brew", commands: [][]string{{"brew", "install", "whisper-cpp"}}},
		}
	default:
		return nil
	}
}

// install runs the first option whose package manager is present; later options
// are tried when one fails.
func (in *installer) install(tool string, options []installOption) error {
	if len(options) == 0 {
		return fmt.Errorf("install %s: no automatic installer for %s", tool, in.goos)
	}

	var failures []string
	found := false
	for _, option := range options {
		if _, err := in.lookPath(option.manager); err != nil {
			continue
		}
		found = true
		if err := in.runAll(option.commands); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", option.manager, err))
			continue
		}
		return nil
	}

	if !found {
		return fmt.Errorf("install %s: no supported package manager found for %s", tool, in.goos)
	}
	return fmt.Errorf("install %s: %s", tool, strings.Join(failures, " | "))
}

func (in *installer) runAll(commands [][]string) error {
	for _, command := range commands {
		if err := in.runElevated(command); err != nil {
			return err
		}
	}
	return nil
}

// runElevated retries system package managers through sudo -n on Linux.
func (in *installer) runElevated(command []string) error {
	err := in.run(command[0], command[1:]...)
	if err == nil || in.goos != "linux" || !requiresElevation(command[0]) {
		return err
	}
	if _, lookErr := in.lookPath("sudo"); lookErr != nil {
		return err
	}
	return in.run("sudo", append([]string{"-n"}, command...)...)
}

func requiresElevation(manager string) bool {
	switch manager {
	case "apt-get", "dnf", "pacman":
		return true
	default:
		return false
	}
}

func runCommand(name string, args ...string) error {
	ctx, cancel := context.WithTimeout(context.Background(), installCommandTimeout)
	defer cancel()

	output, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err == nil {
		return nil
	}
	command := strings.Join(append([]string{name}, args...), " ")
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s timed out after %s", command, installCommandTimeout)
	}

	trimmed := strings.TrimSpace(string(output))
	if len(trimmed) > 500 {
		trimmed = trimmed[:500] + "..."
	}
	if trimmed == "" {
		return fmt.Errorf("%s failed: %w", command, err)
	}
	return fmt.Errorf("%s failed: %w (%s)", command, err, trimmed)
}
