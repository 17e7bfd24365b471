package diagnostics

import (
	"errors"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/samber/lo"

	"fabla-transcriber/internal/domain"
	"fabla-transcriber/internal/transcribe"
)

// Checker validates external tools, credentials, and required filesystem paths.
type Checker struct {
	goos       string
	lookPath   func(string) (string, error)
	stat       func(string) (os.FileInfo, error)
	readDir    func(string) ([]os.DirEntry, error)
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
}

// NewChecker builds a checker using real OS dependencies.
func NewChecker() *Checker {
	return &Checker{
		goos:       runtime.GOOS,
		lookPath:   exec.LookPath,
		stat:       os.Stat,
		readDir:    os.ReadDir,
		mkdirAll:   os.MkdirAll,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
	}
}

// Run executes the checks relevant to the configured engine and returns a
// combined report.
func (c *Checker) Run(settings domain.Settings) domain.DiagnosticReport {
	var items []domain.DiagnosticItem
	switch strings.ToLower(strings.TrimSpace(settings.Engine)) {
	case domain.EngineOpenAI:
		items = append(items, checkAPIKey(settings.OpenAIAPIKey))
	default:
		items = append(items,
			c.checkTool("ffmpeg", orDefault(settings.FFmpegPath, "ffmpeg"), ffmpegHint(c.goos)),
			c.checkTool("whisper.cpp", orDefault(settings.WhisperPath, "whisper.cpp"),
				"Build whisper.cpp (https://github.com/ggerganov/whisper.cpp) and put its CLI on PATH or set whisper_path."),
			c.checkModelPath(settings.ModelPath),
		)
	}
	items = append(items, c.checkOutputDir(settings.OutputDir))

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		HasFailures: lo.SomeBy(items, func(item domain.DiagnosticItem) bool {
			return item.Status == domain.DiagnosticStatusFail
		}),
		Items: items,
	}
}

func pass(id, name, message string) domain.DiagnosticItem {
	return domain.DiagnosticItem{ID: id, Name: name, Status: domain.DiagnosticStatusPass, Message: message}
}

func fail(id, name, message, hint string) domain.DiagnosticItem {
	return domain.DiagnosticItem{ID: id, Name: name, Status: domain.DiagnosticStatusFail, Message: message, Hint: hint}
}

// checkTool looks binary up on PATH. The item ID is "tool_" + name.
func (c *Checker) checkTool(name, binary, hint string) domain.DiagnosticItem {
	id := "tool_" + name
	path, err := c.lookPath(binary)
	if err != nil {
		return fail(id, name, "Tool not found in PATH: "+binary, hint)
	}
	return pass(id, name, "Found at "+path)
}

func ffmpegHint(goos string) string {
	const why = "FFmpeg is required for processing audio files. "
	switch goos {
	case "darwin":
		return why + "Install with: brew install ffmpeg"
	case "windows":
		return why + "Download from: https://ffmpeg.org/download.html"
	default:
		return why + "Install with: sudo apt install ffmpeg"
	}
}

func checkAPIKey(key string) domain.DiagnosticItem {
	const id, name = "openai_api_key", "OpenAI API key"
	if strings.TrimSpace(key) == "" {
		return fail(id, name, "OPENAI_API_KEY is not set.", "Export OPENAI_API_KEY or add it to a .env file.")
	}
	return pass(id, name, "API key configured.")
}

// checkModelPath accepts a model file or a directory holding at least one.
func (c *Checker) checkModelPath(modelPath string) domain.DiagnosticItem {
	const id, name = "model_path", "Model path"
	const downloadHint = "Run `fabla models download base` or configure model_path."

	if strings.TrimSpace(modelPath) == "" {
		return fail(id, name, "Model path is empty.", downloadHint)
	}

	info, err := c.stat(modelPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return fail(id, name, "Model path does not exist: "+modelPath, downloadHint)
	case err != nil:
		return fail(id, name, "Cannot access model path: "+modelPath, downloadHint)
	case !info.IsDir():
		return pass(id, name, "Model file found: "+modelPath)
	}

	entries, err := c.readDir(modelPath)
	if err != nil {
		return fail(id, name, "Cannot read model directory: "+modelPath, "Check permissions for the model directory.")
	}
	hasModel := lo.ContainsBy(entries, func(entry os.DirEntry) bool {
		return !entry.IsDir() && transcribe.IsModelFile(entry.Name())
	})
	if !hasModel {
		return fail(id, name, "No model files found in directory: "+modelPath,
			"Run `fabla models download base` or place a .bin/.gguf model in this directory.")
	}
	return pass(id, name, "Model directory is valid: "+modelPath)
}

// checkOutputDir probes write access with a temp file. An empty value means
// transcripts are written into each scanned folder. A directory that exists but
// rejects writes is only a warning; the batch reports the real write error.
func (c *Checker) checkOutputDir(outputDir string) domain.DiagnosticItem {
	const id, name = "output_dir", "Output directory"

	if strings.TrimSpace(outputDir) == "" {
		return pass(id, name, "Transcripts are written into the scanned folder.")
	}
	if err := c.mkdirAll(outputDir, 0o755); err != nil {
		return fail(id, name, "Cannot create output directory: "+outputDir,
			"Choose a writable location or adjust filesystem permissions.")
	}

	probe, err := c.createTemp(outputDir, ".write-check-*")
	if err != nil {
		return domain.DiagnosticItem{
			ID:      id,
			Name:    name,
			Status:  domain.DiagnosticStatusWarn,
			Message: "Output directory is not writable: " + outputDir,
			Hint:    "Choose a writable directory for transcripts.csv.",
		}
	}
	probePath := probe.Name()
	_ = probe.Close()
	_ = c.remove(probePath)

	return pass(id, name, "Writable directory: "+outputDir)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// NewCheckerForTests creates checker with injectable dependencies.
func NewCheckerForTests(
	goos string,
	lookPath func(string) (string, error),
	stat func(string) (os.FileInfo, error),
	readDir func(string) ([]os.DirEntry, error),
	mkdirAll func(string, os.FileMode) error,
	createTemp func(string, string) (*os.File, error),
	remove func(string) error,
) *Checker {
	return &Checker{
		goos:       goos,
		lookPath:   lookPath,
		stat:       stat,
		readDir:    readDir,
		mkdirAll:   mkdirAll,
		createTemp: createTemp,
		remove:     remove,
	}
}
