package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"fabla-transcriber/internal/domain"
)

// Stage names reported in StageError.
const (
	StagePreprocessing = "preprocessing"
	StageTranscribing  = "transcribing"
	StageReading       = "reading"
)

// CommandLog captures one external command invocation result.
type CommandLog struct {
	Command  string   `json:"command"`
	Args     []string `json:"args"`
	ExitCode int      `json:"exitCode"`
	Stdout   string   `json:"stdout"`
	Stderr   string   `json:"stderr"`
}

// StageError is a stage-aware error with optional command context.
type StageError struct {
	Stage      string     `json:"stage"`
	Message    string     `json:"message"`
	CommandLog CommandLog `json:"commandLog"`
	Err        error      `json:"-"`
}

// Error formats stage failures for logs and UI.
func (e *StageError) Error() string {
	if e == nil {
		return ""
	}
	if e.CommandLog.Command == "" {
		return fmt.Sprintf("%s: %s", e.Stage, e.Message)
	}

	return fmt.Sprintf(
		"%s: %s (cmd=%s exit=%d)",
		e.Stage,
		e.Message,
		e.CommandLog.Command,
		e.CommandLog.ExitCode,
	)
}

// Unwrap exposes underlying error for errors.Is / errors.As.
func (e *StageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// commandResult is an internal process execution response.
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
}

// execRunner executes commands via os/exec.
type execRunner struct{}

// Run executes one command and captures stdout/stderr and exit code.
func (r *execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := commandResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: 0,
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}

	return result, nil
}

// WhisperCpp runs ffmpeg preprocessing followed by the whisper.cpp CLI.
type WhisperCpp struct {
	ffmpegPath  string
	whisperPath string
	language    string

	// OnCommand, when set, receives every external command result.
	OnCommand func(log CommandLog)

	runner    commandRunner
	lookPath  func(file string) (string, error)
	mkdirTemp func(dir, pattern string) (string, error)
	removeAll func(path string) error
	stat      func(name string) (os.FileInfo, error)
	readDir   func(name string) ([]os.DirEntry, error)
	readFile  func(name string) ([]byte, error)
}

// NewWhisperCpp constructs the production engine. Empty tool paths default to
// "ffmpeg" and "whisper.cpp" resolved on PATH.
func NewWhisperCpp(ffmpegPath, whisperPath, language string) *WhisperCpp {
	if strings.TrimSpace(ffmpegPath) == "" {
		ffmpegPath = "ffmpeg"
	}
	if strings.TrimSpace(whisperPath) == "" {
		whisperPath = "whisper.cpp"
	}
	return &WhisperCpp{
		ffmpegPath:  ffmpegPath,
		whisperPath: whisperPath,
		language:    language,
		runner:      &execRunner{},
		lookPath:    exec.LookPath,
		mkdirTemp:   os.MkdirTemp,
		removeAll:   os.RemoveAll,
		stat:        os.Stat,
		readDir:     os.ReadDir,
		readFile:    os.ReadFile,
	}
}

// Load resolves the ggml model file and checks that both external tools are
// installed. name may be a model file or a directory holding .bin/.gguf models.
func (w *WhisperCpp) Load(ctx context.Context, name string) (Model, error) {
	modelPath, err := w.resolveModelPath(name)
	if err != nil {
		return nil, &ModelLoadError{Engine: domain.EngineWhisperCpp, Model: name, Err: err}
	}

	for _, tool := range []string{w.ffmpegPath, w.whisperPath} {
		if _, err := w.lookPath(tool); err != nil {
			return nil, &ModelLoadError{
				Engine: domain.EngineWhisperCpp,
				Model:  modelPath,
				Err:    fmt.Errorf("required tool %s is not installed: %w", tool, err),
			}
		}
	}

	return &whisperModel{engine: w, modelPath: modelPath}, nil
}

// whisperModel holds the resolved model file for one batch.
type whisperModel struct {
	engine    *WhisperCpp
	modelPath string
}

// Close is a no-op; whisper.cpp loads the model per process.
func (m *whisperModel) Close() error {
	return nil
}

// Transcribe converts the input to 16 kHz mono WAV and runs whisper.cpp on it.
func (m *whisperModel) Transcribe(ctx context.Context, inputPath string) (string, error) {
	w := m.engine

	if _, err := w.stat(inputPath); err != nil {
		return "", &StageError{
			Stage:   StagePreprocessing,
			Message: fmt.Sprintf("cannot access input audio: %s", inputPath),
			Err:     err,
		}
	}

	tempDir, err := w.mkdirTemp("", "fabla-transcriber-*")
	if err != nil {
		return "", &StageError{
			Stage:   StagePreprocessing,
			Message: "failed to create temporary workspace",
			Err:     err,
		}
	}
	defer func() { _ = w.removeAll(tempDir) }()

	outPath := filepath.Join(tempDir, "preprocessed-16k-mono.wav")
	args := buildFFmpegArgs(inputPath, outPath)

	cmdResult, runErr := w.runner.Run(ctx, w.ffmpegPath, args...)
	log := CommandLog{
		Command:  w.ffmpegPath,
		Args:     args,
		ExitCode: cmdResult.ExitCode,
		Stdout:   cmdResult.Stdout,
		Stderr:   cmdResult.Stderr,
	}
	w.emit(log)
	if runErr != nil {
		return "", &StageError{
			Stage:      StagePreprocessing,
			Message:    "ffmpeg audio conversion failed",
			CommandLog: log,
			Err:        runErr,
		}
	}

	if _, err := w.stat(outPath); err != nil {
		return "", &StageError{
			Stage:      StagePreprocessing,
			Message:    "ffmpeg completed but output file is missing",
			CommandLog: log,
			Err:        err,
		}
	}

	textBase := filepath.Join(tempDir, "transcript")
	whisperArgs := buildWhisperArgs(m.modelPath, outPath, textBase, w.language)

	whisperResult, runErr := w.runner.Run(ctx, w.whisperPath, whisperArgs...)
	whisperLog := CommandLog{
		Command:  w.whisperPath,
		Args:     whisperArgs,
		ExitCode: whisperResult.ExitCode,
		Stdout:   whisperResult.Stdout,
		Stderr:   whisperResult.Stderr,
	}
	w.emit(whisperLog)
	if runErr != nil {
		return "", &StageError{
			Stage:      StageTranscribing,
			Message:    "whisper.cpp transcription failed",
			CommandLog: whisperLog,
			Err:        runErr,
		}
	}

	textPath := textBase + ".txt"
	content, err := w.readFile(textPath)
	if err != nil {
		return "", &StageError{
			Stage:      StageReading,
			Message:    "whisper.cpp completed but transcript .txt file is missing",
			CommandLog: whisperLog,
			Err:        err,
		}
	}

	return strings.TrimSpace(string(content)), nil
}

// emit forwards command logs when a callback is configured.
func (w *WhisperCpp) emit(log CommandLog) {
	if w.OnCommand != nil {
		w.OnCommand(log)
	}
}

// resolveModelPath returns model file path from file or directory input.
func (w *WhisperCpp) resolveModelPath(rawPath string) (string, error) {
	modelPath := strings.TrimSpace(rawPath)
	if modelPath == "" {
		return "", fmt.Errorf("model path is required")
	}

	info, err := w.stat(modelPath)
	if err != nil {
		return "", fmt.Errorf("cannot access model path: %s", modelPath)
	}
	if !info.IsDir() {
		return modelPath, nil
	}

	entries, err := w.readDir(modelPath)
	if err != nil {
		return "", fmt.Errorf("cannot read model directory: %s", modelPath)
	}

	modelNames := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if IsModelFile(entry.Name()) {
			modelNames = append(modelNames, entry.Name())
		}
	}
	if len(modelNames) == 0 {
		return "", fmt.Errorf("no .bin or .gguf model files found in: %s", modelPath)
	}

	sort.Strings(modelNames)
	return filepath.Join(modelPath, modelNames[0]), nil
}

// IsModelFile reports whether name carries a ggml model extension.
func IsModelFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".bin" || ext == ".gguf"
}

// normalizeLanguage maps "auto" and empty language to no CLI override.
func normalizeLanguage(raw string) string {
	lang := strings.TrimSpace(raw)
	if lang == "" || strings.EqualFold(lang, "auto") {
		return ""
	}
	return lang
}

// buildFFmpegArgs builds preprocessing CLI args for mono 16k PCM WAV output.
func buildFFmpegArgs(inputPath, outPath string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", inputPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		outPath,
	}
}

// buildWhisperArgs builds whisper.cpp args for txt transcript export.
func buildWhisperArgs(modelPath, audioPath, textBase, language string) []string {
	args := []string{
		"-m", modelPath,
		"-f", audioPath,
		"-of", textBase,
		"-otxt",
		"-np",
	}

	if lang := normalizeLanguage(language); lang != "" {
		args = append(args, "-l", lang)
	}

	return args
}

// NewWhisperCppForTests constructs an engine with injectable dependencies.
func NewWhisperCppForTests(
	ffmpegPath string,
	whisperPath string,
	language string,
	runner commandRunner,
	lookPath func(string) (string, error),
	mkdirTemp func(dir, pattern string) (string, error),
	removeAll func(path string) error,
) *WhisperCpp {
	return &WhisperCpp{
		ffmpegPath:  ffmpegPath,
		whisperPath: whisperPath,
		language:    language,
		runner:      runner,
		lookPath:    lookPath,
		mkdirTemp:   mkdirTemp,
		removeAll:   removeAll,
		stat:        os.Stat,
		readDir:     os.ReadDir,
		readFile:    os.ReadFile,
	}
}
