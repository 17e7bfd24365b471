// Package transcribe loads a speech-to-text model once per batch and turns one
// audio file into text.
package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"fabla-transcriber/internal/domain"
)

// Engine loads a model that is reused for every file of a batch.
type Engine interface {
	Load(ctx context.Context, name string) (Model, error)
}

// Model transcribes one audio file per call.
type Model interface {
	Transcribe(ctx context.Context, path string) (string, error)
	Close() error
}

// ModelLoadError reports that the engine could not be initialized.
type ModelLoadError struct {
	Engine string
	Model  string
	Err    error
}

// Error formats the engine and model that failed to load.
func (e *ModelLoadError) Error() string {
	if e == nil {
		return ""
	}
	if e.Model == "" {
		return fmt.Sprintf("load %s model: %v", e.Engine, e.Err)
	}
	return fmt.Sprintf("load %s model %s: %v", e.Engine, e.Model, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *ModelLoadError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// TranscriptionError is a per-file failure; the batch continues past it.
type TranscriptionError struct {
	Path string
	Err  error
}

// Error formats the failure reason.
func (e *TranscriptionError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("transcribe %s: %v", e.Path, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *TranscriptionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Reason returns the bare failure cause without the path prefix.
func (e *TranscriptionError) Reason() string {
	if e == nil || e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// Invoke runs one transcription and converts every failure, panics included, into
// an Outcome. It never returns an error to the caller.
func Invoke(ctx context.Context, model Model, path string) (out domain.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = domain.Outcome{Err: &TranscriptionError{Path: path, Err: fmt.Errorf("engine panic: %v", r)}}
		}
	}()

	if model == nil {
		return domain.Outcome{Err: &TranscriptionError{Path: path, Err: fmt.Errorf("model is not loaded")}}
	}

	text, err := model.Transcribe(ctx, path)
	if err != nil {
		return domain.Outcome{Err: &TranscriptionError{Path: path, Err: err}}
	}
	return domain.Outcome{Text: normalizeText(text)}
}

// normalizeText trims the transcript and folds CRLF line breaks to LF, which is
// what a CSV reader yields for quoted fields.
func normalizeText(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
}

// NewEngine selects the engine named in settings.
func NewEngine(settings domain.Settings, logger *slog.Logger) (Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch strings.ToLower(strings.TrimSpace(settings.Engine)) {
	case domain.EngineWhisperCpp, "":
		engine := NewWhisperCpp(settings.FFmpegPath, settings.WhisperPath, settings.Language)
		engine.OnCommand = func(log CommandLog) {
			logger.Debug("command finished", "cmd", log.Command, "exit", log.ExitCode)
		}
		return engine, nil
	case domain.EngineOpenAI:
		return NewOpenAI(settings.OpenAIAPIKey, settings.Language), nil
	default:
		return nil, fmt.Errorf("transcribe: unknown engine %q (supported: %s, %s)", settings.Engine, domain.EngineWhisperCpp, domain.EngineOpenAI)
	}
}

// ModelRef maps settings to the name passed to Engine.Load. For whisper.cpp that
// is ggml-<ModelName>.bin inside ModelPath when present, otherwise ModelPath
// itself, in which case Load picks the first model file and a warning names it.
// For OpenAI, whisper.cpp size names are dropped so Load picks its default.
func ModelRef(settings domain.Settings, logger *slog.Logger) string {
	if logger == nil {
		logger = slog.Default()
	}
	name := strings.TrimSpace(settings.ModelName)
	if strings.EqualFold(strings.TrimSpace(settings.Engine), domain.EngineOpenAI) {
		if strings.HasPrefix(name, "whisper-") || strings.Contains(name, "transcribe") {
			return name
		}
		return ""
	}

	if name != "" {
		candidate := filepath.Join(settings.ModelPath, "ggml-"+name+".bin")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
		if fallback := firstModelFile(settings.ModelPath); fallback != "" {
			logger.Warn("requested model not found; using another model file",
				"requested", filepath.Base(candidate), "using", fallback)
		}
	}
	return settings.ModelPath
}

// firstModelFile returns the name of the model file Load would pick from dir, or
// "" when dir is not a readable directory holding one.
func firstModelFile(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		if !entry.IsDir() && IsModelFile(entry.Name()) {
			return entry.Name()
		}
	}
	return ""
}
