package transcribe

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"

	"fabla-transcriber/internal/domain"
)

// stubModel returns canned text or errors.
type stubModel struct {
	transcribe func(ctx context.Context, path string) (string, error)
}

func (m *stubModel) Transcribe(ctx context.Context, path string) (string, error) {
	return m.transcribe(ctx, path)
}

func (m *stubModel) Close() error { return nil }

// TestInvokeSuccessTrimsText checks success outcomes.
func TestInvokeSuccessTrimsText(t *testing.T) {
	model := &stubModel{transcribe: func(context.Context, string) (string, error) {
		return " hello world\n", nil
	}}

	out := Invoke(context.Background(), model, "a.wav")
	if !out.OK() {
		t.Fatalf("unexpected failure: %v", out.Err)
	}
	if out.Text != "hello world" {
		t.Fatalf("text = %q, want hello world", out.Text)
	}

	model.transcribe = func(context.Context, string) (string, error) {
		return "line one\r\nline two\r\n", nil
	}
	if out := Invoke(context.Background(), model, "b.wav"); out.Text != "line one\nline two" {
		t.Fatalf("text = %q, want CRLF folded to LF", out.Text)
	}
}

// TestInvokeConvertsErrors checks engine errors become per-file failures.
func TestInvokeConvertsErrors(t *testing.T) {
	cause := errors.New("unsupported codec")
	model := &stubModel{transcribe: func(context.Context, string) (string, error) {
		return "", cause
	}}

	out := Invoke(context.Background(), model, "bad.wav")
	if out.OK() {
		t.Fatal("expected failure")
	}
	var tErr *TranscriptionError
	if !errors.As(out.Err, &tErr) {
		t.Fatalf("error type = %T, want *TranscriptionError", out.Err)
	}
	if !errors.Is(out.Err, cause) {
		t.Fatal("expected cause to be preserved")
	}
	if tErr.Reason() != "unsupported codec" {
		t.Fatalf("reason = %q", tErr.Reason())
	}
}

// TestInvokeRecoversPanics checks a crashing engine does not escape.
func TestInvokeRecoversPanics(t *testing.T) {
	model := &stubModel{transcribe: func(context.Context, string) (string, error) {
		panic("decoder exploded")
	}}

	out := Invoke(context.Background(), model, "bad.wav")
	if out.OK() {
		t.Fatal("expected failure")
	}
}

// TestNewEngineSelection checks engine name dispatch.
func TestNewEngineSelection(t *testing.T) {
	if e, err := NewEngine(domain.Settings{}, nil); err != nil {
		t.Fatalf("default engine: %v", err)
	} else if _, ok := e.(*WhisperCpp); !ok {
		t.Fatalf("default engine = %T, want *WhisperCpp", e)
	}

	if e, err := NewEngine(domain.Settings{Engine: "OpenAI"}, nil); err != nil {
		t.Fatalf("openai engine: %v", err)
	} else if _, ok := e.(*OpenAI); !ok {
		t.Fatalf("engine = %T, want *OpenAI", e)
	}

	if _, err := NewEngine(domain.Settings{Engine: "vosk"}, nil); err == nil {
		t.Fatal("expected unknown engine error")
	}
}

// fakeOpenAI records transcription requests.
type fakeOpenAI struct {
	requests []openai.AudioRequest
	text     string
	err      error
}

func (f *fakeOpenAI) CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return openai.AudioResponse{}, f.err
	}
	return openai.AudioResponse{Text: f.text}, nil
}

// TestOpenAITranscribe checks request mapping and defaults.
func TestOpenAITranscribe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	mustWriteFile(t, path, "audio")

	client := &fakeOpenAI{text: " hi there "}
	engine := NewOpenAIForTests(client, "auto")
	model, err := engine.Load(context.Background(), "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	text, err := model.Transcribe(context.Background(), path)
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if text != "hi there" {
		t.Fatalf("text = %q", text)
	}
	if len(client.requests) != 1 {
		t.Fatalf("requests = %d, want 1", len(client.requests))
	}
	req := client.requests[0]
	if req.Model != openai.Whisper1 || req.FilePath != path || req.Language != "" {
		t.Fatalf("unexpected request: %+v", req)
	}
}

// TestOpenAILoadRequiresKey checks missing credentials fail at load time.
func TestOpenAILoadRequiresKey(t *testing.T) {
	_, err := NewOpenAI("", "en").Load(context.Background(), "whisper-1")
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("error = %v, want %v", err, ErrMissingAPIKey)
	}
	var loadErr *ModelLoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("error type = %T, want *ModelLoadError", err)
	}
}

// TestModelRefWarnsOnSubstitutedModel checks the fallback file is named in a warning.
func TestModelRefWarnsOnSubstitutedModel(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "ggml-tiny.bin"), "stub")
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	got := ModelRef(domain.Settings{Engine: "whispercpp", ModelPath: dir, ModelName: "base"}, logger)
	if got != dir {
		t.Fatalf("ModelRef() = %q, want %q", got, dir)
	}
	logged := buf.String()
	if !strings.Contains(logged, "level=WARN") || !strings.Contains(logged, "ggml-base.bin") || !strings.Contains(logged, "ggml-tiny.bin") {
		t.Fatalf("log = %q, want warning naming requested and substituted files", logged)
	}

	buf.Reset()
	mustWriteFile(t, filepath.Join(dir, "ggml-base.bin"), "stub")
	ModelRef(domain.Settings{Engine: "whispercpp", ModelPath: dir, ModelName: "base"}, logger)
	if buf.Len() != 0 {
		t.Fatalf("unexpected log when requested model exists: %q", buf.String())
	}
}

// TestModelRef verifies settings map to the name passed to Load.
func TestModelRef(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "ggml-small.bin"), "stub")

	tests := []struct {
		name     string
		settings domain.Settings
		want     string
	}{
		{"named file present", domain.Settings{Engine: "whispercpp", ModelPath: dir, ModelName: "small"}, filepath.Join(dir, "ggml-small.bin")},
		{"named file missing", domain.Settings{Engine: "whispercpp", ModelPath: dir, ModelName: "base"}, dir},
		{"openai default", domain.Settings{Engine: "openai", ModelName: "base"}, ""},
		{"openai explicit", domain.Settings{Engine: "openai", ModelName: "whisper-1"}, "whisper-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ModelRef(tt.settings, slog.New(slog.NewTextHandler(io.Discard, nil))); got != tt.want {
				t.Fatalf("ModelRef() = %q, want %q", got, tt.want)
			}
		})
	}
}
