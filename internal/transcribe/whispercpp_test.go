package transcribe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeRunner simulates command execution order and outcomes.
type fakeRunner struct {
	run func(ctx context.Context, name string, args ...string) (commandResult, error)
}

// Run delegates to injected behavior.
func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	if f.run == nil {
		return commandResult{}, nil
	}
	return f.run(ctx, name, args...)
}

// foundTool pretends every binary is installed.
func foundTool(name string) (string, error) {
	return "/usr/local/bin/" + name, nil
}

// TestWhisperCppTranscribeSuccess checks the full happy path with auto language.
func TestWhisperCppTranscribeSuccess(t *testing.T) {
	root := t.TempDir()
	inputPath := filepath.Join(root, "P001_2024-01-15_14-30-00.wav")
	modelPath := filepath.Join(root, "ggml-base.bin")
	mustWriteFile(t, inputPath, "audio")
	mustWriteFile(t, modelPath, "model")

	call := 0
	var whisperArgs []string
	var tempDir string
	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (commandResult, error) {
			call++
			switch call {
			case 1:
				if name != "ffmpeg-custom" {
					t.Fatalf("command 1 name = %q, want ffmpeg-custom", name)
				}
				outPath := args[len(args)-1]
				tempDir = filepath.Dir(outPath)
				mustWriteFile(t, outPath, "wav")
				return commandResult{Stdout: "ffmpeg ok"}, nil
			case 2:
				if name != "whisper-custom" {
					t.Fatalf("command 2 name = %q, want whisper-custom", name)
				}
				whisperArgs = append([]string{}, args...)
				mustWriteFile(t, argValue(args, "-of")+".txt", "  hello world\n")
				return commandResult{Stdout: "whisper ok"}, nil
			default:
				t.Fatalf("unexpected command call: %d", call)
				return commandResult{}, nil
			}
		},
	}

	engine := NewWhisperCppForTests("ffmpeg-custom", "whisper-custom", "auto", runner, foundTool, os.MkdirTemp, os.RemoveAll)
	var logs []CommandLog
	engine.OnCommand = func(log CommandLog) { logs = append(logs, log) }

	model, err := engine.Load(context.Background(), modelPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	text, err := model.Transcribe(context.Background(), inputPath)
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}

	if text != "hello world" {
		t.Fatalf("text = %q, want hello world", text)
	}
	if call != 2 {
		t.Fatalf("command calls = %d, want 2", call)
	}
	if len(logs) != 2 {
		t.Fatalf("logs count = %d, want 2", len(logs))
	}
	if hasArg(whisperArgs, "-l") {
		t.Fatalf("auto language should not pass -l, args=%v", whisperArgs)
	}
	if argValue(whisperArgs, "-m") != modelPath {
		t.Fatalf("model arg = %q, want %q", argValue(whisperArgs, "-m"), modelPath)
	}
	if _, err := os.Stat(tempDir); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected temp dir cleanup, stat err = %v", err)
	}
}

// TestWhisperCppFFmpegFailureReturnsStageError checks the conversion error path.
func TestWhisperCppFFmpegFailureReturnsStageError(t *testing.T) {
	root := t.TempDir()
	inputPath := filepath.Join(root, "bad.wav")
	modelPath := filepath.Join(root, "model.bin")
	mustWriteFile(t, inputPath, "corrupt")
	mustWriteFile(t, modelPath, "model")

	var cleaned string
	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (commandResult, error) {
			return commandResult{
				Stderr:   "Invalid data found when processing input",
				ExitCode: 1,
			}, errors.New("exit status 1")
		},
	}

	engine := NewWhisperCppForTests(
		"ffmpeg",
		"whisper.cpp",
		"",
		runner,
		foundTool,
		os.MkdirTemp,
		func(path string) error {
			cleaned = path
			return os.RemoveAll(path)
		},
	)

	model, err := engine.Load(context.Background(), modelPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	_, err = model.Transcribe(context.Background(), inputPath)
	if err == nil {
		t.Fatal("expected error")
	}

	var sErr *StageError
	if !errors.As(err, &sErr) {
		t.Fatalf("error type = %T, want *StageError", err)
	}
	if sErr.Stage != StagePreprocessing {
		t.Fatalf("stage = %s, want preprocessing", sErr.Stage)
	}
	if sErr.CommandLog.ExitCode != 1 {
		t.Fatalf("exit code = %d, want 1", sErr.CommandLog.ExitCode)
	}
	if strings.TrimSpace(cleaned) == "" {
		t.Fatal("expected temporary directory cleanup")
	}
}

// TestWhisperCppFixedLanguageAndModelDirectory checks model discovery in a folder.
func TestWhisperCppFixedLanguageAndModelDirectory(t *testing.T) {
	root := t.TempDir()
	inputPath := filepath.Join(root, "clip.mp3")
	modelDir := filepath.Join(root, "models")
	mustWriteFile(t, inputPath, "audio")
	if err := os.MkdirAll(modelDir, 0o755); err != nil {
		t.Fatalf("mkdir models: %v", err)
	}
	// lexical sort should pick this first.
	mustWriteFile(t, filepath.Join(modelDir, "a-small.gguf"), "model")
	mustWriteFile(t, filepath.Join(modelDir, "z-large.bin"), "model")
	mustWriteFile(t, filepath.Join(modelDir, "README.md"), "docs")

	var usedModel, usedLanguage string
	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (commandResult, error) {
			if name == "ffmpeg" {
				mustWriteFile(t, args[len(args)-1], "wav")
				return commandResult{}, nil
			}
			usedModel = argValue(args, "-m")
			usedLanguage = argValue(args, "-l")
			mustWriteFile(t, argValue(args, "-of")+".txt", "transcribed")
			return commandResult{}, nil
		},
	}

	engine := NewWhisperCppForTests("ffmpeg", "whisper.cpp", "en", runner, foundTool, os.MkdirTemp, os.RemoveAll)
	model, err := engine.Load(context.Background(), modelDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, err := model.Transcribe(context.Background(), inputPath); err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}

	if usedModel != filepath.Join(modelDir, "a-small.gguf") {
		t.Fatalf("model = %q", usedModel)
	}
	if usedLanguage != "en" {
		t.Fatalf("language = %q, want en", usedLanguage)
	}
}

// TestWhisperCppLoadFailures checks model and tool validation.
func TestWhisperCppLoadFailures(t *testing.T) {
	root := t.TempDir()
	modelPath := filepath.Join(root, "ggml-base.bin")
	mustWriteFile(t, modelPath, "model")
	emptyDir := filepath.Join(root, "empty")
	if err := os.MkdirAll(emptyDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	missingTool := func(name string) (string, error) {
		if name == "ffmpeg" {
			return "", errors.New("executable file not found in $PATH")
		}
		return "/usr/bin/" + name, nil
	}

	tests := []struct {
		name     string
		model    string
		lookPath func(string) (string, error)
	}{
		{"empty model path", "", foundTool},
		{"missing model path", filepath.Join(root, "nope.bin"), foundTool},
		{"directory without models", emptyDir, foundTool},
		{"ffmpeg not installed", modelPath, missingTool},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewWhisperCppForTests("ffmpeg", "whisper.cpp", "", &fakeRunner{}, tt.lookPath, os.MkdirTemp, os.RemoveAll)
			_, err := engine.Load(context.Background(), tt.model)
			var loadErr *ModelLoadError
			if !errors.As(err, &loadErr) {
				t.Fatalf("error = %v (%T), want *ModelLoadError", err, err)
			}
		})
	}
}

// TestWhisperCppMissingInput checks the input stat guard.
func TestWhisperCppMissingInput(t *testing.T) {
	root := t.TempDir()
	modelPath := filepath.Join(root, "ggml-base.bin")
	mustWriteFile(t, modelPath, "model")

	engine := NewWhisperCppForTests("ffmpeg", "whisper.cpp", "", &fakeRunner{}, foundTool, os.MkdirTemp, os.RemoveAll)
	model, err := engine.Load(context.Background(), modelPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	_, err = model.Transcribe(context.Background(), filepath.Join(root, "gone.wav"))
	var sErr *StageError
	if !errors.As(err, &sErr) || sErr.Stage != StagePreprocessing {
		t.Fatalf("error = %v, want preprocessing StageError", err)
	}
}

// argValue returns the value following a flag in args.
func argValue(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

// hasArg reports whether a flag is present in args.
func hasArg(args []string, flag string) bool {
	for _, arg := range args {
		if arg == flag {
			return true
		}
	}
	return false
}

// mustWriteFile writes a file and creates parents as needed.
func mustWriteFile(t *testing.T, path string, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
