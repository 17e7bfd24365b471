package cli

import (
	"fmt"
	"io"

	"fabla-transcriber/internal/batch"
	"fabla-transcriber/internal/domain"
)

// Formatter prints human-readable CLI output.
type Formatter struct {
	w io.Writer
}

func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{w: w}
}

func (f *Formatter) Info(msg string) {
	fmt.Fprintf(f.w, "  %s\n", msg)
}

func (f *Formatter) Success(msg string) {
	fmt.Fprintf(f.w, "✓ %s\n", msg)
}

func (f *Formatter) Warning(msg string) {
	fmt.Fprintf(f.w, "⚠ %s\n", msg)
}

func (f *Formatter) Error(msg string) {
	fmt.Fprintf(f.w, "✗ %s\n", msg)
}

func (f *Formatter) Progress(p domain.Progress) {
	fmt.Fprintf(f.w, "[%3.0f%%] %s\n", p.Fraction*100, p.Message)
}

// LogLine routes an orchestrator log line by level.
func (f *Formatter) LogLine(line batch.LogLine) {
	switch line.Level {
	case batch.LogError:
		f.Error(line.Message)
	case batch.LogWarn:
		f.Warning(line.Message)
	case batch.LogSuccess:
		f.Success(line.Message)
	default:
		f.Info(line.Message)
	}
}

func (f *Formatter) Check(item domain.DiagnosticItem) {
	switch item.Status {
	case domain.DiagnosticStatusPass:
		fmt.Fprintf(f.w, "  ✓ %s: %s\n", item.Name, item.Message)
	case domain.DiagnosticStatusWarn:
		fmt.Fprintf(f.w, "  ⚠ %s: %s\n", item.Name, item.Message)
	default:
		fmt.Fprintf(f.w, "  ✗ %s: %s\n", item.Name, item.Message)
	}
	if item.Hint != "" && item.Status != domain.DiagnosticStatusPass {
		fmt.Fprintf(f.w, "      %s\n", item.Hint)
	}
}

func (f *Formatter) Failures(failures []domain.FileFailure) {
	if len(failures) == 0 {
		return
	}
	fmt.Fprintf(f.w, "\nFailed files (%d):\n", len(failures))
	for _, ff := range failures {
		fmt.Fprintf(f.w, "  %s: %s\n", ff.Filename, ff.Reason)
	}
}
