package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"fabla-transcriber/internal/domain"
	"fabla-transcriber/internal/export"
	"fabla-transcriber/internal/filename"
	"fabla-transcriber/internal/transcribe"
)

// LogLevel classifies run log lines for front-ends.
type LogLevel string

const (
	LogInfo    LogLevel = "info"
	LogSuccess LogLevel = "success"
	LogWarn    LogLevel = "warn"
	LogError   LogLevel = "error"
)

// LogLine is one entry of the running per-file log.
type LogLine struct {
	Level   LogLevel `json:"level"`
	Message string   `json:"message"`
	File    string   `json:"file,omitempty"`
}

// Request describes one batch run.
type Request struct {
	Folder     string
	Output     string
	ModelName  string
	Filename   domain.FilenameConfig // zero value selects the default layout
	Extensions ExtensionSet
	OnProgress func(domain.Progress)
	OnLog      func(LogLine)
}

// Writer persists the final records.
type Writer func(records []domain.TranscriptRecord, destination string) error

// Orchestrator runs one batch. Build a new one per run.
type Orchestrator struct {
	engine transcribe.Engine
	write  Writer
	logger *slog.Logger
	status domain.BatchStatus
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithWriter replaces the CSV writer.
func WithWriter(w Writer) Option {
	return func(o *Orchestrator) {
		o.write = w
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New builds an orchestrator around a speech-to-text engine.
func New(engine transcribe.Engine, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		engine: engine,
		write:  export.Write,
		logger: slog.Default(),
		status: domain.BatchStatusIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Status returns the current state of the run.
func (o *Orchestrator) Status() domain.BatchStatus {
	return o.status
}

// DefaultOutputPath places the table inside the scanned folder.
func DefaultOutputPath(folder string) string {
	return filepath.Join(folder, export.FileName)
}

// OutputPath resolves the table location for folder. An empty outputDir keeps the
// table inside the folder; otherwise it is written as <outputDir>/<folder>_transcripts.csv.
func OutputPath(outputDir, folder string) string {
	if strings.TrimSpace(outputDir) == "" {
		return DefaultOutputPath(folder)
	}
	name := filepath.Base(filepath.Clean(folder))
	return filepath.Join(outputDir, name+"_transcripts.csv")
}

// DownloadsOutputPath returns ~/Downloads/<folder>_transcripts/transcripts.csv and
// creates its directory.
func DownloadsOutputPath(homeDir, folder string) (string, error) {
	name := filepath.Base(filepath.Clean(folder))
	dir := filepath.Join(homeDir, "Downloads", name+"_transcripts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output folder: %w", err)
	}
	return filepath.Join(dir, export.FileName), nil
}

// Run discovers, transcribes, and writes. Fatal conditions are returned as
// *DiscoveryError, *transcribe.ModelLoadError, or *export.WriteError; on a write
// failure the returned Summary still carries the records so the caller may retry.
// Cancellation is checked only between files.
func (o *Orchestrator) Run(ctx context.Context, req Request) (domain.Summary, error) {
	o.status = domain.BatchStatusRunning
	summary := domain.Summary{Status: o.status}

	cfg := req.Filename
	if cfg == (domain.FilenameConfig{}) {
		cfg = domain.DefaultFilenameConfig()
	}
	cfg = filename.Normalize(cfg)
	exts := req.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions()
	}
	output := req.Output
	if output == "" {
		output = DefaultOutputPath(req.Folder)
	}

	files, err := Discover(req.Folder, exts)
	if err != nil {
		o.emitLog(req, LogLine{Level: LogError, Message: err.Error()})
		return o.finish(summary, domain.BatchStatusFailed), err
	}
	if len(files) == 0 {
		o.emitLog(req, LogLine{Level: LogWarn, Message: fmt.Sprintf("No audio files found in %s matching %s", req.Folder, exts)})
		return o.finish(summary, domain.BatchStatusCompletedEmpty), nil
	}
	o.emitLog(req, LogLine{Level: LogInfo, Message: fmt.Sprintf("Found %d audio file(s) to transcribe", len(files))})

	o.emitLog(req, LogLine{Level: LogInfo, Message: "Loading model..."})
	model, err := o.engine.Load(ctx, req.ModelName)
	if err != nil {
		o.emitLog(req, LogLine{Level: LogError, Message: err.Error()})
		return o.finish(summary, domain.BatchStatusFailed), err
	}
	defer func() {
		if cerr := model.Close(); cerr != nil {
			o.logger.Warn("close model", "err", cerr)
		}
	}()
	o.emitLog(req, LogLine{Level: LogSuccess, Message: "Model loaded"})

	// In-flight transcriptions are not interrupted; cancellation is polled per file.
	fileCtx := context.WithoutCancel(ctx)
	records := make([]domain.TranscriptRecord, 0, len(files))
	total := len(files)

	for i, path := range files {
		if err := ctx.Err(); err != nil {
			o.emitLog(req, LogLine{Level: LogWarn, Message: "Cancelled"})
			summary.Records = records
			summary.Recorded = len(records)
			return o.finish(summary, domain.BatchStatusCancelled), err
		}

		base := filepath.Base(path)
		index := i + 1
		summary.Attempted = index
		o.emitProgress(req, domain.Progress{
			Index:    index,
			Total:    total,
			Fraction: float64(index-1) / float64(total),
			Message:  fmt.Sprintf("Transcribing %d/%d: %s", index, total, base),
		})
		o.logger.Info("transcribing", "index", index, "total", total, "file", base)

		out := transcribe.Invoke(fileCtx, model, path)
		if !out.OK() {
			reason := failureReason(out.Err)
			summary.Failures = append(summary.Failures, domain.FileFailure{Filename: base, Reason: reason})
			o.emitLog(req, LogLine{Level: LogError, File: base, Message: fmt.Sprintf("Error transcribing %s: %s", base, reason)})
			continue
		}

		id, date, clock := filename.Extract(base, cfg)
		records = append(records, domain.TranscriptRecord{
			Filename:      base,
			ParticipantID: id,
			Date:          date,
			Time:          clock,
			Transcript:    out.Text,
		})
		o.emitLog(req, LogLine{Level: LogSuccess, File: base, Message: "Completed: " + base})
	}

	summary.Records = records
	summary.Recorded = len(records)
	if len(records) == 0 {
		o.emitLog(req, LogLine{Level: LogWarn, Message: "No files were successfully transcribed."})
		return o.finish(summary, domain.BatchStatusCompletedEmpty), nil
	}

	o.emitLog(req, LogLine{Level: LogInfo, Message: "Saving results to CSV..."})
	if err := o.write(records, output); err != nil {
		o.emitLog(req, LogLine{Level: LogError, Message: err.Error()})
		var wErr *export.WriteError
		if !errors.As(err, &wErr) {
			err = &export.WriteError{Path: output, Err: err}
		}
		return o.finish(summary, domain.BatchStatusFailed), err
	}

	summary.OutputPath = output
	o.emitProgress(req, domain.Progress{Index: total, Total: total, Fraction: 1, Message: "Transcription complete"})
	o.emitLog(req, LogLine{Level: LogSuccess, Message: fmt.Sprintf("Files transcribed: %d of %d", len(records), total)})
	o.emitLog(req, LogLine{Level: LogSuccess, Message: "Output file: " + output})
	return o.finish(summary, domain.BatchStatusCompleted), nil
}

func (o *Orchestrator) finish(summary domain.Summary, status domain.BatchStatus) domain.Summary {
	o.status = status
	summary.Status = status
	return summary
}

func (o *Orchestrator) emitProgress(req Request, p domain.Progress) {
	if req.OnProgress != nil {
		req.OnProgress(p)
	}
}

func (o *Orchestrator) emitLog(req Request, line LogLine) {
	switch line.Level {
	case LogError:
		o.logger.Error(line.Message, "file", line.File)
	case LogWarn:
		o.logger.Warn(line.Message)
	default:
		o.logger.Debug(line.Message, "file", line.File)
	}
	if req.OnLog != nil {
		req.OnLog(line)
	}
}

// failureReason strips the path prefix from per-file errors.
func failureReason(err error) string {
	var tErr *transcribe.TranscriptionError
	if errors.As(err, &tErr) {
		return tErr.Reason()
	}
	return err.Error()
}
