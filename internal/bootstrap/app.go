package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"fabla-transcriber/internal/batch"
	"fabla-transcriber/internal/config"
	"fabla-transcriber/internal/diagnostics"
	"fabla-transcriber/internal/domain"
	"fabla-transcriber/internal/export"
	"fabla-transcriber/internal/filename"
	"fabla-transcriber/internal/jobs"
	"fabla-transcriber/internal/transcribe"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

// EventName is the runtime event carrying jobs.Event payloads.
const EventName = "batch:event"

// DropEventName carries the folder resolved from a file dropped on the window.
const DropEventName = "folder:dropped"

// App wires configuration, jobs, the batch orchestrator, and UI runtime callbacks.
type App struct {
	Settings    domain.Settings
	Store       config.Store
	Jobs        *jobs.Manager
	Diagnostics domain.DiagnosticReport
	NewEngine   func(domain.Settings, *slog.Logger) (transcribe.Engine, error)
	Logger      *slog.Logger
	assets      fs.FS
	checker     *diagnostics.Checker
	installer   *installer
	httpClient  *http.Client

	mu          sync.Mutex
	activeJobID string
	cancel      context.CancelFunc
	events      *jobs.EventBus
	runtimeCtx  context.Context
	runs        sync.WaitGroup
	unsaved     []domain.TranscriptRecord
}

// ErrNothingToSave is returned by SaveUnsavedTranscripts when no failed write is pending.
var ErrNothingToSave = errors.New("no unsaved transcripts")

// BatchInput is what the window submits to start a run. Positions are the raw
// text of the layout fields; blanks fall back to saved settings.
type BatchInput struct {
	Folder       string `json:"folder"`
	FileTypes    string `json:"fileTypes"`
	Delimiter    string `json:"delimiter"`
	IDPosition   string `json:"idPosition"`
	DatePosition string `json:"datePosition"`
	TimePosition string `json:"timePosition"`
	Output       string `json:"output,omitempty"`
}

// FolderPreview reports a selected folder and how many files would be processed.
type FolderPreview struct {
	Folder     string `json:"folder"`
	FileCount  int    `json:"fileCount"`
	Extensions string `json:"extensions"`
}

// New builds the application with persisted settings and startup diagnostics.
func New(logger *slog.Logger) (*App, error) {
	return NewWithAssets(nil, logger)
}

// NewWithAssets builds the application and optionally configures embedded frontend assets.
func NewWithAssets(assets fs.FS, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store := config.OpenStore(config.DefaultPath())
	settings, err := config.Resolve(store)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	checker := diagnostics.NewChecker()
	report := checker.Run(settings)
	for _, item := range report.Failed() {
		logger.Warn("diagnostic failed", "check", item.ID, "message", item.Message)
	}

	return &App{
		Settings:    settings,
		Store:       store,
		Jobs:        jobs.NewManager(),
		Diagnostics: report,
		NewEngine:   transcribe.NewEngine,
		Logger:      logger,
		assets:      assets,
		checker:     checker,
		installer:   newInstaller(),
		events:      jobs.NewEventBus(1000),
	}, nil
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		assetOptions.Handler = http.FileServer(http.Dir("./frontend"))
	}

	return wails.Run(&options.App{
		Title:       "Fabla Transcriber",
		Width:       760,
		Height:      720,
		AssetServer: assetOptions,
		DragAndDrop: &options.DragAndDrop{EnableFileDrop: true},
		OnStartup:   a.Startup,
		OnShutdown: func(ctx context.Context) {
			_ = a.CancelBatch()
			a.mu.Lock()
			defer a.mu.Unlock()
			a.runtimeCtx = nil
		},
		Bind: []interface{}{a},
	})
}

// Startup stores the Wails runtime context and subscribes to file drops.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	a.runtimeCtx = ctx
	a.mu.Unlock()

	wailsruntime.OnFileDrop(ctx, func(_, _ int, paths []string) {
		if len(paths) == 0 {
			return
		}
		preview, err := a.ResolveDroppedPath(paths[0])
		if err != nil {
			a.logger().Warn("dropped path rejected", "path", paths[0], "err", err)
			return
		}
		wailsruntime.EventsEmit(ctx, DropEventName, preview)
	})
}

// GetDiagnostics returns the latest cached diagnostics report.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Diagnostics
}

// GetSettings loads and returns the latest persisted settings.
func (a *App) GetSettings() (domain.Settings, error) {
	settings, err := a.loadSettings()
	if err != nil {
		return domain.Settings{}, err
	}

	a.mu.Lock()
	a.Settings = settings
	a.mu.Unlock()

	return settings, nil
}

// SaveSettings normalizes and persists settings, then refreshes diagnostics.
func (a *App) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	normalized := normalizeSettings(settings)
	if err := a.Store.Save(normalized); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.refreshDiagnosticsFromSettings(normalized)
	return normalized, nil
}

// PickFolder opens a native directory picker and previews the selection.
func (a *App) PickFolder(fileTypes string) (FolderPreview, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return FolderPreview{}, err
	}

	path, err := wailsruntime.OpenDirectoryDialog(ctx, wailsruntime.OpenDialogOptions{
		Title: "Select folder with audio files",
	})
	if err != nil {
		return FolderPreview{}, err
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return FolderPreview{}, nil
	}

	return a.PreviewFolder(path, fileTypes)
}

// PickOutputDirectory opens a native directory picker for transcript exports.
func (a *App) PickOutputDirectory() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenDirectoryDialog(ctx, wailsruntime.OpenDialogOptions{
		Title: "Select output directory",
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

// ResolveDroppedPath maps a dropped file or folder to its folder and previews it.
func (a *App) ResolveDroppedPath(path string) (FolderPreview, error) {
	folder, err := batch.ResolveFolder(strings.TrimSpace(path))
	if err != nil {
		return FolderPreview{}, err
	}
	return a.PreviewFolder(folder, "")
}

// PreviewFolder counts files in folder matching fileTypes (a preset or list;
// blank uses saved settings).
func (a *App) PreviewFolder(folder, fileTypes string) (FolderPreview, error) {
	settings, err := a.loadSettings()
	if err != nil {
		return FolderPreview{}, err
	}
	exts, err := resolveExtensions(fileTypes, settings)
	if err != nil {
		return FolderPreview{}, err
	}

	count, err := batch.Preview(folder, exts)
	if err != nil {
		return FolderPreview{}, err
	}
	return FolderPreview{Folder: folder, FileCount: count, Extensions: exts.String()}, nil
}

// OpenOutputFolder opens the given path (or configured output dir) in file manager.
func (a *App) OpenOutputFolder(path string) error {
	target := strings.TrimSpace(path)
	if target == "" {
		a.mu.Lock()
		target = a.Settings.OutputDir
		a.mu.Unlock()
	}
	if target == "" {
		return fmt.Errorf("output path is empty")
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	openPath := target
	if !info.IsDir() {
		openPath = filepath.Dir(target)
	}

	return openInFileManager(openPath)
}

// RefreshDiagnostics reloads settings and reruns dependency checks.
func (a *App) RefreshDiagnostics() (domain.DiagnosticReport, error) {
	settings, err := a.loadSettings()
	if err != nil {
		return domain.DiagnosticReport{}, err
	}
	return a.refreshDiagnosticsFromSettings(settings), nil
}

// StartBatch validates input, registers a job, and runs the batch asynchronously.
func (a *App) StartBatch(input BatchInput) (domain.Job, error) {
	settings, err := a.loadSettings()
	if err != nil {
		return domain.Job{}, err
	}

	folder, err := batch.ResolveFolder(strings.TrimSpace(input.Folder))
	if err != nil {
		return domain.Job{}, err
	}
	exts, err := resolveExtensions(input.FileTypes, settings)
	if err != nil {
		return domain.Job{}, err
	}
	layout, layoutErr := filename.ParseConfig(
		orDefault(input.Delimiter, settings.Delimiter),
		orDefault(input.IDPosition, strconv.Itoa(settings.IDPosition)),
		orDefault(input.DatePosition, strconv.Itoa(settings.DatePosition)),
		orDefault(input.TimePosition, strconv.Itoa(settings.TimePosition)),
	)

	newEngine := a.NewEngine
	if newEngine == nil {
		newEngine = transcribe.NewEngine
	}
	engine, err := newEngine(settings, a.logger())
	if err != nil {
		return domain.Job{}, err
	}

	jobID := uuid.NewString()
	if err := a.Jobs.Start(jobID, folder); err != nil {
		return domain.Job{}, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.mu.Lock()
	a.activeJobID = jobID
	a.cancel = cancel
	a.Settings = settings
	a.mu.Unlock()

	a.publishStatus(jobID, domain.BatchStatusRunning, "Batch started")
	if layoutErr != nil {
		a.publishEvent(jobs.Event{JobID: jobID, Type: jobs.EventTypeLog, Level: string(batch.LogWarn), Message: layoutErr.Error()})
	}

	output := strings.TrimSpace(input.Output)
	if output == "" {
		output = batch.OutputPath(settings.OutputDir, folder)
	}
	req := batch.Request{
		Folder:     folder,
		Output:     output,
		ModelName:  transcribe.ModelRef(settings, a.logger().With("job", jobID)),
		Filename:   layout,
		Extensions: exts,
	}

	a.runs.Add(1)
	go func() {
		defer a.runs.Done()
		defer cancel()
		a.runBatch(ctx, jobID, engine, req)
	}()
	return a.Jobs.Current(), nil
}

// CancelBatch requests cancellation; the current file finishes first.
func (a *App) CancelBatch() error {
	if err := a.Jobs.RequireRunning(); err != nil {
		return err
	}

	a.mu.Lock()
	cancel := a.cancel
	activeJobID := a.activeJobID
	a.mu.Unlock()

	if cancel == nil {
		return jobs.ErrNoRunningJob
	}
	cancel()

	if activeJobID != "" {
		a.publishEvent(jobs.Event{JobID: activeJobID, Type: jobs.EventTypeLog, Level: string(batch.LogWarn),
			Message: "Cancellation requested; stopping after the current file"})
	}
	return nil
}

// SaveUnsavedTranscripts writes the records of the last batch whose table could
// not be saved into dir and returns the written path.
func (a *App) SaveUnsavedTranscripts(dir string) (string, error) {
	if a.Jobs.IsRunning() {
		return "", jobs.ErrJobAlreadyRunning
	}
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return "", fmt.Errorf("output directory is required")
	}

	a.mu.Lock()
	records := a.unsaved
	a.mu.Unlock()
	if len(records) == 0 {
		return "", ErrNothingToSave
	}

	path := filepath.Join(dir, export.FileName)
	if err := export.Write(records, path); err != nil {
		return "", err
	}

	a.mu.Lock()
	a.unsaved = nil
	a.mu.Unlock()
	a.logger().Info("saved transcripts after failed write", "path", path, "records", len(records))
	return path, nil
}

// CurrentJob returns current job metadata and status.
func (a *App) CurrentJob() domain.Job {
	return a.Jobs.Current()
}

// JobEvents returns all events with sequence greater than sinceSeq.
func (a *App) JobEvents(sinceSeq int64) []jobs.Event {
	return a.events.Since(sinceSeq)
}

// runBatch executes the orchestrator and maps its callbacks and outcome to events.
func (a *App) runBatch(ctx context.Context, jobID string, engine transcribe.Engine, req batch.Request) {
	defer a.clearActiveJob(jobID)

	req.OnProgress = func(p domain.Progress) {
		a.publishEvent(jobs.ProgressEvent(jobID, p))
	}
	req.OnLog = func(line batch.LogLine) {
		a.publishEvent(jobs.Event{
			JobID:   jobID,
			Type:    jobs.EventTypeLog,
			Level:   string(line.Level),
			File:    line.File,
			Message: line.Message,
		})
	}

	orch := batch.New(engine, batch.WithLogger(a.logger().With("job", jobID)))
	summary, err := orch.Run(ctx, req)

	var wErr *export.WriteError
	a.mu.Lock()
	if errors.As(err, &wErr) {
		a.unsaved = summary.Records
	} else {
		a.unsaved = nil
	}
	a.mu.Unlock()

	if tErr := a.Jobs.Transition(summary.Status); tErr != nil {
		a.logger().Warn("job transition", "job", jobID, "err", tErr)
	}
	a.publishStatus(jobID, summary.Status, statusMessage(summary.Status))

	if err != nil && summary.Status == domain.BatchStatusFailed {
		a.publishEvent(jobs.Event{
			JobID:   jobID,
			Type:    jobs.EventTypeError,
			Status:  domain.BatchStatusFailed,
			Message: err.Error(),
		})
	}
	a.publishEvent(jobs.ResultEvent(jobID, summary))
}

func statusMessage(status domain.BatchStatus) string {
	switch status {
	case domain.BatchStatusCompleted:
		return "Transcription complete"
	case domain.BatchStatusCompletedEmpty:
		return "No files were successfully transcribed"
	case domain.BatchStatusCancelled:
		return "Batch cancelled"
	case domain.BatchStatusFailed:
		return "Batch failed"
	default:
		return string(status)
	}
}

// publishStatus sends a normalized status event.
func (a *App) publishStatus(jobID string, status domain.BatchStatus, message string) {
	a.publishEvent(jobs.Event{
		JobID:   jobID,
		Type:    jobs.EventTypeStatus,
		Status:  status,
		Message: message,
	})
}

// publishEvent stores event history and emits runtime push notifications.
func (a *App) publishEvent(event jobs.Event) {
	published := a.events.Publish(event)

	a.mu.Lock()
	ctx := a.runtimeCtx
	a.mu.Unlock()
	if ctx != nil {
		wailsruntime.EventsEmit(ctx, EventName, published)
	}
}

// clearActiveJob clears cancellation handles for finished job IDs.
func (a *App) clearActiveJob(jobID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.activeJobID == jobID {
		a.activeJobID = ""
		a.cancel = nil
	}
}

func (a *App) refreshDiagnosticsFromSettings(settings domain.Settings) domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Settings = settings
	if a.checker != nil {
		a.Diagnostics = a.checker.Run(settings)
	}
	return a.Diagnostics
}

// loadSettings reads the store and overlays environment values such as the API key.
func (a *App) loadSettings() (domain.Settings, error) {
	if a.Store == nil {
		return domain.Settings{}, fmt.Errorf("settings store is not configured")
	}
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return normalizeSettings(config.ApplyEnv(settings, nil)), nil
}

func (a *App) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}
	return a.Logger
}

// runtimeContext returns current Wails runtime context for dialog APIs.
func (a *App) runtimeContext() (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runtimeCtx == nil {
		return nil, errors.New("runtime context is not initialized")
	}
	return a.runtimeCtx, nil
}

func resolveExtensions(fileTypes string, settings domain.Settings) (batch.ExtensionSet, error) {
	if strings.TrimSpace(fileTypes) == "" && len(settings.Extensions) > 0 {
		return batch.NewExtensionSet(settings.Extensions...), nil
	}
	return batch.ParseExtensions(fileTypes)
}

// normalizeSettings trims user inputs and fills defaults.
func normalizeSettings(settings domain.Settings) domain.Settings {
	settings.ModelPath = strings.TrimSpace(settings.ModelPath)
	settings.OutputDir = strings.TrimSpace(settings.OutputDir)
	settings.Language = strings.TrimSpace(settings.Language)
	return config.Normalize(settings)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// openInFileManager launches the platform file explorer for the provided path.
func openInFileManager(path string) error {
	var cmd *exec.Cmd
	switch goruntime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("explorer", filepath.Clean(path))
	default:
		cmd = exec.Command("xdg-open", path)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch file manager: %w", err)
	}
	return nil
}
