// Package logging builds the slog logger shared by the CLI and desktop app.
//
// Lines are rendered as "2006-01-02 15:04:05 [LEVEL] message key=value". When the
// output is a terminal the level tag is colored; a log file, if configured,
// always receives plain lines.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// LevelSuccess sits between info and warn and marks completed work.
const LevelSuccess = slog.Level(2)

// ColorMode selects when ANSI colors are used.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

const (
	red    = "\033[1;91m"
	green  = "\033[1;92m"
	yellow = "\033[1;93m"
	blue   = "\033[1;94m"
	cyan   = "\033[1;96m"
	reset  = "\033[0m"
)

// Options configures New.
type Options struct {
	Level  slog.Level
	Color  ColorMode
	File   string
	Output io.Writer // defaults to os.Stderr
}

// Logger wraps a *slog.Logger and owns the optional log file.
type Logger struct {
	*slog.Logger
	file *os.File
}

// New builds a logger. Call Close when File was set.
func New(opts Options) (*Logger, error) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	h := &Handler{
		mu:    &sync.Mutex{},
		out:   out,
		color: colorEnabled(opts.Color, out),
		level: opts.Level,
	}

	l := &Logger{}
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		l.file = f
		h.file = f
	}

	l.Logger = slog.New(h)
	return l, nil
}

// Close closes the log file if one was opened.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// ParseLevel maps debug/info/success/warn/error to a slog level.
func ParseLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "success":
		return LevelSuccess, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", raw)
	}
}

func colorEnabled(mode ColorMode, out io.Writer) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) &&
		os.Getenv("NO_COLOR") == "" &&
		strings.ToLower(os.Getenv("TERM")) != "dumb"
}

// Handler is a slog.Handler producing single-line leveled output.
type Handler struct {
	mu     *sync.Mutex
	out    io.Writer
	file   io.Writer
	color  bool
	level  slog.Leveler
	attrs  []slog.Attr
	prefix string
}

// Enabled reports whether level passes the configured minimum.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats and writes one record.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	tag, color := levelTag(r.Level)

	var b strings.Builder
	b.WriteString(r.Message)
	for _, a := range h.attrs {
		writeAttr(&b, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, h.prefix, a)
		return true
	})
	text := b.String()

	stamp := ts.Format("2006-01-02 15:04:05")
	plain := stamp + " [" + tag + "] " + text + "\n"

	h.mu.Lock()
	defer h.mu.Unlock()
	var err error
	if h.color {
		_, err = io.WriteString(h.out, stamp+" "+color+"["+tag+"]"+reset+" "+text+"\n")
	} else {
		_, err = io.WriteString(h.out, plain)
	}
	if h.file != nil {
		_, _ = io.WriteString(h.file, plain)
	}
	return err
}

// WithAttrs returns a handler that appends attrs to every line.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	next.attrs = append(next.attrs, h.attrs...)
	for _, a := range attrs {
		if h.prefix != "" {
			a.Key = h.prefix + a.Key
		}
		next.attrs = append(next.attrs, a)
	}
	return &next
}

// WithGroup prefixes subsequent keys with name.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

func levelTag(level slog.Level) (string, string) {
	switch {
	case level >= slog.LevelError:
		return "ERROR", red
	case level >= slog.LevelWarn:
		return "WARN", yellow
	case level >= LevelSuccess:
		return "SUCCESS", green
	case level >= slog.LevelInfo:
		return "INFO", blue
	default:
		return "DEBUG", cyan
	}
}

func writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			writeAttr(b, prefix+a.Key+".", ga)
		}
		return
	}

	val := a.Value.String()
	if val == "" {
		return
	}
	if strings.ContainsAny(val, " =\"\n\t") {
		val = strconv.Quote(val)
	}
	b.WriteByte(' ')
	b.WriteString(prefix)
	b.WriteString(a.Key)
	b.WriteByte('=')
	b.WriteString(val)
}
