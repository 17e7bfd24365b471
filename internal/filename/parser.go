// Package filename recovers participant ID, date, and time from recording filenames.
package filename

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"fabla-transcriber/internal/domain"
)

// Extract splits the filename stem on cfg.Delimiter and returns the tokens at the
// configured positions. Positions outside the token list yield "". It never fails.
func Extract(name string, cfg domain.FilenameConfig) (id, date, clock string) {
	base := filepath.Base(name)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	delimiter := cfg.Delimiter
	if delimiter == "" {
		delimiter = domain.DefaultDelimiter
	}
	parts := strings.Split(stem, delimiter)

	return token(parts, cfg.IDPosition), token(parts, cfg.DatePosition), token(parts, cfg.TimePosition)
}

func token(parts []string, pos int) string {
	if pos < 0 || pos >= len(parts) {
		return ""
	}
	return parts[pos]
}

// ConfigError reports filename layout fields that could not be parsed and were
// replaced with defaults.
type ConfigError struct {
	Fields []string
}

// Error formats the fallen-back fields for logs.
func (e *ConfigError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("invalid filename position for %s; using defaults", strings.Join(e.Fields, ", "))
}

// ParseConfig builds a FilenameConfig from human-entered values. Empty delimiter and
// non-numeric positions fall back to the Fabla defaults; the returned config is always
// usable and err, when non-nil, is a *ConfigError describing the fallbacks.
func ParseConfig(delimiter, id, date, clock string) (domain.FilenameConfig, error) {
	cfg := domain.DefaultFilenameConfig()
	if delimiter != "" {
		cfg.Delimiter = delimiter
	}

	var bad []string
	parse := func(field, raw string, dst *int) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			bad = append(bad, field)
			return
		}
		*dst = n
	}
	parse("participant id", id, &cfg.IDPosition)
	parse("date", date, &cfg.DatePosition)
	parse("time", clock, &cfg.TimePosition)

	if len(bad) > 0 {
		return cfg, &ConfigError{Fields: bad}
	}
	return cfg, nil
}

// Normalize fills an unset delimiter with the default.
func Normalize(cfg domain.FilenameConfig) domain.FilenameConfig {
	if cfg.Delimiter == "" {
		cfg.Delimiter = domain.DefaultDelimiter
	}
	return cfg
}
