// Package models lists the whisper.cpp ggml models Fabla can fetch and finds the
// ones already on disk.
package models

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/lo"

	"fabla-transcriber/internal/config"
	"fabla-transcriber/internal/transcribe"
)

// Option is one downloadable whisper.cpp model.
type Option struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	FileName    string `json:"fileName"`
	URL         string `json:"url"`
	SizeLabel   string `json:"sizeLabel"`
	Description string `json:"description"`
	Downloaded  bool   `json:"downloaded"`
	LocalPath   string `json:"localPath,omitempty"`
}

const baseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/"

func option(id, name, size, desc string) Option {
	file := "ggml-" + id + ".bin"
	return Option{ID: id, Name: name, FileName: file, URL: baseURL + file, SizeLabel: size, Description: desc}
}

var catalog = []Option{
	option("tiny.en", "Tiny (English)", "~75 MB", "Fastest, English-only model."),
	option("tiny", "Tiny (Multilingual)", "~75 MB", "Fastest multilingual model."),
	option("base.en", "Base (English)", "~142 MB", "Balanced speed/quality, English-only."),
	option("base", "Base (Multilingual)", "~142 MB", "Balanced speed/quality, multilingual. Default."),
	option("small.en", "Small (English)", "~466 MB", "Higher quality, English-only."),
	option("small", "Small (Multilingual)", "~466 MB", "Higher quality multilingual model."),
	option("medium.en", "Medium (English)", "~1.5 GB", "High quality, English-only."),
	option("medium", "Medium (Multilingual)", "~1.5 GB", "High quality multilingual model."),
	option("large-v3", "Large v3", "~2.9 GB", "Latest large multilingual model."),
	option("large-v3-turbo", "Large v3 Turbo", "~1.6 GB", "Faster large-v3 variant."),
}

// Catalog returns a copy of the built-in model list.
func Catalog() []Option {
	out := make([]Option, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds a catalog entry by ID.
func Lookup(id string) (Option, bool) {
	id = strings.TrimSpace(id)
	return lo.Find(catalog, func(o Option) bool { return o.ID == id })
}

// IDs lists catalog IDs in catalog order.
func IDs() []string {
	return lo.Map(catalog, func(o Option, _ int) string { return o.ID })
}

// DownloadDir resolves where a model should be saved for the configured model
// path: the path itself for a directory, the parent for a model file, and the
// default models directory when empty.
func DownloadDir(modelPath string) (string, error) {
	trimmed := strings.TrimSpace(modelPath)
	if trimmed == "" {
		return config.DefaultSettings().ModelPath, nil
	}

	info, err := os.Stat(trimmed)
	if err == nil {
		if info.IsDir() {
			return trimmed, nil
		}
		if transcribe.IsModelFile(trimmed) {
			return filepath.Dir(trimmed), nil
		}
		return "", fmt.Errorf("model path points to non-model file: %s", trimmed)
	}

	if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("check model path: %w", err)
	}

	if transcribe.IsModelFile(trimmed) {
		return filepath.Dir(trimmed), nil
	}
	return trimmed, nil
}

// KnownDirs returns the directories that may hold downloaded models: the default
// models directory plus the one implied by modelPath.
func KnownDirs(modelPath string) []string {
	seen := map[string]struct{}{}
	add := func(path string) {
		p := strings.TrimSpace(path)
		if p == "" {
			return
		}
		clean := filepath.Clean(p)
		if clean == "." {
			return
		}
		seen[clean] = struct{}{}
	}

	add(config.DefaultSettings().ModelPath)
	if dir, err := DownloadDir(modelPath); err == nil {
		add(dir)
	}

	dirs := lo.Keys(seen)
	sort.Strings(dirs)
	return dirs
}

// MarkDownloaded sets Downloaded and LocalPath for models found in dirs.
func MarkDownloaded(models []Option, dirs []string) {
	for i := range models {
		for _, dir := range dirs {
			candidate := filepath.Join(dir, models[i].FileName)
			info, err := os.Stat(candidate)
			if err != nil || info.IsDir() {
				continue
			}
			models[i].Downloaded = true
			models[i].LocalPath = candidate
			break
		}
	}
}

// List returns the catalog with local availability resolved against modelPath.
func List(modelPath string) []Option {
	out := Catalog()
	MarkDownloaded(out, KnownDirs(modelPath))
	return out
}
