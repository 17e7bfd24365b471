package batch

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// ExtensionSet is a set of lowercase, dot-prefixed file extensions.
type ExtensionSet map[string]struct{}

// NewExtensionSet normalizes exts (".WAV", "mp3", " .aac ") into a set.
func NewExtensionSet(exts ...string) ExtensionSet {
	set := ExtensionSet{}
	for _, ext := range exts {
		if norm := normalizeExtension(ext); norm != "" {
			set[norm] = struct{}{}
		}
	}
	return set
}

// Contains reports whether ext (any case, with or without dot) is in the set.
func (s ExtensionSet) Contains(ext string) bool {
	_, ok := s[normalizeExtension(ext)]
	return ok
}

// Sorted lists the extensions alphabetically.
func (s ExtensionSet) Sorted() []string {
	out := lo.Keys(s)
	sort.Strings(out)
	return out
}

// String renders the set for log lines, e.g. ".aac, .mp3, .wav".
func (s ExtensionSet) String() string {
	return strings.Join(s.Sorted(), ", ")
}

func normalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || ext == "." {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// DefaultExtensions are the formats offered by the "All" file type filter.
func DefaultExtensions() ExtensionSet {
	return NewExtensionSet(".wav", ".mp3", ".aac")
}

// AllExtensions widens the default set with the other formats whisper accepts.
func AllExtensions() ExtensionSet {
	return NewExtensionSet(".wav", ".mp3", ".aac", ".m4a", ".flac", ".ogg", ".wma")
}

// presets maps file type filter names to extension sets.
var presets = map[string]func() ExtensionSet{
	"all":      DefaultExtensions,
	"wav":      func() ExtensionSet { return NewExtensionSet(".wav") },
	"mp3":      func() ExtensionSet { return NewExtensionSet(".mp3") },
	"aac":      func() ExtensionSet { return NewExtensionSet(".aac") },
	"extended": AllExtensions,
}

// PresetNames lists the named file type filters.
func PresetNames() []string {
	names := lo.Keys(presets)
	sort.Strings(names)
	return names
}

// ParseExtensions accepts a preset name ("all", "wav", "extended", ...) or a
// comma-separated extension list (".wav,m4a"). Empty input selects the defaults.
func ParseExtensions(raw string) (ExtensionSet, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultExtensions(), nil
	}
	if preset, ok := presets[strings.ToLower(raw)]; ok {
		return preset(), nil
	}

	parts := lo.Filter(strings.Split(raw, ","), func(p string, _ int) bool {
		return strings.TrimSpace(p) != ""
	})
	set := NewExtensionSet(parts...)
	if len(set) == 0 {
		return nil, fmt.Errorf("no file extensions in %q", raw)
	}
	return set, nil
}
