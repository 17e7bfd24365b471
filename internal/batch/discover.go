package batch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrFolderNotFound is wrapped by DiscoveryError when the folder is missing or is
// not a directory.
var ErrFolderNotFound = errors.New("folder not found")

// DiscoveryError reports that the input folder could not be scanned.
type DiscoveryError struct {
	Folder string
	Err    error
}

// Error formats the failing folder.
func (e *DiscoveryError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("scan %s: %v", e.Folder, e.Err)
}

// Unwrap exposes ErrFolderNotFound or the I/O error.
func (e *DiscoveryError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Discover lists the immediate entries of folder and returns the paths of regular
// files whose lowercase extension is in allowed. Subdirectories are not searched.
// The order is the enumeration order of one read and is stable for that call only.
func Discover(folder string, allowed ExtensionSet) ([]string, error) {
	info, err := os.Stat(folder)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &DiscoveryError{Folder: folder, Err: ErrFolderNotFound}
		}
		return nil, &DiscoveryError{Folder: folder, Err: err}
	}
	if !info.IsDir() {
		return nil, &DiscoveryError{Folder: folder, Err: fmt.Errorf("%w: not a directory", ErrFolderNotFound)}
	}

	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, &DiscoveryError{Folder: folder, Err: err}
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := filepath.Ext(name)
		// ".wav" alone is a hidden file with no extension.
		if strings.TrimSuffix(name, ext) == "" {
			continue
		}
		if allowed.Contains(ext) {
			files = append(files, filepath.Join(folder, name))
		}
	}
	return files, nil
}

// ResolveFolder maps a dropped path to a folder: directories are returned as-is and
// files resolve to their parent directory.
func ResolveFolder(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", &DiscoveryError{Folder: path, Err: ErrFolderNotFound}
		}
		return "", &DiscoveryError{Folder: path, Err: err}
	}
	if info.IsDir() {
		return path, nil
	}

	parent := filepath.Dir(path)
	if parentInfo, err := os.Stat(parent); err != nil || !parentInfo.IsDir() {
		return "", &DiscoveryError{Folder: parent, Err: ErrFolderNotFound}
	}
	return parent, nil
}

// Preview counts matching files so a front-end can show them before a run.
func Preview(folder string, allowed ExtensionSet) (int, error) {
	files, err := Discover(folder, allowed)
	if err != nil {
		return 0, err
	}
	return len(files), nil
}
