// Package filex holds small filesystem helpers: staging directories and the
// deterministic file identity used to key transfer sessions.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileRef describes a local file selected for transfer.
type FileRef struct {
	Path         string
	Name         string
	Size         int64
	LastModified int64 // unix milliseconds
}

// Stat builds a FileRef for the file at path.
func Stat(path string) (*FileRef, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return &FileRef{
		Path:         path,
		Name:         fi.Name(),
		Size:         fi.Size(),
		LastModified: fi.ModTime().UnixMilli(),
	}, nil
}

// ID returns the deterministic session key for this file:
// name_size_lastModified. Recomputing it for an unchanged file always yields
// the same value, which is what makes duplicate-upload detection possible.
func (f *FileRef) ID() string {
	return fmt.Sprintf("%s_%d_%d", f.Name, f.Size, f.LastModified)
}

// EnsureSubDir creates (if needed) and returns a subdirectory under the
// user's cache directory. Used for envelope staging files.
func EnsureSubDir(dirName string) (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("cache dir: %w", err)
	}

	dir := filepath.Join(base, dirName)

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}
