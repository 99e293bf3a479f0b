// Package safeio contains path-containment helpers and the atomic
// file writer every mutation in ctxtidy goes through.
package safeio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CleanUserPath cleans a user-provided path and rejects traversal attempts.
// Returns paths with forward slashes for cross-platform consistency.
func CleanUserPath(p string) (string, error) {
	c := filepath.Clean(p)
	if strings.Contains(c, "..") {
		return "", errors.New("path traversal detected")
	}
	return filepath.ToSlash(c), nil
}

// Contains reports whether path resolves to a location inside baseDir.
func Contains(baseDir, path string) (bool, error) {
	baseAbs, err := filepath.Abs(baseDir)
	if err != nil {
		return false, fmt.Errorf("failed to resolve base directory: %w", err)
	}
	pathAbs, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("failed to resolve path: %w", err)
	}
	rel, err := filepath.Rel(baseAbs, pathAbs)
	if err != nil {
		return false, fmt.Errorf("failed to compute relative path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false, nil
	}
	return true, nil
}

// ReadFileContained reads a file only if it is contained within baseDir.
// Returns an error if the file is outside baseDir or cannot be read.
func ReadFileContained(baseDir, filePath string) ([]byte, error) {
	ok, err := Contains(baseDir, filePath)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("file path is outside base directory")
	}
	abs, _ := filepath.Abs(filePath)
	// #nosec G304 -- containment verified above
	return os.ReadFile(abs)
}

// WriteFileAtomic writes data to a temporary file in the target's
// directory and renames it over path, so a concurrent reader never
// observes a half-written file. Existing file mode is preserved;
// new files get 0644.
func WriteFileAtomic(path string, data []byte) error {
	var mode os.FileMode = 0o644
	if st, err := os.Stat(path); err == nil {
		mode = st.Mode() & 0o777
		if mode == 0 {
			mode = 0o644
		}
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
