package ingestion

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ResolvePDFPath anchors a relative configured path at root rather than the
// working directory, so ingestion behaves the same wherever it is invoked.
// Absolute paths are returned cleaned but otherwise unchanged.
func ResolvePDFPath(configured, root string) (string, error) {
	if configured == "" {
		return "", fmt.Errorf("ingestion: PDF path must not be empty")
	}
	if filepath.IsAbs(configured) {
		return filepath.Clean(configured), nil
	}
	abs, err := filepath.Abs(filepath.Join(root, configured))
	if err != nil {
		return "", fmt.Errorf("ingestion: resolve %q against %q: %w", configured, root, err)
	}
	return abs, nil
}

// CheckPDF reports ErrFileNotFound when path does not exist and an error
// when it names a directory. It lets callers fail before opening clients.
func CheckPDF(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return &DocumentLoadError{Path: path, Err: err}
	}
	if info.IsDir() {
		return &DocumentLoadError{Path: path, Err: fmt.Errorf("is a directory")}
	}
	return nil
}
