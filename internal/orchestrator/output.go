package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"imgpt-cli/internal/interfaces"
)

// OutputHandler implements the ImageWriter interface on an afero filesystem
type OutputHandler struct {
	fs afero.Fs
}

// NewOutputHandler creates a new output handler
func NewOutputHandler(fsys afero.Fs) interfaces.ImageWriter {
	return &OutputHandler{fs: fsys}
}

// Exists reports whether a regular file is already at path
func (h *OutputHandler) Exists(path string) bool {
	info, err := h.fs.Stat(path)
	return err == nil && !info.IsDir()
}

// Write stores data at path through a temporary file and a rename,
// creating the output directory first
func (h *OutputHandler) Write(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := h.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	tmp, err := afero.TempFile(h.fs, dir, ".imgpt-*"+filepath.Ext(path))
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = h.fs.Remove(tmpName)
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = h.fs.Remove(tmpName)
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := h.fs.Chmod(tmpName, 0o644); err != nil && !os.IsNotExist(err) {
		_ = h.fs.Remove(tmpName)
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := h.fs.Rename(tmpName, path); err != nil {
		_ = h.fs.Remove(tmpName)
		return fmt.Errorf("failed to move image into place: %w", err)
	}
	return nil
}
