package artifact

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/yndnr/meshboot/internal/core/domain"
	"github.com/yndnr/meshboot/internal/telemetry/logger"
)

// StdoutPath selects stdout as the destination.
const StdoutPath = "-"

// DefaultFileMode is the permission of written artifacts.
const DefaultFileMode os.FileMode = 0o644

// Config configures a Writer.
type Config struct {
	// Print writes every artifact to Stdout instead of its path.
	Print bool
	// Stdout receives printed artifacts (defaults to os.Stdout).
	Stdout io.Writer
	// FileMode is the permission of written files (defaults to 0644).
	FileMode os.FileMode
	// CreateDirs creates missing parent directories.
	CreateDirs bool
}

// Writer writes artifacts atomically.
type Writer struct {
	cfg Config
	log logger.Logger
}

// New creates a Writer.
func New(cfg Config, log logger.Logger) *Writer {
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.FileMode == 0 {
		cfg.FileMode = DefaultFileMode
	}
	if log == nil {
		log = logger.Default()
	}
	return &Writer{cfg: cfg, log: log}
}

// Write replaces the contents of path with data. Any failure is reported
// as domain.ErrIOFailure and leaves the previous contents of path intact.
func (w *Writer) Write(path string, data []byte) error {
	if w.cfg.Print || path == StdoutPath {
		if _, err := w.cfg.Stdout.Write(data); err != nil {
			return domain.ErrIOFailure.WithDetails("write to stdout").WithCause(err)
		}
		return nil
	}
	if path == "" {
		return domain.ErrIOFailure.WithDetails("output path is empty")
	}

	if err := w.writeFile(path, data); err != nil {
		return domain.ErrIOFailure.WithDetails(path).WithCause(err)
	}
	w.log.Debug("renamed temp file into place", "path", path, "size", len(data))
	return nil
}

func (w *Writer) writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if w.cfg.CreateDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}

	file, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tempPath := file.Name()
	defer os.Remove(tempPath)

	if _, err := file.Write(data); err != nil {
		file.Close()
		return fmt.Errorf("write: %w", err)
	}
	if err := file.Chmod(w.cfg.FileMode); err != nil {
		file.Close()
		return fmt.Errorf("chmod: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("sync: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
