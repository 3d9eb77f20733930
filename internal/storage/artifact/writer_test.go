package artifact

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/yndnr/meshboot/internal/core/domain"
	"github.com/yndnr/meshboot/internal/telemetry/logger"
)

func testLogger(t *testing.T) logger.Logger {
	t.Helper()
	l, err := logger.New(logger.Config{Level: "debug", Output: io.Discard})
	if err != nil {
		t.Fatalf("logger.New() error = %v", err)
	}
	return l
}

func TestWriter_Write(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server-discovery.json")
	w := New(Config{}, testLogger(t))

	if err := w.Write(path, []byte(`{"a":1}`)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(got) != `{"a":1}` {
		t.Errorf("content = %q, want %q", got, `{"a":1}`)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Mode().Perm() != DefaultFileMode {
		t.Errorf("mode = %v, want %v", info.Mode().Perm(), DefaultFileMode)
	}
}

func TestWriter_Overwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "service.json")
	if err := os.WriteFile(path, []byte("old contents that are longer"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	w := New(Config{}, testLogger(t))
	if err := w.Write(path, []byte("new")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	got, _ := os.ReadFile(path)
	if string(got) != "new" {
		t.Errorf("content = %q, want %q", got, "new")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want 1 (temp file left behind?)", len(entries))
	}
}

func TestWriter_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.json")

	w := New(Config{}, testLogger(t))
	err := w.Write(path, []byte("{}"))
	if !errors.Is(err, domain.ErrIOFailure) {
		t.Fatalf("Write() error = %v, want ErrIOFailure", err)
	}

	w = New(Config{CreateDirs: true}, testLogger(t))
	if err := w.Write(path, []byte("{}")); err != nil {
		t.Fatalf("Write() with CreateDirs error = %v", err)
	}
}

func TestWriter_EmptyPath(t *testing.T) {
	w := New(Config{}, testLogger(t))
	if err := w.Write("", []byte("{}")); !errors.Is(err, domain.ErrIOFailure) {
		t.Errorf("Write() error = %v, want ErrIOFailure", err)
	}
}

func TestWriter_Stdout(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		path string
	}{
		{"print mode", Config{Print: true}, filepath.Join(t.TempDir(), "ignored.json")},
		{"dash path", Config{}, StdoutPath},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.cfg.Stdout = &buf
			w := New(tt.cfg, testLogger(t))

			if err := w.Write(tt.path, []byte("doc\n")); err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			if buf.String() != "doc\n" {
				t.Errorf("stdout = %q, want %q", buf.String(), "doc\n")
			}
			if tt.path != StdoutPath {
				if _, err := os.Stat(tt.path); !os.IsNotExist(err) {
					t.Errorf("file %s was written in print mode", tt.path)
				}
			}
		})
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed pipe") }

func TestWriter_StdoutError(t *testing.T) {
	w := New(Config{Print: true, Stdout: failingWriter{}}, testLogger(t))
	if err := w.Write("x", []byte("doc")); !errors.Is(err, domain.ErrIOFailure) {
		t.Errorf("Write() error = %v, want ErrIOFailure", err)
	}
}
