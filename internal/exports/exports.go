// Package exports writes reports into a local export directory on behalf of
// the file:* bridge channels. Callers only ever name a file; the directory is
// fixed by configuration.
package exports

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/JaimeStill/agrogestion/pkg/lifecycle"
)

// Domain errors for export operations.
var (
	ErrInvalidName = errors.New("invalid export file name")
	ErrEmpty       = errors.New("export payload is empty")
)

// File describes one exported report.
type File struct {
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// System writes and lists exported reports.
type System interface {
	Start(lc *lifecycle.Coordinator) error
	Save(ctx context.Context, filename string, data []byte) (*File, error)
	List(ctx context.Context) ([]File, error)
	Dir() string
}

type exporter struct {
	dir    string
	logger *slog.Logger
}

// New creates the export system rooted at cfg.Dir.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	dir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("resolve export directory: %w", err)
	}
	return &exporter{
		dir:    dir,
		logger: logger.With("system", "exports"),
	}, nil
}

func (e *exporter) Dir() string {
	return e.dir
}

func (e *exporter) Start(lc *lifecycle.Coordinator) error {
	lc.OnStartup(func() error {
		if err := os.MkdirAll(e.dir, 0o755); err != nil {
			return fmt.Errorf("create export directory: %w", err)
		}
		e.logger.Info("export directory ready", "dir", e.dir)
		return nil
	})
	return nil
}

func (e *exporter) Save(ctx context.Context, filename string, data []byte) (*File, error) {
	name, err := CleanName(filename)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmpty, name)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}

	tmp, err := os.CreateTemp(e.dir, ".export-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("export %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("export %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("export %s: %w", name, err)
	}

	path := filepath.Join(e.dir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return nil, fmt.Errorf("export %s: %w", name, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", name, err)
	}

	e.logger.Info("report exported", "file", name, "size", info.Size())
	return fileFrom(path, info), nil
}

func (e *exporter) List(ctx context.Context) ([]File, error) {
	entries, err := os.ReadDir(e.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []File{}, nil
		}
		return nil, fmt.Errorf("list exports: %w", err)
	}

	files := make([]File, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, *fileFrom(filepath.Join(e.dir, entry.Name()), info))
	}

	slices.SortFunc(files, func(a, b File) int {
		return strings.Compare(a.Name, b.Name)
	})
	return files, nil
}

// CleanName reduces filename to a base name ending in .pdf.
func CleanName(filename string) (string, error) {
	name := filepath.Base(strings.ReplaceAll(strings.TrimSpace(filename), `\`, "/"))
	if name == "" || name == "." || name == ".." || name == "/" || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, filename)
	}
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		name += ".pdf"
	}
	return name, nil
}

func fileFrom(path string, info os.FileInfo) *File {
	return &File{
		Name:       info.Name(),
		Path:       path,
		Size:       info.Size(),
		ModifiedAt: info.ModTime().UTC(),
	}
}
