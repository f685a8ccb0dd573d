// Package storage persists migration units and schema files through an
// afero filesystem, so the same code runs on disk and in memory.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
)

// ErrNotFound is returned when a path does not exist.
var ErrNotFound = errors.New("storage: not found")

// Storage is the file access the migration engine needs.
type Storage interface {
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, content []byte) error
	Delete(ctx context.Context, path string) error
	Exists(ctx context.Context, path string) (bool, error)
	// List returns the names of regular files in dir, sorted.
	List(ctx context.Context, dir string) ([]string, error)
	MkdirAll(ctx context.Context, path string) error
}

// Afero implements Storage on an afero.Fs.
type Afero struct {
	fs afero.Fs
}

// New wraps an arbitrary afero filesystem.
func New(fsys afero.Fs) *Afero {
	return &Afero{fs: fsys}
}

// NewFilesystem roots storage at basePath on the local disk.
func NewFilesystem(basePath string) *Afero {
	return New(afero.NewBasePathFs(afero.NewOsFs(), basePath))
}

// NewMemory returns storage backed by memory.
func NewMemory() *Afero {
	return New(afero.NewMemMapFs())
}

// Fs exposes the underlying filesystem.
func (s *Afero) Fs() afero.Fs { return s.fs }

func (s *Afero) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content, err := afero.ReadFile(s.fs, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return content, nil
}

func (s *Afero) Write(ctx context.Context, path string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	if err := afero.WriteFile(s.fs, path, content, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (s *Afero) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.fs.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

func (s *Afero) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return afero.Exists(s.fs, path)
}

func (s *Afero) List(ctx context.Context, dir string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Mode().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *Afero) MkdirAll(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.fs.MkdirAll(path, 0o755)
}

var _ Storage = (*Afero)(nil)
