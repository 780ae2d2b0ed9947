// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// File stores the registration as a JSON document on disk.
type File struct {
	path string
}

// NewFile returns a file store at path. The file is created on first Save.
func NewFile(path string) *File { return &File{path: path} }

// Path returns the backing file.
func (f *File) Path() string { return f.path }

func (f *File) Load(context.Context) (Registration, bool, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return Registration{}, false, nil
	}
	if err != nil {
		return Registration{}, false, fmt.Errorf("store: read %s: %w", f.path, err)
	}
	return decode(data)
}

func (f *File) Save(_ context.Context, reg Registration) error {
	data, err := encode(reg)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(f.path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("store: create dir: %w", err)
		}
	}
	if err := renameio.WriteFile(f.path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("store: write %s: %w", f.path, err)
	}
	return nil
}

func (f *File) Close() error { return nil }
