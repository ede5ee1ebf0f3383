package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/etnz/coindash"
)

// File stores the state as a JSONL file.
type File struct {
	Path string
}

// NewFile returns a store writing to path.
func NewFile(path string) *File { return &File{Path: path} }

// Load reads the file. A missing file is an empty state.
func (f *File) Load(_ context.Context) (coindash.State, error) {
	file, err := os.Open(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return coindash.State{}, nil
	}
	if err != nil {
		return coindash.State{}, fmt.Errorf("cannot open state file %q: %w", f.Path, err)
	}
	defer file.Close()
	s, err := coindash.DecodeState(file)
	if err != nil {
		return coindash.State{}, fmt.Errorf("cannot decode state file %q: %w", f.Path, err)
	}
	return s, nil
}

// Save writes the state to a temporary file, then renames it over the
// previous one.
func (f *File) Save(_ context.Context, s coindash.State) error {
	var buf bytes.Buffer
	if err := coindash.EncodeState(&buf, s); err != nil {
		return fmt.Errorf("cannot encode state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return fmt.Errorf("cannot create state directory: %w", err)
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("cannot write state file %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.Path); err != nil {
		return fmt.Errorf("cannot replace state file %q: %w", f.Path, err)
	}
	return nil
}
