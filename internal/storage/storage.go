package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultBlobName is the name of the event collection document
const DefaultBlobName = "campushub-events.json"

// ErrNotExist is returned by Load when nothing has been saved yet
var ErrNotExist = errors.New("blob does not exist")

// Blob is a named, persisted byte document
type Blob interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// FileBlob persists the document as a single file
type FileBlob struct {
	path string
}

// NewFileBlob creates a FileBlob for name inside dataDir, creating the
// directory if needed. A leading "~/" is expanded to the home directory.
func NewFileBlob(dataDir, name string) (*FileBlob, error) {
	if name == "" {
		name = DefaultBlobName
	}

	if strings.HasPrefix(dataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, dataDir[2:])
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return &FileBlob{path: filepath.Join(dataDir, name)}, nil
}

// Path returns the file backing the blob
func (f *FileBlob) Path() string {
	return f.path
}

// Load reads the file. A missing file yields ErrNotExist.
func (f *FileBlob) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("reading %s: %w", f.path, err)
	}
	return data, nil
}

// Save replaces the file contents. The data is written to a temporary file in
// the same directory and renamed over the target so readers never observe a
// partial document.
func (f *FileBlob) Save(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()        // nolint:errcheck
		os.Remove(tmpName) // nolint:errcheck
		return fmt.Errorf("writing %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) // nolint:errcheck
		return fmt.Errorf("closing %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName) // nolint:errcheck
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName) // nolint:errcheck
		return fmt.Errorf("replacing %s: %w", f.path, err)
	}

	return nil
}
