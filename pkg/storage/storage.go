// Package storage discovers source images and writes run outputs on the local filesystem.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var ErrNotFound = errors.New("path not found")

// ImageExtensions are the source formats picked up by discovery.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".tiff": true,
	".tif":  true,
	".heic": true,
	".heif": true,
}

// FileInfo contains metadata about a discovered source file
type FileInfo struct {
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	Hash    string    `json:"hash,omitempty"` // sha256, filled by HashFile
	ModTime time.Time `json:"mod_time"`
}

// Storage is where a run writes its output files.
type Storage interface {
	// Create opens name for writing, replacing any existing file, and returns its full path.
	Create(ctx context.Context, name string) (io.WriteCloser, string, error)

	// WriteFile stores data under name and returns its full path.
	WriteFile(ctx context.Context, name string, data []byte) (string, error)

	// Path resolves name inside the storage root without touching the filesystem.
	Path(name string) string
}

// Config holds storage configuration
type Config struct {
	// OutputDir receives writer output, the staged rows and the run report.
	OutputDir string
}

// New creates the output storage for a run
func New(cfg *Config) (Storage, error) {
	return NewLocalStorage(cfg.OutputDir)
}
