// Package storage defines the artifact directory abstraction used for
// exports and the import inbox.
package storage

import "time"

// FileInfo describes one file under the storage root.
type FileInfo struct {
	Path      string // relative to root, OS separators
	Checksum  string
	Size      int64
	UpdatedAt time.Time
}

// Provider is the interface for artifact file operations.
type Provider interface {
	// List returns every file under dir whose name ends in ext (case-insensitive).
	// An empty ext matches all files.
	List(dir, ext string) ([]FileInfo, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to root).
	Delete(path string) error
	// Abs returns the absolute location of path.
	Abs(path string) (string, error)
}
