// Package storage provides file access to the recipe library directory.
package storage

import "time"

// FileInfo describes one recipe file in the library.
type FileInfo struct {
	Path     string // relative to the library root
	Checksum string
	ModTime  time.Time
}

// Provider is the interface for library file operations. Paths are relative
// to the library root and may not escape it.
type Provider interface {
	// Root returns the absolute library directory.
	Root() string
	// List returns the recipe (.md) files directly inside the root.
	List() ([]FileInfo, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath, creating parent directories.
	Move(oldPath, newPath string) error
}
