// Package storage defines the sandboxed graph file-system abstraction.
package storage

// Provider is the interface for graph file operations. Every path
// argument is relative to the graph root and is resolved through the
// sandbox before any I/O happens.
type Provider interface {
	// Resolve canonicalizes rel against the graph root and returns the
	// absolute path, or apperr.ErrTraversal if the result escapes the root.
	Resolve(rel string) (string, error)
	// Read returns the raw bytes of the file at rel.
	Read(rel string) ([]byte, error)
	// Write atomically writes content to rel, creating parent directories.
	Write(rel string, content []byte) error
	// Delete removes the file at rel.
	Delete(rel string) error
	// Move renames oldRel to newRel.
	Move(oldRel, newRel string) error
	// Exists reports whether a file or directory exists at rel.
	Exists(rel string) (bool, error)
	// CreateDir creates the directory at rel and any missing parents.
	CreateDir(rel string) error
	// Root returns the canonical absolute graph root.
	Root() string
}
