// Package storage persists class descriptions for fluentgen.
//
// It defines the Backend contract that every store satisfies, along with
// the record and search result types shared across backends.
package storage

import (
	"context"
	"errors"

	"github.com/Benny93/fluentgen/internal/description"
)

// ErrNotInitialized is returned by operations on a backend that has not
// been initialized or was closed.
var ErrNotInitialized = errors.New("storage backend not initialized")

// Record is a stored class description.
type Record struct {
	// Description is the stored class description.
	Description *description.ClassDescription `json:"description"`

	// FilePath is the source file the class was converted from.
	FilePath string `json:"file"`
}

// QualifiedName returns the qualified name of the described class.
func (r *Record) QualifiedName() string {
	return r.Description.QualifiedName()
}

// SearchResult represents a search hit.
type SearchResult struct {
	// QualifiedName identifies the matching class.
	QualifiedName string

	// ClassName is the simple class name.
	ClassName string

	// FilePath is the source file of the class.
	FilePath string

	// Score is the relevance score (higher is better).
	Score float64

	// Properties lists the properties whose names matched the query.
	Properties []string
}

// Backend defines the interface for description stores.
//
// Implementations must be thread-safe and support concurrent access.
type Backend interface {
	// Initialize opens or creates the store at the given path.
	// If readOnly is true, the store is opened in read-only mode.
	Initialize(path string, readOnly bool) error

	// Close releases all resources held by the backend.
	Close() error

	// PutDescriptions replaces everything stored for filePath with descs
	// and records the content hash of the file.
	PutDescriptions(ctx context.Context, filePath, hash string, descs []*description.ClassDescription) error

	// RemoveFile deletes the file and its descriptions. Returns the number
	// of descriptions removed.
	RemoveFile(ctx context.Context, filePath string) (int, error)

	// GetDescription returns a record by qualified class name, or nil if
	// not found.
	GetDescription(ctx context.Context, qualifiedName string) (*Record, error)

	// ListDescriptions returns all records ordered by qualified name.
	ListDescriptions(ctx context.Context) ([]*Record, error)

	// FileHash returns the content hash stored for filePath.
	FileHash(ctx context.Context, filePath string) (string, bool, error)

	// Files returns all stored file paths, sorted.
	Files(ctx context.Context) ([]string, error)

	// Search finds classes by class, property and type name tokens.
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)

	// Count returns the number of stored descriptions.
	Count() int
}

// fileEntry is the per-file bookkeeping record.
type fileEntry struct {
	Hash    string   `json:"hash"`
	Classes []string `json:"classes"`
}
