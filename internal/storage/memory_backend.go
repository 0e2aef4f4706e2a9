package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/Benny93/fluentgen/internal/description"
)

// MemoryBackend is an in-memory implementation of Backend, used by tests
// and by one-shot commands that do not persist anything.
type MemoryBackend struct {
	mu      sync.RWMutex
	records map[string]*Record
	files   map[string]fileEntry
	index   *tokenIndex
	closed  bool
}

// NewMemoryBackend creates a new in-memory storage backend. It is usable
// without calling Initialize.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		records: make(map[string]*Record),
		files:   make(map[string]fileEntry),
		index:   newTokenIndex(),
	}
}

// Initialize implements Backend.
func (m *MemoryBackend) Initialize(path string, readOnly bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		m.records = make(map[string]*Record)
		m.files = make(map[string]fileEntry)
		m.index = newTokenIndex()
		m.closed = false
	}
	return nil
}

// Close implements Backend.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = nil
	m.files = nil
	m.index = newTokenIndex()
	m.closed = true
	return nil
}

// PutDescriptions implements Backend.
func (m *MemoryBackend) PutDescriptions(ctx context.Context, filePath, hash string, descs []*description.ClassDescription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrNotInitialized
	}

	if old, ok := m.files[filePath]; ok {
		m.removeOwned(filePath, old.Classes)
	}

	entry := fileEntry{Hash: hash, Classes: make([]string, 0, len(descs))}
	for _, desc := range descs {
		qn := desc.QualifiedName()
		m.records[qn] = &Record{Description: desc, FilePath: filePath}
		m.index.add(filePath, desc)
		entry.Classes = append(entry.Classes, qn)
	}
	m.files[filePath] = entry
	return nil
}

// RemoveFile implements Backend.
func (m *MemoryBackend) RemoveFile(ctx context.Context, filePath string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrNotInitialized
	}

	entry, ok := m.files[filePath]
	if !ok {
		return 0, nil
	}
	removed := m.removeOwned(filePath, entry.Classes)
	delete(m.files, filePath)
	return removed, nil
}

func (m *MemoryBackend) removeOwned(filePath string, classes []string) int {
	removed := 0
	for _, qn := range classes {
		rec, ok := m.records[qn]
		if !ok || rec.FilePath != filePath {
			continue
		}
		delete(m.records, qn)
		m.index.remove(qn)
		removed++
	}
	return removed
}

// GetDescription implements Backend.
func (m *MemoryBackend) GetDescription(ctx context.Context, qualifiedName string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrNotInitialized
	}
	rec, ok := m.records[qualifiedName]
	if !ok {
		return nil, nil
	}
	return rec, nil
}

// ListDescriptions implements Backend.
func (m *MemoryBackend) ListDescriptions(ctx context.Context) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrNotInitialized
	}
	records := make([]*Record, 0, len(m.records))
	for _, rec := range m.records {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].QualifiedName() < records[j].QualifiedName()
	})
	return records, nil
}

// FileHash implements Backend.
func (m *MemoryBackend) FileHash(ctx context.Context, filePath string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return "", false, ErrNotInitialized
	}
	entry, ok := m.files[filePath]
	return entry.Hash, ok, nil
}

// Files implements Backend.
func (m *MemoryBackend) Files(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrNotInitialized
	}
	files := make([]string, 0, len(m.files))
	for path := range m.files {
		files = append(files, path)
	}
	sort.Strings(files)
	return files, nil
}

// Search implements Backend.
func (m *MemoryBackend) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrNotInitialized
	}
	return m.index.search(query, limit), nil
}

// Count implements Backend.
func (m *MemoryBackend) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.index.len()
}
