package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/Benny93/fluentgen/internal/description"
)

// Key prefixes for different data types
const (
	prefixDescription = "d:" // qualified name -> storedRecord
	prefixFile        = "f:" // file path -> fileEntry
)

// storedRecord is the on-disk form of a Record.
type storedRecord struct {
	File        string                        `json:"file"`
	Description *description.ClassDescription `json:"description"`
}

// BadgerBackend is a BadgerDB-backed storage implementation.
type BadgerBackend struct {
	db          *badger.DB
	initialized bool
	mu          sync.RWMutex
	index       *tokenIndex
}

// NewBadgerBackend creates a new BadgerDB backend.
func NewBadgerBackend() *BadgerBackend {
	return &BadgerBackend{index: newTokenIndex()}
}

// Initialize opens or creates the BadgerDB database at the given path.
func (b *BadgerBackend) Initialize(path string, readOnly bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	opts := badger.DefaultOptions(path).
		WithNumCompactors(2).
		WithNumMemtables(5).
		WithLoggingLevel(badger.ERROR) // Suppress INFO/WARNING logs

	if readOnly {
		opts = opts.WithReadOnly(true)
	}

	var err error
	b.db, err = badger.Open(opts)
	if err != nil {
		return fmt.Errorf("opening badger DB: %w", err)
	}

	b.initialized = true

	if err := b.rebuildIndexFromDB(); err != nil {
		_ = b.db.Close()
		b.db = nil
		b.initialized = false
		return err
	}
	return nil
}

// rebuildIndexFromDB rebuilds the search index from the database.
func (b *BadgerBackend) rebuildIndexFromDB() error {
	b.index = newTokenIndex()

	return b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixDescription)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			rec, err := decodeRecord(it.Item())
			if err != nil {
				return err
			}
			b.index.add(rec.File, rec.Description)
		}
		return nil
	})
}

// Close releases all resources held by the backend.
func (b *BadgerBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil
	}

	err := b.db.Close()
	b.db = nil
	b.initialized = false
	return err
}

// PutDescriptions replaces the descriptions stored for filePath.
func (b *BadgerBackend) PutDescriptions(ctx context.Context, filePath, hash string, descs []*description.ClassDescription) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return ErrNotInitialized
	}

	var stale []string
	err := b.db.Update(func(txn *badger.Txn) error {
		old, found, err := getFileEntry(txn, filePath)
		if err != nil {
			return err
		}
		if found {
			removed, err := deleteOwned(txn, filePath, old.Classes)
			if err != nil {
				return err
			}
			stale = removed
		}

		entry := fileEntry{Hash: hash, Classes: make([]string, 0, len(descs))}
		for _, desc := range descs {
			data, err := json.Marshal(storedRecord{File: filePath, Description: desc})
			if err != nil {
				return fmt.Errorf("marshaling description %s: %w", desc.QualifiedName(), err)
			}
			if err := txn.Set(descriptionKey(desc.QualifiedName()), data); err != nil {
				return err
			}
			entry.Classes = append(entry.Classes, desc.QualifiedName())
		}

		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshaling file entry: %w", err)
		}
		return txn.Set(fileKey(filePath), data)
	})
	if err != nil {
		return fmt.Errorf("storing descriptions for %s: %w", filePath, err)
	}

	for _, qn := range stale {
		b.index.remove(qn)
	}
	for _, desc := range descs {
		b.index.add(filePath, desc)
	}
	return nil
}

// RemoveFile deletes the file entry and the descriptions it owns.
func (b *BadgerBackend) RemoveFile(ctx context.Context, filePath string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return 0, ErrNotInitialized
	}

	var removed []string
	err := b.db.Update(func(txn *badger.Txn) error {
		entry, found, err := getFileEntry(txn, filePath)
		if err != nil || !found {
			return err
		}
		removed, err = deleteOwned(txn, filePath, entry.Classes)
		if err != nil {
			return err
		}
		return txn.Delete(fileKey(filePath))
	})
	if err != nil {
		return 0, fmt.Errorf("removing %s: %w", filePath, err)
	}

	for _, qn := range removed {
		b.index.remove(qn)
	}
	return len(removed), nil
}

// GetDescription returns a record by qualified name.
func (b *BadgerBackend) GetDescription(ctx context.Context, qualifiedName string) (*Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.initialized {
		return nil, ErrNotInitialized
	}

	var rec *storedRecord
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(descriptionKey(qualifiedName))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		rec, err = decodeRecord(item)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("getting description %s: %w", qualifiedName, err)
	}
	if rec == nil {
		return nil, nil
	}
	return &Record{Description: rec.Description, FilePath: rec.File}, nil
}

// ListDescriptions returns all records ordered by qualified name.
func (b *BadgerBackend) ListDescriptions(ctx context.Context) ([]*Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.initialized {
		return nil, ErrNotInitialized
	}

	var records []*Record
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixDescription)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec, err := decodeRecord(it.Item())
			if err != nil {
				return err
			}
			records = append(records, &Record{Description: rec.Description, FilePath: rec.File})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing descriptions: %w", err)
	}

	// Badger iterates in byte order, which already matches string order.
	return records, nil
}

// FileHash returns the stored content hash for filePath.
func (b *BadgerBackend) FileHash(ctx context.Context, filePath string) (string, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.initialized {
		return "", false, ErrNotInitialized
	}

	var (
		entry fileEntry
		found bool
	)
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		entry, found, err = getFileEntry(txn, filePath)
		return err
	})
	if err != nil {
		return "", false, fmt.Errorf("reading hash of %s: %w", filePath, err)
	}
	return entry.Hash, found, nil
}

// Files returns all stored file paths, sorted.
func (b *BadgerBackend) Files(ctx context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.initialized {
		return nil, ErrNotInitialized
	}

	files := []string{}
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixFile)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().KeyCopy(nil)
			files = append(files, string(key[len(prefixFile):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// Search finds classes matching the query tokens.
func (b *BadgerBackend) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.initialized {
		return nil, ErrNotInitialized
	}
	return b.index.search(query, limit), nil
}

// Count returns the number of stored descriptions.
func (b *BadgerBackend) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.index.len()
}

func descriptionKey(qualifiedName string) []byte {
	return []byte(prefixDescription + qualifiedName)
}

func fileKey(filePath string) []byte {
	return []byte(prefixFile + filePath)
}

func decodeRecord(item *badger.Item) (*storedRecord, error) {
	var rec storedRecord
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	}); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", item.Key(), err)
	}
	return &rec, nil
}

func getFileEntry(txn *badger.Txn, filePath string) (fileEntry, bool, error) {
	var entry fileEntry
	item, err := txn.Get(fileKey(filePath))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return entry, false, nil
	}
	if err != nil {
		return entry, false, err
	}
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &entry)
	}); err != nil {
		return entry, false, fmt.Errorf("decoding file entry %s: %w", filePath, err)
	}
	return entry, true, nil
}

// deleteOwned deletes the listed descriptions that still belong to filePath.
// A class that moved to another file keeps that file's record.
func deleteOwned(txn *badger.Txn, filePath string, classes []string) ([]string, error) {
	var removed []string
	for _, qn := range classes {
		item, err := txn.Get(descriptionKey(qn))
		if errors.Is(err, badger.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		rec, err := decodeRecord(item)
		if err != nil {
			return nil, err
		}
		if rec.File != filePath {
			continue
		}
		if err := txn.Delete(descriptionKey(qn)); err != nil {
			return nil, err
		}
		removed = append(removed, qn)
	}
	return removed, nil
}
