package ingestion

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/Benny93/fluentgen/internal/javamodel"
	"github.com/Benny93/fluentgen/internal/logger"
	"github.com/Benny93/fluentgen/internal/storage"
)

// fullSyncInterval is the minimum time between full re-conversions.
// A batch only re-converts the files it touched, but a change can alter
// descriptions in other files (a class starting to implement Iterable, for
// instance), so every file is re-converted from time to time.
const fullSyncInterval = 30 * time.Second

// BatchCallback is called after watch mode processed a batch.
type BatchCallback func(result *PipelineResult)

// watchSession holds the state kept between batches.
type watchSession struct {
	repoPath string
	store    storage.Backend
	opts     Options
	ws       *javamodel.Workspace
	matcher  gitignore.Matcher
	hashes   map[string]string // relPath -> content hash
	lastFull time.Time
}

// WatchRepo syncs the store once, then monitors the repository for changes
// and re-converts changed files in debounced batches.
// Blocks until the context is cancelled.
func WatchRepo(ctx context.Context, repoPath string, store storage.Backend, opts Options, onBatch BatchCallback) error {
	log := logger.FromContext(ctx).With("repo", repoPath)

	patterns, err := LoadGitignore(repoPath)
	if err != nil {
		log.Warn("Ignoring unreadable .gitignore", "error", err)
	}
	entries, err := WalkRepo(repoPath, patterns, opts.Filter)
	if err != nil {
		return fmt.Errorf("walking repo: %w", err)
	}

	ws, parseFailures, err := LoadWorkspace(ctx, entries, opts)
	if err != nil {
		return err
	}

	s := &watchSession{
		repoPath: repoPath,
		store:    store,
		opts:     opts,
		ws:       ws,
		matcher:  newMatcher(patterns),
		hashes:   make(map[string]string, len(entries)),
		lastFull: time.Now(),
	}
	for _, entry := range entries {
		s.hashes[entry.RelPath] = entry.SHA256
	}

	result, err := syncStore(ctx, ws, store, entries, parseFailures, opts)
	if err != nil {
		return fmt.Errorf("initial sync: %w", err)
	}
	if onBatch != nil {
		onBatch(result)
	}

	// Create file watcher
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := s.watchTree(watcher, repoPath); err != nil {
		return fmt.Errorf("setting up watcher: %w", err)
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultOptions().Debounce
	}

	// Batch changed files for efficient re-indexing
	changedFiles := make(map[string]bool)
	batchTimer := time.NewTimer(debounce)
	batchTimer.Stop() // Don't start yet

	log.Info("Watching for changes", "debounce", debounce)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					// New directories bring their files along.
					for _, path := range s.addDir(watcher, event.Name) {
						changedFiles[path] = true
					}
					batchTimer.Reset(debounce)
					continue
				}
			}

			if !s.shouldWatchFile(event.Name) {
				continue
			}

			relPath, err := filepath.Rel(repoPath, event.Name)
			if err != nil {
				continue
			}
			changedFiles[filepath.ToSlash(relPath)] = true

			// Start/restart batch timer
			batchTimer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("Watch error", "error", err)

		case <-batchTimer.C:
			if len(changedFiles) == 0 {
				continue
			}
			result, err := s.processBatch(ctx, changedFiles)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				log.Error("Error processing changes", "error", err)
			} else if onBatch != nil {
				onBatch(result)
			}
			changedFiles = make(map[string]bool)
		}
	}
}

// processBatch applies the changed paths to the workspace and the store.
func (s *watchSession) processBatch(ctx context.Context, changedFiles map[string]bool) (*PipelineResult, error) {
	log := logger.FromContext(ctx)
	start := time.Now()
	result := &PipelineResult{Files: len(changedFiles)}

	paths := make([]string, 0, len(changedFiles))
	for path := range changedFiles {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var changed []FileEntry
	for _, relPath := range paths {
		absPath := filepath.Join(s.repoPath, filepath.FromSlash(relPath))

		info, err := os.Stat(absPath)
		if os.IsNotExist(err) {
			s.ws.Remove(relPath)
			delete(s.hashes, relPath)
			if _, err := s.store.RemoveFile(ctx, relPath); err != nil {
				return nil, fmt.Errorf("removing %s: %w", relPath, err)
			}
			result.Removed++
			log.Debug("Removed", "file", relPath)
			continue
		}
		if err != nil || info.IsDir() {
			continue
		}

		entry, err := readEntry(absPath, relPath)
		if err != nil {
			log.Warn("Error reading file", "file", relPath, "error", err)
			continue
		}
		if s.hashes[relPath] == entry.SHA256 {
			result.Unchanged++
			continue
		}
		if err := s.ws.Reload(relPath, entry.Content); err != nil {
			result.addFailures([]ClassFailure{{File: relPath, Err: err}})
			continue
		}
		s.hashes[relPath] = entry.SHA256
		changed = append(changed, entry)
	}

	if shouldResyncAll(s.lastFull) {
		log.Info("Re-converting all files")
		changed = s.allEntries()
		s.lastFull = time.Now()
	}

	if err := convertAndStore(ctx, s.ws, s.store, changed, s.opts, result); err != nil {
		return nil, err
	}

	result.sortFailures()
	result.DurationSecs = time.Since(start).Seconds()
	log.Info("Re-indexed changes",
		"files", len(paths),
		"converted", result.Converted,
		"skipped", result.Skipped,
		"removed", result.Removed,
	)
	return result, nil
}

// allEntries lists every loaded file with its known hash. Content is not
// needed for conversion.
func (s *watchSession) allEntries() []FileEntry {
	entries := make([]FileEntry, 0, len(s.hashes))
	for relPath, hash := range s.hashes {
		entries = append(entries, FileEntry{
			Path:    filepath.Join(s.repoPath, filepath.FromSlash(relPath)),
			RelPath: relPath,
			SHA256:  hash,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].RelPath < entries[j].RelPath
	})
	return entries
}

// watchTree adds root and every non-ignored directory below it.
func (s *watchSession) watchTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != s.repoPath && shouldSkipDir(d.Name(), path, s.repoPath, s.matcher) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

// addDir starts watching a new directory and returns the watched files
// already inside it.
func (s *watchSession) addDir(watcher *fsnotify.Watcher, dir string) []string {
	if shouldSkipDir(filepath.Base(dir), dir, s.repoPath, s.matcher) {
		return nil
	}
	_ = s.watchTree(watcher, dir)

	var files []string
	_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || !s.shouldWatchFile(path) {
			return nil
		}
		if rel, err := filepath.Rel(s.repoPath, path); err == nil {
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	return files
}

// shouldWatchFile checks if a file should be watched.
func (s *watchSession) shouldWatchFile(path string) bool {
	relPath, err := filepath.Rel(s.repoPath, path)
	if err != nil || strings.HasPrefix(relPath, "..") {
		return false
	}

	if !isJavaFile(path) {
		return false
	}

	if s.matcher != nil && s.matcher.Match(splitPath(relPath), false) {
		return false
	}

	return s.opts.Filter.Match(relPath)
}

// shouldResyncAll checks if enough time has passed since the last full
// re-conversion.
func shouldResyncAll(lastFull time.Time) bool {
	return time.Since(lastFull) >= fullSyncInterval
}
