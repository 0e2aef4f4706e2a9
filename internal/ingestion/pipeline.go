package ingestion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Benny93/fluentgen/internal/config"
	"github.com/Benny93/fluentgen/internal/converter"
	"github.com/Benny93/fluentgen/internal/description"
	"github.com/Benny93/fluentgen/internal/javamodel"
	"github.com/Benny93/fluentgen/internal/logger"
	"github.com/Benny93/fluentgen/internal/parsers"
	"github.com/Benny93/fluentgen/internal/storage"
)

// ProgressCallback is called with phase name and progress (0.0-1.0).
type ProgressCallback func(phase string, progress float64)

// Options controls a pipeline run.
type Options struct {
	// Full rewrites every file, even when its hash is unchanged.
	Full bool

	// Workers bounds concurrent parsing and conversion.
	Workers int

	// Filter selects the files to process. Nil keeps every Java file.
	Filter *Filter

	// Model configures the Java workspace.
	Model javamodel.Options

	// Debounce is the quiet period before watch mode processes a batch.
	Debounce time.Duration

	// Progress is optional.
	Progress ProgressCallback
}

// DefaultOptions returns options for a default configuration.
func DefaultOptions() Options {
	return Options{
		Workers:  runtime.NumCPU(),
		Model:    javamodel.DefaultOptions(),
		Debounce: 500 * time.Millisecond,
	}
}

// OptionsFromConfig maps the scan and model sections of cfg.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	filter, err := NewFilter(cfg.Scan.Include, cfg.Scan.Exclude)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Workers:  cfg.Scan.Workers,
		Filter:   filter,
		Debounce: cfg.Scan.Debounce,
		Model: javamodel.Options{
			JDKStubs:  cfg.Model.JDKStubs,
			CacheSize: cfg.Model.CacheSize,
		},
	}, nil
}

func (o Options) progress(phase string, value float64) {
	if o.Progress != nil {
		o.Progress(phase, value)
	}
}

func (o Options) workers() int {
	if o.Workers < 1 {
		return 1
	}
	return o.Workers
}

// ClassFailure records a class, or a whole file when Class is empty, that
// could not be described.
type ClassFailure struct {
	Class string
	File  string
	Err   error
}

func (f ClassFailure) Error() string {
	if f.Class == "" {
		return fmt.Sprintf("%s: %v", f.File, f.Err)
	}
	return fmt.Sprintf("%s (%s): %v", f.Class, f.File, f.Err)
}

func (f ClassFailure) Unwrap() error {
	return f.Err
}

// PipelineResult summarizes a pipeline run.
type PipelineResult struct {
	Files        int
	Classes      int
	Converted    int
	Skipped      int
	Unchanged    int
	Removed      int
	DurationSecs float64
	Failures     []ClassFailure
}

// addFailures records failures; callers hold the result's lock.
func (r *PipelineResult) addFailures(failures []ClassFailure) {
	for _, f := range failures {
		if f.Class != "" {
			r.Skipped++
		}
		r.Failures = append(r.Failures, f)
	}
}

func (r *PipelineResult) sortFailures() {
	sort.Slice(r.Failures, func(i, j int) bool {
		if r.Failures[i].File != r.Failures[j].File {
			return r.Failures[i].File < r.Failures[j].File
		}
		return r.Failures[i].Class < r.Failures[j].Class
	})
}

// RunPipeline walks repoPath, describes every project class and writes
// the descriptions of changed files to store. Files no longer present are
// removed from the store.
func RunPipeline(ctx context.Context, repoPath string, store storage.Backend, opts Options) (*PipelineResult, error) {
	start := time.Now()
	log := logger.FromContext(ctx).With("repo", repoPath)

	opts.progress("Walking files", 0.0)
	patterns, err := LoadGitignore(repoPath)
	if err != nil {
		log.Warn("Ignoring unreadable .gitignore", "error", err)
	}
	entries, err := WalkRepo(repoPath, patterns, opts.Filter)
	if err != nil {
		return nil, fmt.Errorf("walking repo: %w", err)
	}
	opts.progress("Walking files", 1.0)

	opts.progress("Parsing code", 0.0)
	ws, parseFailures, err := LoadWorkspace(ctx, entries, opts)
	if err != nil {
		return nil, err
	}
	opts.progress("Parsing code", 1.0)

	result, err := syncStore(ctx, ws, store, entries, parseFailures, opts)
	if err != nil {
		return nil, err
	}

	result.sortFailures()
	result.DurationSecs = time.Since(start).Seconds()

	log.Info("Pipeline finished",
		"files", result.Files,
		"classes", result.Classes,
		"converted", result.Converted,
		"skipped", result.Skipped,
		"unchanged", result.Unchanged,
		"removed", result.Removed,
	)
	return result, nil
}

// syncStore brings store in line with ws for the walked entries: changed
// files are converted and written, files missing from entries are removed.
func syncStore(ctx context.Context, ws *javamodel.Workspace, store storage.Backend, entries []FileEntry, parseFailures []ClassFailure, opts Options) (*PipelineResult, error) {
	result := &PipelineResult{Files: len(entries)}
	result.addFailures(parseFailures)

	// Unparseable files keep whatever the store already has for them.
	parsed := withoutFailed(entries, parseFailures)
	changed, err := changedEntries(ctx, store, parsed, opts.Full)
	if err != nil {
		return nil, err
	}
	result.Unchanged = len(parsed) - len(changed)

	opts.progress("Converting classes", 0.0)
	if err := convertAndStore(ctx, ws, store, changed, opts, result); err != nil {
		return nil, err
	}
	opts.progress("Converting classes", 1.0)

	removed, err := removeStale(ctx, store, entries)
	if err != nil {
		return nil, err
	}
	result.Removed = removed

	return result, nil
}

// LoadWorkspace parses entries concurrently and loads them into a new
// workspace. Files that fail to parse are reported and left out.
func LoadWorkspace(ctx context.Context, entries []FileEntry, opts Options) (*javamodel.Workspace, []ClassFailure, error) {
	log := logger.FromContext(ctx)
	parser := parsers.NewJavaParser()

	ws, err := javamodel.NewWorkspace(parser, opts.Model)
	if err != nil {
		return nil, nil, fmt.Errorf("creating workspace: %w", err)
	}

	results := make([]*parsers.ParseResult, len(entries))
	errs := make([]error, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())
	for i, entry := range entries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i], errs[i] = parser.Parse(entry.RelPath, entry.Content)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var failures []ClassFailure
	for i, entry := range entries {
		if errs[i] != nil {
			failures = append(failures, ClassFailure{File: entry.RelPath, Err: errs[i]})
			continue
		}
		if results[i].HasErrors {
			log.Warn("Syntax errors, continuing with what was recovered", "file", entry.RelPath)
		}
	}
	ws.Load(results...)

	return ws, failures, nil
}

// ConvertFile describes every public class declared in relPath. Classes
// that fail are returned as failures; the others are unaffected.
func ConvertFile(ctx context.Context, v *javamodel.View, relPath string) ([]*description.ClassDescription, []ClassFailure) {
	conv := converter.NewConverter(v)

	var (
		descs    []*description.ClassDescription
		failures []ClassFailure
	)
	for _, class := range v.ClassesInFile(relPath) {
		if !class.IsPublic() {
			continue
		}
		desc, err := conv.ConvertToClassDescription(ctx, class)
		if err != nil {
			failures = append(failures, ClassFailure{Class: class.QualifiedName(), File: relPath, Err: err})
			continue
		}
		descs = append(descs, desc)
	}
	return descs, failures
}

// Describe converts the Java sources under path without touching any
// store. path may be a single file.
func Describe(ctx context.Context, path string, opts Options) ([]*description.ClassDescription, []ClassFailure, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, err
	}

	var entries []FileEntry
	if info.IsDir() {
		patterns, _ := LoadGitignore(path)
		entries, err = WalkRepo(path, patterns, opts.Filter)
		if err != nil {
			return nil, nil, fmt.Errorf("walking %s: %w", path, err)
		}
	} else {
		entry, err := readEntry(path, filepath.Base(path))
		if err != nil {
			return nil, nil, err
		}
		entries = []FileEntry{entry}
	}

	ws, failures, err := LoadWorkspace(ctx, entries, opts)
	if err != nil {
		return nil, nil, err
	}

	var descs []*description.ClassDescription
	err = ws.Read(func(v *javamodel.View) error {
		for _, entry := range entries {
			d, f := ConvertFile(ctx, v, entry.RelPath)
			descs = append(descs, d...)
			failures = append(failures, f...)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	sort.Slice(descs, func(i, j int) bool {
		return descs[i].QualifiedName() < descs[j].QualifiedName()
	})
	return descs, failures, nil
}

func withoutFailed(entries []FileEntry, failures []ClassFailure) []FileEntry {
	if len(failures) == 0 {
		return entries
	}
	failed := make(map[string]bool, len(failures))
	for _, f := range failures {
		failed[f.File] = true
	}
	out := make([]FileEntry, 0, len(entries))
	for _, entry := range entries {
		if !failed[entry.RelPath] {
			out = append(out, entry)
		}
	}
	return out
}

// changedEntries returns the entries whose stored hash differs.
func changedEntries(ctx context.Context, store storage.Backend, entries []FileEntry, full bool) ([]FileEntry, error) {
	if full {
		return entries, nil
	}
	changed := make([]FileEntry, 0, len(entries))
	for _, entry := range entries {
		hash, ok, err := store.FileHash(ctx, entry.RelPath)
		if err != nil {
			return nil, err
		}
		if ok && hash == entry.SHA256 {
			continue
		}
		changed = append(changed, entry)
	}
	return changed, nil
}

// convertAndStore converts the classes of entries concurrently and writes
// one batch per file.
func convertAndStore(ctx context.Context, ws *javamodel.Workspace, store storage.Backend, entries []FileEntry, opts Options, result *PipelineResult) error {
	var mu sync.Mutex

	return ws.Read(func(v *javamodel.View) error {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.workers())

		for _, entry := range entries {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				descs, failures := ConvertFile(gctx, v, entry.RelPath)
				// An empty hash never matches, so files with failures are retried.
				hash := entry.SHA256
				if len(failures) > 0 {
					hash = ""
				}
				if err := store.PutDescriptions(gctx, entry.RelPath, hash, descs); err != nil {
					return err
				}

				mu.Lock()
				defer mu.Unlock()
				result.Classes += len(descs) + len(failures)
				result.Converted += len(descs)
				result.addFailures(failures)
				return nil
			})
		}
		return g.Wait()
	})
}

// removeStale drops stored files that are no longer part of the walk.
func removeStale(ctx context.Context, store storage.Backend, entries []FileEntry) (int, error) {
	present := make(map[string]bool, len(entries))
	for _, entry := range entries {
		present[entry.RelPath] = true
	}

	stored, err := store.Files(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, file := range stored {
		if present[file] {
			continue
		}
		if _, err := store.RemoveFile(ctx, file); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
