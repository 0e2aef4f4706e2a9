// Package ingestion walks Java sources, converts their classes into
// descriptions and keeps the description store in sync.
package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// FileEntry represents a file to be processed.
type FileEntry struct {
	// Path is the absolute file path.
	Path string

	// RelPath is the slash-separated path relative to the repo root.
	RelPath string

	// Content is the file content.
	Content []byte

	// SHA256 is the hash of the file content.
	SHA256 string
}

const javaExtension = ".java"

// Default patterns to ignore (in addition to .gitignore).
var defaultIgnorePatterns = []string{
	".git/",
	".fluentgen/",
	".gradle/",
	".idea/",
	".mvn/",
	"target/",
	"build/",
	"out/",
	"node_modules/",
	".DS_Store",
}

// Filter selects files by doublestar globs over slash-separated relative
// paths. A file is kept when it matches an include pattern and no exclude
// pattern.
type Filter struct {
	include []string
	exclude []string
}

// NewFilter validates the patterns and builds a filter.
func NewFilter(include, exclude []string) (*Filter, error) {
	for _, p := range append(append([]string{}, include...), exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid glob pattern %q", p)
		}
	}
	return &Filter{include: include, exclude: exclude}, nil
}

// Match reports whether relPath passes the filter. A nil filter keeps
// every path.
func (f *Filter) Match(relPath string) bool {
	if f == nil {
		return true
	}
	relPath = filepath.ToSlash(relPath)

	included := len(f.include) == 0
	for _, p := range f.include {
		if ok, _ := doublestar.Match(p, relPath); ok {
			included = true
			break
		}
	}
	if !included {
		return false
	}
	for _, p := range f.exclude {
		if ok, _ := doublestar.Match(p, relPath); ok {
			return false
		}
	}
	return true
}

// WalkRepo walks the repository and returns all Java files that survive
// the ignore patterns and the filter.
func WalkRepo(repoPath string, patterns []gitignore.Pattern, filter *Filter) ([]FileEntry, error) {
	var entries []FileEntry

	matcher := newMatcher(patterns)

	err := filepath.WalkDir(repoPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Skip directories we don't want to traverse
		if d.IsDir() {
			if path != repoPath && shouldSkipDir(d.Name(), path, repoPath, matcher) {
				return filepath.SkipDir
			}
			return nil
		}

		if !isJavaFile(d.Name()) {
			return nil
		}

		relPath, err := filepath.Rel(repoPath, path)
		if err != nil {
			return err
		}

		if matcher.Match(splitPath(relPath), false) || !filter.Match(relPath) {
			return nil
		}

		entry, err := readEntry(path, relPath)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
		return nil
	})

	return entries, err
}

// readEntry reads a file and computes its hash.
func readEntry(path, relPath string) (FileEntry, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return FileEntry{}, err
	}

	hash := sha256.Sum256(content)

	return FileEntry{
		Path:    path,
		RelPath: filepath.ToSlash(relPath),
		Content: content,
		SHA256:  hex.EncodeToString(hash[:]),
	}, nil
}

// newMatcher combines the default patterns with the loaded ones.
func newMatcher(patterns []gitignore.Pattern) gitignore.Matcher {
	all := make([]gitignore.Pattern, 0, len(defaultIgnorePatterns)+len(patterns))
	for _, p := range defaultIgnorePatterns {
		all = append(all, gitignore.ParsePattern(p, nil))
	}
	all = append(all, patterns...)
	return gitignore.NewMatcher(all)
}

// LoadGitignore loads .gitignore patterns from the repository root.
func LoadGitignore(repoPath string) ([]gitignore.Pattern, error) {
	gitignorePath := filepath.Join(repoPath, ".gitignore")

	content, err := os.ReadFile(gitignorePath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var patterns []gitignore.Pattern
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}

	return patterns, nil
}

// isJavaFile checks if a file is a Java source.
func isJavaFile(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), javaExtension)
}

// shouldSkipDir checks if a directory should be skipped.
func shouldSkipDir(name, path, repoRoot string, matcher gitignore.Matcher) bool {
	// Always skip .git
	if name == ".git" {
		return true
	}

	relPath, err := filepath.Rel(repoRoot, path)
	if err != nil {
		return false
	}

	return matcher.Match(splitPath(relPath), true)
}

// splitPath splits a path into its components.
func splitPath(path string) []string {
	return strings.Split(path, string(filepath.Separator))
}
