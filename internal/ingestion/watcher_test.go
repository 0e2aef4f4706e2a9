package ingestion

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/fluentgen/internal/storage"
)

func newTestSession(t *testing.T, root string, store storage.Backend) *watchSession {
	t.Helper()
	ctx := testContext(t)

	patterns, err := LoadGitignore(root)
	require.NoError(t, err)
	entries, err := WalkRepo(root, patterns, nil)
	require.NoError(t, err)
	ws, failures, err := LoadWorkspace(ctx, entries, testOptions())
	require.NoError(t, err)
	_, err = syncStore(ctx, ws, store, entries, failures, testOptions())
	require.NoError(t, err)

	s := &watchSession{
		repoPath: root,
		store:    store,
		opts:     testOptions(),
		ws:       ws,
		matcher:  newMatcher(patterns),
		hashes:   make(map[string]string),
		lastFull: time.Now(),
	}
	for _, entry := range entries {
		s.hashes[entry.RelPath] = entry.SHA256
	}
	return s
}

func TestWatchSession_ProcessBatch(t *testing.T) {
	t.Parallel()

	ctx := testContext(t)
	root := setupRepo(t)
	store := storage.NewMemoryBackend()
	s := newTestSession(t, root, store)

	t.Run("UnchangedFile", func(t *testing.T) {
		result, err := s.processBatch(ctx, map[string]bool{"src/org/team/Player.java": true})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Unchanged)
		assert.Zero(t, result.Converted)
	})

	t.Run("NewFile", func(t *testing.T) {
		writeFiles(t, root, map[string]string{
			"src/org/team/Coach.java": "package org.team;\npublic class Coach {\n  public Team getTeam() { return null; }\n}\n",
		})

		result, err := s.processBatch(ctx, map[string]bool{"src/org/team/Coach.java": true})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Converted)

		rec, err := store.GetDescription(ctx, "org.team.Coach")
		require.NoError(t, err)
		require.NotNil(t, rec)

		team, ok := rec.Description.Getter("team")
		require.True(t, ok)
		assert.True(t, team.Type.IsIterable, "Team implements Iterable")
	})

	t.Run("ModifiedFile", func(t *testing.T) {
		writeFiles(t, root, map[string]string{
			"src/org/team/Player.java": "package org.team;\npublic class Player {\n  public long getId() { return 0; }\n}\n",
		})

		result, err := s.processBatch(ctx, map[string]bool{"src/org/team/Player.java": true})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Converted)

		rec, err := store.GetDescription(ctx, "org.team.Player")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Len(t, rec.Description.Getters(), 1)
	})

	t.Run("DeletedFile", func(t *testing.T) {
		require.NoError(t, os.Remove(filepath.Join(root, "src", "org", "team", "Coach.java")))

		result, err := s.processBatch(ctx, map[string]bool{"src/org/team/Coach.java": true})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Removed)

		rec, err := store.GetDescription(ctx, "org.team.Coach")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("FullResync", func(t *testing.T) {
		s.lastFull = time.Now().Add(-2 * fullSyncInterval)

		result, err := s.processBatch(ctx, map[string]bool{"src/org/team/Team.java": true})
		require.NoError(t, err)
		assert.Equal(t, 2, result.Converted, "every loaded file is re-converted")
		assert.WithinDuration(t, time.Now(), s.lastFull, time.Minute)
	})
}

func TestWatchSession_ShouldWatchFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFiles(t, root, map[string]string{".gitignore": "generated/\n"})

	filter, err := NewFilter([]string{"**/*.java"}, []string{"**/test/**"})
	require.NoError(t, err)

	patterns, err := LoadGitignore(root)
	require.NoError(t, err)

	s := &watchSession{repoPath: root, matcher: newMatcher(patterns), opts: Options{Filter: filter}}

	tests := []struct {
		path string
		want bool
	}{
		{"src/Player.java", true},
		{"src/Player.java~", false},
		{"README.md", false},
		{"generated/Gen.java", false},
		{"target/Built.java", false},
		{"src/test/PlayerTest.java", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, s.shouldWatchFile(filepath.Join(root, filepath.FromSlash(tt.path))))
		})
	}

	assert.False(t, s.shouldWatchFile(filepath.Join(filepath.Dir(root), "Outside.java")))
}

func TestShouldResyncAll(t *testing.T) {
	t.Parallel()

	assert.False(t, shouldResyncAll(time.Now()))
	assert.True(t, shouldResyncAll(time.Now().Add(-fullSyncInterval)))
}

func TestWatchRepo(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(testContext(t))
	defer cancel()

	root := setupRepo(t)
	store := storage.NewMemoryBackend()

	opts := testOptions()
	opts.Debounce = 50 * time.Millisecond

	var (
		mu      sync.Mutex
		batches int
	)
	done := make(chan error, 1)
	go func() {
		done <- WatchRepo(ctx, root, store, opts, func(*PipelineResult) {
			mu.Lock()
			batches++
			mu.Unlock()
		})
	}()

	// Initial sync.
	require.Eventually(t, func() bool { return store.Count() == 2 }, 5*time.Second, 20*time.Millisecond)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return batches >= 1
	}, 5*time.Second, 20*time.Millisecond)

	// Give the watcher time to register the tree.
	time.Sleep(100 * time.Millisecond)

	writeFiles(t, root, map[string]string{
		"src/org/team/league/League.java": "package org.team.league;\npublic class League {\n  public String getName() { return null; }\n}\n",
	})

	assert.Eventually(t, func() bool {
		rec, err := store.GetDescription(ctx, "org.team.league.League")
		return err == nil && rec != nil
	}, 5*time.Second, 20*time.Millisecond, "files in new directories are picked up")

	require.NoError(t, os.Remove(filepath.Join(root, "src", "org", "team", "Team.java")))

	assert.Eventually(t, func() bool {
		rec, err := store.GetDescription(ctx, "org.team.Team")
		return err == nil && rec == nil
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
