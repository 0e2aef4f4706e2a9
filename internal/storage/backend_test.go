package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/fluentgen/internal/description"
)

func playerDescription() *description.ClassDescription {
	player := description.NewTypeName("Player", "org.team")
	b := description.NewBuilder(player)
	b.AddGetter(description.NewGetterDescription("name",
		description.NewPlainType(description.NewTypeName("String", "java.lang"))))
	b.AddGetter(description.NewGetterDescription("age",
		description.NewPlainType(description.NewTypeName("int", ""))))
	b.AddGetter(description.NewGetterDescription("teamMates",
		description.NewIterableType(description.NewTypeName("List", "java.util"), player)))
	b.AddImport(description.NewTypeName("String", "java.lang"))
	b.AddImport(description.NewTypeName("List", "java.util"))
	return b.Build()
}

func teamDescription() *description.ClassDescription {
	b := description.NewBuilder(description.NewTypeName("Team", "org.team"))
	b.AddGetter(description.NewGetterDescription("name",
		description.NewPlainType(description.NewTypeName("String", "java.lang"))))
	b.AddGetter(description.NewGetterDescription("players",
		description.NewIterableType(description.NewTypeName("List", "java.util"),
			description.NewTypeName("Player", "org.team"))))
	return b.Build()
}

func coachDescription() *description.ClassDescription {
	return description.NewBuilder(description.NewTypeName("Coach", "org.staff")).Build()
}

// backends returns a fresh instance of every Backend implementation.
func backends(t *testing.T) map[string]Backend {
	t.Helper()

	badgerBackend := NewBadgerBackend()
	require.NoError(t, badgerBackend.Initialize(filepath.Join(t.TempDir(), "badger"), false))
	t.Cleanup(func() { _ = badgerBackend.Close() })

	return map[string]Backend{
		"Memory": NewMemoryBackend(),
		"Badger": badgerBackend,
	}
}

func TestBackend_PutAndGet(t *testing.T) {
	t.Parallel()

	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			player := playerDescription()

			require.NoError(t, backend.PutDescriptions(ctx, "src/Player.java", "h1", []*description.ClassDescription{player}))

			rec, err := backend.GetDescription(ctx, "org.team.Player")
			require.NoError(t, err)
			require.NotNil(t, rec)
			assert.Equal(t, "src/Player.java", rec.FilePath)
			assert.Equal(t, "org.team.Player", rec.QualifiedName())
			assert.True(t, player.Equal(rec.Description), "got %s", rec.Description)

			missing, err := backend.GetDescription(ctx, "org.team.Nobody")
			require.NoError(t, err)
			assert.Nil(t, missing)

			hash, ok, err := backend.FileHash(ctx, "src/Player.java")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "h1", hash)

			_, ok, err = backend.FileHash(ctx, "src/Other.java")
			require.NoError(t, err)
			assert.False(t, ok)

			assert.Equal(t, 1, backend.Count())
		})
	}
}

func TestBackend_ReplaceFile(t *testing.T) {
	t.Parallel()

	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, backend.PutDescriptions(ctx, "src/Team.java", "h1",
				[]*description.ClassDescription{playerDescription(), teamDescription()}))
			assert.Equal(t, 2, backend.Count())

			// Player was moved out of the file.
			require.NoError(t, backend.PutDescriptions(ctx, "src/Team.java", "h2",
				[]*description.ClassDescription{teamDescription()}))

			rec, err := backend.GetDescription(ctx, "org.team.Player")
			require.NoError(t, err)
			assert.Nil(t, rec)
			assert.Equal(t, 1, backend.Count())

			hash, _, err := backend.FileHash(ctx, "src/Team.java")
			require.NoError(t, err)
			assert.Equal(t, "h2", hash)

			results, err := backend.Search(ctx, "age", 10)
			require.NoError(t, err)
			assert.Empty(t, results, "stale descriptions leave the index")
		})
	}
}

func TestBackend_RemoveFile(t *testing.T) {
	t.Parallel()

	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, backend.PutDescriptions(ctx, "a/Player.java", "h1",
				[]*description.ClassDescription{playerDescription()}))
			require.NoError(t, backend.PutDescriptions(ctx, "a/Team.java", "h2",
				[]*description.ClassDescription{teamDescription()}))

			removed, err := backend.RemoveFile(ctx, "a/Player.java")
			require.NoError(t, err)
			assert.Equal(t, 1, removed)

			removed, err = backend.RemoveFile(ctx, "a/Player.java")
			require.NoError(t, err)
			assert.Zero(t, removed)

			files, err := backend.Files(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"a/Team.java"}, files)
			assert.Equal(t, 1, backend.Count())
		})
	}
}

func TestBackend_ClassMovedToAnotherFile(t *testing.T) {
	t.Parallel()

	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, backend.PutDescriptions(ctx, "old/Player.java", "h1",
				[]*description.ClassDescription{playerDescription()}))
			require.NoError(t, backend.PutDescriptions(ctx, "new/Player.java", "h2",
				[]*description.ClassDescription{playerDescription()}))

			removed, err := backend.RemoveFile(ctx, "old/Player.java")
			require.NoError(t, err)
			assert.Zero(t, removed)

			rec, err := backend.GetDescription(ctx, "org.team.Player")
			require.NoError(t, err)
			require.NotNil(t, rec)
			assert.Equal(t, "new/Player.java", rec.FilePath)
		})
	}
}

func TestBackend_ListDescriptions(t *testing.T) {
	t.Parallel()

	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, backend.PutDescriptions(ctx, "Team.java", "h1",
				[]*description.ClassDescription{teamDescription(), playerDescription()}))
			require.NoError(t, backend.PutDescriptions(ctx, "Coach.java", "h2",
				[]*description.ClassDescription{coachDescription()}))

			records, err := backend.ListDescriptions(ctx)
			require.NoError(t, err)

			var names []string
			for _, rec := range records {
				names = append(names, rec.QualifiedName())
			}
			assert.Equal(t, []string{"org.staff.Coach", "org.team.Player", "org.team.Team"}, names)
		})
	}
}

func TestBackend_Search(t *testing.T) {
	t.Parallel()

	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, backend.PutDescriptions(ctx, "Team.java", "h1",
				[]*description.ClassDescription{teamDescription(), playerDescription(), coachDescription()}))

			results, err := backend.Search(ctx, "player", 10)
			require.NoError(t, err)
			require.Len(t, results, 2)
			assert.Equal(t, "org.team.Player", results[0].QualifiedName)
			assert.Equal(t, "Player", results[0].ClassName)
			assert.Equal(t, "org.team.Team", results[1].QualifiedName, "element types are indexed")
			assert.Greater(t, results[0].Score, results[1].Score)

			results, err = backend.Search(ctx, "name", 10)
			require.NoError(t, err)
			require.Len(t, results, 2)
			assert.Equal(t, "org.team.Player", results[0].QualifiedName, "ties break on name")
			assert.Equal(t, []string{"name"}, results[0].Properties)

			results, err = backend.Search(ctx, "mates", 10)
			require.NoError(t, err)
			require.Len(t, results, 1)
			assert.Equal(t, []string{"teamMates"}, results[0].Properties)

			results, err = backend.Search(ctx, "player", 1)
			require.NoError(t, err)
			assert.Len(t, results, 1)

			results, err = backend.Search(ctx, "", 10)
			require.NoError(t, err)
			assert.Empty(t, results)
		})
	}
}

func TestBackend_Closed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, backend.Close())

			_, err := backend.GetDescription(ctx, "org.team.Player")
			assert.ErrorIs(t, err, ErrNotInitialized)

			err = backend.PutDescriptions(ctx, "x.java", "h", nil)
			assert.ErrorIs(t, err, ErrNotInitialized)

			_, err = backend.Search(ctx, "player", 10)
			assert.ErrorIs(t, err, ErrNotInitialized)
		})
	}
}
