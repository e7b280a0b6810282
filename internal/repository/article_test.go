package repository

import (
	"context"
	"testing"

	"ufit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArticleRepository_BatchInsertDedup(t *testing.T) {
	db := setupTestDB(t)
	repo := NewArticleRepository(db)
	ctx := context.Background()

	batch := []*models.Article{
		{Title: "Protein timing", SourceURL: "https://feeds.example.com/1", SourceHash: "hash-1"},
		{Title: "Zone 2 training", SourceURL: "https://feeds.example.com/2", SourceHash: "hash-2"},
	}

	inserted, err := repo.BatchInsert(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, int64(2), inserted)

	t.Run("replayed feed inserts nothing", func(t *testing.T) {
		replay := []*models.Article{
			{Title: "Protein timing", SourceURL: "https://feeds.example.com/1", SourceHash: "hash-1"},
		}
		inserted, err := repo.BatchInsert(ctx, replay)
		require.NoError(t, err)
		assert.Equal(t, int64(0), inserted)

		n, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("mixed batch inserts only new rows", func(t *testing.T) {
		mixed := []*models.Article{
			{Title: "Zone 2 training", SourceURL: "https://feeds.example.com/2", SourceHash: "hash-2"},
			{Title: "Sleep and recovery", SourceURL: "https://feeds.example.com/3", SourceHash: "hash-3"},
		}
		inserted, err := repo.BatchInsert(ctx, mixed)
		require.NoError(t, err)
		assert.Equal(t, int64(1), inserted)
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		inserted, err := repo.BatchInsert(ctx, nil)
		require.NoError(t, err)
		assert.Zero(t, inserted)
	})
}

func TestArticleRepository_Search(t *testing.T) {
	db := setupTestDB(t)
	repo := NewArticleRepository(db)
	ctx := context.Background()

	_, err := repo.BatchInsert(ctx, []*models.Article{
		{Title: "Creatine basics", Summary: "what the research says", SourceURL: "u1", SourceHash: "h1"},
		{Title: "Mobility work", Summary: "daily routines", SourceURL: "u2", SourceHash: "h2"},
	})
	require.NoError(t, err)

	got, err := repo.Search(ctx, "creatine", 10, 0)
	require.NoError(t, err)
	if assert.Len(t, got, 1) {
		assert.Equal(t, "Creatine basics", got[0].Title)
	}

	got, err = repo.Search(ctx, "nothing-matches", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}
