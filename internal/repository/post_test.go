package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"scribio/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRepository_Integration(t *testing.T) {
	repo := NewPostRepository(testDB)
	ctx := context.Background()

	ts := time.Now().UnixNano()
	author := &models.User{
		Username: fmt.Sprintf("pr_%d", ts),
		Email:    fmt.Sprintf("pr_%d@e.com", ts),
	}
	testDB.Create(author)

	marker := fmt.Sprintf("zebra%d", ts)
	post := &models.Post{
		Title:          "The " + marker + " chronicle",
		PreviewContent: "An unusual animal",
		Author:         author.Snapshot(),
	}
	require.NoError(t, repo.Create(ctx, post))

	t.Run("Increment moves counters without clamping", func(t *testing.T) {
		require.NoError(t, repo.Increment(ctx, post.ID, CounterLikes, 2))
		require.NoError(t, repo.Increment(ctx, post.ID, CounterLikes, -3))

		got, err := repo.GetByID(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(-1), got.Likes)
	})

	t.Run("Increment on a missing post is NotFound", func(t *testing.T) {
		err := repo.Increment(ctx, 0, CounterViews, 1)
		require.Error(t, err)
		assert.True(t, models.IsNotFound(err))
	})

	t.Run("SetCounters repairs drift", func(t *testing.T) {
		require.NoError(t, repo.SetCounters(ctx, post.ID, 4, 1, 2))

		got, err := repo.GetByID(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(4), got.Likes)
		assert.Equal(t, int64(1), got.Dislikes)
		assert.Equal(t, int64(2), got.Saves)
	})

	t.Run("Search matches title case-insensitively", func(t *testing.T) {
		found, err := repo.Search(ctx, marker, 10, 0)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, post.ID, found[0].ID)
	})

	t.Run("GetByIDs preserves order and skips missing", func(t *testing.T) {
		second := &models.Post{Title: "second", Author: author.Snapshot()}
		require.NoError(t, repo.Create(ctx, second))

		posts, err := repo.GetByIDs(ctx, []uint{second.ID, 999999, post.ID})
		require.NoError(t, err)
		require.Len(t, posts, 2)
		assert.Equal(t, second.ID, posts[0].ID)
		assert.Equal(t, post.ID, posts[1].ID)
	})

	t.Run("Delete, then NotFound", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, post.ID))

		_, err := repo.GetByID(ctx, post.ID)
		require.Error(t, err)
		assert.True(t, models.IsNotFound(err))
	})
}
