package repository

import (
	"context"
	"testing"

	"ufit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRepository_ReplyTree(t *testing.T) {
	db := setupTestDB(t)
	posts := NewPostRepository(db)
	topics := NewTopicRepository(db)
	ctx := context.Background()

	author := &models.User{Username: "author", Email: "author@example.com", Password: "x"}
	require.NoError(t, db.Create(author).Error)

	topic := &models.Topic{Title: "Cutting advice", AuthorID: author.ID}
	require.NoError(t, topics.Create(ctx, topic))

	root := &models.Post{TopicID: topic.ID, AuthorID: author.ID, Content: "root"}
	require.NoError(t, posts.Create(ctx, root))

	// root -> a -> b -> c, plus a second direct reply d under root
	a := &models.Post{TopicID: topic.ID, AuthorID: author.ID, ParentID: &root.ID, Content: "a"}
	require.NoError(t, posts.Create(ctx, a))
	b := &models.Post{TopicID: topic.ID, AuthorID: author.ID, ParentID: &a.ID, Content: "b"}
	require.NoError(t, posts.Create(ctx, b))
	c := &models.Post{TopicID: topic.ID, AuthorID: author.ID, ParentID: &b.ID, Content: "c"}
	require.NoError(t, posts.Create(ctx, c))
	d := &models.Post{TopicID: topic.ID, AuthorID: author.ID, ParentID: &root.ID, Content: "d"}
	require.NoError(t, posts.Create(ctx, d))

	t.Run("full tree within depth bound", func(t *testing.T) {
		tree, err := posts.GetReplyTree(ctx, root.ID, 5)
		require.NoError(t, err)
		require.Len(t, tree.Replies, 2)
		assert.Equal(t, "a", tree.Replies[0].Content)
		assert.Equal(t, "d", tree.Replies[1].Content)
		require.Len(t, tree.Replies[0].Replies, 1)
		require.Len(t, tree.Replies[0].Replies[0].Replies, 1)
		assert.Equal(t, "c", tree.Replies[0].Replies[0].Replies[0].Content)
	})

	t.Run("depth bound truncates deeper levels", func(t *testing.T) {
		tree, err := posts.GetReplyTree(ctx, root.ID, 2)
		require.NoError(t, err)
		require.Len(t, tree.Replies, 2)
		require.Len(t, tree.Replies[0].Replies, 1)
		// level 3 (post c) is not fetched
		assert.Empty(t, tree.Replies[0].Replies[0].Replies)
	})

	t.Run("subtree rooted at a deeper post", func(t *testing.T) {
		tree, err := posts.GetReplyTree(ctx, b.ID, 2)
		require.NoError(t, err)
		require.Len(t, tree.Replies, 1)
		assert.Equal(t, "c", tree.Replies[0].Content)
	})

	t.Run("missing root", func(t *testing.T) {
		_, err := posts.GetReplyTree(ctx, 9999, 3)
		require.Error(t, err)
		assert.True(t, models.HasCode(err, models.CodeNotFound))
	})
}

func TestPostRepository_TopicListing(t *testing.T) {
	db := setupTestDB(t)
	posts := NewPostRepository(db)
	topics := NewTopicRepository(db)
	ctx := context.Background()

	author := &models.User{Username: "author2", Email: "author2@example.com", Password: "x"}
	require.NoError(t, db.Create(author).Error)

	topic := &models.Topic{Title: "Meal prep", AuthorID: author.ID}
	require.NoError(t, topics.Create(ctx, topic))

	top := &models.Post{TopicID: topic.ID, AuthorID: author.ID, Content: "top-level"}
	require.NoError(t, posts.Create(ctx, top))
	reply := &models.Post{TopicID: topic.ID, AuthorID: author.ID, ParentID: &top.ID, Content: "reply"}
	require.NoError(t, posts.Create(ctx, reply))

	got, err := posts.GetByTopicID(ctx, topic.ID, 10, 0)
	require.NoError(t, err)
	// replies are excluded from topic-level listings
	require.Len(t, got, 1)
	assert.Equal(t, "top-level", got[0].Content)
}

func TestPostRepository_GetVote(t *testing.T) {
	db := setupTestDB(t)
	posts := NewPostRepository(db)
	ctx := context.Background()

	voter := &models.User{Username: "voter", Email: "voter@example.com", Password: "x"}
	require.NoError(t, db.Create(voter).Error)
	post := &models.Post{TopicID: 1, AuthorID: voter.ID, Content: "p"}
	require.NoError(t, posts.Create(ctx, post))

	got, err := posts.GetVote(ctx, post.ID, voter.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, db.Create(&models.Vote{PostID: post.ID, VoterID: voter.ID, Upvote: true}).Error)

	got, err = posts.GetVote(ctx, post.ID, voter.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Upvote)
}
