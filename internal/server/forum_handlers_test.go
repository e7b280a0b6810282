package server

import (
	"fmt"
	"net/http"
	"testing"

	"ufit/internal/models"
	"ufit/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestTopic(t *testing.T, app *fiber.App, auth string) models.Topic {
	t.Helper()

	req := newTestRequest(t, http.MethodPost, "/api/topics", map[string]string{
		"title":       "Strength Training",
		"description": "Programs, form checks, progress",
	})
	req.Header.Set("Authorization", auth)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var topic models.Topic
	decodeBody(t, resp, &topic)
	return topic
}

func createTestPost(t *testing.T, app *fiber.App, auth string, topicID uint, parentID *uint) models.Post {
	t.Helper()

	req := newTestRequest(t, http.MethodPost, "/api/posts", map[string]any{
		"topic_id":  topicID,
		"parent_id": parentID,
		"content":   "Started 5x5 this week, knees feel fine so far.",
	})
	req.Header.Set("Authorization", auth)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var post models.Post
	decodeBody(t, resp, &post)
	return post
}

func TestTopicEndpoints(t *testing.T) {
	s, app := setupServerTest(t)
	user := createTestUser(t, s, "forumuser", models.RoleUser)
	auth := bearerFor(t, s, user)

	topic := createTestTopic(t, app, auth)
	assert.Equal(t, user.ID, topic.AuthorID)

	t.Run("Unauthenticated creation rejected", func(t *testing.T) {
		req := newTestRequest(t, http.MethodPost, "/api/topics", map[string]string{
			"title": "No auth",
		})
		resp, err := app.Test(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("List includes the topic", func(t *testing.T) {
		req := newTestRequest(t, http.MethodGet, "/api/topics", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var topics []models.Topic
		decodeBody(t, resp, &topics)
		require.Len(t, topics, 1)
		assert.Equal(t, topic.ID, topics[0].ID)
	})

	t.Run("Get by id", func(t *testing.T) {
		req := newTestRequest(t, http.MethodGet, fmt.Sprintf("/api/topics/%d", topic.ID), nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("Missing topic is 404", func(t *testing.T) {
		req := newTestRequest(t, http.MethodGet, "/api/topics/9999", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("Garbage id is 400", func(t *testing.T) {
		req := newTestRequest(t, http.MethodGet, "/api/topics/banana", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestPostAndThreadEndpoints(t *testing.T) {
	s, app := setupServerTest(t)
	user := createTestUser(t, s, "poster", models.RoleUser)
	auth := bearerFor(t, s, user)

	topic := createTestTopic(t, app, auth)
	root := createTestPost(t, app, auth, topic.ID, nil)
	reply := createTestPost(t, app, auth, topic.ID, &root.ID)

	t.Run("Reply to missing parent is 404", func(t *testing.T) {
		missing := uint(9999)
		req := newTestRequest(t, http.MethodPost, "/api/posts", map[string]any{
			"topic_id":  topic.ID,
			"parent_id": missing,
			"content":   "orphan reply",
		})
		req.Header.Set("Authorization", auth)
		resp, err := app.Test(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("Topic listing returns only top-level posts", func(t *testing.T) {
		req := newTestRequest(t, http.MethodGet, fmt.Sprintf("/api/topics/%d/posts", topic.ID), nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var posts []models.Post
		decodeBody(t, resp, &posts)
		require.Len(t, posts, 1)
		assert.Equal(t, root.ID, posts[0].ID)
	})

	t.Run("Thread includes the reply", func(t *testing.T) {
		req := newTestRequest(t, http.MethodGet, fmt.Sprintf("/api/posts/%d/thread", root.ID), nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var thread models.Post
		decodeBody(t, resp, &thread)
		require.Len(t, thread.Replies, 1)
		assert.Equal(t, reply.ID, thread.Replies[0].ID)
	})

	t.Run("Thread with depth zero omits replies", func(t *testing.T) {
		req := newTestRequest(t, http.MethodGet, fmt.Sprintf("/api/posts/%d/thread?depth=0", root.ID), nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var thread models.Post
		decodeBody(t, resp, &thread)
		assert.Empty(t, thread.Replies)
	})
}

func TestDeletePostPermissions(t *testing.T) {
	s, app := setupServerTest(t)
	author := createTestUser(t, s, "postauthor", models.RoleUser)
	stranger := createTestUser(t, s, "bystander", models.RoleUser)
	mod := createTestUser(t, s, "janitor", models.RoleModerator)

	authorAuth := bearerFor(t, s, author)
	topic := createTestTopic(t, app, authorAuth)
	post := createTestPost(t, app, authorAuth, topic.ID, nil)

	t.Run("Non-author cannot delete", func(t *testing.T) {
		req := newTestRequest(t, http.MethodDelete, fmt.Sprintf("/api/posts/%d", post.ID), nil)
		req.Header.Set("Authorization", bearerFor(t, s, stranger))
		resp, err := app.Test(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("Moderator can delete", func(t *testing.T) {
		req := newTestRequest(t, http.MethodDelete, fmt.Sprintf("/api/posts/%d", post.ID), nil)
		req.Header.Set("Authorization", bearerFor(t, s, mod))
		resp, err := app.Test(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("Deleted post is gone", func(t *testing.T) {
		req := newTestRequest(t, http.MethodGet, fmt.Sprintf("/api/posts/%d", post.ID), nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestCastVoteEndpoint(t *testing.T) {
	s, app := setupServerTest(t)
	author := createTestUser(t, s, "voteauthor", models.RoleUser)
	voter := createTestUser(t, s, "voter", models.RoleUser)

	authorAuth := bearerFor(t, s, author)
	voterAuth := bearerFor(t, s, voter)
	topic := createTestTopic(t, app, authorAuth)
	post := createTestPost(t, app, authorAuth, topic.ID, nil)

	vote := func(t *testing.T, upvote bool) *service.VoteResult {
		t.Helper()
		req := newTestRequest(t, http.MethodPost, fmt.Sprintf("/api/posts/%d/vote", post.ID), map[string]bool{
			"upvote": upvote,
		})
		req.Header.Set("Authorization", voterAuth)
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var result service.VoteResult
		decodeBody(t, resp, &result)
		return &result
	}

	t.Run("First upvote counts", func(t *testing.T) {
		result := vote(t, true)
		assert.False(t, result.Removed)
		assert.Equal(t, 1, result.Post.Upvotes)
		assert.Equal(t, 0, result.Post.Downvotes)
	})

	t.Run("Opposite vote switches", func(t *testing.T) {
		result := vote(t, false)
		assert.False(t, result.Removed)
		assert.Equal(t, 0, result.Post.Upvotes)
		assert.Equal(t, 1, result.Post.Downvotes)
	})

	t.Run("Same vote again removes it", func(t *testing.T) {
		result := vote(t, false)
		assert.True(t, result.Removed)
		assert.Equal(t, 0, result.Post.Upvotes)
		assert.Equal(t, 0, result.Post.Downvotes)
	})

	t.Run("Missing vote direction is 400 and records nothing", func(t *testing.T) {
		req := newTestRequest(t, http.MethodPost, fmt.Sprintf("/api/posts/%d/vote", post.ID), map[string]any{})
		req.Header.Set("Authorization", voterAuth)
		resp, err := app.Test(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var current models.Post
		require.NoError(t, s.db.First(&current, post.ID).Error)
		assert.Equal(t, 0, current.Upvotes)
		assert.Equal(t, 0, current.Downvotes)
	})

	t.Run("Voting on a missing post is 404", func(t *testing.T) {
		req := newTestRequest(t, http.MethodPost, "/api/posts/9999/vote", map[string]bool{"upvote": true})
		req.Header.Set("Authorization", voterAuth)
		resp, err := app.Test(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
