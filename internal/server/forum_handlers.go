// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"ufit/internal/models"
	"ufit/internal/repository"
	"ufit/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateTopic handles POST /api/topics
// @Summary Create a forum topic
// @Tags forum
// @Accept json
// @Produce json
// @Param request body object{title=string,description=string} true "Topic"
// @Success 201 {object} models.Topic
// @Failure 400 {object} object{error=string}
// @Router /topics [post]
func (s *Server) CreateTopic(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	topic, err := s.forumService.CreateTopic(c.Context(), service.CreateTopicInput{
		AuthorID:    userID,
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.Status(fiber.StatusCreated).JSON(topic)
}

// GetTopics handles GET /api/topics
func (s *Server) GetTopics(c *fiber.Ctx) error {
	page := parsePagination(c, 50)

	topics, err := s.forumService.ListTopics(c.Context(), page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	return c.JSON(topics)
}

// GetTopic handles GET /api/topics/:id
func (s *Server) GetTopic(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	topic, err := s.forumService.GetTopic(c.Context(), id)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(topic)
}

// GetTopicPosts handles GET /api/topics/:id/posts (top-level posts, newest first)
func (s *Server) GetTopicPosts(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, 20)

	posts, err := s.forumService.ListTopicPosts(c.Context(), id, page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(posts)
}

// CreatePost handles POST /api/posts
// @Summary Create a forum post or reply
// @Tags forum
// @Accept json
// @Produce json
// @Param request body object{topic_id=integer,parent_id=integer,content=string} true "Post"
// @Success 201 {object} models.Post
// @Failure 400 {object} object{error=string}
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req struct {
		TopicID  uint   `json:"topic_id"`
		ParentID *uint  `json:"parent_id"`
		Content  string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.forumService.CreatePost(c.Context(), service.CreatePostInput{
		AuthorID: userID,
		TopicID:  req.TopicID,
		ParentID: req.ParentID,
		Content:  req.Content,
	})
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.forumService.GetPost(c.Context(), id)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(post)
}

// GetThread handles GET /api/posts/:id/thread.
// Returns the post with its reply tree; ?depth=N bounds recursion depth.
func (s *Server) GetThread(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	depth := c.QueryInt("depth", repository.MaxReplyDepth)

	post, err := s.forumService.GetThread(c.Context(), id, depth)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id (author or moderator)
func (s *Server) DeletePost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.forumService.DeletePost(c.Context(), id, userID); err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(fiber.Map{"message": "Post deleted"})
}

// CastVote handles POST /api/posts/:id/vote
// @Summary Vote on a post
// @Description Casting the same vote twice removes it; the opposite vote switches it.
// @Tags forum
// @Accept json
// @Produce json
// @Param id path integer true "Post ID"
// @Param request body object{upvote=boolean} true "Vote direction"
// @Success 200 {object} service.VoteResult
// @Failure 404 {object} object{error=string}
// @Router /posts/{id}/vote [post]
func (s *Server) CastVote(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	// Upvote is a pointer so an absent field is distinguishable from false.
	var req struct {
		Upvote *bool `json:"upvote"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.Upvote == nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Vote direction is required"))
	}

	result, err := s.voteService.CastVote(c.Context(), id, userID, *req.Upvote)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(result)
}
