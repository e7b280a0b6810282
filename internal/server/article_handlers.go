// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"strings"

	"ufit/internal/models"
	"ufit/internal/service"

	"github.com/gofiber/fiber/v2"
)

// IngestArticles handles POST /api/admin/articles/ingest.
// Accepts a batch of external feed items; replaying the same batch is a no-op.
// @Summary Ingest article feed
// @Tags articles
// @Accept json
// @Produce json
// @Param request body object{articles=[]service.IngestArticleInput} true "Feed batch"
// @Success 200 {object} service.IngestResult
// @Failure 400 {object} object{error=string}
// @Router /admin/articles/ingest [post]
func (s *Server) IngestArticles(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	if !s.featureFlags.Enabled("article_ingest", userID) {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("Article ingestion is disabled"))
	}

	var req struct {
		Articles []service.IngestArticleInput `json:"articles"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	result, err := s.articleService.Ingest(c.Context(), req.Articles)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(result)
}

// GetArticles handles GET /api/articles (newest first)
func (s *Server) GetArticles(c *fiber.Ctx) error {
	page := parsePagination(c, 20)

	articles, err := s.articleService.ListArticles(c.Context(), page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	return c.JSON(articles)
}

// SearchArticles handles GET /api/articles/search?q=...
func (s *Server) SearchArticles(c *fiber.Ctx) error {
	q := strings.TrimSpace(c.Query("q"))
	page := parsePagination(c, 20)

	articles, err := s.articleService.SearchArticles(c.Context(), q, page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(articles)
}

// GetArticle handles GET /api/articles/:id
func (s *Server) GetArticle(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	article, err := s.articleService.GetArticle(c.Context(), id)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(article)
}
