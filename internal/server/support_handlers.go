// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"ufit/internal/models"

	"github.com/gofiber/fiber/v2"
)

// CreateSupportSession handles POST /api/support/sessions.
// Opens a PENDING session for the caller; if the caller already has an open
// session it is returned instead of creating a second one.
func (s *Server) CreateSupportSession(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	session, err := s.supportService.CreateSession(c.Context(), userID)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.Status(fiber.StatusCreated).JSON(session)
}

// GetSupportSession handles GET /api/support/sessions/:id.
// Only the requesting user, the assigned moderator, or any moderator-capable
// role may view a session.
func (s *Server) GetSupportSession(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	session, err := s.supportService.GetSession(c.Context(), id)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	if session.UserID != userID {
		role, roleErr := s.roleOfUserID(c.Context(), userID)
		if roleErr != nil {
			return models.RespondWithError(c, fiber.StatusInternalServerError, roleErr)
		}
		if !role.CanModerate() {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Not a participant in this session"))
		}
	}

	return c.JSON(session)
}

// PostSupportMessage handles POST /api/support/messages.
// The sender's ACTIVE session is resolved from their role: moderators post to
// their assigned session, users to their own.
func (s *Server) PostSupportMessage(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	role, err := s.roleOfUserID(c.Context(), userID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	msg, err := s.supportService.PostMessage(c.Context(), userID, req.Content, role.CanModerate())
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.Status(fiber.StatusCreated).JSON(msg)
}

// GetSupportQueue handles GET /api/support/queue (moderators).
// Pending sessions, oldest first.
func (s *Server) GetSupportQueue(c *fiber.Ctx) error {
	page := parsePagination(c, 20)

	sessions, err := s.supportService.ListPending(c.Context(), page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	return c.JSON(sessions)
}

// AssignSupportModerator handles POST /api/support/sessions/:id/assign.
// Without a body the caller assigns themselves.
func (s *Server) AssignSupportModerator(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		ModeratorID uint `json:"moderator_id"`
	}
	// Body is optional; ignore parse errors for empty bodies.
	_ = c.BodyParser(&req)
	moderatorID := req.ModeratorID
	if moderatorID == 0 {
		moderatorID = userID
	}

	session, err := s.supportService.AssignModerator(c.Context(), id, moderatorID)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(session)
}

// CloseSupportSession handles POST /api/support/sessions/:id/close (moderators)
func (s *Server) CloseSupportSession(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	session, err := s.supportService.CloseSession(c.Context(), id)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(session)
}

// InitiateAdminChat handles POST /api/support/admin-chat (admins).
// Opens an ACTIVE session with the target user and sends the first message.
func (s *Server) InitiateAdminChat(c *fiber.Ctx) error {
	adminID := c.Locals("userID").(uint)

	var req struct {
		UserID  uint   `json:"user_id"`
		Message string `json:"message"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.UserID == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("user_id is required"))
	}

	session, err := s.supportService.InitiateAdminChat(c.Context(), req.UserID, adminID, req.Message)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.Status(fiber.StatusCreated).JSON(session)
}
