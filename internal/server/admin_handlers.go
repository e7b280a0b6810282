// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"ufit/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetDashboard handles GET /api/admin/dashboard.
// Aggregate platform counts plus the top karma authors.
func (s *Server) GetDashboard(c *fiber.Ctx) error {
	stats, err := s.adminService.GetDashboardStats(c.Context())
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	return c.JSON(stats)
}

// GetFeatureFlags handles GET /api/admin/feature-flags
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"flags": s.featureFlags.Raw(),
	})
}
