package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
)

// InitMetrics creates the Prometheus middleware for HTTP metrics.
// Returns nil if initialization fails so the server can run without metrics.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	prom := fiberprometheus.New(serviceName)
	if prom == nil {
		Logger.Warn("prometheus middleware initialization failed, metrics disabled")
	}
	return prom
}

// MetricsMiddleware wraps the fiberprometheus handler as a Fiber middleware.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if prom == nil {
			return c.Next()
		}
		return prom.Middleware(c)
	}
}
