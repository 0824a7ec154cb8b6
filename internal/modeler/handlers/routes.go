package handlers

import (
	"github.com/gofiber/fiber/v3"

	"plan-modeler/internal/modeler/service"
)

// RegisterRoutes attaches the health and model routes to app.
func RegisterRoutes(app *fiber.App, svc service.ModelService) {
	h := NewModelHandler(svc)

	// ============================================================
	// Health Check Routes
	// ============================================================

	app.Get("/health/live", LivenessProbe)
	app.Get("/health/ready", ReadinessProbe(svc))

	app.Get("/docs", SwaggerUI)
	app.Get("/docs/openapi.yaml", OpenAPISpec)

	// ============================================================
	// Model Routes
	// ============================================================

	app.Post("/reconstruct", h.Reconstruct)
	app.Post("/render", h.Render)

	m := app.Group("/models")
	m.Get("/:id", h.Get)
	m.Delete("/:id", h.Delete)
	m.Post("/:id/build", h.Build)
	m.Get("/:id/artifacts/:backend", h.Artifact)
	m.Get("/:id/render", h.RenderStored)
}
