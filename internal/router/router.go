package router

import (
	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/tekeve/WITv3.0-sub000/internal/handler"
	"github.com/tekeve/WITv3.0-sub000/internal/middleware"
)

// Handlers holds all handler instances needed by the router.
type Handlers struct {
	Vote   *handler.VoteHandler
	Tally  *handler.TallyHandler
	Health *handler.HealthHandler
}

// Setup configures the middleware stack and all API routes on the given Fiber app.
func Setup(app *fiber.App, h *Handlers, corsOrigins string) {
	// Middleware stack (order matters)
	app.Use(recoverer.New())
	app.Use(middleware.NewRequestLogger())
	app.Use(middleware.NewCORS(corsOrigins))
	app.Use(handler.MetricsMiddleware())

	// Health and metrics (before API group, no rate limit)
	app.Get("/health/live", h.Health.Live)
	app.Get("/health/ready", h.Health.Ready)
	app.Get("/metrics", handler.MetricsHandler())

	// API routes
	api := app.Group("/api")

	// Voter surface
	api.Get("/vote-details/:token", h.Vote.Details, middleware.NewVoteDetailsRateLimiter().Handler())
	api.Post("/votes", h.Vote.Submit, middleware.NewCastRateLimiter().Handler())

	// Manual tally trigger (the external trigger source's surface)
	api.Post("/elections/:electionId/tally", h.Tally.Trigger, middleware.NewTallyTriggerRateLimiter().Handler())
}
