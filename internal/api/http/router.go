package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-notifier/internal/api/http/handlers"
	"github.com/spec-kit/ticket-notifier/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tokens         *handlers.TokensHandler
	Teams          *handlers.TeamsHandler
	Notifications  *handlers.NotificationsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	api := app.Group("/api", cfg.AuthMiddleware.Handle)

	tokens := api.Group("/tokens")
	tokens.Post("/register", cfg.Tokens.Register)
	tokens.Delete("/unregister", cfg.Tokens.Unregister)
	tokens.Get("/user/:userId", cfg.Tokens.ForUser)
	tokens.Get("/owner", cfg.Tokens.Owner)
	tokens.Get("/stats", cfg.Tokens.Stats)

	teams := api.Group("/user-teams")
	teams.Post("/add", cfg.Teams.Add)
	teams.Post("/add-batch", cfg.Teams.AddBatch)
	teams.Delete("/remove", cfg.Teams.Remove)
	teams.Get("/team/:teamId/users", cfg.Teams.TeamUsers)
	teams.Get("/users", cfg.Teams.TeamsUsers)
	teams.Get("/user/:userId/teams", cfg.Teams.UserTeams)
	teams.Get("/stats", cfg.Teams.Stats)

	api.Post("/notifications/send", cfg.Notifications.Send)
	api.Post("/notifications/send-to-user", cfg.Notifications.SendToUser)
	api.Post("/events", cfg.Notifications.Ingest)
}
