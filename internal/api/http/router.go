package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/checkin-service/internal/api/http/handlers"
	"github.com/spec-kit/checkin-service/internal/auth"
	"github.com/spec-kit/checkin-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Checkin        *handlers.CheckinHandler
	Events         *handlers.EventsHandler
	QR             *handlers.QRHandler
	Auth           *handlers.AuthHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/checkin", cfg.Checkin.Submit)
	app.Post("/checkin/preview", cfg.Checkin.Preview)

	app.Post("/auth/admin/login", cfg.Auth.Login)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireRole())
	admin.Get("/events", cfg.Events.List)
	admin.Get("/events/:id", cfg.Events.Get)
	admin.Get("/events/:id/checkins", cfg.Events.ListCheckins)
	admin.Get("/events/:id/checkins/export", cfg.Events.ExportCheckins)
	admin.Get("/events/:id/qr/active", cfg.QR.Active)
	admin.Get("/events/:id/qr/stats", cfg.QR.Stats)
	admin.Post("/accounts/password", cfg.Auth.ChangePassword)

	writers := admin.Group("", auth.RequireRole(domain.AdminRoleAdmin))
	writers.Post("/events", cfg.Events.Create)
	writers.Patch("/events/:id", cfg.Events.Update)
	writers.Post("/events/:id/qr", cfg.QR.Generate)
	writers.Post("/events/:id/qr/refresh", cfg.QR.Refresh)
	writers.Post("/events/:id/qr/cleanup", cfg.QR.Cleanup)
	writers.Post("/accounts", cfg.Auth.CreateAdmin)
}
