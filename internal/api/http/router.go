package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ciepi/portal-service/internal/api/http/handlers"
	"github.com/ciepi/portal-service/internal/auth"
	"github.com/ciepi/portal-service/internal/persistence"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Verification   *handlers.VerificationHandler
	Registration   *handlers.RegistrationHandler
	Capacitaciones *handlers.CapacitacionesHandler
	Content        *handlers.ContentHandler
	Contact        *handlers.ContactHandler
	Staff          *handlers.StaffHandler
	AuthMiddleware *auth.AuthMiddleware
	RolePolicy     auth.RolePolicy
	Redis          *persistence.Redis
	MinPollEvery   time.Duration
	Logger         *zap.Logger
}

// RegisterRoutes wires HTTP routes. Public portal endpoints live under
// /api; staff-only management endpoints live under /api/admin behind the
// bearer middleware and the role policy.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	api := app.Group("/api")

	// Public surface.
	api.Post("/registro", cfg.Registration.Register)
	api.Get("/capacitaciones", cfg.Capacitaciones.ListPublic)
	api.Get("/capacitaciones/:id", cfg.Capacitaciones.Get)
	api.Get("/blog", cfg.Content.ListPosts)
	api.Get("/blog/:slug", cfg.Content.GetPost)
	api.Get("/eventos", cfg.Content.ListUpcomingEvents)
	api.Post("/contacto", cfg.Contact.Submit)

	// Verification token lifecycle.
	verificacion := api.Group("/verificacion")
	verificacion.Get("/:token/estado",
		PollLimiter(cfg.Redis, cfg.MinPollEvery, cfg.Logger),
		cfg.Verification.Status)
	verificacion.Post("/:token/confirmar", cfg.Verification.Consume)
	verificacion.Post("/reenviar", cfg.Verification.Resend)

	api.Post("/staff/login", cfg.Staff.Login)

	// Staff surface.
	admin := api.Group("/admin", cfg.AuthMiddleware.Handle)
	admin.Post("/staff/password/change", cfg.Staff.ChangePassword)

	admin.Post("/verificacion", auth.Require(cfg.RolePolicy, auth.PermIssueTokens), cfg.Verification.Issue)
	admin.Get("/registro/:id", auth.Require(cfg.RolePolicy, auth.PermViewRegistrants), cfg.Registration.Get)

	capacitaciones := admin.Group("/capacitaciones", auth.Require(cfg.RolePolicy, auth.PermManageCapacitaciones))
	capacitaciones.Get("/", cfg.Capacitaciones.ListAll)
	capacitaciones.Post("/", cfg.Capacitaciones.Create)
	capacitaciones.Put("/:id", cfg.Capacitaciones.Update)
	capacitaciones.Get("/:id/inscripciones", cfg.Capacitaciones.ListEnrollments)

	admin.Post("/blog", auth.Require(cfg.RolePolicy, auth.PermWriteBlog), cfg.Content.CreatePost)
	eventos := admin.Group("/eventos", auth.Require(cfg.RolePolicy, auth.PermManageEvents))
	eventos.Post("/", cfg.Content.CreateEvent)
	eventos.Put("/:id", cfg.Content.UpdateEvent)

	admin.Get("/contacto", auth.Require(cfg.RolePolicy, auth.PermViewContact), cfg.Contact.List)
}
