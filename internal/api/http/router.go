package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/northwind-service/internal/api/http/handlers"
	"github.com/spec-kit/northwind-service/internal/auth"
	"github.com/spec-kit/northwind-service/internal/domain"
	"github.com/spec-kit/northwind-service/internal/ratelimit"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health      *handlers.HealthHandler
	Auth        *handlers.AuthHandler
	Catalog     *handlers.CatalogHandler
	Ops         *handlers.OpsHandler
	RateLimiter *ratelimit.Middleware
	Gate        *auth.Gate
	Policy      *auth.Policy
}

var catalogEntities = []domain.Entity{
	domain.EntityProducts,
	domain.EntityCategories,
	domain.EntitySuppliers,
	domain.EntityCustomers,
	domain.EntityOrders,
	domain.EntityEmployees,
}

// RegisterRoutes installs the request gate (rate limiter, then identity, then policy)
// and wires HTTP routes behind it.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	if cfg.RateLimiter != nil {
		app.Use(cfg.RateLimiter.Handle)
	}
	app.Use(cfg.Gate.Handle)
	app.Use(cfg.Policy.Handle)

	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/api/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/refresh", cfg.Auth.Refresh)

	api := app.Group("/api")
	for _, entity := range catalogEntities {
		api.Get("/"+string(entity), cfg.Catalog.List(entity))
		api.Get("/"+string(entity)+"/:id", cfg.Catalog.Get(entity))
	}

	actuator := app.Group("/actuator")
	actuator.Get("/health", cfg.Health.Ready)
	if cfg.Ops != nil {
		actuator.Get("/metrics", cfg.Ops.Metrics)
		actuator.Get("/ratelimit", cfg.Ops.RateLimit)
	}
}
