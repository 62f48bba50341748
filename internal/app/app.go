// Package app builds the Fiber application: global middleware, dependency
// wiring and route registration.
package app

import (
	"bluecarbon-backend/internal/auth"
	"bluecarbon-backend/internal/calculator"
	"bluecarbon-backend/internal/config"
	"bluecarbon-backend/internal/health"
	"bluecarbon-backend/internal/hierarchy"
	"bluecarbon-backend/internal/middleware"
	"bluecarbon-backend/internal/monitor"
	"bluecarbon-backend/internal/workflow"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// CreateApp wires middleware and routes. The caller owns the database and
// Redis connections; rdb may be nil when no Redis is configured.
func CreateApp(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          middleware.ErrorHandler,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())
	app.Use(middleware.Metrics())

	tokens := &auth.TokenIssuer{Secret: []byte(cfg.JWTSecret), TTL: cfg.SessionTTL}

	// --- Public routes ---
	healthHandlers := &health.Handlers{DB: db, Redis: rdb}
	app.Get("/health", healthHandlers.JSON)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	authService := &auth.Service{DB: db, Tokens: tokens}
	authHandlers := &auth.Handlers{
		Service: authService,
		Shared:  &auth.SharedSecretAuthenticator{DB: db, KeyHash: cfg.OperatorKeyHash, Tokens: tokens},
	}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/challenge", authHandlers.Challenge)
	authGroup.Post("/verify", authHandlers.Verify)
	authGroup.Post("/operator", authHandlers.Operator)

	// --- Protected routes ---
	requireAuth := middleware.RequireAuth(tokens)

	workflowHandlers := &workflow.Handlers{Service: &workflow.Service{DB: db, Auth: authService}}
	projectGroup := app.Group("/api/v1/projects", requireAuth)
	projectGroup.Post("/", workflowHandlers.Submit)
	projectGroup.Get("/", workflowHandlers.List)
	projectGroup.Get("/:code", workflowHandlers.Get)
	projectGroup.Post("/:code/verify", workflowHandlers.Review)
	projectGroup.Post("/:code/approve", workflowHandlers.Approve)
	projectGroup.Post("/:code/reject", workflowHandlers.Reject)
	projectGroup.Get("/:code/history", workflowHandlers.History)

	calculatorHandlers := &calculator.Handlers{}
	app.Post("/api/v1/calculator/estimate", requireAuth, calculatorHandlers.Estimate)

	monitorHandlers := &monitor.Handlers{
		Service: &monitor.Service{DB: db},
		Rollups: &monitor.Rollups{DB: db, Redis: rdb, TTL: cfg.RollupCacheTTL},
	}
	ndviGroup := app.Group("/api/v1/ndvi", requireAuth)
	ndviGroup.Post("/scans", monitorHandlers.Ingest)
	ndviGroup.Get("/projects/:code/scans", monitorHandlers.Scans)
	ndviGroup.Get("/alerts", monitorHandlers.Alerts)
	ndviGroup.Post("/alerts/:id/resolve", monitorHandlers.Resolve)
	ndviGroup.Get("/rollups/national", monitorHandlers.National)
	ndviGroup.Get("/rollups/regional", monitorHandlers.Regional)

	hierarchyHandlers := &hierarchy.Handlers{Service: &hierarchy.Service{DB: db}}
	hierarchyGroup := app.Group("/api/v1/hierarchy", requireAuth)
	hierarchyGroup.Post("/links", hierarchyHandlers.Create)
	hierarchyGroup.Get("/links", hierarchyHandlers.List)
	hierarchyGroup.Patch("/links/:id", hierarchyHandlers.Update)

	return app
}
