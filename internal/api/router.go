package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Conceptual-Machines/melody-api/internal/api/handlers"
	apimiddleware "github.com/Conceptual-Machines/melody-api/internal/api/middleware"
	"github.com/Conceptual-Machines/melody-api/internal/config"
	"github.com/Conceptual-Machines/melody-api/internal/generator"
	"github.com/Conceptual-Machines/melody-api/internal/middleware"
	"github.com/Conceptual-Machines/melody-api/internal/orchestrator"
	"github.com/Conceptual-Machines/melody-api/internal/store"
)

// Dependencies are the services the router wires into handlers
type Dependencies struct {
	Config       *config.Config
	DB           *gorm.DB // optional
	Registry     *generator.Registry
	Orchestrator *orchestrator.Orchestrator
	Store        *store.Store // optional
	Version      string
	Recorders    []apimiddleware.APIRecorder
}

func SetupRouter(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	router := gin.New()

	// Recovery middleware (must be first)
	router.Use(apimiddleware.RecoverWithSentry())

	// Sentry middleware for error tracking
	router.Use(apimiddleware.SentryMiddleware())

	// Request tracking and structured logging
	router.Use(apimiddleware.RequestTracking(deps.Recorders...))

	// CORS middleware
	router.Use(apimiddleware.CORS())

	// Health check
	healthHandler := handlers.NewHealthHandler(deps.DB, deps.Registry)
	router.GET("/health", healthHandler.HealthCheck)

	// Metrics endpoint
	metricsHandler := handlers.NewMetricsHandler(deps.Version, cfg, deps.Registry)
	router.GET("/api/metrics", metricsHandler.GetMetrics)

	v1 := router.Group("/api/v1")
	v1.Use(authMiddleware(cfg))
	{
		generatorsHandler := handlers.NewGeneratorsHandler(cfg, deps.Registry)
		v1.GET("/generators", generatorsHandler.List)

		generationHandler := handlers.NewGenerationHandler(cfg, deps.Registry, deps.Orchestrator, deps.Store)
		v1.POST("/generations", generationHandler.Generate)
		v1.GET("/generations", generationHandler.List)
		v1.GET("/generations/:id", generationHandler.Get)
		v1.DELETE("/generations/:id", middleware.AdminRequired(), generationHandler.Delete)

		artifactsHandler := handlers.NewArtifactsHandler(cfg.OutputDir)
		v1.GET("/artifacts/:name", artifactsHandler.Get)

		windowHandler := handlers.NewWindowHandler(cfg)
		v1.POST("/window", windowHandler.Compute)
	}

	return router
}

// authMiddleware selects the auth layer for AUTH_MODE
func authMiddleware(cfg *config.Config) gin.HandlerFunc {
	switch {
	case cfg.IsGatewayMode():
		return apimiddleware.GatewayAuth()
	case cfg.IsJWTMode():
		return middleware.JWTAuth(cfg)
	default:
		return apimiddleware.NoAuth()
	}
}
