package handler

import (
	"rentalsearch/internal/logger"
	"rentalsearch/internal/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// CORSConfig lists what cross-origin callers may do.
type CORSConfig struct {
	AllowOrigins []string
	AllowMethods []string
	AllowHeaders []string
}

// RouterDeps are the handlers mounted by NewRouter.
type RouterDeps struct {
	Search    *SearchHandler
	Embedding *EmbeddingHandler
	Health    *HealthHandler
	CORS      CORSConfig
	Logger    *zap.Logger
}

// NewRouter builds the gin engine with middleware and all routes.
func NewRouter(d RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if d.Logger != nil {
		router.Use(logger.GinMiddleware(d.Logger))
	}
	router.Use(metrics.Middleware())
	router.Use(cors.New(corsConfig(d.CORS)))

	router.GET("/health", d.Health.Health)
	router.GET("/version", d.Health.Version)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/search", d.Search.Search)
		apiV1.GET("/listings/:id", d.Search.GetListing)

		apiV1.POST("/embeddings/batch", d.Embedding.BatchUpdate)
		apiV1.POST("/embeddings/backfill", d.Embedding.Backfill)
	}

	return router
}

func corsConfig(c CORSConfig) cors.Config {
	cfg := cors.DefaultConfig()
	if len(c.AllowOrigins) == 0 || (len(c.AllowOrigins) == 1 && c.AllowOrigins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = c.AllowOrigins
	}
	if len(c.AllowMethods) > 0 {
		cfg.AllowMethods = c.AllowMethods
	}
	if len(c.AllowHeaders) > 0 {
		cfg.AllowHeaders = c.AllowHeaders
	}
	return cfg
}
