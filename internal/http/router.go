// Package httpapi wires the HTTP transport (Gin) to the location service,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, compression,
// metrics, CORS, security headers, API key checks and rate limiting.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/guyt101z/ichnaea/docs"
	"github.com/guyt101z/ichnaea/internal/config"
	"github.com/guyt101z/ichnaea/internal/domain"
	"github.com/guyt101z/ichnaea/internal/http/handlers"
	"github.com/guyt101z/ichnaea/internal/http/middleware"
	"github.com/guyt101z/ichnaea/internal/repo"
	"github.com/guyt101z/ichnaea/internal/services"
)

// stationRepoShim adapts the repository free functions to
// services.StationRepo.
type stationRepoShim struct{}

// FindCells proxies repo.FindCells.
func (stationRepoShim) FindCells(ctx context.Context, db *gorm.DB, keys []domain.Key) ([]domain.CellStation, error) {
	return repo.FindCells(ctx, db, keys)
}

// FindWifis proxies repo.FindWifis.
func (stationRepoShim) FindWifis(ctx context.Context, db *gorm.DB, keys []domain.Key) ([]domain.WifiStation, error) {
	return repo.FindWifis(ctx, db, keys)
}

// apiKeyStoreShim binds the API key repository to db for
// middleware.APIKeyGate.
type apiKeyStoreShim struct {
	db *gorm.DB
}

// GetAPIKey proxies repo.GetAPIKey. An unknown key is (nil, nil).
func (s apiKeyStoreShim) GetAPIKey(ctx context.Context, key string) (*domain.APIKey, error) {
	k, err := repo.GetAPIKey(ctx, s.db, key)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	return k, err
}

// IncrementUsage counts one request for key in the repo.UsageDay bucket of at.
func (s apiKeyStoreShim) IncrementUsage(ctx context.Context, key string, at time.Time) (int64, error) {
	return repo.IncrementUsage(ctx, s.db, key, repo.UsageDay(at))
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the location API under {APIBasePath}/v1.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with API key scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. gzip response compression
//  7. Metrics
//  8. CORS and Security headers
//
// The API group adds the per-key rate limiter, then the API key gate, so a
// throttled request never reaches the daily usage counter.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Compress responses for clients that accept gzip
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) CORS posture (allow all if none configured)
	corsMethods := []string{"GET", "POST", "OPTIONS"}
	corsHeaders := []string{"Origin", "Content-Type", "Accept", "Content-Encoding"}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     corsMethods,
			AllowHeaders:     corsHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     corsMethods,
			AllowHeaders:     corsHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Positions are per-request answers; never cache them.
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      true,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/cache
	locSvc := services.NewLocationService(db, stationRepoShim{}, services.NewStationCache(cfg.CacheSize, cfg.CacheTTL))
	if cfg.MinWifiMatches > 0 {
		locSvc.MinWifiMatches = cfg.MinWifiMatches
	}
	h := handlers.New(locSvc)

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByAPIKeyOrIP())

	api := groupWithPrefix(r, cfg.APIBasePath).Group("/v1")
	api.Use(rl.Handler(), middleware.APIKeyGate(apiKeyStoreShim{db: db}, nil))
	{
		api.POST("/geolocate", h.Geolocate)
		api.POST("/search", h.Search)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
