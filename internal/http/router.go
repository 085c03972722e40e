// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// compression, CORS, security headers, post-response tasks, and rate limiting.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/site-backend/docs"
	"github.com/tbourn/site-backend/internal/config"
	"github.com/tbourn/site-backend/internal/domain"
	"github.com/tbourn/site-backend/internal/http/handlers"
	"github.com/tbourn/site-backend/internal/http/middleware"
	"github.com/tbourn/site-backend/internal/repo"
	"github.com/tbourn/site-backend/internal/services"
)

const (
	maxBodyBytes    = 1 << 20
	catalogCacheTTL = 5 * time.Minute
	readyTimeout    = 2 * time.Second
)

// statusRepoShim adapts the repository free functions to the
// services.StatusRepo interface.
type statusRepoShim struct{}

// CreateStatusCheck proxies repo.CreateStatusCheck.
func (statusRepoShim) CreateStatusCheck(ctx context.Context, db *gorm.DB, clientName string) (*domain.StatusCheck, error) {
	return repo.CreateStatusCheck(ctx, db, clientName)
}

// ListStatusChecks proxies repo.ListStatusChecks.
func (statusRepoShim) ListStatusChecks(ctx context.Context, db *gorm.DB) ([]domain.StatusCheck, error) {
	return repo.ListStatusChecks(ctx, db)
}

// Deps are the process-wide collaborators the routes are built from. All of
// them are created at startup and released by the caller at shutdown.
type Deps struct {
	DB      *gorm.DB
	Catalog handlers.Catalog
	Sender  services.Notifier
	Tasks   middleware.TaskSubmitter
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the public API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Background: post-response tasks start once everything below has finished
//  6. Body size limiter
//  7. Metrics
//  8. Compression
//  9. CORS and Security headers
func RegisterRoutes(r *gin.Engine, cfg config.Config, deps Deps) {
	r.HandleMethodNotAllowed = true
	// Forwarded headers only count when they come from a configured proxy.
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.Error().Err(err).Msg("invalid trusted proxies; forwarded headers ignored")
		_ = r.SetTrustedProxies(nil)
	}

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		SkipPaths: []string{"/health", "/ready", "/metrics"},
	}))
	r.Use(middleware.Recovery())
	r.Use(middleware.Background(deps.Tasks))
	r.Use(limitBody(maxBodyBytes))

	r.Use(middleware.Metrics("/metrics"))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	allowMethods := []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Accept-Language", "X-Request-ID"}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     allowMethods,
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "Content-Language"},
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
			AllowMethods:     allowMethods,
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "Content-Language"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	statusSvc := services.NewStatusService(deps.DB, statusRepoShim{})
	contactSvc := services.NewContactService(deps.Sender)
	h := handlers.New(statusSvc, deps.Catalog, contactSvc)

	// Probes
	r.GET("/health", h.Health)
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
		defer cancel()
		if err := repo.Ping(ctx, deps.DB); err != nil {
			_ = c.Error(err)
			handlers.Fail(c, http.StatusServiceUnavailable, handlers.ErrCodeStorageUnavailable, "storage unavailable")
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	contactLimiter := middleware.NewRateLimiter(cfg.ContactRPS, cfg.ContactBurst, middleware.KeyByIP())
	contactLimiter.Reject = func(c *gin.Context) {
		handlers.Fail(c, http.StatusTooManyRequests, handlers.ErrCodeRateLimited, "too many requests")
	}

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.GET("/health", h.Health)

		// Status checks
		api.POST("/statuscheck", middleware.NoStore(), h.CreateStatusCheck)
		api.GET("/statuscheck", middleware.NoStore(), h.ListStatusChecks)

		// Catalog
		api.GET("/services", middleware.PublicCache(catalogCacheTTL), h.ListServices)
		api.GET("/services/:id", middleware.PublicCache(catalogCacheTTL), h.GetService)

		// Contact form
		api.POST("/contact", middleware.NoStore(), contactLimiter.Handler(), h.SubmitContact)
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
