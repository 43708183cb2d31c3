// Package httpapi wires the HTTP transport (Gin) to the bot: the Telegram
// webhook intake, the operator API over the quota ledger and result cache,
// and the health, metrics and docs endpoints.
//
// Middleware order (global):
//  1. OpenTelemetry
//  2. RequestID
//  3. RedactingLogger
//  4. Recovery
//  5. Body size limit
//  6. Metrics
//  7. Security headers
//
// The admin group adds gzip, CORS, API key auth and rate limiting; the
// webhook route adds the secret-token check.
package httpapi

import (
	"context"
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

	"github.com/tbourn/go-vin-sticker-bot/internal/cache"
	"github.com/tbourn/go-vin-sticker-bot/internal/config"
	"github.com/tbourn/go-vin-sticker-bot/internal/domain"
	"github.com/tbourn/go-vin-sticker-bot/internal/http/handlers"
	"github.com/tbourn/go-vin-sticker-bot/internal/http/middleware"
	"github.com/tbourn/go-vin-sticker-bot/internal/quota"
	"github.com/tbourn/go-vin-sticker-bot/internal/repo"
	"github.com/tbourn/go-vin-sticker-bot/internal/services"
)

// WebhookPath is where Telegram delivers updates in webhook mode.
const WebhookPath = "/telegram/webhook"

// Deps are the components the routes are built on.
type Deps struct {
	// DB holds processed updates and, on the sqlite backend, results.
	DB *gorm.DB
	// ListResults enables GET /results; only the sqlite backend can list.
	ListResults bool
	Quota       *quota.Ledger
	Cache       *cache.ResultCache
	// Queue receives webhook updates; nil disables the webhook route.
	Queue handlers.UpdateQueue
}

// resultRepoShim adapts the repository free functions to services.ResultRepo.
type resultRepoShim struct{}

func (resultRepoShim) CountResults(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountResults(ctx, db)
}

func (resultRepoShim) ListResultsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.ResultRecord, error) {
	return repo.ListResultsPage(ctx, db, offset, limit)
}

// updateLogShim adapts the processed update repository to handlers.UpdateLog.
type updateLogShim struct {
	db  *gorm.DB
	ttl time.Duration
}

func (s updateLogShim) Mark(ctx context.Context, updateID int64, kind string) error {
	return repo.MarkUpdate(ctx, s.db, updateID, kind, s.ttl)
}

func (s updateLogShim) Unmark(ctx context.Context, updateID int64) error {
	return repo.UnmarkUpdate(ctx, s.db, updateID)
}

// RegisterRoutes attaches all middleware and endpoints to r.
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))
	r.Use(middleware.Recovery())
	// Telegram updates are far below 1 MiB.
	r.Use(limitBody(1 << 20))
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}))
	// Global so preflights are answered before route matching.
	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Webhook intake
	if deps.Queue != nil {
		var log handlers.UpdateLog
		if deps.DB != nil {
			log = updateLogShim{db: deps.DB, ttl: cfg.Bot.ProcessedUpdateTTL}
		}
		wh := handlers.NewWebhook(log, deps.Queue)
		r.POST(WebhookPath, middleware.WebhookSecret(cfg.Bot.WebhookSecret), wh.Receive)
	}

	// Admin API
	admin := &services.AdminService{DB: deps.DB, Cache: deps.Cache, Quota: deps.Quota}
	if deps.ListResults && deps.DB != nil {
		admin.Repo = resultRepoShim{}
	}
	h := handlers.New(admin)

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByPrincipalOrIP())
	api := groupWithPrefix(r, cfg.APIBasePath)
	api.Use(
		gzip.Gzip(gzip.DefaultCompression),
		middleware.SecurityHeaders(middleware.SecurityOptions{NoStore: true}),
		middleware.APIKey(cfg.AdminAPIKey),
		rl.Handler(),
	)
	{
		api.GET("/quota/:user_id", h.GetQuota)
		api.GET("/results", h.ListResults)
		api.GET("/results/:vin", h.GetResult)
		api.DELETE("/results/:vin", h.DeleteResult)
	}
}

// corsMiddleware allows every origin when none are configured. The API is
// key-authenticated, so credentials are never allowed.
func corsMiddleware(origins []string) gin.HandlerFunc {
	cc := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Accept", "If-None-Match", middleware.HeaderAPIKey},
		ExposeHeaders:    []string{"X-Request-ID", "ETag", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = origins
	}
	return cors.New(cc)
}

// limitBody caps request bodies at maxBytes; larger bodies fail to read.
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
