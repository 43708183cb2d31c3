// Command server runs the VIN window sticker bot: Telegram intake (long
// polling or webhook), the admin API, and housekeeping.
//
// @title          VIN Sticker Bot Admin API
// @version        1.0
// @description    Operator view over the per-user quota and the VIN result cache.
// @BasePath       /api/v1
//
// @securityDefinitions.apikey ApiKeyAuth
// @in                         header
// @name                       X-API-Key
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	_ "github.com/tbourn/go-vin-sticker-bot/docs"
	"github.com/tbourn/go-vin-sticker-bot/internal/cache"
	"github.com/tbourn/go-vin-sticker-bot/internal/config"
	httpapi "github.com/tbourn/go-vin-sticker-bot/internal/http"
	"github.com/tbourn/go-vin-sticker-bot/internal/observability"
	"github.com/tbourn/go-vin-sticker-bot/internal/photos"
	"github.com/tbourn/go-vin-sticker-bot/internal/quota"
	"github.com/tbourn/go-vin-sticker-bot/internal/repo"
	"github.com/tbourn/go-vin-sticker-bot/internal/services"
	"github.com/tbourn/go-vin-sticker-bot/internal/sticker"
	"github.com/tbourn/go-vin-sticker-bot/internal/sysutil"
	"github.com/tbourn/go-vin-sticker-bot/internal/telegram"
)

var version = "dev"

const (
	// pollTimeout is the getUpdates long-poll duration in seconds.
	pollTimeout     = 60
	reapInterval    = 30 * time.Minute
	shutdownTimeout = 10 * time.Second
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Local dev: load .env if present; real env vars win.
	if os.Getenv("ENV") != "production" {
		_ = godotenv.Load()
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	sysutil.SetupLogger(cfg.LogLevel, cfg.LogPretty, os.Stderr)
	gin.SetMode(sysutil.FirstNonEmpty(cfg.GinMode, gin.ReleaseMode))

	if err := run(ctx, cancel, cfg); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cancel context.CancelFunc, cfg config.Config) error {
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer scancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	if err := observability.InstrumentDB(db); err != nil {
		return fmt.Errorf("db tracing: %w", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	backend, closeBackend, err := newBackend(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer closeBackend()
	results := cache.New(backend)
	ledger := quota.NewLedger(cfg.Quota.MaxRequestsPerDay)

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Bot.Token, cfg.Bot.APIEndpoint, &http.Client{
		Timeout: (pollTimeout + 30) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	log.Info().Str("bot", bot.Self.UserName).Msg("telegram connected")
	out := telegram.NewClient(bot)

	lookup := services.NewLookupService(ledger, results,
		sticker.New(cfg.Sticker.URLTemplate, cfg.Sticker.FetchTimeout, cfg.Sticker.MaxDocumentBytes), out)
	lookup.ChargeUnavailable = cfg.Quota.ChargeUnavailable
	lookup.PhotosButton = cfg.Photos.URLTemplate != ""
	if len(cfg.Bot.AllowedChatIDs) > 0 {
		lookup.AllowedChats = make(map[int64]struct{}, len(cfg.Bot.AllowedChatIDs))
		for _, id := range cfg.Bot.AllowedChatIDs {
			lookup.AllowedChats[id] = struct{}{}
		}
	}
	ps := &services.PhotoService{Out: out}
	if cfg.Photos.URLTemplate != "" {
		ps.Source = photos.New(cfg.Photos.URLTemplate, cfg.Sticker.FetchTimeout, cfg.Photos.MaxPhotos)
	}
	bs := &services.BotService{Lookup: lookup, Photos: ps, Out: out, MaxPerDay: ledger.Max()}

	// In-flight updates outlive the signal; the per-update timeout bounds them.
	runner := telegram.NewRunner(context.WithoutCancel(ctx), bs, cfg.Bot.MaxConcurrentUpdates, cfg.Bot.UpdateTimeout)

	deps := httpapi.Deps{
		DB:          db,
		ListResults: cfg.Cache.Backend == config.CacheSQLite,
		Quota:       ledger,
		Cache:       results,
	}
	webhook := cfg.Bot.UpdateMode == config.UpdateModeWebhook
	if webhook {
		deps.Queue = runner
	}

	r := gin.New()
	httpapi.RegisterRoutes(r, deps, cfg)

	go runExpiryReaper(ctx, db, reapInterval)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server error")
			cancel()
		}
	}()

	if webhook {
		if err := setWebhook(bot, cfg.Bot); err != nil {
			return fmt.Errorf("set webhook: %w", err)
		}
		log.Info().Str("url", cfg.Bot.WebhookURL).Msg("webhook registered")
		<-ctx.Done()
	} else {
		if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			log.Warn().Err(err).Msg("delete webhook")
		}
		u := tgbotapi.NewUpdate(0)
		u.Timeout = pollTimeout
		u.AllowedUpdates = telegram.AllowedUpdates
		log.Info().Msg("long polling started")
		_ = runner.Poll(ctx, bot.GetUpdatesChan(u))
		bot.StopReceivingUpdates()
	}

	log.Info().Msg("shutting down")
	sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer scancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	runner.Wait()
	return nil
}

// newBackend returns the configured result cache backend and its closer.
func newBackend(ctx context.Context, cfg config.Config, db *gorm.DB) (cache.Backend, func(), error) {
	if cfg.Cache.Backend != config.CacheRedis {
		return cache.NewGormBackend(db), func() {}, nil
	}
	rc := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
	})
	pctx, pcancel := context.WithTimeout(ctx, 5*time.Second)
	defer pcancel()
	if err := rc.Ping(pctx).Err(); err != nil {
		_ = rc.Close()
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	closer := func() {
		if err := rc.Close(); err != nil {
			log.Warn().Err(err).Msg("redis close")
		}
	}
	return cache.NewRedisBackend(rc, cache.WithKeyPrefix(cfg.Cache.Redis.KeyPrefix)), closer, nil
}

// setWebhook registers the webhook with a secret token. The library's
// WebhookConfig predates secret tokens, hence the raw request.
func setWebhook(bot *tgbotapi.BotAPI, cfg config.BotConfig) error {
	params := tgbotapi.Params{}
	params["url"] = cfg.WebhookURL
	params.AddNonEmpty("secret_token", cfg.WebhookSecret)
	params.AddNonZero("max_connections", min(cfg.MaxConcurrentUpdates, 100))
	if err := params.AddInterface("allowed_updates", telegram.AllowedUpdates); err != nil {
		return err
	}
	_, err := bot.MakeRequest("setWebhook", params)
	return err
}
