// Package config provides application configuration loaded from environment
// variables with defaults and validation. It covers the HTTP server, the
// Telegram bot, the daily quota, cache backends and observability.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "vin-sticker-bot")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Update modes and cache backends.
const (
	UpdateModePolling = "polling"
	UpdateModeWebhook = "webhook"

	CacheSQLite = "sqlite"
	CacheRedis  = "redis"
)

// BotConfig defines the Telegram side of the bot.
type BotConfig struct {
	Token                string        // BOT_TOKEN (required)
	APIEndpoint          string        // BOT_API_ENDPOINT, tgbotapi format with %s token and %s method
	UpdateMode           string        // polling|webhook
	WebhookURL           string        // public URL Telegram posts updates to
	WebhookSecret        string        // X-Telegram-Bot-Api-Secret-Token value
	UpdateTimeout        time.Duration // per-update handling deadline
	MaxConcurrentUpdates int           // updates handled in parallel
	AllowedChatIDs       []int64       // empty means every group
	ProcessedUpdateTTL   time.Duration // how long webhook update ids are remembered
}

// QuotaConfig defines the per-user daily limit.
type QuotaConfig struct {
	MaxRequestsPerDay int
	ChargeUnavailable bool
}

// RedisConfig defines the Redis connection used by the redis cache backend.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// CacheConfig selects and configures the result cache backend.
type CacheConfig struct {
	Backend string // sqlite|redis
	Redis   RedisConfig
}

// StickerConfig defines the window sticker source.
type StickerConfig struct {
	URLTemplate      string
	FetchTimeout     time.Duration
	MaxDocumentBytes int64
}

// PhotosConfig defines the optional photo provider.
type PhotosConfig struct {
	URLTemplate string // empty disables photos
	MaxPhotos   int
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for admin API routes

	// App
	DBPath  string // SQLite path
	Bot     BotConfig
	Quota   QuotaConfig
	Cache   CacheConfig
	Sticker StickerConfig
	Photos  PhotosConfig

	// Admin API
	AdminAPIKey string  // empty disables the admin API
	RateRPS     float64 // tokens per second (>= 0)
	RateBurst   int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// App
		DBPath: getenv("DB_PATH", "vinbot.db"),
		Bot: BotConfig{
			Token:                strings.TrimSpace(getenv("BOT_TOKEN", "")),
			APIEndpoint:          getenv("BOT_API_ENDPOINT", "https://api.telegram.org/bot%s/%s"),
			UpdateMode:           strings.ToLower(getenv("UPDATE_MODE", "polling")),
			WebhookURL:           getenv("WEBHOOK_URL", ""),
			WebhookSecret:        getenv("WEBHOOK_SECRET", ""),
			UpdateTimeout:        getdur("UPDATE_TIMEOUT", 2*time.Minute),
			MaxConcurrentUpdates: getint("MAX_CONCURRENT_UPDATES", 16),
			ProcessedUpdateTTL:   getdur("PROCESSED_UPDATE_TTL", 24*time.Hour),
		},
		Quota: QuotaConfig{
			MaxRequestsPerDay: getint("MAX_REQUESTS_PER_DAY", 10),
			ChargeUnavailable: getbool("CHARGE_UNAVAILABLE", false),
		},
		Cache: CacheConfig{
			Backend: strings.ToLower(getenv("CACHE_BACKEND", "sqlite")),
			Redis: RedisConfig{
				Addr:      getenv("REDIS_ADDR", "localhost:6379"),
				Password:  getenv("REDIS_PASSWORD", ""),
				DB:        getint("REDIS_DB", 0),
				KeyPrefix: getenv("REDIS_KEY_PREFIX", "vinbot:result:"),
			},
		},
		Sticker: StickerConfig{
			URLTemplate:      getenv("STICKER_URL_TEMPLATE", "https://www.alfaromeousa.com/hostd/windowsticker/getWindowStickerPdf.do?vin=%s"),
			FetchTimeout:     getdur("FETCH_TIMEOUT", 30*time.Second),
			MaxDocumentBytes: int64(getint("MAX_DOCUMENT_BYTES", 20<<20)),
		},
		Photos: PhotosConfig{
			URLTemplate: getenv("PHOTOS_URL_TEMPLATE", ""),
			MaxPhotos:   getint("MAX_PHOTOS", 10),
		},

		// Admin API
		AdminAPIKey: getenv("ADMIN_API_KEY", ""),
		RateRPS:     getfloat("RATE_RPS", 5.0),
		RateBurst:   getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "vin-sticker-bot"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	ids, err := parseIDs(getenv("ALLOWED_CHAT_IDS", ""))
	if err != nil {
		return cfg, err
	}
	cfg.Bot.AllowedChatIDs = ids

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if cfg.Bot.Token == "" {
		return cfg, errors.New("BOT_TOKEN must be set")
	}
	switch cfg.Bot.UpdateMode {
	case UpdateModePolling:
	case UpdateModeWebhook:
		if strings.TrimSpace(cfg.Bot.WebhookURL) == "" {
			return cfg, errors.New("WEBHOOK_URL must be set when UPDATE_MODE=webhook")
		}
	default:
		return cfg, errors.New("UPDATE_MODE must be one of: polling, webhook")
	}
	if cfg.Bot.UpdateTimeout <= 0 || cfg.Bot.ProcessedUpdateTTL <= 0 {
		return cfg, errors.New("UPDATE_TIMEOUT and PROCESSED_UPDATE_TTL must be > 0")
	}
	if cfg.Bot.MaxConcurrentUpdates < 1 {
		return cfg, errors.New("MAX_CONCURRENT_UPDATES must be >= 1")
	}
	if cfg.Quota.MaxRequestsPerDay < 1 {
		return cfg, errors.New("MAX_REQUESTS_PER_DAY must be >= 1")
	}
	switch cfg.Cache.Backend {
	case CacheSQLite:
		if strings.TrimSpace(cfg.DBPath) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case CacheRedis:
		if strings.TrimSpace(cfg.Cache.Redis.Addr) == "" {
			return cfg, errors.New("REDIS_ADDR must be set when CACHE_BACKEND=redis")
		}
	default:
		return cfg, errors.New("CACHE_BACKEND must be one of: sqlite, redis")
	}
	if !strings.Contains(cfg.Sticker.URLTemplate, "%s") {
		return cfg, errors.New("STICKER_URL_TEMPLATE must contain %s")
	}
	if cfg.Photos.URLTemplate != "" && !strings.Contains(cfg.Photos.URLTemplate, "%s") {
		return cfg, errors.New("PHOTOS_URL_TEMPLATE must contain %s")
	}
	if cfg.Sticker.FetchTimeout <= 0 || cfg.Sticker.MaxDocumentBytes <= 0 {
		return cfg, errors.New("FETCH_TIMEOUT and MAX_DOCUMENT_BYTES must be > 0")
	}
	if cfg.Photos.MaxPhotos < 1 || cfg.Photos.MaxPhotos > 10 {
		return cfg, errors.New("MAX_PHOTOS must be between 1 and 10")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// parseIDs parses a comma separated list of chat ids.
func parseIDs(s string) ([]int64, error) {
	parts := splitCSV(s)
	if len(parts) == 0 {
		return nil, nil
	}
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ALLOWED_CHAT_IDS: invalid chat id %q", p)
		}
		out = append(out, id)
	}
	return out, nil
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
