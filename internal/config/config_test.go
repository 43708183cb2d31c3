package config

import (
	"os"
	"reflect"
	"strings"
	"testing"
	"time"
)

// withToken sets the only variable without a usable default.
func withToken(t *testing.T) {
	t.Helper()
	t.Setenv("BOT_TOKEN", "123:abc")
}

// --- MustLoad ---

func TestMustLoad_PanicsOnInvalidConfig(t *testing.T) {
	withToken(t)
	t.Setenv("LOG_LEVEL", "verbose") // invalid -> Load() error
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("MustLoad should panic on invalid config")
		}
	}()
	_ = MustLoad()
}

func TestMustLoad_PanicsWithoutToken(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("MustLoad should panic without BOT_TOKEN")
		}
	}()
	_ = MustLoad()
}

// --- Load success + normalization + parsing ---

func TestLoad_Success_DefaultsAndOverrides(t *testing.T) {
	// Server timeouts / sizes (valid)
	t.Setenv("PORT", "8088")
	t.Setenv("READ_TIMEOUT", "2s")
	t.Setenv("READ_HEADER_TIMEOUT", "1s")
	t.Setenv("WRITE_TIMEOUT", "3s")
	t.Setenv("IDLE_TIMEOUT", "4s")
	t.Setenv("MAX_HEADER_BYTES", "8192")
	t.Setenv("GIN_MODE", "weird") // will normalize to "release"

	// Logging / Docs
	t.Setenv("LOG_LEVEL", "warning") // will normalize to "warn"
	t.Setenv("LOG_PRETTY", "yes")
	t.Setenv("SWAGGER_ENABLED", "on")
	t.Setenv("API_BASE_PATH", "api/v1/") // no leading slash + trailing slash -> "/api/v1"

	// Bot
	t.Setenv("BOT_TOKEN", "  123:abc  ")
	t.Setenv("UPDATE_MODE", "Webhook")
	t.Setenv("WEBHOOK_URL", "https://bot.example.com/telegram/webhook")
	t.Setenv("WEBHOOK_SECRET", "s3cret")
	t.Setenv("UPDATE_TIMEOUT", "45s")
	t.Setenv("MAX_CONCURRENT_UPDATES", "4")
	t.Setenv("ALLOWED_CHAT_IDS", "-1001, -1002 ,")
	t.Setenv("PROCESSED_UPDATE_TTL", "6h")

	// Quota
	t.Setenv("MAX_REQUESTS_PER_DAY", "3")
	t.Setenv("CHARGE_UNAVAILABLE", "true")

	// Cache
	t.Setenv("CACHE_BACKEND", "REDIS")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("DB_PATH", "db.sqlite")

	// Sticker / photos
	t.Setenv("STICKER_URL_TEMPLATE", "http://stickers.local/%s.pdf")
	t.Setenv("FETCH_TIMEOUT", "5s")
	t.Setenv("MAX_DOCUMENT_BYTES", "1024")
	t.Setenv("PHOTOS_URL_TEMPLATE", "http://photos.local/%s.json")
	t.Setenv("MAX_PHOTOS", "5")

	// Admin API (use invalids for parse to fall back to defaults)
	t.Setenv("ADMIN_API_KEY", "k")
	t.Setenv("RATE_RPS", "x")      // -> default 5.0
	t.Setenv("RATE_BURST", "nope") // -> default 10

	// Web protection
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.com , , http://b ")
	t.Setenv("ENABLE_HSTS", "TRUE")
	t.Setenv("HSTS_MAX_AGE", "24h")

	// OTEL
	t.Setenv("OTEL_ENABLED", "1")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "0")
	t.Setenv("OTEL_SERVICE_NAME", "svc")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.75")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// Server
	if cfg.Port != "8088" ||
		cfg.ReadTimeout != 2*time.Second ||
		cfg.ReadHeaderTimeout != 1*time.Second ||
		cfg.WriteTimeout != 3*time.Second ||
		cfg.IdleTimeout != 4*time.Second ||
		cfg.MaxHeaderBytes != 8192 ||
		cfg.GinMode != "release" {
		t.Fatalf("server fields unexpected: %+v", cfg)
	}

	// Logging / Docs
	if cfg.LogLevel != "warn" || !cfg.LogPretty || !cfg.SwaggerEnabled || cfg.APIBasePath != "/api/v1" {
		t.Fatalf("logging/docs unexpected: %+v", cfg)
	}

	// Bot
	b := cfg.Bot
	if b.Token != "123:abc" || b.UpdateMode != "webhook" || b.WebhookSecret != "s3cret" ||
		b.UpdateTimeout != 45*time.Second || b.MaxConcurrentUpdates != 4 || b.ProcessedUpdateTTL != 6*time.Hour {
		t.Fatalf("bot unexpected: %+v", b)
	}
	if !reflect.DeepEqual(b.AllowedChatIDs, []int64{-1001, -1002}) {
		t.Fatalf("allowed chats unexpected: %#v", b.AllowedChatIDs)
	}

	// Quota / cache
	if cfg.Quota.MaxRequestsPerDay != 3 || !cfg.Quota.ChargeUnavailable {
		t.Fatalf("quota unexpected: %+v", cfg.Quota)
	}
	if cfg.Cache.Backend != "redis" || cfg.Cache.Redis.Addr != "redis:6379" || cfg.Cache.Redis.DB != 2 ||
		cfg.Cache.Redis.KeyPrefix != "vinbot:result:" || cfg.DBPath != "db.sqlite" {
		t.Fatalf("cache unexpected: %+v", cfg.Cache)
	}

	// Sticker / photos
	if cfg.Sticker.URLTemplate != "http://stickers.local/%s.pdf" || cfg.Sticker.FetchTimeout != 5*time.Second ||
		cfg.Sticker.MaxDocumentBytes != 1024 {
		t.Fatalf("sticker unexpected: %+v", cfg.Sticker)
	}
	if cfg.Photos.URLTemplate != "http://photos.local/%s.json" || cfg.Photos.MaxPhotos != 5 {
		t.Fatalf("photos unexpected: %+v", cfg.Photos)
	}

	// Admin API (parse fallback to defaults)
	if cfg.AdminAPIKey != "k" || cfg.RateRPS != 5.0 || cfg.RateBurst != 10 {
		t.Fatalf("admin api unexpected: %+v", cfg)
	}

	// Web protection
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, []string{"https://a.com", "http://b"}) {
		t.Fatalf("cors origins unexpected: %#v", cfg.CORS.AllowedOrigins)
	}
	if !cfg.Security.EnableHSTS || cfg.Security.HSTSMaxAge != 24*time.Hour {
		t.Fatalf("security unexpected: %+v", cfg.Security)
	}

	// OTEL
	if !cfg.OTEL.Enabled || cfg.OTEL.Endpoint != "otel:4317" || cfg.OTEL.Insecure || cfg.OTEL.ServiceName != "svc" || cfg.OTEL.SampleRatio != 0.75 {
		t.Fatalf("otel unexpected: %+v", cfg.OTEL)
	}
}

func TestLoad_Defaults(t *testing.T) {
	withToken(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Bot.UpdateMode != "polling" || cfg.Cache.Backend != "sqlite" {
		t.Fatalf("mode/backend defaults unexpected: %+v", cfg)
	}
	if cfg.Quota.MaxRequestsPerDay != 10 || cfg.Quota.ChargeUnavailable {
		t.Fatalf("quota defaults unexpected: %+v", cfg.Quota)
	}
	if cfg.Photos.URLTemplate != "" || cfg.Photos.MaxPhotos != 10 {
		t.Fatalf("photos defaults unexpected: %+v", cfg.Photos)
	}
	if cfg.Bot.AllowedChatIDs != nil || cfg.AdminAPIKey != "" {
		t.Fatalf("optional fields should be empty: %+v", cfg)
	}
}

// --- Load validations (each case triggers exactly one validation error) ---

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"invalid LOG_LEVEL", map[string]string{"LOG_LEVEL": "verbose"}, "LOG_LEVEL"},
		{"empty PORT via spaces", map[string]string{"PORT": "   "}, "PORT must not be empty"},
		{"non-positive timeouts", map[string]string{"READ_TIMEOUT": "0s"}, "timeouts must be positive"},
		{"max header bytes <= 0", map[string]string{"MAX_HEADER_BYTES": "0"}, "MAX_HEADER_BYTES"},
		{"missing token", map[string]string{"BOT_TOKEN": "  "}, "BOT_TOKEN"},
		{"unknown update mode", map[string]string{"UPDATE_MODE": "push"}, "UPDATE_MODE"},
		{"webhook without url", map[string]string{"UPDATE_MODE": "webhook"}, "WEBHOOK_URL"},
		{"update timeout", map[string]string{"UPDATE_TIMEOUT": "0s"}, "UPDATE_TIMEOUT"},
		{"concurrency", map[string]string{"MAX_CONCURRENT_UPDATES": "0"}, "MAX_CONCURRENT_UPDATES"},
		{"bad chat id", map[string]string{"ALLOWED_CHAT_IDS": "-1001,abc"}, "ALLOWED_CHAT_IDS"},
		{"zero quota", map[string]string{"MAX_REQUESTS_PER_DAY": "0"}, "MAX_REQUESTS_PER_DAY"},
		{"unknown backend", map[string]string{"CACHE_BACKEND": "memcached"}, "CACHE_BACKEND"},
		{"empty DB_PATH", map[string]string{"DB_PATH": "   "}, "DB_PATH must not be empty"},
		{"redis without addr", map[string]string{"CACHE_BACKEND": "redis", "REDIS_ADDR": " "}, "REDIS_ADDR"},
		{"sticker template", map[string]string{"STICKER_URL_TEMPLATE": "http://x/"}, "STICKER_URL_TEMPLATE"},
		{"photos template", map[string]string{"PHOTOS_URL_TEMPLATE": "http://x/"}, "PHOTOS_URL_TEMPLATE"},
		{"fetch timeout", map[string]string{"FETCH_TIMEOUT": "-1s"}, "FETCH_TIMEOUT"},
		{"too many photos", map[string]string{"MAX_PHOTOS": "11"}, "MAX_PHOTOS"},
		{"rate rps negative", map[string]string{"RATE_RPS": "-1"}, "RATE_RPS"},
		{"rate burst < 1", map[string]string{"RATE_BURST": "0"}, "RATE_BURST"},
		{"hsts max age negative", map[string]string{"HSTS_MAX_AGE": "-1s"}, "HSTS_MAX_AGE"},
		{"otel sample ratio out of range", map[string]string{"OTEL_TRACES_SAMPLER_ARG": "1.5"}, "OTEL_TRACES_SAMPLER_ARG"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			withToken(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil || !containsErr(err, tc.want) {
				t.Fatalf("expected %s validation error, got: %v", tc.want, err)
			}
		})
	}
}

// --- helpers ---

func TestHelpers_getenv(t *testing.T) {
	t.Setenv("X_EMPTY", "")
	if getenv("X_EMPTY", "d") != "d" {
		t.Fatalf("getenv should fall back to default on empty var")
	}
	t.Setenv("X_SET", "val")
	if getenv("X_SET", "d") != "val" {
		t.Fatalf("getenv should read set value")
	}
}

func TestHelpers_getfloat_getint_getdur(t *testing.T) {
	t.Setenv("F_VALID", "3.14")
	if getfloat("F_VALID", 0) != 3.14 {
		t.Fatalf("getfloat parse failed")
	}
	t.Setenv("F_BAD", "nope")
	if getfloat("F_BAD", 1.23) != 1.23 {
		t.Fatalf("getfloat default on bad parse failed")
	}

	t.Setenv("I_VALID", "42")
	if getint("I_VALID", 0) != 42 {
		t.Fatalf("getint parse failed")
	}
	t.Setenv("I_BAD", "x")
	if getint("I_BAD", 7) != 7 {
		t.Fatalf("getint default on bad parse failed")
	}

	t.Setenv("D_VALID", "150ms")
	if getdur("D_VALID", time.Second) != 150*time.Millisecond {
		t.Fatalf("getdur parse failed")
	}
	t.Setenv("D_BAD", "zzz")
	if getdur("D_BAD", 2*time.Second) != 2*time.Second {
		t.Fatalf("getdur default on bad parse failed")
	}
}

func TestHelpers_getbool(t *testing.T) {
	trueVals := []string{"1", "true", "TRUE", " yes ", "Y", "on", "On"}
	for i, v := range trueVals {
		k := "B_T_" + config_strconv(i)
		t.Setenv(k, v)
		if !getbool(k, false) {
			t.Fatalf("getbool(%q) = false; want true", v)
		}
	}
	falseVals := []string{"0", "false", "FALSE", " no ", "N", "off", "Off"}
	for i, v := range falseVals {
		k := "B_F_" + config_strconv(i)
		t.Setenv(k, v)
		if getbool(k, true) {
			t.Fatalf("getbool(%q) = true; want false", v)
		}
	}
	// default on unset/empty
	t.Setenv("B_EMPTY", "")
	if !getbool("B_EMPTY", true) || getbool("B_EMPTY", false) {
		t.Fatalf("getbool default behavior unexpected")
	}
}

func TestHelpers_splitCSV_and_normalizeBasePath(t *testing.T) {
	if out := splitCSV(""); out != nil {
		t.Fatalf("splitCSV empty should return nil")
	}
	in := " a, ,b ,  c  ,"
	want := []string{"a", "b", "c"}
	if got := splitCSV(in); !reflect.DeepEqual(got, want) {
		t.Fatalf("splitCSV mismatch: got %#v want %#v", got, want)
	}

	// normalizeBasePath
	if normalizeBasePath("") != "/" {
		t.Fatalf("normalizeBasePath empty -> '/' failed")
	}
	if normalizeBasePath("v1") != "/v1" {
		t.Fatalf("normalizeBasePath missing leading slash failed")
	}
	if normalizeBasePath("/v1/") != "/v1" {
		t.Fatalf("normalizeBasePath trailing slash trim failed")
	}
	if normalizeBasePath(" / ") != "/" {
		t.Fatalf("normalizeBasePath whitespace failed")
	}
}

// small helper (avoid fmt just for ints)
func config_strconv(i int) string { return string('a' + rune(i)) }

// Ensure tests don't leak env to others.
func TestMain(m *testing.M) {
	os.Unsetenv("PORT")
	os.Exit(m.Run())
}

// containsErr reports whether err's message contains the given substring.
func containsErr(err error, want string) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), want)
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs("")
	if err != nil || ids != nil {
		t.Fatalf("empty: ids=%v err=%v", ids, err)
	}
	ids, err = parseIDs("1, -2")
	if err != nil || !reflect.DeepEqual(ids, []int64{1, -2}) {
		t.Fatalf("ids=%v err=%v", ids, err)
	}
}

func TestMustLoad_Success_NoPanic(t *testing.T) {
	withToken(t)
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("MustLoad should not panic on valid defaults, got: %v", r)
		}
	}()
	cfg := MustLoad()
	if cfg.APIBasePath == "" {
		t.Fatalf("unexpected empty config from MustLoad")
	}
}
