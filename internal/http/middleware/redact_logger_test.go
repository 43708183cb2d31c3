package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

const fakeToken = "123456789:AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsaw"

func TestRedact(t *testing.T) {
	cases := map[string]string{
		"":                      "",
		"vin=ZARFT12345678901X": "vin=ZARFT12345678901X",
		"to a.b+x@example.com":  "to [REDACTED:email]",
		"/file/bot" + fakeToken: "/file/bot[REDACTED:token]",
		"id=123e4567-e89b-12d3-a456-426614174000": "id=[REDACTED:id]",
	}
	for in, want := range cases {
		if got := redact(in); got != want {
			t.Fatalf("redact(%q)=%q, want %q", in, got, want)
		}
	}
}

func TestRedactingLogger_InfoAndRedactions(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID(), RedactingLogger(RedactOptions{MaskHeaders: []string{"X-Custom-Secret"}}))
	r.GET("/api/v1/results/:vin", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(http.MethodGet, "/api/v1/results/ZARFT12345678901X?email=a@b.com", nil)
	req.Header.Set("X-Request-ID", "rid-1")
	req.Header.Set(HeaderAPIKey, "admin-key")
	req.Header.Set(HeaderTelegramSecret, "tg-secret")
	req.Header.Set("X-Custom-Secret", "shhh")
	req.Header.Set("X-Forwarded-For-Note", "token "+fakeToken)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	logs := buf.String()
	for _, want := range []string{
		`"level":"info"`,
		`"path":"/api/v1/results/:vin"`,
		`"request_id":"rid-1"`,
		`[REDACTED:email]`,
		`"X-Api-Key":"[REDACTED]"`,
		`"X-Telegram-Bot-Api-Secret-Token":"[REDACTED]"`,
		`"X-Custom-Secret":"[REDACTED]"`,
		`token [REDACTED:token]`,
	} {
		if !strings.Contains(logs, want) {
			t.Fatalf("missing %s in logs: %s", want, logs)
		}
	}
	for _, leak := range []string{"admin-key", "tg-secret", "shhh", fakeToken} {
		if strings.Contains(logs, leak) {
			t.Fatalf("log leaked %q: %s", leak, logs)
		}
	}
}

func TestRedactingLogger_UnmatchedPathIsRedacted(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RedactingLogger(RedactOptions{}))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/bot"+fakeToken+"/getMe", nil))

	logs := buf.String()
	if strings.Contains(logs, fakeToken) || !strings.Contains(logs, `"level":"warn"`) {
		t.Fatalf("unexpected log: %s", logs)
	}
}

func TestRedactingLogger_WarnAndErrorLevels_RequestIDFallback(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RedactingLogger(RedactOptions{}))
	r.GET("/warn", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/error", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	reqWarn := httptest.NewRequest(http.MethodGet, "/warn", nil)
	reqWarn.Header.Set("X-Request-ID", "rid-warn")
	r.ServeHTTP(httptest.NewRecorder(), reqWarn)

	reqErr := httptest.NewRequest(http.MethodGet, "/error", nil)
	reqErr.Header.Set("X-Request-ID", "rid-err")
	r.ServeHTTP(httptest.NewRecorder(), reqErr)

	logs := buf.String()
	if !strings.Contains(logs, `"level":"warn"`) || !strings.Contains(logs, `"request_id":"rid-warn"`) {
		t.Fatalf("warn log not found or missing request_id fallback: %s", logs)
	}
	if !strings.Contains(logs, `"level":"error"`) || !strings.Contains(logs, `"request_id":"rid-err"`) {
		t.Fatalf("error log not found or missing request_id fallback: %s", logs)
	}
}
