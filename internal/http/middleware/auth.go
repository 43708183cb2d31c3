// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file holds the two credential checks of the service:
//   - APIKey guards the admin API with a static key in X-API-Key.
//   - WebhookSecret verifies the secret token Telegram sends with every
//     webhook delivery (X-Telegram-Bot-Api-Secret-Token).
//
// Both compare in constant time and never log the presented value.
package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	// HeaderAPIKey carries the admin API key.
	HeaderAPIKey = "X-API-Key"
	// HeaderTelegramSecret carries the webhook secret set with setWebhook.
	HeaderTelegramSecret = "X-Telegram-Bot-Api-Secret-Token"

	ctxKeyPrincipal = "principal"
)

// Principal returns the identity APIKey attached to the request, if any.
func Principal(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyPrincipal)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// APIKey rejects requests whose X-API-Key does not match key. An empty key
// disables the protected routes entirely (404), so a deployment without a
// key never exposes them.
func APIKey(key string) gin.HandlerFunc {
	want := []byte(key)
	return func(c *gin.Context) {
		if len(want) == 0 {
			abortJSON(c, http.StatusNotFound, "not_found", "route not found")
			return
		}
		got := []byte(c.GetHeader(HeaderAPIKey))
		if len(got) == 0 {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "missing API key")
			return
		}
		if subtle.ConstantTimeCompare(got, want) != 1 {
			abortJSON(c, http.StatusForbidden, "forbidden", "invalid API key")
			return
		}
		c.Set(ctxKeyPrincipal, "admin")
		c.Next()
	}
}

// WebhookSecret rejects webhook deliveries without the expected secret token.
// An empty secret accepts every request.
func WebhookSecret(secret string) gin.HandlerFunc {
	want := []byte(secret)
	return func(c *gin.Context) {
		if len(want) == 0 {
			c.Next()
			return
		}
		got := []byte(c.GetHeader(HeaderTelegramSecret))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "invalid secret token")
			return
		}
		c.Next()
	}
}

// abortJSON writes the standard error envelope. The handlers package has its
// own helper; middleware cannot import it without a cycle.
func abortJSON(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       code,
		"message":    msg,
	})
}
