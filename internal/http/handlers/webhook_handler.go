// Webhook intake.
//
// POST /telegram/webhook receives one update per request. The handler only
// deduplicates and queues; the update is processed after the response so
// Telegram's delivery timeout never depends on the sticker site.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tbourn/go-vin-sticker-bot/internal/http/middleware"
	"github.com/tbourn/go-vin-sticker-bot/internal/repo"
	"github.com/tbourn/go-vin-sticker-bot/internal/telegram"
)

// UpdateLog remembers processed update ids. Mark returns repo.ErrDuplicate
// for an id it has already seen.
type UpdateLog interface {
	Mark(ctx context.Context, updateID int64, kind string) error
	Unmark(ctx context.Context, updateID int64) error
}

// UpdateQueue accepts updates for asynchronous handling without blocking.
type UpdateQueue interface {
	TrySubmit(u tgbotapi.Update) bool
}

// Webhook handles Telegram webhook deliveries.
type Webhook struct {
	log   UpdateLog
	queue UpdateQueue
}

// NewWebhook returns a Webhook. A nil log disables deduplication.
func NewWebhook(log UpdateLog, queue UpdateQueue) *Webhook {
	return &Webhook{log: log, queue: queue}
}

// WebhookAck is the body returned to Telegram.
type WebhookAck struct {
	OK        bool `json:"ok"`
	Duplicate bool `json:"duplicate,omitempty"`
}

// Receive accepts a Telegram update. A redelivery of an accepted update_id
// is acknowledged without processing. 503 asks Telegram to retry when the
// worker pool is full. Not part of the admin API docs.
func (h *Webhook) Receive(c *gin.Context) {
	var u tgbotapi.Update
	if err := c.ShouldBindJSON(&u); err != nil || u.UpdateID <= 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid update")
		return
	}
	ctx := c.Request.Context()
	id := int64(u.UpdateID)
	lg := middleware.LoggerFrom(c)

	if h.log != nil {
		err := h.log.Mark(ctx, id, telegram.Kind(u))
		switch {
		case errors.Is(err, repo.ErrDuplicate):
			lg.Debug().Int64("update_id", id).Msg("duplicate update")
			ok(c, http.StatusOK, WebhookAck{OK: true, Duplicate: true})
			return
		case err != nil:
			// Processing twice is better than dropping the update.
			lg.Warn().Err(err).Int64("update_id", id).Msg("mark update")
		}
	}

	if !h.queue.TrySubmit(u) {
		if h.log != nil {
			if err := h.log.Unmark(ctx, id); err != nil {
				lg.Warn().Err(err).Int64("update_id", id).Msg("unmark update")
			}
		}
		c.Header("Retry-After", "1")
		fail(c, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "busy")
		return
	}
	ok(c, http.StatusOK, WebhookAck{OK: true})
}
