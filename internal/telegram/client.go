// Package telegram adapts the Telegram Bot API to the service layer.
//
// Client implements services.Outbound on top of go-telegram-bot-api. The
// library calls are synchronous and take no context, so every method checks
// the context before talking to the API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-vin-sticker-bot/internal/cache"
	"github.com/tbourn/go-vin-sticker-bot/internal/domain"
	"github.com/tbourn/go-vin-sticker-bot/internal/services"
)

// botAPI is the subset of *tgbotapi.BotAPI used by Client.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	CopyMessage(config tgbotapi.CopyMessageConfig) (tgbotapi.MessageID, error)
	SendMediaGroup(config tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error)
}

// mediaGroupMax is the largest album Telegram accepts.
const mediaGroupMax = 10

// Client sends bot output to Telegram.
type Client struct {
	api botAPI
}

var _ services.Outbound = (*Client)(nil)

// NewClient wraps api, usually a *tgbotapi.BotAPI.
func NewClient(api botAPI) *Client {
	return &Client{api: api}
}

// ReplyText sends html as a reply to to. If the original message has been
// deleted meanwhile, the text is sent to the chat without a reply reference.
func (c *Client) ReplyText(ctx context.Context, to services.ReplyTarget, html string) (domain.Handle, error) {
	msg := tgbotapi.NewMessage(to.ChatID, html)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	msg.ReplyToMessageID = to.MessageID

	sent, err := c.send(ctx, msg)
	if isReplyMissing(err) {
		msg.ReplyToMessageID = 0
		sent, err = c.send(ctx, msg)
	}
	if err != nil {
		return domain.Handle{}, err
	}
	return handleOf(sent, to), nil
}

// ReplyDocument uploads doc as a reply to to, with the same fallback as
// ReplyText.
func (c *Client) ReplyDocument(ctx context.Context, to services.ReplyTarget, doc services.Document) (domain.Handle, error) {
	cfg := tgbotapi.NewDocument(to.ChatID, tgbotapi.FileBytes{Name: doc.Filename, Bytes: doc.Data})
	cfg.Caption = doc.Caption
	cfg.ParseMode = tgbotapi.ModeHTML
	cfg.ReplyToMessageID = to.MessageID
	if kb, ok := keyboard(doc.Buttons); ok {
		cfg.ReplyMarkup = kb
	}

	sent, err := c.send(ctx, cfg)
	if isReplyMissing(err) {
		cfg.ReplyToMessageID = 0
		sent, err = c.send(ctx, cfg)
	}
	if err != nil {
		return domain.Handle{}, err
	}
	return handleOf(sent, to), nil
}

// ReplyCopy copies the message behind h into to's chat as a reply.
func (c *Client) ReplyCopy(ctx context.Context, to services.ReplyTarget, h domain.Handle) error {
	cfg := tgbotapi.NewCopyMessage(to.ChatID, h.ChatID, h.MessageID)
	cfg.ReplyToMessageID = to.MessageID

	_, err := c.copy(ctx, cfg)
	if isReplyMissing(err) {
		cfg.ReplyToMessageID = 0
		_, err = c.copy(ctx, cfg)
	}
	return err
}

// SendText posts html to chatID.
func (c *Client) SendText(ctx context.Context, chatID int64, html string) error {
	msg := tgbotapi.NewMessage(chatID, html)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := c.send(ctx, msg)
	return err
}

// SendPhotos posts photos to chatID, as albums of up to ten.
func (c *Client) SendPhotos(ctx context.Context, chatID int64, photos []services.Photo) error {
	for start := 0; start < len(photos); start += mediaGroupMax {
		end := min(start+mediaGroupMax, len(photos))
		batch := photos[start:end]

		if len(batch) == 1 {
			p := batch[0]
			if _, err := c.send(ctx, tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: p.Name, Bytes: p.Data})); err != nil {
				return err
			}
			continue
		}

		media := make([]interface{}, 0, len(batch))
		for _, p := range batch {
			media = append(media, tgbotapi.NewInputMediaPhoto(tgbotapi.FileBytes{Name: p.Name, Bytes: p.Data}))
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := c.api.SendMediaGroup(tgbotapi.NewMediaGroup(chatID, media)); err != nil {
			return err
		}
	}
	return nil
}

// AnswerCallback acknowledges a button press, optionally with a toast.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.api.Request(tgbotapi.NewCallback(callbackID, text))
	return err
}

// Probe checks that the message behind h still exists by copying it within
// its own chat and deleting the copy. Only a message Telegram reports as
// missing yields cache.ErrHandleGone.
func (c *Client) Probe(ctx context.Context, h domain.Handle) error {
	cfg := tgbotapi.NewCopyMessage(h.ChatID, h.ChatID, h.MessageID)
	cfg.DisableNotification = true

	id, err := c.copy(ctx, cfg)
	if err != nil {
		if isGone(err) {
			return fmt.Errorf("%w: %v", cache.ErrHandleGone, err)
		}
		return err
	}
	if _, err := c.api.Request(tgbotapi.NewDeleteMessage(h.ChatID, id.MessageID)); err != nil {
		// The original message is live; a leftover copy is only noise.
		log.Warn().Err(err).Int64("chat_id", h.ChatID).Int("message_id", id.MessageID).Msg("delete probe copy")
	}
	return nil
}

func (c *Client) send(ctx context.Context, m tgbotapi.Chattable) (tgbotapi.Message, error) {
	if err := ctx.Err(); err != nil {
		return tgbotapi.Message{}, err
	}
	return c.api.Send(m)
}

func (c *Client) copy(ctx context.Context, cfg tgbotapi.CopyMessageConfig) (tgbotapi.MessageID, error) {
	if err := ctx.Err(); err != nil {
		return tgbotapi.MessageID{}, err
	}
	return c.api.CopyMessage(cfg)
}

func keyboard(buttons []services.Button) (tgbotapi.InlineKeyboardMarkup, bool) {
	if len(buttons) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), true
}

func handleOf(sent tgbotapi.Message, to services.ReplyTarget) domain.Handle {
	h := domain.Handle{ChatID: to.ChatID, MessageID: sent.MessageID, ChatUsername: to.ChatUsername}
	if sent.Chat != nil {
		h.ChatID = sent.Chat.ID
		h.ChatUsername = sent.Chat.UserName
	}
	return h
}

// apiError extracts the Bot API error code and description.
func apiError(err error) (code int, desc string, ok bool) {
	var pe *tgbotapi.Error
	if errors.As(err, &pe) {
		return pe.Code, strings.ToLower(pe.Message), true
	}
	return 0, "", false
}

func isReplyMissing(err error) bool {
	if err == nil {
		return false
	}
	if _, desc, ok := apiError(err); ok {
		return strings.Contains(desc, "message to be replied not found")
	}
	return strings.Contains(strings.ToLower(err.Error()), "message to be replied not found")
}

// isGone matches only Telegram's "message does not exist" answers. Losing
// access to a chat (403, chat not found) may be temporary and is treated as
// transient.
func isGone(err error) bool {
	code, desc, ok := apiError(err)
	if !ok || code != 400 {
		return false
	}
	return strings.Contains(desc, "message to copy not found") ||
		strings.Contains(desc, "message not found") ||
		strings.Contains(desc, "message_id_invalid")
}
