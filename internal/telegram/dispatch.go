package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tbourn/go-vin-sticker-bot/internal/services"
)

// Handler receives decoded platform events. services.BotService implements it.
type Handler interface {
	HandleMessage(ctx context.Context, in services.Inbound) error
	HandleCallback(ctx context.Context, ev services.CallbackEvent) error
	HandleJoin(ctx context.Context, ev services.JoinEvent) error
}

var _ Handler = (*services.BotService)(nil)

// Update kinds, used for metrics and the processed update log.
const (
	KindMessage      = "message"
	KindCallback     = "callback_query"
	KindMyChatMember = "my_chat_member"
	KindOther        = "other"
)

// Kind classifies u by the part the bot acts on.
func Kind(u tgbotapi.Update) string {
	switch {
	case u.Message != nil:
		return KindMessage
	case u.CallbackQuery != nil:
		return KindCallback
	case u.MyChatMember != nil:
		return KindMyChatMember
	default:
		return KindOther
	}
}

// AllowedUpdates lists the update types requested from Telegram.
var AllowedUpdates = []string{KindMessage, KindCallback, KindMyChatMember}

// Dispatch decodes u and calls the matching Handler method. Updates the bot
// does not act on are dropped.
func Dispatch(ctx context.Context, h Handler, u tgbotapi.Update) error {
	switch Kind(u) {
	case KindMessage:
		in, ok := inbound(u)
		if !ok {
			return nil
		}
		return h.HandleMessage(ctx, in)
	case KindCallback:
		return h.HandleCallback(ctx, callbackEvent(u.CallbackQuery))
	case KindMyChatMember:
		m := u.MyChatMember
		return h.HandleJoin(ctx, services.JoinEvent{
			ChatID:    m.Chat.ID,
			ChatType:  m.Chat.Type,
			OldStatus: m.OldChatMember.Status,
			NewStatus: m.NewChatMember.Status,
		})
	}
	return nil
}

func inbound(u tgbotapi.Update) (services.Inbound, bool) {
	m := u.Message
	if m.Chat == nil || m.From == nil {
		return services.Inbound{}, false
	}
	text := m.Text
	if text == "" {
		text = m.Caption
	}
	return services.Inbound{
		UpdateID:     int64(u.UpdateID),
		ChatID:       m.Chat.ID,
		ChatType:     m.Chat.Type,
		ChatUsername: m.Chat.UserName,
		MessageID:    m.MessageID,
		UserID:       m.From.ID,
		FromBot:      m.From.IsBot,
		Text:         text,
	}, true
}

func callbackEvent(q *tgbotapi.CallbackQuery) services.CallbackEvent {
	ev := services.CallbackEvent{ID: q.ID, Data: q.Data}
	if q.From != nil {
		ev.UserID = q.From.ID
	}
	if q.Message != nil {
		ev.MessageID = q.Message.MessageID
		if q.Message.Chat != nil {
			ev.ChatID = q.Message.Chat.ID
		}
	}
	return ev
}
