package services

import (
	"context"

	"github.com/tbourn/go-vin-sticker-bot/internal/domain"
	"github.com/tbourn/go-vin-sticker-bot/internal/sticker"
)

// Inbound is a chat message as seen by the lookup service.
type Inbound struct {
	UpdateID     int64
	ChatID       int64
	ChatType     string
	ChatUsername string
	MessageID    int
	UserID       int64
	FromBot      bool
	// Text is the message text or, for media, its caption.
	Text string
}

// Target returns the reply target for m.
func (m Inbound) Target() ReplyTarget {
	return ReplyTarget{ChatID: m.ChatID, ChatUsername: m.ChatUsername, MessageID: m.MessageID}
}

// ReplyTarget is the message a reply is attached to.
type ReplyTarget struct {
	ChatID       int64
	ChatUsername string
	MessageID    int
}

// Button is an inline keyboard button carrying callback data.
type Button struct {
	Text string
	Data string
}

// Document is a file delivered as a reply.
type Document struct {
	Filename string
	Data     []byte
	// Caption is HTML formatted.
	Caption string
	Buttons []Button
}

// Photo is one image of a media group.
type Photo struct {
	Name string
	Data []byte
}

// CallbackEvent is an inline button press.
type CallbackEvent struct {
	ID        string
	ChatID    int64
	MessageID int
	UserID    int64
	Data      string
}

// JoinEvent reports a change of the bot's own membership in a chat.
type JoinEvent struct {
	ChatID    int64
	ChatType  string
	OldStatus string
	NewStatus string
}

// Outbound is the chat platform as used by the services. Reply methods
// fall back to a plain send when the replied-to message is gone and return
// the handle of the message actually sent.
type Outbound interface {
	ReplyText(ctx context.Context, to ReplyTarget, html string) (domain.Handle, error)
	ReplyDocument(ctx context.Context, to ReplyTarget, doc Document) (domain.Handle, error)
	// ReplyCopy copies the message behind h into the target chat.
	ReplyCopy(ctx context.Context, to ReplyTarget, h domain.Handle) error
	SendText(ctx context.Context, chatID int64, html string) error
	SendPhotos(ctx context.Context, chatID int64, photos []Photo) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
	// Probe reports whether h still resolves. See cache.Probe.
	Probe(ctx context.Context, h domain.Handle) error
}

// StickerFetcher downloads a window sticker.
type StickerFetcher interface {
	Fetch(ctx context.Context, vin string) (*sticker.Result, error)
}

// PhotoSource returns vehicle photos for a VIN.
type PhotoSource interface {
	Photos(ctx context.Context, vin string) ([]Photo, error)
}
