// Package services – LookupService
//
// This file implements LookupService, which turns a group chat message that
// contains a VIN into a delivered window sticker. The flow is:
//
//	cache lookup -> live hit: redeliver, no quota charge
//	             -> dead hit: evict, continue as miss
//	quota acquire -> denied: "limit reached" reply
//	sticker fetch -> failure: reservation rolled back, error reply
//	deliver + store result
//
// A reservation is charged only once a document reached the chat. Every
// other exit path releases it.
//
// Observability: HandleMessage is OpenTelemetry-instrumented and logs one
// line per recognised VIN with its outcome.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-vin-sticker-bot/internal/cache"
	"github.com/tbourn/go-vin-sticker-bot/internal/domain"
	"github.com/tbourn/go-vin-sticker-bot/internal/quota"
	"github.com/tbourn/go-vin-sticker-bot/internal/sticker"
)

// Outcome is the result of handling one message.
type Outcome int

const (
	OutcomeIgnored Outcome = iota
	OutcomeCached
	OutcomeLimited
	OutcomeDelivered
	OutcomeUnavailable
	OutcomeFetchFailed
	OutcomeDeliveryFailed
	OutcomeCacheFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeCached:
		return "cached"
	case OutcomeLimited:
		return "limited"
	case OutcomeDelivered:
		return "delivered"
	case OutcomeUnavailable:
		return "unavailable"
	case OutcomeFetchFailed:
		return "fetch_failed"
	case OutcomeDeliveryFailed:
		return "delivery_failed"
	case OutcomeCacheFailed:
		return "cache_failed"
	default:
		return "unknown"
	}
}

// LookupService coordinates the quota ledger, result cache, sticker fetch and
// delivery for VIN messages.
type LookupService struct {
	Quota   *quota.Ledger
	Cache   *cache.ResultCache
	Fetcher StickerFetcher
	Out     Outbound

	// AllowedChats restricts the bot to these chats when non-empty.
	AllowedChats map[int64]struct{}
	// ChargeUnavailable keeps the reservation when the site has no sticker
	// for the VIN. Off by default: an unavailable answer costs nothing.
	ChargeUnavailable bool
	// PhotosButton adds the photos inline button to delivered documents.
	PhotosButton bool

	now func() time.Time
}

// NewLookupService wires a LookupService with the photos button enabled.
func NewLookupService(l *quota.Ledger, c *cache.ResultCache, f StickerFetcher, out Outbound) *LookupService {
	return &LookupService{
		Quota:        l,
		Cache:        c,
		Fetcher:      f,
		Out:          out,
		PhotosButton: true,
	}
}

// HandleMessage processes one inbound message. Messages from bots, from
// non-group chats, from chats outside the allowlist and without a VIN are
// ignored. The returned error is informational: user-facing replies have
// already been sent.
func (s *LookupService) HandleMessage(ctx context.Context, in Inbound) (Outcome, error) {
	if in.FromBot || !isGroup(in.ChatType) || !s.chatAllowed(in.ChatID) {
		return OutcomeIgnored, nil
	}
	vin, ok := FindVIN(in.Text)
	if !ok {
		return OutcomeIgnored, nil
	}

	tr := otel.Tracer("services/LookupService")
	ctx, span := tr.Start(ctx, "HandleMessage",
		trace.WithAttributes(
			attribute.String("vin", vin),
			attribute.Int64("user.id", in.UserID),
			attribute.Int64("chat.id", in.ChatID),
		),
	)
	defer span.End()

	outcome, err := s.lookup(ctx, in, vin)

	span.SetAttributes(attribute.String("outcome", outcome.String()))
	ev := log.Info()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		ev = log.Warn().Err(err)
	}
	ev.Str("vin", vin).
		Int64("user_id", in.UserID).
		Int64("chat_id", in.ChatID).
		Str("outcome", outcome.String()).
		Msg("vin lookup")
	return outcome, err
}

func (s *LookupService) lookup(ctx context.Context, in Inbound, vin string) (Outcome, error) {
	to := in.Target()

	rec, err := s.Cache.Lookup(ctx, vin)
	switch {
	case err == nil:
		if done, outcome, err := s.serveCached(ctx, to, rec); done {
			return outcome, err
		}
	case errors.Is(err, cache.ErrMiss):
	default:
		// Fetching without knowing whether a result exists could charge the
		// user for a sticker already in the chat.
		s.reply(ctx, to, textGenericError)
		return OutcomeCacheFailed, err
	}

	lease, ok := s.Quota.Acquire(in.UserID)
	if !ok {
		wait := s.Quota.ResetAt(in.UserID).Sub(s.clock())
		s.reply(ctx, to, limitReachedText(s.Quota.Max(), wait))
		return OutcomeLimited, nil
	}
	defer lease.Release()
	remaining := s.Quota.Remaining(in.UserID)

	res, err := s.Fetcher.Fetch(ctx, vin)
	if err != nil {
		s.reply(ctx, to, textFetchFailed)
		return OutcomeFetchFailed, err
	}

	if res.Unavailable {
		h, err := s.Out.ReplyText(ctx, to, textUnavailable)
		if err != nil {
			return OutcomeDeliveryFailed, err
		}
		if s.ChargeUnavailable {
			lease.Keep()
		}
		s.store(ctx, vin, h, domain.OutcomeUnavailable)
		return OutcomeUnavailable, nil
	}

	doc := Document{
		Filename: sticker.Filename(vin),
		Data:     res.PDF,
		Caption:  captionText(vin, remaining),
	}
	if s.PhotosButton {
		doc.Buttons = []Button{{Text: textPhotosButton, Data: callbackPhotosPrefix + vin}}
	}
	h, err := s.Out.ReplyDocument(ctx, to, doc)
	if err != nil {
		s.reply(ctx, to, deliveryErrorText(err))
		return OutcomeDeliveryFailed, err
	}
	lease.Keep()
	s.store(ctx, vin, h, domain.OutcomeDocument)
	return OutcomeDelivered, nil
}

// serveCached validates a cache hit and redelivers it. done is false when
// the entry was dead and the caller should continue as on a miss.
func (s *LookupService) serveCached(ctx context.Context, to ReplyTarget, rec *domain.ResultRecord) (done bool, outcome Outcome, err error) {
	live, perr := s.Cache.Validate(ctx, rec, s.Out.Probe)
	if perr != nil {
		// Liveness unknown. The entry stays and is served as is.
		log.Warn().Err(perr).Str("vin", rec.VIN).Msg("probe failed, serving cached result")
		live = true
	}
	if !live {
		if err := s.Cache.Evict(ctx, rec.VIN); err != nil {
			log.Error().Err(err).Str("vin", rec.VIN).Msg("evict stale result")
		}
		return false, 0, nil
	}

	if err := s.redeliver(ctx, to, rec); err != nil {
		return true, OutcomeDeliveryFailed, err
	}
	return true, OutcomeCached, nil
}

// redeliver points the requester at a cached result: a t.me link when the
// result lives in this public chat, a copy otherwise.
func (s *LookupService) redeliver(ctx context.Context, to ReplyTarget, rec *domain.ResultRecord) error {
	h := rec.Handle()
	if h.ChatUsername != "" && h.ChatID == to.ChatID {
		_, err := s.Out.ReplyText(ctx, to, linkText(h.ChatUsername, h.MessageID))
		return err
	}
	return s.Out.ReplyCopy(ctx, to, h)
}

func (s *LookupService) store(ctx context.Context, vin string, h domain.Handle, outcome domain.Outcome) {
	if err := s.Cache.Store(ctx, vin, h, outcome); err != nil {
		// The result was delivered; the next request for this VIN fetches again.
		log.Error().Err(err).Str("vin", vin).Str("result", string(outcome)).Msg("store result")
	}
}

func (s *LookupService) reply(ctx context.Context, to ReplyTarget, text string) {
	if _, err := s.Out.ReplyText(ctx, to, text); err != nil {
		log.Warn().Err(err).Int64("chat_id", to.ChatID).Msg("reply failed")
	}
}

func (s *LookupService) chatAllowed(chatID int64) bool {
	if len(s.AllowedChats) == 0 {
		return true
	}
	_, ok := s.AllowedChats[chatID]
	return ok
}

func (s *LookupService) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func isGroup(chatType string) bool {
	return chatType == "group" || chatType == "supergroup"
}
