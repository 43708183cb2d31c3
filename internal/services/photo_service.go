package services

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// PhotoService answers the photos button attached to delivered stickers.
// Photos are not charged against the quota.
type PhotoService struct {
	Source PhotoSource
	Out    Outbound
}

// HandleCallback answers a "photos:<VIN>" button press by sending the
// vehicle photos to the chat the button lives in.
func (s *PhotoService) HandleCallback(ctx context.Context, ev CallbackEvent) error {
	raw, ok := strings.CutPrefix(ev.Data, callbackPhotosPrefix)
	if !ok {
		_ = s.Out.AnswerCallback(ctx, ev.ID, "")
		return ErrBadCallback
	}
	vin, err := NormalizeVIN(raw)
	if err != nil {
		_ = s.Out.AnswerCallback(ctx, ev.ID, "")
		return err
	}

	tr := otel.Tracer("services/PhotoService")
	ctx, span := tr.Start(ctx, "HandleCallback",
		trace.WithAttributes(
			attribute.String("vin", vin),
			attribute.Int64("user.id", ev.UserID),
		),
	)
	defer span.End()

	if s.Source == nil {
		return s.Out.AnswerCallback(ctx, ev.ID, textPhotosDisabled)
	}
	if err := s.Out.AnswerCallback(ctx, ev.ID, textPhotosLoading); err != nil {
		// An expired callback cannot be answered; the photos can still be sent.
		log.Debug().Err(err).Str("callback_id", ev.ID).Msg("answer callback")
	}

	photos, err := s.Source.Photos(ctx, vin)
	if err != nil || len(photos) == 0 {
		if err != nil {
			span.RecordError(err)
			log.Warn().Err(err).Str("vin", vin).Msg("photo source failed")
		}
		return errors.Join(err, s.Out.SendText(ctx, ev.ChatID, noPhotosText(vin)))
	}
	return s.Out.SendPhotos(ctx, ev.ChatID, photos)
}
