package services

import (
	"context"

	"github.com/rs/zerolog/log"
)

// BotService is the entry point for platform events. It routes messages to
// LookupService and button presses to PhotoService, and greets chats the
// bot is added to.
type BotService struct {
	Lookup *LookupService
	Photos *PhotoService
	Out    Outbound
	// MaxPerDay is shown in the greeting.
	MaxPerDay int
}

// HandleMessage forwards to LookupService.
func (s *BotService) HandleMessage(ctx context.Context, in Inbound) error {
	_, err := s.Lookup.HandleMessage(ctx, in)
	return err
}

// HandleCallback forwards to PhotoService.
func (s *BotService) HandleCallback(ctx context.Context, ev CallbackEvent) error {
	return s.Photos.HandleCallback(ctx, ev)
}

// HandleJoin sends the greeting when the bot becomes a member of a group.
func (s *BotService) HandleJoin(ctx context.Context, ev JoinEvent) error {
	if !isGroup(ev.ChatType) || !joined(ev.OldStatus, ev.NewStatus) {
		return nil
	}
	if s.Lookup != nil && !s.Lookup.chatAllowed(ev.ChatID) {
		log.Info().Int64("chat_id", ev.ChatID).Msg("added to chat outside allowlist")
		return nil
	}
	log.Info().Int64("chat_id", ev.ChatID).Msg("added to chat")
	return s.Out.SendText(ctx, ev.ChatID, greetingText(s.MaxPerDay))
}

// joined reports a transition from outside the chat to inside it.
func joined(old, cur string) bool {
	inside := func(st string) bool {
		return st == "member" || st == "administrator" || st == "creator" || st == "restricted"
	}
	return !inside(old) && inside(cur)
}
