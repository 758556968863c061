package tasks

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Osman8a/TDAH-REST-API/internal/events"
)

// AuditProcessor writes every session event it receives to the audit log.
type AuditProcessor struct {
	logger zerolog.Logger
}

func NewAuditProcessor(logger zerolog.Logger) *AuditProcessor {
	return &AuditProcessor{
		logger: logger,
	}
}

func (p *AuditProcessor) Handle(ctx context.Context, msg redis.XMessage) error {
	event, err := events.Decode(msg.Values)
	if err != nil {
		return fmt.Errorf("decode event %s: %w", msg.ID, err)
	}

	switch event.Type {
	case events.TypeRegistered, events.TypeLogin, events.TypeLogout:
		p.record(zerolog.InfoLevel, msg.ID, event)
	case events.TypeSessionsRevoked, events.TypeDeleted:
		p.record(zerolog.WarnLevel, msg.ID, event)
	default:
		p.logger.Warn().Str("type", event.Type).Str("message_id", msg.ID).Msg("unknown event type")
	}
	return nil
}

func (p *AuditProcessor) record(level zerolog.Level, id string, event events.Event) {
	entry := p.logger.WithLevel(level).
		Str("message_id", id).
		Str("event", event.Type).
		Str("user_id", event.UserID).
		Time("at", event.At)
	if event.Fingerprint != "" {
		entry = entry.Str("token", event.Fingerprint)
	}
	entry.Msg("session audit")
}
