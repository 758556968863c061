package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	TypeRegistered      = "registered"
	TypeLogin           = "login"
	TypeLogout          = "logout"
	TypeSessionsRevoked = "sessions_revoked"
	TypeDeleted         = "deleted"
)

// Event is one entry of the session audit stream. Fingerprint identifies the
// token involved without revealing it.
type Event struct {
	Type        string    `json:"type"`
	UserID      string    `json:"userId"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	At          time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// RedisPublisher appends events to a Redis stream.
type RedisPublisher struct {
	client *redis.Client
	stream string
}

func NewRedisPublisher(client *redis.Client, stream string) *RedisPublisher {
	return &RedisPublisher{client: client, stream: stream}
}

func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	_, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: event.Values(),
	}).Result()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", p.stream, err)
	}
	return nil
}

// Nop drops every event. It is used when no Redis address is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Values flattens the event into stream fields.
func (e Event) Values() map[string]any {
	values := map[string]any{
		"type":   e.Type,
		"userId": e.UserID,
		"at":     e.At.UTC().Format(time.RFC3339Nano),
	}
	if e.Fingerprint != "" {
		values["fingerprint"] = e.Fingerprint
	}
	return values
}

// Decode rebuilds an event from stream fields as returned by XREADGROUP.
func Decode(values map[string]any) (Event, error) {
	raw, err := json.Marshal(values)
	if err != nil {
		return Event{}, err
	}
	var event Event
	if err := json.Unmarshal(raw, &event); err != nil {
		return Event{}, err
	}
	if event.Type == "" {
		return Event{}, fmt.Errorf("event without type")
	}
	return event, nil
}
