// Package events implements the single pub/sub channel carrying tagged JSON envelopes between REST endpoints, the
// gateway, and other gateway connections.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Channel is the single Valkey pub/sub channel every event is published to.
const Channel = "events"

// Type tags the kind of event carried in an Envelope.
type Type string

const (
	TypeMessageCreate  Type = "MESSAGE_CREATE"
	TypeUserUpdate     Type = "USER_UPDATE"
	TypePresenceUpdate Type = "PRESENCE_UPDATE"
)

// Envelope is the wire shape of every message published to Channel.
type Envelope struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// PresenceUpdate is the payload of a PRESENCE_UPDATE event.
type PresenceUpdate struct {
	UserID uint64 `json:"user_id"`
	Status Status `json:"status"`
}

// Status mirrors the user status shape carried in PRESENCE_UPDATE and USER_UPDATE payloads.
type Status struct {
	Type string  `json:"type"`
	Text *string `json:"text"`
}

// Publisher publishes typed events to Channel.
type Publisher struct {
	rdb *redis.Client
}

// NewPublisher creates a Publisher backed by rdb.
func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb}
}

// Publish marshals payload and publishes it tagged with typ.
func (p *Publisher) Publish(ctx context.Context, typ Type, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("events: marshal payload: %w", err)
	}
	env, err := json.Marshal(Envelope{Type: typ, Payload: raw})
	if err != nil {
		return fmt.Errorf("events: marshal envelope: %w", err)
	}
	if err := p.rdb.Publish(ctx, Channel, env).Err(); err != nil {
		return fmt.Errorf("events: publish: %w", err)
	}
	return nil
}

// Subscriber subscribes to Channel and decodes envelopes.
type Subscriber struct {
	sub *redis.PubSub
}

// Subscribe opens a subscription to Channel. The caller must call Close when done.
func Subscribe(ctx context.Context, rdb *redis.Client) *Subscriber {
	return &Subscriber{sub: rdb.Subscribe(ctx, Channel)}
}

// Next blocks until the next envelope arrives or ctx is cancelled.
func (s *Subscriber) Next(ctx context.Context) (Envelope, error) {
	msg, err := s.sub.ReceiveMessage(ctx)
	if err != nil {
		return Envelope{}, err
	}
	var env Envelope
	if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
		return Envelope{}, fmt.Errorf("events: unmarshal envelope: %w", err)
	}
	return env, nil
}

// Close releases the subscription.
func (s *Subscriber) Close() error {
	return s.sub.Close()
}
