package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/userdesk/apiserver/types"
)

// Event types emitted on user lifecycle transitions.
const (
	UserCreated = "user.created"
	UserUpdated = "user.updated"
	UserDeleted = "user.deleted"
)

// UserEvent is the broker payload describing a lifecycle transition.
type UserEvent struct {
	Type   string    `json:"type"`
	UserID int       `json:"user_id"`
	Email  string    `json:"email,omitempty"`
	At     time.Time `json:"at"`
}

// Message represents a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker-agnostic operations used by the publisher.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// Publisher emits user lifecycle events on a fixed broker channel.
type Publisher struct {
	backend Backend
	channel string
}

// NewPublisher constructs a Publisher for the provided backend and channel.
func NewPublisher(backend Backend, channel string) *Publisher {
	return &Publisher{backend: backend, channel: channel}
}

// Publish sends a lifecycle event for the given user.
func (p *Publisher) Publish(ctx context.Context, eventType string, user types.User) error {
	event := UserEvent{
		Type:   eventType,
		UserID: user.ID,
		Email:  user.Email,
		At:     time.Now(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = p.backend.Publish(ctx, p.channel, data, map[string]string{"type": eventType})
	return err
}

// Subscribe consumes lifecycle events from the publisher's channel.
func (p *Publisher) Subscribe(ctx context.Context, handler Handler) error {
	return p.backend.Subscribe(ctx, p.channel, handler)
}

// Close closes the underlying backend.
func (p *Publisher) Close() error {
	return p.backend.Close()
}

// Noop discards all events. Used when no broker is configured.
type Noop struct{}

func (Noop) Publish(ctx context.Context, eventType string, user types.User) error {
	return nil
}
