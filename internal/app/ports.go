package app

import (
	"context"
	"time"

	"github.com/HashGen/MonetizeGram/pkg/telegram"
)

// Messenger is the outbound side of the chat transport.
type Messenger interface {
	SendMessage(ctx context.Context, msg telegram.Message) (int, error)
	CreateInviteLink(ctx context.Context, chatID int64, memberLimit int, expiresAt time.Time) (string, error)
	RemoveMember(ctx context.Context, chatID, userID int64) error
	IsChatAdministrator(ctx context.Context, chatID int64) (bool, error)
	Username() string
}

// EventPublisher defines the interface for publishing domain events.
type EventPublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body interface{}) error
}

// SelectionThrottle counts plan selections per subscriber.
type SelectionThrottle interface {
	Hit(ctx context.Context, subscriberID int64) (ThrottleResult, error)
}

// Clock lets tests pin the current time.
type Clock func() time.Time
