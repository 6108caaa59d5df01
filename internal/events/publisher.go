// Package events carries the boundary to the external realtime
// transport: the core persists conversations and messages, then emits a
// "message created" event here and lets the transport worry about
// delivery.
package events

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MessageCreated is the payload handed to the messaging transport.
type MessageCreated struct {
	ConversationID primitive.ObjectID `json:"conversation_id"`
	ListingID      primitive.ObjectID `json:"listing_id"`
	SenderID       primitive.ObjectID `json:"sender_id"`
	RecipientID    primitive.ObjectID `json:"recipient_id"`
	Body           string             `json:"body"`
	CreatedAt      time.Time          `json:"created_at"`
}

// Publisher defines the interface for emitting domain events to external
// consumers. Implementations must not block the write path for long; the
// caller treats publish failures as non-fatal.
type Publisher interface {
	PublishMessageCreated(ctx context.Context, evt MessageCreated) error
}

// LoggingPublisher just logs events. Useful for development or when no
// transport is configured.
type LoggingPublisher struct{}

func (p *LoggingPublisher) PublishMessageCreated(ctx context.Context, evt MessageCreated) error {
	log.Printf("--- Event (Logged) --- message created in conversation %s by %s", evt.ConversationID.Hex(), evt.SenderID.Hex())
	return nil
}
