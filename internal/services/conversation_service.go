package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Listd-Technologies/listd-prd/internal/apperrors"
	"github.com/Listd-Technologies/listd-prd/internal/config"
	"github.com/Listd-Technologies/listd-prd/internal/db"
	"github.com/Listd-Technologies/listd-prd/internal/events"
	"github.com/Listd-Technologies/listd-prd/internal/models"
)

// IConversationService owns conversation and message persistence.
// Real-time delivery is the transport collaborator's concern; this layer
// only emits a message-created event after each persisted message.
type IConversationService interface {
	GetOrCreateConversation(ctx context.Context, listingID, userA, userB primitive.ObjectID) (*models.Conversation, error)
	FindConversationByID(ctx context.Context, conversationID primitive.ObjectID) (*models.Conversation, error)
	ListConversations(ctx context.Context, userID primitive.ObjectID) ([]models.Conversation, error)
	SendMessage(ctx context.Context, conversationID, senderID primitive.ObjectID, body string) (*models.Message, error)
	ListMessages(ctx context.Context, conversationID, userID primitive.ObjectID, limit int64, before *primitive.ObjectID) ([]models.Message, error)
	MarkRead(ctx context.Context, conversationID, userID primitive.ObjectID) (int64, error)
	UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error)
	DeleteMessage(ctx context.Context, messageID, senderID primitive.ObjectID) error
}

type conversationService struct {
	db        *mongo.Database
	cfg       *config.Config
	publisher events.Publisher
}

// NewConversationService creates a new ConversationService.
func NewConversationService(database *mongo.Database, cfg *config.Config, publisher events.Publisher) IConversationService {
	return &conversationService{db: database, cfg: cfg, publisher: publisher}
}

// GetOrCreateConversation returns the single conversation for a listing
// and an unordered user pair, creating it on first request. The pair is
// canonicalized before the write, and the unique
// (listing_id, user_lo, user_hi) index plus duplicate-key retry makes
// concurrent first requests converge on one document.
func (s *conversationService) GetOrCreateConversation(ctx context.Context, listingID, userA, userB primitive.ObjectID) (*models.Conversation, error) {
	if userA == userB {
		return nil, apperrors.NewValidation("participants", "a conversation needs two distinct users")
	}

	lo, hi := models.CanonicalPair(userA, userB)
	collection := s.db.Collection(db.ConversationsCollection)
	filter := bson.M{"listing_id": listingID, "user_lo": lo, "user_hi": hi}

	var conversation models.Conversation
	err := db.WithTimeout(ctx, "conversation.get_or_create", s.cfg.OpTimeout, func(ctx context.Context) error {
		return db.Try(func() error {
			err := collection.FindOne(ctx, filter).Decode(&conversation)
			if err == nil {
				return nil
			}
			if !errors.Is(err, mongo.ErrNoDocuments) {
				return err
			}
			now := time.Now().UTC()
			conversation = models.Conversation{
				Base:      models.NewBase(),
				ListingID: listingID,
				UserLo:    lo,
				UserHi:    hi,
				CreatedAt: now,
				UpdatedAt: now,
			}
			_, insertErr := collection.InsertOne(ctx, &conversation)
			return insertErr
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get or create conversation for listing %s: %w", listingID.Hex(), err)
	}
	return &conversation, nil
}

// FindConversationByID finds a conversation by its ID.
func (s *conversationService) FindConversationByID(ctx context.Context, conversationID primitive.ObjectID) (*models.Conversation, error) {
	var conversation models.Conversation
	err := db.WithTimeout(ctx, "conversation.find", s.cfg.OpTimeout, func(ctx context.Context) error {
		return s.db.Collection(db.ConversationsCollection).
			FindOne(ctx, bson.M{"_id": conversationID}).
			Decode(&conversation)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("error finding conversation %s: %w", conversationID.Hex(), err)
	}
	return &conversation, nil
}

// ListConversations returns all conversations the user takes part in,
// most recently touched first.
func (s *conversationService) ListConversations(ctx context.Context, userID primitive.ObjectID) ([]models.Conversation, error) {
	var conversations []models.Conversation
	err := db.WithTimeout(ctx, "conversation.list", s.cfg.OpTimeout, func(ctx context.Context) error {
		cursor, err := s.db.Collection(db.ConversationsCollection).Find(ctx,
			bson.M{"$or": bson.A{bson.M{"user_lo": userID}, bson.M{"user_hi": userID}}},
			options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}),
		)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)
		return cursor.All(ctx, &conversations)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations for user %s: %w", userID.Hex(), err)
	}
	return conversations, nil
}

// SendMessage persists a message from a participant and emits the
// message-created event. Event publication is best-effort; the message
// is durable either way.
func (s *conversationService) SendMessage(ctx context.Context, conversationID, senderID primitive.ObjectID, body string) (*models.Message, error) {
	if body == "" {
		return nil, apperrors.NewValidation("body", "required")
	}

	conversation, err := s.FindConversationByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.Includes(senderID) {
		return nil, apperrors.ErrNotFound
	}

	message := &models.Message{
		Base:           models.NewBase(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
		CreatedAt:      time.Now().UTC(),
	}

	err = db.WithTimeout(ctx, "message.send", s.cfg.OpTimeout, func(ctx context.Context) error {
		if _, err := s.db.Collection(db.MessagesCollection).InsertOne(ctx, message); err != nil {
			return err
		}
		_, err := s.db.Collection(db.ConversationsCollection).UpdateByID(ctx, conversationID,
			bson.M{"$set": bson.M{"updated_at": message.CreatedAt}})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send message in conversation %s: %w", conversationID.Hex(), err)
	}

	recipient := conversation.UserLo
	if recipient == senderID {
		recipient = conversation.UserHi
	}
	if s.publisher != nil {
		pubErr := s.publisher.PublishMessageCreated(context.WithoutCancel(ctx), events.MessageCreated{
			ConversationID: conversationID,
			ListingID:      conversation.ListingID,
			SenderID:       senderID,
			RecipientID:    recipient,
			Body:           body,
			CreatedAt:      message.CreatedAt,
		})
		if pubErr != nil {
			log.Printf("WARN: message-created event not published for %s: %v", message.ID.Hex(), pubErr)
		}
	}

	return message, nil
}

// ListMessages returns one page of a conversation's messages, newest
// first, for a participant. Soft-deleted messages come back with an
// empty body so clients can render a tombstone.
func (s *conversationService) ListMessages(ctx context.Context, conversationID, userID primitive.ObjectID, limit int64, before *primitive.ObjectID) ([]models.Message, error) {
	conversation, err := s.FindConversationByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.Includes(userID) {
		return nil, apperrors.ErrNotFound
	}

	if limit <= 0 || limit > int64(s.cfg.MaxPageLimit) {
		limit = int64(s.cfg.DefaultPageLimit)
	}
	filter := bson.M{"conversation_id": conversationID}
	if before != nil {
		filter["_id"] = bson.M{"$lt": *before}
	}

	var messages []models.Message
	err = db.WithTimeout(ctx, "message.list", s.cfg.OpTimeout, func(ctx context.Context) error {
		cursor, err := s.db.Collection(db.MessagesCollection).Find(ctx, filter,
			options.Find().SetSort(bson.D{{Key: "_id", Value: -1}}).SetLimit(limit),
		)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)
		return cursor.All(ctx, &messages)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list messages for conversation %s: %w", conversationID.Hex(), err)
	}

	for i := range messages {
		if messages[i].Deleted {
			messages[i].Body = ""
		}
	}
	return messages, nil
}

// MarkRead flags all messages addressed to the user in a conversation as
// read and returns how many changed.
func (s *conversationService) MarkRead(ctx context.Context, conversationID, userID primitive.ObjectID) (int64, error) {
	conversation, err := s.FindConversationByID(ctx, conversationID)
	if err != nil {
		return 0, err
	}
	if !conversation.Includes(userID) {
		return 0, apperrors.ErrNotFound
	}

	var modified int64
	err = db.WithTimeout(ctx, "message.mark_read", s.cfg.OpTimeout, func(ctx context.Context) error {
		result, err := s.db.Collection(db.MessagesCollection).UpdateMany(ctx,
			bson.M{"conversation_id": conversationID, "sender_id": bson.M{"$ne": userID}, "read": false},
			bson.M{"$set": bson.M{"read": true}},
		)
		if err != nil {
			return err
		}
		modified = result.ModifiedCount
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to mark conversation %s read: %w", conversationID.Hex(), err)
	}
	return modified, nil
}

// UnreadCount counts unread messages addressed to the user across all
// their conversations.
func (s *conversationService) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	conversations, err := s.ListConversations(ctx, userID)
	if err != nil {
		return 0, err
	}
	if len(conversations) == 0 {
		return 0, nil
	}
	ids := make([]primitive.ObjectID, len(conversations))
	for i, c := range conversations {
		ids[i] = c.ID
	}

	var total int64
	err = db.WithTimeout(ctx, "message.unread_count", s.cfg.OpTimeout, func(ctx context.Context) error {
		total, err = s.db.Collection(db.MessagesCollection).CountDocuments(ctx, bson.M{
			"conversation_id": bson.M{"$in": ids},
			"sender_id":       bson.M{"$ne": userID},
			"read":            false,
			"deleted":         false,
		})
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages for user %s: %w", userID.Hex(), err)
	}
	return total, nil
}

// DeleteMessage soft-deletes a message. Only the sender may do it; the
// document stays so conversation history keeps its shape.
func (s *conversationService) DeleteMessage(ctx context.Context, messageID, senderID primitive.ObjectID) error {
	err := db.WithTimeout(ctx, "message.delete", s.cfg.OpTimeout, func(ctx context.Context) error {
		result, err := s.db.Collection(db.MessagesCollection).UpdateOne(ctx,
			bson.M{"_id": messageID, "sender_id": senderID},
			bson.M{"$set": bson.M{"deleted": true}},
		)
		if err != nil {
			return err
		}
		if result.MatchedCount == 0 {
			return apperrors.ErrNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("failed to delete message %s: %w", messageID.Hex(), err)
	}
	return nil
}
