package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conversation is the unique, unordered pair of users talking about one
// listing. The pair is canonicalized (lower ObjectID first) before every
// lookup or insert, so requesting the conversation in either user order
// resolves to the same document.
type Conversation struct {
	Base      `bson:",inline"`
	ListingID primitive.ObjectID `bson:"listing_id" json:"listing_id"`
	UserLo    primitive.ObjectID `bson:"user_lo" json:"user_lo"`
	UserHi    primitive.ObjectID `bson:"user_hi" json:"user_hi"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// Participants returns the pair in canonical order.
func (c *Conversation) Participants() (primitive.ObjectID, primitive.ObjectID) {
	return c.UserLo, c.UserHi
}

// Includes reports whether the user is part of the conversation.
func (c *Conversation) Includes(userID primitive.ObjectID) bool {
	return c.UserLo == userID || c.UserHi == userID
}

// CanonicalPair orders two user ids deterministically (byte-wise on the
// ObjectID) so duplicate conversations cannot be created in either
// direction.
func CanonicalPair(a, b primitive.ObjectID) (primitive.ObjectID, primitive.ObjectID) {
	if a.Hex() > b.Hex() {
		return b, a
	}
	return a, b
}

// Message is ordered, timestamped content within a conversation.
// Soft-deleted messages stay in place so ordering is preserved.
type Message struct {
	Base           `bson:",inline"`
	ConversationID primitive.ObjectID `bson:"conversation_id" json:"conversation_id"`
	SenderID       primitive.ObjectID `bson:"sender_id" json:"sender_id"`
	Body           string             `bson:"body" json:"body"`
	Read           bool               `bson:"read" json:"read"`
	Deleted        bool               `bson:"deleted" json:"-"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
}
