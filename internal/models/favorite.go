package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Favorite is a unique (user, listing) pairing with no lifecycle beyond
// existence. Uniqueness is enforced by index, not application checks.
type Favorite struct {
	Base      `bson:",inline"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	ListingID primitive.ObjectID `bson:"listing_id" json:"listing_id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
