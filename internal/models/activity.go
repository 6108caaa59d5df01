package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ActivityEntry is an append-only record of a lifecycle event. Writes are
// best-effort: a failed append never rolls back the listing write it
// describes.
type ActivityEntry struct {
	Base       `bson:",inline"`
	UserID     primitive.ObjectID  `bson:"user_id" json:"user_id"`
	ListingID  *primitive.ObjectID `bson:"listing_id,omitempty" json:"listing_id,omitempty"`
	Action     string              `bson:"action" json:"action"`
	FromStatus string              `bson:"from_status,omitempty" json:"from_status,omitempty"`
	ToStatus   string              `bson:"to_status,omitempty" json:"to_status,omitempty"`
	CreatedAt  time.Time           `bson:"created_at" json:"created_at"`
}
