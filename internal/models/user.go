package models

import (
	"time"
)

// User represents a marketplace user. Accounts are created on first
// authenticated contact: the identity provider supplies a stable subject
// id and verified email, and the core only maps that to a profile.
type User struct {
	Base      `bson:",inline"`
	SubjectID string    `bson:"subject_id" json:"-"`
	Email     string    `bson:"email" json:"email"`
	Name      string    `bson:"name" json:"name"`
	Phone     string    `bson:"phone,omitempty" json:"phone,omitempty"`
	WhatsApp  bool      `bson:"whatsapp" json:"whatsapp"`
	AvatarKey string    `bson:"avatar_key,omitempty" json:"avatar_key,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`

	// ActiveUnpaidListings counts this user's listings that are Active
	// with no payment reference. Activation guards compare-and-swap this
	// counter, which is what serializes concurrent activations per user.
	ActiveUnpaidListings int `bson:"active_unpaid_listings" json:"-"`
}
