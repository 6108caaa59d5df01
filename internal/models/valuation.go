package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Listd-Technologies/listd-prd/internal/apperrors"
	"github.com/Listd-Technologies/listd-prd/internal/refdata"
)

// GuestContact substitutes for an authenticated identity on valuation
// requests. All fields except WhatsApp are required.
type GuestContact struct {
	FirstName string `bson:"first_name" json:"first_name"`
	LastName  string `bson:"last_name" json:"last_name"`
	Email     string `bson:"email" json:"email"`
	Phone     string `bson:"phone" json:"phone"`
	WhatsApp  bool   `bson:"whatsapp" json:"whatsapp"`
}

// Validate checks that the guest tuple is complete.
func (g *GuestContact) Validate() error {
	switch {
	case g.FirstName == "":
		return apperrors.NewValidation("guest.first_name", "required")
	case g.LastName == "":
		return apperrors.NewValidation("guest.last_name", "required")
	case g.Email == "":
		return apperrors.NewValidation("guest.email", "required")
	case g.Phone == "":
		return apperrors.NewValidation("guest.phone", "required")
	}
	return nil
}

// PropertyValuation is the immutable snapshot of a valuation request and
// its computed estimate. Write-once; never mutated.
type PropertyValuation struct {
	Base       `bson:",inline"`
	Category   refdata.PropertyCategory `bson:"category" json:"category"`
	Attributes PropertyDetails          `bson:"attributes" json:"attributes"`
	City       string                   `bson:"city,omitempty" json:"city,omitempty"`

	// Exactly one of UserID / Guest is populated.
	UserID *primitive.ObjectID `bson:"user_id,omitempty" json:"user_id,omitempty"`
	Guest  *GuestContact       `bson:"guest,omitempty" json:"guest,omitempty"`

	Estimate  Price     `bson:"estimate" json:"estimate"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// ValidateRequester enforces the user-XOR-guest invariant.
func (v *PropertyValuation) ValidateRequester() error {
	if v.UserID != nil && v.Guest != nil {
		return apperrors.NewValidation("requester", "user and guest contact are mutually exclusive")
	}
	if v.UserID == nil && v.Guest == nil {
		return apperrors.NewValidation("requester", "either a user or a complete guest contact is required")
	}
	if v.Guest != nil {
		return v.Guest.Validate()
	}
	return nil
}
