package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PaymentType distinguishes what a payment bought.
type PaymentType string

const (
	PaymentTypeListingUnlock PaymentType = "listing_unlock"
	PaymentTypeSubscription  PaymentType = "subscription"
)

// PaymentStatus mirrors the processor's view of the transaction.
type PaymentStatus string

const (
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// UserPayment records a completed monetary transaction reported by the
// payment processor callback. The core never initiates charges. A listing
// may reference at most one payment to mark it quota-exempt.
type UserPayment struct {
	Base         `bson:",inline"`
	UserID       primitive.ObjectID `bson:"user_id" json:"user_id"`
	Type         PaymentType        `bson:"type" json:"type"`
	Amount       float64            `bson:"amount" json:"amount"`
	CurrencyCode string             `bson:"currency_code" json:"currency_code"`
	Status       PaymentStatus      `bson:"status" json:"status"`
	ProcessorRef string             `bson:"processor_ref" json:"processor_ref"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
}
