package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Listd-Technologies/listd-prd/internal/apperrors"
	"github.com/Listd-Technologies/listd-prd/internal/config"
	"github.com/Listd-Technologies/listd-prd/internal/db"
	"github.com/Listd-Technologies/listd-prd/internal/models"
)

// CompletedPayment is the payment processor's callback payload. The core
// never initiates charges; it only records completed transactions.
type CompletedPayment struct {
	UserID       primitive.ObjectID
	Type         models.PaymentType
	Amount       float64
	CurrencyCode string
	ProcessorRef string
	// ListingID, when set on a listing-unlock payment, immediately marks
	// that listing quota-exempt.
	ListingID *primitive.ObjectID
}

// IPaymentService records processor callbacks and applies unlock
// payments to listings.
type IPaymentService interface {
	RecordPayment(ctx context.Context, payment CompletedPayment) (*models.UserPayment, error)
	ListPayments(ctx context.Context, userID primitive.ObjectID) ([]models.UserPayment, error)
}

type paymentService struct {
	db       *mongo.Database
	cfg      *config.Config
	listings IListingService
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(database *mongo.Database, cfg *config.Config, listings IListingService) IPaymentService {
	return &paymentService{db: database, cfg: cfg, listings: listings}
}

// RecordPayment persists the transaction. Replays of the same processor
// reference return the already-recorded payment instead of a duplicate.
// For listing-unlock payments the listing reference is attached in the
// same call; an attach failure does not void the payment record.
func (s *paymentService) RecordPayment(ctx context.Context, payment CompletedPayment) (*models.UserPayment, error) {
	if payment.Type != models.PaymentTypeListingUnlock && payment.Type != models.PaymentTypeSubscription {
		return nil, apperrors.NewValidation("type", "unknown payment type "+string(payment.Type))
	}
	if payment.Amount <= 0 {
		return nil, apperrors.NewValidation("amount", "must be positive")
	}
	if payment.ProcessorRef == "" {
		return nil, apperrors.NewValidation("processor_ref", "required")
	}
	if payment.Type == models.PaymentTypeListingUnlock && payment.ListingID == nil {
		return nil, apperrors.NewValidation("listing_id", "required for listing-unlock payments")
	}

	collection := s.db.Collection(db.PaymentsCollection)

	var existing models.UserPayment
	err := db.WithTimeout(ctx, "payment.dedupe", s.cfg.OpTimeout, func(ctx context.Context) error {
		return collection.FindOne(ctx, bson.M{"processor_ref": payment.ProcessorRef}).Decode(&existing)
	})
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("payment dedupe lookup failed for ref %s: %w", payment.ProcessorRef, err)
	}

	record := &models.UserPayment{
		Base:         models.NewBase(),
		UserID:       payment.UserID,
		Type:         payment.Type,
		Amount:       payment.Amount,
		CurrencyCode: payment.CurrencyCode,
		Status:       models.PaymentStatusCompleted,
		ProcessorRef: payment.ProcessorRef,
		CreatedAt:    time.Now().UTC(),
	}
	err = db.WithTimeout(ctx, "payment.record", s.cfg.OpTimeout, func(ctx context.Context) error {
		_, err := collection.InsertOne(ctx, record)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record payment ref %s: %w", payment.ProcessorRef, err)
	}

	if payment.Type == models.PaymentTypeListingUnlock && payment.ListingID != nil {
		if err := s.listings.AttachPayment(ctx, *payment.ListingID, payment.UserID, record.ID); err != nil {
			// Payment stands; the unlock can be re-applied.
			return record, fmt.Errorf("payment %s recorded but listing unlock failed: %w", record.ID.Hex(), err)
		}
	}

	return record, nil
}

// ListPayments returns a user's payment history, newest first.
func (s *paymentService) ListPayments(ctx context.Context, userID primitive.ObjectID) ([]models.UserPayment, error) {
	var payments []models.UserPayment
	err := db.WithTimeout(ctx, "payment.list", s.cfg.OpTimeout, func(ctx context.Context) error {
		cursor, err := s.db.Collection(db.PaymentsCollection).Find(ctx,
			bson.M{"user_id": userID},
			options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
		)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)
		return cursor.All(ctx, &payments)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list payments for user %s: %w", userID.Hex(), err)
	}
	return payments, nil
}
