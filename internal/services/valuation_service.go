package services

import (
	"context"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Listd-Technologies/listd-prd/internal/apperrors"
	"github.com/Listd-Technologies/listd-prd/internal/config"
	"github.com/Listd-Technologies/listd-prd/internal/db"
	"github.com/Listd-Technologies/listd-prd/internal/models"
	"github.com/Listd-Technologies/listd-prd/internal/refdata"
)

// Estimator is the pluggable scoring strategy. Implementations must be
// pure: same attributes in, same estimate out.
type Estimator interface {
	Estimate(category refdata.PropertyCategory, attrs models.PropertyDetails, city string) models.Price
}

// ValuationRequest is a single estimate submission. Exactly one of
// UserID / Guest must be set.
type ValuationRequest struct {
	Category   refdata.PropertyCategory
	Attributes models.PropertyDetails
	City       string
	UserID     *primitive.ObjectID
	Guest      *models.GuestContact
}

// ValuationPersistEnqueuer retries a snapshot write that failed inline.
// Implemented by the background task layer.
type ValuationPersistEnqueuer interface {
	EnqueueValuationPersist(ctx context.Context, valuation *models.PropertyValuation) error
}

// IValuationService computes estimates and records each request as an
// immutable snapshot.
type IValuationService interface {
	RequestValuation(ctx context.Context, req ValuationRequest) (*models.PropertyValuation, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.PropertyValuation, error)
}

type valuationService struct {
	db        *mongo.Database
	cfg       *config.Config
	estimator Estimator
	retry     ValuationPersistEnqueuer
}

// NewValuationService creates a new ValuationService. retry may be nil;
// a failed snapshot write is then only logged.
func NewValuationService(database *mongo.Database, cfg *config.Config, estimator Estimator, retry ValuationPersistEnqueuer) IValuationService {
	return &valuationService{db: database, cfg: cfg, estimator: estimator, retry: retry}
}

// RequestValuation validates the submission, computes the estimate and
// persists the snapshot. The estimate is returned even when persistence
// fails; the write is handed to the retry queue instead.
func (s *valuationService) RequestValuation(ctx context.Context, req ValuationRequest) (*models.PropertyValuation, error) {
	if !refdata.ValidCategory(req.Category) {
		return nil, apperrors.NewValidation("category", "unknown property category "+string(req.Category))
	}
	if err := req.Attributes.Validate(req.Category); err != nil {
		return nil, err
	}

	valuation := &models.PropertyValuation{
		Base:       models.NewBase(),
		Category:   req.Category,
		Attributes: req.Attributes,
		City:       strings.TrimSpace(req.City),
		UserID:     req.UserID,
		Guest:      req.Guest,
		CreatedAt:  time.Now().UTC(),
	}
	if err := valuation.ValidateRequester(); err != nil {
		return nil, err
	}

	valuation.Estimate = s.estimator.Estimate(req.Category, req.Attributes, valuation.City)

	err := db.WithTimeout(ctx, "valuation.persist", s.cfg.OpTimeout, func(ctx context.Context) error {
		_, err := s.db.Collection(db.ValuationsCollection).InsertOne(ctx, valuation)
		return err
	})
	if err != nil {
		log.Printf("WARN: valuation snapshot %s not persisted inline: %v", valuation.ID.Hex(), err)
		if s.retry != nil {
			if enqErr := s.retry.EnqueueValuationPersist(context.WithoutCancel(ctx), valuation); enqErr != nil {
				log.Printf("ERROR: valuation snapshot %s lost, retry enqueue failed: %v", valuation.ID.Hex(), enqErr)
			}
		}
	}

	return valuation, nil
}

// ListByUser returns a registered user's past valuations, newest first.
func (s *valuationService) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.PropertyValuation, error) {
	var valuations []models.PropertyValuation
	err := db.WithTimeout(ctx, "valuation.list", s.cfg.OpTimeout, func(ctx context.Context) error {
		cursor, err := s.db.Collection(db.ValuationsCollection).Find(ctx,
			bson.M{"user_id": userID},
			options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
		)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)
		return cursor.All(ctx, &valuations)
	})
	if err != nil {
		return nil, err
	}
	return valuations, nil
}
