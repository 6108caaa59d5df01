package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Listd-Technologies/listd-prd/internal/config"
	"github.com/Listd-Technologies/listd-prd/internal/db"
	"github.com/Listd-Technologies/listd-prd/internal/models"
)

// IActivityService appends and reads the append-only activity log.
// Record is best-effort: it must never fail a domain operation.
type IActivityService interface {
	Record(ctx context.Context, entry models.ActivityEntry)
	ListByUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.ActivityEntry, error)
}

type activityService struct {
	db  *mongo.Database
	cfg *config.Config
}

// NewActivityService creates a new ActivityService.
func NewActivityService(database *mongo.Database, cfg *config.Config) IActivityService {
	return &activityService{db: database, cfg: cfg}
}

func (s *activityService) Record(ctx context.Context, entry models.ActivityEntry) {
	entry.GenIDIfEmpty()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	err := db.WithTimeout(ctx, "activity.record", s.cfg.OpTimeout, func(ctx context.Context) error {
		_, err := s.db.Collection(db.ActivityLogCollection).InsertOne(ctx, entry)
		return err
	})
	if err != nil {
		log.Printf("WARN: failed to record activity %s for user %s: %v", entry.Action, entry.UserID.Hex(), err)
	}
}

func (s *activityService) ListByUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.ActivityEntry, error) {
	if limit <= 0 || limit > int64(s.cfg.MaxPageLimit) {
		limit = int64(s.cfg.DefaultPageLimit)
	}
	var entries []models.ActivityEntry
	err := db.WithTimeout(ctx, "activity.list", s.cfg.OpTimeout, func(ctx context.Context) error {
		cursor, err := s.db.Collection(db.ActivityLogCollection).Find(ctx,
			bson.M{"user_id": userID},
			options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit),
		)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)
		return cursor.All(ctx, &entries)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list activity for user %s: %w", userID.Hex(), err)
	}
	return entries, nil
}
