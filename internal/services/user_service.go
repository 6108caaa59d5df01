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
	"github.com/Listd-Technologies/listd-prd/internal/models"
)

// IUserService defines the interface for user-related operations.
type IUserService interface {
	EnsureUser(ctx context.Context, subjectID, email string) (*models.User, error)
	FindByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error)
	FindBySubjectID(ctx context.Context, subjectID string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID primitive.ObjectID, updates map[string]interface{}) (*models.User, error)
	SetAvatarKey(ctx context.Context, userID primitive.ObjectID, key string) error
	DeleteUserAndData(ctx context.Context, userID primitive.ObjectID) error
}

// userService implements IUserService.
type userService struct {
	db  *mongo.Database
	cfg *config.Config
}

// NewUserService creates a new UserService.
func NewUserService(database *mongo.Database, cfg *config.Config) IUserService {
	return &userService{db: database, cfg: cfg}
}

// EnsureUser maps an identity-provider subject to a User record,
// creating one on first sight. The upsert keeps concurrent first
// requests from racing into duplicate accounts.
func (s *userService) EnsureUser(ctx context.Context, subjectID, email string) (*models.User, error) {
	if subjectID == "" {
		return nil, apperrors.NewValidation("subject_id", "required")
	}
	if email == "" {
		return nil, apperrors.NewValidation("email", "required")
	}

	collection := s.db.Collection(db.UsersCollection)
	now := time.Now().UTC()

	filter := bson.M{"subject_id": subjectID}
	update := bson.M{
		"$set": bson.M{"email": email, "updated_at": now},
		"$setOnInsert": bson.M{
			"_id":                    primitive.NewObjectID(),
			"subject_id":             subjectID,
			"name":                   "",
			"whatsapp":               false,
			"active_unpaid_listings": 0,
			"created_at":             now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var user models.User
	err := db.WithTimeout(ctx, "user.ensure", s.cfg.OpTimeout, func(ctx context.Context) error {
		return collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&user)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure user for subject %s: %w", subjectID, err)
	}
	return &user, nil
}

// FindByID finds a user by their ID.
func (s *userService) FindByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := db.WithTimeout(ctx, "user.find", s.cfg.OpTimeout, func(ctx context.Context) error {
		return s.db.Collection(db.UsersCollection).FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("error finding user %s: %w", userID.Hex(), err)
	}
	return &user, nil
}

// FindBySubjectID finds a user by the identity provider's subject id.
func (s *userService) FindBySubjectID(ctx context.Context, subjectID string) (*models.User, error) {
	var user models.User
	err := db.WithTimeout(ctx, "user.find_subject", s.cfg.OpTimeout, func(ctx context.Context) error {
		return s.db.Collection(db.UsersCollection).FindOne(ctx, bson.M{"subject_id": subjectID}).Decode(&user)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("error finding user by subject %s: %w", subjectID, err)
	}
	return &user, nil
}

// UpdateProfile updates mutable profile fields. Identity-derived fields
// (subject id, email) and the quota counter cannot be changed here.
func (s *userService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, updates map[string]interface{}) (*models.User, error) {
	allowed := bson.M{}
	for key, value := range updates {
		switch key {
		case "name", "phone", "whatsapp":
			allowed[key] = value
		default:
			return nil, apperrors.NewValidation(key, "field cannot be updated via profile update")
		}
	}
	if len(allowed) == 0 {
		return nil, apperrors.NewValidation("updates", "no valid fields provided")
	}
	allowed["updated_at"] = time.Now().UTC()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.User
	err := db.WithTimeout(ctx, "user.update", s.cfg.OpTimeout, func(ctx context.Context) error {
		return s.db.Collection(db.UsersCollection).
			FindOneAndUpdate(ctx, bson.M{"_id": userID}, bson.M{"$set": allowed}, opts).
			Decode(&updated)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update user %s: %w", userID.Hex(), err)
	}
	return &updated, nil
}

// SetAvatarKey stores the object-storage key of the user's avatar.
func (s *userService) SetAvatarKey(ctx context.Context, userID primitive.ObjectID, key string) error {
	err := db.WithTimeout(ctx, "user.avatar", s.cfg.OpTimeout, func(ctx context.Context) error {
		result, err := s.db.Collection(db.UsersCollection).UpdateByID(ctx, userID, bson.M{
			"$set": bson.M{"avatar_key": key, "updated_at": time.Now().UTC()},
		})
		if err != nil {
			return err
		}
		if result.MatchedCount == 0 {
			return apperrors.ErrNotFound
		}
		return nil
	})
	return err
}

// DeleteUserAndData removes a user and everything referencing them:
// listings (with their images), favorites, conversations and messages.
// Collection-by-collection; a partial failure is logged and returned so
// the caller can re-run the cascade, which is idempotent.
func (s *userService) DeleteUserAndData(ctx context.Context, userID primitive.ObjectID) error {
	// Collect the user's listing ids first; the dependents hang off them.
	// Must stay a non-nil slice: a nil $in marshals as null, which the
	// server rejects.
	listingIDs := make([]primitive.ObjectID, 0)
	err := db.WithTimeout(ctx, "user.delete.listings_scan", s.cfg.OpTimeout, func(ctx context.Context) error {
		cursor, err := s.db.Collection(db.ListingsCollection).Find(ctx, bson.M{"user_id": userID},
			options.Find().SetProjection(bson.D{{Key: "_id", Value: 1}}))
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)
		for cursor.Next(ctx) {
			var doc struct {
				ID primitive.ObjectID `bson:"_id"`
			}
			if err := cursor.Decode(&doc); err != nil {
				return err
			}
			listingIDs = append(listingIDs, doc.ID)
		}
		return cursor.Err()
	})
	if err != nil {
		return fmt.Errorf("failed to scan listings for user %s: %w", userID.Hex(), err)
	}

	steps := []struct {
		coll   string
		filter bson.M
	}{
		{db.ListingImagesCollection, bson.M{"listing_id": bson.M{"$in": listingIDs}}},
		{db.FavoritesCollection, bson.M{"$or": bson.A{
			bson.M{"user_id": userID},
			bson.M{"listing_id": bson.M{"$in": listingIDs}},
		}}},
		{db.ConversationsCollection, bson.M{"$or": bson.A{
			bson.M{"user_lo": userID},
			bson.M{"user_hi": userID},
			bson.M{"listing_id": bson.M{"$in": listingIDs}},
		}}},
		{db.ListingsCollection, bson.M{"user_id": userID}},
	}

	// Messages of the affected conversations go first, keyed off the
	// conversation scan, so nothing orphans if a later step fails.
	var convIDs []primitive.ObjectID
	err = db.WithTimeout(ctx, "user.delete.conversations_scan", s.cfg.OpTimeout, func(ctx context.Context) error {
		cursor, err := s.db.Collection(db.ConversationsCollection).Find(ctx, steps[2].filter,
			options.Find().SetProjection(bson.D{{Key: "_id", Value: 1}}))
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)
		for cursor.Next(ctx) {
			var doc struct {
				ID primitive.ObjectID `bson:"_id"`
			}
			if err := cursor.Decode(&doc); err != nil {
				return err
			}
			convIDs = append(convIDs, doc.ID)
		}
		return cursor.Err()
	})
	if err != nil {
		return fmt.Errorf("failed to scan conversations for user %s: %w", userID.Hex(), err)
	}
	if len(convIDs) > 0 {
		err = db.WithTimeout(ctx, "user.delete.messages", s.cfg.OpTimeout, func(ctx context.Context) error {
			_, err := s.db.Collection(db.MessagesCollection).DeleteMany(ctx, bson.M{"conversation_id": bson.M{"$in": convIDs}})
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to delete messages for user %s: %w", userID.Hex(), err)
		}
	}

	for _, step := range steps {
		step := step
		err = db.WithTimeout(ctx, "user.delete."+step.coll, s.cfg.OpTimeout, func(ctx context.Context) error {
			_, err := s.db.Collection(step.coll).DeleteMany(ctx, step.filter)
			return err
		})
		if err != nil {
			return fmt.Errorf("cascade delete failed on %s for user %s: %w", step.coll, userID.Hex(), err)
		}
	}

	err = db.WithTimeout(ctx, "user.delete.self", s.cfg.OpTimeout, func(ctx context.Context) error {
		result, err := s.db.Collection(db.UsersCollection).DeleteOne(ctx, bson.M{"_id": userID})
		if err != nil {
			return err
		}
		if result.DeletedCount == 0 {
			return apperrors.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("User %s deleted with %d listings cascaded.", userID.Hex(), len(listingIDs))
	return nil
}
