package services

import (
	"context"
	"fmt"
	"sort"
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

// IFavoriteService manages the (user, listing) favorite pairing.
type IFavoriteService interface {
	AddFavorite(ctx context.Context, userID, listingID primitive.ObjectID) error
	RemoveFavorite(ctx context.Context, userID, listingID primitive.ObjectID) error
	ListFavorites(ctx context.Context, userID primitive.ObjectID) ([]models.Listing, error)
	IsFavorite(ctx context.Context, userID, listingID primitive.ObjectID) (bool, error)
}

type favoriteService struct {
	db  *mongo.Database
	cfg *config.Config
}

// NewFavoriteService creates a new FavoriteService.
func NewFavoriteService(database *mongo.Database, cfg *config.Config) IFavoriteService {
	return &favoriteService{db: database, cfg: cfg}
}

// AddFavorite records the pairing. Favoriting twice is a no-op; the
// unique (user_id, listing_id) index absorbs the duplicate.
func (s *favoriteService) AddFavorite(ctx context.Context, userID, listingID primitive.ObjectID) error {
	// The listing must exist; a dangling favorite would surface as a
	// hole in the favorites page.
	count, err := s.countListing(ctx, listingID)
	if err != nil {
		return err
	}
	if count == 0 {
		return apperrors.ErrNotFound
	}

	favorite := models.Favorite{
		Base:      models.NewBase(),
		UserID:    userID,
		ListingID: listingID,
		CreatedAt: time.Now().UTC(),
	}
	err = db.WithTimeout(ctx, "favorite.add", s.cfg.OpTimeout, func(ctx context.Context) error {
		_, err := s.db.Collection(db.FavoritesCollection).InsertOne(ctx, favorite)
		if db.IsMongoDuplicateKeyError(err) {
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to favorite listing %s: %w", listingID.Hex(), err)
	}
	return nil
}

func (s *favoriteService) countListing(ctx context.Context, listingID primitive.ObjectID) (int64, error) {
	var count int64
	err := db.WithTimeout(ctx, "favorite.listing_check", s.cfg.OpTimeout, func(ctx context.Context) error {
		var err error
		count, err = s.db.Collection(db.ListingsCollection).CountDocuments(ctx, bson.M{"_id": listingID})
		return err
	})
	return count, err
}

// RemoveFavorite removes the pairing if present.
func (s *favoriteService) RemoveFavorite(ctx context.Context, userID, listingID primitive.ObjectID) error {
	err := db.WithTimeout(ctx, "favorite.remove", s.cfg.OpTimeout, func(ctx context.Context) error {
		result, err := s.db.Collection(db.FavoritesCollection).DeleteOne(ctx,
			bson.M{"user_id": userID, "listing_id": listingID})
		if err != nil {
			return err
		}
		if result.DeletedCount == 0 {
			return apperrors.ErrNotFound
		}
		return nil
	})
	return err
}

// ListFavorites returns the favorited listings themselves, most recently
// favorited first.
func (s *favoriteService) ListFavorites(ctx context.Context, userID primitive.ObjectID) ([]models.Listing, error) {
	var favorites []models.Favorite
	err := db.WithTimeout(ctx, "favorite.list", s.cfg.OpTimeout, func(ctx context.Context) error {
		cursor, err := s.db.Collection(db.FavoritesCollection).Find(ctx,
			bson.M{"user_id": userID},
			options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
		)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)
		return cursor.All(ctx, &favorites)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites for user %s: %w", userID.Hex(), err)
	}
	if len(favorites) == 0 {
		return nil, nil
	}

	ids := make([]primitive.ObjectID, len(favorites))
	order := make(map[primitive.ObjectID]int, len(favorites))
	for i, f := range favorites {
		ids[i] = f.ListingID
		order[f.ListingID] = i
	}

	var listings []models.Listing
	err = db.WithTimeout(ctx, "favorite.resolve", s.cfg.OpTimeout, func(ctx context.Context) error {
		cursor, err := s.db.Collection(db.ListingsCollection).Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)
		return cursor.All(ctx, &listings)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve favorite listings for user %s: %w", userID.Hex(), err)
	}

	// Restore favorited-at ordering lost by the $in lookup.
	sort.Slice(listings, func(i, j int) bool {
		return order[listings[i].ID] < order[listings[j].ID]
	})
	return listings, nil
}

// IsFavorite reports whether the user has favorited the listing.
func (s *favoriteService) IsFavorite(ctx context.Context, userID, listingID primitive.ObjectID) (bool, error) {
	var count int64
	err := db.WithTimeout(ctx, "favorite.check", s.cfg.OpTimeout, func(ctx context.Context) error {
		var err error
		count, err = s.db.Collection(db.FavoritesCollection).CountDocuments(ctx,
			bson.M{"user_id": userID, "listing_id": listingID})
		return err
	})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
