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
	"github.com/Listd-Technologies/listd-prd/internal/refdata"
)

// CreateListingInput carries everything needed to create a draft listing.
// Location comes pre-resolved from the geocoding provider.
type CreateListingInput struct {
	Mode     refdata.TransactionMode
	Category refdata.PropertyCategory
	Title    string
	Body     string
	Price    models.Price
	Location models.ListingLocation
	Details  models.PropertyDetails
}

// IListingService is the listing lifecycle engine: draft creation,
// guarded status transitions, and image attachment ordering.
type IListingService interface {
	CreateListing(ctx context.Context, userID primitive.ObjectID, in CreateListingInput) (*models.Listing, error)
	FindListingByID(ctx context.Context, listingID primitive.ObjectID) (*models.Listing, error)
	UpdateListing(ctx context.Context, listingID, userID primitive.ObjectID, updates map[string]interface{}) (*models.Listing, error)
	Transition(ctx context.Context, listingID, userID primitive.ObjectID, to refdata.ListingStatus) error
	AttachImage(ctx context.Context, listingID, userID primitive.ObjectID, key string) (*models.ListingImage, error)
	DetachImage(ctx context.Context, listingID, userID, imageID primitive.ObjectID) error
	ListImages(ctx context.Context, listingID primitive.ObjectID) ([]models.ListingImage, error)
	FindListingsByUserID(ctx context.Context, userID primitive.ObjectID) ([]models.Listing, error)
	AttachPayment(ctx context.Context, listingID, userID, paymentID primitive.ObjectID) error
}

// listingService implements IListingService.
type listingService struct {
	db       *mongo.Database
	cfg      *config.Config
	activity IActivityService
}

// NewListingService creates a new ListingService. The activity service
// may be nil; lifecycle logging is best-effort either way.
func NewListingService(database *mongo.Database, cfg *config.Config, activity IActivityService) IListingService {
	return &listingService{db: database, cfg: cfg, activity: activity}
}

func validateCreateInput(in *CreateListingInput) error {
	if !refdata.ValidMode(in.Mode) {
		return apperrors.NewValidation("mode", "unknown transaction mode "+string(in.Mode))
	}
	if !refdata.ValidCategory(in.Category) {
		return apperrors.NewValidation("category", "unknown property category "+string(in.Category))
	}
	if in.Title == "" {
		return apperrors.NewValidation("title", "required")
	}
	if in.Price.Amount <= 0 {
		return apperrors.NewValidation("price.amount", "must be positive")
	}
	if in.Location.City == "" {
		return apperrors.NewValidation("location.city", "required")
	}
	if in.Location.Point != nil && len(in.Location.Point.Coordinates) != 2 {
		return apperrors.NewValidation("location.point", "coordinates must be [lon, lat]")
	}
	return in.Details.Validate(in.Category)
}

// CreateListing inserts a new listing in Draft. Creation is never
// quota-checked; the quota guard runs when the listing attempts to enter
// Active. The embedded details variant and derived search text are
// written in the same insert, so the aggregate is atomic.
func (s *listingService) CreateListing(ctx context.Context, userID primitive.ObjectID, in CreateListingInput) (*models.Listing, error) {
	if err := validateCreateInput(&in); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	listing := &models.Listing{
		Base:       models.NewBase(),
		UserID:     userID,
		Mode:       in.Mode,
		Category:   in.Category,
		Status:     refdata.StatusDraft,
		Title:      in.Title,
		Body:       in.Body,
		Price:      in.Price,
		Location:   in.Location,
		Details:    in.Details,
		SearchText: models.BuildSearchText(in.Title, in.Body),
		ImageCount: 0,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := db.WithTimeout(ctx, "listing.create", s.cfg.OpTimeout, func(ctx context.Context) error {
		return db.Try(func() error {
			_, insertErr := s.db.Collection(db.ListingsCollection).InsertOne(ctx, listing)
			return insertErr
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert new listing for user %s: %w", userID.Hex(), err)
	}

	s.logActivity(userID, &listing.ID, "listing_created", "", string(refdata.StatusDraft))
	return listing, nil
}

// FindListingByID finds a listing by its ID. It does NOT check ownership.
func (s *listingService) FindListingByID(ctx context.Context, listingID primitive.ObjectID) (*models.Listing, error) {
	var listing models.Listing
	err := db.WithTimeout(ctx, "listing.find", s.cfg.OpTimeout, func(ctx context.Context) error {
		return s.db.Collection(db.ListingsCollection).FindOne(ctx, bson.M{"_id": listingID}).Decode(&listing)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("error finding listing %s: %w", listingID.Hex(), err)
	}
	return &listing, nil
}

// UpdateListing updates mutable fields of a listing owned by the given
// user. Status is not updatable here; use Transition. Title/body changes
// re-derive the search vector, and a details change is validated against
// the listing's category so the satellite invariant holds on every path.
func (s *listingService) UpdateListing(ctx context.Context, listingID, userID primitive.ObjectID, updates map[string]interface{}) (*models.Listing, error) {
	current, err := s.FindListingByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if current.UserID != userID {
		return nil, apperrors.ErrNotFound
	}

	allowed := bson.M{}
	title, body := current.Title, current.Body
	rederive := false
	for key, value := range updates {
		switch key {
		case "title":
			str, ok := value.(string)
			if !ok || str == "" {
				return nil, apperrors.NewValidation("title", "must be a non-empty string")
			}
			title = str
			allowed[key] = str
			rederive = true
		case "body":
			str, ok := value.(string)
			if !ok {
				return nil, apperrors.NewValidation("body", "must be a string")
			}
			body = str
			allowed[key] = str
			rederive = true
		case "price":
			price, ok := value.(models.Price)
			if !ok || price.Amount <= 0 {
				return nil, apperrors.NewValidation("price", "must be a positive price")
			}
			allowed[key] = price
		case "location":
			loc, ok := value.(models.ListingLocation)
			if !ok || loc.City == "" {
				return nil, apperrors.NewValidation("location", "city is required")
			}
			allowed[key] = loc
		case "details":
			details, ok := value.(models.PropertyDetails)
			if !ok {
				return nil, apperrors.NewValidation("details", "invalid detail payload")
			}
			if err := details.Validate(current.Category); err != nil {
				return nil, err
			}
			allowed[key] = details
		default:
			return nil, apperrors.NewValidation(key, "field cannot be updated via UpdateListing")
		}
	}
	if len(allowed) == 0 {
		return nil, apperrors.NewValidation("updates", "no valid fields provided")
	}
	if rederive {
		allowed["search_text"] = models.BuildSearchText(title, body)
	}
	allowed["updated_at"] = time.Now().UTC()

	filter := bson.M{"_id": listingID, "user_id": userID}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Listing
	err = db.WithTimeout(ctx, "listing.update", s.cfg.OpTimeout, func(ctx context.Context) error {
		return s.db.Collection(db.ListingsCollection).
			FindOneAndUpdate(ctx, filter, bson.M{"$set": allowed}, opts).
			Decode(&updated)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update listing %s: %w", listingID.Hex(), err)
	}
	return &updated, nil
}

// Transition moves a listing along the lifecycle state machine. All
// guards (edge validity, image minimum, unpaid-active quota) are
// enforced here and nowhere else, atomically:
//
//   - the quota is a compare-and-swap on the owner's counter document,
//     which serializes concurrent activations per user;
//   - the status flip is a single conditional update whose filter pins
//     the expected current status and, on activation, the image minimum.
//
// A counter increment whose status flip subsequently fails is rolled
// back by a compensating decrement.
func (s *listingService) Transition(ctx context.Context, listingID, userID primitive.ObjectID, to refdata.ListingStatus) error {
	if !refdata.ValidStatus(to) {
		return apperrors.NewValidation("status", "unknown listing status "+string(to))
	}

	listing, err := s.FindListingByID(ctx, listingID)
	if err != nil {
		return err
	}
	if listing.UserID != userID {
		return apperrors.ErrNotFound
	}

	from := listing.Status
	if !refdata.CanTransition(from, to) {
		return &apperrors.InvalidTransitionError{From: string(from), To: string(to)}
	}

	entering := to == refdata.StatusActive
	leaving := from == refdata.StatusActive
	unpaid := listing.Unpaid()

	// Quota guard: claim a slot before flipping the status. The $lt
	// filter makes claim-and-count one atomic step on the user document.
	if entering && unpaid {
		if err := s.claimQuotaSlot(ctx, userID); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	filter := bson.M{"_id": listingID, "user_id": userID, "status": from}
	set := bson.M{"status": to, "updated_at": now}
	if entering {
		filter["image_count"] = bson.M{"$gte": s.cfg.MinListingImages}
		set["activated_at"] = now
	}

	err = db.WithTimeout(ctx, "listing.transition", s.cfg.OpTimeout, func(ctx context.Context) error {
		result, err := s.db.Collection(db.ListingsCollection).UpdateOne(ctx, filter, bson.M{"$set": set})
		if err != nil {
			return err
		}
		if result.MatchedCount == 0 {
			return mongo.ErrNoDocuments
		}
		return nil
	})
	if err != nil {
		if entering && unpaid {
			s.releaseQuotaSlot(context.WithoutCancel(ctx), userID)
		}
		if errors.Is(err, mongo.ErrNoDocuments) {
			return s.diagnoseTransitionFailure(ctx, listingID, from, to, entering)
		}
		return fmt.Errorf("db error transitioning listing %s: %w", listingID.Hex(), err)
	}

	// Leaving Active frees the quota slot this listing held.
	if leaving && unpaid {
		s.releaseQuotaSlot(context.WithoutCancel(ctx), userID)
	}

	s.logActivity(userID, &listingID, "listing_transition", string(from), string(to))
	return nil
}

// claimQuotaSlot increments the user's unpaid-active counter iff it is
// still under the cap.
func (s *listingService) claimQuotaSlot(ctx context.Context, userID primitive.ObjectID) error {
	return db.WithTimeout(ctx, "listing.quota_claim", s.cfg.OpTimeout, func(ctx context.Context) error {
		result, err := s.db.Collection(db.UsersCollection).UpdateOne(ctx,
			bson.M{"_id": userID, "active_unpaid_listings": bson.M{"$lt": s.cfg.MaxUnpaidActiveListings}},
			bson.M{"$inc": bson.M{"active_unpaid_listings": 1}},
		)
		if err != nil {
			return err
		}
		if result.MatchedCount == 0 {
			return &apperrors.QuotaExceededError{Limit: s.cfg.MaxUnpaidActiveListings}
		}
		return nil
	})
}

// releaseQuotaSlot decrements the counter, flooring at zero. Failures
// are logged, not returned: a stuck slot is recoverable, a double
// decrement is not.
func (s *listingService) releaseQuotaSlot(ctx context.Context, userID primitive.ObjectID) {
	err := db.WithTimeout(ctx, "listing.quota_release", s.cfg.OpTimeout, func(ctx context.Context) error {
		_, err := s.db.Collection(db.UsersCollection).UpdateOne(ctx,
			bson.M{"_id": userID, "active_unpaid_listings": bson.M{"$gt": 0}},
			bson.M{"$inc": bson.M{"active_unpaid_listings": -1}},
		)
		return err
	})
	if err != nil {
		log.Printf("WARN: failed to release quota slot for user %s: %v", userID.Hex(), err)
	}
}

// diagnoseTransitionFailure re-reads the listing to turn a generic
// conditional-update miss into the specific guard error.
func (s *listingService) diagnoseTransitionFailure(ctx context.Context, listingID primitive.ObjectID, from, to refdata.ListingStatus, entering bool) error {
	fresh, err := s.FindListingByID(ctx, listingID)
	if err != nil {
		return err
	}
	if fresh.Status != from {
		// Lost a race with another transition.
		return &apperrors.InvalidTransitionError{From: string(fresh.Status), To: string(to)}
	}
	if entering && fresh.ImageCount < s.cfg.MinListingImages {
		return &apperrors.InsufficientImagesError{Have: fresh.ImageCount, Need: s.cfg.MinListingImages}
	}
	return fmt.Errorf("failed to transition listing %s from %s to %s (condition not met)", listingID.Hex(), from, to)
}

// AttachImage appends an image at the next position. The unique
// (listing_id, position) index catches concurrent appends; db.Try
// recomputes the position and retries. The listing's denormalized
// image_count is incremented after a successful insert so activation
// guards can read it atomically.
func (s *listingService) AttachImage(ctx context.Context, listingID, userID primitive.ObjectID, key string) (*models.ListingImage, error) {
	if key == "" {
		return nil, apperrors.NewValidation("key", "required")
	}
	listing, err := s.FindListingByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.UserID != userID {
		return nil, apperrors.ErrNotFound
	}

	images := s.db.Collection(db.ListingImagesCollection)
	var image *models.ListingImage

	err = db.WithTimeout(ctx, "listing.attach_image", s.cfg.OpTimeout, func(ctx context.Context) error {
		return db.Try(func() error {
			opts := options.FindOne().SetSort(bson.D{{Key: "position", Value: -1}})
			next := 0
			var last models.ListingImage
			err := images.FindOne(ctx, bson.M{"listing_id": listingID}, opts).Decode(&last)
			if err == nil {
				next = last.Position + 1
			} else if !errors.Is(err, mongo.ErrNoDocuments) {
				return err
			}

			image = &models.ListingImage{
				Base:      models.NewBase(),
				ListingID: listingID,
				Key:       key,
				Position:  next,
				CreatedAt: time.Now().UTC(),
			}
			_, insertErr := images.InsertOne(ctx, image)
			return insertErr
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to attach image to listing %s: %w", listingID.Hex(), err)
	}

	err = db.WithTimeout(ctx, "listing.image_count_inc", s.cfg.OpTimeout, func(ctx context.Context) error {
		_, err := s.db.Collection(db.ListingsCollection).UpdateByID(ctx, listingID, bson.M{
			"$inc": bson.M{"image_count": 1},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("image attached but count update failed for listing %s: %w", listingID.Hex(), err)
	}
	return image, nil
}

// DetachImage removes an image and compacts the positions above it so
// ordering stays contiguous. Dropping below the activation minimum does
// NOT revert an Active status; the image invariant is enforced only at
// the transition boundary.
func (s *listingService) DetachImage(ctx context.Context, listingID, userID, imageID primitive.ObjectID) error {
	listing, err := s.FindListingByID(ctx, listingID)
	if err != nil {
		return err
	}
	if listing.UserID != userID {
		return apperrors.ErrNotFound
	}

	images := s.db.Collection(db.ListingImagesCollection)
	var removed models.ListingImage
	err = db.WithTimeout(ctx, "listing.detach_image", s.cfg.OpTimeout, func(ctx context.Context) error {
		return images.FindOneAndDelete(ctx, bson.M{"_id": imageID, "listing_id": listingID}).Decode(&removed)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("failed to detach image %s: %w", imageID.Hex(), err)
	}

	err = db.WithTimeout(ctx, "listing.image_compact", s.cfg.OpTimeout, func(ctx context.Context) error {
		if _, err := images.UpdateMany(ctx,
			bson.M{"listing_id": listingID, "position": bson.M{"$gt": removed.Position}},
			bson.M{"$inc": bson.M{"position": -1}},
		); err != nil {
			return err
		}
		_, err := s.db.Collection(db.ListingsCollection).UpdateByID(ctx, listingID, bson.M{
			"$inc": bson.M{"image_count": -1},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("image removed but compaction failed for listing %s: %w", listingID.Hex(), err)
	}
	return nil
}

// ListImages returns a listing's images in position order.
func (s *listingService) ListImages(ctx context.Context, listingID primitive.ObjectID) ([]models.ListingImage, error) {
	var result []models.ListingImage
	err := db.WithTimeout(ctx, "listing.list_images", s.cfg.OpTimeout, func(ctx context.Context) error {
		cursor, err := s.db.Collection(db.ListingImagesCollection).Find(ctx,
			bson.M{"listing_id": listingID},
			options.Find().SetSort(bson.D{{Key: "position", Value: 1}}),
		)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)
		return cursor.All(ctx, &result)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list images for listing %s: %w", listingID.Hex(), err)
	}
	return result, nil
}

// FindListingsByUserID returns all of a user's listings, any status,
// newest first. Owner dashboard view.
func (s *listingService) FindListingsByUserID(ctx context.Context, userID primitive.ObjectID) ([]models.Listing, error) {
	var listings []models.Listing
	err := db.WithTimeout(ctx, "listing.by_user", s.cfg.OpTimeout, func(ctx context.Context) error {
		cursor, err := s.db.Collection(db.ListingsCollection).Find(ctx,
			bson.M{"user_id": userID},
			options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
		)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)
		return cursor.All(ctx, &listings)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find listings for user %s: %w", userID.Hex(), err)
	}
	return listings, nil
}

// AttachPayment marks a listing quota-exempt by referencing a payment.
// At most one payment per listing; a second attach fails. If the listing
// was Active and unpaid, its quota slot is released.
func (s *listingService) AttachPayment(ctx context.Context, listingID, userID, paymentID primitive.ObjectID) error {
	var previous models.Listing
	err := db.WithTimeout(ctx, "listing.attach_payment", s.cfg.OpTimeout, func(ctx context.Context) error {
		return s.db.Collection(db.ListingsCollection).FindOneAndUpdate(ctx,
			bson.M{"_id": listingID, "user_id": userID, "payment_id": bson.M{"$exists": false}},
			bson.M{"$set": bson.M{"payment_id": paymentID, "updated_at": time.Now().UTC()}},
		).Decode(&previous)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Not found, not owned, or already paid.
			existing, findErr := s.FindListingByID(ctx, listingID)
			if findErr != nil {
				return findErr
			}
			if existing.UserID != userID {
				return apperrors.ErrNotFound
			}
			return apperrors.NewValidation("payment_id", "listing already references a payment")
		}
		return fmt.Errorf("failed to attach payment to listing %s: %w", listingID.Hex(), err)
	}

	if previous.Status == refdata.StatusActive && previous.PaymentID == nil {
		s.releaseQuotaSlot(context.WithoutCancel(ctx), userID)
	}

	s.logActivity(userID, &listingID, "listing_payment_attached", "", "")
	return nil
}

// logActivity appends to the activity log, best-effort. Never fails the
// caller.
func (s *listingService) logActivity(userID primitive.ObjectID, listingID *primitive.ObjectID, action, from, to string) {
	if s.activity == nil {
		return
	}
	s.activity.Record(context.Background(), models.ActivityEntry{
		UserID:     userID,
		ListingID:  listingID,
		Action:     action,
		FromStatus: from,
		ToStatus:   to,
	})
}
