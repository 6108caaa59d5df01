package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Listd-Technologies/listd-prd/internal/apperrors"
	"github.com/Listd-Technologies/listd-prd/internal/config"
	"github.com/Listd-Technologies/listd-prd/internal/db"
	"github.com/Listd-Technologies/listd-prd/internal/models"
	"github.com/Listd-Technologies/listd-prd/internal/refdata"
	"github.com/Listd-Technologies/listd-prd/internal/utils"
)

func newTestConfig() *config.Config {
	return &config.Config{
		MaxUnpaidActiveListings: 2,
		MinListingImages:        3,
		OpTimeout:               5 * time.Second,
		DefaultPageLimit:        20,
		MaxPageLimit:            100,
		ValuationCurrency:       "PHP",
	}
}

func seedUser(t *testing.T, database *mongo.Database) primitive.ObjectID {
	t.Helper()
	user := models.User{
		Base:      models.NewBase(),
		SubjectID: "auth0|" + primitive.NewObjectID().Hex(),
		Email:     primitive.NewObjectID().Hex() + "@example.com",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	_, err := database.Collection(db.UsersCollection).InsertOne(context.Background(), user)
	require.NoError(t, err)
	return user.ID
}

func condoInput(title string) CreateListingInput {
	return CreateListingInput{
		Mode:     refdata.ModeBuy,
		Category: refdata.CategoryCondominium,
		Title:    title,
		Body:     "Fully furnished unit near the CBD",
		Price:    models.Price{Amount: 5_000_000, CurrencyCode: "PHP"},
		Location: models.ListingLocation{
			Address: "Ayala Ave", Region: "NCR", City: "Makati",
			Point: models.NewPoint(121.0244, 14.5547),
		},
		Details: models.PropertyDetails{
			Condominium: &models.CondominiumDetails{FloorArea: 45, Bedrooms: 2, Bathrooms: 1, ParkingSpaces: 1},
		},
	}
}

func attachImages(t *testing.T, svc IListingService, listingID, userID primitive.ObjectID, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := svc.AttachImage(context.Background(), listingID, userID, fmt.Sprintf("listings/%s/img-%d.jpg", listingID.Hex(), i))
		require.NoError(t, err)
	}
}

func setupListingService(t *testing.T, dbName string) (IListingService, *mongo.Database) {
	database := utils.SetupTestDB(t, dbName,
		db.UsersCollection, db.ListingsCollection, db.ListingImagesCollection, db.ActivityLogCollection)
	require.NoError(t, db.EnsureIndexes(context.Background(), database))
	cfg := newTestConfig()
	return NewListingService(database, cfg, NewActivityService(database, cfg)), database
}

func TestCreateListing_DraftWithDerivedSearchText(t *testing.T) {
	svc, database := setupListingService(t, "listd_test_listing_create")
	userID := seedUser(t, database)

	listing, err := svc.CreateListing(context.Background(), userID, condoInput("Cozy 2BR Condo"))
	require.NoError(t, err)

	assert.Equal(t, refdata.StatusDraft, listing.Status)
	assert.Equal(t, 0, listing.ImageCount)
	assert.Contains(t, listing.SearchText, "cozy")
	assert.Contains(t, listing.SearchText, "cbd")
	assert.True(t, listing.Unpaid())
}

func TestCreateListing_RejectsMismatchedDetails(t *testing.T) {
	svc, database := setupListingService(t, "listd_test_listing_details")
	userID := seedUser(t, database)

	in := condoInput("Wrong details")
	in.Category = refdata.CategoryVacantLot // condo details attached

	_, err := svc.CreateListing(context.Background(), userID, in)
	assert.True(t, apperrors.IsValidation(err))
}

func TestTransition_ActivateRequiresThreeImages(t *testing.T) {
	svc, database := setupListingService(t, "listd_test_listing_images")
	userID := seedUser(t, database)

	listing, err := svc.CreateListing(context.Background(), userID, condoInput("Needs images"))
	require.NoError(t, err)

	attachImages(t, svc, listing.ID, userID, 2)

	err = svc.Transition(context.Background(), listing.ID, userID, refdata.StatusActive)
	var imgErr *apperrors.InsufficientImagesError
	require.ErrorAs(t, err, &imgErr)
	assert.Equal(t, 2, imgErr.Have)
	assert.Equal(t, 3, imgErr.Need)

	_, err = svc.AttachImage(context.Background(), listing.ID, userID, "listings/third.jpg")
	require.NoError(t, err)
	require.NoError(t, svc.Transition(context.Background(), listing.ID, userID, refdata.StatusActive))

	fresh, err := svc.FindListingByID(context.Background(), listing.ID)
	require.NoError(t, err)
	assert.Equal(t, refdata.StatusActive, fresh.Status)
	assert.NotNil(t, fresh.ActivatedAt)
}

func TestTransition_InvalidEdges(t *testing.T) {
	svc, database := setupListingService(t, "listd_test_listing_edges")
	userID := seedUser(t, database)

	listing, err := svc.CreateListing(context.Background(), userID, condoInput("Edge cases"))
	require.NoError(t, err)

	// Draft -> Paused is not an allowed edge.
	err = svc.Transition(context.Background(), listing.ID, userID, refdata.StatusPaused)
	var transErr *apperrors.InvalidTransitionError
	assert.ErrorAs(t, err, &transErr)

	// Archived is terminal.
	require.NoError(t, svc.Transition(context.Background(), listing.ID, userID, refdata.StatusArchived))
	err = svc.Transition(context.Background(), listing.ID, userID, refdata.StatusActive)
	assert.ErrorAs(t, err, &transErr)
}

func TestTransition_UnpaidQuotaCap(t *testing.T) {
	svc, database := setupListingService(t, "listd_test_listing_quota")
	userID := seedUser(t, database)

	activate := func(title string) error {
		listing, err := svc.CreateListing(context.Background(), userID, condoInput(title))
		require.NoError(t, err)
		attachImages(t, svc, listing.ID, userID, 3)
		return svc.Transition(context.Background(), listing.ID, userID, refdata.StatusActive)
	}

	require.NoError(t, activate("First"))
	require.NoError(t, activate("Second"))

	err := activate("Third")
	var quotaErr *apperrors.QuotaExceededError
	require.ErrorAs(t, err, &quotaErr)
	assert.Equal(t, 2, quotaErr.Limit)
	assert.Contains(t, err.Error(), "upgrade")
}

func TestTransition_PausingFreesQuotaSlot(t *testing.T) {
	svc, database := setupListingService(t, "listd_test_listing_quota_free")
	userID := seedUser(t, database)

	var listings []primitive.ObjectID
	for i := 0; i < 2; i++ {
		listing, err := svc.CreateListing(context.Background(), userID, condoInput(fmt.Sprintf("Unit %d", i)))
		require.NoError(t, err)
		attachImages(t, svc, listing.ID, userID, 3)
		require.NoError(t, svc.Transition(context.Background(), listing.ID, userID, refdata.StatusActive))
		listings = append(listings, listing.ID)
	}

	// Cap reached; pausing one frees a slot.
	require.NoError(t, svc.Transition(context.Background(), listings[0], userID, refdata.StatusPaused))

	third, err := svc.CreateListing(context.Background(), userID, condoInput("Third"))
	require.NoError(t, err)
	attachImages(t, svc, third.ID, userID, 3)
	require.NoError(t, svc.Transition(context.Background(), third.ID, userID, refdata.StatusActive))

	// And re-activating the paused one hits the cap again.
	err = svc.Transition(context.Background(), listings[0], userID, refdata.StatusActive)
	var quotaErr *apperrors.QuotaExceededError
	assert.ErrorAs(t, err, &quotaErr)
}

func TestTransition_ConcurrentActivationsRespectCap(t *testing.T) {
	svc, database := setupListingService(t, "listd_test_listing_race")
	userID := seedUser(t, database)

	var ids []primitive.ObjectID
	for i := 0; i < 3; i++ {
		listing, err := svc.CreateListing(context.Background(), userID, condoInput(fmt.Sprintf("Race %d", i)))
		require.NoError(t, err)
		attachImages(t, svc, listing.ID, userID, 3)
		ids = append(ids, listing.ID)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(ids))
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id primitive.ObjectID) {
			defer wg.Done()
			errs[i] = svc.Transition(context.Background(), id, userID, refdata.StatusActive)
		}(i, id)
	}
	wg.Wait()

	succeeded := 0
	quotaRefusals := 0
	for _, err := range errs {
		var quotaErr *apperrors.QuotaExceededError
		switch {
		case err == nil:
			succeeded++
		case errors.As(err, &quotaErr):
			quotaRefusals++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 2, succeeded)
	assert.Equal(t, 1, quotaRefusals)

	count, err := database.Collection(db.ListingsCollection).CountDocuments(context.Background(),
		bson.M{"user_id": userID, "status": refdata.StatusActive, "payment_id": bson.M{"$exists": false}})
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestDetachImage_DoesNotRevertActiveStatus(t *testing.T) {
	svc, database := setupListingService(t, "listd_test_listing_detach")
	userID := seedUser(t, database)

	listing, err := svc.CreateListing(context.Background(), userID, condoInput("Detach test"))
	require.NoError(t, err)
	attachImages(t, svc, listing.ID, userID, 3)
	require.NoError(t, svc.Transition(context.Background(), listing.ID, userID, refdata.StatusActive))

	images, err := svc.ListImages(context.Background(), listing.ID)
	require.NoError(t, err)
	require.Len(t, images, 3)

	// Drop below the activation minimum.
	require.NoError(t, svc.DetachImage(context.Background(), listing.ID, userID, images[0].ID))

	fresh, err := svc.FindListingByID(context.Background(), listing.ID)
	require.NoError(t, err)
	assert.Equal(t, refdata.StatusActive, fresh.Status, "image deletion must not revert status")
	assert.Equal(t, 2, fresh.ImageCount)

	// But a fresh activation attempt from Paused fails the image guard.
	require.NoError(t, svc.Transition(context.Background(), listing.ID, userID, refdata.StatusPaused))
	err = svc.Transition(context.Background(), listing.ID, userID, refdata.StatusActive)
	var imgErr *apperrors.InsufficientImagesError
	assert.ErrorAs(t, err, &imgErr)
}

func TestDetachImage_CompactsPositions(t *testing.T) {
	svc, database := setupListingService(t, "listd_test_listing_positions")
	userID := seedUser(t, database)

	listing, err := svc.CreateListing(context.Background(), userID, condoInput("Positions"))
	require.NoError(t, err)
	attachImages(t, svc, listing.ID, userID, 4)

	images, err := svc.ListImages(context.Background(), listing.ID)
	require.NoError(t, err)
	require.Len(t, images, 4)
	// Remove the second image.
	require.NoError(t, svc.DetachImage(context.Background(), listing.ID, userID, images[1].ID))

	after, err := svc.ListImages(context.Background(), listing.ID)
	require.NoError(t, err)
	require.Len(t, after, 3)
	for i, img := range after {
		assert.Equal(t, i, img.Position, "positions must stay contiguous and zero-based")
	}
}

func TestUpdateListing_OwnershipAndSearchText(t *testing.T) {
	svc, database := setupListingService(t, "listd_test_listing_update")
	userID := seedUser(t, database)
	stranger := seedUser(t, database)

	listing, err := svc.CreateListing(context.Background(), userID, condoInput("Original Title"))
	require.NoError(t, err)

	_, err = svc.UpdateListing(context.Background(), listing.ID, stranger, map[string]interface{}{"title": "Hijacked"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	updated, err := svc.UpdateListing(context.Background(), listing.ID, userID, map[string]interface{}{"title": "Brand New Penthouse"})
	require.NoError(t, err)
	assert.Equal(t, "Brand New Penthouse", updated.Title)
	assert.Contains(t, updated.SearchText, "penthouse")

	_, err = svc.UpdateListing(context.Background(), listing.ID, userID, map[string]interface{}{"status": "Active"})
	assert.True(t, apperrors.IsValidation(err), "status must not be updatable outside Transition")
}

func TestAttachPayment_ActiveUnpaidFreesSlot(t *testing.T) {
	svc, database := setupListingService(t, "listd_test_listing_payment")
	userID := seedUser(t, database)

	listing, err := svc.CreateListing(context.Background(), userID, condoInput("To be unlocked"))
	require.NoError(t, err)
	attachImages(t, svc, listing.ID, userID, 3)
	require.NoError(t, svc.Transition(context.Background(), listing.ID, userID, refdata.StatusActive))

	paymentID := primitive.NewObjectID()
	require.NoError(t, svc.AttachPayment(context.Background(), listing.ID, userID, paymentID))

	var user models.User
	require.NoError(t, database.Collection(db.UsersCollection).
		FindOne(context.Background(), bson.M{"_id": userID}).Decode(&user))
	assert.Equal(t, 0, user.ActiveUnpaidListings, "paying for an active listing frees its quota slot")

	// Second payment attach is refused.
	err = svc.AttachPayment(context.Background(), listing.ID, userID, primitive.NewObjectID())
	assert.True(t, apperrors.IsValidation(err))
}
