package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Listd-Technologies/listd-prd/internal/apperrors"
	"github.com/Listd-Technologies/listd-prd/internal/db"
	"github.com/Listd-Technologies/listd-prd/internal/models"
	"github.com/Listd-Technologies/listd-prd/internal/refdata"
	"github.com/Listd-Technologies/listd-prd/internal/utils"
)

func setupPaymentService(t *testing.T, dbName string) (IPaymentService, IListingService, *mongo.Database) {
	database := utils.SetupTestDB(t, dbName,
		db.UsersCollection, db.ListingsCollection, db.ListingImagesCollection, db.PaymentsCollection)
	require.NoError(t, db.EnsureIndexes(context.Background(), database))
	cfg := newTestConfig()
	listings := NewListingService(database, cfg, nil)
	return NewPaymentService(database, cfg, listings), listings, database
}

func TestRecordPayment_ListingUnlock(t *testing.T) {
	payments, listings, database := setupPaymentService(t, "listd_test_pay_unlock")
	userID := seedUser(t, database)

	listing, err := listings.CreateListing(context.Background(), userID, condoInput("Paid listing"))
	require.NoError(t, err)
	attachImages(t, listings, listing.ID, userID, 3)
	require.NoError(t, listings.Transition(context.Background(), listing.ID, userID, refdata.StatusActive))

	record, err := payments.RecordPayment(context.Background(), CompletedPayment{
		UserID: userID, Type: models.PaymentTypeListingUnlock,
		Amount: 499, CurrencyCode: "PHP", ProcessorRef: "ch_001", ListingID: &listing.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, record.Status)

	fresh, err := listings.FindListingByID(context.Background(), listing.ID)
	require.NoError(t, err)
	require.NotNil(t, fresh.PaymentID)
	assert.Equal(t, record.ID, *fresh.PaymentID)
	assert.False(t, fresh.Unpaid())
}

func TestRecordPayment_ReplayReturnsExisting(t *testing.T) {
	payments, listings, database := setupPaymentService(t, "listd_test_pay_replay")
	userID := seedUser(t, database)

	listing, err := listings.CreateListing(context.Background(), userID, condoInput("Replayed"))
	require.NoError(t, err)

	payload := CompletedPayment{
		UserID: userID, Type: models.PaymentTypeListingUnlock,
		Amount: 499, CurrencyCode: "PHP", ProcessorRef: "ch_replay", ListingID: &listing.ID,
	}
	first, err := payments.RecordPayment(context.Background(), payload)
	require.NoError(t, err)
	second, err := payments.RecordPayment(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	history, err := payments.ListPayments(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestRecordPayment_UnlockFailureKeepsRecord(t *testing.T) {
	payments, _, database := setupPaymentService(t, "listd_test_pay_partial")
	userID := seedUser(t, database)
	missing := primitive.NewObjectID()

	record, err := payments.RecordPayment(context.Background(), CompletedPayment{
		UserID: userID, Type: models.PaymentTypeListingUnlock,
		Amount: 499, CurrencyCode: "PHP", ProcessorRef: "ch_orphan", ListingID: &missing,
	})
	require.Error(t, err, "attaching to a missing listing must surface")
	require.NotNil(t, record, "the payment record itself must stand")

	history, err := payments.ListPayments(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestRecordPayment_Validation(t *testing.T) {
	payments, _, database := setupPaymentService(t, "listd_test_pay_val")
	userID := seedUser(t, database)
	listingID := primitive.NewObjectID()

	cases := []CompletedPayment{
		{UserID: userID, Type: "gift_card", Amount: 499, ProcessorRef: "x", ListingID: &listingID},
		{UserID: userID, Type: models.PaymentTypeListingUnlock, Amount: 0, ProcessorRef: "x", ListingID: &listingID},
		{UserID: userID, Type: models.PaymentTypeListingUnlock, Amount: 499, ProcessorRef: "", ListingID: &listingID},
		{UserID: userID, Type: models.PaymentTypeListingUnlock, Amount: 499, ProcessorRef: "x"},
	}
	for i, payment := range cases {
		_, err := payments.RecordPayment(context.Background(), payment)
		assert.True(t, apperrors.IsValidation(err), "case %d should fail validation", i)
	}
}

func TestRecordPayment_SubscriptionNeedsNoListing(t *testing.T) {
	payments, _, database := setupPaymentService(t, "listd_test_pay_sub")
	userID := seedUser(t, database)

	record, err := payments.RecordPayment(context.Background(), CompletedPayment{
		UserID: userID, Type: models.PaymentTypeSubscription,
		Amount: 1999, CurrencyCode: "PHP", ProcessorRef: "sub_001",
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentTypeSubscription, record.Type)
}

func TestListPayments_NewestFirst(t *testing.T) {
	payments, _, database := setupPaymentService(t, "listd_test_pay_list")
	userID := seedUser(t, database)

	for i, ref := range []string{"sub_a", "sub_b"} {
		_, err := payments.RecordPayment(context.Background(), CompletedPayment{
			UserID: userID, Type: models.PaymentTypeSubscription,
			Amount: float64(1000 + i), CurrencyCode: "PHP", ProcessorRef: ref,
		})
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
	}

	history, err := payments.ListPayments(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "sub_b", history[0].ProcessorRef)
	assert.Equal(t, "sub_a", history[1].ProcessorRef)
}
