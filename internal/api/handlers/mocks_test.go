package handlers_test

import (
	"context"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Listd-Technologies/listd-prd/internal/models"
	"github.com/Listd-Technologies/listd-prd/internal/refdata"
	"github.com/Listd-Technologies/listd-prd/internal/services"
)

// --- Mocks ---

// MockListingService implements services.IListingService.
type MockListingService struct {
	mock.Mock
}

func (m *MockListingService) CreateListing(ctx context.Context, userID primitive.ObjectID, in services.CreateListingInput) (*models.Listing, error) {
	args := m.Called(ctx, userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) FindListingByID(ctx context.Context, listingID primitive.ObjectID) (*models.Listing, error) {
	args := m.Called(ctx, listingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) UpdateListing(ctx context.Context, listingID, userID primitive.ObjectID, updates map[string]interface{}) (*models.Listing, error) {
	args := m.Called(ctx, listingID, userID, updates)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) Transition(ctx context.Context, listingID, userID primitive.ObjectID, to refdata.ListingStatus) error {
	args := m.Called(ctx, listingID, userID, to)
	return args.Error(0)
}

func (m *MockListingService) AttachImage(ctx context.Context, listingID, userID primitive.ObjectID, key string) (*models.ListingImage, error) {
	args := m.Called(ctx, listingID, userID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ListingImage), args.Error(1)
}

func (m *MockListingService) DetachImage(ctx context.Context, listingID, userID, imageID primitive.ObjectID) error {
	args := m.Called(ctx, listingID, userID, imageID)
	return args.Error(0)
}

func (m *MockListingService) ListImages(ctx context.Context, listingID primitive.ObjectID) ([]models.ListingImage, error) {
	args := m.Called(ctx, listingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ListingImage), args.Error(1)
}

func (m *MockListingService) FindListingsByUserID(ctx context.Context, userID primitive.ObjectID) ([]models.Listing, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}

func (m *MockListingService) AttachPayment(ctx context.Context, listingID, userID, paymentID primitive.ObjectID) error {
	args := m.Called(ctx, listingID, userID, paymentID)
	return args.Error(0)
}

// MockSearchService implements services.ISearchService.
type MockSearchService struct {
	mock.Mock
}

func (m *MockSearchService) Search(ctx context.Context, params services.SearchParams) (*services.SearchResult, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SearchResult), args.Error(1)
}

func (m *MockSearchService) ResolveArea(ctx context.Context, name string) (*models.Place, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Place), args.Error(1)
}

func (m *MockSearchService) CountByArea(ctx context.Context, mode refdata.TransactionMode, category refdata.PropertyCategory, area string) (int64, error) {
	args := m.Called(ctx, mode, category, area)
	return args.Get(0).(int64), args.Error(1)
}

// MockValuationService implements services.IValuationService.
type MockValuationService struct {
	mock.Mock
}

func (m *MockValuationService) RequestValuation(ctx context.Context, req services.ValuationRequest) (*models.PropertyValuation, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PropertyValuation), args.Error(1)
}

func (m *MockValuationService) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.PropertyValuation, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PropertyValuation), args.Error(1)
}

// MockConversationService implements services.IConversationService.
type MockConversationService struct {
	mock.Mock
}

func (m *MockConversationService) GetOrCreateConversation(ctx context.Context, listingID, userA, userB primitive.ObjectID) (*models.Conversation, error) {
	args := m.Called(ctx, listingID, userA, userB)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Conversation), args.Error(1)
}

func (m *MockConversationService) FindConversationByID(ctx context.Context, conversationID primitive.ObjectID) (*models.Conversation, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Conversation), args.Error(1)
}

func (m *MockConversationService) ListConversations(ctx context.Context, userID primitive.ObjectID) ([]models.Conversation, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Conversation), args.Error(1)
}

func (m *MockConversationService) SendMessage(ctx context.Context, conversationID, senderID primitive.ObjectID, body string) (*models.Message, error) {
	args := m.Called(ctx, conversationID, senderID, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockConversationService) ListMessages(ctx context.Context, conversationID, userID primitive.ObjectID, limit int64, before *primitive.ObjectID) ([]models.Message, error) {
	args := m.Called(ctx, conversationID, userID, limit, before)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockConversationService) MarkRead(ctx context.Context, conversationID, userID primitive.ObjectID) (int64, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockConversationService) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockConversationService) DeleteMessage(ctx context.Context, messageID, senderID primitive.ObjectID) error {
	args := m.Called(ctx, messageID, senderID)
	return args.Error(0)
}

// MockPaymentService implements services.IPaymentService.
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) RecordPayment(ctx context.Context, payment services.CompletedPayment) (*models.UserPayment, error) {
	args := m.Called(ctx, payment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserPayment), args.Error(1)
}

func (m *MockPaymentService) ListPayments(ctx context.Context, userID primitive.ObjectID) ([]models.UserPayment, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.UserPayment), args.Error(1)
}

// MockFavoriteService implements services.IFavoriteService.
type MockFavoriteService struct {
	mock.Mock
}

func (m *MockFavoriteService) AddFavorite(ctx context.Context, userID, listingID primitive.ObjectID) error {
	args := m.Called(ctx, userID, listingID)
	return args.Error(0)
}

func (m *MockFavoriteService) RemoveFavorite(ctx context.Context, userID, listingID primitive.ObjectID) error {
	args := m.Called(ctx, userID, listingID)
	return args.Error(0)
}

func (m *MockFavoriteService) ListFavorites(ctx context.Context, userID primitive.ObjectID) ([]models.Listing, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}

func (m *MockFavoriteService) IsFavorite(ctx context.Context, userID, listingID primitive.ObjectID) (bool, error) {
	args := m.Called(ctx, userID, listingID)
	return args.Bool(0), args.Error(1)
}

// MockObjectStorage implements storage.IObjectStorage.
type MockObjectStorage struct {
	mock.Mock
}

func (m *MockObjectStorage) PresignListingImageUpload(ctx context.Context, userID, listingID, filename, contentType string) (string, string, error) {
	args := m.Called(ctx, userID, listingID, filename, contentType)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockObjectStorage) PresignAvatarUpload(ctx context.Context, userID, filename, contentType string) (string, string, error) {
	args := m.Called(ctx, userID, filename, contentType)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockObjectStorage) PublicURL(key string) string {
	args := m.Called(key)
	return args.String(0)
}

// MockUserService implements services.IUserService.
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) EnsureUser(ctx context.Context, subjectID, email string) (*models.User, error) {
	args := m.Called(ctx, subjectID, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) FindByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) FindBySubjectID(ctx context.Context, subjectID string) (*models.User, error) {
	args := m.Called(ctx, subjectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, updates map[string]interface{}) (*models.User, error) {
	args := m.Called(ctx, userID, updates)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) SetAvatarKey(ctx context.Context, userID primitive.ObjectID, key string) error {
	args := m.Called(ctx, userID, key)
	return args.Error(0)
}

func (m *MockUserService) DeleteUserAndData(ctx context.Context, userID primitive.ObjectID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}
