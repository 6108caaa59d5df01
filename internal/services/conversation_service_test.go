package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Listd-Technologies/listd-prd/internal/apperrors"
	"github.com/Listd-Technologies/listd-prd/internal/db"
	"github.com/Listd-Technologies/listd-prd/internal/events"
	"github.com/Listd-Technologies/listd-prd/internal/utils"
)

// capturingPublisher records emitted events for assertions.
type capturingPublisher struct {
	mu     sync.Mutex
	events []events.MessageCreated
}

func (p *capturingPublisher) PublishMessageCreated(ctx context.Context, event events.MessageCreated) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) captured() []events.MessageCreated {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.MessageCreated, len(p.events))
	copy(out, p.events)
	return out
}

func setupConversationService(t *testing.T, dbName string) (IConversationService, *capturingPublisher) {
	database := utils.SetupTestDB(t, dbName, db.ConversationsCollection, db.MessagesCollection)
	require.NoError(t, db.EnsureIndexes(context.Background(), database))
	publisher := &capturingPublisher{}
	return NewConversationService(database, newTestConfig(), publisher), publisher
}

func TestGetOrCreateConversation_Idempotent(t *testing.T) {
	svc, _ := setupConversationService(t, "listd_test_conv_idem")
	listingID := primitive.NewObjectID()
	buyer := primitive.NewObjectID()
	seller := primitive.NewObjectID()

	first, err := svc.GetOrCreateConversation(context.Background(), listingID, buyer, seller)
	require.NoError(t, err)

	// Same pair, both argument orders, must land on the same document.
	second, err := svc.GetOrCreateConversation(context.Background(), listingID, seller, buyer)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// A different listing gets its own conversation.
	other, err := svc.GetOrCreateConversation(context.Background(), primitive.NewObjectID(), buyer, seller)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestGetOrCreateConversation_RejectsSelf(t *testing.T) {
	svc, _ := setupConversationService(t, "listd_test_conv_self")
	userID := primitive.NewObjectID()

	_, err := svc.GetOrCreateConversation(context.Background(), primitive.NewObjectID(), userID, userID)
	assert.True(t, apperrors.IsValidation(err))
}

func TestGetOrCreateConversation_ConcurrentFirstContact(t *testing.T) {
	svc, _ := setupConversationService(t, "listd_test_conv_race")
	listingID := primitive.NewObjectID()
	buyer := primitive.NewObjectID()
	seller := primitive.NewObjectID()

	const n = 5
	results := make([]primitive.ObjectID, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conv, err := svc.GetOrCreateConversation(context.Background(), listingID, buyer, seller)
			if err != nil {
				t.Errorf("concurrent get-or-create failed: %v", err)
				return
			}
			results[i] = conv.ID
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		assert.Equal(t, results[0], results[i], "all racers must converge on one conversation")
	}
}

func TestSendMessage_ParticipantsOnly(t *testing.T) {
	svc, publisher := setupConversationService(t, "listd_test_conv_send")
	listingID := primitive.NewObjectID()
	buyer := primitive.NewObjectID()
	seller := primitive.NewObjectID()
	stranger := primitive.NewObjectID()

	conv, err := svc.GetOrCreateConversation(context.Background(), listingID, buyer, seller)
	require.NoError(t, err)

	message, err := svc.SendMessage(context.Background(), conv.ID, buyer, "Is this still available?")
	require.NoError(t, err)
	assert.Equal(t, buyer, message.SenderID)
	assert.False(t, message.Read)

	_, err = svc.SendMessage(context.Background(), conv.ID, stranger, "let me in")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = svc.SendMessage(context.Background(), conv.ID, buyer, "")
	assert.True(t, apperrors.IsValidation(err))

	captured := publisher.captured()
	require.Len(t, captured, 1)
	assert.Equal(t, buyer, captured[0].SenderID)
	assert.Equal(t, seller, captured[0].RecipientID)
	assert.Equal(t, listingID, captured[0].ListingID)
}

func TestListMessages_PagingAndTombstones(t *testing.T) {
	svc, _ := setupConversationService(t, "listd_test_conv_list")
	buyer := primitive.NewObjectID()
	seller := primitive.NewObjectID()

	conv, err := svc.GetOrCreateConversation(context.Background(), primitive.NewObjectID(), buyer, seller)
	require.NoError(t, err)

	bodies := []string{"one", "two", "three", "four"}
	for _, body := range bodies {
		_, err := svc.SendMessage(context.Background(), conv.ID, buyer, body)
		require.NoError(t, err)
	}

	page1, err := svc.ListMessages(context.Background(), conv.ID, seller, 2, nil)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	assert.Equal(t, "four", page1[0].Body)
	assert.Equal(t, "three", page1[1].Body)

	before := page1[1].ID
	page2, err := svc.ListMessages(context.Background(), conv.ID, seller, 2, &before)
	require.NoError(t, err)
	require.Len(t, page2, 2)
	assert.Equal(t, "two", page2[0].Body)

	// Soft-deleted messages come back as empty-bodied tombstones.
	require.NoError(t, svc.DeleteMessage(context.Background(), page1[0].ID, buyer))
	after, err := svc.ListMessages(context.Background(), conv.ID, seller, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, "", after[0].Body)
	assert.True(t, after[0].Deleted)

	// Non-participants cannot read.
	_, err = svc.ListMessages(context.Background(), conv.ID, primitive.NewObjectID(), 10, nil)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestMarkReadAndUnreadCount(t *testing.T) {
	svc, _ := setupConversationService(t, "listd_test_conv_read")
	buyer := primitive.NewObjectID()
	seller := primitive.NewObjectID()

	conv, err := svc.GetOrCreateConversation(context.Background(), primitive.NewObjectID(), buyer, seller)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := svc.SendMessage(context.Background(), conv.ID, buyer, "ping")
		require.NoError(t, err)
	}
	_, err = svc.SendMessage(context.Background(), conv.ID, seller, "pong")
	require.NoError(t, err)

	// Seller has the buyer's three messages unread; own message excluded.
	n, err := svc.UnreadCount(context.Background(), seller)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	modified, err := svc.MarkRead(context.Background(), conv.ID, seller)
	require.NoError(t, err)
	assert.EqualValues(t, 3, modified)

	n, err = svc.UnreadCount(context.Background(), seller)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	// Second mark is a no-op.
	modified, err = svc.MarkRead(context.Background(), conv.ID, seller)
	require.NoError(t, err)
	assert.EqualValues(t, 0, modified)
}

func TestDeleteMessage_SenderOnly(t *testing.T) {
	svc, _ := setupConversationService(t, "listd_test_conv_delete")
	buyer := primitive.NewObjectID()
	seller := primitive.NewObjectID()

	conv, err := svc.GetOrCreateConversation(context.Background(), primitive.NewObjectID(), buyer, seller)
	require.NoError(t, err)
	message, err := svc.SendMessage(context.Background(), conv.ID, buyer, "oops")
	require.NoError(t, err)

	err = svc.DeleteMessage(context.Background(), message.ID, seller)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	require.NoError(t, svc.DeleteMessage(context.Background(), message.ID, buyer))
}

func TestListConversations_RecencyOrder(t *testing.T) {
	svc, _ := setupConversationService(t, "listd_test_conv_order")
	user := primitive.NewObjectID()
	otherA := primitive.NewObjectID()
	otherB := primitive.NewObjectID()

	convA, err := svc.GetOrCreateConversation(context.Background(), primitive.NewObjectID(), user, otherA)
	require.NoError(t, err)
	convB, err := svc.GetOrCreateConversation(context.Background(), primitive.NewObjectID(), user, otherB)
	require.NoError(t, err)

	// Touch A after B was created; A should list first.
	_, err = svc.SendMessage(context.Background(), convA.ID, user, "bump")
	require.NoError(t, err)

	conversations, err := svc.ListConversations(context.Background(), user)
	require.NoError(t, err)
	require.Len(t, conversations, 2)
	assert.Equal(t, convA.ID, conversations[0].ID)
	assert.Equal(t, convB.ID, conversations[1].ID)

	// Uninvolved users see nothing.
	none, err := svc.ListConversations(context.Background(), primitive.NewObjectID())
	require.NoError(t, err)
	assert.Empty(t, none)
}
