package repository

import (
	"context"
	"testing"
	"time"

	"crm-inbox-demo/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedConv(t *testing.T, store *MemoryStore, id, contactID string) {
	t.Helper()
	require.NoError(t, store.Create(context.Background(), &models.Conversation{
		ID:        id,
		ContactID: contactID,
		HandledBy: models.HandledByBot,
	}))
}

func TestAppendMessagePreservesOrder(t *testing.T) {
	store := NewMemoryStore()
	seedConv(t, store, "c1", "cust-1")

	base := time.Now()
	for i, content := range []string{"first", "second", "third"} {
		err := store.AppendMessage(context.Background(), &models.Message{
			ID:             content,
			ConversationID: "c1",
			Sender:         "cust-1",
			Content:        content,
			Type:           models.MessageTypeCustomer,
			Timestamp:      base.Add(time.Duration(i) * time.Second),
		}, AppendOptions{CacheLast: true})
		require.NoError(t, err)
	}

	msgs, err := store.ListByConversation(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "first", msgs[0].Content)
	assert.Equal(t, "second", msgs[1].Content)
	assert.Equal(t, "third", msgs[2].Content)
}

func TestAppendMessageUpdatesSummaryAtomically(t *testing.T) {
	store := NewMemoryStore()
	seedConv(t, store, "c1", "cust-1")

	owner := "agent-1"
	err := store.AppendMessage(context.Background(), &models.Message{
		ID:             "m1",
		ConversationID: "c1",
		Sender:         owner,
		Content:        "taking this",
		Type:           models.MessageTypeCustomer,
		Timestamp:      time.Now(),
	}, AppendOptions{CacheLast: true, HandledBy: &owner})
	require.NoError(t, err)

	conv, err := store.GetByID(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "agent-1", conv.HandledBy)
	assert.Equal(t, "taking this", conv.LastMessage)
	assert.Equal(t, 0, conv.Unread)
}

func TestAppendMessageMissingConversation(t *testing.T) {
	store := NewMemoryStore()
	err := store.AppendMessage(context.Background(), &models.Message{
		ID:             "m1",
		ConversationID: "nope",
	}, AppendOptions{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkReadFlipsCustomerMessages(t *testing.T) {
	store := NewMemoryStore()
	seedConv(t, store, "c1", "cust-1")

	require.NoError(t, store.AppendMessage(context.Background(), &models.Message{
		ID:             "m1",
		ConversationID: "c1",
		Sender:         "cust-1",
		Type:           models.MessageTypeCustomer,
		Status:         models.DeliveryDelivered,
		Timestamp:      time.Now(),
	}, AppendOptions{IncrementUnread: true}))
	require.NoError(t, store.AppendMessage(context.Background(), &models.Message{
		ID:             "m2",
		ConversationID: "c1",
		Sender:         models.SenderBot,
		Type:           models.MessageTypeCustomer,
		Status:         models.DeliverySent,
		Timestamp:      time.Now(),
	}, AppendOptions{}))

	require.NoError(t, store.MarkRead(context.Background(), "c1"))

	conv, err := store.GetByID(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 0, conv.Unread)

	msgs, err := store.ListByConversation(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryRead, msgs[0].Status)
	// Outbound delivery state is tracked separately from the unread counter.
	assert.Equal(t, models.DeliverySent, msgs[1].Status)
}

func TestCreateIfAbsentDedupes(t *testing.T) {
	store := NewMemoryStore()
	contacts := store.Contacts()

	created, err := contacts.CreateIfAbsent(context.Background(), &models.Contact{ID: "p1", Name: "Maria"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = contacts.CreateIfAbsent(context.Background(), &models.Contact{ID: "p1", Name: "Other"})
	require.NoError(t, err)
	assert.False(t, created)

	contact, err := contacts.GetByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Maria", contact.Name)
}

func TestDeleteByContactIDRemovesHistory(t *testing.T) {
	store := NewMemoryStore()
	seedConv(t, store, "c1", "cust-1")
	seedConv(t, store, "c2", "cust-2")

	require.NoError(t, store.AppendMessage(context.Background(), &models.Message{
		ID:             "m1",
		ConversationID: "c1",
		Sender:         "cust-1",
		Timestamp:      time.Now(),
	}, AppendOptions{}))

	require.NoError(t, store.DeleteByContactID(context.Background(), "cust-1"))

	_, err := store.GetByID(context.Background(), "c1")
	assert.ErrorIs(t, err, ErrNotFound)
	msgs, err := store.ListByConversation(context.Background(), "c1")
	require.NoError(t, err)
	assert.Empty(t, msgs)

	// Unrelated conversations survive.
	_, err = store.GetByID(context.Background(), "c2")
	assert.NoError(t, err)
}

func TestCountBySender(t *testing.T) {
	store := NewMemoryStore()
	seedConv(t, store, "c1", "cust-1")

	for _, sender := range []string{"cust-1", models.SenderBot, "cust-1"} {
		require.NoError(t, store.AppendMessage(context.Background(), &models.Message{
			ID:             sender + time.Now().String(),
			ConversationID: "c1",
			Sender:         sender,
			Timestamp:      time.Now(),
		}, AppendOptions{}))
	}

	count, err := store.CountBySender(context.Background(), "c1", "cust-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestCreateRejectsSecondConversationForContact(t *testing.T) {
	store := NewMemoryStore()
	seedConv(t, store, "c1", "cust-1")

	err := store.Create(context.Background(), &models.Conversation{
		ID:        "c2",
		ContactID: "cust-1",
		HandledBy: models.HandledByBot,
	})
	assert.ErrorIs(t, err, ErrDuplicate)

	require.NoError(t, store.Create(context.Background(), &models.Conversation{
		ID:        "c3",
		ContactID: "cust-2",
		HandledBy: models.HandledByBot,
	}))
}
