package service

import (
	"context"
	"testing"
	"time"

	"crm-inbox-demo/backend/internal/models"
	"crm-inbox-demo/backend/internal/repository"
	"crm-inbox-demo/backend/pkg/jwt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContactService(t *testing.T) (*ContactService, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	svc := NewContactService(store.Contacts(), store.Conversations(), nil, quietLogger())
	return svc, store
}

func seedContact(t *testing.T, store *repository.MemoryStore, id, owner string) {
	t.Helper()
	created, err := store.Contacts().CreateIfAbsent(context.Background(), &models.Contact{
		ID:      id,
		Name:    id,
		Stage:   models.StageContact,
		OwnerID: owner,
	})
	require.NoError(t, err)
	require.True(t, created)
}

func managerClaims(id string) *jwt.JWTClaims {
	return &jwt.JWTClaims{UserID: id, Role: jwt.RoleManager}
}

func agentClaims(id string) *jwt.JWTClaims {
	return &jwt.JWTClaims{UserID: id, Role: jwt.RoleAgent}
}

func TestGetContactHiddenReadsAsAbsent(t *testing.T) {
	svc, store := newTestContactService(t)
	seedContact(t, store, "p1", "agent-2")

	_, err := svc.GetContact(context.Background(), "p1", Viewer{ID: "agent-1"})
	assert.ErrorIs(t, err, ErrContactNotFound)

	contact, err := svc.GetContact(context.Background(), "p1", Viewer{ID: "mgr-1", Elevated: true})
	require.NoError(t, err)
	assert.Equal(t, "p1", contact.ID)
}

func TestUpdateContactStageChangeLogsActivity(t *testing.T) {
	svc, store := newTestContactService(t)
	seedContact(t, store, "p1", "agent-1")

	contact, err := svc.UpdateContact(context.Background(), "p1", models.UpdateContactRequest{
		Stage: models.StageQualification,
	}, "agent-1")
	require.NoError(t, err)
	assert.Equal(t, models.StageQualification, contact.Stage)

	activities, err := svc.ListActivities(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, models.ActivityStage, activities[0].Kind)
	assert.Equal(t, "agent-1", activities[0].AuthorID)
	assert.Contains(t, activities[0].Content, models.StageQualification)
}

func TestUpdateContactRejectsUnknownStage(t *testing.T) {
	svc, store := newTestContactService(t)
	seedContact(t, store, "p1", "agent-1")

	_, err := svc.UpdateContact(context.Background(), "p1", models.UpdateContactRequest{
		Stage: "galaxy-brain",
	}, "agent-1")
	assert.ErrorIs(t, err, ErrInvalidStage)
}

func TestUpdateContactPartialEdit(t *testing.T) {
	svc, store := newTestContactService(t)
	seedContact(t, store, "p1", "agent-1")

	value := 2500.0
	next := time.Now().Add(24 * time.Hour)
	contact, err := svc.UpdateContact(context.Background(), "p1", models.UpdateContactRequest{
		Value:       &value,
		NextAction:  &next,
		Temperature: models.TemperatureHot,
	}, "agent-1")
	require.NoError(t, err)

	assert.Equal(t, 2500.0, contact.Value)
	assert.Equal(t, models.TemperatureHot, contact.Temperature)
	// Untouched fields persist.
	assert.Equal(t, models.StageContact, contact.Stage)
	assert.Equal(t, "agent-1", contact.OwnerID)

	// No stage activity for a non-stage edit.
	activities, err := svc.ListActivities(context.Background(), "p1")
	require.NoError(t, err)
	assert.Empty(t, activities)
}

func TestDeleteContactRequiresManager(t *testing.T) {
	svc, store := newTestContactService(t)
	seedContact(t, store, "p1", "agent-1")

	err := svc.DeleteContact(context.Background(), "p1", agentClaims("agent-1"))
	assert.ErrorIs(t, err, ErrElevatedOnly)

	// Rejected synchronously, nothing was deleted.
	_, err = store.Contacts().GetByID(context.Background(), "p1")
	assert.NoError(t, err)
}

func TestDeleteContactCascadesConversations(t *testing.T) {
	svc, store := newTestContactService(t)
	seedContact(t, store, "p1", "agent-1")
	require.NoError(t, store.Conversations().Create(context.Background(), &models.Conversation{
		ID:        "c1",
		ContactID: "p1",
		HandledBy: models.HandledByBot,
	}))

	require.NoError(t, svc.DeleteContact(context.Background(), "p1", managerClaims("mgr-1")))

	_, err := store.Contacts().GetByID(context.Background(), "p1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = store.Conversations().GetByID(context.Background(), "c1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDeleteContactMissing(t *testing.T) {
	svc, _ := newTestContactService(t)
	err := svc.DeleteContact(context.Background(), "missing", managerClaims("mgr-1"))
	assert.ErrorIs(t, err, ErrContactNotFound)
}
