package service

import (
	"testing"

	"crm-inbox-demo/backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func knownSet(ids ...string) KnownUserFunc {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return func(id string) bool { return set[id] }
}

func TestVisibleConversation(t *testing.T) {
	known := knownSet("agent-1", "agent-2", "mgr-1")

	botOwned := models.Conversation{ID: "c1", HandledBy: models.HandledByBot}
	mine := models.Conversation{ID: "c2", HandledBy: "agent-1"}
	theirs := models.Conversation{ID: "c3", HandledBy: "agent-2"}
	orphaned := models.Conversation{ID: "c4", HandledBy: "departed-user"}

	agent := Viewer{ID: "agent-1"}
	manager := Viewer{ID: "mgr-1", Elevated: true}

	assert.True(t, VisibleConversation(&botOwned, agent, known))
	assert.True(t, VisibleConversation(&mine, agent, known))
	assert.False(t, VisibleConversation(&theirs, agent, known))

	// Unknown owners are restricted rather than shown to everyone.
	assert.False(t, VisibleConversation(&orphaned, agent, known))
	assert.True(t, VisibleConversation(&orphaned, manager, known))

	for _, conv := range []models.Conversation{botOwned, mine, theirs, orphaned} {
		c := conv
		assert.True(t, VisibleConversation(&c, manager, known))
	}
}

func TestVisibleConversationsFilters(t *testing.T) {
	known := knownSet("agent-1", "agent-2")
	convs := []models.Conversation{
		{ID: "c1", HandledBy: models.HandledByBot},
		{ID: "c2", HandledBy: "agent-1"},
		{ID: "c3", HandledBy: "agent-2"},
	}

	visible := VisibleConversations(convs, Viewer{ID: "agent-1"}, known)
	ids := make([]string, 0, len(visible))
	for _, c := range visible {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"c1", "c2"}, ids)

	all := VisibleConversations(convs, Viewer{ID: "mgr-1", Elevated: true}, known)
	assert.Len(t, all, 3)
}

func TestVisibleContacts(t *testing.T) {
	contacts := []models.Contact{
		{ID: "p1", OwnerID: "agent-1"},
		{ID: "p2", OwnerID: "agent-2"},
		{ID: "p3", OwnerID: "mgr-1"},
	}

	mine := VisibleContacts(contacts, Viewer{ID: "agent-1"})
	assert.Len(t, mine, 1)
	assert.Equal(t, "p1", mine[0].ID)

	all := VisibleContacts(contacts, Viewer{ID: "mgr-1", Elevated: true})
	assert.Len(t, all, 3)
}

func TestRoleChangeTakesEffectOnNextRead(t *testing.T) {
	convs := []models.Conversation{
		{ID: "c1", HandledBy: "agent-2"},
	}
	known := knownSet("agent-1", "agent-2")

	// As an agent the conversation is hidden; after promotion the same
	// data is visible because the viewer is rebuilt per read.
	assert.Empty(t, VisibleConversations(convs, Viewer{ID: "agent-1"}, known))
	assert.Len(t, VisibleConversations(convs, Viewer{ID: "agent-1", Elevated: true}, known), 1)
}
