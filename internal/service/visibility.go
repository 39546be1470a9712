package service

import (
	"context"

	"crm-inbox-demo/backend/internal/models"
)

// Viewer identifies who is reading. Built from the request's JWT claims on
// every read; never cached across requests, so a role or ownership change
// takes effect immediately.
type Viewer struct {
	ID       string
	Elevated bool
}

// KnownUserFunc reports whether an id names an existing team member. Used to
// detect conversations whose recorded owner no longer exists.
type KnownUserFunc func(id string) bool

// VisibleConversation reports whether the viewer may see the conversation.
// Elevated viewers see everything. Standard viewers see bot-handled
// conversations and their own. A conversation whose owner is not a known
// team member is treated as "owner unknown" and restricted to elevated
// viewers rather than leaking to everyone.
func VisibleConversation(conv *models.Conversation, viewer Viewer, knownUser KnownUserFunc) bool {
	if viewer.Elevated {
		return true
	}
	if conv.BotHandled() {
		return true
	}
	if knownUser != nil && !knownUser(conv.HandledBy) {
		return false
	}
	return conv.HandledBy == viewer.ID
}

// VisibleConversations filters the registry down to what the viewer may see.
func VisibleConversations(convs []models.Conversation, viewer Viewer, knownUser KnownUserFunc) []models.Conversation {
	if viewer.Elevated {
		return convs
	}
	visible := make([]models.Conversation, 0, len(convs))
	for i := range convs {
		if VisibleConversation(&convs[i], viewer, knownUser) {
			visible = append(visible, convs[i])
		}
	}
	return visible
}

// VisibleContact reports whether the viewer may see the CRM record.
func VisibleContact(contact *models.Contact, viewer Viewer) bool {
	if viewer.Elevated {
		return true
	}
	return contact.OwnerID == viewer.ID
}

// VisibleContacts filters the CRM registry down to what the viewer may see.
func VisibleContacts(contacts []models.Contact, viewer Viewer) []models.Contact {
	if viewer.Elevated {
		return contacts
	}
	visible := make([]models.Contact, 0, len(contacts))
	for i := range contacts {
		if VisibleContact(&contacts[i], viewer) {
			visible = append(visible, contacts[i])
		}
	}
	return visible
}

// KnownUser adapts the team registry into a KnownUserFunc.
func (s *UserService) KnownUser(ctx context.Context) KnownUserFunc {
	return func(id string) bool {
		return s.Exists(ctx, id)
	}
}
