package service

import (
	"context"
	"errors"

	"crm-inbox-demo/backend/internal/models"
	"crm-inbox-demo/backend/internal/repository"
)

// Read side of the engine. Visibility is recomputed on every call from the
// viewer's current claims; nothing here is cached.

// ListConversations returns the conversations the viewer may see, most
// recently active first.
func (e *Engine) ListConversations(ctx context.Context, viewer Viewer) ([]models.Conversation, error) {
	convs, err := e.convs.List(ctx)
	if err != nil {
		return nil, err
	}
	return VisibleConversations(convs, viewer, e.team.KnownUser(ctx)), nil
}

// GetConversation returns one conversation, honoring viewer visibility.
// Hidden conversations read as absent. The UI uses this to drop its open
// conversation when ownership moves away from the viewer.
func (e *Engine) GetConversation(ctx context.Context, id string, viewer Viewer) (*models.Conversation, error) {
	conv, err := e.convs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	if !VisibleConversation(conv, viewer, e.team.KnownUser(ctx)) {
		return nil, ErrConversationNotFound
	}
	return conv, nil
}

// ListMessages returns the conversation's message log in append order.
func (e *Engine) ListMessages(ctx context.Context, conversationID string, viewer Viewer) ([]models.Message, error) {
	if _, err := e.GetConversation(ctx, conversationID, viewer); err != nil {
		return nil, err
	}
	return e.msgs.ListByConversation(ctx, conversationID)
}
