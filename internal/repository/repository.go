package repository

import (
	"context"
	"errors"

	"crm-inbox-demo/backend/internal/models"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a uniqueness
	// constraint, such as a second conversation for one contact.
	ErrDuplicate = errors.New("record already exists")
)

// AppendOptions controls the conversation summary update applied atomically
// with a message append. The append and the summary update are one logical
// step and are never observed partially.
type AppendOptions struct {
	// CacheLast updates the conversation's last-message text/time cache.
	CacheLast bool
	// IncrementUnread bumps the unread counter (inbound customer messages).
	IncrementUnread bool
	// HandledBy, when non-nil, changes the conversation owner in the same
	// step as the append.
	HandledBy *string
}

// ConversationRepository stores conversations and their append-only message
// logs.
type ConversationRepository interface {
	Create(ctx context.Context, conv *models.Conversation) error
	GetByID(ctx context.Context, id string) (*models.Conversation, error)
	GetByContactID(ctx context.Context, contactID string) (*models.Conversation, error)
	List(ctx context.Context) ([]models.Conversation, error)
	// SetHandledBy changes the conversation owner without appending a message.
	SetHandledBy(ctx context.Context, id, handledBy string) error
	// AppendMessage inserts the message and applies the requested summary
	// update in a single transaction.
	AppendMessage(ctx context.Context, msg *models.Message, opts AppendOptions) error
	// MarkRead zeroes the unread counter and flips the contact's
	// customer-facing messages to read.
	MarkRead(ctx context.Context, id string) error
	// DeleteByContactID removes the conversation for the given external party
	// together with its messages. Used by the contact-deletion cascade.
	DeleteByContactID(ctx context.Context, contactID string) error
}

// MessageRepository reads a conversation's message log.
type MessageRepository interface {
	ListByConversation(ctx context.Context, conversationID string) ([]models.Message, error)
	// CountBySender counts messages in the conversation authored by sender.
	CountBySender(ctx context.Context, conversationID, sender string) (int64, error)
}

// ContactRepository stores the CRM records.
type ContactRepository interface {
	// CreateIfAbsent inserts the contact unless one with the same id already
	// exists. Reports whether a row was created. Safe to call concurrently
	// for the same id; at most one insert wins.
	CreateIfAbsent(ctx context.Context, contact *models.Contact) (bool, error)
	GetByID(ctx context.Context, id string) (*models.Contact, error)
	List(ctx context.Context) ([]models.Contact, error)
	Update(ctx context.Context, contact *models.Contact) error
	Delete(ctx context.Context, id string) error
	AddActivity(ctx context.Context, activity *models.Activity) error
	ListActivities(ctx context.Context, contactID string) ([]models.Activity, error)
}

// UserRepository reads and writes the team registry.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	UpdateRole(ctx context.Context, id, role string) error
	// FirstByRole returns any user holding the given role, for resolving
	// fallback assignees when none is configured.
	FirstByRole(ctx context.Context, role string) (*models.User, error)
}

// KnowledgeRepository stores the FAQ entries fed to the automated responder.
type KnowledgeRepository interface {
	List(ctx context.Context) ([]models.KnowledgeEntry, error)
	Create(ctx context.Context, entry *models.KnowledgeEntry) error
	Delete(ctx context.Context, id uint) error
}
