package models

import (
	"time"
)

// HandledByBot is the sentinel owner value for conversations answered by the
// automated responder. Any other value is a team-member id.
const HandledByBot = "ai"

// Conversation is one chat thread with an external party. Exactly one
// Contact exists per ContactID; name and avatar are denormalized from the
// contact at creation time.
type Conversation struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	ContactID   string    `json:"contact_id" gorm:"uniqueIndex;not null"` // external-party id (phone/handle)
	Name        string    `json:"name"`
	AvatarURL   string    `json:"avatar_url"`
	HandledBy   string    `json:"handled_by" gorm:"default:ai"`
	LastMessage string    `json:"last_message"`
	LastAt      time.Time `json:"last_at"`
	Unread      int       `json:"unread" gorm:"default:0"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BotHandled reports whether the automated responder currently owns the
// conversation.
func (c *Conversation) BotHandled() bool {
	return c.HandledBy == HandledByBot
}

// HumanHandler returns the owning team-member id, or "" when the bot owns
// the conversation.
func (c *Conversation) HumanHandler() string {
	if c.BotHandled() {
		return ""
	}
	return c.HandledBy
}

// TakeOverRequest is the request body for an explicit ownership takeover.
type TakeOverRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// StartConversationRequest is the request body for a human starting a chat
// with an existing contact.
type StartConversationRequest struct {
	ContactID string `json:"contact_id" binding:"required"`
}
