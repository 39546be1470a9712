package models

import (
	"time"
)

// MessageType distinguishes customer-facing messages from internal notes.
type MessageType string

const (
	MessageTypeCustomer MessageType = "customer"
	MessageTypeNote     MessageType = "note"
)

// DeliveryStatus tracks transport delivery for customer-facing messages.
// Internal notes carry no delivery status.
type DeliveryStatus string

const (
	DeliverySent      DeliveryStatus = "sent"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryRead      DeliveryStatus = "read"
)

// SenderBot is the sentinel sender id for automated replies.
const SenderBot = "ai"

// Message is one entry in a conversation's append-only message log.
// Messages are never reordered or deleted; Timestamp is non-decreasing
// within a conversation.
type Message struct {
	ID             string         `json:"id" gorm:"primaryKey"`
	ConversationID string         `json:"conversation_id" gorm:"index;not null"`
	Sender         string         `json:"sender" gorm:"not null"` // external-party id, user id, or SenderBot
	Content        string         `json:"content"`
	Type           MessageType    `json:"type" gorm:"default:customer"`
	Status         DeliveryStatus `json:"status,omitempty"`
	Timestamp      time.Time      `json:"timestamp" gorm:"index"`
	CreatedAt      time.Time      `json:"created_at"`
}

// FromBot reports whether the message was authored by the automated responder.
func (m *Message) FromBot() bool {
	return m.Sender == SenderBot
}

// SendMessageRequest is the request body for sending a message into a conversation.
type SendMessageRequest struct {
	Content string      `json:"content" binding:"required"`
	Type    MessageType `json:"type,omitempty"`
}

// InboundMessageRequest is the request body for the inbound ingestion endpoint
// (the stand-in for a real messaging transport webhook).
type InboundMessageRequest struct {
	ExternalID  string `json:"external_id" binding:"required"`
	DisplayName string `json:"display_name"`
	Content     string `json:"content" binding:"required"`
}
