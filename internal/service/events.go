package service

// Event types pushed to dashboard clients. The UI is a pure subscriber: it
// renders whatever state these events describe and issues commands over the
// HTTP API.
const (
	EventConversationUpdated = "conversation.updated"
	EventMessageCreated      = "message.created"
	EventContactCreated      = "contact.created"
	EventContactUpdated      = "contact.updated"
	EventContactDeleted      = "contact.deleted"
)

// Event is one state-change notification.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// EventPublisher fans events out to connected clients.
type EventPublisher interface {
	Publish(event Event)
}

// NopPublisher discards events. Used when no hub is wired (tests, CLI runs).
type NopPublisher struct{}

func (NopPublisher) Publish(Event) {}
