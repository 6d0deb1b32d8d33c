package chatclient

import (
	"time"

	"github.com/google/uuid"
)

// Event types on the channel, mirrored from the server.
const (
	eventSendMessage     = "send-message"
	eventAck             = "ack"
	eventMessageReceived = "message-received"
	eventTypingStart     = "typing-start"
	eventTypingStop      = "typing-stop"
	eventMessageRead     = "message-read"
)

// Message is a chat message as the server delivers it.
type Message struct {
	ID             uuid.UUID  `json:"id"`
	ConversationID uuid.UUID  `json:"conversationId"`
	SenderID       uuid.UUID  `json:"senderId"`
	RecipientID    uuid.UUID  `json:"recipientId"`
	Body           string     `json:"body"`
	CreatedAt      time.Time  `json:"createdAt"`
	ReadAt         *time.Time `json:"readAt,omitempty"`
}

// Receipt is a read notification for a message the local user sent.
type Receipt struct {
	ConversationID uuid.UUID
	MessageID      uuid.UUID
	ReaderID       uuid.UUID
	ReadAt         time.Time
}

// Typing reports a peer starting or stopping typing in a conversation.
type Typing struct {
	ConversationID uuid.UUID
	UserID         uuid.UUID
	Active         bool
}

type envelope struct {
	Type string `json:"type"`
	Seq  uint64 `json:"seq,omitempty"`

	ConversationID uuid.UUID `json:"conversationId,omitempty"`
	SenderID       uuid.UUID `json:"senderId,omitempty"`
	RecipientID    uuid.UUID `json:"recipientId,omitempty"`
	MessageID      uuid.UUID `json:"messageId,omitempty"`
	Body           string    `json:"body,omitempty"`

	Success bool   `json:"success,omitempty"`
	Error   string `json:"error,omitempty"`

	Message *Message   `json:"message,omitempty"`
	ReadAt  *time.Time `json:"readAt,omitempty"`
}
