package channel

import (
	"time"

	"messaging/internal/domain"

	"github.com/google/uuid"
)

// Event types carried over the channel. send-message is the only
// request/response style event; everything else is fire-and-forget.
const (
	EventSendMessage     = "send-message"
	EventAck             = "ack"
	EventMessageReceived = "message-received"
	EventTypingStart     = "typing-start"
	EventTypingStop      = "typing-stop"
	EventMessageRead     = "message-read"
)

// WireMessage is the JSON shape of a message on the channel and in the
// history response. Timestamps marshal as RFC 3339 strings.
type WireMessage struct {
	ID             uuid.UUID  `json:"id"`
	ConversationID uuid.UUID  `json:"conversationId"`
	SenderID       uuid.UUID  `json:"senderId"`
	RecipientID    uuid.UUID  `json:"recipientId"`
	Body           string     `json:"body"`
	CreatedAt      time.Time  `json:"createdAt"`
	ReadAt         *time.Time `json:"readAt,omitempty"`
}

func wireFromDomain(m domain.Message) *WireMessage {
	return &WireMessage{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		RecipientID:    m.RecipientID,
		Body:           m.Body,
		CreatedAt:      m.CreatedAt,
		ReadAt:         m.ReadAt,
	}
}

// Envelope is the single frame shape for every channel event; fields not
// meaningful for a given type stay empty.
type Envelope struct {
	Type string `json:"type"`
	Seq  uint64 `json:"seq,omitempty"`

	ConversationID uuid.UUID `json:"conversationId,omitempty"`
	SenderID       uuid.UUID `json:"senderId,omitempty"`
	RecipientID    uuid.UUID `json:"recipientId,omitempty"`
	MessageID      uuid.UUID `json:"messageId,omitempty"`
	Body           string    `json:"body,omitempty"`

	// ack fields
	Success bool   `json:"success,omitempty"`
	Error   string `json:"error,omitempty"`

	Message *WireMessage `json:"message,omitempty"`
	ReadAt  *time.Time   `json:"readAt,omitempty"`
}

// RoutingKey scopes channel events to one conversation.
func RoutingKey(convID domain.ConversationID) string {
	return "conv:" + convID.String()
}
