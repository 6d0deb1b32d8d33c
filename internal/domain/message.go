package domain

import "time"

// Message is one chat message between two matched users. Within a
// conversation messages are totally ordered by CreatedAt; the only
// mutation after persist is stamping ReadAt.
type Message struct {
	ID             MessageID      `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID ConversationID `gorm:"type:uuid;not null;index:idx_messages_conv_created,priority:1" json:"conversationId"`
	SenderID       UserID         `gorm:"type:uuid;not null" json:"senderId"`
	RecipientID    UserID         `gorm:"type:uuid;not null" json:"recipientId"`
	Body           string         `gorm:"type:text;not null" json:"body"`
	CreatedAt      time.Time      `gorm:"not null;index:idx_messages_conv_created,priority:2" json:"createdAt"`
	ReadAt         *time.Time     `json:"readAt,omitempty"`
}

func (Message) TableName() string { return "messages" }
