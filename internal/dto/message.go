package dto

import "messaging/internal/domain"

type HistoryResponse struct {
	ConversationID string           `json:"conversationId"`
	Messages       []domain.Message `json:"messages"`
}
