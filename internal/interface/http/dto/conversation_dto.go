package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/skillswap-backend/internal/domain/entity"
)

type OpenConversationRequest struct {
	ParticipantID uuid.UUID `json:"participantId" binding:"required"`
}

type SendMessageRequest struct {
	Content string `json:"content" binding:"required,max=2000"`
}

type ConversationResponse struct {
	ID            uuid.UUID        `json:"id"`
	ParticipantID uuid.UUID        `json:"participantId"`
	LastMessage   *MessageResponse `json:"lastMessage,omitempty"`
	UnreadCount   int              `json:"unreadCount"`
	LastMessageAt *time.Time       `json:"lastMessageAt,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
}

type MessageResponse struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversationId"`
	SenderID       uuid.UUID `json:"senderId"`
	Content        string    `json:"content"`
	IsRead         bool      `json:"isRead"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ToConversationResponse представляет беседу с точки зрения пользователя viewerID.
func ToConversationResponse(conv *entity.Conversation, viewerID uuid.UUID) ConversationResponse {
	return ConversationResponse{
		ID:            conv.ID,
		ParticipantID: conv.Other(viewerID),
		LastMessageAt: conv.LastMessageAt,
		CreatedAt:     conv.CreatedAt,
	}
}

func ToConversationPreviewResponses(previews []*entity.ConversationPreview) []ConversationResponse {
	result := make([]ConversationResponse, len(previews))
	for i, p := range previews {
		resp := ConversationResponse{
			ID:            p.ID,
			ParticipantID: p.ParticipantID,
			UnreadCount:   p.UnreadCount,
			LastMessageAt: p.LastMessageAt,
			CreatedAt:     p.CreatedAt,
		}
		if p.LastMessage != nil {
			m := ToMessageResponse(p.LastMessage)
			resp.LastMessage = &m
		}
		result[i] = resp
	}
	return result
}

func ToMessageResponse(msg *entity.Message) MessageResponse {
	return MessageResponse{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Content:        msg.Content,
		IsRead:         msg.IsRead,
		CreatedAt:      msg.CreatedAt,
	}
}

func ToMessageResponses(msgs []*entity.Message) []MessageResponse {
	result := make([]MessageResponse, len(msgs))
	for i, msg := range msgs {
		result[i] = ToMessageResponse(msg)
	}
	return result
}
