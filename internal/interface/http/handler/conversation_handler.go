package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/skillswap-backend/internal/domain/entity"
	"github.com/ignatzorin/skillswap-backend/internal/http/handlers/common"
	"github.com/ignatzorin/skillswap-backend/internal/interface/http/dto"
	"github.com/ignatzorin/skillswap-backend/internal/interface/http/response"
)

const defaultMessagePage = 50

type ConversationOpener interface {
	Execute(ctx context.Context, userID, participantID uuid.UUID) (*entity.Conversation, error)
}

type ConversationLister interface {
	Execute(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.ConversationPreview, error)
}

type MessageSender interface {
	Execute(ctx context.Context, conversationID, senderID uuid.UUID, content string) (*entity.Message, error)
}

type MessageLister interface {
	Execute(ctx context.Context, conversationID, userID uuid.UUID, limit, offset int) ([]*entity.Message, error)
}

type ReadMarker interface {
	Execute(ctx context.Context, conversationID, userID uuid.UUID) (int64, error)
}

// ConversationUseCases сценарии переписки, которые обслуживает хендлер.
type ConversationUseCases struct {
	Open     ConversationOpener
	List     ConversationLister
	Send     MessageSender
	Messages MessageLister
	MarkRead ReadMarker
}

type ConversationHandler struct {
	uc ConversationUseCases
}

func NewConversationHandler(uc ConversationUseCases) *ConversationHandler {
	return &ConversationHandler{uc: uc}
}

// OpenConversation POST /api/conversations
func (h *ConversationHandler) OpenConversation(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	var req dto.OpenConversationRequest
	if !common.BindJSON(c, &req) {
		return
	}

	conv, err := h.uc.Open.Execute(c.Request.Context(), userID, req.ParticipantID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToConversationResponse(conv, userID))
}

// ListMyConversations GET /api/conversations
func (h *ConversationHandler) ListMyConversations(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	limit, offset := common.GetPagination(c)

	previews, err := h.uc.List.Execute(c.Request.Context(), userID, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToConversationPreviewResponses(previews))
}

// SendMessage POST /api/conversations/:id/messages
func (h *ConversationHandler) SendMessage(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	conversationID, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.SendMessageRequest
	if !common.BindJSON(c, &req) {
		return
	}

	msg, err := h.uc.Send.Execute(c.Request.Context(), conversationID, userID, req.Content)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "сообщение отправлено", dto.ToMessageResponse(msg))
}

// ListMessages GET /api/conversations/:id/messages
func (h *ConversationHandler) ListMessages(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	conversationID, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}
	limit, offset := common.GetPagination(c)
	if c.Query("limit") == "" {
		limit = defaultMessagePage
	}

	messages, err := h.uc.Messages.Execute(c.Request.Context(), conversationID, userID, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToMessageResponses(messages))
}

// MarkRead PUT /api/conversations/:id/read
func (h *ConversationHandler) MarkRead(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	conversationID, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}

	marked, err := h.uc.MarkRead.Execute(c.Request.Context(), conversationID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"marked": marked})
}
