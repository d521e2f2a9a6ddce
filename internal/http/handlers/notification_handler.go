package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/skillswap-backend/internal/dto"
	"github.com/ignatzorin/skillswap-backend/internal/http/handlers/common"
	"github.com/ignatzorin/skillswap-backend/internal/interface/http/response"
	"github.com/ignatzorin/skillswap-backend/internal/models"
)

// Inbox входящие уведомления пользователя.
type Inbox interface {
	List(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, int, error)
	Get(ctx context.Context, id, userID uuid.UUID) (*models.Notification, error)
	MarkAsRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
}

// NotificationHandler обслуживает маршруты уведомлений.
type NotificationHandler struct {
	notifications Inbox
}

// NewNotificationHandler создаёт новый хэндлер.
func NewNotificationHandler(notifications Inbox) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// ListNotifications обрабатывает GET /api/notifications?unreadOnly=true.
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	limit, offset := common.GetPagination(c)
	unreadOnly := false
	if v := common.BoolQuery(c, "unreadOnly"); v != nil {
		unreadOnly = *v
	}

	items, total, err := h.notifications.List(c.Request.Context(), userID, limit, offset, unreadOnly)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, items, total, limit, offset)
}

// UnreadCount обрабатывает GET /api/notifications/unread-count.
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	count, err := h.notifications.CountUnread(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.UnreadCountResponse{Count: count})
}

// GetNotification обрабатывает GET /api/notifications/:id.
func (h *NotificationHandler) GetNotification(c *gin.Context) {
	userID, id, ok := notificationSubject(c)
	if !ok {
		return
	}
	n, err := h.notifications.Get(c.Request.Context(), id, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, n)
}

// MarkAsRead обрабатывает PUT /api/notifications/:id/read.
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	userID, id, ok := notificationSubject(c)
	if !ok {
		return
	}
	if err := h.notifications.MarkAsRead(c.Request.Context(), id, userID); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessMessage(c, "уведомление прочитано", nil)
}

// MarkAllAsRead обрабатывает PUT /api/notifications/read-all.
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	updated, err := h.notifications.MarkAllAsRead(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessMessage(c, "все уведомления прочитаны", gin.H{"updated": updated})
}

// DeleteNotification обрабатывает DELETE /api/notifications/:id.
func (h *NotificationHandler) DeleteNotification(c *gin.Context) {
	userID, id, ok := notificationSubject(c)
	if !ok {
		return
	}
	if err := h.notifications.Delete(c.Request.Context(), id, userID); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessMessage(c, "уведомление удалено", nil)
}

func notificationSubject(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	id, ok := common.UUIDParam(c, "id")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return userID, id, true
}
