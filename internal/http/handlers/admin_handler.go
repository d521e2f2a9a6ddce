package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/skillswap-backend/internal/dto"
	"github.com/ignatzorin/skillswap-backend/internal/http/handlers/common"
	"github.com/ignatzorin/skillswap-backend/internal/interface/http/response"
	"github.com/ignatzorin/skillswap-backend/internal/models"
	"github.com/ignatzorin/skillswap-backend/internal/service"
)

// AdminOperations модерация и обслуживание платформы.
type AdminOperations interface {
	Dashboard(ctx context.Context) (*models.Dashboard, error)
	ListUsers(ctx context.Context, params models.UserListParams) ([]*models.User, int, error)
	GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
	UpdateUser(ctx context.Context, actor service.Actor, userID uuid.UUID, in service.AdminUserUpdate) (*models.User, error)
	DeactivateUser(ctx context.Context, actor service.Actor, userID uuid.UUID) error
	Broadcast(ctx context.Context, actor service.Actor, title, message string) (int, error)
	SetReviewHidden(ctx context.Context, reviewID uuid.UUID, hidden bool) (*models.Review, error)
	RecalculateStats(ctx context.Context, userID uuid.UUID) (*models.UserStats, error)
	RecalculateAllStats(ctx context.Context) (int, error)
}

type AdminHandler struct {
	admin AdminOperations
}

func NewAdminHandler(admin AdminOperations) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// Dashboard GET /api/admin/dashboard
func (h *AdminHandler) Dashboard(c *gin.Context) {
	d, err := h.admin.Dashboard(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, d)
}

// ListUsers GET /api/admin/users?search=&role=&isActive=
func (h *AdminHandler) ListUsers(c *gin.Context) {
	limit, offset := common.GetPagination(c)
	params := models.UserListParams{
		Search:   c.Query("search"),
		Role:     c.Query("role"),
		IsActive: common.BoolQuery(c, "isActive"),
		Limit:    limit,
		Offset:   offset,
	}
	users, total, err := h.admin.ListUsers(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, users, total, limit, offset)
}

// GetUser GET /api/admin/users/:id
func (h *AdminHandler) GetUser(c *gin.Context) {
	userID, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}
	user, err := h.admin.GetUser(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, user)
}

// UpdateUser PUT /api/admin/users/:id
func (h *AdminHandler) UpdateUser(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	userID, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.AdminUpdateUserRequest
	if !common.BindJSON(c, &req) {
		return
	}

	user, err := h.admin.UpdateUser(c.Request.Context(), actor, userID, service.AdminUserUpdate{
		DisplayName: req.DisplayName,
		Role:        req.Role,
		IsActive:    req.IsActive,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessMessage(c, "пользователь обновлён", user)
}

// DeactivateUser DELETE /api/admin/users/:id
func (h *AdminHandler) DeactivateUser(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	userID, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.admin.DeactivateUser(c.Request.Context(), actor, userID); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessMessage(c, "пользователь деактивирован", nil)
}

// Broadcast POST /api/admin/notifications/broadcast
func (h *AdminHandler) Broadcast(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req dto.BroadcastRequest
	if !common.BindJSON(c, &req) {
		return
	}
	sent, err := h.admin.Broadcast(c.Request.Context(), actor, req.Title, req.Message)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessMessage(c, "рассылка отправлена", gin.H{"recipients": sent})
}

// HideReview PUT /api/admin/reviews/:id/visibility
func (h *AdminHandler) HideReview(c *gin.Context) {
	reviewID, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.HideReviewRequest
	if !common.BindJSON(c, &req) {
		return
	}
	review, err := h.admin.SetReviewHidden(c.Request.Context(), reviewID, *req.Hidden)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, review)
}

// RecalculateStats POST /api/admin/users/:id/stats/recalculate
func (h *AdminHandler) RecalculateStats(c *gin.Context) {
	userID, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}
	stats, err := h.admin.RecalculateStats(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, stats)
}

// RecalculateAllStats POST /api/admin/stats/recalculate
func (h *AdminHandler) RecalculateAllStats(c *gin.Context) {
	processed, err := h.admin.RecalculateAllStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessMessage(c, "статистика пересчитана", gin.H{"processed": processed})
}

func currentActor(c *gin.Context) (service.Actor, bool) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return service.Actor{}, false
	}
	return service.Actor{ID: userID, Role: common.CurrentUserRole(c)}, true
}
