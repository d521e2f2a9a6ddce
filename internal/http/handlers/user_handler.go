package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/skillswap-backend/internal/dto"
	"github.com/ignatzorin/skillswap-backend/internal/http/handlers/common"
	"github.com/ignatzorin/skillswap-backend/internal/interface/http/response"
	"github.com/ignatzorin/skillswap-backend/internal/models"
	"github.com/ignatzorin/skillswap-backend/internal/service"
)

// UserDirectory поиск и публичные профили.
type UserDirectory interface {
	GetPublicProfile(ctx context.Context, userID uuid.UUID, viewerIsAdmin bool) (*models.User, error)
	SearchUsers(ctx context.Context, params models.UserSearchParams) ([]*models.User, int, error)
}

// UserReviewLister отзывы о пользователе.
type UserReviewLister interface {
	ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) (*service.UserReviews, error)
}

// MatchFinder подбор менторов под желаемые навыки.
type MatchFinder interface {
	FindMatches(ctx context.Context, userID uuid.UUID) ([]service.MatchResult, error)
}

type UserHandler struct {
	users   UserDirectory
	reviews UserReviewLister
	matches MatchFinder
}

func NewUserHandler(users UserDirectory, reviews UserReviewLister, matches MatchFinder) *UserHandler {
	return &UserHandler{users: users, reviews: reviews, matches: matches}
}

// SearchUsers обрабатывает GET /api/users?skill=&category=.
func (h *UserHandler) SearchUsers(c *gin.Context) {
	limit, offset := common.GetPagination(c)
	params := models.UserSearchParams{
		Skill:    strings.TrimSpace(c.Query("skill")),
		Category: strings.TrimSpace(c.Query("category")),
		Limit:    limit,
		Offset:   offset,
	}

	users, total, err := h.users.SearchUsers(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, dto.ToPublicUsers(users), total, limit, offset)
}

// GetUser обрабатывает GET /api/users/:id.
func (h *UserHandler) GetUser(c *gin.Context) {
	userID, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}
	user, err := h.users.GetPublicProfile(c.Request.Context(), userID, common.IsAdmin(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToPublicUser(user))
}

// ListUserReviews обрабатывает GET /api/users/:id/reviews.
func (h *UserHandler) ListUserReviews(c *gin.Context) {
	userID, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}
	limit, offset := common.GetPagination(c)

	res, err := h.reviews.ListForUser(c.Request.Context(), userID, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, dto.UserReviewsResponse{Reviews: res.Reviews, Summary: res.Summary}, res.Total, limit, offset)
}

// Matches обрабатывает GET /api/skills/matches.
func (h *UserHandler) Matches(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	matches, err := h.matches.FindMatches(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, matches)
}
