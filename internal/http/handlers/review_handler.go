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

// ReviewManager отзывы участников завершённых сессий.
type ReviewManager interface {
	Create(ctx context.Context, sessionID, reviewerID uuid.UUID, in service.ReviewInput) (*models.Review, error)
	Update(ctx context.Context, reviewID, userID uuid.UUID, in service.ReviewInput) (*models.Review, error)
	Delete(ctx context.Context, reviewID, userID uuid.UUID) error
	Get(ctx context.Context, reviewID, viewerID uuid.UUID, isAdmin bool) (*models.Review, error)
}

type ReviewHandler struct {
	reviews ReviewManager
}

func NewReviewHandler(reviews ReviewManager) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

// CreateReview POST /api/reviews
func (h *ReviewHandler) CreateReview(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	var req dto.CreateReviewRequest
	if !common.BindJSON(c, &req) {
		return
	}

	review, err := h.reviews.Create(c.Request.Context(), req.SessionID, userID, service.ReviewInput{
		Rating:              req.Rating,
		Comment:             req.Comment,
		SkillRating:         req.SkillRating,
		CommunicationRating: req.CommunicationRating,
		PunctualityRating:   req.PunctualityRating,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "отзыв опубликован", review)
}

// GetReview GET /api/reviews/:id
func (h *ReviewHandler) GetReview(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	reviewID, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}
	review, err := h.reviews.Get(c.Request.Context(), reviewID, userID, common.IsAdmin(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, review)
}

// UpdateReview PUT /api/reviews/:id
func (h *ReviewHandler) UpdateReview(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	reviewID, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateReviewRequest
	if !common.BindJSON(c, &req) {
		return
	}

	review, err := h.reviews.Update(c.Request.Context(), reviewID, userID, service.ReviewInput{
		Rating:              req.Rating,
		Comment:             req.Comment,
		SkillRating:         req.SkillRating,
		CommunicationRating: req.CommunicationRating,
		PunctualityRating:   req.PunctualityRating,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessMessage(c, "отзыв обновлён", review)
}

// DeleteReview DELETE /api/reviews/:id
func (h *ReviewHandler) DeleteReview(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	reviewID, ok := common.UUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.reviews.Delete(c.Request.Context(), reviewID, userID); err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessMessage(c, "отзыв удалён", nil)
}
