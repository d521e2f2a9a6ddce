package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/skillswap-backend/internal/domain/valueobject"
	"github.com/ignatzorin/skillswap-backend/internal/dto"
	"github.com/ignatzorin/skillswap-backend/internal/http/handlers/common"
	"github.com/ignatzorin/skillswap-backend/internal/interface/http/response"
	"github.com/ignatzorin/skillswap-backend/internal/models"
	"github.com/ignatzorin/skillswap-backend/internal/pkg/apperror"
	"github.com/ignatzorin/skillswap-backend/internal/service"
)

// SessionManager жизненный цикл сессий обучения.
type SessionManager interface {
	Create(ctx context.Context, studentID uuid.UUID, in service.CreateSessionInput) (*service.SessionDetails, error)
	Respond(ctx context.Context, sessionID, userID uuid.UUID, accept bool, message *string) (*service.SessionDetails, error)
	Complete(ctx context.Context, sessionID, userID uuid.UUID) (*service.SessionDetails, error)
	Cancel(ctx context.Context, sessionID, userID uuid.UUID, reason *string) (*service.SessionDetails, error)
	Reschedule(ctx context.Context, sessionID, userID uuid.UUID, newDate time.Time, reason *string) (*service.SessionDetails, error)
	Get(ctx context.Context, sessionID, userID uuid.UUID, isAdmin bool) (*service.SessionDetails, error)
	ListMine(ctx context.Context, filter models.SessionFilter) ([]service.SessionDetails, int, error)
}

// SessionReviewReader отзывы в контексте сессии.
type SessionReviewReader interface {
	ListForSession(ctx context.Context, sessionID, viewerID uuid.UUID, isAdmin bool) ([]models.Review, error)
	CanReview(ctx context.Context, sessionID, userID uuid.UUID) (bool, string, error)
}

type SessionHandler struct {
	sessions SessionManager
	reviews  SessionReviewReader
}

func NewSessionHandler(sessions SessionManager, reviews SessionReviewReader) *SessionHandler {
	return &SessionHandler{sessions: sessions, reviews: reviews}
}

// CreateSession обрабатывает POST /api/sessions.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	var req dto.CreateSessionRequest
	if !common.BindJSON(c, &req) {
		return
	}
	mentorID, ok := req.Counterpart()
	if !ok {
		response.Error(c, apperror.Validation("укажите ментора", apperror.FieldError{Field: "mentorId", Message: "обязательное поле"}))
		return
	}

	session, err := h.sessions.Create(c.Request.Context(), userID, service.CreateSessionInput{
		MentorID:     mentorID,
		SkillID:      req.SkillID,
		SkillWanted:  req.SkillWanted,
		SkillOffered: req.SkillOffered,
		ScheduledAt:  req.RequestedDate,
		Duration:     req.Duration,
		SessionType:  req.SessionType,
		Message:      req.Message,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "запрос на сессию отправлен", dto.ToSessionResponse(session))
}

// ListSessions обрабатывает GET /api/sessions?status=&role=&upcoming=.
func (h *SessionHandler) ListSessions(c *gin.Context) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return
	}
	limit, offset := common.GetPagination(c)
	filter := models.SessionFilter{
		UserID: userID,
		Role:   c.Query("role"),
		Status: c.Query("status"),
		Limit:  limit,
		Offset: offset,
	}
	if upcoming := common.BoolQuery(c, "upcoming"); upcoming != nil {
		filter.Upcoming = *upcoming
	}

	sessions, total, err := h.sessions.ListMine(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, dto.ToSessionResponses(sessions), total, limit, offset)
}

// GetSession обрабатывает GET /api/sessions/:id.
func (h *SessionHandler) GetSession(c *gin.Context) {
	userID, sessionID, ok := h.subject(c)
	if !ok {
		return
	}
	session, err := h.sessions.Get(c.Request.Context(), sessionID, userID, common.IsAdmin(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToSessionResponse(session))
}

// RespondSession обрабатывает PUT /api/sessions/:id/respond.
func (h *SessionHandler) RespondSession(c *gin.Context) {
	userID, sessionID, ok := h.subject(c)
	if !ok {
		return
	}
	var req dto.RespondSessionRequest
	if !common.BindJSON(c, &req) {
		return
	}

	accept := req.Response == string(valueobject.SessionStatusAccepted)
	session, err := h.sessions.Respond(c.Request.Context(), sessionID, userID, accept, req.Message)
	if err != nil {
		response.Error(c, err)
		return
	}
	msg := "сессия отклонена"
	if accept {
		msg = "сессия принята"
	}
	response.SuccessMessage(c, msg, dto.ToSessionResponse(session))
}

// CompleteSession обрабатывает PUT /api/sessions/:id/complete.
func (h *SessionHandler) CompleteSession(c *gin.Context) {
	userID, sessionID, ok := h.subject(c)
	if !ok {
		return
	}
	session, err := h.sessions.Complete(c.Request.Context(), sessionID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessMessage(c, "сессия завершена", dto.ToSessionResponse(session))
}

// CancelSession обрабатывает PUT /api/sessions/:id/cancel.
func (h *SessionHandler) CancelSession(c *gin.Context) {
	userID, sessionID, ok := h.subject(c)
	if !ok {
		return
	}
	var req dto.CancelSessionRequest
	if c.Request.ContentLength != 0 && !common.BindJSON(c, &req) {
		return
	}
	session, err := h.sessions.Cancel(c.Request.Context(), sessionID, userID, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessMessage(c, "сессия отменена", dto.ToSessionResponse(session))
}

// RescheduleSession обрабатывает PUT /api/sessions/:id/reschedule.
func (h *SessionHandler) RescheduleSession(c *gin.Context) {
	userID, sessionID, ok := h.subject(c)
	if !ok {
		return
	}
	var req dto.RescheduleSessionRequest
	if !common.BindJSON(c, &req) {
		return
	}
	session, err := h.sessions.Reschedule(c.Request.Context(), sessionID, userID, req.NewDate, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessMessage(c, "сессия перенесена", dto.ToSessionResponse(session))
}

// ListSessionReviews обрабатывает GET /api/sessions/:id/reviews.
func (h *SessionHandler) ListSessionReviews(c *gin.Context) {
	userID, sessionID, ok := h.subject(c)
	if !ok {
		return
	}
	reviews, err := h.reviews.ListForSession(c.Request.Context(), sessionID, userID, common.IsAdmin(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, reviews)
}

// CanReview обрабатывает GET /api/sessions/:id/can-review.
func (h *SessionHandler) CanReview(c *gin.Context) {
	userID, sessionID, ok := h.subject(c)
	if !ok {
		return
	}
	allowed, reason, err := h.reviews.CanReview(c.Request.Context(), sessionID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.CanReviewResponse{CanReview: allowed, Reason: reason})
}

func (h *SessionHandler) subject(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := common.RequireUser(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	sessionID, ok := common.UUIDParam(c, "id")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return userID, sessionID, true
}
