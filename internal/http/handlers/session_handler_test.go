package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/skillswap-backend/internal/models"
	"github.com/ignatzorin/skillswap-backend/internal/pkg/apperror"
	"github.com/ignatzorin/skillswap-backend/internal/service"
)

type mockSessions struct {
	mock.Mock
}

func (m *mockSessions) Create(ctx context.Context, studentID uuid.UUID, in service.CreateSessionInput) (*service.SessionDetails, error) {
	args := m.Called(ctx, studentID, in)
	d, _ := args.Get(0).(*service.SessionDetails)
	return d, args.Error(1)
}

func (m *mockSessions) Respond(ctx context.Context, sessionID, userID uuid.UUID, accept bool, message *string) (*service.SessionDetails, error) {
	args := m.Called(ctx, sessionID, userID, accept, message)
	d, _ := args.Get(0).(*service.SessionDetails)
	return d, args.Error(1)
}

func (m *mockSessions) Complete(ctx context.Context, sessionID, userID uuid.UUID) (*service.SessionDetails, error) {
	args := m.Called(ctx, sessionID, userID)
	d, _ := args.Get(0).(*service.SessionDetails)
	return d, args.Error(1)
}

func (m *mockSessions) Cancel(ctx context.Context, sessionID, userID uuid.UUID, reason *string) (*service.SessionDetails, error) {
	args := m.Called(ctx, sessionID, userID, reason)
	d, _ := args.Get(0).(*service.SessionDetails)
	return d, args.Error(1)
}

func (m *mockSessions) Reschedule(ctx context.Context, sessionID, userID uuid.UUID, newDate time.Time, reason *string) (*service.SessionDetails, error) {
	args := m.Called(ctx, sessionID, userID, newDate, reason)
	d, _ := args.Get(0).(*service.SessionDetails)
	return d, args.Error(1)
}

func (m *mockSessions) Get(ctx context.Context, sessionID, userID uuid.UUID, isAdmin bool) (*service.SessionDetails, error) {
	args := m.Called(ctx, sessionID, userID, isAdmin)
	d, _ := args.Get(0).(*service.SessionDetails)
	return d, args.Error(1)
}

func (m *mockSessions) ListMine(ctx context.Context, filter models.SessionFilter) ([]service.SessionDetails, int, error) {
	args := m.Called(ctx, filter)
	items, _ := args.Get(0).([]service.SessionDetails)
	return items, args.Int(1), args.Error(2)
}

type stubSessionReviews struct {
	canReview bool
	reason    string
	err       error
}

func (s stubSessionReviews) ListForSession(context.Context, uuid.UUID, uuid.UUID, bool) ([]models.Review, error) {
	return []models.Review{}, s.err
}

func (s stubSessionReviews) CanReview(context.Context, uuid.UUID, uuid.UUID) (bool, string, error) {
	return s.canReview, s.reason, s.err
}

func sessionRouter(userID uuid.UUID, sessions *mockSessions, reviews SessionReviewReader) *gin.Engine {
	h := NewSessionHandler(sessions, reviews)
	r := gin.New()
	g := r.Group("/sessions", withUser(userID, models.RoleUser))
	g.POST("", h.CreateSession)
	g.GET("", h.ListSessions)
	g.GET("/:id", h.GetSession)
	g.PUT("/:id/respond", h.RespondSession)
	g.PUT("/:id/complete", h.CompleteSession)
	g.PUT("/:id/cancel", h.CancelSession)
	g.PUT("/:id/reschedule", h.RescheduleSession)
	g.GET("/:id/can-review", h.CanReview)
	return r
}

func sampleDetails(mentorID, studentID uuid.UUID, status string) *service.SessionDetails {
	return &service.SessionDetails{
		Session: &models.Session{
			ID:          uuid.New(),
			MentorID:    mentorID,
			StudentID:   studentID,
			SkillName:   "Go",
			Status:      status,
			ScheduledAt: time.Now().Add(48 * time.Hour),
			Duration:    60,
			SessionType: "online",
		},
		Mentor:  models.UserSummary{ID: mentorID, DisplayName: "Mentor"},
		Student: models.UserSummary{ID: studentID, DisplayName: "Student"},
	}
}

func TestSessionHandler_CreateSession(t *testing.T) {
	studentID, mentorID := uuid.New(), uuid.New()
	sessions := new(mockSessions)
	when := time.Now().Add(72 * time.Hour).UTC().Truncate(time.Second)

	sessions.On("Create", mock.Anything, studentID, mock.MatchedBy(func(in service.CreateSessionInput) bool {
		return in.MentorID == mentorID && in.SkillWanted == "Go" && in.Duration == 60 && in.ScheduledAt.Equal(when)
	})).Return(sampleDetails(mentorID, studentID, "pending"), nil).Once()

	r := sessionRouter(studentID, sessions, stubSessionReviews{})
	w, env := doJSON(t, r, http.MethodPost, "/sessions", map[string]any{
		"recipientId":   mentorID,
		"skillWanted":   "Go",
		"requestedDate": when,
		"duration":      60,
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, env.Success)
	var data map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "Go", data["skill"].(map[string]any)["name"])
	sessions.AssertExpectations(t)
}

func TestSessionHandler_CreateSession_Validation(t *testing.T) {
	sessions := new(mockSessions)
	r := sessionRouter(uuid.New(), sessions, stubSessionReviews{})

	t.Run("нет ментора", func(t *testing.T) {
		w, env := doJSON(t, r, http.MethodPost, "/sessions", map[string]any{
			"skillWanted":   "Go",
			"requestedDate": time.Now().Add(time.Hour),
			"duration":      60,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, string(apperror.ErrCodeValidation), env.Code)
		require.Len(t, env.Errors, 1)
		assert.Equal(t, "mentorId", env.Errors[0].Field)
	})

	t.Run("неизвестный тип сессии", func(t *testing.T) {
		w, env := doJSON(t, r, http.MethodPost, "/sessions", map[string]any{
			"mentorId":      uuid.New(),
			"requestedDate": time.Now().Add(time.Hour),
			"duration":      60,
			"sessionType":   "telepathy",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, string(apperror.ErrCodeValidation), env.Code)
	})

	sessions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestSessionHandler_Respond(t *testing.T) {
	mentorID := uuid.New()
	details := sampleDetails(mentorID, uuid.New(), "accepted")
	sessions := new(mockSessions)
	sessions.On("Respond", mock.Anything, details.ID, mentorID, true, mock.Anything).Return(details, nil).Once()

	r := sessionRouter(mentorID, sessions, stubSessionReviews{})
	w, env := doJSON(t, r, http.MethodPut, "/sessions/"+details.ID.String()+"/respond", map[string]any{"response": "accepted"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "сессия принята", env.Message)
	sessions.AssertExpectations(t)

	w, _ = doJSON(t, r, http.MethodPut, "/sessions/"+details.ID.String()+"/respond", map[string]any{"response": "maybe"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandler_ServiceErrors(t *testing.T) {
	userID, sessionID := uuid.New(), uuid.New()
	sessions := new(mockSessions)
	sessions.On("Complete", mock.Anything, sessionID, userID).Return(nil, apperror.Forbidden("только ментор может завершить сессию"))
	sessions.On("Get", mock.Anything, sessionID, userID, false).Return(nil, apperror.ErrSessionNotFound)
	sessions.On("Cancel", mock.Anything, sessionID, userID, (*string)(nil)).Return(nil, apperror.Conflict("сессия уже изменена"))

	r := sessionRouter(userID, sessions, stubSessionReviews{})

	w, env := doJSON(t, r, http.MethodPut, "/sessions/"+sessionID.String()+"/complete", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, string(apperror.ErrCodeForbidden), env.Code)

	w, _ = doJSON(t, r, http.MethodGet, "/sessions/"+sessionID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = doJSON(t, r, http.MethodPut, "/sessions/"+sessionID.String()+"/cancel", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(apperror.ErrCodeConflict), env.Code)

	w, _ = doJSON(t, r, http.MethodGet, "/sessions/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandler_ListSessions(t *testing.T) {
	userID := uuid.New()
	sessions := new(mockSessions)
	sessions.On("ListMine", mock.Anything, models.SessionFilter{
		UserID: userID, Role: "mentor", Status: "pending", Upcoming: true, Limit: 5, Offset: 0,
	}).Return([]service.SessionDetails{*sampleDetails(userID, uuid.New(), "pending")}, 7, nil).Once()

	r := sessionRouter(userID, sessions, stubSessionReviews{})
	w, env := doJSON(t, r, http.MethodGet, "/sessions?role=mentor&status=pending&upcoming=true&limit=5", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 7, env.Pagination.Total)
	assert.True(t, env.Pagination.HasMore)
	sessions.AssertExpectations(t)
}

func TestSessionHandler_CanReview(t *testing.T) {
	r := sessionRouter(uuid.New(), new(mockSessions), stubSessionReviews{canReview: false, reason: "сессия ещё не завершена"})
	w, env := doJSON(t, r, http.MethodGet, "/sessions/"+uuid.New().String()+"/can-review", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var data map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, false, data["canReview"])
	assert.Equal(t, "сессия ещё не завершена", data["reason"])
}

func TestSessionHandler_Unauthorized(t *testing.T) {
	h := NewSessionHandler(new(mockSessions), stubSessionReviews{})
	r := gin.New()
	r.GET("/sessions", h.ListSessions)

	w, env := doJSON(t, r, http.MethodGet, "/sessions", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, string(apperror.ErrCodeUnauthorized), env.Code)
}
