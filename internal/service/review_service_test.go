package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/skillswap-backend/internal/models"
	"github.com/ignatzorin/skillswap-backend/internal/pkg/apperror"
	"github.com/ignatzorin/skillswap-backend/internal/repository"
)

type mockReviewRepo struct {
	mock.Mock
}

func (m *mockReviewRepo) Create(ctx context.Context, review *models.Review) error {
	args := m.Called(ctx, review)
	if args.Error(0) == nil {
		review.ID = uuid.New()
		review.CreatedAt = time.Now()
	}
	return args.Error(0)
}

func (m *mockReviewRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Review), args.Error(1)
}

func (m *mockReviewRepo) GetBySessionAndReviewer(ctx context.Context, sessionID, reviewerID uuid.UUID) (*models.Review, error) {
	args := m.Called(ctx, sessionID, reviewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Review), args.Error(1)
}

func (m *mockReviewRepo) ListForUser(ctx context.Context, revieweeID uuid.UUID, limit, offset int) ([]models.Review, int, error) {
	args := m.Called(ctx, revieweeID, limit, offset)
	return args.Get(0).([]models.Review), args.Int(1), args.Error(2)
}

func (m *mockReviewRepo) ListForSession(ctx context.Context, sessionID uuid.UUID) ([]models.Review, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).([]models.Review), args.Error(1)
}

func (m *mockReviewRepo) Summary(ctx context.Context, revieweeID uuid.UUID) (*models.ReviewSummary, error) {
	args := m.Called(ctx, revieweeID)
	return args.Get(0).(*models.ReviewSummary), args.Error(1)
}

func (m *mockReviewRepo) Update(ctx context.Context, review *models.Review) error {
	return m.Called(ctx, review).Error(0)
}

func (m *mockReviewRepo) SetHidden(ctx context.Context, id uuid.UUID, hidden bool) error {
	return m.Called(ctx, id, hidden).Error(0)
}

func (m *mockReviewRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type mockSessionReader struct {
	mock.Mock
}

func (m *mockSessionReader) GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

// recordingStats запоминает, для кого запрашивался пересчёт.
type recordingStats struct {
	calls []uuid.UUID
}

func (r *recordingStats) RecalculateQuietly(_ context.Context, ids ...uuid.UUID) {
	r.calls = append(r.calls, ids...)
}

type recordingNotifier struct {
	events []NotificationEvent
}

func (r *recordingNotifier) NotifyQuietly(_ context.Context, ev NotificationEvent) {
	r.events = append(r.events, ev)
}

func completedSession() *models.Session {
	return &models.Session{
		ID:        uuid.New(),
		MentorID:  uuid.New(),
		StudentID: uuid.New(),
		SkillName: "Go",
		Status:    "completed",
	}
}

func TestReviewService_Create_Success(t *testing.T) {
	reviewRepo := new(mockReviewRepo)
	sessions := new(mockSessionReader)
	stats := &recordingStats{}
	notifier := &recordingNotifier{}
	svc := NewReviewService(reviewRepo, sessions, stats, notifier)

	session := completedSession()
	sessions.On("GetByID", mock.Anything, session.ID).Return(session, nil)
	reviewRepo.On("GetBySessionAndReviewer", mock.Anything, session.ID, session.StudentID).Return(nil, nil)
	reviewRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Review")).Return(nil)

	review, err := svc.Create(context.Background(), session.ID, session.StudentID, ReviewInput{Rating: 5, Comment: "  отлично  "})
	require.NoError(t, err)

	assert.Equal(t, session.MentorID, review.RevieweeID)
	assert.Equal(t, "отлично", review.Comment)
	assert.Equal(t, []uuid.UUID{session.MentorID}, stats.calls)
	require.Len(t, notifier.events, 1)
	assert.Equal(t, models.NotificationNewReview, notifier.events[0].Type)
	reviewRepo.AssertExpectations(t)
}

func TestReviewService_Create_RequiresCompletedSession(t *testing.T) {
	reviewRepo := new(mockReviewRepo)
	sessions := new(mockSessionReader)
	svc := NewReviewService(reviewRepo, sessions, &recordingStats{}, nil)

	session := completedSession()
	session.Status = "accepted"
	sessions.On("GetByID", mock.Anything, session.ID).Return(session, nil)

	_, err := svc.Create(context.Background(), session.ID, session.MentorID, ReviewInput{Rating: 4})
	assert.True(t, apperror.IsBadRequest(err))
	reviewRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestReviewService_Create_NonParticipantForbidden(t *testing.T) {
	sessions := new(mockSessionReader)
	svc := NewReviewService(new(mockReviewRepo), sessions, &recordingStats{}, nil)

	session := completedSession()
	sessions.On("GetByID", mock.Anything, session.ID).Return(session, nil)

	_, err := svc.Create(context.Background(), session.ID, uuid.New(), ReviewInput{Rating: 4})
	assert.True(t, apperror.IsForbidden(err))
}

func TestReviewService_Create_Duplicate(t *testing.T) {
	reviewRepo := new(mockReviewRepo)
	sessions := new(mockSessionReader)
	stats := &recordingStats{}
	svc := NewReviewService(reviewRepo, sessions, stats, nil)

	session := completedSession()
	sessions.On("GetByID", mock.Anything, session.ID).Return(session, nil)
	reviewRepo.On("GetBySessionAndReviewer", mock.Anything, session.ID, session.MentorID).Return(&models.Review{ID: uuid.New()}, nil)

	_, err := svc.Create(context.Background(), session.ID, session.MentorID, ReviewInput{Rating: 3})
	assert.True(t, apperror.IsConflict(err))
	assert.Empty(t, stats.calls)
}

func TestReviewService_Create_DuplicateRace(t *testing.T) {
	reviewRepo := new(mockReviewRepo)
	sessions := new(mockSessionReader)
	svc := NewReviewService(reviewRepo, sessions, &recordingStats{}, nil)

	session := completedSession()
	sessions.On("GetByID", mock.Anything, session.ID).Return(session, nil)
	reviewRepo.On("GetBySessionAndReviewer", mock.Anything, session.ID, session.MentorID).Return(nil, nil)
	reviewRepo.On("Create", mock.Anything, mock.Anything).Return(repository.ErrReviewExists)

	_, err := svc.Create(context.Background(), session.ID, session.MentorID, ReviewInput{Rating: 3})
	assert.True(t, apperror.IsConflict(err))
}

func TestReviewService_Create_InvalidRating(t *testing.T) {
	svc := NewReviewService(new(mockReviewRepo), new(mockSessionReader), &recordingStats{}, nil)

	bad := 9
	_, err := svc.Create(context.Background(), uuid.New(), uuid.New(), ReviewInput{Rating: 0, SkillRating: &bad})
	require.True(t, apperror.IsValidation(err))

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Len(t, appErr.Fields, 2)
}

func TestReviewService_Create_SessionNotFound(t *testing.T) {
	sessions := new(mockSessionReader)
	svc := NewReviewService(new(mockReviewRepo), sessions, &recordingStats{}, nil)

	id := uuid.New()
	sessions.On("GetByID", mock.Anything, id).Return(nil, repository.ErrSessionNotFound)

	_, err := svc.Create(context.Background(), id, uuid.New(), ReviewInput{Rating: 5})
	assert.True(t, apperror.IsNotFound(err))
}

func TestReviewService_UpdateWindow(t *testing.T) {
	reviewRepo := new(mockReviewRepo)
	stats := &recordingStats{}
	svc := NewReviewService(reviewRepo, new(mockSessionReader), stats, nil)
	now := time.Now()
	svc.now = func() time.Time { return now }

	reviewer := uuid.New()
	fresh := &models.Review{ID: uuid.New(), ReviewerID: reviewer, RevieweeID: uuid.New(), Rating: 3, CreatedAt: now.Add(-6 * 24 * time.Hour)}
	stale := &models.Review{ID: uuid.New(), ReviewerID: reviewer, RevieweeID: uuid.New(), Rating: 3, CreatedAt: now.Add(-8 * 24 * time.Hour)}
	reviewRepo.On("GetByID", mock.Anything, fresh.ID).Return(fresh, nil)
	reviewRepo.On("GetByID", mock.Anything, stale.ID).Return(stale, nil)
	reviewRepo.On("Update", mock.Anything, fresh).Return(nil)

	updated, err := svc.Update(context.Background(), fresh.ID, reviewer, ReviewInput{Rating: 5, Comment: "лучше"})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Rating)
	assert.Equal(t, []uuid.UUID{fresh.RevieweeID}, stats.calls)

	_, err = svc.Update(context.Background(), stale.ID, reviewer, ReviewInput{Rating: 5})
	assert.True(t, apperror.IsBadRequest(err))

	_, err = svc.Update(context.Background(), fresh.ID, uuid.New(), ReviewInput{Rating: 5})
	assert.True(t, apperror.IsForbidden(err))
}

func TestReviewService_DeleteWindow(t *testing.T) {
	reviewRepo := new(mockReviewRepo)
	stats := &recordingStats{}
	svc := NewReviewService(reviewRepo, new(mockSessionReader), stats, nil)
	now := time.Now()
	svc.now = func() time.Time { return now }

	reviewer := uuid.New()
	fresh := &models.Review{ID: uuid.New(), ReviewerID: reviewer, RevieweeID: uuid.New(), CreatedAt: now.Add(-23 * time.Hour)}
	old := &models.Review{ID: uuid.New(), ReviewerID: reviewer, RevieweeID: uuid.New(), CreatedAt: now.Add(-25 * time.Hour)}
	reviewRepo.On("GetByID", mock.Anything, fresh.ID).Return(fresh, nil)
	reviewRepo.On("GetByID", mock.Anything, old.ID).Return(old, nil)
	reviewRepo.On("Delete", mock.Anything, fresh.ID).Return(nil)

	require.NoError(t, svc.Delete(context.Background(), fresh.ID, reviewer))
	assert.Equal(t, []uuid.UUID{fresh.RevieweeID}, stats.calls)

	assert.True(t, apperror.IsBadRequest(svc.Delete(context.Background(), old.ID, reviewer)))
	reviewRepo.AssertNotCalled(t, "Delete", mock.Anything, old.ID)
}

func TestReviewService_SetHiddenRecalculates(t *testing.T) {
	reviewRepo := new(mockReviewRepo)
	stats := &recordingStats{}
	svc := NewReviewService(reviewRepo, new(mockSessionReader), stats, nil)

	review := &models.Review{ID: uuid.New(), RevieweeID: uuid.New()}
	reviewRepo.On("GetByID", mock.Anything, review.ID).Return(review, nil)
	reviewRepo.On("SetHidden", mock.Anything, review.ID, true).Return(nil)

	got, err := svc.SetHidden(context.Background(), review.ID, true)
	require.NoError(t, err)
	assert.True(t, got.IsHidden)
	assert.Equal(t, []uuid.UUID{review.RevieweeID}, stats.calls)
}

func TestReviewService_CanReview(t *testing.T) {
	reviewRepo := new(mockReviewRepo)
	sessions := new(mockSessionReader)
	svc := NewReviewService(reviewRepo, sessions, &recordingStats{}, nil)

	session := completedSession()
	sessions.On("GetByID", mock.Anything, session.ID).Return(session, nil)
	reviewRepo.On("GetBySessionAndReviewer", mock.Anything, session.ID, session.StudentID).Return(nil, nil)
	reviewRepo.On("GetBySessionAndReviewer", mock.Anything, session.ID, session.MentorID).Return(&models.Review{}, nil)

	ok, _, err := svc.CanReview(context.Background(), session.ID, session.StudentID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, reason, err := svc.CanReview(context.Background(), session.ID, session.MentorID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NotEmpty(t, reason)
}
