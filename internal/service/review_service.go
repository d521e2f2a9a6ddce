package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/skillswap-backend/internal/domain/valueobject"
	"github.com/ignatzorin/skillswap-backend/internal/models"
	"github.com/ignatzorin/skillswap-backend/internal/pkg/apperror"
	"github.com/ignatzorin/skillswap-backend/internal/repository"
	"github.com/ignatzorin/skillswap-backend/internal/validation"
)

const (
	// ReviewEditWindow отзыв можно редактировать 7 дней после создания.
	ReviewEditWindow = 7 * 24 * time.Hour
	// ReviewDeleteWindow отзыв можно удалить в течение суток после создания.
	ReviewDeleteWindow = 24 * time.Hour
)

type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error)
	GetBySessionAndReviewer(ctx context.Context, sessionID, reviewerID uuid.UUID) (*models.Review, error)
	ListForUser(ctx context.Context, revieweeID uuid.UUID, limit, offset int) ([]models.Review, int, error)
	ListForSession(ctx context.Context, sessionID uuid.UUID) ([]models.Review, error)
	Summary(ctx context.Context, revieweeID uuid.UUID) (*models.ReviewSummary, error)
	Update(ctx context.Context, review *models.Review) error
	SetHidden(ctx context.Context, id uuid.UUID, hidden bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// SessionReader нужен отзывам для проверки сессии.
type SessionReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
}

// StatsRecalculator пересчёт статистики после изменения отзывов и сессий.
type StatsRecalculator interface {
	RecalculateQuietly(ctx context.Context, userIDs ...uuid.UUID)
}

// EventNotifier создание уведомлений без влияния на основную операцию.
type EventNotifier interface {
	NotifyQuietly(ctx context.Context, ev NotificationEvent)
}

// ReviewInput оценки и комментарий отзыва.
type ReviewInput struct {
	Rating              int
	Comment             string
	SkillRating         *int
	CommunicationRating *int
	PunctualityRating   *int
}

// UserReviews отзывы о пользователе со сводкой.
type UserReviews struct {
	Reviews []models.Review
	Total   int
	Summary *models.ReviewSummary
}

type ReviewService struct {
	repo     ReviewRepository
	sessions SessionReader
	stats    StatsRecalculator
	notifier EventNotifier
	now      func() time.Time
}

func NewReviewService(repo ReviewRepository, sessions SessionReader, stats StatsRecalculator, notifier EventNotifier) *ReviewService {
	return &ReviewService{repo: repo, sessions: sessions, stats: stats, notifier: notifier, now: time.Now}
}

// Create оставляет отзыв о втором участнике завершённой сессии.
func (s *ReviewService) Create(ctx context.Context, sessionID, reviewerID uuid.UUID, in ReviewInput) (*models.Review, error) {
	if err := validateReviewInput(&in); err != nil {
		return nil, err
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, apperror.ErrSessionNotFound
		}
		return nil, err
	}
	if !session.IsParticipant(reviewerID) {
		return nil, apperror.Forbidden("отзыв может оставить только участник сессии")
	}
	if session.Status != string(valueobject.SessionStatusCompleted) {
		return nil, apperror.BadRequest("отзыв можно оставить только после завершения сессии")
	}

	existing, err := s.repo.GetBySessionAndReviewer(ctx, sessionID, reviewerID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.Conflict("вы уже оставили отзыв на эту сессию")
	}

	review := &models.Review{
		SessionID:           sessionID,
		ReviewerID:          reviewerID,
		RevieweeID:          session.Counterpart(reviewerID),
		Rating:              in.Rating,
		SkillRating:         in.SkillRating,
		CommunicationRating: in.CommunicationRating,
		PunctualityRating:   in.PunctualityRating,
		Comment:             in.Comment,
	}
	if err := s.repo.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrReviewExists) {
			return nil, apperror.Conflict("вы уже оставили отзыв на эту сессию")
		}
		return nil, err
	}

	s.stats.RecalculateQuietly(ctx, review.RevieweeID)
	if s.notifier != nil {
		sender := reviewerID
		s.notifier.NotifyQuietly(ctx, NotificationEvent{
			RecipientID: review.RevieweeID,
			SenderID:    &sender,
			Type:        models.NotificationNewReview,
			Title:       "Новый отзыв",
			Message:     "Вам оставили отзыв о сессии «" + session.SkillName + "»",
			Data:        map[string]any{"reviewId": review.ID, "sessionId": sessionID, "rating": review.Rating},
		})
	}
	return review, nil
}

// Update меняет отзыв автора в течение 7 дней после создания.
func (s *ReviewService) Update(ctx context.Context, reviewID, userID uuid.UUID, in ReviewInput) (*models.Review, error) {
	if err := validateReviewInput(&in); err != nil {
		return nil, err
	}

	review, err := s.ownReview(ctx, reviewID, userID)
	if err != nil {
		return nil, err
	}
	if s.now().Sub(review.CreatedAt) > ReviewEditWindow {
		return nil, apperror.BadRequest("отзыв можно редактировать только в течение 7 дней")
	}

	review.Rating = in.Rating
	review.Comment = in.Comment
	review.SkillRating = in.SkillRating
	review.CommunicationRating = in.CommunicationRating
	review.PunctualityRating = in.PunctualityRating

	if err := s.repo.Update(ctx, review); err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return nil, apperror.ErrReviewNotFound
		}
		return nil, err
	}

	s.stats.RecalculateQuietly(ctx, review.RevieweeID)
	return review, nil
}

// Delete удаляет отзыв автора в течение 24 часов после создания.
func (s *ReviewService) Delete(ctx context.Context, reviewID, userID uuid.UUID) error {
	review, err := s.ownReview(ctx, reviewID, userID)
	if err != nil {
		return err
	}
	if s.now().Sub(review.CreatedAt) > ReviewDeleteWindow {
		return apperror.BadRequest("отзыв можно удалить только в течение 24 часов")
	}

	if err := s.repo.Delete(ctx, reviewID); err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return apperror.ErrReviewNotFound
		}
		return err
	}

	s.stats.RecalculateQuietly(ctx, review.RevieweeID)
	return nil
}

// SetHidden скрывает отзыв из выдачи и из рейтинга. Только для администраторов.
func (s *ReviewService) SetHidden(ctx context.Context, reviewID uuid.UUID, hidden bool) (*models.Review, error) {
	review, err := s.get(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetHidden(ctx, reviewID, hidden); err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return nil, apperror.ErrReviewNotFound
		}
		return nil, err
	}
	review.IsHidden = hidden

	s.stats.RecalculateQuietly(ctx, review.RevieweeID)
	return review, nil
}

// Get возвращает отзыв. Скрытый отзыв видят только автор и адресат.
func (s *ReviewService) Get(ctx context.Context, reviewID, viewerID uuid.UUID, isAdmin bool) (*models.Review, error) {
	review, err := s.get(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.IsHidden && !isAdmin && viewerID != review.ReviewerID && viewerID != review.RevieweeID {
		return nil, apperror.ErrReviewNotFound
	}
	return review, nil
}

// ListForUser возвращает видимые отзывы о пользователе и средние оценки.
func (s *ReviewService) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) (*UserReviews, error) {
	reviews, total, err := s.repo.ListForUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	summary, err := s.repo.Summary(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UserReviews{Reviews: reviews, Total: total, Summary: summary}, nil
}

// ListForSession возвращает отзывы по сессии. Доступно участникам и администраторам.
func (s *ReviewService) ListForSession(ctx context.Context, sessionID, viewerID uuid.UUID, isAdmin bool) ([]models.Review, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, apperror.ErrSessionNotFound
		}
		return nil, err
	}
	if !isAdmin && !session.IsParticipant(viewerID) {
		return nil, apperror.Forbidden("вы не участник этой сессии")
	}
	return s.repo.ListForSession(ctx, sessionID)
}

// CanReview сообщает, может ли пользователь сейчас оставить отзыв на сессию.
func (s *ReviewService) CanReview(ctx context.Context, sessionID, userID uuid.UUID) (bool, string, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return false, "", apperror.ErrSessionNotFound
		}
		return false, "", err
	}
	if !session.IsParticipant(userID) {
		return false, "вы не участник этой сессии", nil
	}
	if session.Status != string(valueobject.SessionStatusCompleted) {
		return false, "сессия ещё не завершена", nil
	}
	existing, err := s.repo.GetBySessionAndReviewer(ctx, sessionID, userID)
	if err != nil {
		return false, "", err
	}
	if existing != nil {
		return false, "отзыв уже оставлен", nil
	}
	return true, "", nil
}

func (s *ReviewService) get(ctx context.Context, reviewID uuid.UUID) (*models.Review, error) {
	review, err := s.repo.GetByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return nil, apperror.ErrReviewNotFound
		}
		return nil, err
	}
	return review, nil
}

func (s *ReviewService) ownReview(ctx context.Context, reviewID, userID uuid.UUID) (*models.Review, error) {
	review, err := s.get(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.ReviewerID != userID {
		return nil, apperror.Forbidden("изменять отзыв может только его автор")
	}
	return review, nil
}

func validateReviewInput(in *ReviewInput) error {
	in.Comment = strings.TrimSpace(in.Comment)

	var fields []apperror.FieldError
	check := func(field string, err error) {
		if err != nil {
			fields = append(fields, apperror.FieldError{Field: field, Message: err.Error()})
		}
	}
	check("rating", validation.ValidateRating("оценка", in.Rating))
	check("skillRating", validation.ValidateOptionalRating("оценка навыка", in.SkillRating))
	check("communicationRating", validation.ValidateOptionalRating("оценка общения", in.CommunicationRating))
	check("punctualityRating", validation.ValidateOptionalRating("оценка пунктуальности", in.PunctualityRating))
	check("comment", validation.ValidateReviewComment(in.Comment))

	if len(fields) > 0 {
		return apperror.Validation("ошибка валидации", fields...)
	}
	return nil
}
