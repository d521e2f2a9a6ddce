package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/skillswap-backend/internal/models"
	"github.com/ignatzorin/skillswap-backend/internal/repository/common"
)

var (
	// ErrReviewNotFound возвращается, когда отзыв не найден.
	ErrReviewNotFound = errors.New("review not found")
	// ErrReviewExists пользователь уже оставил отзыв на эту сессию.
	ErrReviewExists = errors.New("review already exists")
)

const reviewUniqueConstraint = "reviews_session_reviewer_unique"

// ReviewRepository отвечает за таблицу reviews.
type ReviewRepository struct {
	db *sqlx.DB
}

func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create создаёт отзыв.
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	query := `
		INSERT INTO reviews (session_id, reviewer_id, reviewee_id, rating, skill_rating, communication_rating, punctuality_rating, comment)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, is_hidden, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		review.SessionID, review.ReviewerID, review.RevieweeID, review.Rating,
		review.SkillRating, review.CommunicationRating, review.PunctualityRating, review.Comment,
	).Scan(&review.ID, &review.IsHidden, &review.CreatedAt, &review.UpdatedAt)
	if err != nil {
		if common.IsUniqueViolation(err, reviewUniqueConstraint) {
			return ErrReviewExists
		}
		return fmt.Errorf("review repository: create %w", err)
	}
	return nil
}

// GetByID возвращает отзыв по ID.
func (r *ReviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	review, err := common.GetByID[models.Review](ctx, r.db, "reviews", id, ErrReviewNotFound)
	if err != nil && !errors.Is(err, ErrReviewNotFound) {
		return nil, fmt.Errorf("review repository: get by id %w", err)
	}
	return review, err
}

// GetBySessionAndReviewer возвращает отзыв пользователя на сессию или nil.
func (r *ReviewRepository) GetBySessionAndReviewer(ctx context.Context, sessionID, reviewerID uuid.UUID) (*models.Review, error) {
	var review models.Review
	err := r.db.GetContext(ctx, &review, `SELECT * FROM reviews WHERE session_id = $1 AND reviewer_id = $2`, sessionID, reviewerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("review repository: get by session %w", err)
	}
	return &review, nil
}

// ListForUser возвращает видимые отзывы о пользователе и их количество.
func (r *ReviewRepository) ListForUser(ctx context.Context, revieweeID uuid.UUID, limit, offset int) ([]models.Review, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM reviews WHERE reviewee_id = $1 AND is_hidden = FALSE`, revieweeID); err != nil {
		return nil, 0, fmt.Errorf("review repository: count for user %w", err)
	}

	reviews := []models.Review{}
	err := r.db.SelectContext(ctx, &reviews, `
		SELECT * FROM reviews WHERE reviewee_id = $1 AND is_hidden = FALSE
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, revieweeID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("review repository: list for user %w", err)
	}
	return reviews, total, nil
}

// ListForSession возвращает отзывы по сессии.
func (r *ReviewRepository) ListForSession(ctx context.Context, sessionID uuid.UUID) ([]models.Review, error) {
	reviews := []models.Review{}
	err := r.db.SelectContext(ctx, &reviews, `SELECT * FROM reviews WHERE session_id = $1 ORDER BY created_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("review repository: list for session %w", err)
	}
	return reviews, nil
}

// Summary считает средние оценки по видимым отзывам о пользователе.
func (r *ReviewRepository) Summary(ctx context.Context, revieweeID uuid.UUID) (*models.ReviewSummary, error) {
	var summary models.ReviewSummary
	err := r.db.GetContext(ctx, &summary, `
		SELECT
			COALESCE(AVG(rating), 0) AS average_rating,
			COUNT(*) AS total_reviews,
			AVG(skill_rating) AS average_skill_rating,
			AVG(communication_rating) AS average_communication_rating,
			AVG(punctuality_rating) AS average_punctuality_rating
		FROM reviews WHERE reviewee_id = $1 AND is_hidden = FALSE
	`, revieweeID)
	if err != nil {
		return nil, fmt.Errorf("review repository: summary %w", err)
	}
	return &summary, nil
}

// Update обновляет оценки и комментарий.
func (r *ReviewRepository) Update(ctx context.Context, review *models.Review) error {
	err := r.db.QueryRowxContext(ctx, `
		UPDATE reviews
		SET rating = $2, skill_rating = $3, communication_rating = $4, punctuality_rating = $5,
			comment = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, review.ID, review.Rating, review.SkillRating, review.CommunicationRating, review.PunctualityRating, review.Comment,
	).Scan(&review.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrReviewNotFound
		}
		return fmt.Errorf("review repository: update %w", err)
	}
	return nil
}

// SetHidden скрывает или показывает отзыв.
func (r *ReviewRepository) SetHidden(ctx context.Context, id uuid.UUID, hidden bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE reviews SET is_hidden = $2, updated_at = NOW() WHERE id = $1`, id, hidden)
	if err != nil {
		return fmt.Errorf("review repository: set hidden %w", err)
	}
	return expectAffected(res, ErrReviewNotFound)
}

// Delete удаляет отзыв.
func (r *ReviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("review repository: delete %w", err)
	}
	return expectAffected(res, ErrReviewNotFound)
}
