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

// StatsRepository пересчитывает денормализованную статистику пользователей.
type StatsRepository struct {
	db *sqlx.DB
}

func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

const userStatsQuery = `
	SELECT
		COALESCE((SELECT AVG(rating)::float8 FROM reviews WHERE reviewee_id = $1 AND is_hidden = FALSE), 0) AS average_rating,
		(SELECT COUNT(*) FROM reviews WHERE reviewee_id = $1 AND is_hidden = FALSE) AS total_reviews,
		COALESCE((SELECT SUM(duration) FROM sessions WHERE mentor_id = $1 AND status = 'completed'), 0)::float8 / 60 AS hours_taught,
		COALESCE((SELECT SUM(duration) FROM sessions WHERE student_id = $1 AND status = 'completed'), 0)::float8 / 60 AS hours_learned,
		(SELECT COUNT(*) FROM sessions WHERE (mentor_id = $1 OR student_id = $1) AND status = 'completed') AS total_sessions
`

const offerStatsQuery = `
	SELECT o.id,
		(SELECT COUNT(*) FROM sessions s
			WHERE s.mentor_id = o.user_id AND s.status = 'completed' AND lower(s.skill_name) = lower(o.name)) AS session_count,
		COALESCE((SELECT AVG(r.rating)::float8 FROM reviews r
			JOIN sessions s ON s.id = r.session_id
			WHERE r.reviewee_id = o.user_id AND r.is_hidden = FALSE
				AND s.mentor_id = o.user_id AND s.status = 'completed'
				AND lower(s.skill_name) = lower(o.name)), 0) AS rating
	FROM user_skill_offers o
	WHERE o.user_id = $1
`

// Recompute считает статистику пользователя и его предложений с нуля и записывает её.
// Строка пользователя блокируется на время транзакции, поэтому параллельные пересчёты
// одного пользователя выполняются последовательно.
func (r *StatsRepository) Recompute(ctx context.Context, userID uuid.UUID) (*models.UserStats, []models.OfferStats, error) {
	var (
		stats  models.UserStats
		offers []models.OfferStats
	)

	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var lockedID uuid.UUID
		if err := tx.GetContext(ctx, &lockedID, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrUserNotFound
			}
			return err
		}

		if err := tx.GetContext(ctx, &stats, userStatsQuery, userID); err != nil {
			return fmt.Errorf("compute user stats: %w", err)
		}
		if err := tx.SelectContext(ctx, &offers, offerStatsQuery, userID); err != nil {
			return fmt.Errorf("compute offer stats: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE users
			SET average_rating = $2, total_reviews = $3, hours_taught = $4, hours_learned = $5,
				total_sessions = $6, updated_at = NOW()
			WHERE id = $1`,
			userID, stats.AverageRating, stats.TotalReviews, stats.HoursTaught, stats.HoursLearned, stats.TotalSessions,
		); err != nil {
			return fmt.Errorf("save user stats: %w", err)
		}

		for _, o := range offers {
			if _, err := tx.ExecContext(ctx,
				`UPDATE user_skill_offers SET session_count = $2, rating = $3 WHERE id = $1`,
				o.OfferID, o.SessionCount, o.Rating,
			); err != nil {
				return fmt.Errorf("save offer stats: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("stats repository: recompute %w", err)
	}
	return &stats, offers, nil
}

// ListUserIDs страница всех пользователей после afterID для сверки статистики.
func (r *StatsRepository) ListUserIDs(ctx context.Context, afterID uuid.UUID, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM users WHERE id > $1 ORDER BY id LIMIT $2`, afterID, limit); err != nil {
		return nil, fmt.Errorf("stats repository: list user ids %w", err)
	}
	return ids, nil
}
