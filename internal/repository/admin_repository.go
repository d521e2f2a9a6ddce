package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/skillswap-backend/internal/models"
)

// AdminRepository сводные запросы для панели администратора.
type AdminRepository struct {
	db *sqlx.DB
}

func NewAdminRepository(db *sqlx.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

// Dashboard собирает счётчики пользователей, сессий, отзывов и популярных навыков.
func (r *AdminRepository) Dashboard(ctx context.Context, since time.Time, topSkills int) (*models.Dashboard, error) {
	d := &models.Dashboard{SessionsByStatus: map[string]int{}}

	var users struct {
		Total  int `db:"total"`
		Active int `db:"active"`
		New    int `db:"new"`
	}
	if err := r.db.GetContext(ctx, &users, `
		SELECT COUNT(*) AS total,
			COUNT(*) FILTER (WHERE is_active) AS active,
			COUNT(*) FILTER (WHERE created_at >= $1) AS new
		FROM users`, since); err != nil {
		return nil, fmt.Errorf("admin repository: users %w", err)
	}
	d.TotalUsers, d.ActiveUsers, d.NewUsers30d = users.Total, users.Active, users.New

	var statuses []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}
	if err := r.db.SelectContext(ctx, &statuses, `SELECT status, COUNT(*) AS count FROM sessions GROUP BY status`); err != nil {
		return nil, fmt.Errorf("admin repository: sessions %w", err)
	}
	for _, s := range statuses {
		d.SessionsByStatus[s.Status] = s.Count
	}

	var reviews struct {
		Total int     `db:"total"`
		Avg   float64 `db:"avg"`
	}
	if err := r.db.GetContext(ctx, &reviews, `
		SELECT COUNT(*) AS total, COALESCE(AVG(rating)::float8, 0) AS avg
		FROM reviews WHERE is_hidden = FALSE`); err != nil {
		return nil, fmt.Errorf("admin repository: reviews %w", err)
	}
	d.TotalReviews, d.AverageRating = reviews.Total, reviews.Avg

	d.TopSkills = []models.SkillCount{}
	if err := r.db.SelectContext(ctx, &d.TopSkills, `
		SELECT MIN(name) AS name, COUNT(DISTINCT user_id) AS count
		FROM user_skill_offers
		GROUP BY lower(name)
		ORDER BY count DESC, name
		LIMIT $1`, topSkills); err != nil {
		return nil, fmt.Errorf("admin repository: top skills %w", err)
	}

	return d, nil
}
