package models

import (
	"time"

	"github.com/google/uuid"
)

// Review отзыв участника о другом участнике завершённой сессии.
// Общий rating единственный источник средней оценки пользователя,
// детальные оценки только усредняются для отображения.
type Review struct {
	ID                  uuid.UUID `db:"id" json:"id"`
	SessionID           uuid.UUID `db:"session_id" json:"sessionId"`
	ReviewerID          uuid.UUID `db:"reviewer_id" json:"reviewerId"`
	RevieweeID          uuid.UUID `db:"reviewee_id" json:"revieweeId"`
	Rating              int       `db:"rating" json:"rating"`
	SkillRating         *int      `db:"skill_rating" json:"skillRating,omitempty"`
	CommunicationRating *int      `db:"communication_rating" json:"communicationRating,omitempty"`
	PunctualityRating   *int      `db:"punctuality_rating" json:"punctualityRating,omitempty"`
	Comment             string    `db:"comment" json:"comment"`
	IsHidden            bool      `db:"is_hidden" json:"isHidden"`
	CreatedAt           time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time `db:"updated_at" json:"updatedAt"`
}

// ReviewSummary средние оценки по видимым отзывам пользователя.
type ReviewSummary struct {
	AverageRating              float64  `db:"average_rating" json:"averageRating"`
	TotalReviews               int      `db:"total_reviews" json:"totalReviews"`
	AverageSkillRating         *float64 `db:"average_skill_rating" json:"averageSkillRating,omitempty"`
	AverageCommunicationRating *float64 `db:"average_communication_rating" json:"averageCommunicationRating,omitempty"`
	AveragePunctualityRating   *float64 `db:"average_punctuality_rating" json:"averagePunctualityRating,omitempty"`
}
