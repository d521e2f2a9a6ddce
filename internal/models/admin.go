package models

import "github.com/google/uuid"

// Dashboard сводные счётчики для панели администратора.
type Dashboard struct {
	TotalUsers       int            `json:"totalUsers"`
	ActiveUsers      int            `json:"activeUsers"`
	NewUsers30d      int            `json:"newUsers30d"`
	SessionsByStatus map[string]int `json:"sessionsByStatus"`
	TotalReviews     int            `json:"totalReviews"`
	AverageRating    float64        `json:"averageRating"`
	TopSkills        []SkillCount   `json:"topSkills"`
}

// SkillCount навык и число пользователей, которые его предлагают.
type SkillCount struct {
	Name  string `db:"name" json:"name"`
	Count int    `db:"count" json:"count"`
}

// UserListParams фильтры списка пользователей в админке.
type UserListParams struct {
	Search   string
	Role     string
	IsActive *bool
	Limit    int
	Offset   int
}

// UserSearchParams поиск пользователей по предлагаемому навыку.
type UserSearchParams struct {
	Skill    string
	Category string
	Limit    int
	Offset   int
}

// MatchCandidateRow строка выборки кандидатов для подбора менторов.
type MatchCandidateRow struct {
	UserID       uuid.UUID `db:"user_id"`
	OfferName    string    `db:"name"`
	Category     string    `db:"category"`
	Level        string    `db:"level"`
	Rating       float64   `db:"rating"`
	SessionCount int       `db:"session_count"`
}

// OfferStats пересчитанные показатели одного предложения навыка.
type OfferStats struct {
	OfferID      uuid.UUID `db:"id"`
	SessionCount int       `db:"session_count"`
	Rating       float64   `db:"rating"`
}

// Contact данные для доставки уведомлений пользователю.
type Contact struct {
	ID          uuid.UUID `db:"id"`
	Email       string    `db:"email"`
	DisplayName string    `db:"display_name"`
	IsActive    bool      `db:"is_active"`
	Preferences
}
