package models

import (
	"time"

	"github.com/google/uuid"
)

// User описывает участника платформы обмена навыками.
type User struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	Username     string     `db:"username" json:"username"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         string     `db:"role" json:"role"`
	IsActive     bool       `db:"is_active" json:"isActive"`
	DisplayName  string     `db:"display_name" json:"displayName"`
	Bio          *string    `db:"bio" json:"bio,omitempty"`
	Location     *string    `db:"location" json:"location,omitempty"`
	AvatarURL    *string    `db:"avatar_url" json:"avatarUrl,omitempty"`
	LastLoginAt  *time.Time `db:"last_login_at" json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`

	UserStats   `json:"stats"`
	Preferences `json:"preferences"`

	SkillsOffered []SkillOffer `db:"-" json:"skillsOffered"`
	SkillsWanted  []SkillWant  `db:"-" json:"skillsWanted"`
}

// UserStats денормализованная статистика. Пересчитывается целиком, не инкрементально.
type UserStats struct {
	TotalSessions int     `db:"total_sessions" json:"totalSessions"`
	HoursLearned  float64 `db:"hours_learned" json:"hoursLearned"`
	HoursTaught   float64 `db:"hours_taught" json:"hoursTaught"`
	AverageRating float64 `db:"average_rating" json:"averageRating"`
	TotalReviews  int     `db:"total_reviews" json:"totalReviews"`
}

// Preferences настройки каналов уведомлений.
type Preferences struct {
	EmailNotifications    bool `db:"email_notifications" json:"emailNotifications"`
	RealtimeNotifications bool `db:"realtime_notifications" json:"realtimeNotifications"`
	SessionReminders      bool `db:"session_reminders" json:"sessionReminders"`
}

// DefaultPreferences все каналы включены.
func DefaultPreferences() Preferences {
	return Preferences{EmailNotifications: true, RealtimeNotifications: true, SessionReminders: true}
}

// SkillOffer навык, который пользователь готов преподавать.
type SkillOffer struct {
	ID           uuid.UUID `db:"id" json:"id"`
	UserID       uuid.UUID `db:"user_id" json:"-"`
	Name         string    `db:"name" json:"name"`
	Level        string    `db:"level" json:"level"`
	Category     string    `db:"category" json:"category"`
	Description  *string   `db:"description" json:"description,omitempty"`
	SessionCount int       `db:"session_count" json:"sessionCount"`
	Rating       float64   `db:"rating" json:"rating"`
	Position     int       `db:"position" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// SkillWant навык, который пользователь хочет изучить.
type SkillWant struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"-"`
	Name      string    `db:"name" json:"name"`
	Level     string    `db:"level" json:"level"`
	Category  string    `db:"category" json:"category"`
	Priority  string    `db:"priority" json:"priority"`
	Progress  int       `db:"progress" json:"progress"`
	Position  int       `db:"position" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// UserSummary краткая карточка пользователя для вложения в другие ответы.
type UserSummary struct {
	ID            uuid.UUID `db:"id" json:"id"`
	Username      string    `db:"username" json:"username"`
	DisplayName   string    `db:"display_name" json:"displayName"`
	AvatarURL     *string   `db:"avatar_url" json:"avatarUrl,omitempty"`
	AverageRating float64   `db:"average_rating" json:"averageRating"`
	TotalReviews  int       `db:"total_reviews" json:"totalReviews"`
}

// Summary возвращает краткую карточку пользователя.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:            u.ID,
		Username:      u.Username,
		DisplayName:   u.DisplayName,
		AvatarURL:     u.AvatarURL,
		AverageRating: u.AverageRating,
		TotalReviews:  u.TotalReviews,
	}
}

// IsAdmin сообщает, есть ли у пользователя административная роль.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.Role == RoleSuperAdmin
}

// AuthSession представляет сохранённую refresh-сессию пользователя.
type AuthSession struct {
	ID           uuid.UUID `db:"id" json:"id"`
	UserID       uuid.UUID `db:"user_id" json:"userId"`
	RefreshToken string    `db:"refresh_token" json:"-"`
	UserAgent    *string   `db:"user_agent" json:"userAgent,omitempty"`
	IPAddress    *string   `db:"ip_address" json:"ipAddress,omitempty"`
	ExpiresAt    time.Time `db:"expires_at" json:"expiresAt"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}
