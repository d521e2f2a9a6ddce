package dto

import (
	"time"

	"github.com/google/uuid"
)

type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type PreferencesRequest struct {
	EmailNotifications    *bool `json:"emailNotifications"`
	RealtimeNotifications *bool `json:"realtimeNotifications"`
	SessionReminders      *bool `json:"sessionReminders"`
}

type UpdateProfileRequest struct {
	DisplayName *string             `json:"displayName"`
	Bio         *string             `json:"bio"`
	Location    *string             `json:"location"`
	Preferences *PreferencesRequest `json:"preferences"`
}

type SkillOfferRequest struct {
	Name        string  `json:"name" binding:"required,max=50"`
	Level       string  `json:"level" binding:"required,offer_level"`
	Category    string  `json:"category" binding:"max=50"`
	Description *string `json:"description" binding:"omitempty,max=500"`
}

type SkillWantRequest struct {
	Name     string `json:"name" binding:"required,max=50"`
	Level    string `json:"level" binding:"required,want_level"`
	Category string `json:"category" binding:"max=50"`
	Priority string `json:"priority" binding:"omitempty,priority"`
	Progress int    `json:"progress" binding:"min=0,max=100"`
}

// CreateSessionRequest запрос на сессию. recipientId синоним mentorId для запросов на обмен.
type CreateSessionRequest struct {
	MentorID      *uuid.UUID `json:"mentorId"`
	RecipientID   *uuid.UUID `json:"recipientId"`
	SkillID       *uuid.UUID `json:"skillId"`
	SkillWanted   string     `json:"skillWanted" binding:"max=50"`
	SkillOffered  []string   `json:"skillOffered" binding:"max=10,dive,max=50"`
	RequestedDate time.Time  `json:"requestedDate" binding:"required"`
	Duration      int        `json:"duration" binding:"required"`
	SessionType   string     `json:"sessionType" binding:"omitempty,session_type"`
	Message       *string    `json:"message" binding:"omitempty,max=1000"`
}

// Counterpart ментор из mentorId или recipientId.
func (r CreateSessionRequest) Counterpart() (uuid.UUID, bool) {
	switch {
	case r.MentorID != nil:
		return *r.MentorID, true
	case r.RecipientID != nil:
		return *r.RecipientID, true
	}
	return uuid.Nil, false
}

type RespondSessionRequest struct {
	Response string  `json:"response" binding:"required,oneof=accepted declined"`
	Message  *string `json:"message" binding:"omitempty,max=1000"`
}

type CancelSessionRequest struct {
	Reason *string `json:"reason" binding:"omitempty,max=500"`
}

type RescheduleSessionRequest struct {
	NewDate time.Time `json:"newDate" binding:"required"`
	Reason  *string   `json:"reason" binding:"omitempty,max=500"`
}

type CreateReviewRequest struct {
	SessionID           uuid.UUID `json:"sessionId" binding:"required"`
	Rating              int       `json:"rating" binding:"required,min=1,max=5"`
	SkillRating         *int      `json:"skillRating" binding:"omitempty,min=1,max=5"`
	CommunicationRating *int      `json:"communicationRating" binding:"omitempty,min=1,max=5"`
	PunctualityRating   *int      `json:"punctualityRating" binding:"omitempty,min=1,max=5"`
	Comment             string    `json:"comment" binding:"max=1000"`
}

type UpdateReviewRequest struct {
	Rating              int    `json:"rating" binding:"required,min=1,max=5"`
	SkillRating         *int   `json:"skillRating" binding:"omitempty,min=1,max=5"`
	CommunicationRating *int   `json:"communicationRating" binding:"omitempty,min=1,max=5"`
	PunctualityRating   *int   `json:"punctualityRating" binding:"omitempty,min=1,max=5"`
	Comment             string `json:"comment" binding:"max=1000"`
}

type AdminUpdateUserRequest struct {
	DisplayName *string `json:"displayName"`
	Role        *string `json:"role" binding:"omitempty,oneof=user admin super_admin"`
	IsActive    *bool   `json:"isActive"`
}

type BroadcastRequest struct {
	Title   string `json:"title" binding:"required,max=200"`
	Message string `json:"message" binding:"required,max=1000"`
}

type HideReviewRequest struct {
	Hidden *bool `json:"hidden" binding:"required"`
}
