package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/skillswap-backend/internal/models"
	"github.com/ignatzorin/skillswap-backend/internal/service"
)

type AuthResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	ExpiresIn    int64        `json:"expiresIn"`
}

func ToAuthResponse(res *service.AuthResult) AuthResponse {
	return AuthResponse{
		User:         res.User,
		AccessToken:  res.TokenPair.AccessToken,
		RefreshToken: res.TokenPair.RefreshToken,
		ExpiresIn:    res.TokenPair.ExpiresIn,
	}
}

// PublicUserResponse профиль, видимый другим пользователям: без email и настроек.
type PublicUserResponse struct {
	ID            uuid.UUID           `json:"id"`
	Username      string              `json:"username"`
	DisplayName   string              `json:"displayName"`
	Bio           *string             `json:"bio,omitempty"`
	Location      *string             `json:"location,omitempty"`
	AvatarURL     *string             `json:"avatarUrl,omitempty"`
	Stats         models.UserStats    `json:"stats"`
	SkillsOffered []models.SkillOffer `json:"skillsOffered"`
	SkillsWanted  []models.SkillWant  `json:"skillsWanted"`
	CreatedAt     time.Time           `json:"createdAt"`
}

func ToPublicUser(u *models.User) PublicUserResponse {
	offered, wanted := u.SkillsOffered, u.SkillsWanted
	if offered == nil {
		offered = []models.SkillOffer{}
	}
	if wanted == nil {
		wanted = []models.SkillWant{}
	}
	return PublicUserResponse{
		ID:            u.ID,
		Username:      u.Username,
		DisplayName:   u.DisplayName,
		Bio:           u.Bio,
		Location:      u.Location,
		AvatarURL:     u.AvatarURL,
		Stats:         u.UserStats,
		SkillsOffered: offered,
		SkillsWanted:  wanted,
		CreatedAt:     u.CreatedAt,
	}
}

func ToPublicUsers(users []*models.User) []PublicUserResponse {
	out := make([]PublicUserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, ToPublicUser(u))
	}
	return out
}

type SkillRef struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

type SwapDetails struct {
	SkillOffered  []string `json:"skillOffered"`
	SkillWanted   string   `json:"skillWanted"`
	IsSwapRequest bool     `json:"isSwapRequest"`
}

type SessionResponse struct {
	ID                  uuid.UUID          `json:"id"`
	Mentor              models.UserSummary `json:"mentor"`
	Student             models.UserSummary `json:"student"`
	Skill               SkillRef           `json:"skill"`
	Status              string             `json:"status"`
	ScheduledAt         time.Time          `json:"scheduledAt"`
	Duration            int                `json:"duration"`
	SessionType         string             `json:"sessionType"`
	Message             *string            `json:"message,omitempty"`
	SwapDetails         *SwapDetails       `json:"swapDetails,omitempty"`
	ResponseMessage     *string            `json:"responseMessage,omitempty"`
	RespondedAt         *time.Time         `json:"respondedAt,omitempty"`
	CancelledBy         *uuid.UUID         `json:"cancelledBy,omitempty"`
	CancellationReason  *string            `json:"cancellationReason,omitempty"`
	CancelledAt         *time.Time         `json:"cancelledAt,omitempty"`
	RescheduledBy       *uuid.UUID         `json:"rescheduledBy,omitempty"`
	RescheduleReason    *string            `json:"rescheduleReason,omitempty"`
	PreviousScheduledAt *time.Time         `json:"previousScheduledAt,omitempty"`
	CompletedAt         *time.Time         `json:"completedAt,omitempty"`
	CreatedAt           time.Time          `json:"createdAt"`
	UpdatedAt           time.Time          `json:"updatedAt"`
}

func ToSessionResponse(d *service.SessionDetails) SessionResponse {
	s := d.Session
	resp := SessionResponse{
		ID:                  s.ID,
		Mentor:              d.Mentor,
		Student:             d.Student,
		Skill:               SkillRef{Name: s.SkillName, Category: s.SkillCategory},
		Status:              s.Status,
		ScheduledAt:         s.ScheduledAt,
		Duration:            s.Duration,
		SessionType:         s.SessionType,
		Message:             s.Message,
		ResponseMessage:     s.ResponseMessage,
		RespondedAt:         s.RespondedAt,
		CancelledBy:         s.CancelledBy,
		CancellationReason:  s.CancellationReason,
		CancelledAt:         s.CancelledAt,
		RescheduledBy:       s.RescheduledBy,
		RescheduleReason:    s.RescheduleReason,
		PreviousScheduledAt: s.PreviousScheduledAt,
		CompletedAt:         s.CompletedAt,
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           s.UpdatedAt,
	}
	if s.IsSwapRequest {
		swap := &SwapDetails{SkillOffered: []string(s.SwapSkillOffered), IsSwapRequest: true}
		if s.SwapSkillWanted != nil {
			swap.SkillWanted = *s.SwapSkillWanted
		}
		resp.SwapDetails = swap
	}
	return resp
}

func ToSessionResponses(items []service.SessionDetails) []SessionResponse {
	out := make([]SessionResponse, 0, len(items))
	for i := range items {
		out = append(out, ToSessionResponse(&items[i]))
	}
	return out
}

type UserReviewsResponse struct {
	Reviews []models.Review       `json:"reviews"`
	Summary *models.ReviewSummary `json:"summary"`
}

type CanReviewResponse struct {
	CanReview bool   `json:"canReview"`
	Reason    string `json:"reason,omitempty"`
}

type UnreadCountResponse struct {
	Count int `json:"count"`
}
