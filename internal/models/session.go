package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Session запланированный обмен навыками между ментором и студентом.
// Сессии не удаляются, только переводятся в cancelled.
type Session struct {
	ID                  uuid.UUID      `db:"id" json:"id"`
	MentorID            uuid.UUID      `db:"mentor_id" json:"mentorId"`
	StudentID           uuid.UUID      `db:"student_id" json:"studentId"`
	SkillName           string         `db:"skill_name" json:"-"`
	SkillCategory       string         `db:"skill_category" json:"-"`
	Status              string         `db:"status" json:"status"`
	ScheduledAt         time.Time      `db:"scheduled_at" json:"scheduledAt"`
	Duration            int            `db:"duration" json:"duration"`
	SessionType         string         `db:"session_type" json:"sessionType"`
	Message             *string        `db:"message" json:"message,omitempty"`
	IsSwapRequest       bool           `db:"is_swap_request" json:"-"`
	SwapSkillOffered    pq.StringArray `db:"swap_skill_offered" json:"-"`
	SwapSkillWanted     *string        `db:"swap_skill_wanted" json:"-"`
	ResponseMessage     *string        `db:"response_message" json:"responseMessage,omitempty"`
	RespondedAt         *time.Time     `db:"responded_at" json:"respondedAt,omitempty"`
	CancelledBy         *uuid.UUID     `db:"cancelled_by" json:"cancelledBy,omitempty"`
	CancellationReason  *string        `db:"cancellation_reason" json:"cancellationReason,omitempty"`
	CancelledAt         *time.Time     `db:"cancelled_at" json:"cancelledAt,omitempty"`
	RescheduledBy       *uuid.UUID     `db:"rescheduled_by" json:"rescheduledBy,omitempty"`
	RescheduleReason    *string        `db:"reschedule_reason" json:"rescheduleReason,omitempty"`
	PreviousScheduledAt *time.Time     `db:"previous_scheduled_at" json:"previousScheduledAt,omitempty"`
	CompletedAt         *time.Time     `db:"completed_at" json:"completedAt,omitempty"`
	ReminderSentAt      *time.Time     `db:"reminder_sent_at" json:"-"`
	CreatedAt           time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time      `db:"updated_at" json:"updatedAt"`
}

// IsParticipant сообщает, участвует ли пользователь в сессии.
func (s *Session) IsParticipant(userID uuid.UUID) bool {
	return s.MentorID == userID || s.StudentID == userID
}

// Counterpart возвращает второго участника сессии.
func (s *Session) Counterpart(userID uuid.UUID) uuid.UUID {
	if s.MentorID == userID {
		return s.StudentID
	}
	return s.MentorID
}

// SessionFilter параметры выборки сессий пользователя.
type SessionFilter struct {
	UserID   uuid.UUID
	Role     string
	Status   string
	Upcoming bool
	Limit    int
	Offset   int
}

// SessionStatusChange описывает запись нового статуса с проверкой ожидаемого.
type SessionStatusChange struct {
	SessionID          uuid.UUID
	Expected           string
	Next               string
	ResponseMessage    *string
	CancelledBy        *uuid.UUID
	CancellationReason *string
	RescheduledBy      *uuid.UUID
	RescheduleReason   *string
	NewScheduledAt     *time.Time
	At                 time.Time
}
