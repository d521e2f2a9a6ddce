package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/skillswap-backend/internal/domain/valueobject"
	"github.com/ignatzorin/skillswap-backend/internal/pkg/apperror"
)

const (
	MinSessionDuration = 15
	MaxSessionDuration = 180

	// CancelWindow минимальный запас времени до начала для отмены.
	CancelWindow = 2 * time.Hour
	// RescheduleWindow минимальный запас времени до начала для переноса.
	RescheduleWindow = 4 * time.Hour
)

// Session доменное представление сессии: участники, статус и время.
type Session struct {
	ID            uuid.UUID
	MentorID      uuid.UUID
	StudentID     uuid.UUID
	Status        valueobject.SessionStatus
	ScheduledAt   time.Time
	RescheduledBy *uuid.UUID
}

// ValidateNewSession проверяет параметры запроса на сессию.
func ValidateNewSession(mentorID, studentID uuid.UUID, scheduledAt time.Time, duration int, now time.Time) error {
	var fields []apperror.FieldError

	if mentorID == studentID {
		fields = append(fields, apperror.FieldError{Field: "mentorId", Message: "нельзя запросить сессию у самого себя"})
	}
	if duration < MinSessionDuration || duration > MaxSessionDuration {
		fields = append(fields, apperror.FieldError{Field: "duration", Message: "длительность должна быть от 15 до 180 минут"})
	}
	if !scheduledAt.After(now) {
		fields = append(fields, apperror.FieldError{Field: "requestedDate", Message: "дата сессии должна быть в будущем"})
	}

	if len(fields) > 0 {
		return apperror.Validation("ошибка валидации", fields...)
	}
	return nil
}

func (s *Session) IsParticipant(userID uuid.UUID) bool {
	return s.MentorID == userID || s.StudentID == userID
}

// CanBeCancelled true, если до начала больше 2 часов и сессия не завершена и не отменена.
func (s *Session) CanBeCancelled(now time.Time) bool {
	if s.Status == valueobject.SessionStatusCompleted || s.Status == valueobject.SessionStatusCancelled {
		return false
	}
	return s.ScheduledAt.Sub(now) > CancelWindow
}

// CanBeRescheduled true, если до начала больше 4 часов и сессия не завершена и не отменена.
func (s *Session) CanBeRescheduled(now time.Time) bool {
	if s.Status == valueobject.SessionStatusCompleted || s.Status == valueobject.SessionStatusCancelled {
		return false
	}
	return s.ScheduledAt.Sub(now) > RescheduleWindow
}

// Decide проверяет права участника и возвращает статус после события.
// Сам статус не меняется: запись делает хранилище через сравнение со старым значением.
func (s *Session) Decide(actorID uuid.UUID, event valueobject.SessionEvent, now time.Time) (valueobject.SessionStatus, error) {
	if !s.IsParticipant(actorID) {
		return "", apperror.Forbidden("вы не участник этой сессии")
	}

	if event == valueobject.EventAccept || event == valueobject.EventDecline {
		if err := s.checkResponder(actorID); err != nil {
			return "", err
		}
	}

	next, err := valueobject.Transition(s.Status, event)
	if err != nil {
		return "", err
	}

	switch event {
	case valueobject.EventCancel:
		if !s.CanBeCancelled(now) {
			return "", apperror.BadRequest("сессию можно отменить не позднее чем за 2 часа до начала")
		}
	case valueobject.EventReschedule:
		if !s.CanBeRescheduled(now) {
			return "", apperror.BadRequest("сессию можно перенести не позднее чем за 4 часа до начала")
		}
	}

	return next, nil
}

// checkResponder: на новый запрос отвечает ментор, на перенос отвечает тот, кто его не предлагал.
func (s *Session) checkResponder(actorID uuid.UUID) error {
	if s.Status == valueobject.SessionStatusRescheduled && s.RescheduledBy != nil {
		if *s.RescheduledBy == actorID {
			return apperror.Forbidden("на перенос отвечает другой участник")
		}
		return nil
	}
	if actorID != s.MentorID {
		return apperror.Forbidden("ответить на запрос может только ментор")
	}
	return nil
}
