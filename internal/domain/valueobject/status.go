package valueobject

import (
	"fmt"

	"github.com/ignatzorin/skillswap-backend/internal/pkg/apperror"
)

type SessionStatus string

const (
	SessionStatusPending     SessionStatus = "pending"
	SessionStatusAccepted    SessionStatus = "accepted"
	SessionStatusDeclined    SessionStatus = "declined"
	SessionStatusConfirmed   SessionStatus = "confirmed"
	SessionStatusInProgress  SessionStatus = "in-progress"
	SessionStatusCompleted   SessionStatus = "completed"
	SessionStatusCancelled   SessionStatus = "cancelled"
	SessionStatusRescheduled SessionStatus = "rescheduled"
)

func (s SessionStatus) IsValid() bool {
	switch s {
	case SessionStatusPending, SessionStatusAccepted, SessionStatusDeclined, SessionStatusConfirmed,
		SessionStatusInProgress, SessionStatusCompleted, SessionStatusCancelled, SessionStatusRescheduled:
		return true
	}
	return false
}

// IsTerminal сообщает, что из статуса больше нет переходов.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusCancelled || s == SessionStatusDeclined
}

func NewSessionStatus(status string) (SessionStatus, error) {
	s := SessionStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус сессии")
	}
	return s, nil
}

// SessionEvent описывает действие участника над сессией.
type SessionEvent string

const (
	EventAccept     SessionEvent = "accept"
	EventDecline    SessionEvent = "decline"
	EventComplete   SessionEvent = "complete"
	EventCancel     SessionEvent = "cancel"
	EventReschedule SessionEvent = "reschedule"
)

// sessionTransitions перечисляет все допустимые рёбра автомата.
// confirmed и in-progress входящих рёбер не имеют, но старые записи в этих
// статусах можно завершить или отменить как accepted.
var sessionTransitions = map[SessionStatus]map[SessionEvent]SessionStatus{
	SessionStatusPending: {
		EventAccept:     SessionStatusAccepted,
		EventDecline:    SessionStatusDeclined,
		EventCancel:     SessionStatusCancelled,
		EventReschedule: SessionStatusRescheduled,
	},
	SessionStatusRescheduled: {
		EventAccept:     SessionStatusAccepted,
		EventDecline:    SessionStatusDeclined,
		EventCancel:     SessionStatusCancelled,
		EventReschedule: SessionStatusRescheduled,
	},
	SessionStatusAccepted: {
		EventComplete:   SessionStatusCompleted,
		EventCancel:     SessionStatusCancelled,
		EventReschedule: SessionStatusRescheduled,
	},
	SessionStatusConfirmed: {
		EventComplete: SessionStatusCompleted,
		EventCancel:   SessionStatusCancelled,
	},
	SessionStatusInProgress: {
		EventComplete: SessionStatusCompleted,
		EventCancel:   SessionStatusCancelled,
	},
}

// Transition возвращает новый статус или ошибку, если ребра нет.
func Transition(from SessionStatus, event SessionEvent) (SessionStatus, error) {
	if next, ok := sessionTransitions[from][event]; ok {
		return next, nil
	}
	return "", apperror.New(apperror.ErrCodeBadRequest,
		fmt.Sprintf("действие %q недоступно для сессии в статусе %q", event, from))
}

// CanTransition проверяет наличие ребра без построения ошибки.
func (s SessionStatus) CanTransition(event SessionEvent) bool {
	_, ok := sessionTransitions[s][event]
	return ok
}
