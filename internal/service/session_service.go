package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/skillswap-backend/internal/domain/entity"
	"github.com/ignatzorin/skillswap-backend/internal/domain/valueobject"
	"github.com/ignatzorin/skillswap-backend/internal/logger"
	"github.com/ignatzorin/skillswap-backend/internal/models"
	"github.com/ignatzorin/skillswap-backend/internal/pkg/apperror"
	"github.com/ignatzorin/skillswap-backend/internal/repository"
	"github.com/ignatzorin/skillswap-backend/internal/validation"
)

const staleRequestReason = "истёк срок ответа"

// SessionRepository зависимости SessionService от хранилища сессий.
type SessionRepository interface {
	Create(ctx context.Context, s *models.Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
	HasPending(ctx context.Context, mentorID, studentID uuid.UUID) (bool, error)
	UpdateStatus(ctx context.Context, change models.SessionStatusChange) (*models.Session, error)
	List(ctx context.Context, filter models.SessionFilter) ([]*models.Session, int, error)
	ListDueReminders(ctx context.Context, from, to time.Time) ([]*models.Session, error)
	MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	ListStaleRequests(ctx context.Context, before time.Time) ([]*models.Session, error)
	LoadParticipants(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.UserSummary, error)
}

// MentorDirectory поиск ментора и его навыков.
type MentorDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetOffer(ctx context.Context, userID, offerID uuid.UUID) (*models.SkillOffer, error)
	FindOfferByName(ctx context.Context, userID uuid.UUID, name string) (*models.SkillOffer, error)
}

// CreateSessionInput запрос студента на сессию.
type CreateSessionInput struct {
	MentorID     uuid.UUID
	SkillID      *uuid.UUID
	SkillWanted  string
	SkillOffered []string
	ScheduledAt  time.Time
	Duration     int
	SessionType  string
	Message      *string
}

// SessionDetails сессия с карточками участников.
type SessionDetails struct {
	*models.Session
	Mentor  models.UserSummary
	Student models.UserSummary
}

// SessionService управляет жизненным циклом сессий.
type SessionService struct {
	repo     SessionRepository
	users    MentorDirectory
	stats    StatsRecalculator
	notifier EventNotifier
	now      func() time.Time
}

func NewSessionService(repo SessionRepository, users MentorDirectory, stats StatsRecalculator, notifier EventNotifier) *SessionService {
	return &SessionService{repo: repo, users: users, stats: stats, notifier: notifier, now: time.Now}
}

// Create создаёт запрос на сессию от имени студента.
func (s *SessionService) Create(ctx context.Context, studentID uuid.UUID, in CreateSessionInput) (*SessionDetails, error) {
	now := s.now()
	if err := entity.ValidateNewSession(in.MentorID, studentID, in.ScheduledAt, in.Duration, now); err != nil {
		return nil, err
	}
	sessionType, err := valueobject.NewSessionType(in.SessionType)
	if err != nil {
		return nil, err
	}
	if in.Message != nil {
		msg := strings.TrimSpace(*in.Message)
		if err := validation.ValidateLength("сообщение", msg, 0, validation.MaxSessionMessage); err != nil {
			return nil, apperror.Validation("ошибка валидации", apperror.FieldError{Field: "message", Message: err.Error()})
		}
		if msg == "" {
			in.Message = nil
		} else {
			in.Message = &msg
		}
	}

	mentor, err := s.users.GetByID(ctx, in.MentorID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, err
	}
	if !mentor.IsActive {
		return nil, apperror.ErrUserNotFound
	}

	offer, err := s.resolveOffer(ctx, in)
	if err != nil {
		return nil, err
	}

	pending, err := s.repo.HasPending(ctx, in.MentorID, studentID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, apperror.Conflict("у вас уже есть ожидающий запрос к этому ментору")
	}

	session := &models.Session{
		MentorID:      in.MentorID,
		StudentID:     studentID,
		SkillName:     offer.Name,
		SkillCategory: offer.Category,
		Status:        string(valueobject.SessionStatusPending),
		ScheduledAt:   in.ScheduledAt.UTC(),
		Duration:      in.Duration,
		SessionType:   string(sessionType),
		Message:       in.Message,
	}
	if offered := cleanNames(in.SkillOffered); len(offered) > 0 {
		wanted := offer.Name
		session.IsSwapRequest = true
		session.SwapSkillOffered = offered
		session.SwapSkillWanted = &wanted
	}

	if err := s.repo.Create(ctx, session); err != nil {
		if errors.Is(err, repository.ErrDuplicatePending) {
			return nil, apperror.Conflict("у вас уже есть ожидающий запрос к этому ментору")
		}
		return nil, err
	}

	s.notify(ctx, session, studentID, session.MentorID, models.NotificationSessionRequest,
		"Новый запрос на сессию", fmt.Sprintf("Вас просят провести сессию «%s»", session.SkillName), true)

	return s.details(ctx, session)
}

// Respond принимает или отклоняет запрос. На новый запрос отвечает ментор,
// на перенос отвечает участник, который его не предлагал.
func (s *SessionService) Respond(ctx context.Context, sessionID, userID uuid.UUID, accept bool, message *string) (*SessionDetails, error) {
	event := valueobject.EventDecline
	if accept {
		event = valueobject.EventAccept
	}

	session, next, err := s.decide(ctx, sessionID, userID, event)
	if err != nil {
		return nil, err
	}

	updated, err := s.write(ctx, models.SessionStatusChange{
		SessionID:       session.ID,
		Expected:        session.Status,
		Next:            string(next),
		ResponseMessage: trimmed(message),
		At:              s.now(),
	})
	if err != nil {
		return nil, err
	}

	kind, title, text := models.NotificationSessionDeclined, "Запрос отклонён", "Запрос на сессию «%s» отклонён"
	if accept {
		kind, title, text = models.NotificationSessionAccepted, "Запрос принят", "Запрос на сессию «%s» принят"
	}
	recipient := updated.Counterpart(userID)
	s.notify(ctx, updated, userID, recipient, kind, title, fmt.Sprintf(text, updated.SkillName), true)

	return s.details(ctx, updated)
}

// Complete завершает сессию и пересчитывает статистику обоих участников.
func (s *SessionService) Complete(ctx context.Context, sessionID, userID uuid.UUID) (*SessionDetails, error) {
	session, next, err := s.decide(ctx, sessionID, userID, valueobject.EventComplete)
	if err != nil {
		return nil, err
	}

	updated, err := s.write(ctx, models.SessionStatusChange{
		SessionID: session.ID,
		Expected:  session.Status,
		Next:      string(next),
		At:        s.now(),
	})
	if err != nil {
		return nil, err
	}

	s.stats.RecalculateQuietly(ctx, updated.MentorID, updated.StudentID)
	s.notify(ctx, updated, userID, updated.Counterpart(userID), models.NotificationSessionCompleted,
		"Сессия завершена", fmt.Sprintf("Сессия «%s» завершена. Оставьте отзыв!", updated.SkillName), false)

	return s.details(ctx, updated)
}

// Cancel отменяет сессию не позднее чем за 2 часа до начала.
func (s *SessionService) Cancel(ctx context.Context, sessionID, userID uuid.UUID, reason *string) (*SessionDetails, error) {
	reason = trimmed(reason)
	if reason != nil {
		if err := validation.ValidateLength("причина", *reason, 0, validation.MaxReasonLength); err != nil {
			return nil, apperror.Validation("ошибка валидации", apperror.FieldError{Field: "reason", Message: err.Error()})
		}
	}

	session, next, err := s.decide(ctx, sessionID, userID, valueobject.EventCancel)
	if err != nil {
		return nil, err
	}

	actor := userID
	updated, err := s.write(ctx, models.SessionStatusChange{
		SessionID:          session.ID,
		Expected:           session.Status,
		Next:               string(next),
		CancelledBy:        &actor,
		CancellationReason: reason,
		At:                 s.now(),
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, updated, userID, updated.Counterpart(userID), models.NotificationSessionCancelled,
		"Сессия отменена", fmt.Sprintf("Сессия «%s» отменена", updated.SkillName), true)

	return s.details(ctx, updated)
}

// Reschedule предлагает новое время не позднее чем за 4 часа до начала.
// Сессия ждёт ответа второго участника в статусе rescheduled.
func (s *SessionService) Reschedule(ctx context.Context, sessionID, userID uuid.UUID, newDate time.Time, reason *string) (*SessionDetails, error) {
	now := s.now()
	if !newDate.After(now) {
		return nil, apperror.Validation("ошибка валидации", apperror.FieldError{Field: "newDate", Message: "дата сессии должна быть в будущем"})
	}
	reason = trimmed(reason)
	if reason != nil {
		if err := validation.ValidateLength("причина", *reason, 0, validation.MaxReasonLength); err != nil {
			return nil, apperror.Validation("ошибка валидации", apperror.FieldError{Field: "reason", Message: err.Error()})
		}
	}

	session, next, err := s.decide(ctx, sessionID, userID, valueobject.EventReschedule)
	if err != nil {
		return nil, err
	}

	actor := userID
	scheduled := newDate.UTC()
	updated, err := s.write(ctx, models.SessionStatusChange{
		SessionID:        session.ID,
		Expected:         session.Status,
		Next:             string(next),
		RescheduledBy:    &actor,
		RescheduleReason: reason,
		NewScheduledAt:   &scheduled,
		At:               now,
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, updated, userID, updated.Counterpart(userID), models.NotificationSessionRescheduled,
		"Предложено новое время", fmt.Sprintf("Для сессии «%s» предложено новое время", updated.SkillName), false)

	return s.details(ctx, updated)
}

// Get возвращает сессию участнику или администратору.
func (s *SessionService) Get(ctx context.Context, sessionID, userID uuid.UUID, isAdmin bool) (*SessionDetails, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && !session.IsParticipant(userID) {
		return nil, apperror.Forbidden("вы не участник этой сессии")
	}
	return s.details(ctx, session)
}

// ListMine возвращает сессии пользователя.
func (s *SessionService) ListMine(ctx context.Context, filter models.SessionFilter) ([]SessionDetails, int, error) {
	if filter.Status != "" {
		if _, err := valueobject.NewSessionStatus(filter.Status); err != nil {
			return nil, 0, err
		}
	}
	switch filter.Role {
	case "", models.SessionRoleMentor, models.SessionRoleStudent:
	default:
		return nil, 0, apperror.Validation("ошибка валидации", apperror.FieldError{Field: "role", Message: "роль должна быть mentor или student"})
	}

	sessions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	people, err := s.repo.LoadParticipants(ctx, participantIDs(sessions...))
	if err != nil {
		return nil, 0, err
	}

	out := make([]SessionDetails, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, SessionDetails{Session: session, Mentor: people[session.MentorID], Student: people[session.StudentID]})
	}
	return out, total, nil
}

// SendReminders напоминает обоим участникам о сессиях, которые начнутся в ближайшее окно.
// Каждая сессия напоминается один раз, даже при нескольких инстансах.
func (s *SessionService) SendReminders(ctx context.Context, window time.Duration) (int, error) {
	now := s.now()
	due, err := s.repo.ListDueReminders(ctx, now, now.Add(window))
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, session := range due {
		claimed, err := s.repo.MarkReminderSent(ctx, session.ID, now)
		if err != nil {
			logger.Log.WithFields(logrus.Fields{
				"session_id": session.ID,
				"error":      err.Error(),
			}).Warn("session service: не удалось отметить напоминание")
			continue
		}
		if !claimed {
			continue
		}

		text := fmt.Sprintf("Сессия «%s» начнётся в %s UTC", session.SkillName, session.ScheduledAt.UTC().Format("15:04"))
		for _, recipient := range []uuid.UUID{session.MentorID, session.StudentID} {
			if s.notifier == nil {
				break
			}
			s.notifier.NotifyQuietly(ctx, NotificationEvent{
				RecipientID: recipient,
				Type:        models.NotificationSessionReminder,
				Title:       "Скоро сессия",
				Message:     text,
				Data:        map[string]any{"sessionId": session.ID},
				Email:       true,
				Reminder:    true,
			})
		}
		sent++
	}
	return sent, nil
}

// ExpireStale отменяет запросы, на которые не ответили до начала сессии.
// Освобождает пару ментор-студент для нового запроса.
func (s *SessionService) ExpireStale(ctx context.Context) (int, error) {
	now := s.now()
	stale, err := s.repo.ListStaleRequests(ctx, now)
	if err != nil {
		return 0, err
	}

	reason := staleRequestReason
	expired := 0
	for _, session := range stale {
		updated, err := s.repo.UpdateStatus(ctx, models.SessionStatusChange{
			SessionID:          session.ID,
			Expected:           session.Status,
			Next:               string(valueobject.SessionStatusCancelled),
			CancellationReason: &reason,
			At:                 now,
		})
		if err != nil {
			if !errors.Is(err, repository.ErrStatusChanged) {
				logger.Log.WithFields(logrus.Fields{
					"session_id": session.ID,
					"error":      err.Error(),
				}).Warn("session service: не удалось отменить просроченный запрос")
			}
			continue
		}
		expired++

		if s.notifier == nil {
			continue
		}
		text := fmt.Sprintf("Запрос на сессию «%s» отменён: %s", updated.SkillName, reason)
		for _, recipient := range []uuid.UUID{updated.MentorID, updated.StudentID} {
			s.notifier.NotifyQuietly(ctx, NotificationEvent{
				RecipientID: recipient,
				Type:        models.NotificationSessionCancelled,
				Title:       "Сессия отменена",
				Message:     text,
				Data:        map[string]any{"sessionId": updated.ID, "status": updated.Status},
			})
		}
	}
	return expired, nil
}

func (s *SessionService) resolveOffer(ctx context.Context, in CreateSessionInput) (*models.SkillOffer, error) {
	var (
		offer *models.SkillOffer
		err   error
	)
	switch {
	case in.SkillID != nil:
		offer, err = s.users.GetOffer(ctx, in.MentorID, *in.SkillID)
	case strings.TrimSpace(in.SkillWanted) != "":
		offer, err = s.users.FindOfferByName(ctx, in.MentorID, in.SkillWanted)
	default:
		return nil, apperror.Validation("ошибка валидации", apperror.FieldError{Field: "skillId", Message: "укажите навык"})
	}
	if err != nil {
		if errors.Is(err, repository.ErrSkillNotFound) {
			return nil, apperror.NotFound("ментор не предлагает этот навык")
		}
		return nil, err
	}
	return offer, nil
}

// decide загружает сессию и проверяет, что событие допустимо для этого участника.
func (s *SessionService) decide(ctx context.Context, sessionID, userID uuid.UUID, event valueobject.SessionEvent) (*models.Session, valueobject.SessionStatus, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, "", err
	}
	next, err := toEntity(session).Decide(userID, event, s.now())
	if err != nil {
		return nil, "", err
	}
	return session, next, nil
}

func (s *SessionService) write(ctx context.Context, change models.SessionStatusChange) (*models.Session, error) {
	updated, err := s.repo.UpdateStatus(ctx, change)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrStatusChanged):
			return nil, apperror.Conflict("сессия уже изменена другим запросом, обновите данные")
		case errors.Is(err, repository.ErrSessionNotFound):
			return nil, apperror.ErrSessionNotFound
		}
		return nil, err
	}
	return updated, nil
}

func (s *SessionService) load(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	session, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, apperror.ErrSessionNotFound
		}
		return nil, err
	}
	return session, nil
}

func (s *SessionService) details(ctx context.Context, session *models.Session) (*SessionDetails, error) {
	people, err := s.repo.LoadParticipants(ctx, participantIDs(session))
	if err != nil {
		return nil, err
	}
	return &SessionDetails{Session: session, Mentor: people[session.MentorID], Student: people[session.StudentID]}, nil
}

func (s *SessionService) notify(ctx context.Context, session *models.Session, senderID, recipientID uuid.UUID, kind, title, message string, email bool) {
	if s.notifier == nil {
		return
	}
	sender := senderID
	s.notifier.NotifyQuietly(ctx, NotificationEvent{
		RecipientID: recipientID,
		SenderID:    &sender,
		Type:        kind,
		Title:       title,
		Message:     message,
		Data:        map[string]any{"sessionId": session.ID, "status": session.Status},
		Email:       email,
	})
}

func toEntity(m *models.Session) *entity.Session {
	return &entity.Session{
		ID:            m.ID,
		MentorID:      m.MentorID,
		StudentID:     m.StudentID,
		Status:        valueobject.SessionStatus(m.Status),
		ScheduledAt:   m.ScheduledAt,
		RescheduledBy: m.RescheduledBy,
	}
}

func participantIDs(sessions ...*models.Session) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(sessions)*2)
	ids := make([]uuid.UUID, 0, len(sessions)*2)
	for _, session := range sessions {
		for _, id := range []uuid.UUID{session.MentorID, session.StudentID} {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	return ids
}

func cleanNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
