package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/skillswap-backend/internal/models"
	"github.com/ignatzorin/skillswap-backend/internal/repository/common"
)

var (
	// ErrSessionNotFound возвращается, когда сессия не найдена.
	ErrSessionNotFound = errors.New("session not found")
	// ErrDuplicatePending у студента уже есть ожидающий запрос к этому ментору.
	ErrDuplicatePending = errors.New("pending session already exists")
	// ErrStatusChanged статус сессии изменился между чтением и записью.
	ErrStatusChanged = errors.New("session status changed concurrently")
)

const pendingPairIndex = "uniq_sessions_pending_pair"

// SessionRepository отвечает за таблицу sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository создаёт экземпляр репозитория.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create сохраняет новый запрос на сессию.
func (r *SessionRepository) Create(ctx context.Context, s *models.Session) error {
	query := `
		INSERT INTO sessions (
			mentor_id, student_id, skill_name, skill_category, status, scheduled_at, duration,
			session_type, message, is_swap_request, swap_skill_offered, swap_skill_wanted
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`
	if s.SwapSkillOffered == nil {
		s.SwapSkillOffered = []string{}
	}

	if err := r.db.QueryRowxContext(
		ctx, query,
		s.MentorID, s.StudentID, s.SkillName, s.SkillCategory, s.Status, s.ScheduledAt, s.Duration,
		s.SessionType, s.Message, s.IsSwapRequest, s.SwapSkillOffered, s.SwapSkillWanted,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if common.IsUniqueViolation(err, pendingPairIndex) {
			return ErrDuplicatePending
		}
		return fmt.Errorf("session repository: create %w", err)
	}
	return nil
}

// GetByID возвращает сессию.
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	s, err := common.GetByID[models.Session](ctx, r.db, "sessions", id, ErrSessionNotFound)
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		return nil, fmt.Errorf("session repository: get by id %w", err)
	}
	return s, err
}

// HasPending проверяет наличие ожидающего запроса студента к ментору.
func (r *SessionRepository) HasPending(ctx context.Context, mentorID, studentID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM sessions WHERE mentor_id = $1 AND student_id = $2 AND status = 'pending')`
	if err := r.db.GetContext(ctx, &exists, query, mentorID, studentID); err != nil {
		return false, fmt.Errorf("session repository: has pending %w", err)
	}
	return exists, nil
}

// UpdateStatus записывает новый статус, только если текущий равен ожидаемому.
// Возвращает ErrStatusChanged, если другой запрос успел изменить сессию.
func (r *SessionRepository) UpdateStatus(ctx context.Context, change models.SessionStatusChange) (*models.Session, error) {
	query := `
		UPDATE sessions SET
			status = $2,
			updated_at = $3,
			response_message = COALESCE($4, response_message),
			responded_at = CASE WHEN $2 IN ('accepted', 'declined') THEN $3 ELSE responded_at END,
			cancelled_by = COALESCE($5, cancelled_by),
			cancellation_reason = COALESCE($6, cancellation_reason),
			cancelled_at = CASE WHEN $2 = 'cancelled' THEN $3 ELSE cancelled_at END,
			rescheduled_by = COALESCE($7, rescheduled_by),
			reschedule_reason = COALESCE($8, reschedule_reason),
			previous_scheduled_at = CASE WHEN $9::timestamptz IS NOT NULL THEN scheduled_at ELSE previous_scheduled_at END,
			scheduled_at = COALESCE($9::timestamptz, scheduled_at),
			reminder_sent_at = CASE WHEN $9::timestamptz IS NOT NULL THEN NULL ELSE reminder_sent_at END,
			completed_at = CASE WHEN $2 = 'completed' THEN $3 ELSE completed_at END
		WHERE id = $1 AND status = $10
		RETURNING *
	`

	var s models.Session
	err := r.db.GetContext(ctx, &s, query,
		change.SessionID, change.Next, change.At,
		change.ResponseMessage,
		change.CancelledBy, change.CancellationReason,
		change.RescheduledBy, change.RescheduleReason,
		change.NewScheduledAt,
		change.Expected,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, getErr := r.GetByID(ctx, change.SessionID); getErr != nil {
				return nil, getErr
			}
			return nil, ErrStatusChanged
		}
		return nil, fmt.Errorf("session repository: update status %w", err)
	}
	return &s, nil
}

// List возвращает сессии пользователя по фильтру и их общее количество.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]*models.Session, int, error) {
	where := []string{}
	args := []interface{}{filter.UserID}
	argNum := 2

	switch filter.Role {
	case models.SessionRoleMentor:
		where = append(where, "mentor_id = $1")
	case models.SessionRoleStudent:
		where = append(where, "student_id = $1")
	default:
		where = append(where, "(mentor_id = $1 OR student_id = $1)")
	}

	if filter.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", argNum))
		args = append(args, filter.Status)
		argNum++
	}

	order := "scheduled_at DESC"
	if filter.Upcoming {
		where = append(where, fmt.Sprintf("scheduled_at > $%d AND status IN ('pending', 'accepted', 'confirmed', 'rescheduled')", argNum))
		args = append(args, time.Now())
		argNum++
		order = "scheduled_at ASC"
	}

	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM sessions WHERE `+cond, args...); err != nil {
		return nil, 0, fmt.Errorf("session repository: count %w", err)
	}

	query := fmt.Sprintf(`SELECT * FROM sessions WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`, cond, order, argNum, argNum+1)
	args = append(args, filter.Limit, filter.Offset)

	sessions := []*models.Session{}
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("session repository: list %w", err)
	}
	return sessions, total, nil
}

// ListDueReminders возвращает принятые сессии, начинающиеся в интервале, без отправленного напоминания.
func (r *SessionRepository) ListDueReminders(ctx context.Context, from, to time.Time) ([]*models.Session, error) {
	query := `
		SELECT * FROM sessions
		WHERE status IN ('accepted', 'confirmed') AND reminder_sent_at IS NULL
			AND scheduled_at > $1 AND scheduled_at <= $2
		ORDER BY scheduled_at
	`
	sessions := []*models.Session{}
	if err := r.db.SelectContext(ctx, &sessions, query, from, to); err != nil {
		return nil, fmt.Errorf("session repository: due reminders %w", err)
	}
	return sessions, nil
}

// ListStaleRequests возвращает запросы без ответа, время которых уже наступило.
func (r *SessionRepository) ListStaleRequests(ctx context.Context, before time.Time) ([]*models.Session, error) {
	query := `
		SELECT * FROM sessions
		WHERE status IN ('pending', 'rescheduled') AND scheduled_at <= $1
		ORDER BY scheduled_at
	`
	sessions := []*models.Session{}
	if err := r.db.SelectContext(ctx, &sessions, query, before); err != nil {
		return nil, fmt.Errorf("session repository: stale requests %w", err)
	}
	return sessions, nil
}

// MarkReminderSent отмечает напоминание. false, если его уже отметил другой экземпляр.
func (r *SessionRepository) MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET reminder_sent_at = $2 WHERE id = $1 AND reminder_sent_at IS NULL`, id, at)
	if err != nil {
		return false, fmt.Errorf("session repository: mark reminder %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// LoadParticipants возвращает краткие карточки пользователей по идентификаторам.
func (r *SessionRepository) LoadParticipants(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.UserSummary, error) {
	result := make(map[uuid.UUID]models.UserSummary, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(`
		SELECT id, username, display_name, avatar_url, average_rating, total_reviews
		FROM users WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("session repository: load participants %w", err)
	}

	var rows []models.UserSummary
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("session repository: load participants %w", err)
	}
	for _, row := range rows {
		result[row.ID] = row
	}
	return result, nil
}
