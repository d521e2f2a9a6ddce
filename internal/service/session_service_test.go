package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/skillswap-backend/internal/models"
	"github.com/ignatzorin/skillswap-backend/internal/pkg/apperror"
	"github.com/ignatzorin/skillswap-backend/internal/repository"
)

// memorySessionRepo хранит сессии в памяти и повторяет CAS-семантику UpdateStatus.
type memorySessionRepo struct {
	sessions map[uuid.UUID]*models.Session
	// beforeUpdate позволяет подменить статус между чтением и записью.
	beforeUpdate func(s *models.Session)
}

func newMemorySessionRepo() *memorySessionRepo {
	return &memorySessionRepo{sessions: map[uuid.UUID]*models.Session{}}
}

func (r *memorySessionRepo) Create(_ context.Context, s *models.Session) error {
	for _, existing := range r.sessions {
		if existing.MentorID == s.MentorID && existing.StudentID == s.StudentID && existing.Status == "pending" {
			return repository.ErrDuplicatePending
		}
	}
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	copied := *s
	r.sessions[s.ID] = &copied
	return nil
}

func (r *memorySessionRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Session, error) {
	s, ok := r.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	copied := *s
	return &copied, nil
}

func (r *memorySessionRepo) HasPending(_ context.Context, mentorID, studentID uuid.UUID) (bool, error) {
	for _, s := range r.sessions {
		if s.MentorID == mentorID && s.StudentID == studentID && s.Status == "pending" {
			return true, nil
		}
	}
	return false, nil
}

func (r *memorySessionRepo) UpdateStatus(_ context.Context, change models.SessionStatusChange) (*models.Session, error) {
	s, ok := r.sessions[change.SessionID]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	if r.beforeUpdate != nil {
		r.beforeUpdate(s)
	}
	if s.Status != change.Expected {
		return nil, repository.ErrStatusChanged
	}
	s.Status = change.Next
	s.UpdatedAt = change.At
	if change.ResponseMessage != nil {
		s.ResponseMessage = change.ResponseMessage
	}
	if change.CancelledBy != nil {
		s.CancelledBy = change.CancelledBy
	}
	if change.CancellationReason != nil {
		s.CancellationReason = change.CancellationReason
	}
	if change.Next == "cancelled" {
		s.CancelledAt = &change.At
	}
	if change.RescheduledBy != nil {
		s.RescheduledBy = change.RescheduledBy
		s.RescheduleReason = change.RescheduleReason
	}
	if change.NewScheduledAt != nil {
		prev := s.ScheduledAt
		s.PreviousScheduledAt = &prev
		s.ScheduledAt = *change.NewScheduledAt
		s.ReminderSentAt = nil
	}
	if change.Next == "completed" {
		s.CompletedAt = &change.At
	}
	copied := *s
	return &copied, nil
}

func (r *memorySessionRepo) List(_ context.Context, filter models.SessionFilter) ([]*models.Session, int, error) {
	out := []*models.Session{}
	for _, s := range r.sessions {
		if !s.IsParticipant(filter.UserID) {
			continue
		}
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		copied := *s
		out = append(out, &copied)
	}
	return out, len(out), nil
}

func (r *memorySessionRepo) ListDueReminders(_ context.Context, from, to time.Time) ([]*models.Session, error) {
	out := []*models.Session{}
	for _, s := range r.sessions {
		if s.Status == "accepted" && s.ReminderSentAt == nil && s.ScheduledAt.After(from) && !s.ScheduledAt.After(to) {
			copied := *s
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memorySessionRepo) MarkReminderSent(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	s, ok := r.sessions[id]
	if !ok || s.ReminderSentAt != nil {
		return false, nil
	}
	s.ReminderSentAt = &at
	return true, nil
}

func (r *memorySessionRepo) ListStaleRequests(_ context.Context, before time.Time) ([]*models.Session, error) {
	out := []*models.Session{}
	for _, s := range r.sessions {
		if (s.Status == "pending" || s.Status == "rescheduled") && !s.ScheduledAt.After(before) {
			copied := *s
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memorySessionRepo) LoadParticipants(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]models.UserSummary, error) {
	out := make(map[uuid.UUID]models.UserSummary, len(ids))
	for _, id := range ids {
		out[id] = models.UserSummary{ID: id, Username: "user-" + id.String()[:8]}
	}
	return out, nil
}

type fakeMentors struct {
	users  map[uuid.UUID]*models.User
	offers map[uuid.UUID][]models.SkillOffer
}

func (f *fakeMentors) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeMentors) GetOffer(_ context.Context, userID, offerID uuid.UUID) (*models.SkillOffer, error) {
	for _, o := range f.offers[userID] {
		if o.ID == offerID {
			offer := o
			return &offer, nil
		}
	}
	return nil, repository.ErrSkillNotFound
}

func (f *fakeMentors) FindOfferByName(_ context.Context, userID uuid.UUID, name string) (*models.SkillOffer, error) {
	for _, o := range f.offers[userID] {
		if strings.EqualFold(o.Name, strings.TrimSpace(name)) {
			offer := o
			return &offer, nil
		}
	}
	return nil, repository.ErrSkillNotFound
}

type sessionFixture struct {
	svc      *SessionService
	repo     *memorySessionRepo
	stats    *recordingStats
	notifier *recordingNotifier
	mentor   uuid.UUID
	student  uuid.UUID
	offerID  uuid.UUID
	now      time.Time
}

func newSessionFixture() *sessionFixture {
	f := &sessionFixture{
		repo:     newMemorySessionRepo(),
		stats:    &recordingStats{},
		notifier: &recordingNotifier{},
		mentor:   uuid.New(),
		student:  uuid.New(),
		offerID:  uuid.New(),
		now:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	mentors := &fakeMentors{
		users: map[uuid.UUID]*models.User{
			f.mentor:  {ID: f.mentor, IsActive: true},
			f.student: {ID: f.student, IsActive: true},
		},
		offers: map[uuid.UUID][]models.SkillOffer{
			f.mentor: {{ID: f.offerID, UserID: f.mentor, Name: "Go", Category: "Programming", Level: "Expert"}},
		},
	}
	f.svc = NewSessionService(f.repo, mentors, f.stats, f.notifier)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *sessionFixture) request(t *testing.T) *SessionDetails {
	t.Helper()
	id := f.offerID
	details, err := f.svc.Create(context.Background(), f.student, CreateSessionInput{
		MentorID:    f.mentor,
		SkillID:     &id,
		ScheduledAt: f.now.Add(48 * time.Hour),
		Duration:    60,
	})
	require.NoError(t, err)
	return details
}

func TestSessionService_Create(t *testing.T) {
	f := newSessionFixture()
	details := f.request(t)

	assert.Equal(t, "pending", details.Status)
	assert.Equal(t, "Go", details.SkillName)
	assert.Equal(t, "Programming", details.SkillCategory)
	assert.Equal(t, "online", details.SessionType)
	assert.Equal(t, f.mentor, details.Mentor.ID)
	assert.Equal(t, f.student, details.Student.ID)

	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, f.mentor, f.notifier.events[0].RecipientID)
	assert.Equal(t, models.NotificationSessionRequest, f.notifier.events[0].Type)
	assert.True(t, f.notifier.events[0].Email)
}

func TestSessionService_Create_BySkillNameWithSwap(t *testing.T) {
	f := newSessionFixture()
	details, err := f.svc.Create(context.Background(), f.student, CreateSessionInput{
		MentorID:     f.mentor,
		SkillWanted:  " go ",
		SkillOffered: []string{"Guitar", " "},
		ScheduledAt:  f.now.Add(time.Hour),
		Duration:     30,
		SessionType:  "in-person",
	})
	require.NoError(t, err)

	assert.True(t, details.IsSwapRequest)
	assert.Equal(t, []string{"Guitar"}, []string(details.SwapSkillOffered))
	require.NotNil(t, details.SwapSkillWanted)
	assert.Equal(t, "Go", *details.SwapSkillWanted)
	assert.Equal(t, "in-person", details.SessionType)
}

func TestSessionService_Create_Rejections(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()
	unknown := uuid.New()

	cases := []struct {
		name  string
		input CreateSessionInput
		check func(error) bool
	}{
		{"self", CreateSessionInput{MentorID: f.student, SkillWanted: "Go", ScheduledAt: f.now.Add(time.Hour), Duration: 60}, apperror.IsValidation},
		{"past date", CreateSessionInput{MentorID: f.mentor, SkillWanted: "Go", ScheduledAt: f.now.Add(-time.Hour), Duration: 60}, apperror.IsValidation},
		{"short duration", CreateSessionInput{MentorID: f.mentor, SkillWanted: "Go", ScheduledAt: f.now.Add(time.Hour), Duration: 10}, apperror.IsValidation},
		{"bad type", CreateSessionInput{MentorID: f.mentor, SkillWanted: "Go", ScheduledAt: f.now.Add(time.Hour), Duration: 60, SessionType: "phone"}, apperror.IsValidation},
		{"no skill", CreateSessionInput{MentorID: f.mentor, ScheduledAt: f.now.Add(time.Hour), Duration: 60}, apperror.IsValidation},
		{"unknown mentor", CreateSessionInput{MentorID: uuid.New(), SkillWanted: "Go", ScheduledAt: f.now.Add(time.Hour), Duration: 60}, apperror.IsNotFound},
		{"skill not offered", CreateSessionInput{MentorID: f.mentor, SkillWanted: "Rust", ScheduledAt: f.now.Add(time.Hour), Duration: 60}, apperror.IsNotFound},
		{"foreign skill id", CreateSessionInput{MentorID: f.mentor, SkillID: &unknown, ScheduledAt: f.now.Add(time.Hour), Duration: 60}, apperror.IsNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, f.student, tc.input)
			require.Error(t, err)
			assert.True(t, tc.check(err), "unexpected error: %v", err)
		})
	}
	assert.Empty(t, f.repo.sessions)
}

func TestSessionService_Create_DuplicatePending(t *testing.T) {
	f := newSessionFixture()
	f.request(t)

	_, err := f.svc.Create(context.Background(), f.student, CreateSessionInput{
		MentorID: f.mentor, SkillWanted: "Go", ScheduledAt: f.now.Add(time.Hour), Duration: 60,
	})
	require.Error(t, err)
	assert.True(t, apperror.IsConflict(err))
}

func TestSessionService_AcceptAndComplete(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()
	created := f.request(t)

	msg := "  до встречи "
	accepted, err := f.svc.Respond(ctx, created.ID, f.mentor, true, &msg)
	require.NoError(t, err)
	assert.Equal(t, "accepted", accepted.Status)
	require.NotNil(t, accepted.ResponseMessage)
	assert.Equal(t, "до встречи", *accepted.ResponseMessage)

	completed, err := f.svc.Complete(ctx, created.ID, f.student)
	require.NoError(t, err)
	assert.Equal(t, "completed", completed.Status)
	assert.NotNil(t, completed.CompletedAt)
	assert.ElementsMatch(t, []uuid.UUID{f.mentor, f.student}, f.stats.calls)

	last := f.notifier.events[len(f.notifier.events)-1]
	assert.Equal(t, models.NotificationSessionCompleted, last.Type)
	assert.Equal(t, f.mentor, last.RecipientID)
}

func TestSessionService_Respond_OnlyMentor(t *testing.T) {
	f := newSessionFixture()
	created := f.request(t)

	_, err := f.svc.Respond(context.Background(), created.ID, f.student, true, nil)
	require.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))

	_, err = f.svc.Respond(context.Background(), created.ID, uuid.New(), false, nil)
	require.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))
}

func TestSessionService_Decline_IsTerminal(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()
	created := f.request(t)

	declined, err := f.svc.Respond(ctx, created.ID, f.mentor, false, nil)
	require.NoError(t, err)
	assert.Equal(t, "declined", declined.Status)

	_, err = f.svc.Respond(ctx, created.ID, f.mentor, true, nil)
	require.Error(t, err)
	assert.True(t, apperror.IsBadRequest(err))
}

func TestSessionService_CompleteRequiresAccepted(t *testing.T) {
	f := newSessionFixture()
	created := f.request(t)

	_, err := f.svc.Complete(context.Background(), created.ID, f.mentor)
	require.Error(t, err)
	assert.True(t, apperror.IsBadRequest(err))
	assert.Empty(t, f.stats.calls)
}

func TestSessionService_ConcurrentChangeIsConflict(t *testing.T) {
	f := newSessionFixture()
	created := f.request(t)
	f.repo.beforeUpdate = func(s *models.Session) { s.Status = "cancelled" }

	_, err := f.svc.Respond(context.Background(), created.ID, f.mentor, true, nil)
	require.Error(t, err)
	assert.True(t, apperror.IsConflict(err))
}

func TestSessionService_CancelWindow(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()
	created := f.request(t)

	f.now = created.ScheduledAt.Add(-time.Hour)
	_, err := f.svc.Cancel(ctx, created.ID, f.student, nil)
	require.Error(t, err)
	assert.True(t, apperror.IsBadRequest(err))

	f.now = created.ScheduledAt.Add(-3 * time.Hour)
	reason := "заболел"
	cancelled, err := f.svc.Cancel(ctx, created.ID, f.student, &reason)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", cancelled.Status)
	require.NotNil(t, cancelled.CancelledBy)
	assert.Equal(t, f.student, *cancelled.CancelledBy)
	assert.Equal(t, "заболел", *cancelled.CancellationReason)
}

func TestSessionService_RescheduleFlow(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()
	created := f.request(t)
	_, err := f.svc.Respond(ctx, created.ID, f.mentor, true, nil)
	require.NoError(t, err)

	newDate := created.ScheduledAt.Add(24 * time.Hour)
	rescheduled, err := f.svc.Reschedule(ctx, created.ID, f.mentor, newDate, nil)
	require.NoError(t, err)
	assert.Equal(t, "rescheduled", rescheduled.Status)
	assert.True(t, rescheduled.ScheduledAt.Equal(newDate))
	require.NotNil(t, rescheduled.PreviousScheduledAt)
	assert.True(t, rescheduled.PreviousScheduledAt.Equal(created.ScheduledAt))

	// Отвечает тот, кто не предлагал перенос.
	_, err = f.svc.Respond(ctx, created.ID, f.mentor, true, nil)
	require.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))

	accepted, err := f.svc.Respond(ctx, created.ID, f.student, true, nil)
	require.NoError(t, err)
	assert.Equal(t, "accepted", accepted.Status)
}

func TestSessionService_Reschedule_Validation(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()
	created := f.request(t)

	_, err := f.svc.Reschedule(ctx, created.ID, f.student, f.now.Add(-time.Minute), nil)
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))

	f.now = created.ScheduledAt.Add(-3 * time.Hour)
	_, err = f.svc.Reschedule(ctx, created.ID, f.student, created.ScheduledAt.Add(time.Hour), nil)
	require.Error(t, err)
	assert.True(t, apperror.IsBadRequest(err))
}

func TestSessionService_Get(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()
	created := f.request(t)

	_, err := f.svc.Get(ctx, created.ID, f.student, false)
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, created.ID, uuid.New(), false)
	assert.True(t, apperror.IsForbidden(err))

	_, err = f.svc.Get(ctx, created.ID, uuid.New(), true)
	assert.NoError(t, err)

	_, err = f.svc.Get(ctx, uuid.New(), f.student, false)
	assert.True(t, apperror.IsNotFound(err))
}

func TestSessionService_ListMine_ValidatesFilters(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()
	f.request(t)

	items, total, err := f.svc.ListMine(ctx, models.SessionFilter{UserID: f.student, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, f.mentor, items[0].Mentor.ID)

	_, _, err = f.svc.ListMine(ctx, models.SessionFilter{UserID: f.student, Status: "lost"})
	assert.True(t, apperror.IsValidation(err))

	_, _, err = f.svc.ListMine(ctx, models.SessionFilter{UserID: f.student, Role: "owner"})
	assert.True(t, apperror.IsValidation(err))
}

func TestSessionService_SendReminders_Once(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()
	created := f.request(t)
	_, err := f.svc.Respond(ctx, created.ID, f.mentor, true, nil)
	require.NoError(t, err)
	f.notifier.events = nil

	f.now = created.ScheduledAt.Add(-30 * time.Minute)
	sent, err := f.svc.SendReminders(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	require.Len(t, f.notifier.events, 2)
	for _, ev := range f.notifier.events {
		assert.Equal(t, models.NotificationSessionReminder, ev.Type)
		assert.True(t, ev.Reminder)
	}

	sent, err = f.svc.SendReminders(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Len(t, f.notifier.events, 2)
}

func TestSessionService_ExpireStale_FreesPair(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()
	stale := f.request(t)
	f.notifier.events = nil

	f.now = stale.ScheduledAt.Add(-time.Hour)
	_, err := f.svc.Cancel(ctx, stale.ID, f.student, nil)
	require.Error(t, err)

	expired, err := f.svc.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Zero(t, expired)

	f.now = stale.ScheduledAt.Add(time.Minute)
	expired, err = f.svc.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	got := f.repo.sessions[stale.ID]
	assert.Equal(t, "cancelled", got.Status)
	require.NotNil(t, got.CancellationReason)
	assert.Equal(t, staleRequestReason, *got.CancellationReason)
	assert.Nil(t, got.CancelledBy)
	require.Len(t, f.notifier.events, 2)
	assert.Equal(t, models.NotificationSessionCancelled, f.notifier.events[0].Type)

	expired, err = f.svc.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Zero(t, expired)

	fresh := f.request(t)
	assert.Equal(t, "pending", fresh.Status)
}

func TestSessionService_ExpireStale_KeepsAnsweredSessions(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()
	accepted := f.request(t)
	_, err := f.svc.Respond(ctx, accepted.ID, f.mentor, true, nil)
	require.NoError(t, err)

	f.now = accepted.ScheduledAt.Add(time.Minute)
	expired, err := f.svc.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Zero(t, expired)
	assert.Equal(t, "accepted", f.repo.sessions[accepted.ID].Status)
}

func TestSessionService_ExpireStale_SkipsConcurrentAnswer(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()
	stale := f.request(t)
	f.repo.beforeUpdate = func(s *models.Session) { s.Status = "accepted" }

	f.now = stale.ScheduledAt.Add(time.Minute)
	expired, err := f.svc.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Zero(t, expired)
	assert.Equal(t, "accepted", f.repo.sessions[stale.ID].Status)
}
