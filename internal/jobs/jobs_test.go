package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSweeper struct{ calls int }

func (f *fakeSweeper) Sweep(context.Context) (int, error) {
	f.calls++
	return 3, nil
}

type fakePurger struct{ err error }

func (f fakePurger) PurgeExpired(context.Context) (int64, error) { return 0, f.err }

type fakeReminders struct {
	window    time.Duration
	expired   int
	sendErr   error
	expireErr error
}

func (f *fakeReminders) SendReminders(_ context.Context, window time.Duration) (int, error) {
	f.window = window
	return 1, f.sendErr
}

func (f *fakeReminders) ExpireStale(context.Context) (int, error) {
	f.expired++
	return 1, f.expireErr
}

func TestScheduler_RejectsBadSchedule(t *testing.T) {
	s := NewScheduler()
	err := s.Add(Job{Name: "broken", Schedule: "every day", Run: func(context.Context) error { return nil }})
	assert.Error(t, err)
}

func TestScheduler_EmptyScheduleDisablesJob(t *testing.T) {
	s := NewScheduler()
	require.NoError(t, s.Add(Job{Name: "off", Run: func(context.Context) error { return nil }}))
	assert.Empty(t, s.cron.Entries())
}

func TestScheduler_AcceptsDefaults(t *testing.T) {
	s := NewScheduler()
	require.NoError(t, s.Add(StatsSweep("0 3 * * *", &fakeSweeper{})))
	require.NoError(t, s.Add(NotificationPurge("@hourly", fakePurger{})))
	require.NoError(t, s.Add(SessionReminders("*/10 * * * *", &fakeReminders{})))
	assert.Len(t, s.cron.Entries(), 3)

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}

func TestJobs_Run(t *testing.T) {
	ctx := context.Background()

	sweeper := &fakeSweeper{}
	require.NoError(t, StatsSweep("", sweeper).Run(ctx))
	assert.Equal(t, 1, sweeper.calls)

	assert.Error(t, NotificationPurge("", fakePurger{err: errors.New("db down")}).Run(ctx))

	reminders := &fakeReminders{}
	require.NoError(t, SessionReminders("", reminders).Run(ctx))
	assert.Equal(t, ReminderWindow, reminders.window)
	assert.Equal(t, 1, reminders.expired)
}

func TestSessionReminders_ExpiresStaleRequests(t *testing.T) {
	ctx := context.Background()

	failing := &fakeReminders{expireErr: errors.New("db down")}
	assert.Error(t, SessionReminders("", failing).Run(ctx))

	noReminders := &fakeReminders{sendErr: errors.New("db down")}
	assert.Error(t, SessionReminders("", noReminders).Run(ctx))
	assert.Zero(t, noReminders.expired)
}

func TestScheduler_RunOnceSurvivesError(t *testing.T) {
	s := NewScheduler()
	called := false
	s.runOnce(Job{Name: "fails", Run: func(ctx context.Context) error {
		called = true
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return errors.New("boom")
	}}, time.Second)
	assert.True(t, called)
}
