package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/skillswap-backend/internal/logger"
)

// ReminderWindow за сколько до начала сессии отправляется напоминание.
const ReminderWindow = time.Hour

type StatsSweeper interface {
	Sweep(ctx context.Context) (int, error)
}

type NotificationPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

type ReminderSender interface {
	SendReminders(ctx context.Context, window time.Duration) (int, error)
	ExpireStale(ctx context.Context) (int, error)
}

// StatsSweep сверяет статистику всех пользователей.
func StatsSweep(schedule string, stats StatsSweeper) Job {
	return Job{
		Name:     "stats_sweep",
		Schedule: schedule,
		Timeout:  time.Hour,
		Run: func(ctx context.Context) error {
			n, err := stats.Sweep(ctx)
			logger.Log.WithField("users", n).Info("jobs: статистика пересчитана")
			return err
		},
	}
}

// NotificationPurge удаляет уведомления старше 30 дней.
func NotificationPurge(schedule string, notifications NotificationPurger) Job {
	return Job{
		Name:     "notification_purge",
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			n, err := notifications.PurgeExpired(ctx)
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Log.WithField("deleted", n).Info("jobs: истёкшие уведомления удалены")
			}
			return nil
		},
	}
}

// SessionReminders напоминает о сессиях, которые начнутся в ближайший час,
// и отменяет запросы, оставшиеся без ответа к началу.
func SessionReminders(schedule string, sessions ReminderSender) Job {
	return Job{
		Name:     "session_reminders",
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			n, err := sessions.SendReminders(ctx, ReminderWindow)
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Log.WithFields(logrus.Fields{"sessions": n}).Info("jobs: напоминания отправлены")
			}

			expired, err := sessions.ExpireStale(ctx)
			if err != nil {
				return err
			}
			if expired > 0 {
				logger.Log.WithFields(logrus.Fields{"sessions": expired}).Info("jobs: просроченные запросы отменены")
			}
			return nil
		},
	}
}
