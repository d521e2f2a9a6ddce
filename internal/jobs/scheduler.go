// Package jobs запускает фоновые задачи по расписанию.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/skillswap-backend/internal/logger"
)

// DefaultJobTimeout ограничение на один запуск задачи.
const DefaultJobTimeout = 10 * time.Minute

// Job одна фоновая задача.
type Job struct {
	Name     string
	Schedule string
	Timeout  time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler обёртка над cron с восстановлением паник и пропуском наложившихся запусков.
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
	stop context.CancelFunc
}

func NewScheduler() *Scheduler {
	ctx, stop := context.WithCancel(context.Background())
	l := cronLogger{}
	return &Scheduler{
		cron: cron.New(cron.WithLogger(l), cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l))),
		ctx:  ctx,
		stop: stop,
	}
}

// Add регистрирует задачу. Пустое расписание отключает её.
func (s *Scheduler) Add(job Job) error {
	if job.Schedule == "" {
		logger.Log.WithField("job", job.Name).Info("jobs: задача отключена")
		return nil
	}
	timeout := job.Timeout
	if timeout <= 0 {
		timeout = DefaultJobTimeout
	}
	if _, err := s.cron.AddFunc(job.Schedule, func() { s.runOnce(job, timeout) }); err != nil {
		return fmt.Errorf("jobs: некорректное расписание %q для %s: %w", job.Schedule, job.Name, err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop отменяет контекст задач и ждёт завершения текущих запусков или ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.stop()
	done := s.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) runOnce(job Job, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	started := time.Now()
	err := job.Run(ctx)
	fields := logrus.Fields{
		"job":      job.Name,
		"duration": time.Since(started).String(),
	}
	if err != nil {
		fields["error"] = err.Error()
		logger.Log.WithFields(fields).Error("jobs: задача завершилась с ошибкой")
		return
	}
	logger.Log.WithFields(fields).Debug("jobs: задача выполнена")
}

// cronLogger направляет сообщения cron в logrus.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Log.WithFields(kvFields(keysAndValues)).Debug("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := kvFields(keysAndValues)
	fields["error"] = err.Error()
	logger.Log.WithFields(fields).Error("cron: " + msg)
}

func kvFields(kv []interface{}) logrus.Fields {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return fields
}
