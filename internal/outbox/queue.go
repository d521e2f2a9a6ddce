package outbox

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/skillswap-backend/internal/logger"
)

// Виды задач доставки
const (
	KindRealtime  = "realtime"
	KindEmail     = "email"
	KindBroadcast = "broadcast"
)

// ErrClosed очередь уже закрыта.
var ErrClosed = errors.New("outbox: queue closed")

// ErrFull буфер заполнен, задача отброшена.
var ErrFull = errors.New("outbox: queue full")

// Task одна доставка побочного эффекта. Выполняется не более одного раза.
type Task struct {
	Kind        string
	RecipientID uuid.UUID
	Run         func(ctx context.Context) error
}

// Queue ограниченный буфер задач и пул воркеров.
// Повторов нет: упавшая, отброшенная или запаниковавшая задача только логируется.
type Queue struct {
	tasks       chan Task
	wg          sync.WaitGroup
	mu          sync.RWMutex
	closed      bool
	taskTimeout time.Duration
	log         logrus.FieldLogger
}

// Config параметры очереди.
type Config struct {
	Workers     int
	Buffer      int
	TaskTimeout time.Duration
}

// New создаёт очередь и запускает воркеры.
func New(cfg Config) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 256
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 15 * time.Second
	}

	q := &Queue{
		tasks:       make(chan Task, cfg.Buffer),
		taskTimeout: cfg.TaskTimeout,
		log:         logger.Log.WithField("component", "outbox"),
	}

	for i := 0; i < cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

// Enqueue ставит задачу в очередь, не блокируясь.
func (q *Queue) Enqueue(task Task) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.logDropped(task, ErrClosed)
		return ErrClosed
	}

	select {
	case q.tasks <- task:
		return nil
	default:
		q.logDropped(task, ErrFull)
		return ErrFull
	}
}

// Close перестаёт принимать задачи и ждёт, пока воркеры доработают буфер.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.tasks)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for task := range q.tasks {
		q.run(task)
	}
}

func (q *Queue) run(task Task) {
	ctx, cancel := context.WithTimeout(context.Background(), q.taskTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			q.log.WithFields(logrus.Fields{
				"kind":         task.Kind,
				"recipient_id": task.RecipientID,
				"panic":        r,
				"stack":        string(debug.Stack()),
			}).Error("outbox: паника в задаче доставки")
		}
	}()

	if task.Run == nil {
		return
	}
	if err := task.Run(ctx); err != nil {
		q.log.WithFields(logrus.Fields{
			"kind":         task.Kind,
			"recipient_id": task.RecipientID,
			"error":        err.Error(),
		}).Warn("outbox: доставка не удалась")
	}
}

func (q *Queue) logDropped(task Task, reason error) {
	q.log.WithFields(logrus.Fields{
		"kind":         task.Kind,
		"recipient_id": task.RecipientID,
		"reason":       reason.Error(),
	}).Warn("outbox: задача отброшена")
}
