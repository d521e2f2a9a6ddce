package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/skillswap-backend/internal/domain/entity"
	"github.com/ignatzorin/skillswap-backend/internal/logger"
	"github.com/ignatzorin/skillswap-backend/internal/mail"
	"github.com/ignatzorin/skillswap-backend/internal/models"
	"github.com/ignatzorin/skillswap-backend/internal/outbox"
	"github.com/ignatzorin/skillswap-backend/internal/pkg/apperror"
	"github.com/ignatzorin/skillswap-backend/internal/repository"
)

const broadcastPage = 500

// События realtime канала
const (
	RealtimeNotification = "notification"
	RealtimeMessage      = "message"
)

// NotificationRepository описывает взаимодействие сервиса с хранилищем уведомлений.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	CreateBatch(ctx context.Context, items []models.Notification) (int, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	List(ctx context.Context, recipientID uuid.UUID, limit, offset int, unreadOnly bool, now time.Time) ([]models.Notification, int, error)
	MarkAsRead(ctx context.Context, id, recipientID uuid.UUID) error
	MarkAllAsRead(ctx context.Context, recipientID uuid.UUID) (int64, error)
	Delete(ctx context.Context, id, recipientID uuid.UUID) error
	CountUnread(ctx context.Context, recipientID uuid.UUID, now time.Time) (int, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// ContactDirectory данные для доставки: email и настройки каналов.
type ContactDirectory interface {
	GetContact(ctx context.Context, id uuid.UUID) (*models.Contact, error)
	ListActiveIDs(ctx context.Context, afterID uuid.UUID, limit int) ([]uuid.UUID, error)
}

// RealtimePublisher отправка событий в WebSocket.
type RealtimePublisher interface {
	SendToUser(ctx context.Context, userID uuid.UUID, event string, data any) error
	Broadcast(ctx context.Context, event string, data any) error
	IsOnline(userID uuid.UUID) bool
}

// TaskQueue очередь доставки побочных эффектов.
type TaskQueue interface {
	Enqueue(task outbox.Task) error
}

// NotificationEvent то, о чём надо уведомить пользователя.
type NotificationEvent struct {
	RecipientID uuid.UUID
	SenderID    *uuid.UUID
	Type        string
	Title       string
	Message     string
	Data        map[string]any
	// Email письмо отправляется, если получатель не отключил email уведомления.
	Email bool
	// Reminder уведомление не создаётся, если получатель отключил напоминания.
	Reminder bool
}

// NotificationService хранит входящие и раздаёт доставку по каналам.
type NotificationService struct {
	repo        NotificationRepository
	contacts    ContactDirectory
	realtime    RealtimePublisher
	queue       TaskQueue
	mailer      mail.Mailer
	frontendURL string
	now         func() time.Time
}

// NewNotificationService создаёт новый сервис уведомлений.
func NewNotificationService(
	repo NotificationRepository,
	contacts ContactDirectory,
	realtime RealtimePublisher,
	queue TaskQueue,
	mailer mail.Mailer,
	frontendURL string,
) *NotificationService {
	return &NotificationService{
		repo:        repo,
		contacts:    contacts,
		realtime:    realtime,
		queue:       queue,
		mailer:      mailer,
		frontendURL: frontendURL,
		now:         time.Now,
	}
}

// Notify сохраняет уведомление и ставит в очередь доставку по включённым каналам.
// Возвращает nil, nil, если получатель отключил напоминания.
func (s *NotificationService) Notify(ctx context.Context, ev NotificationEvent) (*models.Notification, error) {
	contact, err := s.contacts.GetContact(ctx, ev.RecipientID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, err
	}
	if ev.Reminder && !contact.SessionReminders {
		return nil, nil
	}

	data, err := json.Marshal(ev.Data)
	if err != nil || ev.Data == nil {
		data = []byte("{}")
	}

	now := s.now()
	n := &models.Notification{
		RecipientID: ev.RecipientID,
		SenderID:    ev.SenderID,
		Type:        ev.Type,
		Title:       ev.Title,
		Message:     ev.Message,
		Data:        types.JSONText(data),
		ExpiresAt:   now.Add(models.NotificationTTL),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}

	if contact.RealtimeNotifications && s.online(n.RecipientID) {
		s.enqueue(outbox.Task{
			Kind:        outbox.KindRealtime,
			RecipientID: n.RecipientID,
			Run: func(ctx context.Context) error {
				return s.realtime.SendToUser(ctx, n.RecipientID, RealtimeNotification, n)
			},
		})
	}

	if ev.Email && contact.EmailNotifications && contact.IsActive && s.mailer != nil {
		msg := mail.Message{
			ToEmail: contact.Email,
			ToName:  contact.DisplayName,
			Subject: ev.Title,
			HTML:    mail.Render(ev.Title, ev.Message, s.frontendURL),
		}
		s.enqueue(outbox.Task{
			Kind:        outbox.KindEmail,
			RecipientID: n.RecipientID,
			Run: func(ctx context.Context) error {
				return s.mailer.Send(ctx, msg)
			},
		})
	}

	return n, nil
}

// NotifyQuietly как Notify, но ошибка только логируется.
func (s *NotificationService) NotifyQuietly(ctx context.Context, ev NotificationEvent) {
	if _, err := s.Notify(ctx, ev); err != nil {
		logger.Log.WithFields(logrus.Fields{
			"recipient_id": ev.RecipientID,
			"type":         ev.Type,
			"error":        err.Error(),
		}).Warn("notification service: не удалось создать уведомление")
	}
}

// NotifyNewMessage отправляет сообщение собеседнику в realtime и создаёт уведомление.
func (s *NotificationService) NotifyNewMessage(ctx context.Context, recipientID uuid.UUID, msg *entity.Message) error {
	if s.online(recipientID) {
		payload := map[string]any{
			"id":             msg.ID,
			"conversationId": msg.ConversationID,
			"senderId":       msg.SenderID,
			"content":        msg.Content,
			"createdAt":      msg.CreatedAt,
		}
		s.enqueue(outbox.Task{
			Kind:        outbox.KindRealtime,
			RecipientID: recipientID,
			Run: func(ctx context.Context) error {
				return s.realtime.SendToUser(ctx, recipientID, RealtimeMessage, payload)
			},
		})
	}

	sender := msg.SenderID
	_, err := s.Notify(ctx, NotificationEvent{
		RecipientID: recipientID,
		SenderID:    &sender,
		Type:        models.NotificationNewMessage,
		Title:       "Новое сообщение",
		Message:     preview(msg.Content, 100),
		Data:        map[string]any{"conversationId": msg.ConversationID, "messageId": msg.ID},
	})
	return err
}

// Broadcast создаёт системное уведомление каждому активному пользователю.
func (s *NotificationService) Broadcast(ctx context.Context, senderID uuid.UUID, title, message string) (int, error) {
	now := s.now()
	total := 0
	after := uuid.Nil

	for {
		ids, err := s.contacts.ListActiveIDs(ctx, after, broadcastPage)
		if err != nil {
			return total, err
		}
		if len(ids) == 0 {
			break
		}

		items := make([]models.Notification, 0, len(ids))
		for _, id := range ids {
			sender := senderID
			items = append(items, models.Notification{
				RecipientID: id,
				SenderID:    &sender,
				Type:        models.NotificationSystem,
				Title:       title,
				Message:     message,
				Data:        types.JSONText("{}"),
				CreatedAt:   now,
				ExpiresAt:   now.Add(models.NotificationTTL),
			})
		}

		inserted, err := s.repo.CreateBatch(ctx, items)
		total += inserted
		if err != nil {
			return total, err
		}
		if len(ids) < broadcastPage {
			break
		}
		after = ids[len(ids)-1]
	}

	if s.realtime != nil {
		payload := map[string]any{"type": models.NotificationSystem, "title": title, "message": message, "createdAt": now}
		s.enqueue(outbox.Task{
			Kind: outbox.KindBroadcast,
			Run: func(ctx context.Context) error {
				return s.realtime.Broadcast(ctx, RealtimeNotification, payload)
			},
		})
	}
	return total, nil
}

// List возвращает неистёкшие уведомления пользователя.
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, int, error) {
	return s.repo.List(ctx, userID, limit, offset, unreadOnly, s.now())
}

// Get возвращает уведомление, если пользователь его получатель.
func (s *NotificationService) Get(ctx context.Context, id, userID uuid.UUID) (*models.Notification, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			return nil, apperror.ErrNotificationNotFound
		}
		return nil, err
	}
	if n.RecipientID != userID {
		return nil, apperror.Forbidden("у вас нет прав на это уведомление")
	}
	return n, nil
}

// MarkAsRead отмечает уведомление как прочитанное.
func (s *NotificationService) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	if _, err := s.Get(ctx, id, userID); err != nil {
		return err
	}
	return s.mapNotFound(s.repo.MarkAsRead(ctx, id, userID))
}

// MarkAllAsRead отмечает все уведомления пользователя как прочитанные.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.MarkAllAsRead(ctx, userID)
}

// Delete удаляет уведомление.
func (s *NotificationService) Delete(ctx context.Context, id, userID uuid.UUID) error {
	if _, err := s.Get(ctx, id, userID); err != nil {
		return err
	}
	return s.mapNotFound(s.repo.Delete(ctx, id, userID))
}

// CountUnread возвращает количество непрочитанных уведомлений.
func (s *NotificationService) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID, s.now())
}

// PurgeExpired удаляет уведомления старше 30 дней.
func (s *NotificationService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, s.now())
}

func (s *NotificationService) mapNotFound(err error) error {
	if errors.Is(err, repository.ErrNotificationNotFound) {
		return apperror.ErrNotificationNotFound
	}
	return err
}

// online без подключений realtime задача не ставится, уведомление остаётся во входящих.
func (s *NotificationService) online(userID uuid.UUID) bool {
	return s.realtime != nil && s.realtime.IsOnline(userID)
}

func (s *NotificationService) enqueue(task outbox.Task) {
	if s.queue == nil {
		return
	}
	// Enqueue сам логирует отброшенные задачи
	_ = s.queue.Enqueue(task)
}

func preview(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "…"
}
