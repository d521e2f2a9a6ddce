package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/skillswap-backend/internal/models"
	"github.com/ignatzorin/skillswap-backend/internal/repository/common"
)

// ErrNotificationNotFound возвращается, когда уведомление не найдено.
var ErrNotificationNotFound = errors.New("notification not found")

const notificationBatchSize = 500

// NotificationRepository отвечает за работу с уведомлениями.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository создаёт экземпляр репозитория.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create создаёт новое уведомление.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (recipient_id, sender_id, type, title, message, data, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, is_read, created_at
	`
	if err := r.db.QueryRowxContext(
		ctx, query,
		n.RecipientID, n.SenderID, n.Type, n.Title, n.Message, dataOrEmpty(n), n.ExpiresAt,
	).Scan(&n.ID, &n.IsRead, &n.CreatedAt); err != nil {
		return fmt.Errorf("notification repository: create %w", err)
	}
	return nil
}

// CreateBatch вставляет уведомления пачками в одной транзакции.
func (r *NotificationRepository) CreateBatch(ctx context.Context, items []models.Notification) (int, error) {
	var inserted int
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		rows := make([][]any, 0, len(items))
		for i := range items {
			n := &items[i]
			if n.ID == uuid.Nil {
				n.ID = uuid.New()
			}
			rows = append(rows, []any{n.ID, n.RecipientID, n.SenderID, n.Type, n.Title, n.Message, dataOrEmpty(n), n.CreatedAt, n.ExpiresAt})
		}
		var err error
		inserted, err = common.InsertRows(ctx, tx,
			`INSERT INTO notifications (id, recipient_id, sender_id, type, title, message, data, created_at, expires_at)`,
			rows, notificationBatchSize)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("notification repository: create batch %w", err)
	}
	return inserted, nil
}

// GetByID возвращает уведомление по идентификатору.
func (r *NotificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	n, err := common.GetByID[models.Notification](ctx, r.db, "notifications", id, ErrNotificationNotFound)
	if err != nil && !errors.Is(err, ErrNotificationNotFound) {
		return nil, fmt.Errorf("notification repository: get by id %w", err)
	}
	return n, err
}

// List возвращает неистёкшие уведомления получателя и их количество.
func (r *NotificationRepository) List(ctx context.Context, recipientID uuid.UUID, limit, offset int, unreadOnly bool, now time.Time) ([]models.Notification, int, error) {
	cond := `recipient_id = $1 AND expires_at > $2`
	if unreadOnly {
		cond += ` AND is_read = FALSE`
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM notifications WHERE `+cond, recipientID, now); err != nil {
		return nil, 0, fmt.Errorf("notification repository: count %w", err)
	}

	items := []models.Notification{}
	query := `SELECT * FROM notifications WHERE ` + cond + ` ORDER BY created_at DESC LIMIT $3 OFFSET $4`
	if err := r.db.SelectContext(ctx, &items, query, recipientID, now, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("notification repository: list %w", err)
	}
	return items, total, nil
}

// MarkAsRead помечает уведомление получателя прочитанным.
func (r *NotificationRepository) MarkAsRead(ctx context.Context, id, recipientID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND recipient_id = $2`, id, recipientID)
	if err != nil {
		return fmt.Errorf("notification repository: mark as read %w", err)
	}
	return expectAffected(res, ErrNotificationNotFound)
}

// MarkAllAsRead помечает все уведомления получателя прочитанными.
func (r *NotificationRepository) MarkAllAsRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE recipient_id = $1 AND is_read = FALSE`, recipientID)
	if err != nil {
		return 0, fmt.Errorf("notification repository: mark all as read %w", err)
	}
	return res.RowsAffected()
}

// Delete удаляет уведомление получателя.
func (r *NotificationRepository) Delete(ctx context.Context, id, recipientID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1 AND recipient_id = $2`, id, recipientID)
	if err != nil {
		return fmt.Errorf("notification repository: delete %w", err)
	}
	return expectAffected(res, ErrNotificationNotFound)
}

// CountUnread возвращает количество непрочитанных неистёкших уведомлений.
func (r *NotificationRepository) CountUnread(ctx context.Context, recipientID uuid.UUID, now time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND is_read = FALSE AND expires_at > $2`
	if err := r.db.GetContext(ctx, &count, query, recipientID, now); err != nil {
		return 0, fmt.Errorf("notification repository: count unread %w", err)
	}
	return count, nil
}

// DeleteExpired удаляет уведомления, срок жизни которых истёк.
func (r *NotificationRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("notification repository: delete expired %w", err)
	}
	return res.RowsAffected()
}

func dataOrEmpty(n *models.Notification) string {
	if len(n.Data) == 0 {
		return "{}"
	}
	return string(n.Data)
}
