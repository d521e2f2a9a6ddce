package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
)

// NotificationTTL время жизни уведомления.
const NotificationTTL = 30 * 24 * time.Hour

// Notification запись во входящих пользователя.
type Notification struct {
	ID          uuid.UUID      `db:"id" json:"id"`
	RecipientID uuid.UUID      `db:"recipient_id" json:"recipientId"`
	SenderID    *uuid.UUID     `db:"sender_id" json:"senderId,omitempty"`
	Type        string         `db:"type" json:"type"`
	Title       string         `db:"title" json:"title"`
	Message     string         `db:"message" json:"message"`
	IsRead      bool           `db:"is_read" json:"isRead"`
	Data        types.JSONText `db:"data" json:"data"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
	ExpiresAt   time.Time      `db:"expires_at" json:"expiresAt"`
}
