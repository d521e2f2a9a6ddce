package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/skillswap-backend/internal/domain/entity"
	"github.com/ignatzorin/skillswap-backend/internal/pkg/apperror"
	"github.com/ignatzorin/skillswap-backend/internal/repository/common"
)

type ConversationRepositoryAdapter struct {
	db sqlx.ExtContext
}

func NewConversationRepositoryAdapter(db sqlx.ExtContext) *ConversationRepositoryAdapter {
	return &ConversationRepositoryAdapter{db: db}
}

func (r *ConversationRepositoryAdapter) Create(ctx context.Context, conv *entity.Conversation) error {
	query := `INSERT INTO conversations (id, user_a_id, user_b_id, created_at)
		VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, query, conv.ID, conv.UserAID, conv.UserBID, conv.CreatedAt)
	if err != nil {
		if common.IsUniqueViolation(err, "") {
			return apperror.Conflict("беседа уже существует")
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать беседу")
	}
	return nil
}

func (r *ConversationRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.Conversation, error) {
	var c conversationRow
	query := `SELECT id, user_a_id, user_b_id, last_message_at, created_at FROM conversations WHERE id = $1`
	if err := sqlx.GetContext(ctx, r.db, &c, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrConversationNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить беседу")
	}
	return c.toEntity(), nil
}

func (r *ConversationRepositoryAdapter) FindByPair(ctx context.Context, userAID, userBID uuid.UUID) (*entity.Conversation, error) {
	var c conversationRow
	query := `SELECT id, user_a_id, user_b_id, last_message_at, created_at
		FROM conversations WHERE user_a_id = $1 AND user_b_id = $2`
	if err := sqlx.GetContext(ctx, r.db, &c, query, userAID, userBID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить беседу")
	}
	return c.toEntity(), nil
}

func (r *ConversationRepositoryAdapter) ListPreviews(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.ConversationPreview, error) {
	var rows []previewRow
	query := `
		SELECT c.id, c.user_a_id, c.user_b_id, c.last_message_at, c.created_at,
			lm.id AS last_id, lm.sender_id AS last_sender_id, lm.content AS last_content,
			lm.is_read AS last_is_read, lm.created_at AS last_created_at,
			(SELECT COUNT(*) FROM messages m
				WHERE m.conversation_id = c.id AND m.sender_id <> $1 AND m.is_read = FALSE) AS unread_count
		FROM conversations c
		LEFT JOIN LATERAL (
			SELECT id, sender_id, content, is_read, created_at FROM messages
			WHERE conversation_id = c.id ORDER BY created_at DESC LIMIT 1
		) lm ON TRUE
		WHERE c.user_a_id = $1 OR c.user_b_id = $1
		ORDER BY COALESCE(c.last_message_at, c.created_at) DESC
		LIMIT $2 OFFSET $3`
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, userID, limit, offset); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить беседы")
	}

	result := make([]*entity.ConversationPreview, len(rows))
	for i, row := range rows {
		conv := row.conversationRow.toEntity()
		p := &entity.ConversationPreview{
			Conversation:  *conv,
			ParticipantID: conv.Other(userID),
			UnreadCount:   row.UnreadCount,
		}
		if row.LastID != nil {
			p.LastMessage = &entity.Message{
				ID:             *row.LastID,
				ConversationID: conv.ID,
				SenderID:       *row.LastSenderID,
				Content:        row.LastContent.String,
				IsRead:         row.LastIsRead.Bool,
				CreatedAt:      *row.LastCreatedAt,
			}
		}
		result[i] = p
	}
	return result, nil
}

func (r *ConversationRepositoryAdapter) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE conversations SET last_message_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить беседу")
	}
	return nil
}

type conversationRow struct {
	ID            uuid.UUID  `db:"id"`
	UserAID       uuid.UUID  `db:"user_a_id"`
	UserBID       uuid.UUID  `db:"user_b_id"`
	LastMessageAt *time.Time `db:"last_message_at"`
	CreatedAt     time.Time  `db:"created_at"`
}

func (c *conversationRow) toEntity() *entity.Conversation {
	return &entity.Conversation{
		ID:            c.ID,
		UserAID:       c.UserAID,
		UserBID:       c.UserBID,
		LastMessageAt: c.LastMessageAt,
		CreatedAt:     c.CreatedAt,
	}
}

type previewRow struct {
	conversationRow
	LastID        *uuid.UUID     `db:"last_id"`
	LastSenderID  *uuid.UUID     `db:"last_sender_id"`
	LastContent   sql.NullString `db:"last_content"`
	LastIsRead    sql.NullBool   `db:"last_is_read"`
	LastCreatedAt *time.Time     `db:"last_created_at"`
	UnreadCount   int            `db:"unread_count"`
}

type MessageRepositoryAdapter struct {
	db *sqlx.DB
}

func NewMessageRepositoryAdapter(db *sqlx.DB) *MessageRepositoryAdapter {
	return &MessageRepositoryAdapter{db: db}
}

func (r *MessageRepositoryAdapter) Create(ctx context.Context, msg *entity.Message) error {
	query := `INSERT INTO messages (id, conversation_id, sender_id, content, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, query, msg.ID, msg.ConversationID, msg.SenderID, msg.Content, msg.IsRead, msg.CreatedAt)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать сообщение")
	}
	return nil
}

func (r *MessageRepositoryAdapter) FindByConversationID(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*entity.Message, error) {
	var rows []messageRow
	query := `SELECT id, conversation_id, sender_id, content, is_read, created_at
		FROM messages WHERE conversation_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	if err := r.db.SelectContext(ctx, &rows, query, conversationID, limit, offset); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить сообщения")
	}
	result := make([]*entity.Message, len(rows))
	for i, row := range rows {
		result[i] = row.toEntity()
	}
	return result, nil
}

func (r *MessageRepositoryAdapter) MarkRead(ctx context.Context, conversationID, readerID uuid.UUID) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE messages SET is_read = TRUE WHERE conversation_id = $1 AND sender_id <> $2 AND is_read = FALSE`,
		conversationID, readerID)
	if err != nil {
		return 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось отметить сообщения")
	}
	n, _ := res.RowsAffected()
	return n, nil
}

type messageRow struct {
	ID             uuid.UUID `db:"id"`
	ConversationID uuid.UUID `db:"conversation_id"`
	SenderID       uuid.UUID `db:"sender_id"`
	Content        string    `db:"content"`
	IsRead         bool      `db:"is_read"`
	CreatedAt      time.Time `db:"created_at"`
}

func (m *messageRow) toEntity() *entity.Message {
	return &entity.Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		IsRead:         m.IsRead,
		CreatedAt:      m.CreatedAt,
	}
}

// UserDirectoryAdapter читает только флаг активности пользователя.
type UserDirectoryAdapter struct {
	db *sqlx.DB
}

func NewUserDirectoryAdapter(db *sqlx.DB) *UserDirectoryAdapter {
	return &UserDirectoryAdapter{db: db}
}

func (r *UserDirectoryAdapter) IsActive(ctx context.Context, userID uuid.UUID) (bool, error) {
	var active bool
	err := r.db.GetContext(ctx, &active, `SELECT is_active FROM users WHERE id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить пользователя")
	}
	return active, nil
}
