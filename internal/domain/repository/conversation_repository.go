package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/skillswap-backend/internal/domain/entity"
)

type ConversationRepository interface {
	Create(ctx context.Context, conv *entity.Conversation) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Conversation, error)
	// FindByPair возвращает nil, nil если беседы ещё нет.
	FindByPair(ctx context.Context, userAID, userBID uuid.UUID) (*entity.Conversation, error)
	ListPreviews(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.ConversationPreview, error)
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error
}

type MessageRepository interface {
	Create(ctx context.Context, msg *entity.Message) error
	FindByConversationID(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*entity.Message, error)
	// MarkRead отмечает прочитанными сообщения собеседника и возвращает их число.
	MarkRead(ctx context.Context, conversationID, readerID uuid.UUID) (int64, error)
}

// UserDirectory проверка существования собеседника.
type UserDirectory interface {
	IsActive(ctx context.Context, userID uuid.UUID) (bool, error)
}
