package conversation

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/skillswap-backend/internal/domain/entity"
	"github.com/ignatzorin/skillswap-backend/internal/domain/repository"
	"github.com/ignatzorin/skillswap-backend/internal/logger"
	"github.com/ignatzorin/skillswap-backend/internal/pkg/apperror"
)

// MessageNotifier доставляет собеседнику событие о новом сообщении.
type MessageNotifier interface {
	NotifyNewMessage(ctx context.Context, recipientID uuid.UUID, msg *entity.Message) error
}

type OpenConversationUseCase struct {
	convRepo repository.ConversationRepository
	users    repository.UserDirectory
}

func NewOpenConversationUseCase(convRepo repository.ConversationRepository, users repository.UserDirectory) *OpenConversationUseCase {
	return &OpenConversationUseCase{convRepo: convRepo, users: users}
}

// Execute возвращает беседу пары пользователей, создавая её при необходимости.
func (uc *OpenConversationUseCase) Execute(ctx context.Context, userID, participantID uuid.UUID) (*entity.Conversation, error) {
	conv, err := entity.NewConversation(userID, participantID)
	if err != nil {
		return nil, err
	}

	active, err := uc.users.IsActive(ctx, participantID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, apperror.ErrUserNotFound
	}

	existing, err := uc.convRepo.FindByPair(ctx, conv.UserAID, conv.UserBID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	if err := uc.convRepo.Create(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

type ListMyConversationsUseCase struct {
	convRepo repository.ConversationRepository
}

func NewListMyConversationsUseCase(convRepo repository.ConversationRepository) *ListMyConversationsUseCase {
	return &ListMyConversationsUseCase{convRepo: convRepo}
}

func (uc *ListMyConversationsUseCase) Execute(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.ConversationPreview, error) {
	return uc.convRepo.ListPreviews(ctx, userID, limit, offset)
}

type SendMessageUseCase struct {
	convRepo repository.ConversationRepository
	msgRepo  repository.MessageRepository
	notifier MessageNotifier
}

func NewSendMessageUseCase(convRepo repository.ConversationRepository, msgRepo repository.MessageRepository, notifier MessageNotifier) *SendMessageUseCase {
	return &SendMessageUseCase{convRepo: convRepo, msgRepo: msgRepo, notifier: notifier}
}

func (uc *SendMessageUseCase) Execute(ctx context.Context, conversationID, senderID uuid.UUID, content string) (*entity.Message, error) {
	conv, err := participantOf(ctx, uc.convRepo, conversationID, senderID)
	if err != nil {
		return nil, err
	}

	msg, err := entity.NewMessage(conversationID, senderID, content)
	if err != nil {
		return nil, err
	}

	if err := uc.msgRepo.Create(ctx, msg); err != nil {
		return nil, err
	}
	if err := uc.convRepo.Touch(ctx, conv.ID, msg.CreatedAt); err != nil {
		logger.Log.WithError(err).WithField("conversation_id", conv.ID).Warn("conversation: touch failed")
	}

	if uc.notifier != nil {
		if err := uc.notifier.NotifyNewMessage(ctx, conv.Other(senderID), msg); err != nil {
			logger.Log.WithError(err).WithField("conversation_id", conv.ID).Warn("conversation: notify failed")
		}
	}
	return msg, nil
}

type ListMessagesUseCase struct {
	convRepo repository.ConversationRepository
	msgRepo  repository.MessageRepository
}

func NewListMessagesUseCase(convRepo repository.ConversationRepository, msgRepo repository.MessageRepository) *ListMessagesUseCase {
	return &ListMessagesUseCase{convRepo: convRepo, msgRepo: msgRepo}
}

func (uc *ListMessagesUseCase) Execute(ctx context.Context, conversationID, userID uuid.UUID, limit, offset int) ([]*entity.Message, error) {
	if _, err := participantOf(ctx, uc.convRepo, conversationID, userID); err != nil {
		return nil, err
	}
	return uc.msgRepo.FindByConversationID(ctx, conversationID, limit, offset)
}

type MarkReadUseCase struct {
	convRepo repository.ConversationRepository
	msgRepo  repository.MessageRepository
}

func NewMarkReadUseCase(convRepo repository.ConversationRepository, msgRepo repository.MessageRepository) *MarkReadUseCase {
	return &MarkReadUseCase{convRepo: convRepo, msgRepo: msgRepo}
}

// Execute отмечает прочитанными входящие сообщения беседы.
func (uc *MarkReadUseCase) Execute(ctx context.Context, conversationID, userID uuid.UUID) (int64, error) {
	if _, err := participantOf(ctx, uc.convRepo, conversationID, userID); err != nil {
		return 0, err
	}
	return uc.msgRepo.MarkRead(ctx, conversationID, userID)
}

// participantOf загружает беседу, если userID её участник.
func participantOf(ctx context.Context, repo repository.ConversationRepository, conversationID, userID uuid.UUID) (*entity.Conversation, error) {
	conv, err := repo.FindByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.IsParticipant(userID) {
		return nil, apperror.Forbidden("вы не участник этой беседы")
	}
	return conv, nil
}
