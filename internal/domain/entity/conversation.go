package entity

import (
	"bytes"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/ignatzorin/skillswap-backend/internal/pkg/apperror"
)

const MaxMessageLength = 2000

// Conversation личная переписка двух пользователей.
// Пара хранится упорядоченно, поэтому у двух пользователей одна беседа.
type Conversation struct {
	ID            uuid.UUID
	UserAID       uuid.UUID
	UserBID       uuid.UUID
	LastMessageAt *time.Time
	CreatedAt     time.Time
}

func NewConversation(userID, participantID uuid.UUID) (*Conversation, error) {
	if userID == participantID {
		return nil, apperror.New(apperror.ErrCodeValidation, "нельзя создать беседу с самим собой")
	}
	a, b := OrderedPair(userID, participantID)
	return &Conversation{
		ID:        uuid.New(),
		UserAID:   a,
		UserBID:   b,
		CreatedAt: time.Now(),
	}, nil
}

// OrderedPair возвращает идентификаторы в порядке возрастания байтов.
func OrderedPair(x, y uuid.UUID) (uuid.UUID, uuid.UUID) {
	if bytes.Compare(x[:], y[:]) <= 0 {
		return x, y
	}
	return y, x
}

func (c *Conversation) IsParticipant(userID uuid.UUID) bool {
	return c.UserAID == userID || c.UserBID == userID
}

// Other возвращает собеседника пользователя.
func (c *Conversation) Other(userID uuid.UUID) uuid.UUID {
	if c.UserAID == userID {
		return c.UserBID
	}
	return c.UserAID
}

type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	SenderID       uuid.UUID
	Content        string
	IsRead         bool
	CreatedAt      time.Time
}

func NewMessage(conversationID, senderID uuid.UUID, content string) (*Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "сообщение не может быть пустым")
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return nil, apperror.New(apperror.ErrCodeValidation, "сообщение не может быть длиннее 2000 символов")
	}
	return &Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      time.Now(),
	}, nil
}

// ConversationPreview беседа для списка: последнее сообщение и счётчик непрочитанных.
type ConversationPreview struct {
	Conversation
	ParticipantID uuid.UUID
	LastMessage   *Message
	UnreadCount   int
}
