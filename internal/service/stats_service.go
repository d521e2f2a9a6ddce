package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/skillswap-backend/internal/logger"
	"github.com/ignatzorin/skillswap-backend/internal/models"
	"github.com/ignatzorin/skillswap-backend/internal/pkg/apperror"
	"github.com/ignatzorin/skillswap-backend/internal/repository"
)

const statsSweepPage = 200

// StatsRepository пересчёт статистики в хранилище.
type StatsRepository interface {
	Recompute(ctx context.Context, userID uuid.UUID) (*models.UserStats, []models.OfferStats, error)
	ListUserIDs(ctx context.Context, afterID uuid.UUID, limit int) ([]uuid.UUID, error)
}

// StatsService пересчитывает рейтинг, часы и число сессий пользователя с нуля.
// Пересчёт идемпотентен, поэтому его можно звать сколько угодно раз.
type StatsService struct {
	repo StatsRepository
}

func NewStatsService(repo StatsRepository) *StatsService {
	return &StatsService{repo: repo}
}

// Recalculate пересчитывает статистику одного пользователя.
func (s *StatsService) Recalculate(ctx context.Context, userID uuid.UUID) (*models.UserStats, error) {
	stats, _, err := s.repo.Recompute(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, err
	}
	return stats, nil
}

// RecalculateQuietly пересчитывает статистику участников. Ошибки только логируются.
func (s *StatsService) RecalculateQuietly(ctx context.Context, userIDs ...uuid.UUID) {
	for _, id := range userIDs {
		if _, _, err := s.repo.Recompute(ctx, id); err != nil {
			logger.Log.WithFields(logrus.Fields{
				"user_id": id,
				"error":   err.Error(),
			}).Error("stats service: не удалось пересчитать статистику")
		}
	}
}

// Sweep пересчитывает статистику всех пользователей постранично.
// Возвращает количество успешно пересчитанных.
func (s *StatsService) Sweep(ctx context.Context) (int, error) {
	var (
		after = uuid.Nil
		done  int
	)
	for {
		ids, err := s.repo.ListUserIDs(ctx, after, statsSweepPage)
		if err != nil {
			return done, err
		}
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return done, err
			}
			if _, _, err := s.repo.Recompute(ctx, id); err != nil {
				logger.Log.WithFields(logrus.Fields{
					"user_id": id,
					"error":   err.Error(),
				}).Warn("stats service: сверка пропустила пользователя")
				continue
			}
			done++
		}
		if len(ids) < statsSweepPage {
			return done, nil
		}
		after = ids[len(ids)-1]
	}
}
