package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/skillswap-backend/internal/cache"
	"github.com/ignatzorin/skillswap-backend/internal/domain/matching"
	"github.com/ignatzorin/skillswap-backend/internal/domain/valueobject"
	"github.com/ignatzorin/skillswap-backend/internal/logger"
	"github.com/ignatzorin/skillswap-backend/internal/models"
)

// MatchCacheTTL время жизни подборки менторов в кэше.
const MatchCacheTTL = 5 * time.Minute

// MatchSource данные для подбора менторов.
type MatchSource interface {
	ListWants(ctx context.Context, userID uuid.UUID) ([]models.SkillWant, error)
	ListMatchCandidates(ctx context.Context, userID uuid.UUID, names []string) ([]models.MatchCandidateRow, error)
}

// SummaryLoader загружает краткие карточки пользователей.
type SummaryLoader interface {
	LoadParticipants(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.UserSummary, error)
}

// MatchedSkill совпавший навык в ответе.
type MatchedSkill struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Level    string  `json:"level"`
	Priority string  `json:"priority"`
	Score    float64 `json:"score"`
}

// MatchResult кандидат в менторы с оценкой совпадения.
type MatchResult struct {
	User          models.UserSummary `json:"user"`
	MatchScore    float64            `json:"matchScore"`
	MatchedSkills []MatchedSkill     `json:"matchedSkills"`
}

type MatchService struct {
	source  MatchSource
	summary SummaryLoader
	cache   cache.Cache
	ttl     time.Duration
}

func NewMatchService(source MatchSource, summary SummaryLoader, c cache.Cache) *MatchService {
	return &MatchService{source: source, summary: summary, cache: c, ttl: MatchCacheTTL}
}

// FindMatches возвращает до 20 менторов, которые преподают то, что хочет изучить пользователь.
func (s *MatchService) FindMatches(ctx context.Context, userID uuid.UUID) ([]MatchResult, error) {
	if s.cache == nil {
		return s.compute(ctx, userID)
	}
	return cache.GetOrLoad(ctx, s.cache, cache.MatchesKey(userID), s.ttl, func() ([]MatchResult, error) {
		return s.compute(ctx, userID)
	})
}

// Invalidate сбрасывает подборку пользователя после изменения его желаемых навыков.
func (s *MatchService) Invalidate(ctx context.Context, userID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cache.MatchesKey(userID)); err != nil {
		logger.Log.WithFields(logrus.Fields{
			"user_id": userID,
			"error":   err.Error(),
		}).Warn("match service: не удалось сбросить кэш подборки")
	}
}

func (s *MatchService) compute(ctx context.Context, userID uuid.UUID) ([]MatchResult, error) {
	wants, err := s.source.ListWants(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(wants) == 0 {
		return []MatchResult{}, nil
	}

	domainWants := make([]matching.Want, 0, len(wants))
	names := make([]string, 0, len(wants))
	for _, w := range wants {
		priority, err := valueobject.NewPriority(w.Priority)
		if err != nil {
			priority = valueobject.PriorityMedium
		}
		domainWants = append(domainWants, matching.Want{Name: w.Name, Priority: priority})
		names = append(names, strings.TrimSpace(w.Name))
	}

	rows, err := s.source.ListMatchCandidates(ctx, userID, names)
	if err != nil {
		return nil, err
	}

	ranked := matching.Rank(userID, domainWants, groupCandidates(rows))
	if len(ranked) == 0 {
		return []MatchResult{}, nil
	}

	ids := make([]uuid.UUID, 0, len(ranked))
	for _, m := range ranked {
		ids = append(ids, m.UserID)
	}
	people, err := s.summary.LoadParticipants(ctx, ids)
	if err != nil {
		return nil, err
	}

	results := make([]MatchResult, 0, len(ranked))
	for _, m := range ranked {
		skills := make([]MatchedSkill, 0, len(m.Skills))
		for _, sk := range m.Skills {
			skills = append(skills, MatchedSkill{
				Name:     sk.Name,
				Category: sk.Category,
				Level:    sk.Level,
				Priority: string(sk.Priority),
				Score:    sk.Score,
			})
		}
		results = append(results, MatchResult{User: people[m.UserID], MatchScore: m.Score, MatchedSkills: skills})
	}
	return results, nil
}

// groupCandidates собирает строки выборки в кандидатов, сохраняя порядок первого появления.
func groupCandidates(rows []models.MatchCandidateRow) []matching.Candidate {
	index := make(map[uuid.UUID]int)
	candidates := make([]matching.Candidate, 0)
	for _, row := range rows {
		i, ok := index[row.UserID]
		if !ok {
			i = len(candidates)
			index[row.UserID] = i
			candidates = append(candidates, matching.Candidate{UserID: row.UserID})
		}
		candidates[i].Offers = append(candidates[i].Offers, matching.Offer{
			Name:         row.OfferName,
			Category:     row.Category,
			Level:        row.Level,
			Rating:       row.Rating,
			SessionCount: row.SessionCount,
		})
	}
	return candidates
}
