// Package matching ранжирует потенциальных менторов по навыкам, которые хочет изучить пользователь.
package matching

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/ignatzorin/skillswap-backend/internal/domain/valueobject"
)

const (
	// MaxResults максимальное число кандидатов в выдаче.
	MaxResults = 20

	ratingWeight      = 0.5
	experienceWeight  = 0.1
	experienceCeiling = 10
)

// Want навык, который хочет изучить пользователь.
type Want struct {
	Name     string
	Priority valueobject.Priority
}

// Offer навык, который кандидат готов преподавать.
type Offer struct {
	Name         string
	Category     string
	Level        string
	Rating       float64
	SessionCount int
}

// Candidate пользователь с его предложениями.
type Candidate struct {
	UserID uuid.UUID
	Offers []Offer
}

// MatchedSkill совпадение одного желаемого навыка с предложением кандидата.
type MatchedSkill struct {
	Name     string
	Category string
	Level    string
	Priority valueobject.Priority
	Score    float64
}

// Match итог по кандидату.
type Match struct {
	UserID uuid.UUID
	Score  float64
	Skills []MatchedSkill
}

// SkillScore оценка одной пары желаемого и предложенного навыка.
func SkillScore(want Want, offer Offer) float64 {
	sessions := offer.SessionCount
	if sessions > experienceCeiling {
		sessions = experienceCeiling
	}
	if sessions < 0 {
		sessions = 0
	}
	return want.Priority.Weight() + ratingWeight*offer.Rating + experienceWeight*float64(sessions)
}

// Rank считает совпадения и возвращает не более MaxResults кандидатов по убыванию оценки.
// Имена сравниваются без учёта регистра, категория не участвует в сравнении.
// Кандидаты без совпадений и сам пользователь в выдачу не попадают.
func Rank(userID uuid.UUID, wants []Want, candidates []Candidate) []Match {
	if len(wants) == 0 {
		return []Match{}
	}

	wanted := make(map[string][]Want, len(wants))
	for _, w := range wants {
		key := normalize(w.Name)
		wanted[key] = append(wanted[key], w)
	}

	matches := make([]Match, 0, len(candidates))
	for _, cand := range candidates {
		if cand.UserID == userID {
			continue
		}

		m := Match{UserID: cand.UserID}
		for _, offer := range cand.Offers {
			for _, w := range wanted[normalize(offer.Name)] {
				score := SkillScore(w, offer)
				m.Score += score
				m.Skills = append(m.Skills, MatchedSkill{
					Name:     offer.Name,
					Category: offer.Category,
					Level:    offer.Level,
					Priority: w.Priority,
					Score:    score,
				})
			}
		}
		if len(m.Skills) > 0 {
			matches = append(matches, m)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > MaxResults {
		matches = matches[:MaxResults]
	}
	return matches
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
