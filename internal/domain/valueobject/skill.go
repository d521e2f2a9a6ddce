package valueobject

import "github.com/ignatzorin/skillswap-backend/internal/pkg/apperror"

// OfferLevel уровень владения навыком, который пользователь преподаёт.
type OfferLevel string

const (
	OfferLevelBeginner     OfferLevel = "Beginner"
	OfferLevelIntermediate OfferLevel = "Intermediate"
	OfferLevelAdvanced     OfferLevel = "Advanced"
	OfferLevelExpert       OfferLevel = "Expert"
)

func NewOfferLevel(level string) (OfferLevel, error) {
	switch l := OfferLevel(level); l {
	case OfferLevelBeginner, OfferLevelIntermediate, OfferLevelAdvanced, OfferLevelExpert:
		return l, nil
	}
	return "", apperror.New(apperror.ErrCodeValidation, "уровень должен быть Beginner, Intermediate, Advanced или Expert")
}

// WantLevel желаемый уровень навыка. Expert для изучения не предусмотрен.
type WantLevel string

const (
	WantLevelBeginner     WantLevel = "Beginner"
	WantLevelIntermediate WantLevel = "Intermediate"
	WantLevelAdvanced     WantLevel = "Advanced"
)

func NewWantLevel(level string) (WantLevel, error) {
	switch l := WantLevel(level); l {
	case WantLevelBeginner, WantLevelIntermediate, WantLevelAdvanced:
		return l, nil
	}
	return "", apperror.New(apperror.ErrCodeValidation, "уровень должен быть Beginner, Intermediate или Advanced")
}

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

func NewPriority(priority string) (Priority, error) {
	switch p := Priority(priority); p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	case "":
		return PriorityMedium, nil
	}
	return "", apperror.New(apperror.ErrCodeValidation, "приоритет должен быть Low, Medium или High")
}

// Weight вес приоритета в рейтинге совпадений.
func (p Priority) Weight() float64 {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// ValidateProgress проверяет прогресс изучения в процентах.
func ValidateProgress(progress int) error {
	if progress < 0 || progress > 100 {
		return apperror.New(apperror.ErrCodeValidation, "прогресс должен быть от 0 до 100")
	}
	return nil
}

type SessionType string

const (
	SessionTypeOnline   SessionType = "online"
	SessionTypeInPerson SessionType = "in-person"
)

func NewSessionType(t string) (SessionType, error) {
	switch st := SessionType(t); st {
	case SessionTypeOnline, SessionTypeInPerson:
		return st, nil
	case "":
		return SessionTypeOnline, nil
	}
	return "", apperror.New(apperror.ErrCodeValidation, "тип сессии должен быть online или in-person")
}
