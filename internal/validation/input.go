package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	MinUsernameLength    = 3
	MaxUsernameLength    = 30
	MinDisplayNameLength = 2
	MaxDisplayNameLength = 100
	MaxBioLength         = 1000
	MaxLocationLength    = 100
	MaxSkillNameLength   = 50
	MaxCategoryLength    = 50
	MaxSkillDescLength   = 500
	MaxSkillsCount       = 30
	MaxReviewComment     = 1000
	MaxSessionMessage    = 1000
	MaxReasonLength      = 500
	MaxTitleLength       = 200
	maxEmailLength       = 254
)

var (
	usernamePattern    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	displayNamePattern = regexp.MustCompile(`^[\p{L}\p{N}\s\-_.,!?()]+$`)

	// scalar проверки полей вне структур
	scalar = validator.New()
)

// ValidateLength проверяет длину строки в символах. Ноль в min или max отключает границу.
func ValidateLength(fieldName, value string, min, max int) error {
	n := utf8.RuneCountInString(value)
	switch {
	case min > 0 && n < min:
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	case max > 0 && n > max:
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

func required(fieldName, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%s обязательно", fieldName)
	}
	return value, nil
}

// ValidateEmail проверяет адрес правилом email валидатора. Домен без точки не принимается.
func ValidateEmail(email string) error {
	email, err := required("email", strings.ToLower(email))
	if err != nil {
		return err
	}
	if len(email) > maxEmailLength || scalar.Var(email, "email") != nil {
		return errors.New("некорректный формат email")
	}
	if domain := email[strings.LastIndexByte(email, '@')+1:]; !strings.Contains(domain, ".") {
		return errors.New("некорректный домен email")
	}
	return nil
}

// ValidateUsername латиница, цифры и подчёркивание, первый символ не цифра.
func ValidateUsername(username string) error {
	username, err := required("имя пользователя", username)
	if err != nil {
		return err
	}
	if err := ValidateLength("имя пользователя", username, MinUsernameLength, MaxUsernameLength); err != nil {
		return err
	}
	if unicode.IsDigit(rune(username[0])) {
		return errors.New("имя пользователя не может начинаться с цифры")
	}
	if !usernamePattern.MatchString(username) {
		return errors.New("имя пользователя может содержать только буквы, цифры и подчеркивание")
	}
	return nil
}

func ValidateDisplayName(displayName string) error {
	displayName, err := required("отображаемое имя", displayName)
	if err != nil {
		return err
	}
	if err := ValidateLength("отображаемое имя", displayName, MinDisplayNameLength, MaxDisplayNameLength); err != nil {
		return err
	}
	if !displayNamePattern.MatchString(displayName) {
		return errors.New("отображаемое имя содержит недопустимые символы")
	}
	return nil
}

func ValidateSkillName(name string) error {
	name, err := required("название навыка", name)
	if err != nil {
		return err
	}
	return ValidateLength("название навыка", name, 0, MaxSkillNameLength)
}

// ValidateCategory пустая категория допустима.
func ValidateCategory(category string) error {
	return ValidateLength("категория", strings.TrimSpace(category), 0, MaxCategoryLength)
}

// ValidateOptional проверяет длину необязательного поля, nil пропускается.
func ValidateOptional(fieldName string, value *string, max int) error {
	if value == nil {
		return nil
	}
	return ValidateLength(fieldName, strings.TrimSpace(*value), 0, max)
}

func ValidateLocation(location *string) error {
	return ValidateOptional("местоположение", location, MaxLocationLength)
}

func ValidateBio(bio *string) error {
	return ValidateOptional("биография", bio, MaxBioLength)
}

func ValidateReviewComment(comment string) error {
	return ValidateLength("комментарий", strings.TrimSpace(comment), 0, MaxReviewComment)
}

// ValidateRating оценка от 1 до 5.
func ValidateRating(fieldName string, rating int) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("%s должна быть от 1 до 5", fieldName)
	}
	return nil
}

func ValidateOptionalRating(fieldName string, rating *int) error {
	if rating == nil {
		return nil
	}
	return ValidateRating(fieldName, *rating)
}
