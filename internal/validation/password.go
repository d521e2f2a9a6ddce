package validation

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MinPasswordLength = 8
	// bcrypt учитывает только первые 72 байта
	maxPasswordBytes = 72
)

var passwordRules = []struct {
	match   func(rune) bool
	missing string
}{
	{unicode.IsUpper, "заглавную букву"},
	{unicode.IsLower, "строчную букву"},
	{unicode.IsDigit, "цифру"},
}

// ValidatePassword длина от 8 символов до 72 байт, хотя бы одна заглавная, строчная буква и цифра.
// В сообщении перечислено всё, чего не хватает.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return errors.New("пароль должен быть не менее 8 символов")
	}
	if len(password) > maxPasswordBytes {
		return errors.New("пароль слишком длинный")
	}

	var missing []string
	for _, rule := range passwordRules {
		if strings.IndexFunc(password, rule.match) < 0 {
			missing = append(missing, rule.missing)
		}
	}
	if len(missing) > 0 {
		return errors.New("пароль должен содержать " + strings.Join(missing, ", "))
	}
	return nil
}
