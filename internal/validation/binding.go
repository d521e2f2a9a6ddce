package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/ignatzorin/skillswap-backend/internal/domain/valueobject"
	"github.com/ignatzorin/skillswap-backend/internal/pkg/apperror"
)

var registerOnce sync.Once

// RegisterBindingRules настраивает валидатор gin: имена полей из json тегов
// и доменные правила offer_level, want_level, priority, session_type.
func RegisterBindingRules() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		configure(v)
	})
}

func configure(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	mustRegister(v, "offer_level", func(fl validator.FieldLevel) bool {
		_, err := valueobject.NewOfferLevel(fl.Field().String())
		return err == nil
	})
	mustRegister(v, "want_level", func(fl validator.FieldLevel) bool {
		_, err := valueobject.NewWantLevel(fl.Field().String())
		return err == nil
	})
	mustRegister(v, "priority", func(fl validator.FieldLevel) bool {
		_, err := valueobject.NewPriority(fl.Field().String())
		return err == nil
	})
	mustRegister(v, "session_type", func(fl validator.FieldLevel) bool {
		_, err := valueobject.NewSessionType(fl.Field().String())
		return err == nil
	})
}

// FromBindingError переводит ошибку ShouldBind* в ошибку валидации с полями.
func FromBindingError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]apperror.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, apperror.FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
		}
		return apperror.Validation("ошибка валидации", fields...)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return apperror.Validation("ошибка валидации", apperror.FieldError{
			Field:   typeErr.Field,
			Message: "некорректный тип значения",
		})
	}

	return apperror.BadRequest("некорректные данные запроса")
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "поле обязательно"
	case "email":
		return "некорректный email"
	case "min", "gte":
		return fmt.Sprintf("значение должно быть не меньше %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("значение должно быть не больше %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("допустимые значения: %s", fe.Param())
	case "offer_level":
		return "уровень должен быть Beginner, Intermediate, Advanced или Expert"
	case "want_level":
		return "уровень должен быть Beginner, Intermediate или Advanced"
	case "priority":
		return "приоритет должен быть Low, Medium или High"
	case "session_type":
		return "тип сессии должен быть online или in-person"
	default:
		return "некорректное значение"
	}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validation: правило %s не зарегистрировано: %v", tag, err))
	}
}
