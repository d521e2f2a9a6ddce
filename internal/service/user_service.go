package service

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/ignatzorin/skillswap-backend/internal/domain/valueobject"
	"github.com/ignatzorin/skillswap-backend/internal/models"
	"github.com/ignatzorin/skillswap-backend/internal/pkg/apperror"
	"github.com/ignatzorin/skillswap-backend/internal/repository"
	"github.com/ignatzorin/skillswap-backend/internal/storage"
	"github.com/ignatzorin/skillswap-backend/internal/validation"
)

// UserRepository зависимости UserService от хранилища пользователей.
type UserRepository interface {
	GetWithSkills(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) error
	UpdateAvatar(ctx context.Context, userID uuid.UUID, url string) error
	SearchByOfferedSkill(ctx context.Context, params models.UserSearchParams) ([]*models.User, int, error)

	ListOffers(ctx context.Context, userID uuid.UUID) ([]models.SkillOffer, error)
	GetOffer(ctx context.Context, userID, offerID uuid.UUID) (*models.SkillOffer, error)
	AddOffer(ctx context.Context, offer *models.SkillOffer) error
	UpdateOffer(ctx context.Context, offer *models.SkillOffer) error
	DeleteOffer(ctx context.Context, userID, offerID uuid.UUID) error

	ListWants(ctx context.Context, userID uuid.UUID) ([]models.SkillWant, error)
	GetWant(ctx context.Context, userID, wantID uuid.UUID) (*models.SkillWant, error)
	AddWant(ctx context.Context, want *models.SkillWant) error
	UpdateWant(ctx context.Context, want *models.SkillWant) error
	DeleteWant(ctx context.Context, userID, wantID uuid.UUID) error
}

// AvatarStore сохраняет изображение и возвращает его публичный URL.
type AvatarStore interface {
	Save(ctx context.Context, userID uuid.UUID, r io.Reader) (string, error)
}

// MatchInvalidator сбрасывает кэш подборки менторов.
type MatchInvalidator interface {
	Invalidate(ctx context.Context, userID uuid.UUID)
}

// ProfileInput изменяемые поля профиля. nil означает «не менять».
type ProfileInput struct {
	DisplayName *string
	Bio         *string
	Location    *string
	Preferences *models.Preferences
}

// OfferInput предложение навыка.
type OfferInput struct {
	Name        string
	Level       string
	Category    string
	Description *string
}

// WantInput желаемый навык.
type WantInput struct {
	Name     string
	Level    string
	Category string
	Priority string
	Progress int
}

type UserService struct {
	repo    UserRepository
	avatars AvatarStore
	matches MatchInvalidator
}

func NewUserService(repo UserRepository, avatars AvatarStore, matches MatchInvalidator) *UserService {
	return &UserService{repo: repo, avatars: avatars, matches: matches}
}

// GetProfile профиль текущего пользователя.
func (s *UserService) GetProfile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.repo.GetWithSkills(ctx, userID)
	if err != nil {
		return nil, mapUserErr(err)
	}
	return user, nil
}

// GetPublicProfile профиль другого пользователя. Неактивные видны только администраторам.
func (s *UserService) GetPublicProfile(ctx context.Context, userID uuid.UUID, viewerIsAdmin bool) (*models.User, error) {
	user, err := s.repo.GetWithSkills(ctx, userID)
	if err != nil {
		return nil, mapUserErr(err)
	}
	if !user.IsActive && !viewerIsAdmin {
		return nil, apperror.ErrUserNotFound
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, in ProfileInput) (*models.User, error) {
	user, err := s.repo.GetWithSkills(ctx, userID)
	if err != nil {
		return nil, mapUserErr(err)
	}

	var fields []apperror.FieldError
	if in.DisplayName != nil {
		name := strings.TrimSpace(*in.DisplayName)
		if err := validation.ValidateDisplayName(name); err != nil {
			fields = append(fields, apperror.FieldError{Field: "displayName", Message: err.Error()})
		}
		user.DisplayName = name
	}
	if in.Bio != nil {
		if err := validation.ValidateBio(in.Bio); err != nil {
			fields = append(fields, apperror.FieldError{Field: "bio", Message: err.Error()})
		}
		user.Bio = trimmed(in.Bio)
	}
	if in.Location != nil {
		if err := validation.ValidateLocation(in.Location); err != nil {
			fields = append(fields, apperror.FieldError{Field: "location", Message: err.Error()})
		}
		user.Location = trimmed(in.Location)
	}
	if len(fields) > 0 {
		return nil, apperror.Validation("ошибка валидации", fields...)
	}
	if in.Preferences != nil {
		user.Preferences = *in.Preferences
	}

	if err := s.repo.UpdateProfile(ctx, user); err != nil {
		return nil, mapUserErr(err)
	}
	return user, nil
}

// UploadAvatar сохраняет аватар и записывает ссылку в профиль.
func (s *UserService) UploadAvatar(ctx context.Context, userID uuid.UUID, r io.Reader) (string, error) {
	url, err := s.avatars.Save(ctx, userID, r)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrUnsupportedType):
			return "", apperror.Validation("ошибка валидации", apperror.FieldError{Field: "avatar", Message: "допустимы только jpeg, png и webp"})
		case errors.Is(err, storage.ErrTooLarge):
			return "", apperror.Validation("ошибка валидации", apperror.FieldError{Field: "avatar", Message: "файл слишком большой"})
		case errors.Is(err, storage.ErrEmpty):
			return "", apperror.Validation("ошибка валидации", apperror.FieldError{Field: "avatar", Message: "файл пустой"})
		}
		return "", err
	}
	if err := s.repo.UpdateAvatar(ctx, userID, url); err != nil {
		return "", mapUserErr(err)
	}
	return url, nil
}

// SearchUsers активные пользователи, предлагающие навык.
func (s *UserService) SearchUsers(ctx context.Context, params models.UserSearchParams) ([]*models.User, int, error) {
	return s.repo.SearchByOfferedSkill(ctx, params)
}

func (s *UserService) AddSkillOffer(ctx context.Context, userID uuid.UUID, in OfferInput) (*models.SkillOffer, error) {
	offer, err := buildOffer(in)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.ListOffers(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(existing) >= validation.MaxSkillsCount {
		return nil, apperror.BadRequest("достигнут лимит навыков")
	}
	for _, o := range existing {
		if strings.EqualFold(o.Name, offer.Name) {
			return nil, apperror.Conflict("этот навык уже есть в списке")
		}
	}

	offer.UserID = userID
	if err := s.repo.AddOffer(ctx, offer); err != nil {
		return nil, err
	}
	return offer, nil
}

func (s *UserService) UpdateSkillOffer(ctx context.Context, userID, offerID uuid.UUID, in OfferInput) (*models.SkillOffer, error) {
	offer, err := buildOffer(in)
	if err != nil {
		return nil, err
	}
	offer.ID = offerID
	offer.UserID = userID
	if err := s.repo.UpdateOffer(ctx, offer); err != nil {
		return nil, mapSkillErr(err)
	}
	return offer, nil
}

func (s *UserService) DeleteSkillOffer(ctx context.Context, userID, offerID uuid.UUID) error {
	return mapSkillErr(s.repo.DeleteOffer(ctx, userID, offerID))
}

func (s *UserService) AddSkillWant(ctx context.Context, userID uuid.UUID, in WantInput) (*models.SkillWant, error) {
	want, err := buildWant(in)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.ListWants(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(existing) >= validation.MaxSkillsCount {
		return nil, apperror.BadRequest("достигнут лимит навыков")
	}
	for _, w := range existing {
		if strings.EqualFold(w.Name, want.Name) {
			return nil, apperror.Conflict("этот навык уже есть в списке")
		}
	}

	want.UserID = userID
	if err := s.repo.AddWant(ctx, want); err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)
	return want, nil
}

func (s *UserService) UpdateSkillWant(ctx context.Context, userID, wantID uuid.UUID, in WantInput) (*models.SkillWant, error) {
	want, err := buildWant(in)
	if err != nil {
		return nil, err
	}
	want.ID = wantID
	want.UserID = userID
	if err := s.repo.UpdateWant(ctx, want); err != nil {
		return nil, mapSkillErr(err)
	}
	s.invalidate(ctx, userID)
	return want, nil
}

func (s *UserService) DeleteSkillWant(ctx context.Context, userID, wantID uuid.UUID) error {
	if err := s.repo.DeleteWant(ctx, userID, wantID); err != nil {
		return mapSkillErr(err)
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *UserService) invalidate(ctx context.Context, userID uuid.UUID) {
	if s.matches != nil {
		s.matches.Invalidate(ctx, userID)
	}
}

func buildOffer(in OfferInput) (*models.SkillOffer, error) {
	var fields []apperror.FieldError
	name := strings.TrimSpace(in.Name)
	if err := validation.ValidateSkillName(name); err != nil {
		fields = append(fields, apperror.FieldError{Field: "name", Message: err.Error()})
	}
	level, err := valueobject.NewOfferLevel(in.Level)
	if err != nil {
		fields = append(fields, apperror.FieldError{Field: "level", Message: messageOf(err)})
	}
	if err := validation.ValidateCategory(in.Category); err != nil {
		fields = append(fields, apperror.FieldError{Field: "category", Message: err.Error()})
	}
	if err := validation.ValidateOptional("описание", in.Description, validation.MaxSkillDescLength); err != nil {
		fields = append(fields, apperror.FieldError{Field: "description", Message: err.Error()})
	}
	if len(fields) > 0 {
		return nil, apperror.Validation("ошибка валидации", fields...)
	}
	return &models.SkillOffer{
		Name:        name,
		Level:       string(level),
		Category:    strings.TrimSpace(in.Category),
		Description: trimmed(in.Description),
	}, nil
}

func buildWant(in WantInput) (*models.SkillWant, error) {
	var fields []apperror.FieldError
	name := strings.TrimSpace(in.Name)
	if err := validation.ValidateSkillName(name); err != nil {
		fields = append(fields, apperror.FieldError{Field: "name", Message: err.Error()})
	}
	level, err := valueobject.NewWantLevel(in.Level)
	if err != nil {
		fields = append(fields, apperror.FieldError{Field: "level", Message: messageOf(err)})
	}
	priority, err := valueobject.NewPriority(in.Priority)
	if err != nil {
		fields = append(fields, apperror.FieldError{Field: "priority", Message: messageOf(err)})
	}
	if err := valueobject.ValidateProgress(in.Progress); err != nil {
		fields = append(fields, apperror.FieldError{Field: "progress", Message: messageOf(err)})
	}
	if err := validation.ValidateCategory(in.Category); err != nil {
		fields = append(fields, apperror.FieldError{Field: "category", Message: err.Error()})
	}
	if len(fields) > 0 {
		return nil, apperror.Validation("ошибка валидации", fields...)
	}
	return &models.SkillWant{
		Name:     name,
		Level:    string(level),
		Category: strings.TrimSpace(in.Category),
		Priority: string(priority),
		Progress: in.Progress,
	}, nil
}

// messageOf текст ошибки без кода AppError.
func messageOf(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

func mapUserErr(err error) error {
	if errors.Is(err, repository.ErrUserNotFound) {
		return apperror.ErrUserNotFound
	}
	return err
}

func mapSkillErr(err error) error {
	if errors.Is(err, repository.ErrSkillNotFound) {
		return apperror.ErrSkillNotFound
	}
	return err
}
