package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/skillswap-backend/internal/cache"
	"github.com/ignatzorin/skillswap-backend/internal/logger"
	"github.com/ignatzorin/skillswap-backend/internal/models"
	"github.com/ignatzorin/skillswap-backend/internal/pkg/apperror"
	"github.com/ignatzorin/skillswap-backend/internal/validation"
)

const (
	// DashboardCacheTTL время жизни сводки в кэше.
	DashboardCacheTTL  = time.Minute
	dashboardTopSkills = 10
	dashboardNewWindow = 30 * 24 * time.Hour
)

// AdminUserRepository операции над пользователями, доступные администратору.
type AdminUserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context, params models.UserListParams) ([]*models.User, int, error)
	UpdateAdminFields(ctx context.Context, userID uuid.UUID, displayName, role *string, isActive *bool) error
	DeleteAuthSessionsForUser(ctx context.Context, userID uuid.UUID) error
}

// DashboardSource сводные счётчики.
type DashboardSource interface {
	Dashboard(ctx context.Context, since time.Time, topSkills int) (*models.Dashboard, error)
}

// ReviewModerator скрытие отзывов.
type ReviewModerator interface {
	SetHidden(ctx context.Context, reviewID uuid.UUID, hidden bool) (*models.Review, error)
}

// StatsRunner пересчёт статистики по требованию.
type StatsRunner interface {
	Recalculate(ctx context.Context, userID uuid.UUID) (*models.UserStats, error)
	Sweep(ctx context.Context) (int, error)
}

// Broadcaster рассылка системного уведомления.
type Broadcaster interface {
	Broadcast(ctx context.Context, senderID uuid.UUID, title, message string) (int, error)
}

// Actor администратор, выполняющий действие.
type Actor struct {
	ID   uuid.UUID
	Role string
}

// AdminUserUpdate изменяемые администратором поля. nil означает «не менять».
type AdminUserUpdate struct {
	DisplayName *string
	Role        *string
	IsActive    *bool
}

type AdminService struct {
	users     AdminUserRepository
	dashboard DashboardSource
	reviews   ReviewModerator
	stats     StatsRunner
	broadcast Broadcaster
	cache     cache.Cache
	now       func() time.Time
}

func NewAdminService(users AdminUserRepository, dashboard DashboardSource, reviews ReviewModerator, stats StatsRunner, broadcast Broadcaster, c cache.Cache) *AdminService {
	return &AdminService{
		users:     users,
		dashboard: dashboard,
		reviews:   reviews,
		stats:     stats,
		broadcast: broadcast,
		cache:     c,
		now:       time.Now,
	}
}

// Dashboard сводка для панели администратора, кэшируется на минуту.
func (s *AdminService) Dashboard(ctx context.Context) (*models.Dashboard, error) {
	load := func() (*models.Dashboard, error) {
		return s.dashboard.Dashboard(ctx, s.now().Add(-dashboardNewWindow), dashboardTopSkills)
	}
	if s.cache == nil {
		return load()
	}
	return cache.GetOrLoad(ctx, s.cache, cache.DashboardKey(), DashboardCacheTTL, load)
}

func (s *AdminService) ListUsers(ctx context.Context, params models.UserListParams) ([]*models.User, int, error) {
	if params.Role != "" {
		if _, ok := models.ValidRoles[params.Role]; !ok {
			return nil, 0, apperror.Validation("ошибка валидации", apperror.FieldError{Field: "role", Message: "неизвестная роль"})
		}
	}
	params.Search = strings.TrimSpace(params.Search)
	return s.users.List(ctx, params)
}

func (s *AdminService) GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, mapUserErr(err)
	}
	return user, nil
}

// UpdateUser меняет имя, роль и активность пользователя с учётом иерархии ролей.
func (s *AdminService) UpdateUser(ctx context.Context, actor Actor, userID uuid.UUID, in AdminUserUpdate) (*models.User, error) {
	target, err := s.manageable(ctx, actor, userID)
	if err != nil {
		return nil, err
	}

	if in.DisplayName != nil {
		name := strings.TrimSpace(*in.DisplayName)
		if err := validation.ValidateDisplayName(name); err != nil {
			return nil, apperror.Validation("ошибка валидации", apperror.FieldError{Field: "displayName", Message: err.Error()})
		}
		in.DisplayName = &name
	}
	if in.Role != nil && *in.Role != target.Role {
		if err := canGrant(actor, *in.Role); err != nil {
			return nil, err
		}
	}

	if err := s.users.UpdateAdminFields(ctx, userID, in.DisplayName, in.Role, in.IsActive); err != nil {
		return nil, mapUserErr(err)
	}
	if in.IsActive != nil && !*in.IsActive {
		s.revokeSessions(ctx, userID)
	}

	logger.Log.WithFields(logrus.Fields{
		"admin_id": actor.ID,
		"user_id":  userID,
	}).Info("admin service: пользователь изменён")

	return s.GetUser(ctx, userID)
}

// DeactivateUser «удаляет» пользователя: аккаунт блокируется, refresh-сессии отзываются.
func (s *AdminService) DeactivateUser(ctx context.Context, actor Actor, userID uuid.UUID) error {
	if _, err := s.manageable(ctx, actor, userID); err != nil {
		return err
	}
	inactive := false
	if err := s.users.UpdateAdminFields(ctx, userID, nil, nil, &inactive); err != nil {
		return mapUserErr(err)
	}
	s.revokeSessions(ctx, userID)

	logger.Log.WithFields(logrus.Fields{
		"admin_id": actor.ID,
		"user_id":  userID,
	}).Info("admin service: пользователь деактивирован")
	return nil
}

// Broadcast рассылает системное уведомление всем активным пользователям.
func (s *AdminService) Broadcast(ctx context.Context, actor Actor, title, message string) (int, error) {
	title, message = strings.TrimSpace(title), strings.TrimSpace(message)

	var fields []apperror.FieldError
	if err := validation.ValidateLength("заголовок", title, 1, validation.MaxTitleLength); err != nil {
		fields = append(fields, apperror.FieldError{Field: "title", Message: err.Error()})
	}
	if err := validation.ValidateLength("сообщение", message, 1, validation.MaxSessionMessage); err != nil {
		fields = append(fields, apperror.FieldError{Field: "message", Message: err.Error()})
	}
	if len(fields) > 0 {
		return 0, apperror.Validation("ошибка валидации", fields...)
	}

	sent, err := s.broadcast.Broadcast(ctx, actor.ID, title, message)
	if err != nil {
		return sent, err
	}
	logger.Log.WithFields(logrus.Fields{
		"admin_id":   actor.ID,
		"recipients": sent,
	}).Info("admin service: рассылка отправлена")
	return sent, nil
}

func (s *AdminService) SetReviewHidden(ctx context.Context, reviewID uuid.UUID, hidden bool) (*models.Review, error) {
	return s.reviews.SetHidden(ctx, reviewID, hidden)
}

func (s *AdminService) RecalculateStats(ctx context.Context, userID uuid.UUID) (*models.UserStats, error) {
	return s.stats.Recalculate(ctx, userID)
}

func (s *AdminService) RecalculateAllStats(ctx context.Context) (int, error) {
	return s.stats.Sweep(ctx)
}

// manageable загружает пользователя и проверяет, что actor вправе им управлять.
func (s *AdminService) manageable(ctx context.Context, actor Actor, userID uuid.UUID) (*models.User, error) {
	if actor.ID == userID {
		return nil, apperror.Forbidden("нельзя изменять собственный аккаунт через админ-панель")
	}
	target, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, mapUserErr(err)
	}

	switch actor.Role {
	case models.RoleSuperAdmin:
		if target.Role == models.RoleSuperAdmin {
			return nil, apperror.Forbidden("нельзя изменять другого супер-администратора")
		}
	case models.RoleAdmin:
		if target.Role != models.RoleUser {
			return nil, apperror.Forbidden("администратор может управлять только обычными пользователями")
		}
	default:
		return nil, apperror.ErrForbidden
	}
	return target, nil
}

func canGrant(actor Actor, role string) error {
	if _, ok := models.ValidRoles[role]; !ok {
		return apperror.Validation("ошибка валидации", apperror.FieldError{Field: "role", Message: "неизвестная роль"})
	}
	if actor.Role != models.RoleSuperAdmin {
		return apperror.Forbidden("менять роли может только супер-администратор")
	}
	if role == models.RoleSuperAdmin {
		return apperror.Forbidden("роль super_admin назначается только вручную")
	}
	return nil
}

func (s *AdminService) revokeSessions(ctx context.Context, userID uuid.UUID) {
	if err := s.users.DeleteAuthSessionsForUser(ctx, userID); err != nil {
		logger.Log.WithFields(logrus.Fields{
			"user_id": userID,
			"error":   err.Error(),
		}).Warn("admin service: не удалось отозвать сессии")
	}
}
