package common

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/skillswap-backend/internal/http/middleware"
	"github.com/ignatzorin/skillswap-backend/internal/interface/http/response"
	"github.com/ignatzorin/skillswap-backend/internal/models"
	"github.com/ignatzorin/skillswap-backend/internal/validation"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ErrUserNotFound пользователь не найден в контексте запроса.
var ErrUserNotFound = errors.New("пользователь не найден в контексте")

// CurrentUserID извлекает ID пользователя, положенный AuthMiddleware.
func CurrentUserID(c *gin.Context) (uuid.UUID, error) {
	raw, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return uuid.Nil, ErrUserNotFound
	}
	userID, ok := raw.(uuid.UUID)
	if !ok {
		return uuid.Nil, ErrUserNotFound
	}
	return userID, nil
}

// RequireUser возвращает ID пользователя или отвечает 401.
func RequireUser(c *gin.Context) (uuid.UUID, bool) {
	userID, err := CurrentUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return uuid.Nil, false
	}
	return userID, true
}

// CurrentUserRole роль из access токена.
func CurrentUserRole(c *gin.Context) string {
	return c.GetString(middleware.ContextRoleKey)
}

// IsAdmin true для admin и super_admin.
func IsAdmin(c *gin.Context) bool {
	role := CurrentUserRole(c)
	return role == models.RoleAdmin || role == models.RoleSuperAdmin
}

// UUIDParam разбирает параметр пути или отвечает 400.
func UUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, "параметр "+name+" должен быть валидным UUID")
		return uuid.Nil, false
	}
	return id, true
}

// BindJSON разбирает тело запроса. При ошибке отвечает VALIDATION_ERROR с полями.
func BindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, validation.FromBindingError(err))
		return false
	}
	return true
}

// ParseIntQuery читает целый query-параметр, при ошибке возвращает fallback.
func ParseIntQuery(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

// GetPagination limit и offset из query с ограничениями.
func GetPagination(c *gin.Context) (limit, offset int) {
	limit = ParseIntQuery(c, "limit", defaultPageSize)
	offset = ParseIntQuery(c, "offset", 0)
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return
}

// BoolQuery разбирает необязательный булев query-параметр.
func BoolQuery(c *gin.Context, key string) *bool {
	v := c.Query(key)
	if v == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &parsed
}
