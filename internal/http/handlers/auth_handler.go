package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/skillswap-backend/internal/dto"
	"github.com/ignatzorin/skillswap-backend/internal/http/handlers/common"
	"github.com/ignatzorin/skillswap-backend/internal/interface/http/response"
	"github.com/ignatzorin/skillswap-backend/internal/service"
)

// Authenticator операции AuthService, нужные HTTP слою.
type Authenticator interface {
	Register(ctx context.Context, in service.RegisterInput, meta service.ClientMeta) (*service.AuthResult, error)
	Login(ctx context.Context, in service.LoginInput, meta service.ClientMeta) (*service.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string, meta service.ClientMeta) (*service.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
}

// AuthHandler регистрация, вход и обновление токенов.
type AuthHandler struct {
	auth Authenticator
}

func NewAuthHandler(auth Authenticator) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Register обрабатывает POST /api/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if !common.BindJSON(c, &req) {
		return
	}

	result, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		Username:    req.Username,
		DisplayName: req.DisplayName,
	}, clientMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "регистрация прошла успешно", dto.ToAuthResponse(result))
}

// Login обрабатывает POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !common.BindJSON(c, &req) {
		return
	}

	result, err := h.auth.Login(c.Request.Context(), service.LoginInput{Email: req.Email, Password: req.Password}, clientMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToAuthResponse(result))
}

// Refresh обрабатывает POST /api/auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if !common.BindJSON(c, &req) {
		return
	}

	tokens, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken, clientMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, tokens)
}

// Logout обрабатывает POST /api/auth/logout. Повторный выход не ошибка.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req dto.LogoutRequest
	_ = c.ShouldBindJSON(&req)

	if req.RefreshToken != "" {
		if err := h.auth.Logout(c.Request.Context(), req.RefreshToken); err != nil {
			response.Error(c, err)
			return
		}
	}
	response.SuccessMessage(c, "вы вышли из системы", nil)
}

func clientMeta(c *gin.Context) service.ClientMeta {
	return service.ClientMeta{UserAgent: c.GetHeader("User-Agent"), IP: c.ClientIP()}
}
