package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/skillswap-backend/internal/models"
	"github.com/ignatzorin/skillswap-backend/internal/pkg/apperror"
	"github.com/ignatzorin/skillswap-backend/internal/service"
)

type fakeAuth struct {
	meta       service.ClientMeta
	loggedOut  []string
	loginErr   error
	registered *service.RegisterInput
}

func (f *fakeAuth) result(email string) *service.AuthResult {
	return &service.AuthResult{
		User:      &models.User{ID: uuid.New(), Email: email, Role: models.RoleUser, IsActive: true},
		TokenPair: &service.TokenPair{AccessToken: "access", RefreshToken: "refresh", ExpiresIn: 900},
	}
}

func (f *fakeAuth) Register(_ context.Context, in service.RegisterInput, meta service.ClientMeta) (*service.AuthResult, error) {
	f.registered, f.meta = &in, meta
	return f.result(in.Email), nil
}

func (f *fakeAuth) Login(_ context.Context, in service.LoginInput, meta service.ClientMeta) (*service.AuthResult, error) {
	f.meta = meta
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.result(in.Email), nil
}

func (f *fakeAuth) Refresh(_ context.Context, token string, _ service.ClientMeta) (*service.TokenPair, error) {
	if token != "refresh" {
		return nil, apperror.ErrUnauthorized
	}
	return &service.TokenPair{AccessToken: "access-2", RefreshToken: "refresh-2", ExpiresIn: 900}, nil
}

func (f *fakeAuth) Logout(_ context.Context, token string) error {
	f.loggedOut = append(f.loggedOut, token)
	return nil
}

func authRouter(auth Authenticator) *gin.Engine {
	h := NewAuthHandler(auth)
	r := gin.New()
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	r.POST("/auth/refresh", h.Refresh)
	r.POST("/auth/logout", h.Logout)
	return r
}

func TestAuthHandler_Register(t *testing.T) {
	fake := &fakeAuth{}
	r := authRouter(fake)

	w, env := doJSON(t, r, http.MethodPost, "/auth/register", map[string]any{
		"email":    "ann@example.com",
		"password": "Secret123",
		"username": "ann",
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var data map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "access", data["accessToken"])
	assert.Equal(t, "refresh", data["refreshToken"])
	assert.NotContains(t, string(env.Data), "passwordHash")
	require.NotNil(t, fake.registered)
	assert.Equal(t, "ann", fake.registered.Username)
}

func TestAuthHandler_Register_InvalidEmail(t *testing.T) {
	fake := &fakeAuth{}
	w, env := doJSON(t, authRouter(fake), http.MethodPost, "/auth/register", map[string]any{
		"email":    "not-an-email",
		"password": "Secret123",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotEmpty(t, env.Errors)
	assert.Equal(t, "email", env.Errors[0].Field)
	assert.Nil(t, fake.registered)
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	r := authRouter(&fakeAuth{loginErr: apperror.ErrInvalidCredentials})
	w, env := doJSON(t, r, http.MethodPost, "/auth/login", map[string]any{"email": "a@b.c", "password": "x"})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, env.Success)
}

func TestAuthHandler_Login_PassesClientMeta(t *testing.T) {
	fake := &fakeAuth{}
	r := authRouter(fake)

	w, _ := doJSON(t, r, http.MethodPost, "/auth/login", map[string]any{"email": "a@b.c", "password": "x"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, fake.meta.IP)
}

func TestAuthHandler_Refresh(t *testing.T) {
	r := authRouter(&fakeAuth{})

	w, env := doJSON(t, r, http.MethodPost, "/auth/refresh", map[string]any{"refreshToken": "refresh"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "access-2")

	w, _ = doJSON(t, r, http.MethodPost, "/auth/refresh", map[string]any{"refreshToken": "stolen"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_Logout_Idempotent(t *testing.T) {
	fake := &fakeAuth{}
	r := authRouter(fake)

	w, _ := doJSON(t, r, http.MethodPost, "/auth/logout", map[string]any{"refreshToken": "refresh"})
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = doJSON(t, r, http.MethodPost, "/auth/logout", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"refresh"}, fake.loggedOut)
}
