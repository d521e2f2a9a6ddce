package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ignatzorin/skillswap-backend/internal/models"
	"github.com/ignatzorin/skillswap-backend/internal/pkg/apperror"
	"github.com/ignatzorin/skillswap-backend/internal/repository"
)

// mockAuthRepository реализует AuthRepository для тестов.
type mockAuthRepository struct {
	usersByEmail map[string]*models.User
	usersByID    map[uuid.UUID]*models.User
	sessions     map[string]*models.AuthSession
}

func newMockAuthRepository() *mockAuthRepository {
	return &mockAuthRepository{
		usersByEmail: make(map[string]*models.User),
		usersByID:    make(map[uuid.UUID]*models.User),
		sessions:     make(map[string]*models.AuthSession),
	}
}

func (m *mockAuthRepository) Create(ctx context.Context, user *models.User) error {
	if _, ok := m.usersByEmail[user.Email]; ok {
		return repository.ErrUserExists
	}
	user.ID = uuid.New()
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.IsActive = true
	user.Preferences = models.DefaultPreferences()
	m.usersByEmail[user.Email] = user
	m.usersByID[user.ID] = user
	return nil
}

func (m *mockAuthRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := m.usersByEmail[email]; ok {
		return user, nil
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockAuthRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if user, ok := m.usersByID[id]; ok {
		return user, nil
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockAuthRepository) CreateAuthSession(ctx context.Context, session *models.AuthSession) error {
	session.ID = uuid.New()
	session.CreatedAt = time.Now()
	m.sessions[session.RefreshToken] = session
	return nil
}

func (m *mockAuthRepository) GetAuthSession(ctx context.Context, refreshToken string) (*models.AuthSession, error) {
	if s, ok := m.sessions[refreshToken]; ok {
		return s, nil
	}
	return nil, repository.ErrAuthSessionNotFound
}

func (m *mockAuthRepository) DeleteAuthSession(ctx context.Context, refreshToken string) error {
	if _, ok := m.sessions[refreshToken]; !ok {
		return repository.ErrAuthSessionNotFound
	}
	delete(m.sessions, refreshToken)
	return nil
}

func (m *mockAuthRepository) UpdateLastLoginAt(ctx context.Context, userID uuid.UUID) error {
	if user, ok := m.usersByID[userID]; ok {
		now := time.Now()
		user.LastLoginAt = &now
	}
	return nil
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	repo := newMockAuthRepository()
	tokenManager := NewTokenManager("access", "refresh", time.Minute, time.Hour)
	service := NewAuthService(repo, tokenManager)

	ctx := context.Background()
	res, err := service.Register(ctx, RegisterInput{
		Email:    "Test@Example.com",
		Password: "Password123",
	}, ClientMeta{IP: "127.0.0.1"})
	if err != nil {
		t.Fatalf("register returned error: %v", err)
	}

	if res.User.ID == uuid.Nil {
		t.Fatalf("user ID должен быть установлен")
	}
	if res.User.Email != "test@example.com" {
		t.Fatalf("email должен приводиться к нижнему регистру, получили %s", res.User.Email)
	}
	if res.User.Username != "test" || res.User.DisplayName != "test" {
		t.Fatalf("username и displayName выводятся из email, получили %s/%s", res.User.Username, res.User.DisplayName)
	}
	if res.User.Role != models.RoleUser {
		t.Fatalf("роль по умолчанию user, получили %s", res.User.Role)
	}
	if len(repo.sessions) != 1 {
		t.Fatalf("ожидалась одна сессия, получили %d", len(repo.sessions))
	}

	loginRes, err := service.Login(ctx, LoginInput{
		Email:    "test@example.com",
		Password: "Password123",
	}, ClientMeta{})
	if err != nil {
		t.Fatalf("login returned error: %v", err)
	}
	if loginRes.TokenPair.AccessToken == "" {
		t.Fatalf("ожидался access токен")
	}
	if repo.usersByID[res.User.ID].LastLoginAt == nil {
		t.Fatalf("last_login_at должен обновиться")
	}

	userID, role, err := service.ParseAccess(loginRes.TokenPair.AccessToken)
	if err != nil || userID != res.User.ID || role != models.RoleUser {
		t.Fatalf("access токен разбирается неверно: %v %v %s", err, userID, role)
	}
}

func TestAuthService_RegisterValidation(t *testing.T) {
	service := NewAuthService(newMockAuthRepository(), NewTokenManager("a", "r", time.Minute, time.Hour))

	_, err := service.Register(context.Background(), RegisterInput{Email: "bad", Password: "short"}, ClientMeta{})
	if !apperror.IsValidation(err) {
		t.Fatalf("ожидалась ошибка валидации, получили %v", err)
	}
}

func TestAuthService_RegisterDuplicate(t *testing.T) {
	repo := newMockAuthRepository()
	service := NewAuthService(repo, NewTokenManager("a", "r", time.Minute, time.Hour))
	ctx := context.Background()

	in := RegisterInput{Email: "dup@example.com", Password: "Password123"}
	if _, err := service.Register(ctx, in, ClientMeta{}); err != nil {
		t.Fatalf("первая регистрация: %v", err)
	}
	if _, err := service.Register(ctx, in, ClientMeta{}); !apperror.IsConflict(err) {
		t.Fatalf("ожидался конфликт, получили %v", err)
	}
}

func TestAuthService_LoginRejectsInactiveAndWrongPassword(t *testing.T) {
	repo := newMockAuthRepository()
	service := NewAuthService(repo, NewTokenManager("a", "r", time.Minute, time.Hour))
	ctx := context.Background()

	hash, _ := bcrypt.GenerateFromPassword([]byte("Password123"), bcrypt.MinCost)
	user := &models.User{ID: uuid.New(), Email: "off@example.com", PasswordHash: string(hash), Role: models.RoleUser}
	repo.usersByEmail[user.Email] = user
	repo.usersByID[user.ID] = user

	if _, err := service.Login(ctx, LoginInput{Email: user.Email, Password: "Password123"}, ClientMeta{}); !apperror.IsForbidden(err) {
		t.Fatalf("неактивный пользователь не должен входить, получили %v", err)
	}

	user.IsActive = true
	if _, err := service.Login(ctx, LoginInput{Email: user.Email, Password: "Wrong1234"}, ClientMeta{}); err != apperror.ErrInvalidCredentials {
		t.Fatalf("ожидалась ошибка учётных данных, получили %v", err)
	}
	if _, err := service.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "Password123"}, ClientMeta{}); err != apperror.ErrInvalidCredentials {
		t.Fatalf("ожидалась ошибка учётных данных, получили %v", err)
	}
}

func TestAuthService_Refresh(t *testing.T) {
	repo := newMockAuthRepository()
	tokenManager := NewTokenManager("access-secret", "refresh-secret", time.Minute, time.Hour)
	service := NewAuthService(repo, tokenManager)

	ctx := context.Background()
	user := &models.User{ID: uuid.New(), Email: "user@example.com", Role: models.RoleUser, IsActive: true}
	repo.usersByEmail[user.Email] = user
	repo.usersByID[user.ID] = user

	tokenPair, accessExp, refreshExp, err := tokenManager.GeneratePair(user)
	if err != nil {
		t.Fatalf("не удалось сгенерировать токены: %v", err)
	}
	if accessExp.After(refreshExp) {
		t.Fatalf("access должен истекать раньше refresh")
	}

	repo.sessions[tokenPair.RefreshToken] = &models.AuthSession{
		ID:           uuid.New(),
		UserID:       user.ID,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresAt:    refreshExp,
	}

	newPair, err := service.Refresh(ctx, tokenPair.RefreshToken, ClientMeta{})
	if err != nil {
		t.Fatalf("refresh вернул ошибку: %v", err)
	}
	if newPair.RefreshToken == tokenPair.RefreshToken {
		t.Fatalf("ожидался новый refresh токен")
	}

	if _, err := service.Refresh(ctx, tokenPair.RefreshToken, ClientMeta{}); err == nil {
		t.Fatalf("старый refresh токен должен быть отозван")
	}
}

func TestAuthService_Logout(t *testing.T) {
	repo := newMockAuthRepository()
	service := NewAuthService(repo, NewTokenManager("a", "r", time.Minute, time.Hour))
	ctx := context.Background()

	res, err := service.Register(ctx, RegisterInput{Email: "out@example.com", Password: "Password123"}, ClientMeta{})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := service.Logout(ctx, res.TokenPair.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if err := service.Logout(ctx, res.TokenPair.RefreshToken); err != nil {
		t.Fatalf("повторный logout не должен падать: %v", err)
	}
	if len(repo.sessions) != 0 {
		t.Fatalf("сессия должна быть удалена")
	}
}
