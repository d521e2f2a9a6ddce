package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ignatzorin/skillswap-backend/internal/models"
)

const (
	tokenIssuer = "skillswap"
	kindAccess  = "access"
	kindRefresh = "refresh"
	clockLeeway = 5 * time.Second
)

var errWrongTokenKind = errors.New("token: неверный тип токена")

// TokenPair пара access и refresh токенов. ExpiresIn в секундах.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// sessionClaims общие клеймы обоих токенов. Kind не даёт использовать refresh как access.
type sessionClaims struct {
	Role string `json:"role,omitempty"`
	Kind string `json:"kind"`
	jwt.RegisteredClaims
}

// TokenManager выпускает и проверяет JWT. Для access и refresh разные секреты.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewTokenManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// GeneratePair выпускает новую пару и возвращает сроки жизни обоих токенов.
func (m *TokenManager) GeneratePair(user *models.User) (*TokenPair, time.Time, time.Time, error) {
	issued := m.now()
	accessExp := issued.Add(m.accessTTL)
	refreshExp := issued.Add(m.refreshTTL)

	access, err := m.sign(sessionClaims{
		Role:             user.Role,
		Kind:             kindAccess,
		RegisteredClaims: m.registered(user.ID, issued, accessExp),
	}, m.accessSecret)
	if err != nil {
		return nil, time.Time{}, time.Time{}, err
	}

	// refresh токены различаются по jti
	refreshRegistered := m.registered(user.ID, issued, refreshExp)
	refreshRegistered.ID = uuid.NewString()
	refresh, err := m.sign(sessionClaims{Kind: kindRefresh, RegisteredClaims: refreshRegistered}, m.refreshSecret)
	if err != nil {
		return nil, time.Time{}, time.Time{}, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(m.accessTTL.Seconds()),
	}, accessExp, refreshExp, nil
}

// ParseRefresh проверяет подпись и срок refresh токена.
func (m *TokenManager) ParseRefresh(token string) (*jwt.RegisteredClaims, error) {
	claims, err := m.parse(token, m.refreshSecret, kindRefresh)
	if err != nil {
		return nil, err
	}
	return &claims.RegisteredClaims, nil
}

// ParseAccess возвращает ID пользователя и роль из access токена.
func (m *TokenManager) ParseAccess(token string) (uuid.UUID, string, error) {
	claims, err := m.parse(token, m.accessSecret, kindAccess)
	if err != nil {
		return uuid.Nil, "", err
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, "", jwt.ErrTokenInvalidClaims
	}
	return userID, claims.Role, nil
}

func (m *TokenManager) registered(userID uuid.UUID, issued, exp time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(issued),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
}

func (m *TokenManager) sign(claims sessionClaims, secret []byte) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (m *TokenManager) parse(token string, secret []byte, kind string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockLeeway),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Kind != kind {
		return nil, errWrongTokenKind
	}
	return claims, nil
}
