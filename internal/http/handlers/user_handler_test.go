package handlers

import (
	"context"
	"encoding/json"
	"errors"
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

type fakeDirectory struct {
	users       map[uuid.UUID]*models.User
	search      models.UserSearchParams
	viewerAdmin bool
}

func (f *fakeDirectory) GetPublicProfile(_ context.Context, userID uuid.UUID, viewerIsAdmin bool) (*models.User, error) {
	f.viewerAdmin = viewerIsAdmin
	u, ok := f.users[userID]
	if !ok || (!u.IsActive && !viewerIsAdmin) {
		return nil, apperror.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeDirectory) SearchUsers(_ context.Context, params models.UserSearchParams) ([]*models.User, int, error) {
	f.search = params
	out := make([]*models.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, len(out), nil
}

type stubUserReviews struct{}

func (stubUserReviews) ListForUser(context.Context, uuid.UUID, int, int) (*service.UserReviews, error) {
	return &service.UserReviews{Reviews: []models.Review{}, Summary: &models.ReviewSummary{}}, nil
}

type stubMatches struct {
	results []service.MatchResult
	err     error
}

func (s stubMatches) FindMatches(context.Context, uuid.UUID) ([]service.MatchResult, error) {
	return s.results, s.err
}

func userRouter(viewer uuid.UUID, role string, users UserDirectory, matches MatchFinder) *gin.Engine {
	h := NewUserHandler(users, stubUserReviews{}, matches)
	r := gin.New()
	g := r.Group("", withUser(viewer, role))
	g.GET("/users", h.SearchUsers)
	g.GET("/users/:id", h.GetUser)
	g.GET("/users/:id/reviews", h.ListUserReviews)
	g.GET("/skills/matches", h.Matches)
	return r
}

func TestUserHandler_GetUser_HidesPrivateFields(t *testing.T) {
	u := &models.User{ID: uuid.New(), Email: "secret@example.com", Username: "ann", IsActive: true}
	dir := &fakeDirectory{users: map[uuid.UUID]*models.User{u.ID: u}}
	r := userRouter(uuid.New(), models.RoleUser, dir, stubMatches{})

	w, env := doJSON(t, r, http.MethodGet, "/users/"+u.ID.String(), nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, string(env.Data), "secret@example.com")
	assert.NotContains(t, string(env.Data), "preferences")
	var data map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, []any{}, data["skillsOffered"])
}

func TestUserHandler_GetUser_InactiveVisibleToAdmin(t *testing.T) {
	u := &models.User{ID: uuid.New(), IsActive: false}
	dir := &fakeDirectory{users: map[uuid.UUID]*models.User{u.ID: u}}

	w, _ := doJSON(t, userRouter(uuid.New(), models.RoleUser, dir, stubMatches{}), http.MethodGet, "/users/"+u.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = doJSON(t, userRouter(uuid.New(), models.RoleAdmin, dir, stubMatches{}), http.MethodGet, "/users/"+u.ID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, dir.viewerAdmin)
}

func TestUserHandler_SearchUsers(t *testing.T) {
	dir := &fakeDirectory{users: map[uuid.UUID]*models.User{}}
	r := userRouter(uuid.New(), models.RoleUser, dir, stubMatches{})

	w, _ := doJSON(t, r, http.MethodGet, "/users?skill=%20Go%20&category=Programming&limit=500", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Go", dir.search.Skill)
	assert.Equal(t, "Programming", dir.search.Category)
	assert.Equal(t, 100, dir.search.Limit)
}

func TestUserHandler_Matches(t *testing.T) {
	results := []service.MatchResult{{MatchScore: 6.3}}
	r := userRouter(uuid.New(), models.RoleUser, &fakeDirectory{}, stubMatches{results: results})

	w, env := doJSON(t, r, http.MethodGet, "/skills/matches", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "6.3")

	r = userRouter(uuid.New(), models.RoleUser, &fakeDirectory{}, stubMatches{err: errors.New("db down")})
	w, env = doJSON(t, r, http.MethodGet, "/skills/matches", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, env.Message, "db down")
}
