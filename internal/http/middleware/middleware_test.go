package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

type stubParser struct {
	userID uuid.UUID
	role   string
	err    error
}

func (s stubParser) ParseAccess(string) (uuid.UUID, string, error) {
	return s.userID, s.role, s.err
}

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(r http.Handler, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	userID := uuid.New()
	r := gin.New()
	r.GET("/me", AuthMiddleware(stubParser{userID: userID, role: "user"}), func(c *gin.Context) {
		c.String(http.StatusOK, c.MustGet(ContextUserIDKey).(uuid.UUID).String())
	})
	r.GET("/bad", AuthMiddleware(stubParser{err: errors.New("expired")}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := perform(r, http.MethodGet, "/me", map[string]string{"Authorization": "Bearer token"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID.String(), w.Body.String())

	w = perform(r, http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = perform(r, http.MethodGet, "/bad", map[string]string{"Authorization": "Bearer token"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
}

func TestRequireRole(t *testing.T) {
	for _, tc := range []struct {
		role string
		want int
	}{
		{"user", http.StatusForbidden},
		{"admin", http.StatusOK},
		{"super_admin", http.StatusOK},
	} {
		r := gin.New()
		r.GET("/admin", AuthMiddleware(stubParser{userID: uuid.New(), role: tc.role}), RequireRole("admin", "super_admin"),
			func(c *gin.Context) { c.Status(http.StatusOK) })

		w := perform(r, http.MethodGet, "/admin", map[string]string{"Authorization": "Bearer x"})
		assert.Equal(t, tc.want, w.Code, tc.role)
	}
}

func TestUUIDValidator(t *testing.T) {
	r := gin.New()
	r.GET("/sessions/:id", UUIDValidator("id"), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/sessions/"+uuid.NewString(), nil).Code)
	assert.Equal(t, http.StatusBadRequest, perform(r, http.MethodGet, "/sessions/42", nil).Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.POST("/login", RateLimitMiddleware(memory.NewStore(), 2, time.Minute), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, perform(r, http.MethodPost, "/login", nil).Code)
	w := perform(r, http.MethodPost, "/login", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, http.StatusTooManyRequests, perform(r, http.MethodPost, "/login", nil).Code)
}

func TestUserRateLimitMiddleware_KeyedByUser(t *testing.T) {
	store := memory.NewStore()
	alice, bob := uuid.New(), uuid.New()

	r := gin.New()
	r.POST("/messages", func(c *gin.Context) {
		switch c.GetHeader("X-User") {
		case "alice":
			c.Set(ContextUserIDKey, alice)
		case "bob":
			c.Set(ContextUserIDKey, bob)
		}
	}, UserRateLimitMiddleware(store, 1, time.Minute), func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(user string) int {
		req := httptest.NewRequest(http.MethodPost, "/messages", nil)
		req.Header.Set("X-User", user)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("alice"))
	assert.Equal(t, http.StatusTooManyRequests, send("alice"))
	assert.Equal(t, http.StatusOK, send("bob"))
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := perform(r, http.MethodGet, "/panic", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware([]string{"http://localhost:3000"}))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := perform(r, http.MethodGet, "/health", map[string]string{"Origin": "http://localhost:3000"})
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	w = perform(r, http.MethodGet, "/health", map[string]string{"Origin": "http://evil.example"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}
