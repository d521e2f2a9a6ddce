package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"

	"github.com/ignatzorin/skillswap-backend/internal/config"
	"github.com/ignatzorin/skillswap-backend/internal/http/handlers"
	"github.com/ignatzorin/skillswap-backend/internal/http/middleware"
	convHandler "github.com/ignatzorin/skillswap-backend/internal/interface/http/handler"
	"github.com/ignatzorin/skillswap-backend/internal/models"
	"github.com/ignatzorin/skillswap-backend/internal/validation"
)

const messagesPerMinute = 30

// Handlers все HTTP обработчики приложения.
type Handlers struct {
	Auth          *handlers.AuthHandler
	Profile       *handlers.ProfileHandler
	Users         *handlers.UserHandler
	Sessions      *handlers.SessionHandler
	Reviews       *handlers.ReviewHandler
	Notifications *handlers.NotificationHandler
	Conversations *convHandler.ConversationHandler
	Admin         *handlers.AdminHandler
	WS            *handlers.WSHandler
	Health        *handlers.HealthHandler
}

func SetupRouter(cfg *config.Config, h Handlers, tokens middleware.AccessParser, limitStore limiter.Store) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	validation.RegisterBindingRules()

	r := gin.New()
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", h.Health.Health)
	r.GET("/ws", h.WS.Handle)
	r.StaticFS("/media", http.Dir(cfg.MediaStoragePath))

	api := r.Group("/api")
	auth := middleware.AuthMiddleware(tokens)
	id := middleware.UUIDValidator("id")
	messageLimit := middleware.UserRateLimitMiddleware(limitStore, messagesPerMinute, time.Minute)

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(limitStore, cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/refresh", h.Auth.Refresh)
		authGroup.POST("/logout", h.Auth.Logout)
	}

	protected := api.Group("/")
	protected.Use(auth)
	{
		protected.GET("/profile", h.Profile.GetProfile)
		protected.PUT("/profile", h.Profile.UpdateProfile)
		protected.POST("/profile/avatar", h.Profile.UploadAvatar)
		protected.POST("/profile/skills/offered", h.Profile.AddOffer)
		protected.PUT("/profile/skills/offered/:id", id, h.Profile.UpdateOffer)
		protected.DELETE("/profile/skills/offered/:id", id, h.Profile.DeleteOffer)
		protected.POST("/profile/skills/wanted", h.Profile.AddWant)
		protected.PUT("/profile/skills/wanted/:id", id, h.Profile.UpdateWant)
		protected.DELETE("/profile/skills/wanted/:id", id, h.Profile.DeleteWant)

		protected.GET("/users", h.Users.SearchUsers)
		protected.GET("/users/:id", id, h.Users.GetUser)
		protected.GET("/users/:id/reviews", id, h.Users.ListUserReviews)
		protected.GET("/skills/matches", h.Users.Matches)

		protected.POST("/sessions", h.Sessions.CreateSession)
		protected.GET("/sessions", h.Sessions.ListSessions)
		protected.GET("/sessions/:id", id, h.Sessions.GetSession)
		protected.PUT("/sessions/:id/respond", id, h.Sessions.RespondSession)
		protected.PUT("/sessions/:id/complete", id, h.Sessions.CompleteSession)
		protected.PUT("/sessions/:id/cancel", id, h.Sessions.CancelSession)
		protected.PUT("/sessions/:id/reschedule", id, h.Sessions.RescheduleSession)
		protected.GET("/sessions/:id/reviews", id, h.Sessions.ListSessionReviews)
		protected.GET("/sessions/:id/can-review", id, h.Sessions.CanReview)

		protected.POST("/reviews", h.Reviews.CreateReview)
		protected.GET("/reviews/:id", id, h.Reviews.GetReview)
		protected.PUT("/reviews/:id", id, h.Reviews.UpdateReview)
		protected.DELETE("/reviews/:id", id, h.Reviews.DeleteReview)

		protected.GET("/notifications", h.Notifications.ListNotifications)
		protected.GET("/notifications/unread-count", h.Notifications.UnreadCount)
		protected.PUT("/notifications/read-all", h.Notifications.MarkAllAsRead)
		protected.GET("/notifications/:id", id, h.Notifications.GetNotification)
		protected.PUT("/notifications/:id/read", id, h.Notifications.MarkAsRead)
		protected.DELETE("/notifications/:id", id, h.Notifications.DeleteNotification)

		protected.POST("/conversations", h.Conversations.OpenConversation)
		protected.GET("/conversations", h.Conversations.ListMyConversations)
		protected.GET("/conversations/:id/messages", id, h.Conversations.ListMessages)
		protected.POST("/conversations/:id/messages", id, messageLimit, h.Conversations.SendMessage)
		protected.PUT("/conversations/:id/read", id, h.Conversations.MarkRead)
	}

	admin := api.Group("/admin")
	admin.Use(auth, middleware.RequireRole(models.RoleAdmin, models.RoleSuperAdmin))
	{
		admin.GET("/dashboard", h.Admin.Dashboard)
		admin.GET("/users", h.Admin.ListUsers)
		admin.GET("/users/:id", id, h.Admin.GetUser)
		admin.PUT("/users/:id", id, h.Admin.UpdateUser)
		admin.DELETE("/users/:id", id, h.Admin.DeactivateUser)
		admin.POST("/users/:id/stats/recalculate", id, h.Admin.RecalculateStats)
		admin.POST("/stats/recalculate", h.Admin.RecalculateAllStats)
		admin.POST("/notifications/broadcast", h.Admin.Broadcast)
		admin.PUT("/reviews/:id/visibility", id, h.Admin.HideReview)
	}

	return r
}
