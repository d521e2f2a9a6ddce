package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/skillswap-backend/internal/cache"
	"github.com/ignatzorin/skillswap-backend/internal/config"
	"github.com/ignatzorin/skillswap-backend/internal/db"
	"github.com/ignatzorin/skillswap-backend/internal/goroutine"
	httpHandlers "github.com/ignatzorin/skillswap-backend/internal/http/handlers"
	"github.com/ignatzorin/skillswap-backend/internal/http/middleware"
	httpRouter "github.com/ignatzorin/skillswap-backend/internal/http/router"
	"github.com/ignatzorin/skillswap-backend/internal/infrastructure/persistence"
	convHandler "github.com/ignatzorin/skillswap-backend/internal/interface/http/handler"
	"github.com/ignatzorin/skillswap-backend/internal/jobs"
	"github.com/ignatzorin/skillswap-backend/internal/logger"
	"github.com/ignatzorin/skillswap-backend/internal/mail"
	"github.com/ignatzorin/skillswap-backend/internal/outbox"
	"github.com/ignatzorin/skillswap-backend/internal/repository"
	"github.com/ignatzorin/skillswap-backend/internal/service"
	"github.com/ignatzorin/skillswap-backend/internal/storage"
	"github.com/ignatzorin/skillswap-backend/internal/usecase/conversation"
	"github.com/ignatzorin/skillswap-backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}
	logger.Init(cfg.LogLevel, cfg.Env)
	logger.Log.WithField("env", cfg.Env).Info("main: запуск skillswap")

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, db.Migrations()); err != nil {
		logger.Log.Fatalf("main: ошибка миграций: %v", err)
	}

	redisClient := connectRedis(ctx, cfg.RedisURL)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	// Кэш и realtime: общие через Redis или локальные для одного инстанса.
	var (
		appCache cache.Cache
		relay    ws.Relay
	)
	if redisClient != nil {
		appCache = cache.NewRedis(redisClient, "skillswap:cache:")
		relay = ws.NewRedisRelay(redisClient, cfg.RedisChannel)
	} else {
		appCache = cache.NewMemory(ctx, time.Minute)
	}

	hub := ws.NewHub(relay)
	if err := hub.Connect(ctx); err != nil {
		logger.Log.WithField("error", err.Error()).Warn("ws: relay недоступен, события доставляются только локально")
	}
	goroutine.DefaultRecoveryHandler.GoContext(ctx, "ws hub", hub.Run)

	var mailer mail.Mailer = mail.LogMailer{}
	if cfg.EmailEnabled() {
		mailer = mail.NewBrevoMailer(cfg.BrevoAPIKey, cfg.EmailSender, cfg.EmailSenderName)
	}
	queue := outbox.New(outbox.Config{Workers: cfg.OutboxWorkers, Buffer: cfg.OutboxBuffer})

	avatars, err := storage.NewAvatarStorage(cfg.MediaStoragePath, "/media", cfg.MaxUploadSizeMB)
	if err != nil {
		logger.Log.Fatalf("main: не удалось подготовить файловое хранилище: %v", err)
	}

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	sessionRepo := repository.NewSessionRepository(dbConn)
	reviewRepo := repository.NewReviewRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)
	statsRepo := repository.NewStatsRepository(dbConn)
	adminRepo := repository.NewAdminRepository(dbConn)
	convRepo := persistence.NewConversationRepositoryAdapter(dbConn)
	msgRepo := persistence.NewMessageRepositoryAdapter(dbConn)
	userDir := persistence.NewUserDirectoryAdapter(dbConn)

	// Сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	authService := service.NewAuthService(userRepo, tokenManager)
	statsService := service.NewStatsService(statsRepo)
	notificationService := service.NewNotificationService(notificationRepo, userRepo, hub, queue, mailer, cfg.FrontendURL)
	matchService := service.NewMatchService(userRepo, sessionRepo, appCache)
	userService := service.NewUserService(userRepo, avatars, matchService)
	sessionService := service.NewSessionService(sessionRepo, userRepo, statsService, notificationService)
	reviewService := service.NewReviewService(reviewRepo, sessionRepo, statsService, notificationService)
	adminService := service.NewAdminService(userRepo, adminRepo, reviewService, statsService, notificationService, appCache)

	conversationHandler := convHandler.NewConversationHandler(convHandler.ConversationUseCases{
		Open:     conversation.NewOpenConversationUseCase(convRepo, userDir),
		List:     conversation.NewListMyConversationsUseCase(convRepo),
		Send:     conversation.NewSendMessageUseCase(convRepo, msgRepo, notificationService),
		Messages: conversation.NewListMessagesUseCase(convRepo, msgRepo),
		MarkRead: conversation.NewMarkReadUseCase(convRepo, msgRepo),
	})

	healthChecks := map[string]httpHandlers.Pinger{"database": dbConn}
	if redisClient != nil {
		healthChecks["redis"] = httpHandlers.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	handlers := httpRouter.Handlers{
		Auth:          httpHandlers.NewAuthHandler(authService),
		Profile:       httpHandlers.NewProfileHandler(userService, cfg.MaxUploadSizeMB),
		Users:         httpHandlers.NewUserHandler(userService, reviewService, matchService),
		Sessions:      httpHandlers.NewSessionHandler(sessionService, reviewService),
		Reviews:       httpHandlers.NewReviewHandler(reviewService),
		Notifications: httpHandlers.NewNotificationHandler(notificationService),
		Conversations: conversationHandler,
		Admin:         httpHandlers.NewAdminHandler(adminService),
		WS:            httpHandlers.NewWSHandler(hub, authService, cfg.AllowedOrigins),
		Health:        httpHandlers.NewHealthHandler(healthChecks),
	}

	// Фоновые задачи.
	scheduler := jobs.NewScheduler()
	for _, job := range []jobs.Job{
		jobs.StatsSweep(cfg.StatsSweepSchedule, statsService),
		jobs.NotificationPurge(cfg.NotificationPurgeSchedule, notificationService),
		jobs.SessionReminders(cfg.SessionReminderSchedule, sessionService),
	} {
		if err := scheduler.Add(job); err != nil {
			logger.Log.Fatalf("main: задача %s: %v", job.Name, err)
		}
	}
	scheduler.Start()

	engine := httpRouter.SetupRouter(cfg, handlers, authService, middleware.NewRateLimitStore(redisClient))

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	goroutine.SafeGoNamed("shutdown", func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Log.WithField("error", err.Error()).Error("main: ошибка остановки http сервера")
		}
		if err := scheduler.Stop(shutdownCtx); err != nil {
			logger.Log.WithField("error", err.Error()).Warn("main: фоновые задачи не завершились вовремя")
		}
		if err := queue.Close(shutdownCtx); err != nil {
			logger.Log.WithField("error", err.Error()).Warn("main: очередь доставки не опустела")
		}
	})

	logger.Log.WithField("port", cfg.HTTPPort).Info("main: HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// connectRedis возвращает клиента или nil, если Redis не настроен или недоступен.
func connectRedis(ctx context.Context, url string) *redis.Client {
	if url == "" {
		return nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		logger.Log.WithField("error", err.Error()).Warn("main: некорректный REDIS_URL, работаем без Redis")
		return nil
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Log.WithFields(logrus.Fields{"error": err.Error()}).Warn("main: Redis недоступен, кэш и ws локальные")
		_ = client.Close()
		return nil
	}
	return client
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		logger.Log.WithField("error", err.Error()).Warn("main: ошибка закрытия базы")
	}
}
