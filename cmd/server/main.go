package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/gatherly/backend/internal/auth"
	"github.com/gatherly/backend/internal/config"
	"github.com/gatherly/backend/internal/database"
	"github.com/gatherly/backend/internal/handlers"
	"github.com/gatherly/backend/internal/logger"
	"github.com/gatherly/backend/internal/metrics"
	"github.com/gatherly/backend/internal/middleware"
	"github.com/gatherly/backend/internal/notify"
	"github.com/gatherly/backend/internal/storage"
	"github.com/gatherly/backend/internal/websocket"
)

func main() {
	// Missing .env is fine, the system environment is enough
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("configuration error: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		os.Stderr.WriteString("failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Close()

	logger.Log.Info("gatherly backend starting",
		zap.String("environment", cfg.Environment))

	if err := database.Initialize(); err != nil {
		logger.FatalWithFields("failed to initialize database", err)
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		logger.FatalWithFields("failed to run migrations", err)
	}

	metrics.Initialize()

	authService := auth.NewService(database.DB, []byte(cfg.JWTSecret))

	h := handlers.NewHandlers(database.DB)

	// Object storage for event media. The server runs without it; media
	// uploads fail until the bucket is reachable.
	if cfg.AWSBucket != "" {
		mediaStore, err := storage.NewMediaStore(cfg.AWSRegion, cfg.AWSBucket, cfg.CDNBaseURL)
		if err != nil {
			logger.FatalWithFields("failed to initialize media storage", err)
		}
		if err := mediaStore.CheckBucketAccess(context.Background()); err != nil {
			logger.WarnWithFields("media bucket not reachable, uploads will fail", err)
		}
		h.SetMediaStore(mediaStore)
	} else {
		logger.Log.Warn("AWS_BUCKET not set, media uploads disabled")
	}

	wsHub := websocket.NewHub()
	go wsHub.Run()

	presence := websocket.NewPresenceTracker(wsHub, database.DB, websocket.DefaultPresenceConfig())
	presence.Start()

	wsHandler := websocket.NewHandler(wsHub, authService, presence)
	h.SetWebSocketHandler(wsHandler)

	dispatcher := notify.NewDispatcher(wsHandler)
	dispatcher.Start()
	defer dispatcher.Stop()

	h.SetDispatcher(dispatcher)

	authHandlers := handlers.NewAuthHandlers(authService)
	authRequired := auth.Middleware(authService)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	r.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		dbState := "ok"
		if err := database.Health(); err != nil {
			status = http.StatusServiceUnavailable
			dbState = "unreachable"
		}
		c.JSON(status, gin.H{
			"status":    dbState,
			"timestamp": time.Now().UTC(),
			"service":   "gatherly-backend",
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		authGroup := api.Group("/auth", middleware.RateLimitAuth())
		{
			authGroup.POST("/users/register", authHandlers.RegisterUser)
			authGroup.POST("/users/login", authHandlers.LoginUser)
			authGroup.POST("/professionals/register", authHandlers.RegisterProfessional)
			authGroup.POST("/professionals/login", authHandlers.LoginProfessional)
			authGroup.GET("/me", authRequired, authHandlers.Me)
		}

		accounts := api.Group("/accounts", authRequired)
		{
			accounts.GET("/:id", h.GetAccount)
			accounts.PUT("/me", h.UpdateMyAccount)
			accounts.DELETE("/me", h.DeleteMyAccount)
		}

		api.GET("/users", authRequired, h.ListUsers)
		api.GET("/professionals", authRequired, h.ListProfessionals)

		events := api.Group("/events", authRequired)
		{
			events.POST("", h.CreateEvent)
			events.GET("", h.ListEvents)
			events.GET("/:id", h.GetEvent)
			events.PUT("/:id", h.UpdateEvent)
			events.DELETE("/:id", h.DeleteEvent)

			events.POST("/:id/join", h.JoinEvent)
			events.DELETE("/:id/join", h.LeaveEvent)
			events.GET("/:id/participants", h.ListParticipants)
			events.POST("/:id/invite", h.InviteToEvent)

			events.POST("/:id/media", middleware.RateLimitUpload(), h.UploadEventMedia)
			events.DELETE("/:id/media/*key", h.RemoveEventMedia)

			events.POST("/:id/comments", h.CreateComment)
			events.GET("/:id/comments", h.ListComments)
			events.POST("/:id/reviews", h.CreateReview)
			events.GET("/:id/reviews", h.ListReviews)
		}

		comments := api.Group("/comments", authRequired)
		{
			comments.GET("/:id", h.GetComment)
			comments.PUT("/:id", h.UpdateComment)
			comments.DELETE("/:id", h.DeleteComment)
		}

		replies := api.Group("/replies", authRequired)
		{
			replies.POST("", h.CreateReply)
			replies.GET("", h.ListReplies)
			replies.GET("/:id", h.GetReply)
			replies.PUT("/:id", h.UpdateReply)
			replies.DELETE("/:id", h.DeleteReply)
		}

		reviews := api.Group("/reviews", authRequired)
		{
			reviews.GET("/:id", h.GetReview)
			reviews.PUT("/:id", h.UpdateReview)
			reviews.DELETE("/:id", h.DeleteReview)
		}

		likes := api.Group("/likes", authRequired)
		{
			likes.PATCH("/:id", h.ToggleReaction)
			likes.GET("/:id", h.ListReactions)
		}

		notifications := api.Group("/notifications", authRequired)
		{
			notifications.POST("", h.CreateNotification)
			notifications.GET("", h.ListNotifications)
			notifications.PATCH("/:id/seen", h.MarkNotificationSeen)
			notifications.DELETE("/:id", h.DeleteNotification)
		}

		ws := api.Group("/ws")
		{
			// Auth via query param ?token=... or Authorization header
			ws.GET("", wsHandler.HandleWebSocket)
			ws.GET("/connect", wsHandler.HandleWebSocket)
			ws.POST("/online", authRequired, wsHandler.HandleOnlineStatus)
			ws.GET("/stats", authRequired, wsHandler.HandleStats)
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		logger.Log.Info("listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.FatalWithFields("server failed", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := wsHandler.Shutdown(ctx); err != nil {
		logger.WarnWithFields("websocket shutdown", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.FatalWithFields("forced shutdown", err)
	}

	logger.Log.Info("server exited")
}
