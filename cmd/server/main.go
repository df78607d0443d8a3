// Package main runs the community-service hours HTTP server with WebSocket
// notifications and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hourtrack/backend/config"
	"github.com/hourtrack/backend/internal/audit"
	"github.com/hourtrack/backend/internal/auth"
	"github.com/hourtrack/backend/internal/emaillogs"
	"github.com/hourtrack/backend/internal/geocode"
	"github.com/hourtrack/backend/internal/messages"
	"github.com/hourtrack/backend/internal/middleware"
	"github.com/hourtrack/backend/internal/models"
	"github.com/hourtrack/backend/internal/notifications"
	"github.com/hourtrack/backend/internal/opportunities"
	"github.com/hourtrack/backend/internal/organizations"
	"github.com/hourtrack/backend/internal/realtime"
	"github.com/hourtrack/backend/internal/reports"
	"github.com/hourtrack/backend/internal/schools"
	"github.com/hourtrack/backend/internal/sessions"
	"github.com/hourtrack/backend/internal/signups"
	"github.com/hourtrack/backend/internal/verification"
	"github.com/hourtrack/backend/pkg/database"
	"github.com/hourtrack/backend/pkg/queue"
	"github.com/hourtrack/backend/pkg/redis"
	"github.com/hourtrack/backend/pkg/response"
	"github.com/hourtrack/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			ReportsBucket:        cfg.AWS.ReportsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	resolver := geocode.NewResolver(cfg.Geocode, rdb, logger)

	// Auth / users
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Notifications (in-app + realtime + queued email)
	notificationRepo := notifications.NewRepository(pool)
	notifier := notifications.NewService(notificationRepo, hub, jobQueue, authRepo, logger)
	notificationHandler := notifications.NewHandler(notificationRepo)

	// Audit log
	auditRepo := audit.NewRepository(pool)

	// Organizations / schools
	orgRepo := organizations.NewRepository(pool)
	orgHandler := organizations.NewHandler(orgRepo, resolver, logger)
	schoolRepo := schools.NewRepository(pool)
	schoolHandler := schools.NewHandler(schoolRepo, auditRepo, resolver, logger)

	// Opportunities
	opportunityRepo := opportunities.NewRepository(pool)

	// Signups + sessions (the state machines)
	signupRepo := signups.NewRepository(pool)
	signupService := signups.NewService(signupRepo, logger)
	signupHandler := signups.NewHandler(signupService, signupRepo, notifier, logger)

	sessionRepo := sessions.NewRepository(pool)
	sessionService := sessions.NewService(sessionRepo, logger)
	sessionHandler := sessions.NewHandler(sessionService, sessionRepo, auditRepo, logger)

	opportunityHandler := opportunities.NewHandler(opportunityRepo, signupRepo, notifier, auditRepo, resolver, logger)

	// Verification
	verificationRepo := verification.NewRepository(pool)
	verificationService := verification.NewService(verificationRepo, logger)
	verificationHandler := verification.NewHandler(verificationService, verificationRepo, notifier, logger)

	// Messaging
	messageRepo := messages.NewRepository(pool)
	messageHandler := messages.NewHandler(messageRepo, notifier, logger)

	// Reports + email logs
	reportRepo := reports.NewRepository(pool)
	reportHandler := reports.NewHandler(reportRepo, jobQueue, s3Client, logger)
	emailLogRepo := emaillogs.NewRepository(pool)
	emailLogHandler := emaillogs.NewHandler(emailLogRepo, logger)

	jwtValidate := func(token string) (string, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return "", err
		}
		return claims.UserID.String(), nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Public
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
	}
	router.POST("/organizations", orgHandler.Create)
	router.POST("/schools", schoolHandler.Create)

	schoolStaff := middleware.RequireRole(models.RoleSchoolAdmin, models.RoleTeacher)
	verifiers := middleware.RequireRole(models.RoleOrgAdmin, models.RoleSchoolAdmin, models.RoleTeacher)

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		// Profile
		api.GET("/me", authHandler.Me)
		api.PATCH("/me/preferences", authHandler.UpdatePreferences)
		api.DELETE("/me", authHandler.DeleteAccount)

		// Organizations
		api.GET("/organizations", orgHandler.List)
		api.GET("/organizations/:id", orgHandler.Get)

		// Opportunities
		api.GET("/opportunities", opportunityHandler.List)
		api.POST("/opportunities", middleware.RequireRole(models.RoleOrgAdmin), opportunityHandler.Create)
		api.GET("/opportunities/:id", opportunityHandler.Get)
		api.POST("/opportunities/:id/cancel", middleware.RequireRole(models.RoleOrgAdmin), opportunityHandler.Cancel)
		api.POST("/opportunities/:id/complete", middleware.RequireRole(models.RoleOrgAdmin), opportunityHandler.Complete)
		api.GET("/opportunities/:id/signups", middleware.RequireRole(models.RoleOrgAdmin), signupHandler.ListByOpportunity)
		api.GET("/opportunities/:id/sessions", middleware.RequireRole(models.RoleOrgAdmin), sessionHandler.ListByOpportunity)

		// Signups
		api.POST("/signups", middleware.RequireRole(models.RoleStudent), signupHandler.SignUp)
		api.POST("/signups/:id/cancel", signupHandler.Cancel)
		api.GET("/signups/mine", middleware.RequireRole(models.RoleStudent), signupHandler.ListMine)

		// Sessions
		api.POST("/sessions/:id/checkin", middleware.RequireRole(models.RoleStudent), sessionHandler.CheckIn)
		api.POST("/sessions/:id/checkout", middleware.RequireRole(models.RoleStudent), sessionHandler.CheckOut)
		api.GET("/sessions/mine", middleware.RequireRole(models.RoleStudent), sessionHandler.ListMine)
		api.GET("/sessions/:id/audit", sessionHandler.Audit)

		// Verification
		api.POST("/verification/:sessionId/approve", verifiers, verificationHandler.Approve)
		api.POST("/verification/:sessionId/reject", verifiers, verificationHandler.Reject)
		api.GET("/verification/pending", middleware.RequireRole(models.RoleOrgAdmin), verificationHandler.Pending)

		// Schools
		api.GET("/schools/:id", schoolHandler.Get)
		api.POST("/schools/:id/remove-hours", schoolStaff, verificationHandler.Override)
		api.POST("/schools/:id/classrooms", middleware.RequireRole(models.RoleSchoolAdmin), schoolHandler.CreateClassroom)
		api.GET("/schools/:id/classrooms", schoolStaff, schoolHandler.ListClassrooms)
		api.POST("/schools/:id/classrooms/:classroomId/teacher", middleware.RequireRole(models.RoleSchoolAdmin), schoolHandler.AssignTeacher)
		api.DELETE("/schools/:id/classrooms/:classroomId", middleware.RequireRole(models.RoleSchoolAdmin), schoolHandler.DeleteClassroom)
		api.GET("/schools/:id/roster", schoolStaff, schoolHandler.Roster)
		api.POST("/schools/:id/approved-orgs", middleware.RequireRole(models.RoleSchoolAdmin), schoolHandler.ApproveOrg)
		api.GET("/schools/:id/approved-orgs", schoolStaff, schoolHandler.ListApprovedOrgs)
		api.DELETE("/schools/:id/approved-orgs/:orgId", middleware.RequireRole(models.RoleSchoolAdmin), schoolHandler.RemoveApprovedOrg)
		api.GET("/schools/:id/audit", schoolStaff, schoolHandler.AuditLog)

		// Notifications
		api.GET("/notifications", notificationHandler.List)
		api.POST("/notifications/:id/read", notificationHandler.MarkRead)
		api.POST("/notifications/read-all", notificationHandler.MarkAllRead)
		api.GET("/notifications/unread-count", notificationHandler.UnreadCount)

		// Messages
		api.POST("/messages", messageHandler.Send)
		api.GET("/messages", messageHandler.Conversations)
		api.GET("/messages/unread-count", messageHandler.UnreadCount)
		api.GET("/messages/:userId", messageHandler.Thread)

		// Reports + email logs (school staff)
		api.POST("/reports", schoolStaff, reportHandler.Request)
		api.GET("/reports", schoolStaff, reportHandler.List)
		api.GET("/reports/:id", schoolStaff, reportHandler.Get)
		api.GET("/reports/:id/download", schoolStaff, reportHandler.Download)
		api.DELETE("/reports/:id", schoolStaff, reportHandler.Delete)
		api.GET("/email-logs", schoolStaff, emailLogHandler.List)
	}

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(hub, logger, jwtValidate))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
