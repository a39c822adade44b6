package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/maraakiz/maraakiz-api/api/swagger"
	"github.com/maraakiz/maraakiz-api/internal/handler"
	"github.com/maraakiz/maraakiz-api/internal/middleware"
	"github.com/maraakiz/maraakiz-api/internal/models"
	"github.com/maraakiz/maraakiz-api/internal/repository"
	"github.com/maraakiz/maraakiz-api/internal/service"
	"github.com/maraakiz/maraakiz-api/pkg/cache"
	"github.com/maraakiz/maraakiz-api/pkg/config"
	"github.com/maraakiz/maraakiz-api/pkg/database"
	"github.com/maraakiz/maraakiz-api/pkg/jobs"
	"github.com/maraakiz/maraakiz-api/pkg/logger"
	corsmiddleware "github.com/maraakiz/maraakiz-api/pkg/middleware/cors"
	reqidmiddleware "github.com/maraakiz/maraakiz-api/pkg/middleware/requestid"
	"github.com/maraakiz/maraakiz-api/pkg/storage"
)

// @title Maraakiz API
// @version 1.0.0
// @description Tutoring marketplace and management platform for Arabic and Quran education
// @BasePath /api/v1
// @schemes http https

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The directory degrades to uncached reads without Redis.
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	uploads, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init upload storage", "error", err)
	}
	exports, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)

	validate := validator.New()
	metricsService := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	authRepo := repository.NewAuthRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	noteRepo := repository.NewNoteRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	resourceRepo := repository.NewResourceRepository(db)

	directoryService := service.NewDirectoryService(profileRepo, redisClient, metricsService, cfg.Directory.CacheTTL, cfg.Directory.PageSize, logr)
	authService := service.NewAuthService(userRepo, authRepo, profileRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	profileService := service.NewProfileService(profileRepo, directoryService, validate, logr)
	studentService := service.NewStudentService(studentRepo, validate, logr)
	sessionService := service.NewSessionService(sessionRepo, studentRepo, validate, logr, cfg.Agenda.FeedName)
	noteService := service.NewNoteService(noteRepo, sessionRepo, studentRepo, uploads, signer, nil, validate, logr, service.NoteConfig{
		MaxFileSizeBytes: cfg.Uploads.MaxFileSizeBytes,
		AllowedMIMEs:     cfg.Uploads.AllowedMIMEs,
	})
	messageService := service.NewMessageService(messageRepo, userRepo, uploads, signer, validate, logr)
	resourceService := service.NewResourceService(resourceRepo, studentRepo, profileRepo, uploads, signer, validate, logr, service.ResourceConfig{
		MaxFileSizeBytes: cfg.Uploads.MaxFileSizeBytes,
	})

	reminderQueue := jobs.NewQueue("payment-reminders", func(ctx context.Context, job jobs.Job) error {
		// Reminders are logged only; outbound email is out of scope.
		logr.Sugar().Infow("payment reminder", "job_id", job.ID, "type", job.Type)
		metricsService.RecordJob(job.Type, "processed")
		return nil
	}, jobs.QueueConfig{
		Workers:    cfg.Payments.ReminderWorkers,
		MaxRetries: cfg.Payments.ReminderRetries,
		Logger:     logr,
	})

	paymentService := service.NewPaymentService(paymentRepo, studentRepo, reminderQueue, exports, validate, logr)
	statsService := service.NewStatsService(studentRepo, sessionRepo, paymentRepo, messageRepo, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reminderQueue.Start(ctx)
	defer reminderQueue.Stop()

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Payments.SweepSchedule, func() {
		flipped, err := paymentService.SweepOverdue(ctx)
		if err != nil {
			logr.Sugar().Errorw("overdue sweep failed", "error", err)
			return
		}
		logr.Sugar().Infow("overdue sweep finished", "flipped", flipped)
	}); err != nil {
		logr.Sugar().Fatalw("invalid sweep schedule", "schedule", cfg.Payments.SweepSchedule, "error", err)
	}
	if _, err := scheduler.AddFunc("@every "+cfg.Exports.CleanupInterval.String(), func() {
		deleted, err := exports.CleanupOlderThan(cfg.Exports.RetentionTTL)
		if err != nil {
			logr.Sugar().Warnw("export cleanup failed", "error", err)
			return
		}
		if len(deleted) > 0 {
			logr.Sugar().Infow("export cleanup finished", "deleted", len(deleted))
		}
	}); err != nil {
		logr.Sugar().Fatalw("invalid cleanup interval", "error", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	authHandler := handler.NewAuthHandler(authService)
	profileHandler := handler.NewProfileHandler(profileService)
	directoryHandler := handler.NewDirectoryHandler(directoryService)
	studentHandler := handler.NewStudentHandler(studentService)
	sessionHandler := handler.NewSessionHandler(sessionService, cfg.Agenda.LookBehind, cfg.Agenda.LookAhead)
	noteHandler := handler.NewNoteHandler(noteService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	messageHandler := handler.NewMessageHandler(messageService)
	resourceHandler := handler.NewResourceHandler(resourceService)
	fileHandler := handler.NewFileHandler(noteService, messageService, resourceService)
	statsHandler := handler.NewStatsHandler(statsService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)

	api.GET("/directory", directoryHandler.Search)
	api.GET("/directory/:id", directoryHandler.Get)
	api.GET("/directory/:id/resources", resourceHandler.PublicList)

	authed := api.Group("")
	authed.Use(middleware.JWT(authService))

	authed.POST("/auth/logout", authHandler.Logout)
	authed.POST("/auth/change-password", authHandler.ChangePassword)
	authed.GET("/auth/me", authHandler.Me)

	authed.GET("/messages", messageHandler.Conversations)
	authed.GET("/messages/unread", messageHandler.UnreadCount)
	authed.GET("/messages/:partnerId", messageHandler.Thread)
	authed.POST("/messages", messageHandler.Send)

	authed.GET("/files/:token", fileHandler.Download)

	dashboard := authed.Group("")
	dashboard.Use(middleware.RequireRoles(models.RoleProfessor, models.RoleInstitute, models.RoleAdmin))

	dashboard.GET("/profile", profileHandler.Get)
	dashboard.PUT("/profile", profileHandler.Update)

	dashboard.GET("/students", studentHandler.List)
	dashboard.POST("/students", studentHandler.Create)
	dashboard.GET("/students/:id", studentHandler.Get)
	dashboard.PUT("/students/:id", studentHandler.Update)
	dashboard.DELETE("/students/:id", studentHandler.Delete)
	dashboard.GET("/students/:id/report", noteHandler.StudentReport)

	dashboard.GET("/sessions", sessionHandler.List)
	dashboard.POST("/sessions", sessionHandler.Create)
	dashboard.POST("/sessions/recurring", sessionHandler.CreateRecurring)
	dashboard.GET("/sessions/calendar", sessionHandler.Calendar)
	dashboard.GET("/sessions/:id", sessionHandler.Get)
	dashboard.PUT("/sessions/:id", sessionHandler.Update)
	dashboard.PATCH("/sessions/:id/status", sessionHandler.UpdateStatus)
	dashboard.DELETE("/sessions/:id", sessionHandler.Delete)

	dashboard.GET("/sessions/:id/note", noteHandler.Get)
	dashboard.PUT("/sessions/:id/note", noteHandler.Upsert)
	dashboard.POST("/sessions/:id/note/files", noteHandler.AddFile)
	dashboard.DELETE("/sessions/:id/note/files/:fileId", noteHandler.RemoveFile)

	dashboard.GET("/payments", paymentHandler.List)
	dashboard.POST("/payments", paymentHandler.Create)
	dashboard.GET("/payments/stats", paymentHandler.Stats)
	dashboard.GET("/payments/export", paymentHandler.ExportCSV)
	dashboard.GET("/payments/:id", paymentHandler.Get)
	dashboard.PUT("/payments/:id", paymentHandler.Update)
	dashboard.PATCH("/payments/:id/pay", paymentHandler.MarkPaid)
	dashboard.DELETE("/payments/:id", paymentHandler.Delete)

	dashboard.GET("/resources", resourceHandler.List)
	dashboard.POST("/resources", resourceHandler.Upload)
	dashboard.GET("/resources/folders", resourceHandler.Folders)
	dashboard.GET("/resources/student/:studentId", resourceHandler.StudentList)
	dashboard.GET("/resources/:id", resourceHandler.Get)
	dashboard.PUT("/resources/:id", resourceHandler.Update)
	dashboard.DELETE("/resources/:id", resourceHandler.Delete)

	dashboard.GET("/stats/dashboard", statsHandler.Dashboard)

	if cfg.Agenda.Enabled {
		dashboard.GET("/agenda.ics", sessionHandler.Agenda)
	}

	admin := authed.Group("/admin")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))
	admin.PATCH("/profiles/:id/approval", profileHandler.SetApproval)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
