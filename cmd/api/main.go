package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/school-portal-api/api/swagger"
	"github.com/noah-isme/school-portal-api/internal/handler"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/rbac"
	"github.com/noah-isme/school-portal-api/internal/realtime"
	"github.com/noah-isme/school-portal-api/internal/repository"
	"github.com/noah-isme/school-portal-api/internal/router"
	"github.com/noah-isme/school-portal-api/internal/service"
	"github.com/noah-isme/school-portal-api/pkg/cache"
	"github.com/noah-isme/school-portal-api/pkg/config"
	"github.com/noah-isme/school-portal-api/pkg/database"
	"github.com/noah-isme/school-portal-api/pkg/jobs"
	"github.com/noah-isme/school-portal-api/pkg/logger"
)

// @title School Portal API
// @version 1.0.0
// @description Staff and student portal: role based access control, assignments, submissions and grading.
// @BasePath /api
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	if err := run(cfg, logr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database, logr)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	mode, err := rbac.ParseMode(cfg.RBAC.PermissionSource)
	if err != nil {
		return err
	}
	authorizer := rbac.NewAuthorizer(rbac.DefaultTable(), mode)
	validate := validator.New()
	metrics := service.NewMetricsService()

	staffRepo := repository.NewStaffRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	classRepo := repository.NewClassRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	ledgerRepo := repository.NewGradeLedgerRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	tx := database.NewTransactor(db)

	hub := realtime.NewHub(cfg.CORS.AllowedOrigins, metrics, logr)
	defer hub.Close()

	queue := jobs.NewQueue("notifications", jobs.QueueConfig{Workers: cfg.Notifications.Workers, Logger: logr})
	publisher, bridge := notificationPublisher(cfg, redisClient, hub, logr)
	notifications := service.NewNotificationService(queue, publisher, metrics, logr, cfg.Notifications.Enabled)
	queue.Start(ctx)
	defer queue.Stop()
	if bridge != nil {
		go func() {
			if err := bridge.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logr.Error("notification bridge stopped", zap.Error(err))
			}
		}()
	}

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Grades.CacheTTL, logr, cfg.Grades.CacheEnabled && redisClient != nil)

	authSvc := service.NewAuthService(staffRepo, studentRepo, auditRepo, authorizer, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiry:     cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
		BcryptCost: cfg.Security.BcryptCost,
	})
	permissionSvc := service.NewPermissionService(staffRepo, auditRepo, authorizer, validate, logr)
	assignmentSvc := service.NewAssignmentService(assignmentRepo, submissionRepo, authorizer, notifications, validate, logr)
	submissionSvc := service.NewSubmissionService(submissionRepo, assignmentRepo, notifications, validate, logr)
	gradingSvc := service.NewGradingService(submissionRepo, assignmentRepo, ledgerRepo, tx, service.GradingDeps{
		Audit:    auditRepo,
		Cache:    cacheSvc,
		Notifier: notifications,
		Metrics:  metrics,
	}, validate, logr)
	gradeSvc := service.NewGradeService(ledgerRepo, studentRepo, authorizer, cacheSvc, cfg.Grades.CacheTTL, logr)
	studentSvc := service.NewStudentService(studentRepo, classRepo, tx, auditRepo, authorizer, validate, logr)
	classSvc := service.NewClassService(classRepo, authorizer, validate, logr)

	var limiter *service.RateLimitService
	if cfg.RateLimit.Enabled {
		limiter = service.NewRateLimitService(rateLimitCounter(ctx, redisClient), cfg.RateLimit.Window, cfg.RateLimit.Max, logr)
	}

	checks := map[string]handler.ReadinessCheck{"postgres": db.PingContext}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	engine := router.New(router.Deps{
		Config:        cfg,
		Logger:        logr,
		Authenticator: authSvc,
		Authorizer:    authorizer,
		Metrics:       metrics,
		RateLimiter:   limiter,
		Audit:         auditRepo,
	}, router.Handlers{
		Auth:       handler.NewAuthHandler(authSvc),
		Permission: handler.NewPermissionHandler(permissionSvc),
		Assignment: handler.NewAssignmentHandler(assignmentSvc),
		Submission: handler.NewSubmissionHandler(submissionSvc, gradingSvc),
		Grade:      handler.NewGradeHandler(gradeSvc),
		Student:    handler.NewStudentHandler(studentSvc),
		Class:      handler.NewClassHandler(classSvc),
		Websocket:  handler.NewWebsocketHandler(authSvc, hub, logr),
		Metrics:    handler.NewMetricsHandler(metrics, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "permission_source", mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type publisher interface {
	Publish(ctx context.Context, n models.Notification) error
}

type runner interface {
	Run(ctx context.Context) error
}

// notificationPublisher fans out through redis when it is available so every
// instance's hub receives the event; otherwise delivery stays local.
func notificationPublisher(cfg *config.Config, client *redis.Client, hub *realtime.Hub, logr *zap.Logger) (publisher, runner) {
	if client == nil {
		return realtime.NewLocalPublisher(hub), nil
	}
	bridge := realtime.NewRedisBridge(client, cfg.Notifications.Channel, hub, logr)
	return bridge, bridge
}

func rateLimitCounter(ctx context.Context, client *redis.Client) service.WindowCounter {
	if client != nil {
		return repository.NewRateLimitRepository(client)
	}
	counter := service.NewMemoryCounter(nil)
	go counter.RunSweeper(ctx, time.Minute)
	return counter
}
