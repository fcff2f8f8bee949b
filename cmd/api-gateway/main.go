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

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	_ "github.com/noah-isme/classconnect-api/api/swagger"
	"github.com/noah-isme/classconnect-api/internal/handler"
	"github.com/noah-isme/classconnect-api/internal/middleware"
	"github.com/noah-isme/classconnect-api/internal/repository"
	"github.com/noah-isme/classconnect-api/internal/service"
	"github.com/noah-isme/classconnect-api/pkg/cache"
	"github.com/noah-isme/classconnect-api/pkg/config"
	"github.com/noah-isme/classconnect-api/pkg/database"
	"github.com/noah-isme/classconnect-api/pkg/logger"
	"github.com/noah-isme/classconnect-api/pkg/storage"
)

// @title ClassConnect API
// @version 1.0.0
// @description Classroom management backend: teachers run classrooms and assign tasks, students submit files.
// @BasePath /
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

	ctx := context.Background()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(database.URL(cfg.Database)); err != nil {
			logr.Fatal("failed to run migrations", zap.Error(err))
		}
		logr.Info("database migrations applied")
	}

	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, listing cache disabled", zap.Error(err))
		} else {
			redisRepo := repository.NewCacheRepository(client, "classconnect")
			defer redisRepo.Close() //nolint:errcheck
			cacheRepo = redisRepo
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cacheRepo != nil)

	files, err := storage.NewLocalStorage(cfg.Uploads.Dir)
	if err != nil {
		logr.Fatal("failed to prepare upload directory", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Uploads.SigningSecret, cfg.Uploads.DownloadURLTTL)

	validate := validator.New()
	userRepo := repository.NewUserRepository(db)
	classroomRepo := repository.NewClassroomRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.AccessSecret,
		AccessTokenExpiry:  cfg.JWT.AccessExpiration,
		RefreshTokenSecret: cfg.JWT.RefreshSecret,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
		BcryptCost:         bcrypt.DefaultCost,
	})
	classroomSvc := service.NewClassroomService(userRepo, classroomRepo, cacheSvc, validate, logr)
	taskSvc := service.NewTaskService(taskRepo, userRepo, classroomRepo, files, signer, metrics, cacheSvc, validate, logr, service.TaskConfig{
		DownloadPath: cfg.APIPrefix + handler.DownloadRoute,
		MaxFileSize:  cfg.Uploads.MaxFileSizeBytes,
	})

	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		PerMinute: cfg.RateLimit.LoginPerMinute,
		Burst:     cfg.RateLimit.LoginBurst,
	}, logr)
	defer limiter.Stop()

	router := handler.NewRouter(handler.RouterConfig{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Docs.Enabled,
		EnableMetrics:  cfg.Metrics.Enabled,
	}, handler.Handlers{
		Auth: handler.NewAuthHandler(authSvc, metrics, handler.CookieConfig{
			Secure:     cfg.JWT.CookieSecure,
			AccessTTL:  cfg.JWT.AccessExpiration,
			RefreshTTL: cfg.JWT.RefreshExpiration,
		}),
		Student:   handler.NewStudentHandler(classroomSvc, taskSvc, cfg.Uploads.MaxFileSizeBytes),
		Teacher:   handler.NewTeacherHandler(classroomSvc),
		Classroom: handler.NewClassroomHandler(classroomSvc, taskSvc),
		File:      handler.NewFileHandler(taskSvc),
		Metrics:   handler.NewMetricsHandler(metrics, userRepo),
	}, authSvc, limiter, metrics, logr)
	router.MaxMultipartMemory = 8 << 20

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	case sig := <-shutdown:
		logr.Info("shutdown started", zap.String("signal", sig.String()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logr.Error("graceful shutdown failed", zap.Error(err))
			if err := srv.Close(); err != nil {
				logr.Error("forced close failed", zap.Error(err))
			}
		}
	}
}
