package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/edaccred/horus-backend/internal/application"
	appassistant "github.com/edaccred/horus-backend/internal/application/assistant"
	appevidence "github.com/edaccred/horus-backend/internal/application/evidence"
	appmapping "github.com/edaccred/horus-backend/internal/application/mapping"
	appplatform "github.com/edaccred/horus-backend/internal/application/platform"
	appreports "github.com/edaccred/horus-backend/internal/application/reports"
	"github.com/edaccred/horus-backend/internal/config"
	aiopenai "github.com/edaccred/horus-backend/internal/infra/ai/openai"
	"github.com/edaccred/horus-backend/internal/infra/db/postgres"
	"github.com/edaccred/horus-backend/internal/infra/httpserver"
	"github.com/edaccred/horus-backend/internal/infra/storage"
	"github.com/edaccred/horus-backend/internal/middleware"
	"github.com/edaccred/horus-backend/internal/retry"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal("load config", zap.String("path", configPath), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN())
	if err != nil {
		log.Fatal("connect postgres", zap.Error(err))
	}
	defer db.Close()

	files, err := storage.New(ctx,
		cfg.Storage.Endpoint, cfg.Storage.Region, cfg.Storage.BucketName,
		cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.UseSSL)
	if err != nil {
		log.Fatal("init object storage", zap.Error(err))
	}

	aiClient := aiopenai.NewClient(cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.Model)
	clock := application.SystemClock{}

	evidenceRepo := postgres.NewEvidenceRepository(db)
	linkRepo := postgres.NewEvidenceLinkRepository(db)
	standardsRepo := postgres.NewStandardsRepository(db)
	mappingRepo := postgres.NewMappingRepository(db)
	gapRepo := postgres.NewGapRepository(db)
	metricRepo := postgres.NewMetricRepository(db)
	reportRepo := postgres.NewReportRepository(db)
	notifRepo := postgres.NewNotificationRepository(db)
	activityRepo := postgres.NewActivityRepository(db)

	platformSvc := &appplatform.Service{
		Gaps:          gapRepo,
		Metrics:       metricRepo,
		Notifications: notifRepo,
		Clock:         clock,
		Log:           log,
	}
	evidenceSvc := &appevidence.Service{
		Repo:          evidenceRepo,
		Links:         linkRepo,
		Files:         files,
		Standards:     standardsRepo,
		AI:            aiClient,
		Platform:      platformSvc,
		Notifications: notifRepo,
		Activities:    activityRepo,
		Clock:         clock,
		Log:           log,
	}
	mappingSvc := &appmapping.Service{
		Standards: standardsRepo,
		Mappings:  mappingRepo,
		Evidence:  evidenceRepo,
		Reports:   reportRepo,
		AI:        aiClient,
		Clock:     clock,
		Retry:     retry.AIConfig(),
		Log:       log,
	}
	reportsSvc := &appreports.Service{
		Repo:          reportRepo,
		Standards:     standardsRepo,
		Evidence:      evidenceRepo,
		AI:            aiClient,
		Notifications: notifRepo,
		Clock:         clock,
		Log:           log,
	}
	assistantSvc := &appassistant.Service{
		AI:         aiClient,
		Platform:   platformSvc,
		Activities: activityRepo,
		Log:        log,
	}

	api := httpserver.NewRouter(httpserver.Deps{
		Evidence:      evidenceSvc,
		Mapping:       mappingSvc,
		Platform:      platformSvc,
		Reports:       reportsSvc,
		Assistant:     assistantSvc,
		Standards:     standardsRepo,
		Notifications: notifRepo,
		Activities:    activityRepo,
		MaxUploadSize: cfg.Upload.MaxSizeBytes,
		Log:           log,
	})

	root := chi.NewRouter()
	root.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-User-ID"},
		MaxAge:         300,
	}))
	root.Use(middleware.MetricsMiddleware)
	root.Use(middleware.Logging(log))

	root.Get("/health", middleware.HealthHandler(map[string]middleware.HealthChecker{
		"database": &middleware.DatabaseHealthChecker{DB: db},
	}))
	root.Get("/health/live", middleware.LivenessHandler)
	root.Get("/metrics", middleware.MetricsHandler)

	root.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.Auth.Keys))
		r.Use(middleware.RateLimitMiddleware(60, 1))
		r.Mount("/", api)
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown", zap.Error(err))
	}
}
