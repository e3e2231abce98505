package main

import (
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	internalhandler "github.com/brightpath/studyplan-core/internal/handler"
	internalmiddleware "github.com/brightpath/studyplan-core/internal/middleware"
	"github.com/brightpath/studyplan-core/internal/repository"
	"github.com/brightpath/studyplan-core/internal/service"
	"github.com/brightpath/studyplan-core/pkg/cache"
	"github.com/brightpath/studyplan-core/pkg/config"
	"github.com/brightpath/studyplan-core/pkg/database"
	"github.com/brightpath/studyplan-core/pkg/llm"
	"github.com/brightpath/studyplan-core/pkg/logger"
	corsmiddleware "github.com/brightpath/studyplan-core/pkg/middleware/cors"
	reqidmiddleware "github.com/brightpath/studyplan-core/pkg/middleware/requestid"
	"github.com/brightpath/studyplan-core/pkg/storage"
)

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

	metricsSvc := service.NewMetricsService()
	metricsHandler := internalhandler.NewMetricsHandler(metricsSvc)

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to initialise database", "error", err)
	}
	defer db.Close()

	fileStore, err := storage.NewLocalStorage(cfg.Storage.Dir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init source file storage", "error", err)
	}

	healthSvc := service.NewHealthService(db, metricsSvc, fileStore)
	healthHandler := internalhandler.NewHealthHandler(healthSvc)

	var cacheSvc *service.CacheService
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, continuing without accelerant cache", "error", err)
		} else {
			defer redisClient.Close() //nolint:errcheck
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, 5*time.Minute, logr, true)
		}
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/healthz", healthHandler.Check)
	r.GET("/metrics", metricsHandler.Prometheus)

	courseRepo := repository.NewCourseRepository(db)
	fileRepo := repository.NewFileRepository(db)
	runRepo := repository.NewExtractionRunRepository(db)
	topicRepo := repository.NewTopicRepository(db)
	prefsRepo := repository.NewPreferencesRepository(db)
	planRepo := repository.NewPlanRepository(db)

	model := llm.NewOpenAIModel(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.RequestTimeout, cfg.LLM.MaxOutputTokens, logr)

	graphSvc := service.NewTopicGraphService(uuid.NewString)
	extractionSvc := service.NewExtractionOrchestratorService(
		courseRepo,
		fileRepo,
		fileRepo,
		runRepo,
		topicRepo,
		graphSvc,
		model,
		service.ExtractionOrchestratorConfig{
			DailyQuotaPerUser:   cfg.Extraction.DailyQuotaPerUser,
			StaleLockThreshold:  cfg.Extraction.StaleLockThreshold,
			SecondPassBatchSize: cfg.Extraction.SecondPassBatchSize,
		},
	)
	extractionSvc.SetCache(cacheSvc)
	extractionHandler := internalhandler.NewExtractionHandler(extractionSvc)

	calendarSvc := service.NewCalendarService()
	feasibilitySvc := service.NewFeasibilityService()
	schedulerSvc := service.NewSchedulerService(calendarSvc, model, service.SchedulerConfig{
		MinDailyHoursPerCourse: cfg.Scheduler.MinDailyHours,
		MaxDailyShareDefault:   0.70,
		MaxDailyShareDominant:  0.80,
		DominantShareThreshold: 0.50,
	})
	validatorSvc := service.NewScheduleValidatorService(calendarSvc)
	planSvc := service.NewPlanGenerationService(
		courseRepo,
		topicRepo,
		prefsRepo,
		planRepo,
		planRepo,
		calendarSvc,
		feasibilitySvc,
		schedulerSvc,
		validatorSvc,
		service.PlanGenerationConfig{HorizonCapDays: 90},
	)
	planHandler := internalhandler.NewPlanHandler(planSvc)

	authValidator := internalmiddleware.NewJWTSecretValidator(cfg.JWT.Secret)

	api := r.Group(cfg.APIPrefix)
	secured := api.Group("")
	secured.Use(internalmiddleware.Auth(authValidator))
	secured.Use(internalmiddleware.WithResponseMeta())

	secured.POST("/courses/:courseId/extract", extractionHandler.Extract)
	secured.POST("/plan/generate", planHandler.Generate)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
