package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/code-withabhi/safety-compass/internal/config"
	"github.com/code-withabhi/safety-compass/internal/events"
	v1 "github.com/code-withabhi/safety-compass/internal/handler/http/v1"
	"github.com/code-withabhi/safety-compass/internal/ingest"
	"github.com/code-withabhi/safety-compass/internal/models"
	"github.com/code-withabhi/safety-compass/internal/motion"
	"github.com/code-withabhi/safety-compass/internal/notify"
	"github.com/code-withabhi/safety-compass/internal/repository"
	"github.com/code-withabhi/safety-compass/internal/risk"
	"github.com/code-withabhi/safety-compass/internal/service"
	"github.com/code-withabhi/safety-compass/pkg/logger"
	"github.com/code-withabhi/safety-compass/pkg/postgres"
	redisclient "github.com/code-withabhi/safety-compass/pkg/redis"
	"github.com/sirupsen/logrus"

	_ "github.com/code-withabhi/safety-compass/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title Safety Compass API
// @version 1.0
// @description Accident detection and emergency confirmation API server.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func runMigrations(cfg *config.Config, log *logrus.Logger) error {
	log.Info("Running database migrations...")

	migrationURL := cfg.DatabaseURL
	if !strings.HasPrefix(migrationURL, "pgx5://") {
		migrationURL = strings.Replace(migrationURL, "postgres://", "pgx5://", 1)
	}

	m, err := migrate.New(
		"file://migrations",
		migrationURL,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("Database migrations applied successfully")
	return nil
}

func main() {
	// Загрузка конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	log := logger.New(cfg.LogLevel)

	// Контекст для graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Запуск миграций
	if err := runMigrations(cfg, log); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Подключение к PostgreSQL
	dbpool, err := postgres.NewPostgresDB(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer dbpool.Close()
	log.Info("Successfully connected to PostgreSQL")

	// Инициализация Redis клиента
	redisClient, err := redisclient.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Info("Successfully connected to Redis")

	// Инициализация издателя событий и воркера вебхуков
	publisher := events.NewRedisPublisher(redisClient)
	webhookWorker := events.NewWebhookWorker(redisClient, log, cfg)
	webhookWorker.Start(ctx)

	// Инициализация репозиториев
	incidentRepo := repository.NewIncidentRepository(dbpool)
	contactRepo := repository.NewContactRepository(dbpool)
	positionRepo := repository.NewPositionRepository(redisClient, cfg.PositionTTL)
	submitGuard := repository.NewSubmitGuard(redisClient)

	// Классификатор риска: внешняя модель + кеш в Redis + правило фолбэка
	riskStore := risk.NewRedisStore(redisClient)
	remoteClassifier := risk.NewHTTPRemoteClient(cfg.ClassifierURL, cfg.ClassifierAPIKey, cfg.ClassifierTimeout)
	classifier := risk.NewClassifier(riskStore, remoteClassifier, cfg.RiskCacheTTL, log)

	// Каналы уведомлений
	smsChannel := notify.NewSMSChannel(cfg, log)
	emailChannel := notify.NewEmailChannel(cfg, log)
	dispatcher := notify.NewDispatcher(smsChannel, emailChannel, log)

	// Инициализация сервисов
	submitter := service.NewSubmitter(incidentRepo, contactRepo, classifier, dispatcher, publisher, submitGuard, cfg.SubmitCooldown, log)
	sessions := service.NewSessionManager(submitter, positionRepo, contactRepo, cfg.CountdownDuration, cfg.SessionPollInterval, log)
	incidents := service.NewIncidentService(incidentRepo, publisher, log)
	contacts := service.NewContactService(contactRepo, log)
	positions := service.NewPositionService(positionRepo, log)

	// Детекторы движения: обнаруженное событие открывает сессию подтверждения
	motionRegistry := motion.NewRegistry(motion.Config{
		DropThreshold:  cfg.DropThreshold,
		ShakeThreshold: cfg.ShakeThreshold,
		Debounce:       cfg.MotionDebounce,
	}, func(userID string, kind models.MotionEventKind) {
		go func() {
			openCtx, openCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer openCancel()
			if _, err := sessions.Open(openCtx, userID, nil, string(kind)); err != nil {
				log.WithError(err).WithFields(logrus.Fields{
					"user_id": userID,
					"kind":    kind,
				}).Warn("Motion event could not open confirmation session")
			}
		}()
	})

	// Необязательный MQTT-приём данных устройств
	if cfg.MQTTBroker != "" {
		ingestor := ingest.NewMQTTIngestor(cfg, motionRegistry, positions, log)
		if err := ingestor.Start(ctx); err != nil {
			log.WithError(err).Warn("MQTT ingestor failed to start, continuing without it")
		}
	}

	// Инициализация хэндлеров
	handler := v1.NewHandler(sessions, incidents, contacts, positions, motionRegistry, redisClient, log, cfg)

	// Настройка Gin роутера
	router := gin.Default()
	router.Use(cors.Default())
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	// Метрики Prometheus
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Добавление маршрута для Swagger UI
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Запуск HTTP-сервера
	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)

	srv := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	// Запуск сервера в горутине
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Error starting HTTP server: %v", err)
		}
	}()
	log.Infof("HTTP server started on port %s", cfg.HTTPPort)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Received shutdown signal, shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server gracefully stopped")
}
