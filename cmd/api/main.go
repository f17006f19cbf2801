package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/apt-crowd/discourse/internal/config"
	"github.com/apt-crowd/discourse/internal/database"
	"github.com/apt-crowd/discourse/internal/handler"
	"github.com/apt-crowd/discourse/internal/middleware"
	"github.com/apt-crowd/discourse/internal/models"
	"github.com/apt-crowd/discourse/internal/repository"
	"github.com/apt-crowd/discourse/internal/router"
	"github.com/apt-crowd/discourse/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.Channel{}, &models.Membership{}, &models.Message{}, &models.Thread{}, &models.Notification{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NatsURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NatsURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	membershipRepo := repository.NewMembershipRepository(db)
	channelRepo := repository.NewChannelRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	threadRepo := repository.NewThreadRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	trackingService := service.NewTrackingService(redisClient, cfg.EventChannelBase, natsConn, logger)
	readStateService := service.NewReadStateService(membershipRepo, channelRepo, messageRepo, trackingService, validate, logger)
	threadService := service.NewThreadService(threadRepo, logger)
	notificationService := service.NewNotificationService(notificationRepo, logger)

	readStateHandler := handler.NewReadStateHandler(readStateService, logger)
	threadHandler := handler.NewThreadHandler(threadService, logger)
	notificationHandler := handler.NewNotificationHandler(notificationService, logger)
	trackingHandler := handler.NewTrackingHandler(trackingService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		ReadStateHandler:    readStateHandler,
		ThreadHandler:       threadHandler,
		NotificationHandler: notificationHandler,
		TrackingHandler:     trackingHandler,
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
	})

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	trackingService.Start(runCtx)
	threadService.StartReconciler(runCtx, cfg.ReconcileInterval)

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, cancel)
}

func waitForShutdown(app *fiber.App, cancel context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()
	cancel()

	ctx, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer timeoutCancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
