package main

import (
	"context"
	"strings"
	"time"

	api "snapconnect-backend/cmd/api"
	accountdomain "snapconnect-backend/internal/account/domain"
	accountRepo "snapconnect-backend/internal/account/repository"
	"snapconnect-backend/internal/dispatch"
	memorydomain "snapconnect-backend/internal/memory/domain"
	memoryRepo "snapconnect-backend/internal/memory/repository"
	memoryUsecase "snapconnect-backend/internal/memory/usecase"
	messagedomain "snapconnect-backend/internal/message/domain"
	messageRepo "snapconnect-backend/internal/message/repository"
	messageUsecase "snapconnect-backend/internal/message/usecase"
	"snapconnect-backend/internal/notification"
	outreachdomain "snapconnect-backend/internal/outreach/domain"
	outreachRepo "snapconnect-backend/internal/outreach/repository"
	"snapconnect-backend/internal/outreach/scheduler"
	"snapconnect-backend/internal/respond"
	"snapconnect-backend/pkg/ai"
	"snapconnect-backend/pkg/config"
	"snapconnect-backend/pkg/database"
	"snapconnect-backend/pkg/fcm"
	"snapconnect-backend/pkg/sse"

	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(
		&accountdomain.Account{},
		&accountdomain.Persona{},
		&accountdomain.Friendship{},
		&accountdomain.FCMToken{},
		&messagedomain.Message{},
		&memorydomain.ConversationMemory{},
		&memorydomain.ConversationSnapshot{},
		&outreachdomain.ProactiveOutreachRecord{},
	); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	// Initialize repositories (dependency injection)
	accountRepository := accountRepo.NewAccountRepository(db)
	socialGraph := accountRepo.NewSocialGraph(db)
	fcmTokenRepository := accountRepo.NewFCMTokenRepository(db)
	messageRepository := messageRepo.NewMessageRepository(db)
	memoryRepository := memoryRepo.NewMemoryRepository(db)
	outreachRepository := outreachRepo.NewOutreachRepository(db)

	// Initialize SSE Manager
	sseManager := sse.NewManager()
	go sseManager.Run()

	// Notification bus: every persisted message flows through here to the
	// dispatcher and the realtime sinks
	bus := notification.NewBus(1024, logger)
	bus.AddSink(notification.NewSSESink(sseManager))

	if cfg.FirebaseCredentials != "" {
		fcmClient, err := fcm.NewClient(cfg.FirebaseCredentials, logger)
		if err != nil {
			logger.Warn("FCM client init failed, push notifications disabled", zap.Error(err))
		} else {
			bus.AddSink(notification.NewFCMSink(fcmClient, fcmTokenRepository, logger))
		}
	} else {
		logger.Info("no Firebase credentials configured, FCM disabled")
	}

	if cfg.GoogleProjectID != "" {
		// Accept either a short topic name or a full resource name
		topicName := cfg.GooglePubSubTopic
		if parts := strings.Split(topicName, "/"); len(parts) > 1 {
			topicName = parts[len(parts)-1]
		}
		if topicName == "" {
			topicName = "conversation-events"
		}
		bridge, err := notification.NewPubSubBridge(context.Background(), cfg.GoogleProjectID, topicName, cfg.GoogleCredentials, logger)
		if err != nil {
			logger.Warn("Pub/Sub bridge init failed, topic publishing disabled", zap.Error(err))
		} else {
			bus.AddSink(bridge)
		}
	} else {
		logger.Info("GoogleProjectID not configured, Pub/Sub bridge disabled")
	}

	// Initialize use cases (dependency injection)
	messageUc := messageUsecase.NewMessageUsecase(
		messageRepository, accountRepository, socialGraph, bus,
		cfg.EphemeralTTL, cfg.MessageRetention, logger)
	memoryUc := memoryUsecase.NewMemoryUsecase(memoryRepository, logger)

	// Text generation service and response engine
	aiService, err := ai.NewService(ai.Config{
		Provider:      ai.ProviderType(cfg.AIProvider),
		GeminiAPIKey:  cfg.GeminiAPIKey,
		OllamaBaseURL: cfg.OllamaBaseURL,
		OllamaModel:   cfg.OllamaModel,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIModel:   cfg.OpenAIModel,
	}, logger)
	if err != nil {
		logger.Fatal("failed to initialize text generation service", zap.Error(err))
	}
	engine := respond.NewEngine(aiService, cfg.HistoryLimit, cfg.GenerationTimeout,
		cfg.ReplyDelayMin, cfg.ReplyDelayMax, logger)

	// Reactive dispatcher consumes the bus stream
	dispatcher := dispatch.NewDispatcher(accountRepository, messageUc, memoryUc, engine, cfg.HistoryLimit, logger)
	dispatcher.Start(context.Background(), bus.Stream())

	// Proactive outreach scheduler
	outreachScheduler := scheduler.NewOutreachScheduler(
		accountRepository, memoryUc, messageUc, outreachRepository, engine,
		scheduler.NoopActivitySource(),
		scheduler.Config{
			Interval:         cfg.SchedulerInterval,
			Window:           cfg.OutreachWindow,
			DailyCap:         cfg.DailyOutreachCap,
			OnboardingWindow: cfg.OnboardingWindow,
			Workers:          cfg.OutreachWorkers,
		}, logger)
	outreachScheduler.Start()

	// Retention sweep for long-expired ephemeral messages
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for range ticker.C {
			deleted, err := messageUc.SweepExpired()
			if err != nil {
				logger.Error("retention sweep failed", zap.Error(err))
			} else if deleted > 0 {
				logger.Info("retention sweep removed expired messages", zap.Int64("deleted", deleted))
			}
		}
	}()

	// Initialize HTTP handler
	handler := api.NewHandler(accountRepository, fcmTokenRepository, messageUc, sseManager, cfg)

	logger.Info("server starting", zap.String("port", cfg.Port))
	if err := handler.Start(":" + cfg.Port); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
}
