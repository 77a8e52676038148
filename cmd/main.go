package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"equipment-guard/config"
	"equipment-guard/internal/api/rest"
	"equipment-guard/internal/api/telegram"
	"equipment-guard/internal/container"
	"equipment-guard/internal/infrastructure/classifier"
	"equipment-guard/internal/infrastructure/mqtt"
	"equipment-guard/internal/infrastructure/notify"
	"equipment-guard/internal/infrastructure/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		var loadErr *classifier.ModelLoadError
		if errors.As(err, &loadErr) {
			logger.Fatal("Failed to load model", zap.String("path", loadErr.Path), zap.Error(loadErr.Err))
		}
		logger.Fatal("Service stopped", zap.Error(err))
	}
	logger.Info("Service stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Без модели сервис не запускается.
	cls, closeModel, err := loadClassifier(cfg, logger.Named("classifier"))
	if err != nil {
		return err
	}
	defer closeModel()

	cam, startCamera := openCamera(cfg, logger.Named("camera"))

	llm, closeLLM := newAdvisor(ctx, cfg, logger.Named("advisor"))
	defer closeLLM()

	monitorOpts, err := monitorOptions(cfg)
	if err != nil {
		return err
	}

	dispatcher := notify.NewDispatcher(16, logger.Named("notify"))

	// Создаём хранилище пользователей
	userRepo := storage.NewMemoryUserRepository()

	// Собираем сервисы приложения
	appContainer := container.New(container.Deps{
		UserRepo:   userRepo,
		Camera:     cam,
		Classifier: cls,
		Publisher:  dispatcher,
		LLM:        llm,
		Monitor:    monitorOpts,
		Interval:   cfg.InferenceInterval,
		Logger:     logger,
	})

	healthChecks := make(map[string]func() bool)
	if cfg.MQTTBroker != "" {
		client, err := mqtt.NewClient(mqtt.ClientConfig{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientID,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
		}, logger.Named("mqtt"))
		if err != nil {
			logger.Warn("MQTT disabled", zap.Error(err))
		} else {
			defer client.Close()
			publisher := mqtt.NewPublisher(client.Native(), mqtt.PublisherConfig{
				Topic:       cfg.MQTTTopic,
				EquipmentID: cfg.EquipmentID,
			}, logger.Named("mqtt"))
			dispatcher.Register("mqtt", publisher)
			healthChecks["mqtt"] = client.IsConnected
			logger.Info("MQTT notifications enabled", zap.String("topic", publisher.Topic()))
		}
	}

	var bot *telegram.Bot
	if cfg.TelegramToken != "" {
		bot, err = telegram.NewBot(cfg.TelegramToken, appContainer, logger.Named("telegram"))
		if err != nil {
			logger.Warn("Telegram bot disabled", zap.Error(err))
			bot = nil
		} else {
			dispatcher.Register("telegram", bot)
		}
	}

	server := rest.NewServer(rest.Config{Addr: cfg.HTTPAddr},
		appContainer.InspectionService, appContainer.AdviceService, cam, logger.Named("http"))
	for name, up := range healthChecks {
		server.AddHealthCheck(name, up)
	}

	g, gctx := errgroup.WithContext(ctx)
	if startCamera != nil {
		g.Go(func() error {
			startCamera(gctx)
			return nil
		})
	}
	g.Go(func() error {
		dispatcher.Start(gctx)
		return nil
	})
	g.Go(func() error {
		return appContainer.InspectionService.Run(gctx)
	})
	g.Go(func() error {
		return server.Run(gctx)
	})
	if bot != nil {
		g.Go(func() error {
			return bot.Run(gctx)
		})
	}

	logger.Info("Service is running", zap.String("http_addr", cfg.HTTPAddr))
	return g.Wait()
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	zcfg := zap.NewProductionConfig()
	if cfg.LogDevelopment {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}
