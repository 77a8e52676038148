package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"equipment-guard/config"
	app "equipment-guard/internal/application"
	"equipment-guard/internal/domain/port"
	"equipment-guard/internal/infrastructure/advisor"
	"equipment-guard/internal/infrastructure/camera"
	"equipment-guard/internal/infrastructure/classifier"
	"equipment-guard/internal/infrastructure/onnx"
)

// loadClassifier читает метаданные, метки и модель.
func loadClassifier(cfg *config.Config, logger *zap.Logger) (*classifier.Classifier, func(), error) {
	meta, err := classifier.LoadMetadata(cfg.ModelMetadataPath)
	if err != nil {
		return nil, nil, err
	}

	labels, err := classifier.LoadLabels(cfg.LabelsPath, meta.Classes)
	if err != nil {
		return nil, nil, err
	}

	policy, err := classifier.ParseQuantizationPolicy(cfg.QuantizationPolicy)
	if err != nil {
		return nil, nil, err
	}

	engine, err := onnx.NewEngine(cfg.ONNXRuntimeLib, cfg.ModelPath, meta)
	if err != nil {
		return nil, nil, err
	}

	cls, err := classifier.New(engine, meta, labels, classifier.Options{
		Thresholds: classifier.Thresholds{
			StrongDefect:      cfg.StrongDefectThreshold,
			ModerateDefect:    cfg.ModerateDefectThreshold,
			WeakDefect:        cfg.WeakDefectThreshold,
			WeakNormalCeiling: cfg.WeakNormalCeiling,
		},
		Policy: policy,
		Logger: logger,
	})
	if err != nil {
		engine.Close()
		return nil, nil, err
	}
	return cls, engine.Close, nil
}

// openCamera открывает камеру; при неудаче возвращает заглушку.
// Вторым значением возвращается фоновый цикл чтения или nil.
func openCamera(cfg *config.Config, logger *zap.Logger) (port.Camera, func(context.Context)) {
	cam, err := camera.Open(camera.Config{
		Source: cfg.CameraSource,
		Width:  cfg.CameraWidth,
		Height: cfg.CameraHeight,
		FPS:    cfg.CameraFPS,
	}, logger)
	if err != nil {
		logger.Warn("Camera unavailable, using placeholder", zap.Error(err))
		return camera.NewPlaceholderCamera(cfg.CameraWidth, cfg.CameraHeight), nil
	}
	return cam, cam.Start
}

// newAdvisor создаёт клиент Gemini, если задан ключ.
func newAdvisor(ctx context.Context, cfg *config.Config, logger *zap.Logger) (port.LanguageModel, func()) {
	if cfg.GeminiAPIKey == "" {
		logger.Warn("GEMINI_API_KEY is not set, advice is disabled")
		return nil, func() {}
	}

	client, err := advisor.NewClient(ctx, advisor.Config{
		APIKey:     cfg.GeminiAPIKey,
		ModelName:  cfg.GeminiModel,
		MaxRetries: cfg.GeminiMaxRetries,
	}, logger)
	if err != nil {
		logger.Warn("Advice is disabled", zap.Error(err))
		return nil, func() {}
	}
	return client, func() {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close Gemini client", zap.Error(err))
		}
	}
}

func monitorOptions(cfg *config.Config) (app.MonitorOptions, error) {
	policy, err := app.ParseCapturePolicy(cfg.CapturePolicy)
	if err != nil {
		return app.MonitorOptions{}, fmt.Errorf("CAPTURE_POLICY: %w", err)
	}

	opts := app.DefaultMonitorOptions()
	opts.Hold = cfg.HysteresisHold
	opts.Policy = policy
	opts.Cooldown = cfg.CaptureCooldown
	return opts, nil
}
