package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"equipment-guard/internal/domain/entity"
	"equipment-guard/internal/domain/port"
)

// InspectionService запускает цикл инспекции: кадр -> классификатор -> автомат.
type InspectionService struct {
	camera     port.Camera
	classifier port.Classifier
	monitor    *FaultMonitor
	publisher  port.EventPublisher
	logger     *zap.Logger
	interval   time.Duration
}

// NewInspectionService создаёт сервис цикла инспекции. publisher может быть nil.
func NewInspectionService(camera port.Camera, classifier port.Classifier, monitor *FaultMonitor, publisher port.EventPublisher, logger *zap.Logger, interval time.Duration) *InspectionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return &InspectionService{
		camera:     camera,
		classifier: classifier,
		monitor:    monitor,
		publisher:  publisher,
		logger:     logger,
		interval:   interval,
	}
}

// Run выполняет тики с фиксированным периодом до отмены контекста.
// Ошибки тика логируются, тик пропускается.
func (s *InspectionService) Run(ctx context.Context) error {
	s.logger.Info("Inspection loop started", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Inspection loop stopped")
			return nil
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil {
				s.logger.Warn("Inspection tick skipped", zap.Error(err))
			}
		}
	}
}

// Tick выполняет один цикл инспекции.
func (s *InspectionService) Tick(ctx context.Context) error {
	frame := s.camera.Read()
	if frame == nil {
		return ErrNoFrame
	}

	pred, err := s.classifier.Predict(frame)
	if err != nil {
		return fmt.Errorf("predict: %w", err)
	}

	change, err := s.monitor.Observe(pred, frame)
	if err != nil {
		s.logger.Warn("Evidence capture failed", zap.Error(err))
	}
	if change == nil {
		return nil
	}

	s.logger.Info("State changed",
		zap.String("from", change.Previous.Label),
		zap.String("to", change.Current.Label),
		zap.Float64("confidence", change.Current.Confidence),
		zap.Stringer("episode", change.EpisodeID))

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, *change); err != nil {
			s.logger.Warn("Failed to publish state change", zap.Error(err))
		}
	}
	return nil
}

// Snapshot возвращает текущее состояние.
func (s *InspectionService) Snapshot() entity.Snapshot {
	return s.monitor.Snapshot()
}

// EvidenceFrameOrLatest возвращает кадр-доказательство, а если неисправностей
// ещё не было — свежий кадр с камеры.
func (s *InspectionService) EvidenceFrameOrLatest() ([]byte, error) {
	if ev := s.monitor.Evidence(); ev != nil && len(ev.Image) > 0 {
		return ev.Image, nil
	}

	img, err := EncodeJPEG(s.camera.Read())
	if err != nil {
		if errors.Is(err, ErrNoFrame) {
			return nil, err
		}
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return img, nil
}
