package notify

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"equipment-guard/internal/domain/entity"
	"equipment-guard/internal/domain/port"
)

// ErrQueueFull — событие отброшено, очередь переполнена.
var ErrQueueFull = errors.New("notification queue is full")

// Dispatcher раздаёт переходы состояния подписчикам (MQTT, Telegram).
// Publish не блокирует цикл инспекции: доставка идёт из Start.
type Dispatcher struct {
	queue  chan entity.StateChange
	logger *zap.Logger

	mu    sync.RWMutex
	sinks []namedSink
}

type namedSink struct {
	name string
	sink port.EventPublisher
}

// NewDispatcher создаёт диспетчер с очередью заданной ёмкости.
func NewDispatcher(capacity int, logger *zap.Logger) *Dispatcher {
	if capacity <= 0 {
		capacity = 16
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		queue:  make(chan entity.StateChange, capacity),
		logger: logger,
	}
}

// Register добавляет получателя событий.
func (d *Dispatcher) Register(name string, sink port.EventPublisher) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sinks = append(d.sinks, namedSink{name: name, sink: sink})
}

// Publish ставит событие в очередь.
func (d *Dispatcher) Publish(_ context.Context, change entity.StateChange) error {
	select {
	case d.queue <- change:
		return nil
	default:
		d.logger.Warn("State change dropped",
			zap.String("label", change.Current.Label),
			zap.Stringer("episode", change.EpisodeID))
		return ErrQueueFull
	}
}

// Start доставляет события до отмены контекста.
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("Notification dispatcher started")

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Notification dispatcher stopped")
			return
		case change := <-d.queue:
			d.deliver(ctx, change)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, change entity.StateChange) {
	d.mu.RLock()
	sinks := append([]namedSink(nil), d.sinks...)
	d.mu.RUnlock()

	for _, s := range sinks {
		if err := s.sink.Publish(ctx, change); err != nil {
			d.logger.Warn("Failed to deliver state change",
				zap.String("sink", s.name),
				zap.Error(err))
		}
	}
}

var _ port.EventPublisher = (*Dispatcher)(nil)
