package port

import (
	"context"

	"equipment-guard/internal/domain/entity"
)

// EventPublisher получает переходы между нормой и неисправностью
type EventPublisher interface {
	Publish(ctx context.Context, change entity.StateChange) error
}
