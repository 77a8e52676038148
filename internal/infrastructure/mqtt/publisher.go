package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"equipment-guard/internal/domain/entity"
	"equipment-guard/internal/domain/port"
)

const publishTimeout = 5 * time.Second

// tokenPublisher — часть mqtt.Client, нужная для публикации.
type tokenPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// PublisherConfig параметры публикации.
type PublisherConfig struct {
	Topic       string // например "equipment/{equipment_id}/state"
	EquipmentID string
}

// Publisher публикует переходы состояния в брокер.
type Publisher struct {
	client      tokenPublisher
	topic       string
	equipmentID string
	logger      *zap.Logger
}

// StateMessage — тело сообщения о смене состояния.
type StateMessage struct {
	EquipmentID string         `json:"equipment_id"`
	EpisodeID   uuid.UUID      `json:"episode_id"`
	Label       string         `json:"label"`
	Confidence  float64        `json:"conf"`
	IsFault     bool           `json:"is_fault"`
	Previous    entity.Verdict `json:"previous"`
	At          time.Time      `json:"at"`
}

// NewPublisher создаёт публикатор поверх клиента paho.
func NewPublisher(client tokenPublisher, cfg PublisherConfig, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		client:      client,
		topic:       formatTopic(cfg.Topic, cfg.EquipmentID),
		equipmentID: cfg.EquipmentID,
		logger:      logger,
	}
}

// Topic возвращает итоговый топик.
func (p *Publisher) Topic() string {
	return p.topic
}

// Publish отправляет событие с QoS 1 и флагом retained,
// чтобы новые подписчики сразу получали текущее состояние.
func (p *Publisher) Publish(ctx context.Context, change entity.StateChange) error {
	payload, err := json.Marshal(StateMessage{
		EquipmentID: p.equipmentID,
		EpisodeID:   change.EpisodeID,
		Label:       change.Current.Label,
		Confidence:  change.Current.Confidence,
		IsFault:     change.Current.IsFault,
		Previous:    change.Previous,
		At:          change.At.UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal state change: %w", err)
	}

	token := p.client.Publish(p.topic, 1, true, payload)

	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(publishTimeout):
		return fmt.Errorf("failed to publish state change: timeout after %s", publishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish state change: %w", err)
	}

	p.logger.Debug("Published state change",
		zap.String("topic", p.topic),
		zap.String("label", change.Current.Label))
	return nil
}

func formatTopic(pattern, equipmentID string) string {
	return strings.ReplaceAll(pattern, "{equipment_id}", equipmentID)
}

var _ port.EventPublisher = (*Publisher)(nil)
