package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"MacroPulse/internal/domain/models"
	domrepo "MacroPulse/internal/domain/repository"
	"MacroPulse/pkg/kafka"
)

// KafkaTickPublisher emits each persisted tick as a JSON message keyed by indicator.
type KafkaTickPublisher struct {
	producer *kafka.Producer
}

func NewKafkaTickPublisher(p *kafka.Producer) *KafkaTickPublisher {
	return &KafkaTickPublisher{producer: p}
}

func (k *KafkaTickPublisher) PublishTicks(ctx context.Context, ticks []models.Tick) error {
	if len(ticks) == 0 {
		return nil
	}
	msgs, err := encodeTicks(ticks)
	if err != nil {
		return err
	}
	return k.producer.Publish(ctx, msgs...)
}

func (k *KafkaTickPublisher) Close() error {
	return k.producer.Close()
}

func encodeTicks(ticks []models.Tick) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(ticks))
	for _, t := range ticks {
		b, err := json.Marshal(t)
		if err != nil {
			return nil, fmt.Errorf("marshal tick %s: %w", t.Indicator, err)
		}
		msgs = append(msgs, kafka.Message{Key: []byte(t.Indicator), Value: b})
	}
	return msgs, nil
}

// NopTickPublisher discards ticks. Used when Kafka is disabled.
type NopTickPublisher struct{}

func (NopTickPublisher) PublishTicks(context.Context, []models.Tick) error { return nil }
func (NopTickPublisher) Close() error                                      { return nil }

var (
	_ domrepo.TickPublisher = (*KafkaTickPublisher)(nil)
	_ domrepo.TickPublisher = NopTickPublisher{}
)
