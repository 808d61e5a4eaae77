package repository

import (
	"context"
	"fmt"

	"BoltX/internal/domain/models"
	pkgkafka "BoltX/pkg/kafka"

	"github.com/segmentio/kafka-go"
)

// messagePublisher is satisfied by *pkgkafka.Producer.
type messagePublisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}, headers ...kafka.Header) error
	Close() error
}

var _ messagePublisher = (*pkgkafka.Producer)(nil)

// KafkaPredictionPublisher emits persisted predictions keyed by session id,
// so one session's predictions stay ordered within a partition.
type KafkaPredictionPublisher struct {
	p     messagePublisher
	topic string
}

func NewKafkaPredictionPublisher(p *pkgkafka.Producer, topic string) *KafkaPredictionPublisher {
	return &KafkaPredictionPublisher{p: p, topic: topic}
}

func (k *KafkaPredictionPublisher) PublishPrediction(ctx context.Context, p *models.PersistedPrediction) error {
	headers := []kafka.Header{{Key: "risk_level", Value: []byte(p.Prediction.RiskLevel)}}
	if id := pkgkafka.TraceID(ctx); id != "" {
		headers = append(headers, kafka.Header{Key: pkgkafka.TraceHeader, Value: []byte(id)})
	}
	if err := k.p.Publish(ctx, k.topic, []byte(p.SessionID), p, headers...); err != nil {
		return fmt.Errorf("publish prediction: %w", err)
	}
	return nil
}

// Close is a no-op; the producer is shared and closed by its owner.
func (k *KafkaPredictionPublisher) Close() error { return nil }

// NopPublisher discards predictions. Used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishPrediction(context.Context, *models.PersistedPrediction) error { return nil }
func (NopPublisher) Close() error                                                         { return nil }
