package alerts

import (
	"context"

	"GridPulse/internal/domain/models"
	drepo "GridPulse/internal/domain/repository"
	pkgkafka "GridPulse/pkg/kafka"
)

// KafkaPublisher writes alert events as JSON, keyed by severity.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaPublisher(p *pkgkafka.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: p, topic: topic}
}

func (k *KafkaPublisher) PublishAlert(ctx context.Context, ev *models.AlertEvent) error {
	return k.producer.Publish(ctx, k.topic, []byte(ev.Severity), ev)
}

// Close is a no-op: the producer is shared and closed by its owner.
func (k *KafkaPublisher) Close() error { return nil }

var _ drepo.AlertPublisher = (*KafkaPublisher)(nil)
