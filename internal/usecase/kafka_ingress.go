package usecase

import (
	"context"

	pkgkafka "GridPulse/pkg/kafka"
)

// KafkaIngress runs the Kafka consumer with a ReadingHandler on the readings topic.
type KafkaIngress struct {
	consumer *pkgkafka.Consumer
	handler  *ReadingHandler
}

func NewKafkaIngress(consumer *pkgkafka.Consumer, handler *ReadingHandler) *KafkaIngress {
	return &KafkaIngress{consumer: consumer, handler: handler}
}

func (k *KafkaIngress) Start(context.Context) error {
	k.consumer.RegisterHandler(k.handler)
	return k.consumer.Start()
}

func (k *KafkaIngress) Stop(ctx context.Context) error { return k.consumer.Stop(ctx) }

func (k *KafkaIngress) Connected() bool { return k.consumer.Connected() }
