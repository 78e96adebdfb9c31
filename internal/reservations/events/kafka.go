package events

import (
	"context"
	"fmt"
	"time"

	"campsite/pkg/config"
	"campsite/pkg/kafka"
	kafka_middleware "campsite/pkg/kafka/middleware"
	"campsite/pkg/logger"
	"campsite/pkg/middleware"
)

// MessageProducer is the part of kafka.Producer the publisher needs.
type MessageProducer interface {
	Publish(ctx context.Context, msg kafka.Message) error
	Close() error
}

type kafkaPublisher struct {
	producer MessageProducer
	timeout  time.Duration
	log      *logger.Logger
}

// New returns a Kafka publisher when brokers are configured and a no-op
// publisher otherwise.
func New(cfg *config.Config) (Publisher, error) {
	if cfg.Kafka == nil || !cfg.Kafka.Enabled() {
		cfg.Log.Info("Kafka brokers not configured, reservation events are disabled")
		return NewNoopPublisher(), nil
	}

	producer, err := kafka.NewProducer(cfg.Kafka, cfg.ReservationEventsTopic, cfg.ReservationEventsDLQTopic, cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	if cfg.Kafka.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	}

	cfg.Log.Info("Reservation events enabled",
		"topic", cfg.ReservationEventsTopic,
		"dlq_topic", cfg.ReservationEventsDLQTopic,
		"brokers", cfg.Kafka.Brokers,
	)
	return NewKafkaPublisher(producer, cfg.Kafka.PublishTimeout, cfg.Log), nil
}

func NewKafkaPublisher(producer MessageProducer, timeout time.Duration, log *logger.Logger) Publisher {
	return &kafkaPublisher{
		producer: producer,
		timeout:  timeout,
		log:      log,
	}
}

// Publish keys the message by reservation id so every event of one
// reservation lands on the same partition. The caller's cancellation is
// ignored; only the publish timeout bounds the write.
func (p *kafkaPublisher) Publish(ctx context.Context, event Event) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	msg := kafka.NewMessage().
		WithKey(event.ReservationID).
		WithValue(event).
		WithEventType(event.Type).
		WithSource(Source).
		WithSchemaVersion(SchemaVersion).
		WithCorrelationID(middleware.GetRequestID(ctx)).
		Build()

	if err := p.producer.Publish(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event for reservation %s: %w", event.Type, event.ReservationID, err)
	}
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.producer.Close()
}
