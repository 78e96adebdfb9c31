package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"campsite/pkg/kafka"
	"campsite/pkg/logger"
	"campsite/pkg/middleware"
	"campsite/pkg/model"
)

type mockProducer struct {
	publishFunc func(ctx context.Context, msg kafka.Message) error
	published   []kafka.Message
	closed      bool
}

func (m *mockProducer) Publish(ctx context.Context, msg kafka.Message) error {
	m.published = append(m.published, msg)
	if m.publishFunc != nil {
		return m.publishFunc(ctx, msg)
	}
	return nil
}

func (m *mockProducer) Close() error {
	m.closed = true
	return nil
}

func TestKafkaPublisher_Publish(t *testing.T) {
	producer := &mockProducer{}
	publisher := NewKafkaPublisher(producer, time.Second, logger.Discard())

	reservation := &model.Reservation{
		ID:           "65f1c0ffee0000000000beef",
		ContactEmail: "camper@example.com",
		StartDate:    time.Date(2026, time.July, 2, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2026, time.July, 4, 0, 0, 0, 0, time.UTC),
	}

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-123")
	if err := publisher.Publish(ctx, Updated("65f1c0ffee0000000000aaaa", reservation)); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}

	if len(producer.published) != 1 {
		t.Fatalf("expected 1 message, got %d", len(producer.published))
	}
	msg := producer.published[0]
	if msg.Key != reservation.ID {
		t.Errorf("key = %q, want reservation id", msg.Key)
	}
	if msg.GetEventType() != TypeUpdated {
		t.Errorf("event type = %q", msg.GetEventType())
	}
	if msg.GetCorrelationID() != "req-123" {
		t.Errorf("correlation id = %q", msg.GetCorrelationID())
	}

	var decoded Event
	if err := msg.DecodeValue(&decoded); err != nil {
		t.Fatalf("DecodeValue() error: %v", err)
	}
	if decoded.PreviousID != "65f1c0ffee0000000000aaaa" || decoded.StartDate != "2026-07-02" || decoded.EndDate != "2026-07-04" {
		t.Errorf("unexpected payload %+v", decoded)
	}
}

func TestKafkaPublisher_IgnoresCallerCancellation(t *testing.T) {
	producer := &mockProducer{
		publishFunc: func(ctx context.Context, msg kafka.Message) error {
			return ctx.Err()
		},
	}
	publisher := NewKafkaPublisher(producer, time.Second, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := publisher.Publish(ctx, Cancelled("65f1c0ffee0000000000beef")); err != nil {
		t.Errorf("Publish() should not inherit caller cancellation, got %v", err)
	}
}

func TestKafkaPublisher_WrapsProducerError(t *testing.T) {
	boom := errors.New("leader not available")
	producer := &mockProducer{
		publishFunc: func(ctx context.Context, msg kafka.Message) error { return boom },
	}
	publisher := NewKafkaPublisher(producer, time.Second, logger.Discard())

	err := publisher.Publish(context.Background(), Cancelled("65f1c0ffee0000000000beef"))
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped producer error, got %v", err)
	}

	if err := publisher.Close(); err != nil || !producer.closed {
		t.Errorf("Close() should close the producer")
	}
}

func TestNoopPublisher(t *testing.T) {
	publisher := NewNoopPublisher()
	if err := publisher.Publish(context.Background(), Cancelled("x")); err != nil {
		t.Errorf("noop Publish() error: %v", err)
	}
	if err := publisher.Close(); err != nil {
		t.Errorf("noop Close() error: %v", err)
	}
}
