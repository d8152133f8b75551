package events

import (
	"context"
	"fmt"

	"counsel/pkg/kafka"
	"counsel/pkg/model"
)

const (
	EventTypeBookingCreated = "booking.created"
	EventSource             = "bookings"
	SchemaVersion           = "1"
)

// Publisher hands booking events to the notification pipeline.
type Publisher interface {
	PublishBookingCreated(ctx context.Context, event *model.BookingEvent) error
}

type messageProducer interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type KafkaPublisher struct {
	producer messageProducer
}

func NewKafkaPublisher(producer messageProducer) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

// PublishBookingCreated keys the message by booking id so redeliveries of
// the same booking land on one partition.
func (p *KafkaPublisher) PublishBookingCreated(ctx context.Context, event *model.BookingEvent) error {
	msg, err := kafka.NewMessage().
		WithKey(event.BookingID).
		WithValue(event).
		WithEventType(EventTypeBookingCreated).
		WithSource(EventSource).
		WithSchemaVersion(SchemaVersion).
		WithCorrelationID(event.BookingID).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build booking event: %w", err)
	}
	return p.producer.Publish(ctx, msg)
}

// NopPublisher drops events. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishBookingCreated(context.Context, *model.BookingEvent) error {
	return nil
}
