package events

import (
	"context"
	"testing"
	"time"

	"counsel/pkg/kafka"
	"counsel/pkg/model"
)

type captureProducer struct {
	msgs []kafka.Message
}

func (c *captureProducer) Publish(_ context.Context, msg kafka.Message) error {
	c.msgs = append(c.msgs, msg)
	return nil
}

func TestKafkaPublisher_PublishBookingCreated(t *testing.T) {
	producer := &captureProducer{}
	publisher := NewKafkaPublisher(producer)

	event := &model.BookingEvent{
		BookingID:    "65f000000000000000000001",
		SessionType:  model.DefaultSessionType,
		Status:       model.BookingConfirmed,
		ScheduledAt:  time.Date(2030, 5, 1, 10, 0, 0, 0, time.UTC),
		StudentEmail: "ada@example.com",
	}

	if err := publisher.PublishBookingCreated(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(producer.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(producer.msgs))
	}

	msg := producer.msgs[0]
	if msg.Key != event.BookingID {
		t.Errorf("expected key %s, got %s", event.BookingID, msg.Key)
	}
	if msg.GetEventType() != EventTypeBookingCreated {
		t.Errorf("unexpected event type %q", msg.GetEventType())
	}

	var decoded model.BookingEvent
	if err := msg.DecodeValue(&decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.StudentEmail != "ada@example.com" || !decoded.ScheduledAt.Equal(event.ScheduledAt) {
		t.Errorf("unexpected payload %+v", decoded)
	}
}
