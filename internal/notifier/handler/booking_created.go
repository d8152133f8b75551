package handler

import (
	"context"

	"counsel/internal/bookings/events"
	"counsel/internal/notifier/email"
	"counsel/pkg/config"
	"counsel/pkg/kafka"
	"counsel/pkg/logger"
	"counsel/pkg/model"
)

type BookingCreatedHandler struct {
	dispatcher email.Dispatcher
	cfg        *config.Config
	log        *logger.Logger
}

func NewBookingCreatedHandler(dispatcher email.Dispatcher, cfg *config.Config) *BookingCreatedHandler {
	return &BookingCreatedHandler{
		dispatcher: dispatcher,
		cfg:        cfg,
		log:        cfg.Log.Component("booking_created"),
	}
}

// Handle sends the confirmation email for one booking event. Retryable send
// failures come back as transient errors so the consumer retries them; every
// other failure is permanent and goes to the DLQ.
func (h *BookingCreatedHandler) Handle(ctx context.Context, msg kafka.Message) error {
	if eventType := msg.GetEventType(); eventType != "" && eventType != events.EventTypeBookingCreated {
		h.log.Debug("Ignoring event", "event_type", eventType, "event_id", msg.GetEventID())
		return nil
	}

	var event model.BookingEvent
	if err := msg.DecodeValue(&event); err != nil {
		return err
	}
	if event.BookingID == "" {
		return kafka.NewPermanentError("invalid message: booking_id is empty", kafka.ErrInvalidMessage)
	}

	if model.IsPlaceholderEmail(event.StudentEmail, h.cfg.PlaceholderEmailDomain) {
		h.log.Warn("Skipping confirmation email, no real address on file",
			"booking_id", event.BookingID,
			"event_id", msg.GetEventID(),
		)
		return nil
	}

	confirmation, err := email.RenderConfirmation(&event)
	if err != nil {
		return kafka.NewPermanentError("failed to render confirmation", err)
	}

	if err := h.dispatcher.Send(ctx, confirmation); err != nil {
		if email.IsRetryable(err) {
			return kafka.NewTransientError("confirmation email not sent", err)
		}
		return kafka.NewPermanentError("confirmation email rejected", err).
			WithDetail("booking_id", event.BookingID)
	}

	h.log.Info("Confirmation email sent",
		"booking_id", event.BookingID,
		"event_id", msg.GetEventID(),
	)
	return nil
}
