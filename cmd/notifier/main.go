package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"counsel/internal/notifier/email"
	"counsel/internal/notifier/handler"
	"counsel/pkg/config"
	"counsel/pkg/kafka"
	kafka_config "counsel/pkg/kafka/config"
	kafka_middleware "counsel/pkg/kafka/middleware"
	"counsel/pkg/metrics"
)

const ServiceName = "notifier"

func main() {
	cfg := config.Load(ServiceName)

	cfg.Log.Info("Starting Notifier service")

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	recorder := metrics.NewCollector(metrics.NewRegistry())
	bookingCreated := handler.NewBookingCreatedHandler(email.NewResendDispatcher(cfg, recorder), cfg)

	consumer, err := kafka.NewConsumer(
		kafkaCfg,
		kafkaCfg.BookingEventsTopic,
		kafkaCfg.NotifierGroupID,
		kafkaCfg.BookingEventsDLQTopic,
		bookingCreated.Handle,
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
		consumer.Use(kafka_middleware.MetricsConsumerMiddleware(recorder))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg.Log.Info("Consuming booking events",
		"topic", kafkaCfg.BookingEventsTopic,
		"group_id", kafkaCfg.NotifierGroupID,
	)
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Consumer stopped", "error", err)
	}

	cfg.Log.Info("Shutting down Notifier service")
	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close Kafka consumer", "error", err)
	}
}
