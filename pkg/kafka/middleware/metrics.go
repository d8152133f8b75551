package kafka_middleware

import (
	"context"
	"time"

	"counsel/pkg/kafka"
	"counsel/pkg/metrics"
)

const (
	directionProduce = "produce"
	directionConsume = "consume"
)

// MetricsProducerMiddleware records publish outcomes and latency
func MetricsProducerMiddleware(rec metrics.Recorder) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()
		err := next(ctx, msg)
		rec.KafkaMessage(directionProduce, msg.Topic, err, time.Since(start))
		return err
	}
}

// MetricsConsumerMiddleware records handling outcomes and latency
func MetricsConsumerMiddleware(rec metrics.Recorder) kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)
		rec.KafkaMessage(directionConsume, msg.Topic, err, time.Since(start))
		return err
	}
}
