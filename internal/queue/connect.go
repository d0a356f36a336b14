package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/benvon/smartmatch/internal/logger"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// DefaultConnectTimeout bounds how long Connect keeps retrying a broker that is still starting
const DefaultConnectTimeout = 2 * time.Minute

// Connect dials RabbitMQ with exponential backoff until it succeeds, ctx ends, or
// maxElapsed passes.
func Connect(ctx context.Context, amqpURL string, maxElapsed time.Duration, log *zap.Logger) (*RabbitMQQueue, error) {
	log = logger.OrNop(log)
	if maxElapsed <= 0 {
		maxElapsed = DefaultConnectTimeout
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 2 * time.Second
	policy.MaxInterval = 30 * time.Second
	policy.MaxElapsedTime = maxElapsed

	var q *RabbitMQQueue
	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		var err error
		q, err = NewRabbitMQQueue(amqpURL, log)
		return err
	}, backoff.WithContext(policy, ctx), func(err error, delay time.Duration) {
		log.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt),
			zap.Error(err),
			zap.Duration("retry_delay", delay),
		)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", attempt, err)
	}
	log.Info("connected_to_rabbitmq", zap.Int("attempts", attempt))
	return q, nil
}
