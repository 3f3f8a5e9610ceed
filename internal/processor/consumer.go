package processor

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/taxidata/platform/internal/rides"
	"github.com/taxidata/platform/pkg/common"
	"github.com/taxidata/platform/pkg/logger"
	"github.com/taxidata/platform/pkg/rabbitmq"
	"github.com/taxidata/platform/pkg/resilience"
	"go.uber.org/zap"
)

// Consumer drains ride events from the queue and feeds them to the pipeline.
// All workers share one pipeline and therefore one breaker instance.
type Consumer struct {
	conn     *rabbitmq.Connection
	pipeline *Pipeline
	workers  int
}

// NewConsumer creates a new ride event consumer
func NewConsumer(conn *rabbitmq.Connection, pipeline *Pipeline, workers int) *Consumer {
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{conn: conn, pipeline: pipeline, workers: workers}
}

// Start consumes deliveries until ctx is cancelled or the delivery channel
// closes
func (c *Consumer) Start(ctx context.Context) error {
	deliveries, err := c.conn.Consume("ride-processor")
	if err != nil {
		return err
	}

	logger.Info("ride consumer started", zap.Int("workers", c.workers))

	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case msg, ok := <-deliveries:
					if !ok {
						return
					}
					c.handleDelivery(ctx, msg)
				}
			}
		}()
	}
	wg.Wait()
	return nil
}

// handleDelivery processes one message and signals its outcome back to the
// broker. Redelivery policy lives entirely with the broker: validation
// failures are dead-lettered, everything retryable is requeued.
func (c *Consumer) handleDelivery(ctx context.Context, msg amqp.Delivery) {
	var ride rides.Ride
	if err := json.Unmarshal(msg.Body, &ride); err != nil {
		logger.Warn("dropping malformed ride message", zap.Error(err))
		messagesTotal.WithLabelValues(outcomeMalformed).Inc()
		_ = msg.Nack(false, false)
		return
	}

	_, err := c.pipeline.HandleMessage(ctx, &ride)
	switch {
	case err == nil:
		messagesTotal.WithLabelValues(outcomeSaved).Inc()
		_ = msg.Ack(false)
	case common.IsValidation(err):
		logger.Warn("rejecting invalid ride event",
			zap.String("start", ride.Start.Place),
			zap.Error(err),
		)
		messagesTotal.WithLabelValues(outcomeInvalid).Inc()
		_ = msg.Nack(false, false)
	case errors.Is(err, resilience.ErrCircuitOpen):
		messagesTotal.WithLabelValues(outcomeRejected).Inc()
		_ = msg.Nack(false, true)
	default:
		logger.Error("failed to persist ride event", zap.Error(err))
		messagesTotal.WithLabelValues(outcomeFailed).Inc()
		_ = msg.Nack(false, true)
	}
}
