package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/felixgeelhaar/lulu/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

// errMalformed marks messages that can never be processed
var errMalformed = errors.New("malformed usage event")

// UsageStore receives drained usage records
type UsageStore interface {
	RecordUsage(ctx context.Context, rec domain.UsageRecord) error
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	Workers      int           // Number of concurrent workers
	Prefetch     int           // Prefetch count per worker
	WriteTimeout time.Duration // Per-message store deadline
}

// DefaultConsumerConfig returns sensible defaults
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Workers:      2,
		Prefetch:     10,
		WriteTimeout: 5 * time.Second,
	}
}

// UsageConsumer drains the usage queue into a store
type UsageConsumer struct {
	conn       *Connection
	store      UsageStore
	cfg        ConsumerConfig
	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewUsageConsumer creates a usage consumer
func NewUsageConsumer(conn *Connection, store UsageStore, cfg ConsumerConfig, logger *slog.Logger) *UsageConsumer {
	def := DefaultConsumerConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = def.Prefetch
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &UsageConsumer{conn: conn, store: store, cfg: cfg, logger: logger}
}

// Start begins consuming messages
func (c *UsageConsumer) Start(ctx context.Context) error {
	ctx, c.cancelFunc = context.WithCancel(ctx)

	ch := c.conn.Channel()

	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := ch.Consume(
		UsageQueueName,
		"",    // consumer tag (auto-generated)
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info("starting usage consumer", "workers", c.cfg.Workers, "prefetch", c.cfg.Prefetch)

	for i := 0; i < c.cfg.Workers; i++ {
		c.wg.Add(1)
		go c.worker(ctx, i, msgs)
	}
	return nil
}

func (c *UsageConsumer) worker(ctx context.Context, id int, msgs <-chan amqp.Delivery) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("usage worker stopping", "worker_id", id)
			return

		case msg, ok := <-msgs:
			if !ok {
				c.logger.Info("message channel closed", "worker_id", id)
				return
			}
			c.settle(id, msg, c.handle(ctx, msg.Body))
		}
	}
}

// handle decodes one message body and writes the record
func (c *UsageConsumer) handle(ctx context.Context, body []byte) error {
	var event UsageEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	if !event.Record.Kind.IsValid() {
		return fmt.Errorf("%w: unknown kind %q", errMalformed, event.Record.Kind)
	}

	writeCtx, cancel := context.WithTimeout(ctx, c.cfg.WriteTimeout)
	defer cancel()

	if err := c.store.RecordUsage(writeCtx, event.Record); err != nil {
		return fmt.Errorf("store usage event %s: %w", event.ID, err)
	}
	return nil
}

// settle acks, rejects or requeues a delivery based on the handling outcome
func (c *UsageConsumer) settle(workerID int, msg amqp.Delivery, err error) {
	switch {
	case err == nil:
		if ackErr := msg.Ack(false); ackErr != nil {
			c.logger.Error("failed to ack message", "worker_id", workerID, "error", ackErr)
		}
	case errors.Is(err, errMalformed):
		c.logger.Error("dropping usage event", "worker_id", workerID, "error", err)
		_ = msg.Reject(false)
	default:
		c.logger.Warn("usage write failed, requeueing", "worker_id", workerID, "error", err)
		_ = msg.Nack(false, true)
	}
}

// Stop gracefully stops the consumer
func (c *UsageConsumer) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
	c.wg.Wait()
	c.logger.Info("usage consumer stopped")
}
