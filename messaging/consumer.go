package messaging

import (
	"context"
	"log"

	"github.com/getsentry/sentry-go"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler processes one delivered message body. Returning an error marks the
// delivery as failed and drives the retry/dead-letter machinery.
type Handler func(body []byte) error

// Acker is the slice of amqp.Delivery the consumer needs, split out so the
// delivery path is testable without a broker.
type Acker interface {
	Ack() error
	// DeadLetter rejects the message without requeueing; the broker routes
	// it to the queue's configured dead-letter exchange.
	DeadLetter() error
}

type deliveryAcker struct {
	d *amqp.Delivery
}

func (a deliveryAcker) Ack() error        { return a.d.Ack(false) }
func (a deliveryAcker) DeadLetter() error { return a.d.Nack(false, false) }

// Consumer serves queues with a fixed-size worker pool each. Delivery is
// at-least-once: a worker crash between processing and ack causes redelivery,
// and handlers have no dedup key.
type Consumer struct {
	conn    *amqp.Connection
	policy  RetryPolicy
	workers int
	logger  *log.Logger
}

func NewConsumer(conn *amqp.Connection, policy RetryPolicy, workers int, logger *log.Logger) *Consumer {
	if workers < 1 {
		workers = 3
	}
	return &Consumer{
		conn:    conn,
		policy:  policy,
		workers: workers,
		logger:  logger,
	}
}

// Listen starts the worker pool for one queue. Each message is handed to
// exactly one worker; no ordering is preserved across messages once the pool
// size exceeds one.
func (c *Consumer) Listen(ctx context.Context, queue string, handler Handler) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return err
	}

	// Prefetch one message per worker so a slow handler doesn't starve
	// the rest of the pool.
	if err := ch.Qos(c.workers, 0, false); err != nil {
		_ = ch.Close()
		return err
	}

	msgs, err := ch.Consume(
		queue,
		"",    // consumer tag (auto-generated)
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return err
	}

	for i := 0; i < c.workers; i++ {
		go c.work(ctx, queue, ch, msgs, handler)
	}
	return nil
}

func (c *Consumer) work(ctx context.Context, queue string, ch *amqp.Channel, msgs <-chan amqp.Delivery, handler Handler) {
	for {
		select {
		case <-ctx.Done():
			_ = ch.Close()
			return
		case d, ok := <-msgs:
			if !ok {
				return
			}
			c.handleDelivery(ctx, queue, d.Body, deliveryAcker{&d}, handler)
		}
	}
}

// handleDelivery runs one message through the retry policy and settles it.
func (c *Consumer) handleDelivery(ctx context.Context, queue string, body []byte, acker Acker, handler Handler) {
	err := c.policy.Execute(ctx, func() error { return handler(body) })
	if err == nil {
		if err := acker.Ack(); err != nil {
			c.logger.Printf("failed to ack message on %s: %v", queue, err)
		}
		return
	}

	c.logger.Printf("delivery on %s exhausted retries, dead-lettering: %v", queue, err)
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("queue", queue)
		sentry.CaptureException(err)
	})
	if err := acker.DeadLetter(); err != nil {
		c.logger.Printf("failed to dead-letter message on %s: %v", queue, err)
	}
}
