package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"taskhive/config"
)

// Publisher sends a domain event to the broker under a routing key. It is
// fire-and-forget relative to the caller's database transaction: the caller
// publishes after commit and treats failures as log-only.
type Publisher interface {
	Publish(event any, routingKey string) error
}

// RabbitPublisher publishes persistent JSON messages with publisher confirms.
type RabbitPublisher struct {
	conn  *amqp.Connection
	table map[string]config.QueueBinding
	mu    sync.Mutex
}

func NewRabbitPublisher(conn *amqp.Connection) *RabbitPublisher {
	return &RabbitPublisher{
		conn:  conn,
		table: config.RabbitTopology(),
	}
}

func (p *RabbitPublisher) Publish(event any, routingKey string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	binding, ok := p.table[routingKey]
	if !ok {
		return fmt.Errorf("no queue binding for routing key %q", routingKey)
	}
	if p.conn == nil || p.conn.IsClosed() {
		return fmt.Errorf("rabbitmq connection is not available")
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Confirm mode so a broker-side drop surfaces as an error instead of
	// silently losing the notification. Returns are watched too: the broker
	// confirms a mandatory message even after bouncing it as unroutable.
	if err := ch.Confirm(false); err != nil {
		return fmt.Errorf("failed to put channel in confirm mode: %w", err)
	}
	confirms := ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	returns := ch.NotifyReturn(make(chan amqp.Return, 1))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err = ch.PublishWithContext(
		ctx,
		binding.Exchange,
		routingKey,
		true,  // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	return awaitSettlement(ctx, confirms, returns, routingKey)
}

// awaitSettlement waits for the broker's verdict on a single mandatory
// publish. A basic.return is delivered before the confirm ack on the same
// channel, so after a positive confirm a buffered return is checked before
// declaring success.
func awaitSettlement(ctx context.Context, confirms <-chan amqp.Confirmation, returns <-chan amqp.Return, routingKey string) error {
	select {
	case ret := <-returns:
		return fmt.Errorf("message for %q was returned unroutable: %s", routingKey, ret.ReplyText)
	case confirmed, ok := <-confirms:
		if !ok {
			return fmt.Errorf("confirmation channel closed")
		}
		if !confirmed.Ack {
			return fmt.Errorf("broker rejected publish for %q", routingKey)
		}
	case <-ctx.Done():
		return fmt.Errorf("publish confirmation timed out")
	}

	select {
	case ret := <-returns:
		return fmt.Errorf("message for %q was returned unroutable: %s", routingKey, ret.ReplyText)
	default:
	}

	return nil
}
