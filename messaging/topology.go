package messaging

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"taskhive/config"
)

// DeclareTopology sets up the full broker layout: the two domain topic
// exchanges, the shared dead-letter exchange, and for every routing key a
// durable queue carrying dead-letter arguments plus its durable DLQ bound to
// the dead-letter exchange under the same key. Declaration is idempotent.
func DeclareTopology(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	for _, exchange := range []string{config.EventsExchange, config.ProjectExchange, config.DeadLetterExchange} {
		err := ch.ExchangeDeclare(
			exchange,
			"topic",
			true,  // durable
			false, // auto-delete
			false, // internal
			false, // no-wait
			nil,
		)
		if err != nil {
			return fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
		}
	}

	for routingKey, binding := range config.RabbitTopology() {
		// Main queue: failed messages are routed to the dead-letter
		// exchange with the same routing key.
		_, err := ch.QueueDeclare(
			binding.Queue,
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			amqp.Table{
				"x-dead-letter-exchange":    config.DeadLetterExchange,
				"x-dead-letter-routing-key": routingKey,
			},
		)
		if err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", binding.Queue, err)
		}
		if err := ch.QueueBind(binding.Queue, routingKey, binding.Exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s: %w", binding.Queue, err)
		}

		// DLQ: no consumer runs here; messages wait for manual
		// inspection or replay.
		_, err = ch.QueueDeclare(binding.DLQ, true, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("failed to declare DLQ %s: %w", binding.DLQ, err)
		}
		if err := ch.QueueBind(binding.DLQ, routingKey, config.DeadLetterExchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind DLQ %s: %w", binding.DLQ, err)
		}
	}

	return nil
}
