package messaging

import (
	"context"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAwaitSettlementAck(t *testing.T) {
	confirms := make(chan amqp.Confirmation, 1)
	returns := make(chan amqp.Return, 1)
	confirms <- amqp.Confirmation{DeliveryTag: 1, Ack: true}

	err := awaitSettlement(context.Background(), confirms, returns, "org.member.invited")
	assert.NoError(t, err)
}

func TestAwaitSettlementUnroutableBeforeConfirm(t *testing.T) {
	confirms := make(chan amqp.Confirmation, 1)
	returns := make(chan amqp.Return, 1)
	returns <- amqp.Return{ReplyCode: 312, ReplyText: "NO_ROUTE", RoutingKey: "org.member.invited"}

	err := awaitSettlement(context.Background(), confirms, returns, "org.member.invited")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NO_ROUTE")
}

func TestAwaitSettlementUnroutableWithConfirm(t *testing.T) {
	// The broker acks a mandatory message even after bouncing it; the return
	// must win over the ack.
	confirms := make(chan amqp.Confirmation, 1)
	returns := make(chan amqp.Return, 1)
	returns <- amqp.Return{ReplyCode: 312, ReplyText: "NO_ROUTE", RoutingKey: "org.member.invited"}
	confirms <- amqp.Confirmation{DeliveryTag: 1, Ack: true}

	err := awaitSettlement(context.Background(), confirms, returns, "org.member.invited")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "returned unroutable")
}

func TestAwaitSettlementBrokerNack(t *testing.T) {
	confirms := make(chan amqp.Confirmation, 1)
	returns := make(chan amqp.Return, 1)
	confirms <- amqp.Confirmation{DeliveryTag: 1, Ack: false}

	err := awaitSettlement(context.Background(), confirms, returns, "org.member.invited")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected")
}

func TestAwaitSettlementClosedConfirms(t *testing.T) {
	confirms := make(chan amqp.Confirmation)
	returns := make(chan amqp.Return, 1)
	close(confirms)

	err := awaitSettlement(context.Background(), confirms, returns, "org.member.invited")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "confirmation channel closed")
}

func TestAwaitSettlementTimeout(t *testing.T) {
	confirms := make(chan amqp.Confirmation, 1)
	returns := make(chan amqp.Return, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := awaitSettlement(ctx, confirms, returns, "org.member.invited")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}
