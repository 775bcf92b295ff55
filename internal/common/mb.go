package common

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

type Exchange string

type Queue string

type BindingKey string

type MessageProducer interface {
	Publish(ctx context.Context, msg []byte, key BindingKey, exchange Exchange) error
}

type MessageConsumer interface {
	Consume(key BindingKey, exchange Exchange, queue Queue) (<-chan amqp.Delivery, error)
}

const (
	UserExchange     Exchange   = "user_exchange"
	UserCreatedQueue Queue      = "user_created_queue"
	UserCreatedKey   BindingKey = "user.created"
)

// appID tags every message published by this service.
const appID = "blogsphere"

// consumerPrefetch caps the unacknowledged deliveries held by one consumer.
const consumerPrefetch = 10

type binding struct {
	exchange Exchange
	queue    Queue
	key      BindingKey
}

// topology lists every exchange, queue and binding the service relies on.
var topology = []binding{
	{exchange: UserExchange, queue: UserCreatedQueue, key: UserCreatedKey},
}

type MessageBroker struct {
	conn *amqp.Connection

	// separate channels for publishing and consuming
	pubMu sync.Mutex
	pub   *amqp.Channel
	sub   *amqp.Channel
}

func NewMessageBroker(URI string) (*MessageBroker, error) {
	conn, err := amqp.DialConfig(URI, amqp.Config{
		Heartbeat: 10 * time.Second,
		Properties: amqp.Table{
			"connection_name": appID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("could not connect to AMQP: %w", err)
	}

	pub, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("could not open publish channel: %w", err)
	}

	sub, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("could not open consume channel: %w", err)
	}
	if err := sub.Qos(consumerPrefetch, 0, false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("could not set prefetch: %w", err)
	}

	return &MessageBroker{conn: conn, pub: pub, sub: sub}, nil
}

// Close closes both channels and the connection.
func (mb *MessageBroker) Close() error {
	if err := mb.sub.Close(); err != nil {
		return err
	}
	if err := mb.pub.Close(); err != nil {
		return err
	}

	return mb.conn.Close()
}

// DeclareTopology declares the durable exchanges and queues the services
// publish to and consume from. It is idempotent.
func DeclareTopology(mb *MessageBroker) error {
	for _, b := range topology {
		err := mb.pub.ExchangeDeclare(string(b.exchange), "direct", true, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("could not declare exchange %s: %w", b.exchange, err)
		}

		_, err = mb.pub.QueueDeclare(string(b.queue), true, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("could not declare queue %s: %w", b.queue, err)
		}

		err = mb.pub.QueueBind(string(b.queue), string(b.key), string(b.exchange), false, nil)
		if err != nil {
			return fmt.Errorf("could not bind %s to %s: %w", b.queue, b.exchange, err)
		}
	}

	return nil
}

// Publish sends a persistent JSON message.
func (mb *MessageBroker) Publish(ctx context.Context, msg []byte, key BindingKey, exchange Exchange) error {
	mb.pubMu.Lock()
	defer mb.pubMu.Unlock()

	err := mb.pub.PublishWithContext(ctx, string(exchange), string(key), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now(),
		AppId:        appID,
		Type:         string(key),
		Body:         msg,
	})
	if err != nil {
		return fmt.Errorf("could not publish %s: %w", key, err)
	}

	return nil
}

// Consume starts delivering messages from queue. Deliveries must be acked by
// the caller. Each queue can be consumed once per broker.
func (mb *MessageBroker) Consume(key BindingKey, exchange Exchange, queue Queue) (<-chan amqp.Delivery, error) {
	tag := fmt.Sprintf("%s.%s", appID, key)
	msgs, err := mb.sub.Consume(string(queue), tag, false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("could not consume %s: %w", queue, err)
	}

	return msgs, nil
}
