package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"olivetrace/domain"
	"olivetrace/pkg/events"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// EventHandler is a function that processes events
type EventHandler func(ctx context.Context, event *events.Event) error

// Consumer reads events from one queue bound to a topic exchange.
type Consumer struct {
	conn        *amqp.Connection
	channel     *amqp.Channel
	queueName   string
	serviceName string
	timeout     time.Duration
}

// ConsumerConfig holds configuration for setting up a consumer
type ConsumerConfig struct {
	Exchange      string   // e.g., "olivetrace.ledger"
	QueueName     string   // e.g., "olivetrace.projections"; ignored when Broadcast
	RoutingKeys   []string // e.g., ["ledger.item.transferred.v1"]
	ServiceName   string
	PrefetchCount int // Number of messages to prefetch (0 = 10)
	// Broadcast gives this process its own exclusive, auto-deleted queue so
	// every instance sees every event. Broadcast queues have no DLQ.
	Broadcast      bool
	HandlerTimeout time.Duration
}

// NewConsumer creates a new RabbitMQ consumer
func NewConsumer(url string, config ConsumerConfig) (*Consumer, error) {
	conn, err := dial(url)
	if err != nil {
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	queueName, err := setupQueue(channel, config)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	zap.L().Info("RabbitMQ consumer created successfully",
		zap.String("queue", queueName),
		zap.String("exchange", config.Exchange),
		zap.Strings("routingKeys", config.RoutingKeys),
		zap.Bool("broadcast", config.Broadcast),
	)

	timeout := config.HandlerTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Consumer{
		conn:        conn,
		channel:     channel,
		queueName:   queueName,
		serviceName: config.ServiceName,
		timeout:     timeout,
	}, nil
}

func setupQueue(channel *amqp.Channel, config ConsumerConfig) (string, error) {
	prefetchCount := config.PrefetchCount
	if prefetchCount == 0 {
		prefetchCount = 10
	}
	if err := channel.Qos(prefetchCount, 0, false); err != nil {
		return "", fmt.Errorf("failed to set QoS: %w", err)
	}

	if err := declareExchange(channel, config.Exchange); err != nil {
		return "", fmt.Errorf("failed to declare exchange: %w", err)
	}

	var queue amqp.Queue
	var err error
	if config.Broadcast {
		queue, err = channel.QueueDeclare(
			"",    // server generated name
			false, // durable
			true,  // delete when unused
			true,  // exclusive
			false, // no-wait
			nil,
		)
		if err != nil {
			return "", fmt.Errorf("failed to declare queue: %w", err)
		}
	} else {
		dlxName := config.Exchange + ".dlx"
		if err := declareExchange(channel, dlxName); err != nil {
			return "", fmt.Errorf("failed to declare DLX: %w", err)
		}

		queue, err = channel.QueueDeclare(
			config.QueueName,
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			amqp.Table{"x-dead-letter-exchange": dlxName},
		)
		if err != nil {
			return "", fmt.Errorf("failed to declare queue: %w", err)
		}

		dlqName := config.QueueName + ".dlq"
		if _, err := channel.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
			return "", fmt.Errorf("failed to declare DLQ: %w", err)
		}
		for _, routingKey := range config.RoutingKeys {
			if err := channel.QueueBind(dlqName, routingKey, dlxName, false, nil); err != nil {
				return "", fmt.Errorf("failed to bind DLQ: %w", err)
			}
		}
	}

	for _, routingKey := range config.RoutingKeys {
		if err := channel.QueueBind(queue.Name, routingKey, config.Exchange, false, nil); err != nil {
			return "", fmt.Errorf("failed to bind queue: %w", err)
		}
	}

	return queue.Name, nil
}

// Consume starts consuming messages from the queue
func (c *Consumer) Consume(ctx context.Context, handler EventHandler) error {
	msgs, err := c.channel.Consume(
		c.queueName,
		c.serviceName, // consumer tag
		false,         // auto-ack (false = manual ack)
		false,         // exclusive
		false,         // no-local
		false,         // no-wait
		nil,           // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	zap.L().Info("Started consuming messages", zap.String("queue", c.queueName))

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("Consumer context cancelled, stopping...")
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				zap.L().Warn("Message channel closed")
				return fmt.Errorf("message channel closed")
			}

			handleDelivery(ctx, msg, handler, c.timeout)
		}
	}
}

// handleDelivery runs handler for one message and settles it. A malformed
// message or a permanent failure is dead-lettered. A transient ledger
// failure is requeued once; a redelivery that fails again is dead-lettered.
func handleDelivery(ctx context.Context, msg amqp.Delivery, handler EventHandler, timeout time.Duration) {
	traceID, _ := msg.Headers["x-trace-id"].(string)

	var event events.Event
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		zap.L().Error("Failed to unmarshal event",
			zap.Error(err),
			zap.String("routingKey", msg.RoutingKey),
			zap.String("traceId", traceID),
		)
		_ = msg.Nack(false, false)
		return
	}

	processCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := handler(processCtx, &event); err != nil {
		requeue := domain.IsRetryable(err) && !msg.Redelivered
		zap.L().Error("Failed to process event",
			zap.Error(err),
			zap.String("event", event.Event),
			zap.String("traceId", traceID),
			zap.Bool("requeue", requeue),
		)
		_ = msg.Nack(false, requeue)
		return
	}

	if err := msg.Ack(false); err != nil {
		zap.L().Error("Failed to acknowledge message",
			zap.Error(err),
			zap.String("traceId", traceID),
		)
		return
	}

	zap.L().Debug("Successfully processed event",
		zap.String("event", event.Event),
		zap.String("traceId", traceID),
	)
}

// Close closes the consumer connection
func (c *Consumer) Close() error {
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			zap.L().Error("Failed to close channel", zap.Error(err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			zap.L().Error("Failed to close connection", zap.Error(err))
			return err
		}
	}
	zap.L().Info("RabbitMQ consumer closed")
	return nil
}
