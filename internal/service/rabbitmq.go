package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/ad-tracker/performance-snapshots-go/internal/config"
	"github.com/ad-tracker/performance-snapshots-go/pkg/logger"
)

const publishConfirmTimeout = 5 * time.Second

// MessagePublisher publishes snapshot events to a RabbitMQ topic exchange with publisher confirms.
type MessagePublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	config  *config.RabbitMQConfig
	log     *zap.Logger
	mu      sync.RWMutex
}

// NewMessagePublisher connects to RabbitMQ and declares the exchange.
func NewMessagePublisher(cfg *config.RabbitMQConfig) (*MessagePublisher, error) {
	mp := &MessagePublisher{
		config: cfg,
		log:    logger.Named("rabbitmq"),
	}

	if err := mp.connect(); err != nil {
		return nil, err
	}

	return mp, nil
}

// NewEventPublisher returns a RabbitMQ publisher when enabled, otherwise a NoopPublisher.
func NewEventPublisher(cfg *config.RabbitMQConfig) (EventPublisher, error) {
	if !cfg.Enabled {
		return NoopPublisher{}, nil
	}
	return NewMessagePublisher(cfg)
}

func (mp *MessagePublisher) connect() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	conn, err := amqp.Dial(mp.connURL())
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	// Enable publisher confirms
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	// Consumers bind their own queues by routing key.
	if err := ch.ExchangeDeclare(
		mp.config.Exchange, // name
		"topic",            // type
		true,               // durable
		false,              // auto-deleted
		false,              // internal
		false,              // no-wait
		nil,                // arguments
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	mp.conn = conn
	mp.channel = ch

	mp.log.Info("Connected to RabbitMQ",
		zap.String("exchange", mp.config.Exchange),
		zap.String("routingKeyPrefix", mp.config.RoutingKeyPrefix),
	)

	return nil
}

func (mp *MessagePublisher) connURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/",
		mp.config.User, mp.config.Password, mp.config.Host, mp.config.Port)
}

// RoutingKey returns the routing key for an action, e.g. "snapshot.saved".
func (mp *MessagePublisher) RoutingKey(action string) string {
	return routingKey(mp.config.RoutingKeyPrefix, action)
}

func routingKey(prefix, action string) string {
	if prefix == "" {
		return action
	}
	return prefix + "." + action
}

func (mp *MessagePublisher) PublishEvent(ctx context.Context, event *SnapshotEvent) error {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	if mp.channel == nil {
		return fmt.Errorf("channel is not initialized")
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	key := mp.RoutingKey(event.Action)

	// Publish with confirmation
	confirm, err := mp.channel.PublishWithDeferredConfirmWithContext(
		ctx,
		mp.config.Exchange, // exchange
		key,                // routing key
		false,              // mandatory
		false,              // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.OccurredAt,
			MessageId:    event.ID.String(),
			Type:         key,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, publishConfirmTimeout)
	defer cancel()

	acked, err := confirm.WaitContext(waitCtx)
	if err != nil {
		return fmt.Errorf("waiting for publish confirmation: %w", err)
	}
	if !acked {
		return fmt.Errorf("message was not acknowledged by broker")
	}

	mp.log.Debug("Published snapshot event",
		zap.String("eventId", event.ID.String()),
		zap.String("routingKey", key),
		zap.String("snapshotDate", event.SnapshotDate),
	)

	return nil
}

func (mp *MessagePublisher) Close() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	var errs []error
	if mp.channel != nil {
		if err := mp.channel.Close(); err != nil {
			errs = append(errs, err)
		}
		mp.channel = nil
	}
	if mp.conn != nil {
		if err := mp.conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing publisher: %v", errs)
	}

	mp.log.Info("RabbitMQ publisher closed")
	return nil
}

func (mp *MessagePublisher) IsHealthy() bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return mp.conn != nil && !mp.conn.IsClosed() && mp.channel != nil
}
