package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"card-admin/internal/domain"
)

const (
	CardsExchange      = "cards.events"
	CardCreatedKey     = "card.created"
	cardCreatedVersion = 1

	initialRetryDelay = 500 * time.Millisecond
	maxRetryDelay     = 8 * time.Second
)

// CardCreatedEvent is the JSON body published for every stored card.
type CardCreatedEvent struct {
	Type       string       `json:"type"`
	Version    int          `json:"version"`
	OccurredAt time.Time    `json:"occurred_at"`
	Card       *domain.Card `json:"card"`
}

// RabbitMQ publishes card events. It is safe for concurrent use.
type RabbitMQ struct {
	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	now     func() time.Time
}

func NewRabbitMQ(url string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	rmq := &RabbitMQ{
		conn:    conn,
		channel: ch,
		now:     time.Now,
	}

	if err := rmq.Setup(); err != nil {
		rmq.Close()
		return nil, err
	}

	return rmq, nil
}

// NewRabbitMQWithRetry dials until the broker accepts the connection or ctx
// is done, doubling the wait between attempts up to maxRetryDelay.
func NewRabbitMQWithRetry(ctx context.Context, url string) (*RabbitMQ, error) {
	delay := initialRetryDelay
	for attempt := 1; ; attempt++ {
		rmq, err := NewRabbitMQ(url)
		if err == nil {
			return rmq, nil
		}

		slog.Warn("rabbitmq not ready, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("gave up connecting to RabbitMQ after %d attempts: %w", attempt, err)
		case <-time.After(delay):
		}

		delay *= 2
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}
}

// Setup declares the durable topic exchange card events go to.
// Consumers bind their own queues.
func (r *RabbitMQ) Setup() error {
	if err := r.channel.ExchangeDeclare(
		CardsExchange, // name
		"topic",       // type
		true,          // durable
		false,         // auto-deleted
		false,         // internal
		false,         // no-wait
		nil,           // arguments
	); err != nil {
		return fmt.Errorf("failed to declare cards exchange: %w", err)
	}

	slog.Info("rabbitmq setup completed successfully", slog.String("exchange", CardsExchange))
	return nil
}

// PublishCardCreated implements domain.CardEventPublisher.
func (r *RabbitMQ) PublishCardCreated(ctx context.Context, card *domain.Card) error {
	body, err := MarshalCardCreated(card, r.now())
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	err = r.channel.PublishWithContext(
		ctx,
		CardsExchange,
		CardCreatedKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    card.ID,
			Timestamp:    r.now(),
			Type:         CardCreatedKey,
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish card event: %w", err)
	}

	slog.Debug("published card event",
		slog.String("card_id", card.ID),
		slog.String("category", string(card.Category)))
	return nil
}

// MarshalCardCreated encodes the event body for card.
func MarshalCardCreated(card *domain.Card, at time.Time) ([]byte, error) {
	body, err := json.Marshal(CardCreatedEvent{
		Type:       CardCreatedKey,
		Version:    cardCreatedVersion,
		OccurredAt: at.UTC(),
		Card:       card,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal card event: %w", err)
	}
	return body, nil
}

func (r *RabbitMQ) IsClosed() bool {
	return r.conn == nil || r.conn.IsClosed()
}

// Ping reports an error when the broker connection has dropped.
func (r *RabbitMQ) Ping(ctx context.Context) error {
	if r.IsClosed() {
		return fmt.Errorf("rabbitmq connection closed")
	}
	return nil
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
