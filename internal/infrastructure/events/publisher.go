// Package events broadcasts session status changes over RabbitMQ so the CRM
// frontend can update tenant connection indicators in real time.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"zapcrm/messaging-gateway/internal/domain/session"
)

// Publisher pushes session status events onto a durable topic exchange.
type Publisher struct {
	conn     *amqp091.Connection
	exchange string
	log      zerolog.Logger
}

var _ session.StatusPublisher = (*Publisher)(nil)

func NewPublisher(url, exchange string, log zerolog.Logger) (*Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	return &Publisher{
		conn:     conn,
		exchange: exchange,
		log:      log.With().Str("component", "status-publisher").Logger(),
	}, nil
}

// PublishStatus emits one event with routing key session.status.<config_id>.
func (p *Publisher) PublishStatus(ctx context.Context, evt session.StatusEvent) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal status event: %w", err)
	}

	key := fmt.Sprintf("session.status.%s", evt.ConfigID)
	err = ch.PublishWithContext(
		ctx, p.exchange, key, false, false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    uuid.NewString(),
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	p.log.Debug().Str("key", key).Str("state", string(evt.State)).Msg("status event published")
	return nil
}

func (p *Publisher) Close() error {
	return p.conn.Close()
}

// NopPublisher is used when no broker is configured. Status changes remain
// observable via the database and the status endpoint.
type NopPublisher struct{}

var _ session.StatusPublisher = NopPublisher{}

func (NopPublisher) PublishStatus(context.Context, session.StatusEvent) error { return nil }
