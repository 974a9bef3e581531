package notification

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"

	"threadora-backend/internal/domain"
	"threadora-backend/pkg/logger"
)

// AmqpPublisher sends lifecycle events to a fanout exchange. Publishing
// happens after the owning database transaction commits; a failed
// publish is logged by the caller and never rolls anything back.
type AmqpPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

func NewAmqpPublisher(url, exchange string) (*AmqpPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &AmqpPublisher{conn: conn, channel: ch, exchange: exchange}, nil
}

type envelope struct {
	Event      string      `json:"event"`
	OccurredAt time.Time   `json:"occurredAt"`
	Payload    interface{} `json:"payload"`
}

func (p *AmqpPublisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	body, err := json.Marshal(envelope{
		Event:      eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	})
	if err != nil {
		return err
	}

	return p.channel.PublishWithContext(ctx,
		p.exchange,
		eventType, // routing key
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			ContentType:  "application/json",
			Body:         body,
		},
	)
}

func (p *AmqpPublisher) Close() {
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			logger.Get().Warn().Err(err).Msg("closing amqp channel")
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			logger.Get().Warn().Err(err).Msg("closing amqp connection")
		}
	}
}

// NopNotifier satisfies domain.Notifier when no broker is configured.
type NopNotifier struct{}

func (NopNotifier) Publish(context.Context, string, interface{}) error { return nil }

var _ domain.Notifier = (*AmqpPublisher)(nil)
var _ domain.Notifier = NopNotifier{}
