package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ErrNoBroker is returned by Publish when no broker URL is configured.
var ErrNoBroker = errors.New("queue: broker not configured")

// Publisher sends events to QueueName.  Each call dials its own connection;
// events are rare (moderation and commit state changes) so no pool is kept.
// Errors are logged and returned so callers may ignore them.
type Publisher struct {
	URL    string
	Logger *zap.Logger
	dial   func(url string) (amqpChannel, func(), error)
}

// amqpChannel is the part of *amqp.Channel the publisher uses.
type amqpChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// NewPublisher returns a publisher for url.  An empty url yields a publisher
// whose Publish always fails with ErrNoBroker.
func NewPublisher(url string, logger *zap.Logger) *Publisher {
	return &Publisher{URL: url, Logger: logger, dial: dialChannel}
}

func dialChannel(url string) (amqpChannel, func(), error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return ch, func() { _ = ch.Close(); _ = conn.Close() }, nil
}

// Publish marshals ev and publishes it as a persistent message.
func (p *Publisher) Publish(ctx context.Context, ev Event) error {
	if p == nil || p.URL == "" {
		return ErrNoBroker
	}
	log := p.Logger.With(zap.String("event", ev.Type))

	ch, closeFn, err := p.dial(p.URL)
	if err != nil {
		log.Warn("rabbitmq: dial failed", zap.Error(err))
		return err
	}
	defer closeFn()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		log.Warn("rabbitmq: queue declare failed", zap.Error(err))
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", QueueName, false, false, pub); err != nil {
		log.Warn("rabbitmq: publish failed", zap.Error(err))
		return err
	}
	return nil
}
