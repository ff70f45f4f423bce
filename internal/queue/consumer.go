package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Consumer drains QueueName and writes every event as a structured log
// entry.  It reconnects with exponential backoff until its context ends.
type Consumer struct {
	URL    string
	Logger *zap.Logger

	MinBackoff time.Duration
	MaxBackoff time.Duration
}

// NewConsumer returns a consumer with 1s..30s backoff.
func NewConsumer(url string, logger *zap.Logger) *Consumer {
	return &Consumer{URL: url, Logger: logger, MinBackoff: time.Second, MaxBackoff: 30 * time.Second}
}

// Run blocks until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := c.MinBackoff
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Logger.Warn("event-consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			backoff = nextBackoff(backoff, c.MaxBackoff)
			continue
		}
		backoff = c.MinBackoff // reset after successful connect

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.Logger.Warn("event-consumer: consume loop ended, reconnecting", zap.Error(err))
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.Logger.Warn("event-consumer: set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(QueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := HandleMessage(c.Logger, d.Body); err != nil {
				c.Logger.Warn("event-consumer: bad message", zap.Error(err))
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// HandleMessage decodes one delivery and logs it.
func HandleMessage(logger *zap.Logger, body []byte) error {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	fields := []zap.Field{zap.String("type", ev.Type), zap.Time("occurred_at", ev.OccurredAt)}

	switch ev.Type {
	case EventPostModerated:
		var p PostModerated
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			return fmt.Errorf("unmarshal %s: %w", ev.Type, err)
		}
		fields = append(fields,
			zap.Uint64("post_id", p.PostID),
			zap.Uint64("owner_id", p.OwnerID),
			zap.Uint64("admin_id", p.AdminID),
			zap.String("status", p.Status),
		)
		if p.Reason != nil {
			fields = append(fields, zap.String("reason", *p.Reason))
		}
	case EventSupportCommit:
		var s SupportCommitChanged
		if err := json.Unmarshal(ev.Data, &s); err != nil {
			return fmt.Errorf("unmarshal %s: %w", ev.Type, err)
		}
		fields = append(fields,
			zap.Uint64("commit_id", s.CommitID),
			zap.Uint64("post_id", s.PostID),
			zap.Uint64("user_id", s.UserID),
			zap.Uint64("actor_id", s.ActorID),
			zap.String("status", s.Status),
			zap.Int("quantity", s.Quantity),
		)
	default:
		fields = append(fields, zap.ByteString("data", ev.Data))
	}
	logger.Info("event received", fields...)
	return nil
}

func nextBackoff(cur, limit time.Duration) time.Duration {
	if cur*2 > limit {
		return limit
	}
	return cur * 2
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
