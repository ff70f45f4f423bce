// Package service holds the business logic behind the HTTP handlers.  Each
// service depends on small store interfaces so it can run against MySQL
// repositories in production and in-memory fakes in tests.
package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/volunteer-map/internal/queue"
)

// EventPublisher delivers domain events to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.Event) error
}

// publishTimeout bounds how long a request waits on the broker.
const publishTimeout = 3 * time.Second

// publish sends an event best effort: failures are logged, never returned.
func publish(ctx context.Context, pub EventPublisher, log *zap.Logger, typ string, data any) {
	if pub == nil {
		return
	}
	ev, err := queue.NewEvent(typ, data)
	if err != nil {
		log.Warn("event encode failed", zap.String("event", typ), zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := pub.Publish(ctx, ev); err != nil && !errors.Is(err, queue.ErrNoBroker) {
		log.Warn("event publish failed", zap.String("event", typ), zap.Error(err))
	}
}

func loggerOrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
