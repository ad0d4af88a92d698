package services

import (
	"context"

	"github.com/alumni-connect/apiserver/internal/mq"
)

// EventPublisher receives domain events. Implementations must not block the
// caller on broker failures.
type EventPublisher interface {
	Publish(ctx context.Context, event mq.Event)
}

func publish(p EventPublisher, ctx context.Context, event mq.Event) {
	if p == nil {
		return
	}
	p.Publish(ctx, event)
}
