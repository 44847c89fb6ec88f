package eventbus

import (
	"context"

	"github.com/alanyang/prompt-manager/internal/domain/event"
)

type Handler func(ctx context.Context, e event.Event)

type Subscription interface {
	Unsubscribe()
}

// EventBus fans events out to every subscriber of the event's channel.
// [LSP] In-memory and NATS implementations are interchangeable.
type EventBus interface {
	Publish(ctx context.Context, e event.Event) error
	Subscribe(ctx context.Context, ch event.Channel, handler Handler) (Subscription, error)
}
