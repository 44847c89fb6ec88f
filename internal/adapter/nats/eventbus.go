package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/alanyang/prompt-manager/internal/domain/event"
	porteventbus "github.com/alanyang/prompt-manager/internal/port/eventbus"
)

// SubjectPrefix namespaces every channel on the NATS server.
const SubjectPrefix = "prompts."

// EventBus implements port/eventbus.EventBus over a NATS connection so several
// processes sharing one server see each other's prompt events.
type EventBus struct {
	conn *nats.Conn
}

var _ porteventbus.EventBus = (*EventBus)(nil)

// Connect dials the server with reconnection enabled.
func Connect(url, clientName string) (*EventBus, error) {
	opts := []nats.Option{
		nats.Name(clientName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("nats disconnected", "error", err)
				return
			}
			slog.Info("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			slog.Error("nats error", "subject", subject, "error", err)
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	slog.Info("connected to nats", "url", url)
	return &EventBus{conn: conn}, nil
}

// Subject returns the NATS subject for a channel.
func Subject(ch event.Channel) string {
	return SubjectPrefix + string(ch)
}

func (b *EventBus) Publish(ctx context.Context, e event.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	subject := Subject(event.ChannelFor(e.Type))
	if err := b.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

func (b *EventBus) Subscribe(ctx context.Context, ch event.Channel, handler porteventbus.Handler) (porteventbus.Subscription, error) {
	subject := Subject(ch)
	sub, err := b.conn.Subscribe(subject, msgHandler(handler))
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	return &subscription{sub: sub}, nil
}

// Close drains pending messages before closing the connection.
func (b *EventBus) Close() {
	if err := b.conn.Drain(); err != nil {
		slog.Warn("nats drain failed", "error", err)
		b.conn.Close()
	}
}

func msgHandler(handler porteventbus.Handler) nats.MsgHandler {
	return func(msg *nats.Msg) {
		var e event.Event
		if err := json.Unmarshal(msg.Data, &e); err != nil {
			slog.Error("undecodable event", "subject", msg.Subject, "error", err)
			return
		}
		handler(context.Background(), e)
	}
}

type subscription struct {
	sub *nats.Subscription
}

func (s *subscription) Unsubscribe() {
	if err := s.sub.Unsubscribe(); err != nil {
		slog.Debug("nats unsubscribe", "subject", s.sub.Subject, "error", err)
	}
}
