package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyang/prompt-manager/internal/domain/event"
	porteventbus "github.com/alanyang/prompt-manager/internal/port/eventbus"
)

// DefaultTTL is how long a notification stays visible.
const DefaultTTL = 2 * time.Second

// Notification is the transient toast shown after an action.
type Notification struct {
	Message string `json:"message"`
	Visible bool   `json:"visible"`
}

// Notifier shows at most one notification at a time. Showing a new one replaces
// the current message and restarts the auto-hide timer.
// [SRP] Owns toast visibility only.
type Notifier struct {
	ttl time.Duration
	bus porteventbus.EventBus

	mu      sync.Mutex
	current Notification
	timer   *time.Timer
	gen     uint64
}

func NewNotifier(ttl time.Duration, bus porteventbus.EventBus) *Notifier {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Notifier{ttl: ttl, bus: bus}
}

func (n *Notifier) Show(ctx context.Context, message string) {
	n.mu.Lock()
	if n.timer != nil {
		n.timer.Stop()
	}
	n.gen++
	gen := n.gen
	n.current = Notification{Message: message, Visible: true}
	n.timer = time.AfterFunc(n.ttl, func() { n.expire(gen) })
	n.mu.Unlock()

	n.publish(ctx, event.Notification(event.TypeNotificationShown, message))
}

// Hide dismisses the current notification early. Hiding nothing is a no-op.
func (n *Notifier) Hide(ctx context.Context) {
	n.mu.Lock()
	if !n.current.Visible {
		n.mu.Unlock()
		return
	}
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.gen++
	n.current.Visible = false
	n.mu.Unlock()

	n.publish(ctx, event.Notification(event.TypeNotificationHidden, ""))
}

func (n *Notifier) Current() Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Close stops a pending auto-hide.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.gen++
}

// expire hides the notification only if no newer Show or Hide happened since
// the timer was armed.
func (n *Notifier) expire(gen uint64) {
	n.mu.Lock()
	if gen != n.gen {
		n.mu.Unlock()
		return
	}
	n.current.Visible = false
	n.timer = nil
	n.mu.Unlock()

	n.publish(context.Background(), event.Notification(event.TypeNotificationHidden, ""))
}

func (n *Notifier) publish(ctx context.Context, e event.Event) {
	if n.bus == nil {
		return
	}
	if err := n.bus.Publish(ctx, e); err != nil {
		slog.Warn("notification publish failed", "type", e.Type, "error", err)
	}
}
