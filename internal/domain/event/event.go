package event

import (
	"time"
)

type Type string

const (
	TypePromptCreated      Type = "prompt_created"
	TypePromptUpdated      Type = "prompt_updated"
	TypePromptDeleted      Type = "prompt_deleted"
	TypePromptsRefreshed   Type = "prompts_refreshed"
	TypeNotificationShown  Type = "notification_shown"
	TypeNotificationHidden Type = "notification_hidden"
)

// Channel groups event types. Each channel maps to one bus subject.
type Channel string

const (
	ChannelPrompt       Channel = "prompt"
	ChannelNotification Channel = "notification"
)

// Channels lists every channel, in subscription order.
var Channels = []Channel{ChannelPrompt, ChannelNotification}

var typeToChannel = map[Type]Channel{
	TypePromptCreated:      ChannelPrompt,
	TypePromptUpdated:      ChannelPrompt,
	TypePromptDeleted:      ChannelPrompt,
	TypePromptsRefreshed:   ChannelPrompt,
	TypeNotificationShown:  ChannelNotification,
	TypeNotificationHidden: ChannelNotification,
}

// ChannelFor returns the channel for a given event type.
func ChannelFor(t Type) Channel { return typeToChannel[t] }

// Event carries identifiers only, not full state.
// Subscribers fetch fresh state from the service that owns it.
type Event struct {
	Type      Type      `json:"type"`
	EntityID  string    `json:"entity_id,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func New(eventType Type, entityID string) Event {
	return Event{
		Type:      eventType,
		EntityID:  entityID,
		Timestamp: time.Now().UTC(),
	}
}

// Notification builds a notification event carrying its display text.
func Notification(eventType Type, message string) Event {
	e := New(eventType, "")
	e.Message = message
	return e
}
