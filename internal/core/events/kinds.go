package events

import "github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/domain"

// Kind names an event on the bus.
type Kind string

const (
	KindMessageCreated     Kind = "messageCreated"
	KindNavigateToMessage  Kind = "navigateToMessage"
	KindNotificationAction Kind = "notificationAction"
	KindStoryCreated       Kind = "storyCreated"
)

// Key binds a Kind to the payload type carried by every event of that kind.
// Keys can only be declared in this package, which keeps the set closed.
type Key[T any] struct {
	kind Kind
}

// Kind returns the event name the key publishes under.
func (k Key[T]) Kind() Kind { return k.kind }

var (
	MessageCreated     = Key[domain.MessageCreated]{kind: KindMessageCreated}
	NavigateToMessage  = Key[domain.NavigateToMessage]{kind: KindNavigateToMessage}
	NotificationAction = Key[domain.NotificationAction]{kind: KindNotificationAction}
	StoryCreated       = Key[domain.StoryCreated]{kind: KindStoryCreated}
)

// Kinds lists every event kind the bus understands.
func Kinds() []Kind {
	return []Kind{
		KindMessageCreated,
		KindNavigateToMessage,
		KindNotificationAction,
		KindStoryCreated,
	}
}

// ParseKind returns the Kind named s, or false if s is not a known kind.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}
