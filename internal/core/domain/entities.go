package domain

import "encoding/json"

// MessageCreated is published after a location-tagged message is posted.
type MessageCreated struct {
	ID string `json:"id"`
}

// NavigateToMessage asks map views to focus on a message location.
// MessageID is optional.
type NavigateToMessage struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	MessageID string  `json:"messageId,omitempty"`
}

// UnmarshalJSON rejects a payload that does not carry a complete, in-range
// coordinate.
func (n *NavigateToMessage) UnmarshalJSON(data []byte) error {
	var raw struct {
		Lat       *float64 `json:"lat"`
		Lng       *float64 `json:"lng"`
		MessageID string   `json:"messageId"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	pt, err := CoordinateOf(raw.Lat, raw.Lng)
	if err != nil {
		return err
	}
	if pt == nil {
		return ErrPartialCoordinate
	}
	*n = NavigateToMessage{Lat: pt.Lat, Lng: pt.Lng, MessageID: raw.MessageID}
	return nil
}

// Coordinate returns the carried location.
func (n NavigateToMessage) Coordinate() GeoPoint {
	return GeoPoint{Lat: n.Lat, Lng: n.Lng}
}

// Notification actions.
const (
	NotificationOpen    = "open"
	NotificationDismiss = "dismiss"
	NotificationReply   = "reply"
)

// NotificationAction is published when the user acts on a notification.
type NotificationAction struct {
	NotificationID string `json:"notificationId"`
	Action         string `json:"action"`
}

// StoryCreated is published after a story is posted. The location is optional
// but, when present, always complete.
type StoryCreated struct {
	ID       string    `json:"id"`
	Location *GeoPoint `json:"location,omitempty"`
}

// NavigationState is the one-shot input carried into a view when the user
// arrives from elsewhere. Both fields are optional.
type NavigationState struct {
	Coordinate *GeoPoint `json:"coordinate,omitempty"`
	TargetID   string    `json:"targetId,omitempty"`
}

// HasCoordinate reports whether the state carries an explicit coordinate.
func (n NavigationState) HasCoordinate() bool {
	return n.Coordinate != nil
}
