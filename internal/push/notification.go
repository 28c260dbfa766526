package push

import "encoding/json"

// Notification kinds sent by the backend.
const (
	TypeMatch   = "match"
	TypeMessage = "message"
	TypeLike    = "like"
)

// NotificationData is the custom payload of a notification.
type NotificationData struct {
	Type   string         `json:"type,omitempty"`
	Screen string         `json:"screen,omitempty"`
	Extra  map[string]any `json:"-"`
}

// ParseNotificationData reads the data payload. Anything that is not a JSON
// object yields empty data rather than an error.
func ParseNotificationData(raw []byte) NotificationData {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return NotificationData{}
	}

	var d NotificationData
	if v, ok := fields["type"].(string); ok {
		d.Type = v
	}
	if v, ok := fields["screen"].(string); ok {
		d.Screen = v
	}
	delete(fields, "type")
	delete(fields, "screen")
	if len(fields) > 0 {
		d.Extra = fields
	}
	return d
}

// Destination returns the screen a tapped notification opens. An explicit
// screen wins over the type default.
func (d NotificationData) Destination() string {
	if d.Screen != "" {
		return d.Screen
	}
	switch d.Type {
	case TypeMatch:
		return "Matches"
	case TypeMessage:
		return "Messages"
	case TypeLike:
		return "Likes"
	default:
		return ""
	}
}
