package feed

import "time"

// NotificationType enum
type NotificationType string

const (
	TypeInfo    NotificationType = "info"
	TypeSuccess NotificationType = "success"
	TypeWarning NotificationType = "warning"
	TypeError   NotificationType = "error"
)

// Notification is a user-facing message emitted on meaningful state transitions.
type Notification struct {
	ID        int64            `json:"id"`
	UserID    string           `json:"user_id"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"created_at"`
}

// Activity is an audit-log entry with free-form JSON details.
type Activity struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"user_id"`
	Action      string    `json:"action"`
	DetailsJSON string    `json:"details_json,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
