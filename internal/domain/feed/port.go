package feed

import "context"

// NotificationRepository defines persistence for notifications
type NotificationRepository interface {
	Save(ctx context.Context, n *Notification) error
	List(ctx context.Context, userID string, limit int) ([]*Notification, error)
	MarkRead(ctx context.Context, userID string, id int64) error
}

// ActivityRepository defines persistence for activity-log entries
type ActivityRepository interface {
	Save(ctx context.Context, a *Activity) error
	List(ctx context.Context, userID string, limit int) ([]*Activity, error)
}
