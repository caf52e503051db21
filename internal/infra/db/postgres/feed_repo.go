package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	domain "github.com/edaccred/horus-backend/internal/domain/feed"
)

type NotificationRepository struct{ db *sql.DB }

func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Save(ctx context.Context, n *domain.Notification) error {
	const q = `
INSERT INTO notifications (user_id, title, message, type, read, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING id;`
	created := n.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return r.db.QueryRowContext(ctx, q,
		stringOrDash(n.UserID), n.Title, n.Message, n.Type, n.Read, created,
	).Scan(&n.ID)
}

func (r *NotificationRepository) List(ctx context.Context, userID string, limit int) ([]*domain.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT id, user_id, title, message, type, read, created_at
FROM notifications
WHERE user_id=$1
ORDER BY created_at DESC, id DESC
LIMIT $2;`
	rows, err := r.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

func (r *NotificationRepository) MarkRead(ctx context.Context, userID string, id int64) error {
	const q = `UPDATE notifications SET read=true WHERE user_id=$1 AND id=$2;`
	_, err := r.db.ExecContext(ctx, q, userID, id)
	return err
}

type ActivityRepository struct{ db *sql.DB }

func NewActivityRepository(db *sql.DB) *ActivityRepository { return &ActivityRepository{db: db} }

func (r *ActivityRepository) Save(ctx context.Context, a *domain.Activity) error {
	const q = `
INSERT INTO activities (user_id, action, details_json, created_at)
VALUES ($1,$2,$3,$4)
RETURNING id;`
	details := a.DetailsJSON
	if strings.TrimSpace(details) == "" {
		details = "{}"
	}
	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return r.db.QueryRowContext(ctx, q,
		stringOrDash(a.UserID), a.Action, details, created,
	).Scan(&a.ID)
}

func (r *ActivityRepository) List(ctx context.Context, userID string, limit int) ([]*domain.Activity, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT id, user_id, action, details_json, created_at
FROM activities
WHERE user_id=$1
ORDER BY created_at DESC, id DESC
LIMIT $2;`
	rows, err := r.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Activity
	for rows.Next() {
		var a domain.Activity
		if err := rows.Scan(&a.ID, &a.UserID, &a.Action, &a.DetailsJSON, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}
