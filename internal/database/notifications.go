package database

import (
	"context"

	"github.com/google/uuid"
)

const notificationColumns = `id, user_id, order_id, type, content, is_read, created_at`

type CreateNotificationParams struct {
	UserID  uuid.UUID
	OrderID uuid.UUID
	Type    string
	Content string
}

func (q *Queries) CreateNotification(ctx context.Context, arg CreateNotificationParams) (Notification, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO notifications (user_id, order_id, type, content)
		VALUES ($1, $2, $3, $4)
		RETURNING `+notificationColumns,
		arg.UserID, arg.OrderID, arg.Type, arg.Content,
	)
	var n Notification
	err := row.Scan(&n.ID, &n.UserID, &n.OrderID, &n.Type, &n.Content, &n.IsRead, &n.CreatedAt)
	return n, err
}

func (q *Queries) ListNotificationsByUser(ctx context.Context, userID uuid.UUID) ([]Notification, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.OrderID, &n.Type, &n.Content, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

type MarkNotificationReadParams struct {
	ID     uuid.UUID
	UserID uuid.UUID
}

func (q *Queries) MarkNotificationRead(ctx context.Context, arg MarkNotificationReadParams) (Notification, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE notifications SET is_read = true
		WHERE id = $1 AND user_id = $2
		RETURNING `+notificationColumns, arg.ID, arg.UserID)
	var n Notification
	err := row.Scan(&n.ID, &n.UserID, &n.OrderID, &n.Type, &n.Content, &n.IsRead, &n.CreatedAt)
	return n, err
}

func (q *Queries) DeleteNotificationsByUser(ctx context.Context, userID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM notifications WHERE user_id = $1`, userID)
	return err
}
