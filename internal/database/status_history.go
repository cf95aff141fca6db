package database

import (
	"context"

	"github.com/google/uuid"
)

type CreateStatusHistoryParams struct {
	OrderID     uuid.UUID
	Status      string
	Description string
}

func (q *Queries) CreateStatusHistory(ctx context.Context, arg CreateStatusHistoryParams) (StatusHistory, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO status_history (order_id, status, description)
		VALUES ($1, $2, $3)
		RETURNING id, order_id, status, description, created_at`,
		arg.OrderID, arg.Status, arg.Description,
	)
	var h StatusHistory
	err := row.Scan(&h.ID, &h.OrderID, &h.Status, &h.Description, &h.CreatedAt)
	return h, err
}

func (q *Queries) ListStatusHistoryByOrder(ctx context.Context, orderID uuid.UUID) ([]StatusHistory, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, order_id, status, description, created_at
		FROM status_history
		WHERE order_id = $1
		ORDER BY created_at ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []StatusHistory
	for rows.Next() {
		var h StatusHistory
		if err := rows.Scan(&h.ID, &h.OrderID, &h.Status, &h.Description, &h.CreatedAt); err != nil {
			return nil, err
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

type DeleteStatusHistoryByStatusesParams struct {
	OrderID  uuid.UUID
	Statuses []string
}

// DeleteStatusHistoryByStatuses removes the history rows for the given step
// labels. Used when an order is regressed past a step.
func (q *Queries) DeleteStatusHistoryByStatuses(ctx context.Context, arg DeleteStatusHistoryByStatusesParams) error {
	_, err := q.db.Exec(ctx, `
		DELETE FROM status_history
		WHERE order_id = $1 AND status = ANY($2)`, arg.OrderID, arg.Statuses)
	return err
}

func (q *Queries) DeleteStatusHistoryByCustomer(ctx context.Context, customerID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `
		DELETE FROM status_history
		WHERE order_id IN (SELECT id FROM orders WHERE customer_id = $1)`, customerID)
	return err
}
