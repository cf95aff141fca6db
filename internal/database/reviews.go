package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const reviewColumns = `id, order_id, customer_id, rating, comment, created_at`

type CreateReviewParams struct {
	OrderID    uuid.UUID
	CustomerID uuid.UUID
	Rating     int32
	Comment    pgtype.Text
}

func (q *Queries) CreateReview(ctx context.Context, arg CreateReviewParams) (Review, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO reviews (order_id, customer_id, rating, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING `+reviewColumns,
		arg.OrderID, arg.CustomerID, arg.Rating, arg.Comment,
	)
	var rv Review
	err := row.Scan(&rv.ID, &rv.OrderID, &rv.CustomerID, &rv.Rating, &rv.Comment, &rv.CreatedAt)
	return rv, err
}

// GetReviewByOrder backs the one-review-per-order rule.
func (q *Queries) GetReviewByOrder(ctx context.Context, orderID uuid.UUID) (Review, error) {
	row := q.db.QueryRow(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE order_id = $1`, orderID)
	var rv Review
	err := row.Scan(&rv.ID, &rv.OrderID, &rv.CustomerID, &rv.Rating, &rv.Comment, &rv.CreatedAt)
	return rv, err
}

func (q *Queries) ListReviewsByService(ctx context.Context, serviceID uuid.UUID) ([]Review, error) {
	rows, err := q.db.Query(ctx, `
		SELECT r.id, r.order_id, r.customer_id, r.rating, r.comment, r.created_at
		FROM reviews r
		JOIN orders o ON o.id = r.order_id
		WHERE o.service_id = $1
		ORDER BY r.created_at DESC`, serviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []Review
	for rows.Next() {
		var rv Review
		if err := rows.Scan(&rv.ID, &rv.OrderID, &rv.CustomerID, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}

func (q *Queries) DeleteReviewsByCustomer(ctx context.Context, customerID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM reviews WHERE customer_id = $1`, customerID)
	return err
}
