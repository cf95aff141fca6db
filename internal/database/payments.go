package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const paymentColumns = `id, order_id, method, amount, reference, paid_at`

type CreatePaymentParams struct {
	OrderID   uuid.UUID
	Method    string
	Amount    pgtype.Numeric
	Reference pgtype.Text
}

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO payments (order_id, method, amount, reference)
		VALUES ($1, $2, $3, $4)
		RETURNING `+paymentColumns,
		arg.OrderID, arg.Method, arg.Amount, arg.Reference,
	)
	var p Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.Method, &p.Amount, &p.Reference, &p.PaidAt)
	return p, err
}

func (q *Queries) ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]Payment, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE order_id = $1
		ORDER BY paid_at ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.OrderID, &p.Method, &p.Amount, &p.Reference, &p.PaidAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (q *Queries) DeletePaymentsByCustomer(ctx context.Context, customerID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `
		DELETE FROM payments
		WHERE order_id IN (SELECT id FROM orders WHERE customer_id = $1)`, customerID)
	return err
}
