package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, customer_id, service_id, payment_method, payment_status, status,
	estimated_weight, actual_weight, total_amount, notes, pickup_address,
	completion_at, cancelled_at, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.CustomerID, &o.ServiceID, &o.PaymentMethod, &o.PaymentStatus, &o.Status,
		&o.EstimatedWeight, &o.ActualWeight, &o.TotalAmount, &o.Notes, &o.PickupAddress,
		&o.CompletionAt, &o.CancelledAt, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

type CreateOrderParams struct {
	CustomerID      uuid.UUID
	ServiceID       uuid.UUID
	PaymentMethod   string
	Status          string
	EstimatedWeight pgtype.Numeric
	Notes           pgtype.Text
	PickupAddress   string
	CompletionAt    pgtype.Timestamptz
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO orders (customer_id, service_id, payment_method, status,
			estimated_weight, notes, pickup_address, completion_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+orderColumns,
		arg.CustomerID, arg.ServiceID, arg.PaymentMethod, arg.Status,
		arg.EstimatedWeight, arg.Notes, arg.PickupAddress, arg.CompletionAt,
	)
	return scanOrder(row)
}

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

// GetOrderForUpdate locks the order row for the duration of the transaction.
func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
	return scanOrder(row)
}

func (q *Queries) ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID) ([]Order, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE customer_id = $1
		ORDER BY created_at DESC`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

type ListOrdersParams struct {
	Status pgtype.Text
	Limit  int32
	Offset int32
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

type UpdateOrderStatusParams struct {
	ID     uuid.UUID
	Status string
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+orderColumns, arg.ID, arg.Status)
	return scanOrder(row)
}

type SetOrderWeightParams struct {
	ID           uuid.UUID
	ActualWeight pgtype.Numeric
	TotalAmount  pgtype.Numeric
}

func (q *Queries) SetOrderWeight(ctx context.Context, arg SetOrderWeightParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders SET actual_weight = $2, total_amount = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+orderColumns, arg.ID, arg.ActualWeight, arg.TotalAmount)
	return scanOrder(row)
}

type MarkOrderPaidParams struct {
	ID     uuid.UUID
	Status string
}

// MarkOrderPaid flips payment_status to PAID and moves the order to the given
// step in one statement.
func (q *Queries) MarkOrderPaid(ctx context.Context, arg MarkOrderPaidParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders SET payment_status = 'PAID', status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+orderColumns, arg.ID, arg.Status)
	return scanOrder(row)
}

// CancelOrder stamps cancelled_at and parks the order outside the step lists.
// Completed or already-cancelled orders are not touched.
func (q *Queries) CancelOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders SET status = 'CANCELLED', cancelled_at = now(), updated_at = now()
		WHERE id = $1 AND status NOT IN ('COMPLETED', 'CANCELLED')
		RETURNING `+orderColumns, id)
	return scanOrder(row)
}

func (q *Queries) DeleteOrdersByCustomer(ctx context.Context, customerID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM orders WHERE customer_id = $1`, customerID)
	return err
}
