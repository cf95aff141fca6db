package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type CreateCustomerParams struct {
	ID       uuid.UUID
	FullName string
	Phone    pgtype.Text
	Email    string
	Address  pgtype.Text
}

// CreateCustomer upserts the local profile row for a hosted-auth user.
// Repeated submissions after provider signup are harmless.
func (q *Queries) CreateCustomer(ctx context.Context, arg CreateCustomerParams) (Customer, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO customers (id, full_name, phone, email, address)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET full_name = EXCLUDED.full_name,
		    phone = EXCLUDED.phone,
		    address = EXCLUDED.address
		RETURNING id, full_name, phone, email, address, created_at`,
		arg.ID, arg.FullName, arg.Phone, arg.Email, arg.Address,
	)
	var c Customer
	err := row.Scan(&c.ID, &c.FullName, &c.Phone, &c.Email, &c.Address, &c.CreatedAt)
	return c, err
}

func (q *Queries) GetCustomer(ctx context.Context, id uuid.UUID) (Customer, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, full_name, phone, email, address, created_at
		FROM customers WHERE id = $1`, id)
	var c Customer
	err := row.Scan(&c.ID, &c.FullName, &c.Phone, &c.Email, &c.Address, &c.CreatedAt)
	return c, err
}

func (q *Queries) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	return err
}
