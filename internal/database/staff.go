package database

import (
	"context"

	"github.com/google/uuid"
)

const staffColumns = `id, full_name, email, hashed_password, created_at`

type CreateStaffParams struct {
	FullName       string
	Email          string
	HashedPassword string
}

func (q *Queries) CreateStaff(ctx context.Context, arg CreateStaffParams) (Staff, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO staff (full_name, email, hashed_password)
		VALUES ($1, $2, $3)
		RETURNING `+staffColumns,
		arg.FullName, arg.Email, arg.HashedPassword,
	)
	var s Staff
	err := row.Scan(&s.ID, &s.FullName, &s.Email, &s.HashedPassword, &s.CreatedAt)
	return s, err
}

func (q *Queries) GetStaff(ctx context.Context, id uuid.UUID) (Staff, error) {
	row := q.db.QueryRow(ctx, `SELECT `+staffColumns+` FROM staff WHERE id = $1`, id)
	var s Staff
	err := row.Scan(&s.ID, &s.FullName, &s.Email, &s.HashedPassword, &s.CreatedAt)
	return s, err
}

func (q *Queries) GetStaffByEmail(ctx context.Context, email string) (Staff, error) {
	row := q.db.QueryRow(ctx, `SELECT `+staffColumns+` FROM staff WHERE email = $1`, email)
	var s Staff
	err := row.Scan(&s.ID, &s.FullName, &s.Email, &s.HashedPassword, &s.CreatedAt)
	return s, err
}
