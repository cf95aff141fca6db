package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const serviceColumns = `id, name, price_per_kg, description, is_archived, created_at, updated_at`

func scanService(row pgx.Row) (Service, error) {
	var s Service
	err := row.Scan(&s.ID, &s.Name, &s.PricePerKg, &s.Description, &s.IsArchived, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

type CreateServiceParams struct {
	Name        string
	PricePerKg  pgtype.Numeric
	Description pgtype.Text
}

func (q *Queries) CreateService(ctx context.Context, arg CreateServiceParams) (Service, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO services (name, price_per_kg, description)
		VALUES ($1, $2, $3)
		RETURNING `+serviceColumns,
		arg.Name, arg.PricePerKg, arg.Description,
	)
	return scanService(row)
}

func (q *Queries) GetService(ctx context.Context, id uuid.UUID) (Service, error) {
	row := q.db.QueryRow(ctx, `SELECT `+serviceColumns+` FROM services WHERE id = $1`, id)
	return scanService(row)
}

func (q *Queries) listServices(ctx context.Context, sql string) ([]Service, error) {
	rows, err := q.db.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []Service
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		services = append(services, s)
	}
	return services, rows.Err()
}

// ListServices returns the active catalog shown to customers.
func (q *Queries) ListServices(ctx context.Context) ([]Service, error) {
	return q.listServices(ctx, `
		SELECT `+serviceColumns+` FROM services
		WHERE NOT is_archived
		ORDER BY name ASC`)
}

// ListAllServices includes archived entries for the staff dashboard.
func (q *Queries) ListAllServices(ctx context.Context) ([]Service, error) {
	return q.listServices(ctx, `
		SELECT `+serviceColumns+` FROM services
		ORDER BY is_archived ASC, name ASC`)
}

type UpdateServiceParams struct {
	ID          uuid.UUID
	Name        string
	PricePerKg  pgtype.Numeric
	Description pgtype.Text
}

func (q *Queries) UpdateService(ctx context.Context, arg UpdateServiceParams) (Service, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE services
		SET name = $2, price_per_kg = $3, description = $4, updated_at = now()
		WHERE id = $1
		RETURNING `+serviceColumns,
		arg.ID, arg.Name, arg.PricePerKg, arg.Description,
	)
	return scanService(row)
}

// ArchiveService soft-deletes a catalog entry. Existing orders keep their
// reference.
func (q *Queries) ArchiveService(ctx context.Context, id uuid.UUID) (Service, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE services SET is_archived = true, updated_at = now()
		WHERE id = $1
		RETURNING `+serviceColumns, id)
	return scanService(row)
}
