package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const announcementColumns = `id, title, content, category, starts_at, ends_at, is_active, created_at, updated_at`

func scanAnnouncement(row pgx.Row) (Announcement, error) {
	var a Announcement
	err := row.Scan(&a.ID, &a.Title, &a.Content, &a.Category, &a.StartsAt, &a.EndsAt, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

type CreateAnnouncementParams struct {
	Title    string
	Content  string
	Category string
	StartsAt pgtype.Timestamptz
	EndsAt   pgtype.Timestamptz
	IsActive bool
}

func (q *Queries) CreateAnnouncement(ctx context.Context, arg CreateAnnouncementParams) (Announcement, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO announcements (title, content, category, starts_at, ends_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+announcementColumns,
		arg.Title, arg.Content, arg.Category, arg.StartsAt, arg.EndsAt, arg.IsActive,
	)
	return scanAnnouncement(row)
}

func (q *Queries) GetAnnouncement(ctx context.Context, id uuid.UUID) (Announcement, error) {
	row := q.db.QueryRow(ctx, `SELECT `+announcementColumns+` FROM announcements WHERE id = $1`, id)
	return scanAnnouncement(row)
}

func (q *Queries) collectAnnouncements(rows pgx.Rows) ([]Announcement, error) {
	defer rows.Close()
	var announcements []Announcement
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, err
		}
		announcements = append(announcements, a)
	}
	return announcements, rows.Err()
}

func (q *Queries) ListAnnouncements(ctx context.Context) ([]Announcement, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+announcementColumns+` FROM announcements
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return q.collectAnnouncements(rows)
}

// ListActiveAnnouncements returns announcements inside their active window.
// Null start/end dates are open-ended.
func (q *Queries) ListActiveAnnouncements(ctx context.Context) ([]Announcement, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+announcementColumns+` FROM announcements
		WHERE is_active
		  AND (starts_at IS NULL OR starts_at <= now())
		  AND (ends_at IS NULL OR ends_at >= now())
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return q.collectAnnouncements(rows)
}

type UpdateAnnouncementParams struct {
	ID       uuid.UUID
	Title    string
	Content  string
	Category string
	StartsAt pgtype.Timestamptz
	EndsAt   pgtype.Timestamptz
	IsActive bool
}

func (q *Queries) UpdateAnnouncement(ctx context.Context, arg UpdateAnnouncementParams) (Announcement, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE announcements
		SET title = $2, content = $3, category = $4, starts_at = $5, ends_at = $6,
		    is_active = $7, updated_at = now()
		WHERE id = $1
		RETURNING `+announcementColumns,
		arg.ID, arg.Title, arg.Content, arg.Category, arg.StartsAt, arg.EndsAt, arg.IsActive,
	)
	return scanAnnouncement(row)
}

func (q *Queries) DeleteAnnouncement(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM announcements WHERE id = $1`, id)
	return err
}
