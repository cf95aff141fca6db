package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Customer mirrors a hosted-auth user who placed orders. The ID is the auth
// provider's user ID, not a locally generated one.
type Customer struct {
	ID        uuid.UUID
	FullName  string
	Phone     pgtype.Text
	Email     string
	Address   pgtype.Text
	CreatedAt time.Time
}

type Staff struct {
	ID             uuid.UUID
	FullName       string
	Email          string
	HashedPassword string
	CreatedAt      time.Time
}

type Service struct {
	ID          uuid.UUID
	Name        string
	PricePerKg  pgtype.Numeric
	Description pgtype.Text
	IsArchived  bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Order struct {
	ID              uuid.UUID
	CustomerID      uuid.UUID
	ServiceID       uuid.UUID
	PaymentMethod   string
	PaymentStatus   string
	Status          string
	EstimatedWeight pgtype.Numeric
	ActualWeight    pgtype.Numeric
	TotalAmount     pgtype.Numeric
	Notes           pgtype.Text
	PickupAddress   string
	CompletionAt    pgtype.Timestamptz
	CancelledAt     pgtype.Timestamptz
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type StatusHistory struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	Status      string
	Description string
	CreatedAt   time.Time
}

type Announcement struct {
	ID        uuid.UUID
	Title     string
	Content   string
	Category  string
	StartsAt  pgtype.Timestamptz
	EndsAt    pgtype.Timestamptz
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Notification struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	OrderID   uuid.UUID
	Type      string
	Content   string
	IsRead    bool
	CreatedAt time.Time
}

type Payment struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	Method    string
	Amount    pgtype.Numeric
	Reference pgtype.Text
	PaidAt    time.Time
}

type Review struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	CustomerID uuid.UUID
	Rating     int32
	Comment    pgtype.Text
	CreatedAt  time.Time
}
