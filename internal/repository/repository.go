package repository

import (
	"context"
	"database/sql"
	"time"

	"controlling_roaster/internal/models"
)

type Authorization interface {
	Create(ctx context.Context, username, hash string) (int, error)
	GetByUsername(ctx context.Context, username string) (*models.Operator, error)
}

// EventRepo is the append-only audit log of control actions.
type EventRepo interface {
	Append(ctx context.Context, e models.RoasterEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.RoasterEvent, error)
}

type Repository struct {
	EventRepo EventRepo
	Auth      Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		EventRepo: NewEventSQLite(db),
		Auth:      NewOperatorSQLite(db),
	}
}
