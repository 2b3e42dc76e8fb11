package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"controlling_roaster/internal/models"
)

// ErrOperatorExists is returned by Create for a taken username.
var ErrOperatorExists = errors.New("operator already exists")

// OperatorSQLite stores operator accounts.
type OperatorSQLite struct {
	db  *sql.DB
	now func() time.Time
}

func NewOperatorSQLite(db *sql.DB) *OperatorSQLite {
	return &OperatorSQLite{db: db, now: time.Now}
}

var _ Authorization = (*OperatorSQLite)(nil)

const (
	insertOperatorSQL = `INSERT INTO operators (username, password_hash, created_at) VALUES (?, ?, ?)`
	selectOperatorSQL = `SELECT id, username, password_hash, created_at FROM operators WHERE username = ?`
)

// Create inserts an operator and returns its id.
func (r *OperatorSQLite) Create(ctx context.Context, username, passwordHash string) (int, error) {
	res, err := r.db.ExecContext(ctx, insertOperatorSQL, username, passwordHash, formatEventTime(r.now()))
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %q", ErrOperatorExists, username)
		}
		return 0, fmt.Errorf("insert operator %q: %w", username, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("operator %q id: %w", username, err)
	}
	return int(id), nil
}

// GetByUsername returns (nil, nil) when no such operator exists.
func (r *OperatorSQLite) GetByUsername(ctx context.Context, username string) (*models.Operator, error) {
	var (
		op      models.Operator
		created string
	)
	err := r.db.QueryRowContext(ctx, selectOperatorSQL, username).Scan(&op.ID, &op.Username, &op.PasswordHash, &created)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("select operator %q: %w", username, err)
	}
	if op.CreatedAt, err = parseEventTime(created); err != nil {
		return nil, fmt.Errorf("operator %q created_at: %w", username, err)
	}
	return &op, nil
}

// SQLite reports constraint failures only through the message text.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
