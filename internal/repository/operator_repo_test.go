package repository

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestOperatorSQLite_CreateAndGet(t *testing.T) {
	repo := NewOperatorSQLite(openTestDB(t))
	created := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return created }

	id, err := repo.Create(ctx(t), "roastmaster", "$2a$10$hash")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id <= 0 {
		t.Fatalf("id=%d; want positive", id)
	}

	op, err := repo.GetByUsername(ctx(t), "roastmaster")
	if err != nil || op == nil {
		t.Fatalf("GetByUsername: op=%v err=%v", op, err)
	}
	if op.ID != id || op.PasswordHash != "$2a$10$hash" || !op.CreatedAt.Equal(created) {
		t.Fatalf("unexpected operator: %+v", op)
	}

	if _, err := repo.Create(ctx(t), "roastmaster", "other"); !errors.Is(err, ErrOperatorExists) {
		t.Fatalf("duplicate: err=%v; want ErrOperatorExists", err)
	}

	missing, err := repo.GetByUsername(ctx(t), "nobody")
	if err != nil || missing != nil {
		t.Fatalf("missing operator: op=%v err=%v; want nil, nil", missing, err)
	}
}

func TestOperatorSQLite_DriverErrors(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer conn.Close()
	repo := NewOperatorSQLite(conn)

	mock.ExpectExec(regexp.QuoteMeta(insertOperatorSQL)).
		WithArgs("bob", "h", sqlmock.AnyArg()).
		WillReturnError(errors.New("disk I/O error"))
	if _, err := repo.Create(ctx(t), "bob", "h"); err == nil || errors.Is(err, ErrOperatorExists) {
		t.Fatalf("exec failure: err=%v", err)
	}

	mock.ExpectExec(regexp.QuoteMeta(insertOperatorSQL)).
		WithArgs("carol", "h", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewErrorResult(errors.New("no last id")))
	if _, err := repo.Create(ctx(t), "carol", "h"); err == nil {
		t.Fatal("expected LastInsertId error")
	}

	mock.ExpectQuery(regexp.QuoteMeta(selectOperatorSQL)).
		WithArgs("dave").
		WillReturnError(errors.New("database is locked"))
	if _, err := repo.GetByUsername(ctx(t), "dave"); err == nil {
		t.Fatal("expected query error")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}
