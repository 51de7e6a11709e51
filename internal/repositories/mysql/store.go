// Package mysql implements repositories.Store on database/sql with the
// go-sql-driver/mysql driver. Multi-step mutations run in a transaction that
// locks the ride row with SELECT ... FOR UPDATE.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"campusride/internal/domain/models"
	"campusride/internal/repositories"

	driver "github.com/go-sql-driver/mysql"
)

const errDuplicateEntry = 1062

type Store struct {
	DB  *sql.DB
	now func() time.Time
}

var _ repositories.Store = (*Store)(nil)

type Option func(*Store)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		DB:  db,
		now: func() time.Time { return time.Now().UTC().Truncate(time.Second) },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Ping(ctx context.Context) error {
	if s.DB == nil {
		return errors.New("database not connected")
	}
	return s.DB.PingContext(ctx)
}

func (s *Store) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// mapErr turns driver errors into repository sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repositories.ErrNotFound
	}
	var myErr *driver.MySQLError
	if errors.As(err, &myErr) && myErr.Number == errDuplicateEntry {
		return repositories.ErrDuplicate
	}
	return err
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// seatHoldingIn renders the seat-holding statuses as a SQL IN list.
func seatHoldingIn() string {
	parts := make([]string, 0, len(models.SeatHoldingStatuses))
	for _, st := range models.SeatHoldingStatuses {
		parts = append(parts, "'"+string(st)+"'")
	}
	return "(" + strings.Join(parts, ",") + ")"
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
