package delivery

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrOrderNotFound = errors.New("order not found")

// Record is State plus the bcrypt hash of the code.
type Record struct {
	State
	Hash string
}

type Store interface {
	Load(ctx context.Context, orderID string) (*Record, error)
	SaveCode(ctx context.Context, orderID, hash string, generatedAt, expiresAt time.Time) error
	MarkConfirmed(ctx context.Context, orderID, by string, at time.Time) error
}

type PGStore struct{ db *pgxpool.Pool }

func NewPGStore(db *pgxpool.Pool) *PGStore { return &PGStore{db: db} }

func (s *PGStore) Load(ctx context.Context, orderID string) (*Record, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var (
		r    Record
		hash *string
	)
	err := s.db.QueryRow(ctx, `
		SELECT id, delivery_code_hash, code_generated_at, code_expires_at, code_confirmed_at, code_confirmed_by
		FROM orders WHERE id = $1
	`, orderID).Scan(&r.OrderID, &hash, &r.GeneratedAt, &r.ExpiresAt, &r.ConfirmedAt, &r.ConfirmedBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if hash != nil {
		r.Hash = *hash
	}
	return &r, nil
}

// SaveCode replaces any previous unconfirmed code.
func (s *PGStore) SaveCode(ctx context.Context, orderID, hash string, generatedAt, expiresAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := s.db.Exec(ctx, `
		UPDATE orders
		SET delivery_code_hash = $2, code_generated_at = $3, code_expires_at = $4, updated_at = NOW()
		WHERE id = $1 AND code_confirmed_at IS NULL
	`, orderID, hash, generatedAt, expiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyConfirmed
	}
	return nil
}

func (s *PGStore) MarkConfirmed(ctx context.Context, orderID, by string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := s.db.Exec(ctx, `
		UPDATE orders
		SET code_confirmed_at = $2, code_confirmed_by = $3, updated_at = NOW()
		WHERE id = $1 AND code_confirmed_at IS NULL
	`, orderID, at, by)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyConfirmed
	}
	return nil
}
