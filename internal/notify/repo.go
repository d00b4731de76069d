package notify

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Insert(ctx context.Context, m *Message) error
	ListForOrder(ctx context.Context, orderID string) ([]Message, error)
	ListForDriver(ctx context.Context, driverID string, limit int) ([]Message, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *PGRepo) Insert(ctx context.Context, m *Message) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO notifications (id, audience, order_id, driver_id, message, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, m.ID, m.Audience, nullable(m.OrderID), nullable(m.DriverID), m.Text, m.CreatedAt)
	return err
}

func (r *PGRepo) ListForOrder(ctx context.Context, orderID string) ([]Message, error) {
	return r.list(ctx, `
		SELECT id, audience, COALESCE(order_id::text,''), COALESCE(driver_id::text,''), message, created_at
		FROM notifications WHERE order_id = $1 ORDER BY created_at ASC
	`, orderID)
}

func (r *PGRepo) ListForDriver(ctx context.Context, driverID string, limit int) ([]Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return r.list(ctx, `
		SELECT id, audience, COALESCE(order_id::text,''), COALESCE(driver_id::text,''), message, created_at
		FROM notifications WHERE driver_id = $1 ORDER BY created_at DESC LIMIT $2
	`, driverID, limit)
}

func (r *PGRepo) list(ctx context.Context, sql string, args ...any) ([]Message, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Audience, &m.OrderID, &m.DriverID, &m.Text, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Kind = KindNote
		out = append(out, m)
	}
	return out, rows.Err()
}
