package earnings

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/MikeMC777/backoffice-resto/internal/order"
)

type Repository interface {
	// Rows returns every assignment of active drivers joined to its order.
	// An empty driverID means all active drivers.
	Rows(ctx context.Context, driverID string) ([]Row, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) Rows(ctx context.Context, driverID string) ([]Row, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT d.id, d.name, o.id, o.status, o.total::text, o.created_at
		FROM drivers d
		LEFT JOIN order_driver_assignments a ON a.driver_id = d.id
		LEFT JOIN orders o ON o.id = a.order_id
		WHERE d.active AND ($1 = '' OR d.id::text = $1)
		ORDER BY d.name, o.created_at
	`, driverID)
	if err != nil {
		return nil, fmt.Errorf("query earnings rows: %w", err)
	}
	defer rows.Close()

	out := []Row{}
	for rows.Next() {
		var (
			row     Row
			orderID *string
			status  *string
			total   *string
			created *time.Time
		)
		if err := rows.Scan(&row.DriverID, &row.DriverName, &orderID, &status, &total, &created); err != nil {
			return nil, err
		}
		if orderID != nil {
			row.OrderID = *orderID
			row.OrderStatus = order.Status(*status)
			row.OrderCreatedAt = *created
			if row.OrderTotal, err = decimal.NewFromString(*total); err != nil {
				return nil, fmt.Errorf("order %s total: %w", row.OrderID, err)
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
