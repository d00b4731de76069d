package driver

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeMC777/backoffice-resto/internal/order"
)

var (
	ErrNotFound = errors.New("driver not found")
	// ErrOrderAssigned is returned when the order already has an open assignment.
	ErrOrderAssigned = errors.New("order already has an open driver assignment")
)

type Repository interface {
	Create(ctx context.Context, d *Driver) error
	GetByID(ctx context.Context, id string) (*Driver, error)
	ListActive(ctx context.Context) ([]Driver, error)
	ListAvailable(ctx context.Context) ([]Driver, error)
	SetFlags(ctx context.Context, id string, f Flags) error
	UpdatePosition(ctx context.Context, id string, lat, lng float64, at time.Time) error
	OpenAssignmentForDriver(ctx context.Context, driverID string) (*order.Assignment, error)
	InsertAssignment(ctx context.Context, a *order.Assignment) error
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

const driverColumns = `id, name, phone, active, available, lat, lng, position_updated_at, created_at`

func scanDrivers(rows pgx.Rows) ([]Driver, error) {
	defer rows.Close()
	out := []Driver{}
	for rows.Next() {
		var d Driver
		if err := rows.Scan(&d.ID, &d.Name, &d.Phone, &d.Active, &d.Available,
			&d.Lat, &d.Lng, &d.PositionUpdatedAt, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *PGRepo) Create(ctx context.Context, d *Driver) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return r.db.QueryRow(ctx, `
		INSERT INTO drivers (id, name, phone, active, available, created_at)
		VALUES ($1,$2,$3,$4,$5,NOW())
		RETURNING created_at
	`, d.ID, d.Name, d.Phone, d.Active, d.Available).Scan(&d.CreatedAt)
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (*Driver, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var d Driver
	err := r.db.QueryRow(ctx, `SELECT `+driverColumns+` FROM drivers WHERE id=$1`, id).
		Scan(&d.ID, &d.Name, &d.Phone, &d.Active, &d.Available, &d.Lat, &d.Lng, &d.PositionUpdatedAt, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *PGRepo) ListActive(ctx context.Context) ([]Driver, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `SELECT `+driverColumns+` FROM drivers WHERE active ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return scanDrivers(rows)
}

// ListAvailable reads the available set in one statement so the busy check
// and the flag check see the same snapshot.
func (r *PGRepo) ListAvailable(ctx context.Context) ([]Driver, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT `+driverColumns+`
		FROM drivers d
		WHERE d.active AND d.available
		  AND NOT EXISTS (
		      SELECT 1 FROM order_driver_assignments a
		      WHERE a.driver_id = d.id AND a.delivered_at IS NULL
		  )
		ORDER BY d.name
	`)
	if err != nil {
		return nil, err
	}
	return scanDrivers(rows)
}

func (r *PGRepo) SetFlags(ctx context.Context, id string, f Flags) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE drivers
		SET active    = COALESCE($2, active),
		    available = COALESCE($3, available)
		WHERE id = $1
	`, id, f.Active, f.Available)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) UpdatePosition(ctx context.Context, id string, lat, lng float64, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE drivers SET lat = $2, lng = $3, position_updated_at = $4 WHERE id = $1
	`, id, lat, lng, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) OpenAssignmentForDriver(ctx context.Context, driverID string) (*order.Assignment, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var a order.Assignment
	err := r.db.QueryRow(ctx, `
		SELECT id, order_id, driver_id, assigned_at, picked_up_at, delivered_at
		FROM order_driver_assignments
		WHERE driver_id = $1 AND delivered_at IS NULL
		ORDER BY assigned_at DESC
		LIMIT 1
	`, driverID).Scan(&a.ID, &a.OrderID, &a.DriverID, &a.AssignedAt, &a.PickedUpAt, &a.DeliveredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *PGRepo) InsertAssignment(ctx context.Context, a *order.Assignment) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO order_driver_assignments (id, order_id, driver_id, assigned_at)
		VALUES ($1,$2,$3,$4)
	`, a.ID, a.OrderID, a.DriverID, a.AssignedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrOrderAssigned
	}
	return err
}
