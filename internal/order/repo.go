package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("order not found")
)

type Repository interface {
	// CreateWithItems writes the order, its items and any notes in one transaction.
	CreateWithItems(ctx context.Context, o *Order, items []Item, notes ...string) error
	GetByID(ctx context.Context, id string) (*Order, []Item, error)
	GetItems(ctx context.Context, orderID string) ([]Item, error)
	List(ctx context.Context, f Filter) ([]Order, error)
	OpenAssignment(ctx context.Context, orderID string) (*Assignment, error)
	ApplyTransition(ctx context.Context, t Transition) error
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

const orderColumns = `
	id, customer_id, customer_name, customer_phone, order_type, address, lat, lng,
	subtotal::text, delivery_fee::text, total::text, status,
	payment_method, tendered_amount::text, change_amount::text, payment_reference, notes,
	created_at, updated_at, accepted_at, ready_at, picked_up_at, in_transit_at,
	actual_delivery_time, cancelled_at,
	code_generated_at, code_expires_at, code_confirmed_at, code_confirmed_by`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.CustomerID, &o.CustomerName, &o.CustomerPhone, &o.Type, &o.Address, &o.Lat, &o.Lng,
		&o.Subtotal, &o.DeliveryFee, &o.Total, &o.Status,
		&o.PaymentMethod, &o.TenderedAmount, &o.ChangeAmount, &o.PaymentReference, &o.Notes,
		&o.CreatedAt, &o.UpdatedAt, &o.AcceptedAt, &o.ReadyAt, &o.PickedUpAt, &o.InTransitAt,
		&o.ActualDeliveryTime, &o.CancelledAt,
		&o.CodeGeneratedAt, &o.CodeExpiresAt, &o.CodeConfirmedAt, &o.CodeConfirmedBy,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *PGRepo) CreateWithItems(ctx context.Context, o *Order, items []Item, notes ...string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		INSERT INTO orders (id, customer_id, customer_name, customer_phone, order_type, address, lat, lng,
		                    subtotal, delivery_fee, total, status, payment_method,
		                    tendered_amount, change_amount, payment_reference, notes, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,NOW(),NOW())
	`, o.ID, o.CustomerID, o.CustomerName, o.CustomerPhone, o.Type, o.Address, o.Lat, o.Lng,
		o.Subtotal, o.DeliveryFee, o.Total, o.Status, o.PaymentMethod,
		o.TenderedAmount, o.ChangeAmount, o.PaymentReference, o.Notes); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, it := range items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, menu_item_id, name, quantity, unit_price, total_price,
			                         instructions, extras, garnitures)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		`, it.ID, o.ID, it.MenuItemID, it.Name, it.Quantity, it.UnitPrice, it.TotalPrice,
			it.Instructions, nonNil(it.Extras), nonNil(it.Garnitures)); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	for _, n := range notes {
		if _, err := tx.Exec(ctx, `
			INSERT INTO notifications (id, audience, order_id, message, created_at)
			VALUES ($1,'order',$2,$3,NOW())
		`, uuid.NewString(), o.ID, n); err != nil {
			return fmt.Errorf("insert notification: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func nonNil(s []SupplementSelection) []SupplementSelection {
	if s == nil {
		return []SupplementSelection{}
	}
	return s
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (*Order, []Item, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	o, err := scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	items, err := r.GetItems(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return o, items, nil
}

func (r *PGRepo) GetItems(ctx context.Context, orderID string) ([]Item, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT id, order_id, menu_item_id, name, quantity, unit_price::text, total_price::text,
		       instructions, extras, garnitures
		FROM order_items
		WHERE order_id = $1
		ORDER BY name
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.Name, &it.Quantity,
			&it.UnitPrice, &it.TotalPrice, &it.Instructions, &it.Extras, &it.Garnitures); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *PGRepo) List(ctx context.Context, f Filter) ([]Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if len(f.Statuses) > 0 {
		ss := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			ss[i] = string(s)
		}
		where = append(where, "status = ANY("+arg(ss)+")")
	}
	if f.Type != "" {
		where = append(where, "order_type = "+arg(string(f.Type)))
	}
	if f.From != nil {
		where = append(where, "created_at >= "+arg(*f.From))
	}
	if f.To != nil {
		where = append(where, "created_at < "+arg(*f.To))
	}
	if q := strings.TrimSpace(f.Q); q != "" {
		p := arg(q)
		where = append(where, "(customer_name ILIKE '%'||"+p+"||'%' OR customer_phone ILIKE '%'||"+p+"||'%' OR id::text LIKE "+p+"||'%')")
	}

	sql := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += " ORDER BY created_at DESC LIMIT " + arg(limit) + " OFFSET " + arg(offset)

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (r *PGRepo) OpenAssignment(ctx context.Context, orderID string) (*Assignment, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var a Assignment
	err := r.db.QueryRow(ctx, `
		SELECT id, order_id, driver_id, assigned_at, picked_up_at, delivered_at
		FROM order_driver_assignments
		WHERE order_id = $1 AND delivered_at IS NULL
		ORDER BY assigned_at DESC
		LIMIT 1
	`, orderID).Scan(&a.ID, &a.OrderID, &a.DriverID, &a.AssignedAt, &a.PickedUpAt, &a.DeliveredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ApplyTransition writes the status, its timestamp column and the assignment
// side effects in a single transaction. There is no version check: the last
// writer wins.
func (r *PGRepo) ApplyTransition(ctx context.Context, t Transition) error {
	col := TimestampColumn(t.To)
	if col == "" {
		return fmt.Errorf("%w: %s", ErrInvalidTransition, t.To)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// col comes from TimestampColumn's fixed set, never from input.
	tag, err := tx.Exec(ctx, `
		UPDATE orders SET status = $2, `+col+` = $3, updated_at = NOW()
		WHERE id = $1
	`, t.OrderID, t.To, t.At)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	switch t.To {
	case StatusPickedUp:
		if _, err := tx.Exec(ctx, `
			UPDATE order_driver_assignments SET picked_up_at = $2
			WHERE order_id = $1 AND delivered_at IS NULL
		`, t.OrderID, t.At); err != nil {
			return fmt.Errorf("stamp pickup: %w", err)
		}
	case StatusDelivered, StatusCancelled:
		// A cancelled order releases its driver the same way a delivery does.
		if _, err := tx.Exec(ctx, `
			UPDATE order_driver_assignments SET delivered_at = $2
			WHERE order_id = $1 AND delivered_at IS NULL
		`, t.OrderID, t.At); err != nil {
			return fmt.Errorf("close assignment: %w", err)
		}
	}

	if t.Note != "" {
		if _, err := tx.Exec(ctx, `
			INSERT INTO notifications (id, audience, order_id, message, created_at)
			VALUES ($1,'order',$2,$3,$4)
		`, uuid.NewString(), t.OrderID, t.Note, t.At); err != nil {
			return fmt.Errorf("insert note: %w", err)
		}
	}
	return tx.Commit(ctx)
}
