package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound           = errors.New("menu item not found")
	ErrCategoryNotFound   = errors.New("category not found")
	ErrSupplementNotFound = errors.New("supplement not found")
)

type Repository interface {
	CreateItem(ctx context.Context, m *MenuItem) error
	GetItem(ctx context.Context, id string) (*MenuItem, error)
	ListItems(ctx context.Context, q Query) ([]MenuItem, error)
	UpdateItem(ctx context.Context, m *MenuItem, updatePrice bool) error
	SetItemAvailable(ctx context.Context, id string, available bool) error

	CreateCategory(ctx context.Context, c *Category) error
	ListCategories(ctx context.Context) ([]Category, error)

	CreateSupplement(ctx context.Context, s *Supplement) error
	Supplements(ctx context.Context, menuItemID string) ([]Supplement, error)
	SetSupplementAvailable(ctx context.Context, id string, available bool) error
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

const itemColumns = `id, category_id, name, description, price::text, stock, available, created_at, updated_at`

func scanItem(row pgx.Row) (*MenuItem, error) {
	var m MenuItem
	if err := row.Scan(&m.ID, &m.CategoryID, &m.Name, &m.Description, &m.Price, &m.Stock,
		&m.Available, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *PGRepo) CreateItem(ctx context.Context, m *MenuItem) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return r.db.QueryRow(ctx, `
		INSERT INTO menu_items (id, category_id, name, description, price, stock, available, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NOW(),NOW())
		RETURNING created_at, updated_at
	`, m.ID, m.CategoryID, m.Name, m.Description, m.Price, m.Stock, m.Available).Scan(&m.CreatedAt, &m.UpdatedAt)
}

func (r *PGRepo) GetItem(ctx context.Context, id string) (*MenuItem, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	m, err := scanItem(r.db.QueryRow(ctx, `SELECT `+itemColumns+` FROM menu_items WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return m, err
}

func (r *PGRepo) ListItems(ctx context.Context, q Query) ([]MenuItem, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	limit := q.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	search := strings.TrimSpace(q.Q)

	rows, err := r.db.Query(ctx, `
		SELECT `+itemColumns+`
		FROM menu_items
		WHERE ($1 = '' OR name ILIKE '%'||$1||'%' OR description ILIKE '%'||$1||'%')
		  AND ($2 = '' OR category_id::text = $2)
		  AND (NOT $3 OR available)
		ORDER BY name
		LIMIT $4 OFFSET $5
	`, search, q.CategoryID, q.AvailableOnly, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []MenuItem{}
	for rows.Next() {
		m, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (r *PGRepo) UpdateItem(ctx context.Context, m *MenuItem, updatePrice bool) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var (
		tag pgconn.CommandTag
		err error
	)
	if updatePrice {
		tag, err = r.db.Exec(ctx, `
			UPDATE menu_items
			SET name = COALESCE(NULLIF($2,''), name),
			    description = COALESCE(NULLIF($3,''), description),
			    price = $4,
			    stock = $5,
			    updated_at = NOW()
			WHERE id = $1
		`, m.ID, m.Name, m.Description, m.Price, m.Stock)
	} else {
		tag, err = r.db.Exec(ctx, `
			UPDATE menu_items
			SET name = COALESCE(NULLIF($2,''), name),
			    description = COALESCE(NULLIF($3,''), description),
			    stock = $4,
			    updated_at = NOW()
			WHERE id = $1
		`, m.ID, m.Name, m.Description, m.Stock)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) SetItemAvailable(ctx context.Context, id string, available bool) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `UPDATE menu_items SET available=$2, updated_at=NOW() WHERE id=$1`, id, available)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) CreateCategory(ctx context.Context, c *Category) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO categories (id, name, position, available) VALUES ($1,$2,$3,$4)
	`, c.ID, c.Name, c.Position, c.Available)
	return err
}

func (r *PGRepo) ListCategories(ctx context.Context) ([]Category, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `SELECT id, name, position, available FROM categories ORDER BY position, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Position, &c.Available); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PGRepo) CreateSupplement(ctx context.Context, s *Supplement) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO supplements (id, menu_item_id, name, kind, price, obligatory, available)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, s.ID, s.MenuItemID, s.Name, s.Kind, s.Price, s.Obligatory, s.Available)
	return err
}

func (r *PGRepo) Supplements(ctx context.Context, menuItemID string) ([]Supplement, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT id, menu_item_id, name, kind, price::text, obligatory, available
		FROM supplements
		WHERE menu_item_id = $1
		ORDER BY kind, name
	`, menuItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Supplement{}
	for rows.Next() {
		var s Supplement
		if err := rows.Scan(&s.ID, &s.MenuItemID, &s.Name, &s.Kind, &s.Price, &s.Obligatory, &s.Available); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PGRepo) SetSupplementAvailable(ctx context.Context, id string, available bool) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `UPDATE supplements SET available=$2 WHERE id=$1`, id, available)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSupplementNotFound
	}
	return nil
}
