package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/iliyamo/shop-api/internal/model"
)

// ProductRepo persists products in the `products` table.  Mutations that
// depend on the current row (update, delete) run inside a transaction that
// locks the row with SELECT ... FOR UPDATE, so the ownership check and the
// write observe the same state.
type ProductRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewProductRepo returns a ProductRepo bound to db.
func NewProductRepo(db *sql.DB) *ProductRepo {
	return &ProductRepo{db: db, now: utcSeconds}
}

// ProductQuery filters and pages a product listing.  Page is zero based.
type ProductQuery struct {
	Category string
	Page     int
	Size     int
}

// Offset returns the number of rows to skip, saturating at math.MaxInt
// instead of wrapping for very large pages.
func (q ProductQuery) Offset() int {
	if q.Page <= 0 || q.Size <= 0 {
		return 0
	}
	if q.Page > math.MaxInt/q.Size {
		return math.MaxInt
	}
	return q.Page * q.Size
}

const productColumns = "id, name, description, price, stock, category, owner_id, created_at, updated_at"

// Create inserts p, populating ID and timestamps.
func (r *ProductRepo) Create(ctx context.Context, p *model.Product) error {
	now := r.now()
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO products (name, description, price, stock, category, owner_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		p.Name, p.Description, p.Price, p.Stock, p.Category, nullOwner(p.OwnerID), now, now)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	p.ID = uint64(id)
	p.CreatedAt, p.UpdatedAt = now, now
	return nil
}

// GetByID fetches a single product.
func (r *ProductRepo) GetByID(ctx context.Context, id uint64) (*model.Product, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = ?", id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// List returns one page of products ordered by id together with the
// total number of rows matching the filter.
func (r *ProductRepo) List(ctx context.Context, q ProductQuery) ([]model.Product, int64, error) {
	where := ""
	args := []any{}
	if q.Category != "" {
		where = " WHERE category = ?"
		args = append(args, q.Category)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+productColumns+" FROM products"+where+" ORDER BY id ASC LIMIT ? OFFSET ?",
		append(args, q.Size, q.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	items := make([]model.Product, 0, q.Size)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		items = append(items, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	return items, total, nil
}

// Update replaces the mutable fields of product id.  authorize, when
// non-nil, sees the locked row before anything is written.
func (r *ProductRepo) Update(ctx context.Context, id uint64, f model.ProductFields, authorize Authorizer) (*model.Product, error) {
	var out *model.Product
	err := r.withLockedProduct(ctx, id, authorize, func(tx *sql.Tx, p *model.Product) error {
		p.Apply(f)
		p.UpdatedAt = r.now()
		_, err := tx.ExecContext(ctx,
			"UPDATE products SET name = ?, description = ?, price = ?, stock = ?, category = ?, updated_at = ? WHERE id = ?",
			p.Name, p.Description, p.Price, p.Stock, p.Category, p.UpdatedAt, p.ID)
		if err != nil {
			return fmt.Errorf("update product: %w", err)
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes product id and returns the row as it was before deletion.
func (r *ProductRepo) Delete(ctx context.Context, id uint64, authorize Authorizer) (*model.Product, error) {
	var out *model.Product
	err := r.withLockedProduct(ctx, id, authorize, func(tx *sql.Tx, p *model.Product) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM products WHERE id = ?", p.ID); err != nil {
			return fmt.Errorf("delete product: %w", err)
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ProductRepo) withLockedProduct(ctx context.Context, id uint64, authorize Authorizer, fn func(*sql.Tx, *model.Product) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	row := tx.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = ? FOR UPDATE", id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("lock product: %w", err)
	}
	if authorize != nil {
		if err := authorize(*p); err != nil {
			return err
		}
	}
	if err := fn(tx, p); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(s rowScanner) (*model.Product, error) {
	var (
		p     model.Product
		owner sql.NullInt64
	)
	if err := s.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.Category, &owner, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if owner.Valid {
		p.OwnerID = uint64(owner.Int64)
	}
	return &p, nil
}

func nullOwner(id uint64) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(id), Valid: id != 0}
}

// utcSeconds matches the DATETIME precision of the schema.
func utcSeconds() time.Time { return time.Now().UTC().Truncate(time.Second) }
