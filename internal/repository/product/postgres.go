package product

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"petshop/internal/domain"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

const productColumns = `id, category_id, sku, name, description, price::text, currency, image_url, active, created_at`

func scanProduct(row pgx.Row) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.CategoryID, &p.SKU, &p.Name, &p.Description, &p.Price, &p.Currency, &p.ImageURL, &p.Active, &p.CreatedAt)
	return p, err
}

func (r *postgresRepo) List(ctx context.Context, filter ListFilter) ([]domain.Product, error) {
	var (
		where []string
		args  []any
	)
	if filter.ActiveOnly {
		where = append(where, "active")
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		where = append(where, "category_id = $1")
	}
	q := `SELECT ` + productColumns + ` FROM products`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		r.logger.Printf("product repo: list error=%v", err)
		return nil, err
	}
	defer rows.Close()

	var result []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		r.logger.Printf("product repo: list rows error=%v", err)
		return nil, err
	}
	r.logger.Printf("product repo: list count=%d", len(result))
	return result, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	p, err := scanProduct(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Printf("product repo: get id=%d not found", id)
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("product repo: get id=%d error=%v", id, err)
		return nil, err
	}
	return &p, nil
}

func (r *postgresRepo) GetByIDs(ctx context.Context, ids []int64) (map[int64]domain.Product, error) {
	result := make(map[int64]domain.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	q := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`
	rows, err := r.pool.Query(ctx, q, ids)
	if err != nil {
		r.logger.Printf("product repo: get many count=%d error=%v", len(ids), err)
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	r.logger.Printf("product repo: get many requested=%d found=%d", len(ids), len(result))
	return result, nil
}

// Upsert inserts a product or updates the one with the same SKU.
func (r *postgresRepo) Upsert(ctx context.Context, product domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (category_id, sku, name, description, price, currency, image_url, active)
VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8)
ON CONFLICT (sku) DO UPDATE SET
    category_id = EXCLUDED.category_id,
    name = EXCLUDED.name,
    description = EXCLUDED.description,
    price = EXCLUDED.price,
    currency = EXCLUDED.currency,
    image_url = EXCLUDED.image_url,
    active = EXCLUDED.active
RETURNING id, created_at
`
	res := product
	err := r.pool.QueryRow(ctx, q,
		product.CategoryID,
		product.SKU,
		product.Name,
		product.Description,
		product.Price.StringFixed(2),
		product.Currency,
		product.ImageURL,
		product.Active,
	).Scan(&res.ID, &res.CreatedAt)
	if err != nil {
		r.logger.Printf("product repo: upsert sku=%s error=%v", product.SKU, err)
		return nil, err
	}
	res.Price = product.Price.Round(2)
	r.logger.Printf("product repo: upserted sku=%s id=%d", res.SKU, res.ID)
	return &res, nil
}
