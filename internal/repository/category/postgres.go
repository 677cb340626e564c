package category

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"petshop/internal/domain"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) List(ctx context.Context) ([]domain.Category, error) {
	const q = `
SELECT id, key, name, slug, created_at
FROM categories
ORDER BY name ASC
`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Key, &c.Name, &c.Slug, &c.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *postgresRepo) GetByKey(ctx context.Context, key string) (*domain.Category, error) {
	const q = `SELECT id, key, name, slug, created_at FROM categories WHERE key = $1`
	var c domain.Category
	if err := r.pool.QueryRow(ctx, q, key).Scan(&c.ID, &c.Key, &c.Name, &c.Slug, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *postgresRepo) Upsert(ctx context.Context, c domain.Category) (*domain.Category, error) {
	const q = `
INSERT INTO categories (key, name, slug)
VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE
SET name = EXCLUDED.name,
    slug = COALESCE(NULLIF(EXCLUDED.slug, ''), categories.slug)
RETURNING id, slug, created_at
`
	out := domain.Category{Key: c.Key, Name: c.Name}
	if err := r.pool.QueryRow(ctx, q, c.Key, c.Name, c.Slug).Scan(&out.ID, &out.Slug, &out.CreatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}
