package cart

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

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

func (r *postgresRepo) GetOrCreateActive(ctx context.Context, userID int64) (*domain.Cart, error) {
	const insert = `
INSERT INTO carts (user_id, state)
VALUES ($1, 'active')
ON CONFLICT (user_id) WHERE state = 'active' DO NOTHING
`
	if _, err := r.pool.Exec(ctx, insert, userID); err != nil {
		r.logger.Printf("cart repo: create user_id=%d error=%v", userID, err)
		return nil, err
	}
	const cartQuery = `
SELECT id, user_id, state, created_at
FROM carts
WHERE user_id = $1 AND state = 'active'
`
	return r.fetchCart(ctx, cartQuery, userID)
}

func (r *postgresRepo) GetByID(ctx context.Context, id int64) (*domain.Cart, error) {
	const cartQuery = `
SELECT id, user_id, state, created_at
FROM carts
WHERE id = $1
`
	return r.fetchCart(ctx, cartQuery, id)
}

func (r *postgresRepo) AddLineItems(ctx context.Context, cartID int64, lines []NewLine) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, line := range lines {
		if err := addLine(ctx, tx, cartID, line); err != nil {
			r.logger.Printf("cart repo: add line cart_id=%d product_id=%d error=%v", cartID, line.Product.ID, err)
			return err
		}
	}

	return tx.Commit(ctx)
}

func addLine(ctx context.Context, tx pgx.Tx, cartID int64, line NewLine) error {
	var lineID int64
	var existingQty int
	err := tx.QueryRow(ctx, `
SELECT id, quantity
FROM cart_lines
WHERE cart_id = $1 AND product_id = $2 AND size = $3 AND color = $4
FOR UPDATE
`, cartID, line.Product.ID, line.Size, line.Color).Scan(&lineID, &existingQty)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	if err == nil {
		_, err := tx.Exec(ctx, `
UPDATE cart_lines
SET quantity = $1, product_name = $2, image_url = $3, unit_price = $4::numeric
WHERE id = $5
`, existingQty+line.Quantity, line.Product.Name, line.Product.ImageURL, line.Product.Price.StringFixed(2), lineID)
		return err
	}

	_, err = tx.Exec(ctx, `
INSERT INTO cart_lines (cart_id, product_id, product_name, image_url, size, color, quantity, unit_price)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric)
`, cartID, line.Product.ID, line.Product.Name, line.Product.ImageURL, line.Size, line.Color, line.Quantity, line.Product.Price.StringFixed(2))
	return err
}

func (r *postgresRepo) ChangeLineItemQuantity(ctx context.Context, cartID, lineID int64, quantity int) error {
	if quantity <= 0 {
		return r.RemoveLineItem(ctx, cartID, lineID)
	}
	cmd, err := r.pool.Exec(ctx, `
UPDATE cart_lines
SET quantity = $1
WHERE id = $2 AND cart_id = $3
`, quantity, lineID, cartID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) RemoveLineItem(ctx context.Context, cartID, lineID int64) error {
	cmd, err := r.pool.Exec(ctx, `
DELETE FROM cart_lines
WHERE id = $1 AND cart_id = $2
`, lineID, cartID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) ClearLineItems(ctx context.Context, cartID int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM cart_lines WHERE cart_id = $1`, cartID)
	if err != nil {
		return err
	}
	r.logger.Printf("cart repo: cleared cart_id=%d lines=%d", cartID, cmd.RowsAffected())
	return nil
}

func (r *postgresRepo) fetchCart(ctx context.Context, cartQuery string, args ...any) (*domain.Cart, error) {
	var cart domain.Cart
	err := r.pool.QueryRow(ctx, cartQuery, args...).Scan(
		&cart.ID,
		&cart.UserID,
		&cart.State,
		&cart.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	const linesQuery = `
SELECT id, cart_id, product_id, product_name, image_url, size, color, quantity, unit_price::text, created_at
FROM cart_lines
WHERE cart_id = $1
ORDER BY created_at ASC, id ASC
`
	rows, err := r.pool.Query(ctx, linesQuery, cart.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cart.Lines = []domain.CartLine{}
	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(
			&line.ID,
			&line.CartID,
			&line.ProductID,
			&line.ProductName,
			&line.ImageURL,
			&line.Size,
			&line.Color,
			&line.Quantity,
			&line.UnitPrice,
			&line.CreatedAt,
		); err != nil {
			return nil, err
		}
		line.LineTotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		cart.Lines = append(cart.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &cart, nil
}
