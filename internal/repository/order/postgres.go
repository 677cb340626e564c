package order

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
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

const orderColumns = `id, order_number, user_id, status, payment_status, total_amount::text, currency,
       shipping_address, shipping_city, shipping_state, shipping_zip_code, shipping_phone,
       payment_method, payment_intent_id, COALESCE(idempotency_key, ''), created_at, updated_at`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.UserID,
		&o.Status,
		&o.PaymentStatus,
		&o.TotalAmount,
		&o.Currency,
		&o.ShippingAddress,
		&o.ShippingCity,
		&o.ShippingState,
		&o.ShippingZipCode,
		&o.ShippingPhone,
		&o.PaymentMethod,
		&o.PaymentIntentID,
		&o.IdempotencyKey,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *postgresRepo) Create(ctx context.Context, o domain.Order) (*domain.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var idempotencyKey *string
	if o.IdempotencyKey != "" {
		idempotencyKey = &o.IdempotencyKey
	}

	const insertOrder = `
INSERT INTO orders (
    order_number, user_id, status, payment_status, total_amount, currency,
    shipping_address, shipping_city, shipping_state, shipping_zip_code, shipping_phone,
    payment_method, payment_intent_id, idempotency_key
) VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10, $11, $12, $13, $14)
RETURNING ` + orderColumns
	created, err := scanOrder(tx.QueryRow(ctx, insertOrder,
		o.OrderNumber,
		o.UserID,
		o.Status,
		o.PaymentStatus,
		o.TotalAmount.StringFixed(2),
		o.Currency,
		o.ShippingAddress,
		o.ShippingCity,
		o.ShippingState,
		o.ShippingZipCode,
		o.ShippingPhone,
		o.PaymentMethod,
		o.PaymentIntentID,
		idempotencyKey,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			r.logger.Printf("order repo: create order_number=%s duplicate", o.OrderNumber)
			return nil, domain.ErrAlreadyExists
		}
		r.logger.Printf("order repo: create order_number=%s error=%v", o.OrderNumber, err)
		return nil, err
	}

	const insertItem = `
INSERT INTO order_items (order_id, product_id, quantity, product_name, product_price)
VALUES ($1, $2, $3, $4, $5::numeric)
RETURNING id
`
	created.Items = make([]domain.OrderItem, 0, len(o.Items))
	for _, item := range o.Items {
		item.OrderID = created.ID
		if err := tx.QueryRow(ctx, insertItem, created.ID, item.ProductID, item.Quantity, item.ProductName, item.ProductPrice.StringFixed(2)).Scan(&item.ID); err != nil {
			r.logger.Printf("order repo: create item order_number=%s product_id=%d error=%v", o.OrderNumber, item.ProductID, err)
			return nil, err
		}
		created.Items = append(created.Items, item)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	r.logger.Printf("order repo: created id=%d order_number=%s items=%d", created.ID, created.OrderNumber, len(created.Items))
	return created, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	return r.fetchOrder(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

func (r *postgresRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	return r.fetchOrder(ctx, `SELECT `+orderColumns+` FROM orders WHERE idempotency_key = $1`, key)
}

func (r *postgresRepo) GetByPaymentIntentID(ctx context.Context, intentID string) (*domain.Order, error) {
	return r.fetchOrder(ctx, `SELECT `+orderColumns+` FROM orders WHERE payment_intent_id = $1 ORDER BY id DESC LIMIT 1`, intentID)
}

func (r *postgresRepo) ListByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		r.logger.Printf("order repo: list user_id=%d error=%v", userID, err)
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		items, err := r.fetchItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, id int64, status, paymentStatus string) error {
	cmd, err := r.pool.Exec(ctx, `
UPDATE orders
SET status = $1, payment_status = $2, updated_at = now()
WHERE id = $3
`, status, paymentStatus, id)
	if err != nil {
		r.logger.Printf("order repo: update status id=%d error=%v", id, err)
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	r.logger.Printf("order repo: update status id=%d status=%s payment_status=%s", id, status, paymentStatus)
	return nil
}

func (r *postgresRepo) fetchOrder(ctx context.Context, q string, args ...any) (*domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, q, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("order repo: get error=%v", err)
		return nil, err
	}
	items, err := r.fetchItems(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return o, nil
}

func (r *postgresRepo) fetchItems(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	const q = `
SELECT id, order_id, product_id, quantity, product_name, product_price::text
FROM order_items
WHERE order_id = $1
ORDER BY id ASC
`
	rows, err := r.pool.Query(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []domain.OrderItem{}
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.ProductName, &item.ProductPrice); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
