package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/craftbazaar/marketplace/internal/domain/catalog"
	"github.com/craftbazaar/marketplace/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (order_id, customer_id, order_date, total_amount, platform_fee,
		status, shipping_address, payment_method, tracking_number, idempotency_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	insertItemSQL = `INSERT INTO order_items (item_id, order_id, product_id, partner_id, quantity, price, subtotal, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	orderColumns = `order_id, customer_id, order_date, total_amount, platform_fee,
		status, shipping_address, payment_method, tracking_number, idempotency_key, created_at, updated_at`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE order_id = $1`

	findByIdempotencyKeySQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE customer_id = $1 AND idempotency_key = $2`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE customer_id = $1
		ORDER BY order_date DESC, order_id
		LIMIT $2 OFFSET $3`

	countOrdersSQL = `SELECT COUNT(*) FROM orders WHERE customer_id = $1`

	itemColumns = `item_id, order_id, product_id, partner_id, quantity, price, subtotal, created_at`

	listItemsSQL = `SELECT ` + itemColumns + ` FROM order_items WHERE order_id = $1 ORDER BY item_id`

	listItemsBatchSQL = `SELECT ` + itemColumns + ` FROM order_items
		WHERE order_id = ANY($1) ORDER BY order_id, item_id`

	// Tracking numbers are immutable once set: an empty $2 keeps the stored
	// value rather than clearing it.
	updateStatusSQL = `UPDATE orders
		SET status = $1, tracking_number = COALESCE(NULLIF($2, ''), tracking_number), updated_at = $3
		WHERE order_id = $4 AND status = $5`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create writes the order header and all line items in a single transaction.
// A failure anywhere rolls the whole order back.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, insertOrderSQL,
		o.ID, o.CustomerID, o.OrderDate, o.TotalAmount, o.PlatformFee,
		o.Status, o.ShippingAddress, o.PaymentMethod, o.TrackingNumber, o.IdempotencyKey,
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == "orders_idempotency_idx" {
			return order.ErrDuplicateKey
		}
		return errors.Wrap(err, "insert order")
	}
	for i := range o.Items {
		it := &o.Items[i]
		_, err = tx.Exec(ctx, insertItemSQL,
			it.ID, it.OrderID, it.ProductID, it.PartnerID, it.Quantity, it.Price, it.Subtotal, it.CreatedAt,
		)
		if err != nil {
			return errors.Wrapf(err, "insert item %q", it.ID)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	return nil
}

// GetByID returns the order with its items, or order.ErrNotFound.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	o, err := r.queryOrder(ctx, getOrderSQL, id)
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, listItemsSQL, o.ID)
	if err != nil {
		return nil, errors.Wrap(err, "query items")
	}
	o.Items, err = pgx.CollectRows(rows, scanItem)
	if err != nil {
		return nil, errors.Wrap(err, "scan items")
	}
	return o, nil
}

// FindByIdempotencyKey returns the customer's order created with the given
// key, or order.ErrNotFound.
func (r *OrderRepository) FindByIdempotencyKey(ctx context.Context, customerID, key string) (*order.Order, error) {
	o, err := r.queryOrder(ctx, findByIdempotencyKeySQL, customerID, key)
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, listItemsSQL, o.ID)
	if err != nil {
		return nil, errors.Wrap(err, "query items")
	}
	o.Items, err = pgx.CollectRows(rows, scanItem)
	if err != nil {
		return nil, errors.Wrap(err, "scan items")
	}
	return o, nil
}

// ListByCustomer returns one page of the customer's orders, newest first, with
// items attached, plus the total order count.
func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID string, page catalog.Page) ([]order.Order, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, countOrdersSQL, customerID).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "count orders")
	}

	rows, err := r.pool.Query(ctx, listOrdersSQL, customerID, page.PerPage, page.Offset())
	if err != nil {
		return nil, 0, errors.Wrap(err, "query orders")
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, 0, errors.Wrap(err, "scan orders")
	}
	if len(orders) == 0 {
		return orders, total, nil
	}

	ids := make([]string, len(orders))
	index := make(map[string]*order.Order, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		index[orders[i].ID] = &orders[i]
	}
	rows, err = r.pool.Query(ctx, listItemsBatchSQL, ids)
	if err != nil {
		return nil, 0, errors.Wrap(err, "query items")
	}
	items, err := pgx.CollectRows(rows, scanItem)
	if err != nil {
		return nil, 0, errors.Wrap(err, "scan items")
	}
	for _, it := range items {
		o := index[it.OrderID]
		o.Items = append(o.Items, it)
	}
	return orders, total, nil
}

// UpdateStatus moves the order from the expected status to next. It returns
// order.ErrStatusConflict when the expected status no longer holds, and
// order.ErrNotFound when the order does not exist at all.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to order.Status, trackingNumber string, updatedAt time.Time) error {
	tag, err := r.pool.Exec(ctx, updateStatusSQL, to, trackingNumber, updatedAt, id, from)
	if err != nil {
		return errors.Wrap(err, "update status")
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE order_id = $1)`, id).Scan(&exists); err != nil {
			return errors.Wrap(err, "check order")
		}
		if !exists {
			return order.ErrNotFound
		}
		return order.ErrStatusConflict
	}
	return nil
}

func (r *OrderRepository) queryOrder(ctx context.Context, sql string, args ...any) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query order")
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrap(err, "scan order")
	}
	return &o, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var o order.Order
	err := row.Scan(
		&o.ID, &o.CustomerID, &o.OrderDate, &o.TotalAmount, &o.PlatformFee,
		&o.Status, &o.ShippingAddress, &o.PaymentMethod, &o.TrackingNumber, &o.IdempotencyKey,
		&o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

func scanItem(row pgx.CollectableRow) (order.Item, error) {
	var it order.Item
	err := row.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.PartnerID, &it.Quantity, &it.Price, &it.Subtotal, &it.CreatedAt)
	return it, err
}
