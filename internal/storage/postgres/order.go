package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agrofix/orders-api/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (buyer_name, buyer_contact, delivery_address, status, tracking_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	createOrderItemSQL = `INSERT INTO order_items (order_id, product_id, quantity)
		VALUES ($1, $2, $3) RETURNING id`

	getOrderByIDSQL = `SELECT id, buyer_name, buyer_contact, delivery_address, status, tracking_id, created_at
		FROM orders WHERE id = $1`

	getOrderByTrackingSQL = `SELECT id, buyer_name, buyer_contact, delivery_address, status, tracking_id, created_at
		FROM orders WHERE tracking_id = $1`

	listOrdersSQL = `SELECT id, buyer_name, buyer_contact, delivery_address, status, tracking_id, created_at
		FROM orders ORDER BY id`

	getItemsByOrderSQL = `SELECT id, order_id, product_id, quantity
		FROM order_items WHERE order_id = $1 ORDER BY id`

	getItemsByOrdersSQL = `SELECT id, order_id, product_id, quantity
		FROM order_items WHERE order_id = ANY($1) ORDER BY id`

	updateOrderStatusSQL = `UPDATE orders SET status = $2 WHERE id = $1
		RETURNING id, buyer_name, buyer_contact, delivery_address, status, tracking_id, created_at`
)

// uniqueViolation is the PostgreSQL error code for a unique constraint
// violation.
const uniqueViolation = "23505"

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order and all of its items in a single transaction.
// Any failure rolls the whole group back. A unique violation on tracking_id
// maps to order.ErrTrackingIDConflict so the caller can regenerate the token.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order, items []order.Item) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, createOrderSQL,
		o.BuyerName, o.BuyerContact, o.DeliveryAddress, string(o.Status), o.TrackingID,
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return order.ErrTrackingIDConflict
		}
		return errors.Wrap(err, "insert order")
	}

	for i := range items {
		items[i].OrderID = o.ID
		err := tx.QueryRow(ctx, createOrderItemSQL,
			o.ID, items[i].ProductID, items[i].Quantity,
		).Scan(&items[i].ID)
		if err != nil {
			return errors.Wrapf(err, "insert item for product %d", items[i].ProductID)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	return nil
}

// GetByID returns the order with the given internal id and its items.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*order.Order, []order.Item, error) {
	return r.getOrder(ctx, getOrderByIDSQL, id)
}

// GetByTrackingID returns the order with the given tracking id and its items.
func (r *OrderRepository) GetByTrackingID(ctx context.Context, trackingID string) (*order.Order, []order.Item, error) {
	return r.getOrder(ctx, getOrderByTrackingSQL, trackingID)
}

func (r *OrderRepository) getOrder(ctx context.Context, query string, arg any) (*order.Order, []order.Item, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, nil, errors.Wrap(err, "get order")
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, order.ErrNotFound
		}
		return nil, nil, errors.Wrap(err, "get order")
	}

	itemRows, err := r.pool.Query(ctx, getItemsByOrderSQL, o.ID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "get order items")
	}
	items, err := pgx.CollectRows(itemRows, scanItem)
	if err != nil {
		return nil, nil, errors.Wrap(err, "get order items")
	}

	return &o, items, nil
}

// List returns all orders by primary key order, with their items grouped by
// order id. Items within an order are likewise in primary key order.
func (r *OrderRepository) List(ctx context.Context) ([]order.Order, map[int64][]order.Item, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, nil, errors.Wrap(err, "list orders")
	}
	all, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, nil, errors.Wrap(err, "list orders")
	}
	if len(all) == 0 {
		return nil, nil, nil
	}

	ids := make([]int64, len(all))
	for i := range all {
		ids[i] = all[i].ID
	}

	itemRows, err := r.pool.Query(ctx, getItemsByOrdersSQL, ids)
	if err != nil {
		return nil, nil, errors.Wrap(err, "list order items")
	}
	items, err := pgx.CollectRows(itemRows, scanItem)
	if err != nil {
		return nil, nil, errors.Wrap(err, "list order items")
	}

	byOrder := make(map[int64][]order.Item, len(all))
	for _, item := range items {
		byOrder[item.OrderID] = append(byOrder[item.OrderID], item)
	}

	return all, byOrder, nil
}

// UpdateStatus sets the status of the order with the given id and returns the
// updated row. order.ErrNotFound when the id does not resolve.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, status order.Status) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, updateOrderStatusSQL, id, string(status))
	if err != nil {
		return nil, errors.Wrapf(err, "update order %d", id)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "update order %d", id)
	}
	return &o, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var o order.Order
	err := row.Scan(
		&o.ID, &o.BuyerName, &o.BuyerContact, &o.DeliveryAddress,
		&o.Status, &o.TrackingID, &o.CreatedAt,
	)
	return o, err
}

func scanItem(row pgx.CollectableRow) (order.Item, error) {
	var item order.Item
	err := row.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity)
	return item, err
}
