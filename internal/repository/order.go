package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bakehouse/storefront-api/internal/model"
)

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Order, error)
	ListByAgentID(ctx context.Context, agentID uuid.UUID) ([]model.Order, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Order, error)
	ListItemsByOrderID(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error)
	ListItemsByProductIDs(ctx context.Context, productIDs []uuid.UUID) ([]model.OrderItem, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.OrderStatus) error
	AgentIDsForOrder(ctx context.Context, orderID uuid.UUID) ([]uuid.UUID, error)
}

type pgOrderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &pgOrderRepo{pool: pool}
}

func (r *pgOrderRepo) Create(ctx context.Context, order *model.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	order.ID = uuid.New()
	err = tx.QueryRow(ctx,
		`INSERT INTO orders (id, user_id, status, total_amount, shipping_address, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW(), NOW()) RETURNING created_at`,
		order.ID, order.UserID, order.Status, order.TotalAmount, order.ShippingAddress,
	).Scan(&order.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range order.Items {
		order.Items[i].ID = uuid.New()
		order.Items[i].OrderID = order.ID
		_, err = tx.Exec(ctx,
			`INSERT INTO order_items (id, order_id, product_id, quantity, price_at_purchase, created_at)
			 VALUES ($1, $2, $3, $4, $5, NOW())`,
			order.Items[i].ID, order.Items[i].OrderID, order.Items[i].ProductID,
			order.Items[i].Quantity, order.Items[i].PriceAtPurchase,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (r *pgOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order := &model.Order{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, status, total_amount, shipping_address, created_at, updated_at
		 FROM orders WHERE id = $1`, id,
	).Scan(&order.ID, &order.UserID, &order.Status, &order.TotalAmount, &order.ShippingAddress, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	items, err := r.ListItemsByOrderID(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func (r *pgOrderRepo) ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, status, total_amount, shipping_address, created_at, updated_at
		 FROM orders WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()
	return scanOrders(rows)
}

// ListByAgentID returns orders that contain at least one of the agent's
// products, newest first.
func (r *pgOrderRepo) ListByAgentID(ctx context.Context, agentID uuid.UUID) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT o.id, o.user_id, o.status, o.total_amount, o.shipping_address, o.created_at, o.updated_at
		 FROM orders o
		 JOIN order_items oi ON oi.order_id = o.id
		 JOIN products p ON p.id = oi.product_id
		 WHERE p.agent_id = $1
		 ORDER BY o.created_at DESC`,
		agentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list agent orders: %w", err)
	}
	defer rows.Close()
	return scanOrders(rows)
}

func (r *pgOrderRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Order, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, status, total_amount, shipping_address, created_at, updated_at
		 FROM orders WHERE id = ANY($1)`, ids,
	)
	if err != nil {
		return nil, fmt.Errorf("list orders by ids: %w", err)
	}
	defer rows.Close()
	return scanOrders(rows)
}

func (r *pgOrderRepo) ListItemsByOrderID(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, order_id, product_id, quantity, price_at_purchase
		 FROM order_items WHERE order_id = $1`, orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()
	return scanOrderItems(rows)
}

// ListItemsByProductIDs pages through every order item referencing one of
// the given products, up to fetchMaxRows.
func (r *pgOrderRepo) ListItemsByProductIDs(ctx context.Context, productIDs []uuid.UUID) ([]model.OrderItem, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	var items []model.OrderItem
	for offset := 0; offset < fetchMaxRows; offset += fetchPageSize {
		rows, err := r.pool.Query(ctx,
			`SELECT id, order_id, product_id, quantity, price_at_purchase
			 FROM order_items WHERE product_id = ANY($1) ORDER BY created_at LIMIT $2 OFFSET $3`,
			productIDs, fetchPageSize, offset,
		)
		if err != nil {
			return nil, fmt.Errorf("list items by products: %w", err)
		}
		page, err := scanOrderItems(rows)
		rows.Close()
		if err != nil {
			return nil, err
		}
		items = append(items, page...)
		if len(page) < fetchPageSize {
			break
		}
	}
	return items, nil
}

// UpdateStatus performs the transition only when the order is currently in
// the expected state; pgx.ErrNoRows means the guard did not match.
func (r *pgOrderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.OrderStatus) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`,
		id, from, to,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgOrderRepo) AgentIDsForOrder(ctx context.Context, orderID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT p.agent_id
		 FROM order_items oi JOIN products p ON p.id = oi.product_id
		 WHERE oi.order_id = $1`, orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("agent ids for order: %w", err)
	}
	defer rows.Close()

	var agentIDs []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan agent id: %w", err)
		}
		agentIDs = append(agentIDs, id)
	}
	return agentIDs, nil
}

func scanOrders(rows pgx.Rows) ([]model.Order, error) {
	var orders []model.Order
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.TotalAmount, &o.ShippingAddress, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func scanOrderItems(rows pgx.Rows) ([]model.OrderItem, error) {
	var items []model.OrderItem
	for rows.Next() {
		var item model.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.PriceAtPurchase); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	return items, nil
}
