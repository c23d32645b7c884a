package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/CSCE331-Fall2025-900-911/project3-gang-61/internal/domain/order"
)

const (
	orderColumns = `o.order_id, o.member_id, o.employee_id, o.order_time, o.order_status,
		COALESCE((SELECT SUM(i.price) FROM items i WHERE i.order_id = o.order_id), 0)`

	// LIMIT NULL means no limit.
	listOrdersSQL = `SELECT ` + orderColumns + `
		FROM orders o
		ORDER BY o.order_time DESC NULLS LAST, o.order_id DESC
		LIMIT $1`

	getOrderSQL = `SELECT ` + orderColumns + `
		FROM orders o WHERE o.order_id = $1`

	itemsByOrdersSQL = `SELECT i.item_id, i.order_id, i.product_id, COALESCE(p.product_name, ''),
		i.price, i.sugar_level, i.ice_level, i.group_id
		FROM items i
		LEFT JOIN products p ON p.product_id = i.product_id
		WHERE i.order_id = ANY($1)
		ORDER BY i.order_id, i.group_id, i.item_id`
)

var _ order.Reader = (*OrderRepository)(nil)

// OrderRepository implements order.Reader backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// List returns orders newest first. Totals are summed from item prices.
func (r *OrderRepository) List(ctx context.Context, filter order.ListFilter) ([]order.Order, error) {
	var limit *int
	if filter.Limit > 0 && filter.Limit <= order.MaxListLimit {
		limit = &filter.Limit
	}

	rows, err := r.pool.Query(ctx, listOrdersSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}

	if filter.IncludeItems && len(orders) > 0 {
		if err := r.attachItems(ctx, orders); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// Get returns one order with its items, or order.ErrNotFound.
func (r *OrderRepository) Get(ctx context.Context, id int64) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}

	orders := []order.Order{o}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *OrderRepository) attachItems(ctx context.Context, orders []order.Order) error {
	ids := make([]int64, len(orders))
	index := make(map[int64]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
		orders[i].Items = []order.Item{}
	}

	rows, err := r.pool.Query(ctx, itemsByOrdersSQL, ids)
	if err != nil {
		return fmt.Errorf("loading order items: %w", err)
	}
	items, err := pgx.CollectRows(rows, scanItem)
	if err != nil {
		return fmt.Errorf("loading order items: %w", err)
	}

	for _, it := range items {
		i := index[it.OrderID]
		orders[i].Items = append(orders[i].Items, it)
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o         order.Order
		orderTime *time.Time
		status    string
		total     decimal.Decimal
	)
	err := row.Scan(&o.ID, &o.MemberID, &o.EmployeeID, &orderTime, &status, &total)
	if orderTime != nil {
		o.OrderTime = *orderTime
	}
	o.Status = order.Status(status)
	o.Total = total
	return o, err
}

func scanItem(row pgx.CollectableRow) (order.Item, error) {
	var (
		it    order.Item
		sugar *string
		ice   *string
	)
	err := row.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName,
		&it.Price, &sugar, &ice, &it.GroupID)
	if sugar != nil {
		v := order.SugarLevel(*sugar)
		it.SugarLevel = &v
	}
	if ice != nil {
		v := order.IceLevel(*ice)
		it.IceLevel = &v
	}
	return it, err
}
