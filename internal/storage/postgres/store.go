package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/CSCE331-Fall2025-900-911/project3-gang-61/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (member_id, employee_id, order_time, order_status)
		VALUES ($1, $2, $3, $4)
		RETURNING order_id, order_time`

	insertItemSQL = `INSERT INTO items (order_id, product_id, price, sugar_level, ice_level, group_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING item_id, price`

	decrementStockSQL = `UPDATE products SET stock = stock - $1
		WHERE product_id = $2 AND stock >= $1
		RETURNING stock`

	stockLevelSQL = `SELECT stock FROM products WHERE product_id = $1`
)

// rollbackTimeout bounds the rollback issued after a failed unit of work,
// which runs on a context detached from the (possibly cancelled) request.
const rollbackTimeout = 5 * time.Second

var _ order.Store = (*Store)(nil)

// Store runs order units of work on a pgx pool.
type Store struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

// NewStore returns a Store that uses the given pool. A nil tp selects the
// global tracer provider.
func NewStore(pool *pgxpool.Pool, tp trace.TracerProvider) *Store {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Store{
		pool:   pool,
		tracer: tp.Tracer("pos/storage/postgres"),
	}
}

// WithinTx begins a READ COMMITTED transaction, runs fn and commits. Any
// error or panic from fn rolls the transaction back. A failed rollback is
// logged; the error from fn is what the caller receives.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx order.Tx) error) (err error) {
	ctx, span := s.tracer.Start(ctx, "postgres.WithinTx")
	defer span.End()

	pgTx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("begin transaction: %w", err)
	}

	committed := false
	defer func() {
		p := recover()
		if committed {
			return
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}

		rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
		defer cancel()
		if rbErr := pgTx.Rollback(rbCtx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			zctx.From(ctx).Error("Rollback failed",
				zap.Error(rbErr),
				zap.NamedError("cause", err),
			)
		}
		if p != nil {
			panic(p)
		}
	}()

	if err := fn(ctx, &orderTx{tx: pgTx}); err != nil {
		return err
	}
	if err := pgTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}

// orderTx implements order.Tx on an open pgx transaction.
type orderTx struct {
	tx pgx.Tx
}

func (t *orderTx) CreateOrder(ctx context.Context, o *order.Order) error {
	err := t.tx.QueryRow(ctx, insertOrderSQL,
		o.MemberID, o.EmployeeID, o.OrderTime, string(o.Status),
	).Scan(&o.ID, &o.OrderTime)
	if err != nil {
		return fmt.Errorf("inserting order: %w", err)
	}
	return nil
}

func (t *orderTx) CreateItem(ctx context.Context, item *order.Item) error {
	err := t.tx.QueryRow(ctx, insertItemSQL,
		item.OrderID, item.ProductID, item.Price,
		textOrNull(item.SugarLevel), textOrNull(item.IceLevel), item.GroupID,
	).Scan(&item.ID, &item.Price)
	if err != nil {
		return fmt.Errorf("inserting item for product %d: %w", item.ProductID, err)
	}
	return nil
}

func (t *orderTx) DecrementStock(ctx context.Context, productID int64, qty int) (order.StockOutcome, error) {
	var remaining int
	err := t.tx.QueryRow(ctx, decrementStockSQL, qty, productID).Scan(&remaining)
	if err == nil {
		return order.StockApplied, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("decrementing stock of product %d: %w", productID, err)
	}

	// The guard did not match: find out why.
	var stock *int
	err = t.tx.QueryRow(ctx, stockLevelSQL, productID).Scan(&stock)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return order.StockUnknownProduct, nil
	case err != nil:
		return 0, fmt.Errorf("reading stock of product %d: %w", productID, err)
	case stock == nil:
		return order.StockUntracked, nil
	default:
		return order.StockInsufficient, nil
	}
}

// textOrNull maps an optional modifier onto a nullable TEXT parameter.
func textOrNull[T ~string](v *T) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}
