package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

// StockPolicy decides what happens when a conditional decrement does not
// match because the tracked stock is too low.
type StockPolicy string

const (
	// StockPolicyAdvisory keeps the order and skips the decrement.
	StockPolicyAdvisory StockPolicy = "advisory"
	// StockPolicyStrict rolls the whole order back.
	StockPolicyStrict StockPolicy = "strict"
)

// ParseStockPolicy validates a configured policy name. The empty string
// selects StockPolicyAdvisory.
func ParseStockPolicy(s string) (StockPolicy, error) {
	switch p := StockPolicy(s); p {
	case "":
		return StockPolicyAdvisory, nil
	case StockPolicyAdvisory, StockPolicyStrict:
		return p, nil
	default:
		return "", errors.Errorf("unknown stock policy %q", s)
	}
}

// PlaceOrderRequest is a decoded cart submission. Pointer fields are nil
// when the client omitted them.
type PlaceOrderRequest struct {
	Lines      []CartLine
	Total      *decimal.Decimal
	Timestamp  *time.Time
	MemberID   *int64
	EmployeeID *int64
}

func (r PlaceOrderRequest) validate() error {
	if len(r.Lines) == 0 {
		return EmptyCartError()
	}
	if r.Total == nil {
		return InvalidTotalError()
	}
	if r.MemberID == nil {
		return MissingFieldError("member_id")
	}
	if r.EmployeeID == nil {
		return MissingFieldError("employee_id")
	}
	for i, line := range r.Lines {
		if line.Quantity > MaxLineQuantity {
			field := fmt.Sprintf("items[%d].quantity", i)
			return InvalidOrderError(field, fmt.Sprintf("%s must be at most %d", field, MaxLineQuantity))
		}
	}
	if itemCount(r.Lines) > MaxOrderItems {
		return InvalidOrderError("items", fmt.Sprintf("order expands to more than %d items", MaxOrderItems))
	}
	return nil
}

// Confirmation is the result of a committed order.
type Confirmation struct {
	Order *Order
	// Skipped lists decrements that did not apply under
	// StockPolicyAdvisory.
	Skipped []StockDecrement
}

// Config holds optional Service settings.
type Config struct {
	StockPolicy StockPolicy
	// TxTimeout bounds the whole unit of work. Zero disables the bound.
	TxTimeout     time.Duration
	MeterProvider metric.MeterProvider
	Now           func() time.Time
}

// Service places orders.
type Service struct {
	store     Store
	policy    StockPolicy
	txTimeout time.Duration
	now       func() time.Time

	placed  metric.Int64Counter
	failed  metric.Int64Counter
	skipped metric.Int64Counter
}

// NewService creates an order Service on top of the given store.
func NewService(store Store, cfg Config) (*Service, error) {
	if cfg.StockPolicy == "" {
		cfg.StockPolicy = StockPolicyAdvisory
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = noop.NewMeterProvider()
	}

	meter := cfg.MeterProvider.Meter("pos/order")
	s := &Service{
		store:     store,
		policy:    cfg.StockPolicy,
		txTimeout: cfg.TxTimeout,
		now:       cfg.Now,
	}

	var err error
	if s.placed, err = meter.Int64Counter("orders.placed",
		metric.WithDescription("Orders committed"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.placed")
	}
	if s.failed, err = meter.Int64Counter("orders.failed",
		metric.WithDescription("Order submissions rejected or rolled back"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.failed")
	}
	if s.skipped, err = meter.Int64Counter("stock.decrement.skipped",
		metric.WithDescription("Conditional stock decrements that did not apply"),
	); err != nil {
		return nil, errors.Wrap(err, "stock.decrement.skipped")
	}
	return s, nil
}

// PlaceOrder validates the submission, expands it into grouped items and
// persists the order, its items and the stock decrements in one
// transaction. Each cart line inserts its items and then applies its own
// decrements before the next line starts. No order ID is returned unless the transaction committed.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Confirmation, error) {
	if err := req.validate(); err != nil {
		s.fail(ctx, "validation")
		return nil, err
	}

	lg := zctx.From(ctx)
	plan := Expand(req.Lines)

	orderTime := s.now()
	if req.Timestamp != nil {
		orderTime = *req.Timestamp
	}
	o := &Order{
		MemberID:   *req.MemberID,
		EmployeeID: *req.EmployeeID,
		OrderTime:  orderTime,
		Status:     StatusComplete,
		Total:      *req.Total,
	}

	if s.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.txTimeout)
		defer cancel()
	}

	var skipped []StockDecrement
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		skipped = nil

		if err := tx.CreateOrder(ctx, o); err != nil {
			return errors.Wrap(err, "create order")
		}

		items := make([]Item, 0, itemCount(req.Lines))
		for _, line := range plan.Lines {
			for _, it := range line.Items {
				it.OrderID = o.ID
				if err := tx.CreateItem(ctx, &it); err != nil {
					return errors.Wrapf(err, "create item %d (group %d)", len(items)+1, it.GroupID)
				}
				items = append(items, it)
			}

			for _, d := range line.Decrements {
				outcome, err := tx.DecrementStock(ctx, d.ProductID, d.Quantity)
				if err != nil {
					return errors.Wrapf(err, "decrement stock of product %d", d.ProductID)
				}
				switch outcome {
				case StockApplied, StockUntracked:
					continue
				case StockInsufficient:
					if s.policy == StockPolicyStrict {
						return &StockInsufficientError{ProductID: d.ProductID, Requested: d.Quantity}
					}
				}
				// A product row that vanished mid-transaction is skipped
				// under either policy.
				lg.Warn("Stock decrement skipped",
					zap.Int64("product_id", d.ProductID),
					zap.Int("quantity", d.Quantity),
					zap.Stringer("outcome", outcome),
				)
				skipped = append(skipped, d)
			}
		}

		o.Items = items
		return nil
	})
	if err != nil {
		var stockErr *StockInsufficientError
		if errors.As(err, &stockErr) {
			s.fail(ctx, "stock")
			return nil, stockErr
		}
		s.fail(ctx, "transaction")
		return nil, &TransactionError{Err: err}
	}

	if sum := itemsTotal(o.Items); !sum.Equal(o.Total) {
		lg.Warn("Client total differs from item prices",
			zap.Int64("order_id", o.ID),
			zap.Stringer("total", o.Total),
			zap.Stringer("items_total", sum),
		)
	}

	s.placed.Add(ctx, 1)
	if len(skipped) > 0 {
		s.skipped.Add(ctx, int64(len(skipped)))
	}
	lg.Info("Order placed",
		zap.Int64("order_id", o.ID),
		zap.Int64("member_id", o.MemberID),
		zap.Int64("employee_id", o.EmployeeID),
		zap.Int("items", len(o.Items)),
	)

	return &Confirmation{Order: o, Skipped: skipped}, nil
}

func (s *Service) fail(ctx context.Context, reason string) {
	s.failed.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func itemsTotal(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Price)
	}
	return sum
}
