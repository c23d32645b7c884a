package order

import (
	"context"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state stored in orders.order_status.
type Status string

const (
	// StatusComplete is assigned to every order at creation.
	StatusComplete Status = "complete"

	// Post-creation states written by reporting/back-office tooling.
	StatusCompleted Status = "Completed"
	StatusReturned  Status = "Returned"
	StatusCancelled Status = "Cancelled"
)

// Order is one purchase transaction together with its expanded items.
type Order struct {
	ID         int64
	MemberID   int64
	EmployeeID int64
	OrderTime  time.Time
	Status     Status
	// Total is the client-supplied amount on placement and SUM(items.price)
	// on read paths.
	Total decimal.Decimal
	Items []Item
}

// Item is one physical unit within an order: a main product or an add-on.
type Item struct {
	ID          int64
	OrderID     int64
	ProductID   int64
	ProductName string
	Price       decimal.Decimal
	SugarLevel  *SugarLevel
	IceLevel    *IceLevel
	GroupID     int
}

// AddOn is an extra product attached to a cart line (pearls, jelly, ...).
type AddOn struct {
	ProductID int64
	Price     decimal.Decimal
}

// Modifications carries the per-line drink options.
type Modifications struct {
	IceLevel   *IceLevel
	SugarLevel *SugarLevel
	AddOns     []AddOn
}

// CartLine is one entry of the submitted cart.
type CartLine struct {
	ProductID     int64
	ProductName   string
	Quantity      int
	Price         decimal.Decimal
	Modifications Modifications
}

// Cart bounds. Ids live in INTEGER columns and prices in NUMERIC(10,2).
const (
	MaxLineQuantity = 1000
	MaxOrderItems   = 10000
	MaxID           = math.MaxInt32
)

// MaxPrice is the exclusive upper bound of an item price magnitude.
var MaxPrice = decimal.New(1, 8)

// StockDecrement is a conditional stock update scheduled by the expansion.
type StockDecrement struct {
	ProductID int64
	Quantity  int
}

// StockOutcome classifies the result of a conditional decrement.
type StockOutcome int

const (
	StockApplied StockOutcome = iota
	StockInsufficient
	StockUntracked
	StockUnknownProduct
)

func (o StockOutcome) String() string {
	switch o {
	case StockApplied:
		return "applied"
	case StockInsufficient:
		return "insufficient"
	case StockUntracked:
		return "untracked"
	case StockUnknownProduct:
		return "unknown_product"
	default:
		return "unknown"
	}
}

// Tx is the set of store operations available inside one unit of work.
type Tx interface {
	// CreateOrder inserts the order row and fills in the generated ID and
	// the stored order time.
	CreateOrder(ctx context.Context, o *Order) error
	// CreateItem inserts one item row and fills in the generated ID and
	// the stored (rounded) price.
	CreateItem(ctx context.Context, item *Item) error
	// DecrementStock applies stock = stock - qty only where stock >= qty.
	DecrementStock(ctx context.Context, productID int64, qty int) (StockOutcome, error)
}

// Store runs fn inside a single database transaction. The transaction is
// committed when fn returns nil and rolled back otherwise.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// ListFilter narrows the order list query.
type ListFilter struct {
	// Limit caps the number of orders; values outside 1..MaxListLimit mean
	// no limit.
	Limit        int
	IncludeItems bool
}

// MaxListLimit is the largest accepted ListFilter.Limit.
const MaxListLimit = 1000

// Reader provides read access to persisted orders.
type Reader interface {
	List(ctx context.Context, filter ListFilter) ([]Order, error)
	Get(ctx context.Context, id int64) (*Order, error)
}
