package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a catalog entry: a drink, a side or an add-on.
type Product struct {
	ID       int64
	Name     string
	Category string
	Price    decimal.Decimal
	// Stock is nil when the product is not stock-tracked.
	Stock *int
}

// Tracked reports whether the product has a stock counter.
func (p Product) Tracked() bool {
	return p.Stock != nil
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
}
