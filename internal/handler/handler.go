// Package handler implements the POS REST API on net/http.
package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/CSCE331-Fall2025-900-911/project3-gang-61/internal/domain/order"
	"github.com/CSCE331-Fall2025-900-911/project3-gang-61/internal/domain/product"
	"github.com/CSCE331-Fall2025-900-911/project3-gang-61/pkg/httpmiddleware"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 1 << 20

// OrderPlacer places orders. *order.Service satisfies it.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req order.PlaceOrderRequest) (*order.Confirmation, error)
}

// Handler serves the orders and products endpoints.
type Handler struct {
	placer   OrderPlacer
	orders   order.Reader
	products product.Repository
}

// New constructs a Handler with the required domain dependencies.
func New(placer OrderPlacer, orders order.Reader, products product.Repository) *Handler {
	return &Handler{
		placer:   placer,
		orders:   orders,
		products: products,
	}
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/orders", h.PlaceOrder)
	mux.HandleFunc("GET /api/orders", h.ListOrders)
	mux.HandleFunc("GET /api/orders/{id}", h.GetOrder)
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/products/{id}", h.GetProduct)
	mux.HandleFunc("/api/", h.notFound)
}

func (h *Handler) notFound(w http.ResponseWriter, _ *http.Request) {
	httpmiddleware.WriteError(w, http.StatusNotFound, "NotFound", "route not found")
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, order.InvalidOrderError("body", "request body too large")
		}
		return nil, errors.Wrap(err, "read body")
	}
	return data, nil
}

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	var e jx.Encoder
	encode(&e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError maps domain errors onto the error envelope.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		vErr     *order.ValidationError
		stockErr *order.StockInsufficientError
		txErr    *order.TransactionError
	)
	lg := zctx.From(r.Context())

	switch {
	case errors.As(err, &vErr):
		httpmiddleware.WriteError(w, http.StatusBadRequest, string(vErr.Kind), vErr.Message)
	case errors.As(err, &stockErr):
		httpmiddleware.WriteError(w, http.StatusConflict, "StockInsufficient", stockErr.Error())
	case errors.Is(err, order.ErrNotFound), errors.Is(err, product.ErrNotFound):
		httpmiddleware.WriteError(w, http.StatusNotFound, "NotFound", err.Error())
	case errors.As(err, &txErr):
		lg.Error("Order transaction failed", zap.Error(err))
		httpmiddleware.WriteError(w, http.StatusInternalServerError, "TransactionFailure", "failed to place order")
	default:
		lg.Error("Request failed", zap.Error(err))
		httpmiddleware.WriteError(w, http.StatusInternalServerError, "Internal", "internal server error")
	}
}
