package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/jx"

	"github.com/CSCE331-Fall2025-900-911/project3-gang-61/internal/domain/order"
)

// PlaceOrder handles POST /api/orders.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req, err := decodePlaceOrder(data)
	if err != nil {
		writeError(w, r, err)
		return
	}

	conf, err := h.placer.PlaceOrder(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeConfirmation(e, conf) })
}

// ListOrders handles GET /api/orders?limit=N&includeItems=false. Items are
// included unless includeItems is "false"; a limit outside 1..1000 is
// ignored.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := order.ListFilter{IncludeItems: q.Get("includeItems") != "false"}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 && n <= order.MaxListLimit {
		filter.Limit = n
	}

	orders, err := h.orders.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, o := range orders {
				encodeOrder(e, o, filter.IncludeItems)
			}
		})
	})
}

// GetOrder handles GET /api/orders/{id}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.orders.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, *o, true) })
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, order.InvalidTypeError("id", "integer")
	}
	return id, nil
}
