package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/jx"
)

// ListProducts handles GET /api/products. The optional category parameter
// filters case-insensitively; the kiosk uses category=Add-on.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	category := r.URL.Query().Get("category")
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, p := range products {
				if category != "" && !strings.EqualFold(p.Category, category) {
					continue
				}
				encodeProduct(e, p)
			}
		})
	})
}

// GetProduct handles GET /api/products/{id}.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeProduct(e, *p) })
}
