package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Matchmaker/internal/broker"
)

type AdminHandler struct {
	broker *broker.Broker
}

func NewAdminHandler(b *broker.Broker) *AdminHandler {
	return &AdminHandler{broker: b}
}

func (h *AdminHandler) Settings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.broker.Settings())
}

// InvalidateCache drops cached match results for an order.
// DELETE /api/v1/admin/cache/{order_id}
func (h *AdminHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "order_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order_id")
		return
	}
	n, err := h.broker.InvalidateCache(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"order_id": id, "invalidated": n})
}
