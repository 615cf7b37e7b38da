package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Matchmaker/internal/broker"
	"github.com/MikeSquared-Agency/Matchmaker/internal/store"
)

type ExplainHandler struct {
	broker *broker.Broker
}

func NewExplainHandler(b *broker.Broker) *ExplainHandler {
	return &ExplainHandler{broker: b}
}

type ExplainRequest struct {
	Order          store.Order `json:"order"`
	ManufacturerID string      `json:"manufacturer_id"`
}

// Explain returns the scoring breakdown for one manufacturer against an
// order, ignoring the eligibility filter.
// POST /api/v1/scoring/explain
func (h *ExplainHandler) Explain(w http.ResponseWriter, r *http.Request) {
	var req ExplainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	id, err := uuid.Parse(req.ManufacturerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid manufacturer_id")
		return
	}
	if msg := validateOrder(&req.Order); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	result, err := h.broker.Explain(r.Context(), &req.Order, id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "manufacturer not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := result.ToMap()
	resp["factors"] = result.Factors
	writeJSON(w, http.StatusOK, resp)
}
