package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MikeSquared-Agency/Matchmaker/internal/broker"
	"github.com/MikeSquared-Agency/Matchmaker/internal/matching"
	"github.com/MikeSquared-Agency/Matchmaker/internal/store"
)

const maxResultsLimit = 100

type MatchingHandler struct {
	broker *broker.Broker
	logger *zap.Logger
}

func NewMatchingHandler(b *broker.Broker, logger *zap.Logger) *MatchingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MatchingHandler{broker: b, logger: logger}
}

type FindMatchesRequest struct {
	Order          store.Order `json:"order"`
	MaxResults     int         `json:"max_results,omitempty"`
	EnableFallback *bool       `json:"enable_fallback,omitempty"`
	ABTestGroup    string      `json:"ab_test_group,omitempty"`
}

type FindMatchesResponse struct {
	OrderID uuid.UUID                `json:"order_id"`
	Matches []map[string]interface{} `json:"matches"`
	Count   int                      `json:"count"`
	Cached  bool                     `json:"cached"`
	Warning string                   `json:"warning,omitempty"`
}

// Find ranks manufacturers for an order.
// POST /api/v1/matching/find
func (h *MatchingHandler) Find(w http.ResponseWriter, r *http.Request) {
	var req FindMatchesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := validateOrder(&req.Order); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if req.MaxResults < 0 || req.MaxResults > maxResultsLimit {
		writeError(w, http.StatusBadRequest, "max_results must be between 0 and 100, 0 uses the configured default")
		return
	}
	if req.Order.ID == uuid.Nil {
		req.Order.ID = uuid.New()
	}

	opts := matching.DefaultOptions()
	opts.MaxResults = req.MaxResults
	opts.ABTestGroup = req.ABTestGroup
	if req.EnableFallback != nil {
		opts.EnableFallback = *req.EnableFallback
	}

	out := h.broker.FindMatches(r.Context(), &req.Order, opts)
	resp := FindMatchesResponse{
		OrderID: out.OrderID,
		Matches: out.Matches,
		Count:   len(out.Matches),
		Cached:  out.Cached,
	}
	if out.Err != nil {
		// A failed run still answers with an empty list.
		resp.Warning = "matching failed, no results available"
	}
	writeJSON(w, http.StatusOK, resp)
}

type BroadcastRequest struct {
	Order           store.Order `json:"order"`
	ManufacturerIDs []string    `json:"manufacturer_ids"`
}

// Broadcast sends an order to a caller-selected set of manufacturers.
// POST /api/v1/matching/broadcast
func (h *MatchingHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	var req BroadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := validateOrder(&req.Order); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if len(req.ManufacturerIDs) == 0 {
		writeError(w, http.StatusBadRequest, "manufacturer_ids is required")
		return
	}
	ids := make([]uuid.UUID, 0, len(req.ManufacturerIDs))
	for _, raw := range req.ManufacturerIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid manufacturer id: "+raw)
			return
		}
		ids = append(ids, id)
	}
	if req.Order.ID == uuid.Nil {
		req.Order.ID = uuid.New()
	}

	manifest, err := h.broker.Broadcast(r.Context(), &req.Order, ids)
	if err != nil {
		h.logger.Error("broadcast failed", zap.String("order_id", req.Order.ID.String()), zap.Error(err))
		writeError(w, http.StatusBadGateway, "broadcast failed")
		return
	}
	writeJSON(w, http.StatusOK, manifest)
}

// Manufacturer returns one manufacturer profile.
// GET /api/v1/manufacturers/{id}
func (h *MatchingHandler) Manufacturer(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid manufacturer id")
		return
	}
	m, err := h.broker.Manufacturer(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "manufacturer not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func validateOrder(o *store.Order) string {
	if o.Quantity < 1 {
		return "order quantity must be at least 1"
	}
	if (o.ClientLatitude == nil) != (o.ClientLongitude == nil) {
		return "client latitude and longitude must be given together"
	}
	return ""
}
