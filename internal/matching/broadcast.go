package matching

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MikeSquared-Agency/Matchmaker/internal/metrics"
	"github.com/MikeSquared-Agency/Matchmaker/internal/store"
)

// BroadcastEntry is one manufacturer in a manifest with its reference score.
type BroadcastEntry struct {
	ManufacturerID        uuid.UUID `json:"manufacturer_id"`
	BusinessName          string    `json:"business_name"`
	Score                 float64   `json:"score"`
	EstimatedLeadTimeDays *int      `json:"estimated_lead_time"`
}

// BroadcastManifest lists the manufacturers an order is sent to for
// competitive bidding.
type BroadcastManifest struct {
	OrderID           uuid.UUID        `json:"order_id"`
	Manufacturers     []BroadcastEntry `json:"manufacturers"`
	CreatedAt         time.Time        `json:"created_at"`
	ExpectedResponses int              `json:"expected_responses"`
}

// Broadcast scores the caller-selected manufacturers for reference. It does
// not filter or rank: entries follow the order of ids. Unknown IDs and
// records that cannot be scored are logged and left out.
func (e *Engine) Broadcast(ctx context.Context, src CandidateSource, order *store.Order, ids []uuid.UUID) (*BroadcastManifest, error) {
	if order == nil {
		return nil, &MatchError{Stage: StageBroadcast, Err: ErrNilOrder}
	}
	log := e.logger.With(zap.String("order_id", order.ID.String()))

	found, err := src.GetManufacturers(ctx, ids)
	if err != nil {
		return nil, &MatchError{OrderID: order.ID, Stage: StageBroadcast, Err: err}
	}

	known := make(map[uuid.UUID]bool, len(found))
	for _, m := range found {
		if m != nil {
			known[m.ID] = true
		}
	}
	for _, id := range ids {
		if !known[id] {
			log.Warn("broadcast target not found", zap.String("manufacturer_id", id.String()))
		}
	}

	now := e.now()
	entries := make([]BroadcastEntry, 0, len(found))
	for _, m := range found {
		r, err := e.scoreOne(order, m, now)
		if err != nil {
			log.Warn("skipping broadcast target", zap.Error(err))
			continue
		}
		entries = append(entries, BroadcastEntry{
			ManufacturerID:        m.ID,
			BusinessName:          m.BusinessName,
			Score:                 math.Round(r.TotalScore*1000) / 1000,
			EstimatedLeadTimeDays: r.EstimatedLeadTimeDays,
		})
	}

	manifest := &BroadcastManifest{
		OrderID:           order.ID,
		Manufacturers:     entries,
		CreatedAt:         now.UTC(),
		ExpectedResponses: len(entries),
	}
	metrics.BroadcastsTotal.Inc()
	log.Info("broadcast manifest built",
		zap.Int("requested", len(ids)),
		zap.Int("manufacturers", len(entries)),
	)
	return manifest, nil
}
