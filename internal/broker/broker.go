package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MikeSquared-Agency/Matchmaker/internal/cache"
	"github.com/MikeSquared-Agency/Matchmaker/internal/hermes"
	"github.com/MikeSquared-Agency/Matchmaker/internal/matching"
	"github.com/MikeSquared-Agency/Matchmaker/internal/scoring"
	"github.com/MikeSquared-Agency/Matchmaker/internal/store"
)

const reasonNoEligible = "no eligible manufacturers"

// Broker connects the matching engine to the manufacturer store, the result
// cache and the event bus. HTTP handlers and bus subscriptions both go
// through it.
type Broker struct {
	engine  *matching.Engine
	store   store.Store
	hermes  hermes.Client
	cache   *cache.ResultCache
	timeout time.Duration
	logger  *zap.Logger
}

// New builds a Broker. hermes and cache may be nil.
func New(e *matching.Engine, s store.Store, h hermes.Client, c *cache.ResultCache, timeout time.Duration, logger *zap.Logger) *Broker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Broker{
		engine:  e,
		store:   s,
		hermes:  h,
		cache:   c,
		timeout: timeout,
		logger:  logger,
	}
}

// MatchOutcome is the flattened result of one matching request.
type MatchOutcome struct {
	OrderID uuid.UUID
	Matches []map[string]interface{}
	Cached  bool
	// Err is set when the run degraded to an empty list.
	Err error
}

// FindMatches serves a matching request, from cache when possible. Successful
// runs are cached and announced on the bus; degraded runs are neither.
func (b *Broker) FindMatches(ctx context.Context, order *store.Order, opts matching.Options) *MatchOutcome {
	limit := opts.MaxResults
	if limit <= 0 {
		limit = b.engine.Config().DefaultMaxResults
	}
	opts.MaxResults = limit

	key := cache.Key(order, limit, opts.EnableFallback)
	if cached, ok := b.cache.Get(ctx, key); ok {
		b.logger.Debug("serving cached matches", zap.String("order_id", order.ID.String()))
		return &MatchOutcome{OrderID: order.ID, Matches: cached, Cached: true}
	}

	results, err := b.engine.FindMatches(ctx, b.store, order, opts)
	matches := make([]map[string]interface{}, 0, len(results))
	for _, r := range results {
		matches = append(matches, r.ToMap())
	}
	out := &MatchOutcome{OrderID: order.ID, Matches: matches, Err: err}
	if err != nil {
		return out
	}

	b.cache.Set(ctx, order.ID.String(), key, matches)
	if len(matches) == 0 {
		b.publish(hermes.SubjectOrderUnmatched(order.ID.String()), hermes.OrderUnmatchedEvent{
			OrderID:          order.ID.String(),
			Title:            order.Title,
			Quantity:         order.Quantity,
			PreferredCountry: order.PreferredCountry,
			IndustryCategory: order.IndustryCategory,
			Reason:           reasonNoEligible,
			Timestamp:        time.Now().UTC(),
		})
	} else {
		b.publish(hermes.SubjectOrderMatched(order.ID.String()), hermes.OrderMatchedEvent{
			OrderID:     order.ID.String(),
			Matches:     matches,
			Count:       len(matches),
			ABTestGroup: opts.ABTestGroup,
			Timestamp:   time.Now().UTC(),
		})
	}
	return out
}

// Broadcast builds the manifest for the given manufacturers and announces it
// so the notification service can contact them.
func (b *Broker) Broadcast(ctx context.Context, order *store.Order, ids []uuid.UUID) (*matching.BroadcastManifest, error) {
	manifest, err := b.engine.Broadcast(ctx, b.store, order, ids)
	if err != nil {
		return nil, err
	}
	if b.hermes == nil {
		b.logger.Warn("event bus not configured, broadcast not dispatched", zap.String("order_id", order.ID.String()))
		return manifest, nil
	}
	if err := b.hermes.Publish(hermes.SubjectOrderBroadcast(order.ID.String()), manifest); err != nil {
		return nil, fmt.Errorf("dispatch broadcast: %w", err)
	}
	return manifest, nil
}

func (b *Broker) Manufacturer(ctx context.Context, id uuid.UUID) (*store.Manufacturer, error) {
	return b.store.GetManufacturer(ctx, id)
}

// Explain scores one manufacturer against an order without any filtering,
// returning the full factor breakdown.
func (b *Broker) Explain(ctx context.Context, order *store.Order, manufacturerID uuid.UUID) (*scoring.MatchResult, error) {
	m, err := b.store.GetManufacturer(ctx, manufacturerID)
	if err != nil {
		return nil, err
	}
	return b.engine.Scorer().ScoreCandidate(order, m, time.Now()), nil
}

// Settings reports the effective matching configuration.
func (b *Broker) Settings() map[string]interface{} {
	cfg := b.engine.Config()
	return map[string]interface{}{
		"weights":             b.engine.Scorer().Weights(),
		"min_match_score":     cfg.MinMatchScore,
		"fallback_min_score":  cfg.FallbackMinScore,
		"default_max_results": cfg.DefaultMaxResults,
		"cache_enabled":       b.cache.Enabled(),
		"event_bus_enabled":   b.hermes != nil,
	}
}

// InvalidateCache drops cached results for an order after it changes.
func (b *Broker) InvalidateCache(ctx context.Context, orderID uuid.UUID) (int64, error) {
	return b.cache.Invalidate(ctx, orderID.String())
}

// SetupSubscriptions registers the NATS handler for asynchronous matching
// requests. Results are announced on the order's matched/unmatched subjects.
func (b *Broker) SetupSubscriptions() error {
	if b.hermes == nil {
		return nil
	}
	return b.hermes.Subscribe(hermes.SubjectMatchRequest, func(_ string, data []byte) {
		b.handleMatchRequest(data)
	})
}

func (b *Broker) handleMatchRequest(data []byte) {
	var req hermes.MatchRequestEvent
	if err := json.Unmarshal(data, &req); err != nil {
		b.logger.Warn("invalid match request event", zap.Error(err))
		return
	}
	order := req.Order
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}

	opts := matching.DefaultOptions()
	opts.MaxResults = req.MaxResults
	opts.ABTestGroup = req.ABTestGroup
	if req.EnableFallback != nil {
		opts.EnableFallback = *req.EnableFallback
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	out := b.FindMatches(ctx, &order, opts)
	if out.Err != nil {
		b.logger.Error("match request failed", zap.String("order_id", order.ID.String()), zap.Error(out.Err))
		return
	}
	b.logger.Info("match request served",
		zap.String("order_id", order.ID.String()),
		zap.Int("matches", len(out.Matches)),
		zap.Bool("cached", out.Cached),
	)
}

func (b *Broker) publish(subject string, payload interface{}) {
	if b.hermes == nil {
		return
	}
	if err := b.hermes.Publish(subject, payload); err != nil {
		b.logger.Warn("publish failed", zap.String("subject", subject), zap.Error(err))
	}
}
