package matching

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MikeSquared-Agency/Matchmaker/internal/eligibility"
	"github.com/MikeSquared-Agency/Matchmaker/internal/metrics"
	"github.com/MikeSquared-Agency/Matchmaker/internal/scoring"
	"github.com/MikeSquared-Agency/Matchmaker/internal/store"
)

// FallbackReason is appended to the reasons of every relaxed-pass result.
const FallbackReason = "Fallback match - relaxed criteria"

// Pipeline stages, used in logs, metrics and MatchError.
const (
	StageInput     = "input"
	StageFilter    = "filter"
	StageScore     = "score"
	StageThreshold = "threshold"
	StageBusiness  = "business_rules"
	StageFallback  = "fallback"
	StageRank      = "rank"
	StageBroadcast = "broadcast"
)

var (
	ErrNilOrder        = errors.New("order is required")
	errNilManufacturer = errors.New("nil manufacturer record")
)

// CandidateSource supplies manufacturers to the engine. store.Store satisfies it.
type CandidateSource interface {
	ListCandidates(ctx context.Context, q store.CandidateQuery) ([]*store.Manufacturer, error)
	GetManufacturers(ctx context.Context, ids []uuid.UUID) ([]*store.Manufacturer, error)
}

// MatchError describes a matching run that could not complete. The engine
// still returns an empty, non-nil result list alongside it.
type MatchError struct {
	OrderID uuid.UUID
	Stage   string
	Err     error
}

func (e *MatchError) Error() string {
	return fmt.Sprintf("matching order %s failed at %s: %v", e.OrderID, e.Stage, e.Err)
}

func (e *MatchError) Unwrap() error { return e.Err }

// Config holds the ranking thresholds.
type Config struct {
	MinMatchScore     float64
	FallbackMinScore  float64
	DefaultMaxResults int
}

func DefaultConfig() Config {
	return Config{
		MinMatchScore:     0.1,
		FallbackMinScore:  0.05,
		DefaultMaxResults: 20,
	}
}

// Options are the per-call knobs of FindMatches.
type Options struct {
	// MaxResults <= 0 uses the engine default.
	MaxResults     int
	EnableFallback bool
	// ABTestGroup is only logged.
	ABTestGroup string
}

// DefaultOptions enables fallback and uses the engine's default result count.
func DefaultOptions() Options {
	return Options{EnableFallback: true}
}

// Engine runs filter, score, threshold, business rules, fallback and rank.
// It holds only immutable configuration and is safe for concurrent use.
type Engine struct {
	scorer *scoring.Scorer
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// NewEngine builds an engine. Invalid weights are a configuration error.
func NewEngine(weights scoring.WeightSet, scoringCfg scoring.Config, cfg Config, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	scorer, err := scoring.NewScorer(weights, scoringCfg, logger.Named("scoring"))
	if err != nil {
		return nil, fmt.Errorf("build scorer: %w", err)
	}
	def := DefaultConfig()
	if cfg.MinMatchScore <= 0 {
		cfg.MinMatchScore = def.MinMatchScore
	}
	if cfg.FallbackMinScore <= 0 {
		cfg.FallbackMinScore = def.FallbackMinScore
	}
	if cfg.DefaultMaxResults <= 0 {
		cfg.DefaultMaxResults = def.DefaultMaxResults
	}
	return &Engine{
		scorer: scorer,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}, nil
}

func (e *Engine) Scorer() *scoring.Scorer { return e.scorer }

func (e *Engine) Config() Config { return e.cfg }

// FindMatches returns the ranked matches for order, best first. It never
// panics: any failure yields an empty list and a *MatchError.
func (e *Engine) FindMatches(ctx context.Context, src CandidateSource, order *store.Order, opts Options) (results []*scoring.MatchResult, err error) {
	runStart := time.Now()
	stage := StageInput

	orderID := uuid.Nil
	if order != nil {
		orderID = order.ID
	}
	log := e.logger.With(
		zap.String("order_id", orderID.String()),
		zap.String("ab_test_group", opts.ABTestGroup),
	)

	outcome := metrics.OutcomeMatched
	defer func() {
		if p := recover(); p != nil {
			err = &MatchError{OrderID: orderID, Stage: stage, Err: fmt.Errorf("panic: %v", p)}
		}
		if err != nil {
			log.Error("matching run failed", zap.String("stage", stage), zap.Error(err))
			results = []*scoring.MatchResult{}
			outcome = metrics.OutcomeError
		} else if len(results) == 0 {
			outcome = metrics.OutcomeUnmatched
		}
		metrics.MatchingRunsTotal.WithLabelValues(outcome).Inc()
		metrics.MatchingDuration.WithLabelValues("total").Observe(time.Since(runStart).Seconds())
	}()

	if order == nil {
		return nil, &MatchError{OrderID: orderID, Stage: stage, Err: ErrNilOrder}
	}
	if src == nil {
		return nil, &MatchError{OrderID: orderID, Stage: stage, Err: errors.New("candidate source is required")}
	}

	now := e.now()
	limit := opts.MaxResults
	if limit <= 0 {
		limit = e.cfg.DefaultMaxResults
	}

	stage = StageFilter
	started := time.Now()
	candidates, err := src.ListCandidates(ctx, eligibility.QueryFor(order, now))
	if err != nil {
		return nil, &MatchError{OrderID: orderID, Stage: stage, Err: err}
	}
	e.observe(log, stage, len(candidates), started)

	if len(candidates) == 0 {
		if !opts.EnableFallback {
			log.Info("no eligible manufacturers, fallback disabled")
			return []*scoring.MatchResult{}, nil
		}
		stage = StageFallback
		results, err = e.fallback(ctx, src, order, now, log)
		if err != nil {
			return nil, &MatchError{OrderID: orderID, Stage: stage, Err: err}
		}
		if len(results) > 0 {
			outcome = metrics.OutcomeFallback
		}
	} else {
		stage = StageScore
		started = time.Now()
		scored := e.scoreAll(order, candidates, now, log)
		e.observe(log, stage, len(scored), started)

		stage = StageThreshold
		started = time.Now()
		scored = aboveThreshold(scored, e.cfg.MinMatchScore)
		e.observe(log, stage, len(scored), started)

		stage = StageBusiness
		started = time.Now()
		results = withinDeadline(scored, order.DaysUntilDeadline(now))
		e.observe(log, stage, len(results), started)
	}

	stage = StageRank
	started = time.Now()
	Rank(results)
	if len(results) > limit {
		results = results[:limit]
	}
	e.observe(log, stage, len(results), started)

	log.Info("matching run complete",
		zap.Int("results", len(results)),
		zap.Duration("elapsed", time.Since(runStart)),
	)
	return results, nil
}

func (e *Engine) fallback(ctx context.Context, src CandidateSource, order *store.Order, now time.Time, log *zap.Logger) ([]*scoring.MatchResult, error) {
	started := time.Now()
	candidates, err := src.ListCandidates(ctx, eligibility.RelaxedQuery(order))
	if err != nil {
		return nil, fmt.Errorf("relaxed candidate query: %w", err)
	}

	results := aboveThreshold(e.scoreAll(order, candidates, now, log), e.cfg.FallbackMinScore)
	for _, r := range results {
		r.MatchReasons = append(r.MatchReasons, FallbackReason)
	}
	log.Info("fallback pass", zap.Int("relaxed_candidates", len(candidates)))
	e.observe(log, StageFallback, len(results), started)
	return results, nil
}

// scoreAll scores every candidate. A record that cannot be scored is logged
// and skipped without affecting the others.
func (e *Engine) scoreAll(order *store.Order, candidates []*store.Manufacturer, now time.Time, log *zap.Logger) []*scoring.MatchResult {
	out := make([]*scoring.MatchResult, 0, len(candidates))
	for i, m := range candidates {
		r, err := e.scoreOne(order, m, now)
		if err != nil {
			fields := []zap.Field{zap.Int("index", i), zap.Error(err)}
			if m != nil {
				fields = append(fields, zap.String("manufacturer_id", m.ID.String()))
			}
			log.Warn("skipping manufacturer", fields...)
			continue
		}
		out = append(out, r)
	}
	return out
}

func (e *Engine) scoreOne(order *store.Order, m *store.Manufacturer, now time.Time) (r *scoring.MatchResult, err error) {
	if m == nil {
		return nil, errNilManufacturer
	}
	defer func() {
		if p := recover(); p != nil {
			r, err = nil, fmt.Errorf("scoring panicked: %v", p)
		}
	}()
	return e.scorer.ScoreCandidate(order, m, now), nil
}

func (e *Engine) observe(log *zap.Logger, stage string, n int, started time.Time) {
	metrics.ObserveStage(stage, n, started)
	log.Debug("stage complete",
		zap.String("stage", stage),
		zap.Int("candidates", n),
		zap.Duration("elapsed", time.Since(started)),
	)
}

func aboveThreshold(results []*scoring.MatchResult, floor float64) []*scoring.MatchResult {
	out := results[:0]
	for _, r := range results {
		if r.TotalScore >= floor {
			out = append(out, r)
		}
	}
	return out
}

// withinDeadline drops results whose estimated lead time exceeds the days
// left before the deadline. Unknown values on either side keep the result.
func withinDeadline(results []*scoring.MatchResult, daysLeft *int) []*scoring.MatchResult {
	if daysLeft == nil {
		return results
	}
	out := results[:0]
	for _, r := range results {
		if r.EstimatedLeadTimeDays != nil && *r.EstimatedLeadTimeDays > *daysLeft {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Rank sorts results by total score, highest first. Ties keep a stable order
// by manufacturer ID.
func Rank(results []*scoring.MatchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		return a.Manufacturer.ID.String() < b.Manufacturer.ID.String()
	})
}
