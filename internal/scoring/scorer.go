package scoring

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/MikeSquared-Agency/Matchmaker/internal/geo"
	"github.com/MikeSquared-Agency/Matchmaker/internal/similarity"
	"github.com/MikeSquared-Agency/Matchmaker/internal/store"
)

// AvailabilityStatus is a coarse capacity label derived from utilization.
type AvailabilityStatus string

const (
	StatusAvailable       AvailabilityStatus = "available"
	StatusLimitedCapacity AvailabilityStatus = "limited_capacity"
	StatusAtCapacity      AvailabilityStatus = "at_capacity"
	StatusInactive        AvailabilityStatus = "inactive"
	StatusUnknown         AvailabilityStatus = "status_unknown"
)

// MatchResult captures the complete scoring output for a single manufacturer–order pair.
type MatchResult struct {
	Manufacturer *store.Manufacturer `json:"-"`

	TotalScore       float64 `json:"total_score"`
	CapabilityScore  float64 `json:"capability_score"`
	GeographicScore  float64 `json:"geographic_score"`
	PerformanceScore float64 `json:"performance_score"`

	DistanceKm            *float64           `json:"distance_km,omitempty"`
	MatchReasons          []string           `json:"match_reasons"`
	CapabilityMatches     map[string]float64 `json:"capability_matches"`
	AvailabilityStatus    AvailabilityStatus `json:"availability_status"`
	EstimatedLeadTimeDays *int               `json:"estimated_lead_time,omitempty"`
	CapacityUtilization   *float64           `json:"capacity_utilization,omitempty"`
	RiskFactors           []string           `json:"risk_factors"`

	Factors []FactorResult `json:"factors,omitempty"`
}

// Config holds the tunables of a Scorer.
type Config struct {
	FuzzyThreshold    int
	CapabilityWeights CapabilityWeights
	DistanceBands     []DistanceBand
	// Reference is the client location used when an order carries none.
	Reference geo.Point
}

// DefaultConfig returns the production tunables.
func DefaultConfig() Config {
	return Config{
		FuzzyThreshold:    similarity.DefaultThreshold,
		CapabilityWeights: DefaultCapabilityWeights(),
		DistanceBands:     DefaultDistanceBands(50),
		Reference:         geo.Point{Lat: 40.7128, Lon: -74.0060},
	}
}

// Scorer combines capability, geographic and performance factors.
// It holds only immutable configuration and is safe for concurrent use.
type Scorer struct {
	weights WeightSet
	cfg     Config
	fuzzy   similarity.Matcher
	logger  *zap.Logger
}

// NewScorer validates weights and returns a Scorer. Invalid weights are a
// configuration error; no scorer is built.
func NewScorer(weights WeightSet, cfg Config, logger *zap.Logger) (*Scorer, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if len(cfg.DistanceBands) == 0 {
		cfg.DistanceBands = DefaultDistanceBands(50)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{
		weights: weights,
		cfg:     cfg,
		fuzzy:   similarity.NewMatcher(cfg.FuzzyThreshold),
		logger:  logger,
	}, nil
}

// Weights returns the validated top-level weights the scorer was built with.
func (s *Scorer) Weights() WeightSet { return s.weights }

// Context builds the MatchContext for one pair, resolving distance.
func (s *Scorer) Context(order *store.Order, m *store.Manufacturer, now time.Time) *MatchContext {
	client := s.cfg.Reference
	if p, ok := geo.PointFrom(order.ClientLatitude, order.ClientLongitude); ok {
		client = p
	}
	return &MatchContext{
		Order:        order,
		Manufacturer: m,
		Now:          now,
		DistanceKm:   geo.DistanceKm(client, m.Latitude, m.Longitude),
	}
}

// ScoreCandidate computes the full MatchResult for one manufacturer–order pair.
func (s *Scorer) ScoreCandidate(order *store.Order, m *store.Manufacturer, now time.Time) *MatchResult {
	mc := s.Context(order, m, now)

	components := CapabilityComponents(s.fuzzy, s.cfg.CapabilityWeights, mc)
	capability := CapabilityScore(components)
	geographic := GeographicFactor(s.cfg.DistanceBands, mc)
	performance := PerformanceFactor(mc)

	total := clamp(
		capability*s.weights.Capability+
			geographic.Score*s.weights.Geographic+
			performance.Score*s.weights.Performance,
		0, 1)

	matches := make(map[string]float64, len(components))
	for _, c := range components {
		if c.Available {
			matches[c.Name] = c.Score
		}
	}

	geographic.Weight = s.weights.Geographic
	geographic.Weighted = geographic.Score * s.weights.Geographic
	performance.Weight = s.weights.Performance
	performance.Weighted = performance.Score * s.weights.Performance

	result := &MatchResult{
		Manufacturer:          m,
		TotalScore:            total,
		CapabilityScore:       capability,
		GeographicScore:       geographic.Score,
		PerformanceScore:      performance.Score,
		DistanceKm:            mc.DistanceKm,
		CapabilityMatches:     matches,
		AvailabilityStatus:    Availability(m),
		EstimatedLeadTimeDays: EstimateLeadTime(m, order),
		CapacityUtilization:   m.CapacityUtilizationPct,
		Factors:               append(components, geographic, performance),
	}
	result.MatchReasons = matchReasons(mc, result)
	result.RiskFactors = riskFactors(mc, result)

	s.logger.Debug("scored candidate",
		zap.String("order_id", order.ID.String()),
		zap.String("manufacturer_id", m.ID.String()),
		zap.Float64("total", total),
		zap.Float64("capability", capability),
		zap.Float64("geographic", geographic.Score),
		zap.Float64("performance", performance.Score),
	)
	return result
}

// Availability derives status from capacity utilization. Inactive
// manufacturers are always reported inactive.
func Availability(m *store.Manufacturer) AvailabilityStatus {
	if !m.IsActive {
		return StatusInactive
	}
	if m.CapacityUtilizationPct == nil {
		return StatusUnknown
	}
	switch u := *m.CapacityUtilizationPct; {
	case u >= 95:
		return StatusAtCapacity
	case u >= 80:
		return StatusLimitedCapacity
	default:
		return StatusAvailable
	}
}

// EstimateLeadTime returns the rush lead time when both sides want rush,
// otherwise the standard lead time inflated by current utilization.
func EstimateLeadTime(m *store.Manufacturer, order *store.Order) *int {
	if order.RushOrder && m.RushOrderAvailable && m.RushOrderLeadTimeDays != nil {
		days := *m.RushOrderLeadTimeDays
		return &days
	}
	if m.StandardLeadTimeDays == nil {
		return nil
	}
	days := float64(*m.StandardLeadTimeDays)
	if u := m.CapacityUtilizationPct; u != nil {
		switch {
		case *u >= 90:
			days *= 1.3
		case *u >= 75:
			days *= 1.1
		}
	}
	// tolerance keeps 10*1.1 from rounding up to 12
	out := int(math.Ceil(days - 1e-9))
	return &out
}

func matchReasons(mc *MatchContext, r *MatchResult) []string {
	m := mc.Manufacturer
	reasons := []string{}

	switch {
	case r.CapabilityScore > 0.8:
		reasons = append(reasons, fmt.Sprintf("Excellent capability match (%.0f%%)", r.CapabilityScore*100))
	case r.CapabilityScore > 0.6:
		reasons = append(reasons, fmt.Sprintf("Good capability match (%.0f%%)", r.CapabilityScore*100))
	}
	if r.GeographicScore > 0.8 {
		reasons = append(reasons, fmt.Sprintf("Local manufacturer in %s", m.City))
	}
	if r.PerformanceScore > 0.8 {
		reasons = append(reasons, "High-rated manufacturer")
	}
	if m.TotalOrdersCompleted >= ExperienceSaturation {
		reasons = append(reasons, fmt.Sprintf("Experienced manufacturer (%d orders completed)", m.TotalOrdersCompleted))
	}
	if cert, ok := r.CapabilityMatches[ComponentCertification]; ok && cert >= 0.8 {
		reasons = append(reasons, "Meets required certifications")
	}
	if r.AvailabilityStatus == StatusAvailable && r.CapacityUtilization != nil && *r.CapacityUtilization < 70 {
		reasons = append(reasons, fmt.Sprintf("Available capacity (%.0f%% utilized)", *r.CapacityUtilization))
	}
	if mc.Order.RushOrder && m.RushOrderAvailable {
		reasons = append(reasons, "Rush orders supported")
	}
	return reasons
}

func riskFactors(mc *MatchContext, r *MatchResult) []string {
	m := mc.Manufacturer
	risks := []string{}

	if m.TotalOrdersCompleted < 5 {
		risks = append(risks, fmt.Sprintf("Limited order history (%d completed)", m.TotalOrdersCompleted))
	}
	if u := m.CapacityUtilizationPct; u != nil && *u > 90 {
		risks = append(risks, fmt.Sprintf("High capacity utilization (%.0f%%)", *u))
	}
	if m.OverallRating != nil && *m.OverallRating < 3.5 {
		risks = append(risks, fmt.Sprintf("Below-average rating (%.1f/5)", *m.OverallRating))
	}
	if m.OnTimeDeliveryRate != nil && *m.OnTimeDeliveryRate < 80 {
		risks = append(risks, fmt.Sprintf("On-time delivery below 80%% (%.0f%%)", *m.OnTimeDeliveryRate))
	}
	if m.LastActivityDate != nil {
		if idle := int(mc.Now.Sub(*m.LastActivityDate).Hours() / 24); idle > 30 {
			risks = append(risks, fmt.Sprintf("Inactive for %d days", idle))
		}
	}
	if mc.Order.RushOrder && !m.RushOrderAvailable {
		risks = append(risks, "Rush orders not supported")
	}
	if limit := mc.Order.MaxDistanceKm; limit != nil && r.DistanceKm != nil && *r.DistanceKm > *limit {
		risks = append(risks, fmt.Sprintf("Beyond requested distance (%.0f km > %.0f km)", *r.DistanceKm, *limit))
	}
	return risks
}
