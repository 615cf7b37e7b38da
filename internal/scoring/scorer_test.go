package scoring

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MikeSquared-Agency/Matchmaker/internal/store"
)

var testNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func float64Ptr(v float64) *float64 { return &v }
func intPtr(v int) *int             { return &v }

func newTestScorer(t *testing.T) *Scorer {
	t.Helper()
	s, err := NewScorer(DefaultWeights(), DefaultConfig(), zap.NewNop())
	if err != nil {
		t.Fatalf("NewScorer: %v", err)
	}
	return s
}

func aerospaceOrder() *store.Order {
	return &store.Order{
		ID:    uuid.New(),
		Title: "Titanium bracket",
		TechnicalRequirements: store.TechnicalRequirements{
			ManufacturingProcess: "5-Axis CNC Machining",
			Material:             "Titanium Grade 5",
			IndustryStandards:    []string{"AS9100", "NADCAP"},
		},
		Quantity:         100,
		IndustryCategory: "Aerospace",
		ClientLatitude:   float64Ptr(40.7128),
		ClientLongitude:  float64Ptr(-74.0060),
	}
}

func perfectManufacturer() *store.Manufacturer {
	activity := testNow.Add(-48 * time.Hour)
	return &store.Manufacturer{
		ID:           uuid.New(),
		BusinessName: "Apex Aerospace Machining",
		Capabilities: store.Capabilities{
			ManufacturingProcesses: []string{"5-Axis CNC Machining", "Wire EDM"},
			Materials:              []string{"Titanium Grade 5", "Aluminum 7075"},
			IndustriesServed:       []string{"Aerospace"},
			Certifications:         []string{"AS9100"},
		},
		QualityCertifications:  []string{"NADCAP"},
		IsActive:               true,
		IsVerified:             true,
		StandardLeadTimeDays:   intPtr(14),
		Latitude:               float64Ptr(40.7128),
		Longitude:              float64Ptr(-74.0060),
		Country:                "US",
		City:                   "New York",
		OverallRating:          float64Ptr(4.8),
		OnTimeDeliveryRate:     float64Ptr(98),
		TotalOrdersCompleted:   60,
		CapacityUtilizationPct: float64Ptr(50),
		CommunicationRating:    float64Ptr(4.9),
		LastActivityDate:       &activity,
	}
}

func poorManufacturer() *store.Manufacturer {
	return &store.Manufacturer{
		ID:           uuid.New(),
		BusinessName: "Corner Machine Shop",
		Capabilities: store.Capabilities{
			ManufacturingProcesses: []string{"Manual Machining"},
			Materials:              []string{"Steel"},
		},
		IsActive:   true,
		IsVerified: true,
		Latitude:   float64Ptr(40.7128),
		Longitude:  float64Ptr(-74.0060),
		Country:    "US",
		City:       "New York",
	}
}

func TestNewScorerRejectsInvalidWeights(t *testing.T) {
	_, err := NewScorer(WeightSet{Capability: 0.9, Geographic: 0.15, Performance: 0.05}, DefaultConfig(), nil)
	if !errors.Is(err, ErrInvalidWeights) {
		t.Fatalf("expected ErrInvalidWeights, got %v", err)
	}
}

func TestNewScorerNilLogger(t *testing.T) {
	s, err := NewScorer(DefaultWeights(), DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// must not panic on debug logging
	s.ScoreCandidate(aerospaceOrder(), poorManufacturer(), testNow)
}

func TestPerfectOutscoresPoor(t *testing.T) {
	s := newTestScorer(t)
	order := aerospaceOrder()

	perfect := s.ScoreCandidate(order, perfectManufacturer(), testNow)
	poor := s.ScoreCandidate(order, poorManufacturer(), testNow)

	if perfect.CapabilityScore < 0.99 {
		t.Errorf("expected near-perfect capability, got %f", perfect.CapabilityScore)
	}
	if poor.CapabilityScore != 0 {
		t.Errorf("expected zero capability for unrelated shop, got %f", poor.CapabilityScore)
	}
	if gap := perfect.TotalScore - poor.TotalScore; gap < 0.5 {
		t.Errorf("expected gap >= 0.5, got %f (perfect %f, poor %f)", gap, perfect.TotalScore, poor.TotalScore)
	}
}

func TestScoresStayInUnitInterval(t *testing.T) {
	s := newTestScorer(t)

	wild := perfectManufacturer()
	wild.OverallRating = float64Ptr(11)
	wild.OnTimeDeliveryRate = float64Ptr(250)
	wild.CommunicationRating = float64Ptr(-3)
	wild.TotalOrdersCompleted = 10000

	empty := &store.Manufacturer{ID: uuid.New(), IsActive: true, IsVerified: true}

	far := poorManufacturer()
	far.Latitude = float64Ptr(-33.8688)
	far.Longitude = float64Ptr(151.2093)
	far.Country = "AU"

	orders := []*store.Order{aerospaceOrder(), {ID: uuid.New()}}
	orders[0].PreferredCountry = "US"

	for _, order := range orders {
		for _, m := range []*store.Manufacturer{perfectManufacturer(), poorManufacturer(), wild, empty, far} {
			r := s.ScoreCandidate(order, m, testNow)
			for name, v := range map[string]float64{
				"total":       r.TotalScore,
				"capability":  r.CapabilityScore,
				"geographic":  r.GeographicScore,
				"performance": r.PerformanceScore,
			} {
				if v < 0 || v > 1 || math.IsNaN(v) {
					t.Errorf("%s: %s score %f outside [0,1]", m.BusinessName, name, v)
				}
			}
		}
	}
}

func TestNewManufacturerPerformanceFloor(t *testing.T) {
	s := newTestScorer(t)
	m := perfectManufacturer()
	m.TotalOrdersCompleted = 0

	r := s.ScoreCandidate(aerospaceOrder(), m, testNow)
	if r.PerformanceScore != NewManufacturerScore {
		t.Errorf("expected %f for new manufacturer, got %f", NewManufacturerScore, r.PerformanceScore)
	}
}

func TestCapabilityFloorWithoutData(t *testing.T) {
	s := newTestScorer(t)
	order := &store.Order{ID: uuid.New(), Quantity: 10}

	r := s.ScoreCandidate(order, perfectManufacturer(), testNow)
	if r.CapabilityScore != CapabilityFloor {
		t.Errorf("expected capability floor %f, got %f", CapabilityFloor, r.CapabilityScore)
	}
	if len(r.CapabilityMatches) != 0 {
		t.Errorf("expected no capability matches, got %v", r.CapabilityMatches)
	}
}

func TestGeographicMissingCoordinates(t *testing.T) {
	s := newTestScorer(t)

	tests := []struct {
		name      string
		preferred string
		country   string
		want      float64
	}{
		{"no preference", "", "MX", 0.4 + 0.6*UnknownDistanceScore},
		{"country match", "US", "US", 0.4 + 0.6*UnknownDistanceScore},
		{"country mismatch", "US", "MX", 0.4*CountryMismatchScore + 0.6*UnknownDistanceScore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := aerospaceOrder()
			order.PreferredCountry = tt.preferred
			m := perfectManufacturer()
			m.Latitude = nil
			m.Longitude = nil
			m.Country = tt.country

			r := s.ScoreCandidate(order, m, testNow)
			if r.DistanceKm != nil {
				t.Errorf("expected nil distance, got %f", *r.DistanceKm)
			}
			if math.Abs(r.GeographicScore-tt.want) > 1e-9 {
				t.Errorf("got %f, want %f", r.GeographicScore, tt.want)
			}
		})
	}
}

func TestReferencePointUsedWithoutClientLocation(t *testing.T) {
	s := newTestScorer(t)
	order := aerospaceOrder()
	order.ClientLatitude = nil
	order.ClientLongitude = nil

	r := s.ScoreCandidate(order, perfectManufacturer(), testNow)
	if r.DistanceKm == nil {
		t.Fatal("expected distance to reference point")
	}
	if *r.DistanceKm > 0.01 {
		t.Errorf("manufacturer sits on the reference point, got %f km", *r.DistanceKm)
	}
}

func TestDistanceBandScore(t *testing.T) {
	bands := DefaultDistanceBands(50)
	tests := []struct {
		km   float64
		want float64
	}{
		{0, 1.0},
		{50, 1.0},
		{150, 0.8},
		{400, 0.6},
		{999, 0.4},
		{5000, BeyondBandsScore},
	}
	for _, tt := range tests {
		if got := DistanceBandScore(bands, tt.km); got != tt.want {
			t.Errorf("DistanceBandScore(%v) = %f, want %f", tt.km, got, tt.want)
		}
	}
}

func TestAvailability(t *testing.T) {
	tests := []struct {
		name   string
		active bool
		util   *float64
		want   AvailabilityStatus
	}{
		{"inactive", false, float64Ptr(10), StatusInactive},
		{"unknown", true, nil, StatusUnknown},
		{"available", true, float64Ptr(79.9), StatusAvailable},
		{"limited", true, float64Ptr(80), StatusLimitedCapacity},
		{"at capacity", true, float64Ptr(95), StatusAtCapacity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &store.Manufacturer{IsActive: tt.active, CapacityUtilizationPct: tt.util}
			if got := Availability(m); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEstimateLeadTime(t *testing.T) {
	tests := []struct {
		name     string
		rush     bool
		supports bool
		rushDays *int
		standard *int
		util     *float64
		want     *int
	}{
		{"no data", false, false, nil, nil, nil, nil},
		{"standard idle", false, false, nil, intPtr(10), float64Ptr(50), intPtr(10)},
		{"standard busy", false, false, nil, intPtr(10), float64Ptr(80), intPtr(11)},
		{"standard saturated", false, false, nil, intPtr(10), float64Ptr(92), intPtr(13)},
		{"rush supported", true, true, intPtr(3), intPtr(10), float64Ptr(92), intPtr(3)},
		{"rush unsupported", true, false, intPtr(3), intPtr(10), nil, intPtr(10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &store.Manufacturer{
				RushOrderAvailable:     tt.supports,
				RushOrderLeadTimeDays:  tt.rushDays,
				StandardLeadTimeDays:   tt.standard,
				CapacityUtilizationPct: tt.util,
			}
			got := EstimateLeadTime(m, &store.Order{RushOrder: tt.rush})
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("expected nil, got %d", *got)
			case tt.want != nil && got == nil:
				t.Errorf("expected %d, got nil", *tt.want)
			case tt.want != nil && *got != *tt.want:
				t.Errorf("got %d, want %d", *got, *tt.want)
			}
		})
	}
}

func TestMatchReasons(t *testing.T) {
	s := newTestScorer(t)
	r := s.ScoreCandidate(aerospaceOrder(), perfectManufacturer(), testNow)

	want := []string{
		"Excellent capability match",
		"Local manufacturer in New York",
		"High-rated manufacturer",
		"Experienced manufacturer (60 orders completed)",
		"Meets required certifications",
		"Available capacity (50% utilized)",
	}
	for _, w := range want {
		if !containsPrefix(r.MatchReasons, w) {
			t.Errorf("missing reason %q in %v", w, r.MatchReasons)
		}
	}
	if len(r.RiskFactors) != 0 {
		t.Errorf("expected no risks, got %v", r.RiskFactors)
	}
}

func TestRiskFactors(t *testing.T) {
	s := newTestScorer(t)
	stale := testNow.Add(-45 * 24 * time.Hour)

	m := poorManufacturer()
	m.TotalOrdersCompleted = 2
	m.CapacityUtilizationPct = float64Ptr(96)
	m.OverallRating = float64Ptr(3.0)
	m.OnTimeDeliveryRate = float64Ptr(70)
	m.LastActivityDate = &stale
	m.Latitude = float64Ptr(42.3601)
	m.Longitude = float64Ptr(-71.0589)

	order := aerospaceOrder()
	order.RushOrder = true
	order.MaxDistanceKm = float64Ptr(100)

	r := s.ScoreCandidate(order, m, testNow)
	want := []string{
		"Limited order history (2 completed)",
		"High capacity utilization (96%)",
		"Below-average rating (3.0/5)",
		"On-time delivery below 80%",
		"Inactive for 45 days",
		"Rush orders not supported",
		"Beyond requested distance",
	}
	for _, w := range want {
		if !containsPrefix(r.RiskFactors, w) {
			t.Errorf("missing risk %q in %v", w, r.RiskFactors)
		}
	}
	if r.AvailabilityStatus != StatusAtCapacity {
		t.Errorf("expected at_capacity, got %s", r.AvailabilityStatus)
	}
}

func TestScoreCandidateFactors(t *testing.T) {
	s := newTestScorer(t)
	r := s.ScoreCandidate(aerospaceOrder(), perfectManufacturer(), testNow)

	// five capability components plus geographic and performance
	if len(r.Factors) != 7 {
		t.Fatalf("expected 7 factors, got %d", len(r.Factors))
	}
	if _, ok := r.CapabilityMatches[ComponentSpecial]; ok {
		t.Error("special capabilities should not be scored when the order has none")
	}
	if got := r.CapabilityMatches[ComponentCertification]; got != 1.0 {
		t.Errorf("expected certifications 1.0 across both lists, got %f", got)
	}
}

func containsPrefix(list []string, prefix string) bool {
	for _, s := range list {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

func TestCertificationVariantMatches(t *testing.T) {
	s := newTestScorer(t)
	order := aerospaceOrder()
	order.TechnicalRequirements.IndustryStandards = []string{"ISO 9001"}
	m := perfectManufacturer()
	m.Capabilities.Certifications = []string{"ISO 9001:2015"}
	m.QualityCertifications = nil

	r := s.ScoreCandidate(order, m, testNow)
	if got := r.CapabilityMatches[ComponentCertification]; got != 0.76 {
		t.Errorf("expected ISO 9001:2015 to satisfy ISO 9001 at 0.76, got %f", got)
	}
}
