package scoring

import (
	"math"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/Matchmaker/internal/similarity"
	"github.com/MikeSquared-Agency/Matchmaker/internal/store"
)

// Neutral values used when data is too sparse to score.
const (
	CapabilityFloor      = 0.1
	NewManufacturerScore = 0.3
	UnknownDistanceScore = 0.5
	BeyondBandsScore     = 0.2
	CountryMismatchScore = 0.25
	ExperienceSaturation = 50
)

// Capability component names, also the keys of MatchResult.CapabilityMatches.
const (
	ComponentProcess       = "manufacturing_process"
	ComponentMaterial      = "material"
	ComponentIndustry      = "industry"
	ComponentCertification = "certifications"
	ComponentSpecial       = "special_capabilities"
)

// FactorResult captures one factor's contribution to a score.
type FactorResult struct {
	Name      string  `json:"name"`
	Score     float64 `json:"score"`
	Weight    float64 `json:"weight"`
	Weighted  float64 `json:"weighted"`
	Available bool    `json:"available"`
	Reason    string  `json:"reason"`
}

// MatchContext bundles all inputs needed to score a single manufacturer–order pair.
type MatchContext struct {
	Order        *store.Order
	Manufacturer *store.Manufacturer
	Now          time.Time

	// nil when the manufacturer has no coordinates
	DistanceKm *float64
}

// --- Capability ---

// CapabilityComponents fuzzy-matches each order requirement against the
// manufacturer's matching capability list. Components missing data on either
// side are returned with Available=false and take no part in the score.
func CapabilityComponents(fm similarity.Matcher, w CapabilityWeights, mc *MatchContext) []FactorResult {
	req := mc.Order.TechnicalRequirements
	caps := mc.Manufacturer.Capabilities

	single := func(name, target string, offered []string, weight float64) FactorResult {
		if strings.TrimSpace(target) == "" || !similarity.HasAny(offered) {
			return FactorResult{Name: name, Weight: weight, Reason: "insufficient data"}
		}
		return weighted(name, fm.BestMatch(target, offered), weight)
	}
	multi := func(name string, targets, offered []string, weight float64) FactorResult {
		if !similarity.HasAny(targets) || !similarity.HasAny(offered) {
			return FactorResult{Name: name, Weight: weight, Reason: "insufficient data"}
		}
		return weighted(name, fm.AverageMatch(targets, offered), weight)
	}

	return []FactorResult{
		single(ComponentProcess, req.ManufacturingProcess, caps.ManufacturingProcesses, w.Process),
		single(ComponentMaterial, req.Material, caps.Materials, w.Material),
		single(ComponentIndustry, mc.Order.IndustryCategory, caps.IndustriesServed, w.Industry),
		multi(ComponentCertification, req.IndustryStandards, mc.Manufacturer.AllCertifications(), w.Certification),
		multi(ComponentSpecial, req.SpecialRequirements, caps.SpecialCapabilities, w.Special),
	}
}

func weighted(name string, score, weight float64) FactorResult {
	score = clamp(score, 0, 1)
	reason := "no match"
	if score > 0 {
		reason = "fuzzy match"
	}
	return FactorResult{
		Name:      name,
		Score:     score,
		Weight:    weight,
		Weighted:  score * weight,
		Available: true,
		Reason:    reason,
	}
}

// CapabilityScore normalises the available components by their total weight.
// With nothing to compare it returns CapabilityFloor.
func CapabilityScore(components []FactorResult) float64 {
	var sum, weights float64
	for _, c := range components {
		if !c.Available {
			continue
		}
		sum += c.Weighted
		weights += c.Weight
	}
	if weights <= 0 {
		return CapabilityFloor
	}
	return clamp(sum/weights, 0, 1)
}

// --- Geographic ---

// GeographicFactor blends a country-preference term (40%) with a distance
// band term (60%).
func GeographicFactor(bands []DistanceBand, mc *MatchContext) FactorResult {
	country := 1.0
	pref := mc.Order.PreferredCountry
	if pref != "" && mc.Manufacturer.Country != pref {
		country = CountryMismatchScore
	}

	distance := UnknownDistanceScore
	reason := "distance unknown"
	if mc.DistanceKm != nil {
		distance = DistanceBandScore(bands, *mc.DistanceKm)
		reason = "distance banded"
	}

	score := clamp(country*0.4+distance*0.6, 0, 1)
	return FactorResult{Name: "geographic", Score: score, Available: mc.DistanceKm != nil || pref != "", Reason: reason}
}

// DistanceBandScore returns the credit of the first band containing km.
func DistanceBandScore(bands []DistanceBand, km float64) float64 {
	for _, b := range bands {
		if km <= b.MaxKm {
			return b.Credit
		}
	}
	return BeyondBandsScore
}

// --- Performance ---

// PerformanceFactor scores track record. Manufacturers with no completed
// orders get NewManufacturerScore regardless of other fields.
func PerformanceFactor(mc *MatchContext) FactorResult {
	m := mc.Manufacturer
	if m.TotalOrdersCompleted <= 0 {
		return FactorResult{Name: "performance", Score: NewManufacturerScore, Available: false, Reason: "new manufacturer"}
	}

	var score float64
	if m.OverallRating != nil {
		score += clamp(*m.OverallRating/5.0, 0, 1) * 0.4
	}
	if m.OnTimeDeliveryRate != nil {
		score += clamp(*m.OnTimeDeliveryRate/100.0, 0, 1) * 0.3
	}
	score += math.Min(float64(m.TotalOrdersCompleted)/ExperienceSaturation, 1.0) * 0.2
	if m.CommunicationRating != nil {
		score += clamp(*m.CommunicationRating/5.0, 0, 1) * 0.1
	}
	return FactorResult{Name: "performance", Score: clamp(score, 0, 1), Available: true, Reason: "from history"}
}

func clamp(v, min, max float64) float64 {
	if math.IsNaN(v) {
		return min
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
