package scoring

import "math"

// ToMap flattens the result for JSON responses. Scores are rounded to three
// decimals; optional values are nil when unknown.
func (r *MatchResult) ToMap() map[string]interface{} {
	m := r.Manufacturer

	matches := make(map[string]float64, len(r.CapabilityMatches))
	for k, v := range r.CapabilityMatches {
		matches[k] = round(v, 3)
	}

	out := map[string]interface{}{
		"total_score":          round(r.TotalScore, 3),
		"capability_score":     round(r.CapabilityScore, 3),
		"geographic_score":     round(r.GeographicScore, 3),
		"performance_score":    round(r.PerformanceScore, 3),
		"distance_km":          nil,
		"match_reasons":        nonNil(r.MatchReasons),
		"capability_matches":   matches,
		"availability_status":  string(r.AvailabilityStatus),
		"estimated_lead_time":  nil,
		"capacity_utilization": nil,
		"risk_factors":         nonNil(r.RiskFactors),
	}
	if r.DistanceKm != nil {
		out["distance_km"] = round(*r.DistanceKm, 1)
	}
	if r.EstimatedLeadTimeDays != nil {
		out["estimated_lead_time"] = *r.EstimatedLeadTimeDays
	}
	if r.CapacityUtilization != nil {
		out["capacity_utilization"] = *r.CapacityUtilization
	}

	if m != nil {
		out["manufacturer_id"] = m.ID.String()
		out["business_name"] = m.BusinessName
		out["total_orders_completed"] = m.TotalOrdersCompleted
		out["city"] = m.City
		out["country"] = m.Country
		out["overall_rating"] = nil
		if m.OverallRating != nil {
			out["overall_rating"] = *m.OverallRating
		}
	}
	return out
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
