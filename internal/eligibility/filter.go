package eligibility

import (
	"sort"
	"time"

	"github.com/MikeSquared-Agency/Matchmaker/internal/store"
)

// Rejection reasons reported by Check.
const (
	ReasonInactive   = "inactive"
	ReasonUnverified = "unverified"
	ReasonMOQ        = "min_order_quantity"
	ReasonOrderValue = "min_order_value"
	ReasonLeadTime   = "lead_time"
	ReasonCountry    = "country"
)

// QueryFor derives the hard constraints an order places on manufacturers.
func QueryFor(order *store.Order, now time.Time) store.CandidateQuery {
	return store.CandidateQuery{
		Quantity:        order.Quantity,
		BudgetMax:       order.BudgetMax,
		MaxLeadTimeDays: order.DaysUntilDeadline(now),
		Country:         order.PreferredCountry,
	}
}

// RelaxedQuery keeps only the active and verified constraints.
func RelaxedQuery(order *store.Order) store.CandidateQuery {
	return store.CandidateQuery{Quantity: order.Quantity, Relaxed: true}
}

// Check reports whether m satisfies q, and if not, the first failed rule.
// A constraint missing on either side never disqualifies.
func Check(m *store.Manufacturer, q store.CandidateQuery) (bool, string) {
	if !m.IsActive {
		return false, ReasonInactive
	}
	if !m.IsVerified {
		return false, ReasonUnverified
	}
	if q.Relaxed {
		return true, ""
	}
	if m.MinOrderQuantity != nil && *m.MinOrderQuantity > q.Quantity {
		return false, ReasonMOQ
	}
	if m.MinOrderValue != nil && q.BudgetMax != nil && *m.MinOrderValue > *q.BudgetMax {
		return false, ReasonOrderValue
	}
	if m.StandardLeadTimeDays != nil && q.MaxLeadTimeDays != nil && *m.StandardLeadTimeDays > *q.MaxLeadTimeDays {
		return false, ReasonLeadTime
	}
	if q.Country != "" && m.Country != q.Country {
		return false, ReasonCountry
	}
	return true, ""
}

// Apply returns the manufacturers admitted by q, most recently active first,
// truncated to q.Limit when set. The input slice is not modified.
func Apply(manufacturers []*store.Manufacturer, q store.CandidateQuery) []*store.Manufacturer {
	out := make([]*store.Manufacturer, 0, len(manufacturers))
	for _, m := range manufacturers {
		if m == nil {
			continue
		}
		if ok, _ := Check(m, q); ok {
			out = append(out, m)
		}
	}
	SortByRecentActivity(out)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// Filter narrows the population to manufacturers that can structurally fulfil the order.
func Filter(manufacturers []*store.Manufacturer, order *store.Order, now time.Time) []*store.Manufacturer {
	return Apply(manufacturers, QueryFor(order, now))
}

// SortByRecentActivity orders manufacturers by last activity, newest first;
// unknown activity sorts last.
func SortByRecentActivity(ms []*store.Manufacturer) {
	sort.SliceStable(ms, func(i, j int) bool {
		a, b := ms[i].LastActivityDate, ms[j].LastActivityDate
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
}
