package hermes

import (
	"time"

	"github.com/MikeSquared-Agency/Matchmaker/internal/store"
)

// MatchRequestEvent asks the service to match an order. EnableFallback
// defaults to true when omitted.
type MatchRequestEvent struct {
	Order          store.Order `json:"order"`
	MaxResults     int         `json:"max_results,omitempty"`
	EnableFallback *bool       `json:"enable_fallback,omitempty"`
	ABTestGroup    string      `json:"ab_test_group,omitempty"`
}

type OrderMatchedEvent struct {
	OrderID     string                   `json:"order_id"`
	Matches     []map[string]interface{} `json:"matches"`
	Count       int                      `json:"count"`
	ABTestGroup string                   `json:"ab_test_group,omitempty"`
	Timestamp   time.Time                `json:"timestamp"`
}

type OrderUnmatchedEvent struct {
	OrderID          string    `json:"order_id"`
	Title            string    `json:"title,omitempty"`
	Quantity         int       `json:"quantity"`
	PreferredCountry string    `json:"preferred_country,omitempty"`
	IndustryCategory string    `json:"industry_category,omitempty"`
	Reason           string    `json:"reason"`
	Timestamp        time.Time `json:"timestamp"`
}
