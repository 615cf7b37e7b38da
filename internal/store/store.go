package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("not found")

// TechnicalRequirements is what an order asks of a manufacturer. Every field
// is optional; an empty value means the order does not constrain it.
type TechnicalRequirements struct {
	ManufacturingProcess string   `json:"manufacturing_process,omitempty" yaml:"manufacturing_process"`
	Material             string   `json:"material,omitempty" yaml:"material"`
	IndustryStandards    []string `json:"industry_standards,omitempty" yaml:"industry_standards"`
	SpecialRequirements  []string `json:"special_requirements,omitempty" yaml:"special_requirements"`
}

type Order struct {
	ID                    uuid.UUID             `json:"id" yaml:"id"`
	Title                 string                `json:"title" yaml:"title"`
	TechnicalRequirements TechnicalRequirements `json:"technical_requirements" yaml:"technical_requirements"`
	Quantity              int                   `json:"quantity" yaml:"quantity"`
	BudgetMax             *float64              `json:"budget_max,omitempty" yaml:"budget_max"`
	DeliveryDeadline      *time.Time            `json:"delivery_deadline,omitempty" yaml:"delivery_deadline"`
	PreferredCountry      string                `json:"preferred_country,omitempty" yaml:"preferred_country"`
	IndustryCategory      string                `json:"industry_category,omitempty" yaml:"industry_category"`
	RushOrder             bool                  `json:"rush_order" yaml:"rush_order"`
	MaxDistanceKm         *float64              `json:"max_distance_km,omitempty" yaml:"max_distance_km"`

	// Client location; when unset distance is measured to the configured reference point.
	ClientLatitude  *float64 `json:"client_latitude,omitempty" yaml:"client_latitude"`
	ClientLongitude *float64 `json:"client_longitude,omitempty" yaml:"client_longitude"`
}

// DaysUntilDeadline returns whole days between now and the delivery deadline,
// or nil when the order has no deadline.
func (o *Order) DaysUntilDeadline(now time.Time) *int {
	if o.DeliveryDeadline == nil {
		return nil
	}
	days := int(o.DeliveryDeadline.Sub(now).Hours() / 24)
	if o.DeliveryDeadline.Before(now) && days == 0 {
		days = -1
	}
	return &days
}

// Capabilities lists what a manufacturer offers in each dimension.
type Capabilities struct {
	ManufacturingProcesses []string `json:"manufacturing_processes,omitempty" yaml:"manufacturing_processes"`
	Materials              []string `json:"materials,omitempty" yaml:"materials"`
	IndustriesServed       []string `json:"industries_served,omitempty" yaml:"industries_served"`
	Certifications         []string `json:"certifications,omitempty" yaml:"certifications"`
	SpecialCapabilities    []string `json:"special_capabilities,omitempty" yaml:"special_capabilities"`
}

type Manufacturer struct {
	ID           uuid.UUID    `json:"id" yaml:"id"`
	BusinessName string       `json:"business_name" yaml:"business_name"`
	Capabilities Capabilities `json:"capabilities" yaml:"capabilities"`

	IsActive   bool `json:"is_active" yaml:"is_active"`
	IsVerified bool `json:"is_verified" yaml:"is_verified"`

	// Commercial constraints
	MinOrderQuantity      *int     `json:"min_order_quantity,omitempty" yaml:"min_order_quantity"`
	MaxOrderQuantity      *int     `json:"max_order_quantity,omitempty" yaml:"max_order_quantity"`
	MinOrderValue         *float64 `json:"min_order_value,omitempty" yaml:"min_order_value"`
	StandardLeadTimeDays  *int     `json:"standard_lead_time_days,omitempty" yaml:"standard_lead_time_days"`
	RushOrderAvailable    bool     `json:"rush_order_available" yaml:"rush_order_available"`
	RushOrderLeadTimeDays *int     `json:"rush_order_lead_time_days,omitempty" yaml:"rush_order_lead_time_days"`

	// Location
	Latitude  *float64 `json:"latitude,omitempty" yaml:"latitude"`
	Longitude *float64 `json:"longitude,omitempty" yaml:"longitude"`
	Country   string   `json:"country" yaml:"country"`
	City      string   `json:"city" yaml:"city"`

	// Performance history
	OverallRating          *float64   `json:"overall_rating,omitempty" yaml:"overall_rating"`
	OnTimeDeliveryRate     *float64   `json:"on_time_delivery_rate,omitempty" yaml:"on_time_delivery_rate"`
	TotalOrdersCompleted   int        `json:"total_orders_completed" yaml:"total_orders_completed"`
	CapacityUtilizationPct *float64   `json:"capacity_utilization_pct,omitempty" yaml:"capacity_utilization_pct"`
	CommunicationRating    *float64   `json:"communication_rating,omitempty" yaml:"communication_rating"`
	LastActivityDate       *time.Time `json:"last_activity_date,omitempty" yaml:"last_activity_date"`
	QualityCertifications  []string   `json:"quality_certifications,omitempty" yaml:"quality_certifications"`
}

// AllCertifications merges capability certifications with quality
// certifications, keeping first-seen order.
func (m *Manufacturer) AllCertifications() []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range [][]string{m.Capabilities.Certifications, m.QualityCertifications} {
		for _, c := range list {
			if c == "" || seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// CandidateQuery carries the hard constraints of an eligibility pass. Nil or
// empty fields do not constrain. Relaxed queries only check active/verified.
type CandidateQuery struct {
	Quantity        int
	BudgetMax       *float64
	MaxLeadTimeDays *int
	Country         string
	Relaxed         bool
	Limit           int
}

type Store interface {
	// ListCandidates returns manufacturers admitted by q, most recently active first.
	ListCandidates(ctx context.Context, q CandidateQuery) ([]*Manufacturer, error)
	GetManufacturer(ctx context.Context, id uuid.UUID) (*Manufacturer, error)
	// GetManufacturers returns the found manufacturers in the order of ids.
	GetManufacturers(ctx context.Context, ids []uuid.UUID) ([]*Manufacturer, error)

	Close() error
}
