package store

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestDaysUntilDeadline(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	o := &Order{}
	if d := o.DaysUntilDeadline(now); d != nil {
		t.Errorf("expected nil without deadline, got %d", *d)
	}

	tests := []struct {
		name     string
		deadline time.Time
		want     int
	}{
		{"ten days out", now.AddDate(0, 0, 10), 10},
		{"partial day rounds down", now.Add(36 * time.Hour), 1},
		{"later today", now.Add(3 * time.Hour), 0},
		{"earlier today is overdue", now.Add(-3 * time.Hour), -1},
		{"two days ago", now.AddDate(0, 0, -2), -2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &Order{DeliveryDeadline: &tt.deadline}
			got := o.DaysUntilDeadline(now)
			if got == nil || *got != tt.want {
				t.Errorf("expected %d, got %v", tt.want, got)
			}
		})
	}
}

func TestAllCertificationsMergesAndDedupes(t *testing.T) {
	m := &Manufacturer{
		Capabilities:          Capabilities{Certifications: []string{"AS9100", "ISO 9001"}},
		QualityCertifications: []string{"ISO 9001", "NADCAP", ""},
	}
	got := m.AllCertifications()
	want := []string{"AS9100", "ISO 9001", "NADCAP"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestOrderByIDs(t *testing.T) {
	a := &Manufacturer{ID: uuid.New()}
	b := &Manufacturer{ID: uuid.New()}
	c := &Manufacturer{ID: uuid.New()}

	got := OrderByIDs([]*Manufacturer{a, b, c}, []uuid.UUID{c.ID, uuid.New(), a.ID})
	if len(got) != 2 || got[0] != c || got[1] != a {
		t.Errorf("expected [c, a], got %v", got)
	}
}

func TestBuildCandidateQueryStrict(t *testing.T) {
	budget := 5000.0
	lead := 30
	query, args := buildCandidateQuery(CandidateQuery{
		Quantity:        50,
		BudgetMax:       &budget,
		MaxLeadTimeDays: &lead,
		Country:         "US",
		Limit:           100,
	})

	for _, frag := range []string{
		"is_active AND is_verified",
		"min_order_quantity IS NULL OR min_order_quantity <= $1",
		"min_order_value IS NULL OR min_order_value <= $2",
		"standard_lead_time_days IS NULL OR standard_lead_time_days <= $3",
		"country = $4",
		"ORDER BY last_activity_date DESC NULLS LAST",
		"LIMIT $5",
	} {
		if !strings.Contains(query, frag) {
			t.Errorf("expected query to contain %q\n%s", frag, query)
		}
	}
	if len(args) != 5 {
		t.Fatalf("expected 5 args, got %d", len(args))
	}
	if args[0] != 50 || args[1] != 5000.0 || args[2] != 30 || args[3] != "US" || args[4] != 100 {
		t.Errorf("unexpected args: %v", args)
	}
}

func TestBuildCandidateQueryOptionalFieldsOmitted(t *testing.T) {
	query, args := buildCandidateQuery(CandidateQuery{Quantity: 10})
	if !strings.Contains(query, "min_order_quantity IS NULL OR min_order_quantity <= $1") {
		t.Errorf("expected quantity constraint\n%s", query)
	}
	for _, frag := range []string{"min_order_value IS NULL OR", "standard_lead_time_days IS NULL OR", "country = $", "LIMIT $"} {
		if strings.Contains(query, frag) {
			t.Errorf("expected unset constraint %q to be omitted\n%s", frag, query)
		}
	}
	if len(args) != 1 {
		t.Errorf("expected 1 arg, got %d", len(args))
	}
}

func TestBuildCandidateQueryRelaxed(t *testing.T) {
	budget := 5000.0
	query, args := buildCandidateQuery(CandidateQuery{Quantity: 10, BudgetMax: &budget, Country: "US", Relaxed: true})
	for _, frag := range []string{"min_order_quantity IS NULL OR", "min_order_value IS NULL OR", "country = $", "<= $"} {
		if strings.Contains(query, frag) {
			t.Errorf("expected relaxed query to drop %q\n%s", frag, query)
		}
	}
	if !strings.Contains(query, "is_active AND is_verified") {
		t.Errorf("expected active/verified constraint\n%s", query)
	}
	if len(args) != 0 {
		t.Errorf("expected no args, got %v", args)
	}
}
