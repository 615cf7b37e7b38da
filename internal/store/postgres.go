package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const manufacturerColumns = `id, business_name, capabilities,
	is_active, is_verified,
	min_order_quantity, max_order_quantity, min_order_value,
	standard_lead_time_days, rush_order_available, rush_order_lead_time_days,
	latitude, longitude, country, city,
	overall_rating, on_time_delivery_rate, total_orders_completed,
	capacity_utilization_pct, communication_rating, last_activity_date,
	quality_certifications`

// buildCandidateQuery mirrors the in-memory eligibility rules: a NULL column
// never disqualifies a manufacturer.
func buildCandidateQuery(q CandidateQuery) (string, []interface{}) {
	query := `SELECT ` + manufacturerColumns + ` FROM manufacturers WHERE is_active AND is_verified`
	args := []interface{}{}
	n := 0

	if !q.Relaxed {
		n++
		query += fmt.Sprintf(" AND (min_order_quantity IS NULL OR min_order_quantity <= $%d)", n)
		args = append(args, q.Quantity)

		if q.BudgetMax != nil {
			n++
			query += fmt.Sprintf(" AND (min_order_value IS NULL OR min_order_value <= $%d)", n)
			args = append(args, *q.BudgetMax)
		}
		if q.MaxLeadTimeDays != nil {
			n++
			query += fmt.Sprintf(" AND (standard_lead_time_days IS NULL OR standard_lead_time_days <= $%d)", n)
			args = append(args, *q.MaxLeadTimeDays)
		}
		if q.Country != "" {
			n++
			query += fmt.Sprintf(" AND country = $%d", n)
			args = append(args, q.Country)
		}
	}

	query += " ORDER BY last_activity_date DESC NULLS LAST"

	if q.Limit > 0 {
		n++
		query += fmt.Sprintf(" LIMIT $%d", n)
		args = append(args, q.Limit)
	}
	return query, args
}

func (s *PostgresStore) ListCandidates(ctx context.Context, q CandidateQuery) ([]*Manufacturer, error) {
	query, args := buildCandidateQuery(q)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()
	return scanManufacturers(rows)
}

func (s *PostgresStore) GetManufacturer(ctx context.Context, id uuid.UUID) (*Manufacturer, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+manufacturerColumns+` FROM manufacturers WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ms, err := scanManufacturers(rows)
	if err != nil {
		return nil, err
	}
	if len(ms) == 0 {
		return nil, ErrNotFound
	}
	return ms[0], nil
}

func (s *PostgresStore) GetManufacturers(ctx context.Context, ids []uuid.UUID) ([]*Manufacturer, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `SELECT `+manufacturerColumns+` FROM manufacturers WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("query manufacturers: %w", err)
	}
	defer rows.Close()
	found, err := scanManufacturers(rows)
	if err != nil {
		return nil, err
	}
	return OrderByIDs(found, ids), nil
}

// UpsertManufacturer inserts m or replaces the row with the same id.
func (s *PostgresStore) UpsertManufacturer(ctx context.Context, m *Manufacturer) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	capsJSON, _ := json.Marshal(m.Capabilities)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO manufacturers (`+manufacturerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		ON CONFLICT (id) DO UPDATE SET
			business_name = EXCLUDED.business_name,
			capabilities = EXCLUDED.capabilities,
			is_active = EXCLUDED.is_active,
			is_verified = EXCLUDED.is_verified,
			min_order_quantity = EXCLUDED.min_order_quantity,
			max_order_quantity = EXCLUDED.max_order_quantity,
			min_order_value = EXCLUDED.min_order_value,
			standard_lead_time_days = EXCLUDED.standard_lead_time_days,
			rush_order_available = EXCLUDED.rush_order_available,
			rush_order_lead_time_days = EXCLUDED.rush_order_lead_time_days,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			country = EXCLUDED.country,
			city = EXCLUDED.city,
			overall_rating = EXCLUDED.overall_rating,
			on_time_delivery_rate = EXCLUDED.on_time_delivery_rate,
			total_orders_completed = EXCLUDED.total_orders_completed,
			capacity_utilization_pct = EXCLUDED.capacity_utilization_pct,
			communication_rating = EXCLUDED.communication_rating,
			last_activity_date = EXCLUDED.last_activity_date,
			quality_certifications = EXCLUDED.quality_certifications`,
		m.ID, m.BusinessName, capsJSON,
		m.IsActive, m.IsVerified,
		m.MinOrderQuantity, m.MaxOrderQuantity, m.MinOrderValue,
		m.StandardLeadTimeDays, m.RushOrderAvailable, m.RushOrderLeadTimeDays,
		m.Latitude, m.Longitude, m.Country, m.City,
		m.OverallRating, m.OnTimeDeliveryRate, m.TotalOrdersCompleted,
		m.CapacityUtilizationPct, m.CommunicationRating, m.LastActivityDate,
		m.QualityCertifications,
	)
	if err != nil {
		return fmt.Errorf("upsert manufacturer %s: %w", m.ID, err)
	}
	return nil
}

// OrderByIDs arranges ms to follow ids, dropping IDs that were not found.
func OrderByIDs(ms []*Manufacturer, ids []uuid.UUID) []*Manufacturer {
	byID := make(map[uuid.UUID]*Manufacturer, len(ms))
	for _, m := range ms {
		byID[m.ID] = m
	}
	out := make([]*Manufacturer, 0, len(ids))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			out = append(out, m)
		}
	}
	return out
}

func scanManufacturers(rows pgx.Rows) ([]*Manufacturer, error) {
	var out []*Manufacturer
	for rows.Next() {
		m := &Manufacturer{}
		var capsJSON []byte
		err := rows.Scan(
			&m.ID, &m.BusinessName, &capsJSON,
			&m.IsActive, &m.IsVerified,
			&m.MinOrderQuantity, &m.MaxOrderQuantity, &m.MinOrderValue,
			&m.StandardLeadTimeDays, &m.RushOrderAvailable, &m.RushOrderLeadTimeDays,
			&m.Latitude, &m.Longitude, &m.Country, &m.City,
			&m.OverallRating, &m.OnTimeDeliveryRate, &m.TotalOrdersCompleted,
			&m.CapacityUtilizationPct, &m.CommunicationRating, &m.LastActivityDate,
			&m.QualityCertifications,
		)
		if err != nil {
			return nil, fmt.Errorf("scan manufacturer: %w", err)
		}
		// malformed capabilities degrade to an empty record rather than failing the query
		if capsJSON != nil {
			_ = json.Unmarshal(capsJSON, &m.Capabilities)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	return out, nil
}
