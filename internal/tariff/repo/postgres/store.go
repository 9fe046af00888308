// Package postgres implements the tariff repositories on PostgreSQL via
// pgx. Queries fetch candidate sets only; precedence among candidates is
// decided by the resolve package, not by query ordering.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chargegrid/configurator/internal/tariff/domain"
	"github.com/chargegrid/configurator/internal/tariff/repo"
)

// Store bundles the PostgreSQL-backed repositories over one pool.
type Store struct {
	db *pgxpool.Pool
}

// NewStore creates a store from a connection string.
func NewStore(ctx context.Context, connString string) (*Store, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: pool}, nil
}

// NewStoreWithPool creates a store over an existing pool.
func NewStoreWithPool(pool *pgxpool.Pool) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool cannot be nil")
	}
	return &Store{db: pool}, nil
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

// Rules returns the pricing rule repository.
func (s *Store) Rules() repo.RuleRepository {
	return &ruleRepository{db: s.db}
}

// Availability returns the availability window repository.
func (s *Store) Availability() repo.AvailabilityRepository {
	return &availabilityRepository{db: s.db}
}

type ruleRepository struct {
	db *pgxpool.Pool
}

const ruleColumns = `pricing_id, network_id, connector_type_id, pricing_model,
	cost_per_kwh, cost_per_minute, flat_rate_cost, membership_fee,
	start_time, end_time, day_of_week,
	is_active, effective_from, effective_until,
	created_by, updated_by, created_at, updated_at`

// Create persists a new rule and fills in its generated ID and timestamps.
func (r *ruleRepository) Create(ctx context.Context, rule *domain.PricingRule) error {
	row := r.db.QueryRow(ctx, `
		INSERT INTO pricing (
			network_id, connector_type_id, pricing_model,
			cost_per_kwh, cost_per_minute, flat_rate_cost, membership_fee,
			start_time, end_time, day_of_week,
			is_active, effective_from, effective_until, created_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING pricing_id, created_at, updated_at`,
		rule.NetworkID,
		rule.ConnectorTypeID,
		string(rule.Model),
		rule.Rates.PerKWh,
		rule.Rates.PerMinute,
		rule.Rates.FlatAmount,
		rule.Rates.PeriodicFee,
		timeOfDayToPg(windowStart(rule.Window)),
		timeOfDayToPg(windowEnd(rule.Window)),
		rule.DayOfWeek,
		rule.Active,
		rule.Effective.From,
		rule.Effective.Until,
		rule.CreatedBy,
	)
	if err := row.Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create pricing rule: %w", err)
	}
	return nil
}

// GetByID retrieves a rule by ID.
func (r *ruleRepository) GetByID(ctx context.Context, id int32) (domain.PricingRule, error) {
	rows, err := r.db.Query(ctx, `SELECT `+ruleColumns+` FROM pricing WHERE pricing_id = $1`, id)
	if err != nil {
		return domain.PricingRule{}, fmt.Errorf("failed to query pricing rule: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return domain.PricingRule{}, fmt.Errorf("failed to read pricing rule: %w", err)
		}
		return domain.PricingRule{}, domain.NewNotFoundError("pricing rule", id)
	}
	return scanRule(rows)
}

// FindActiveRules returns the active candidate set for a network on a date.
// Connector-unscoped rules are always included; ranking happens in the
// resolver.
func (r *ruleRepository) FindActiveRules(ctx context.Context, networkID int32, connectorTypeID *int32, date time.Time) ([]domain.PricingRule, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+ruleColumns+`
		FROM pricing
		WHERE network_id = $1
		AND (connector_type_id IS NULL OR connector_type_id = $2)
		AND is_active = true
		AND effective_from <= $3
		AND (effective_until IS NULL OR effective_until >= $3)
		ORDER BY pricing_id`,
		networkID, connectorTypeID, domain.DateOnly(date))
	if err != nil {
		return nil, fmt.Errorf("failed to query active pricing rules: %w", err)
	}
	defer rows.Close()
	return scanRules(rows)
}

// ListByNetwork returns a network's rules, newest first.
func (r *ruleRepository) ListByNetwork(ctx context.Context, networkID int32, limit, offset int) ([]domain.PricingRule, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+ruleColumns+`
		FROM pricing
		WHERE network_id = $1
		ORDER BY pricing_id DESC
		LIMIT $2 OFFSET $3`,
		networkID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list pricing rules: %w", err)
	}
	defer rows.Close()
	return scanRules(rows)
}

// FindEffectiveBetween returns rules overlapping the date interval.
func (r *ruleRepository) FindEffectiveBetween(ctx context.Context, networkID int32, from, until time.Time) ([]domain.PricingRule, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+ruleColumns+`
		FROM pricing
		WHERE network_id = $1
		AND effective_from <= $3
		AND (effective_until IS NULL OR effective_until >= $2)
		ORDER BY effective_from, pricing_id`,
		networkID, domain.DateOnly(from), domain.DateOnly(until))
	if err != nil {
		return nil, fmt.Errorf("failed to query pricing history: %w", err)
	}
	defer rows.Close()
	return scanRules(rows)
}

// FindExpired returns active rules whose until date has passed.
func (r *ruleRepository) FindExpired(ctx context.Context, asOf time.Time) ([]domain.PricingRule, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+ruleColumns+`
		FROM pricing
		WHERE is_active = true
		AND effective_until IS NOT NULL
		AND effective_until < $1
		ORDER BY effective_until, pricing_id`,
		domain.DateOnly(asOf))
	if err != nil {
		return nil, fmt.Errorf("failed to query expired pricing rules: %w", err)
	}
	defer rows.Close()
	return scanRules(rows)
}

// Update persists deactivation stamps.
func (r *ruleRepository) Update(ctx context.Context, rule domain.PricingRule) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE pricing
		SET is_active = $2, updated_by = $3, updated_at = $4
		WHERE pricing_id = $1`,
		rule.ID, rule.Active, rule.UpdatedBy, rule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update pricing rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("pricing rule", rule.ID)
	}
	return nil
}

type availabilityRepository struct {
	db *pgxpool.Pool
}

const availabilityColumns = `availability_id, station_id, day_of_week,
	open_time, close_time, is_24_hours,
	created_by, updated_by, created_at, updated_at`

// FindByStation returns a station's week ordered by day of week.
func (r *availabilityRepository) FindByStation(ctx context.Context, stationID int32) ([]domain.AvailabilityWindow, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+availabilityColumns+`
		FROM station_availability
		WHERE station_id = $1
		ORDER BY day_of_week`,
		stationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query station availability: %w", err)
	}
	defer rows.Close()

	var out []domain.AvailabilityWindow
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read station availability: %w", err)
	}
	return out, nil
}

// Upsert inserts or replaces the window for the record's (station, day).
// A unique constraint on (station_id, day_of_week) keeps duplicates out of
// the table.
func (r *availabilityRepository) Upsert(ctx context.Context, window *domain.AvailabilityWindow) error {
	row := r.db.QueryRow(ctx, `
		INSERT INTO station_availability (
			station_id, day_of_week, open_time, close_time, is_24_hours, created_by
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (station_id, day_of_week) DO UPDATE
		SET open_time = EXCLUDED.open_time,
		    close_time = EXCLUDED.close_time,
		    is_24_hours = EXCLUDED.is_24_hours,
		    updated_by = EXCLUDED.created_by,
		    updated_at = now()
		RETURNING availability_id, created_at, updated_at`,
		window.StationID,
		window.DayOfWeek,
		timeOfDayToPg(window.Window.Start),
		timeOfDayToPg(window.Window.End),
		window.Window.AllDay,
		window.CreatedBy,
	)
	if err := row.Scan(&window.ID, &window.CreatedAt, &window.UpdatedAt); err != nil {
		return fmt.Errorf("failed to upsert availability window: %w", err)
	}
	return nil
}

// Delete removes the window for a (station, day) pair.
func (r *availabilityRepository) Delete(ctx context.Context, stationID int32, dayOfWeek int) error {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM station_availability
		WHERE station_id = $1 AND day_of_week = $2`,
		stationID, dayOfWeek)
	if err != nil {
		return fmt.Errorf("failed to delete availability window: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("availability window", stationID)
	}
	return nil
}

func scanRules(rows pgx.Rows) ([]domain.PricingRule, error) {
	var out []domain.PricingRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pricing rules: %w", err)
	}
	return out, nil
}

func scanRule(row pgx.Row) (domain.PricingRule, error) {
	var (
		rule            domain.PricingRule
		model           string
		startT, endT    pgtype.Time
		until           *time.Time
		createdBy       pgtype.UUID
		updatedBy       pgtype.UUID
		dayOfWeek       *int32
		connectorTypeID *int32
	)
	err := row.Scan(
		&rule.ID, &rule.NetworkID, &connectorTypeID, &model,
		&rule.Rates.PerKWh, &rule.Rates.PerMinute, &rule.Rates.FlatAmount, &rule.Rates.PeriodicFee,
		&startT, &endT, &dayOfWeek,
		&rule.Active, &rule.Effective.From, &until,
		&createdBy, &updatedBy, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PricingRule{}, domain.ErrNotFound
		}
		return domain.PricingRule{}, fmt.Errorf("failed to scan pricing rule: %w", err)
	}

	rule.ConnectorTypeID = connectorTypeID
	rule.Model = domain.PricingModel(model)
	rule.Effective.Until = until
	if dayOfWeek != nil {
		d := int(*dayOfWeek)
		rule.DayOfWeek = &d
	}
	if start, ok := pgToTimeOfDay(startT); ok {
		if end, ok := pgToTimeOfDay(endT); ok {
			w := domain.NewTimeWindow(start, end)
			rule.Window = &w
		}
	}
	rule.CreatedBy = uuid.UUID(createdBy.Bytes)
	if updatedBy.Valid {
		u := uuid.UUID(updatedBy.Bytes)
		rule.UpdatedBy = &u
	}
	return rule, nil
}

func scanWindow(row pgx.Row) (domain.AvailabilityWindow, error) {
	var (
		w            domain.AvailabilityWindow
		openT, closT pgtype.Time
		allDay       bool
		createdBy    pgtype.UUID
		updatedBy    pgtype.UUID
	)
	err := row.Scan(
		&w.ID, &w.StationID, &w.DayOfWeek,
		&openT, &closT, &allDay,
		&createdBy, &updatedBy, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return domain.AvailabilityWindow{}, fmt.Errorf("failed to scan availability window: %w", err)
	}

	if allDay {
		w.Window = domain.AllDayWindow()
	} else if open, ok := pgToTimeOfDay(openT); ok {
		if clos, ok := pgToTimeOfDay(closT); ok {
			w.Window = domain.NewTimeWindow(open, clos)
		}
	}
	w.CreatedBy = uuid.UUID(createdBy.Bytes)
	if updatedBy.Valid {
		u := uuid.UUID(updatedBy.Bytes)
		w.UpdatedBy = &u
	}
	return w, nil
}

func windowStart(w *domain.TimeWindow) *domain.TimeOfDay {
	if w == nil {
		return nil
	}
	return w.Start
}

func windowEnd(w *domain.TimeWindow) *domain.TimeOfDay {
	if w == nil {
		return nil
	}
	return w.End
}

// timeOfDayToPg converts a clock value to a TIME column value.
func timeOfDayToPg(t *domain.TimeOfDay) pgtype.Time {
	if t == nil {
		return pgtype.Time{}
	}
	return pgtype.Time{Microseconds: int64(*t) * 60 * 1_000_000, Valid: true}
}

// pgToTimeOfDay converts a TIME column value to a clock value, truncating to
// minute precision.
func pgToTimeOfDay(t pgtype.Time) (domain.TimeOfDay, bool) {
	if !t.Valid {
		return 0, false
	}
	return domain.TimeOfDay(t.Microseconds / (60 * 1_000_000)), true
}
