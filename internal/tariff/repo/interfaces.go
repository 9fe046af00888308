package repo

import (
	"context"
	"time"

	"github.com/chargegrid/configurator/internal/tariff/domain"
)

// RuleRepository stores pricing rules. Read methods used by resolution must
// return a coherent snapshot: a single call never mixes an old and a
// newly-activated rule for the same scope.
type RuleRepository interface {
	// Create persists a new rule, filling in its generated ID.
	Create(ctx context.Context, rule *domain.PricingRule) error

	// GetByID retrieves a rule by ID.
	GetByID(ctx context.Context, id int32) (domain.PricingRule, error)

	// FindActiveRules returns the active rules for a network live on the
	// given date, optionally narrowed to a connector type (rules with no
	// connector scope are always included). Ordering is not significant;
	// precedence is decided by the resolver.
	FindActiveRules(ctx context.Context, networkID int32, connectorTypeID *int32, date time.Time) ([]domain.PricingRule, error)

	// ListByNetwork returns all rules for a network, newest first, paginated.
	ListByNetwork(ctx context.Context, networkID int32, limit, offset int) ([]domain.PricingRule, error)

	// FindEffectiveBetween returns rules whose effective range overlaps the
	// inclusive date interval, for pricing-history queries.
	FindEffectiveBetween(ctx context.Context, networkID int32, from, until time.Time) ([]domain.PricingRule, error)

	// FindExpired returns active rules whose effective until has passed.
	FindExpired(ctx context.Context, asOf time.Time) ([]domain.PricingRule, error)

	// Update persists rule mutations (deactivation stamps).
	Update(ctx context.Context, rule domain.PricingRule) error
}

// AvailabilityRepository stores station operating hours.
type AvailabilityRepository interface {
	// FindByStation returns a station's week, ordered by day of week.
	FindByStation(ctx context.Context, stationID int32) ([]domain.AvailabilityWindow, error)

	// Upsert inserts or replaces the window for the record's (station, day)
	// pair, filling in the generated ID on insert.
	Upsert(ctx context.Context, window *domain.AvailabilityWindow) error

	// Delete removes the window for a (station, day) pair.
	Delete(ctx context.Context, stationID int32, dayOfWeek int) error
}
