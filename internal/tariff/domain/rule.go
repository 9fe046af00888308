package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Pricing rules cannot predate the platform launch.
var minEffectiveFrom = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

// PricingModel is the closed set of supported tariff models.
type PricingModel string

const (
	// ModelPerEnergy charges per kWh consumed.
	ModelPerEnergy PricingModel = "per_energy"
	// ModelPerDuration charges per minute connected.
	ModelPerDuration PricingModel = "per_duration"
	// ModelFlatRate charges a fixed amount per session.
	ModelFlatRate PricingModel = "flat_rate"
	// ModelMembership charges a periodic fee, not consumption-based.
	ModelMembership PricingModel = "membership"
)

// Valid reports whether the model is one of the known variants.
func (m PricingModel) Valid() bool {
	switch m {
	case ModelPerEnergy, ModelPerDuration, ModelFlatRate, ModelMembership:
		return true
	}
	return false
}

// RateAmounts carries the monetary amount for a rule's model. Exactly the
// field matching the model must be set; NewPricingRule enforces the pairing
// so a rule can never carry an amount irrelevant to its own model or omit
// the one it requires.
type RateAmounts struct {
	PerKWh      *float64 `json:"per_kwh,omitempty"`
	PerMinute   *float64 `json:"per_minute,omitempty"`
	FlatAmount  *float64 `json:"flat_amount,omitempty"`
	PeriodicFee *float64 `json:"periodic_fee,omitempty"`
}

// PerEnergyRates builds the amounts for a per-energy rule.
func PerEnergyRates(perKWh float64) RateAmounts {
	return RateAmounts{PerKWh: &perKWh}
}

// PerDurationRates builds the amounts for a per-duration rule.
func PerDurationRates(perMinute float64) RateAmounts {
	return RateAmounts{PerMinute: &perMinute}
}

// FlatRates builds the amounts for a flat-rate rule.
func FlatRates(amount float64) RateAmounts {
	return RateAmounts{FlatAmount: &amount}
}

// MembershipRates builds the amounts for a membership rule.
func MembershipRates(periodicFee float64) RateAmounts {
	return RateAmounts{PeriodicFee: &periodicFee}
}

// amountFor returns the amount backing the given model, or nil when the
// pairing is wrong.
func (r RateAmounts) amountFor(model PricingModel) *float64 {
	switch model {
	case ModelPerEnergy:
		return r.PerKWh
	case ModelPerDuration:
		return r.PerMinute
	case ModelFlatRate:
		return r.FlatAmount
	case ModelMembership:
		return r.PeriodicFee
	}
	return nil
}

// setCount returns how many amount fields are populated.
func (r RateAmounts) setCount() int {
	n := 0
	for _, p := range []*float64{r.PerKWh, r.PerMinute, r.FlatAmount, r.PeriodicFee} {
		if p != nil {
			n++
		}
	}
	return n
}

func (r RateAmounts) validate(model PricingModel) error {
	amount := r.amountFor(model)
	if amount == nil {
		return NewInvalidInputError("rate amount required by the pricing model is missing", string(model))
	}
	if *amount < 0 {
		return NewInvalidInputError("rate amount cannot be negative", fmt.Sprintf("%s=%v", model, *amount))
	}
	if r.setCount() != 1 {
		return NewInvalidInputError("rate amounts must carry exactly the field for the chosen model", string(model))
	}
	return nil
}

// EffectiveRange is the inclusive calendar-date interval during which a rule
// is eligible for selection. Until, if present, is strictly after From.
type EffectiveRange struct {
	From  time.Time  `json:"from"`
	Until *time.Time `json:"until,omitempty"`
}

// NewEffectiveRange validates and builds an effective range. Times are
// truncated to calendar dates in UTC.
func NewEffectiveRange(from time.Time, until *time.Time) (EffectiveRange, error) {
	from = DateOnly(from)
	if from.Before(minEffectiveFrom) {
		return EffectiveRange{}, NewInvalidInputError("effective from cannot be before 2020-01-01", from.Format(time.DateOnly))
	}
	if until != nil {
		u := DateOnly(*until)
		if !u.After(from) {
			return EffectiveRange{}, NewInvalidInputError("effective until must be after effective from", u.Format(time.DateOnly))
		}
		until = &u
	}
	return EffectiveRange{From: from, Until: until}, nil
}

// Contains reports whether the rule is live on the given date: d >= From and
// (Until absent or d <= Until). Boundaries are inclusive.
func (e EffectiveRange) Contains(date time.Time) bool {
	d := DateOnly(date)
	if d.Before(e.From) {
		return false
	}
	if e.Until != nil && d.After(*e.Until) {
		return false
	}
	return true
}

// Expired reports whether the range's until date has passed.
func (e EffectiveRange) Expired(date time.Time) bool {
	return e.Until != nil && DateOnly(date).After(*e.Until)
}

// DateOnly truncates a time to its calendar date in UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayOfWeek returns the day-of-week index for a date, 0=Sunday..6=Saturday.
func DayOfWeek(t time.Time) int {
	return int(t.UTC().Weekday())
}

// PricingRule is a time-scoped tariff for a charging network. Optional
// scoping dimensions (connector type, day of week, time window) narrow where
// it applies; a rule with none of them is the network-wide fallback.
type PricingRule struct {
	ID              int32          `json:"id" db:"pricing_id"`
	NetworkID       int32          `json:"network_id" db:"network_id"`
	ConnectorTypeID *int32         `json:"connector_type_id,omitempty" db:"connector_type_id"`
	Model           PricingModel   `json:"pricing_model" db:"pricing_model"`
	Rates           RateAmounts    `json:"rates"`
	DayOfWeek       *int           `json:"day_of_week,omitempty" db:"day_of_week"`
	Window          *TimeWindow    `json:"window,omitempty"`
	Active          bool           `json:"is_active" db:"is_active"`
	Effective       EffectiveRange `json:"effective"`
	CreatedBy       uuid.UUID      `json:"created_by" db:"created_by"`
	UpdatedBy       *uuid.UUID     `json:"updated_by,omitempty" db:"updated_by"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at" db:"updated_at"`
}

// NewPricingRule builds an active rule, enforcing every construction
// invariant: a valid model with exactly its required amount, day of week in
// 0..6, a well-formed window and a valid effective range.
func NewPricingRule(
	networkID int32,
	connectorTypeID *int32,
	model PricingModel,
	rates RateAmounts,
	dayOfWeek *int,
	window *TimeWindow,
	effective EffectiveRange,
	createdBy uuid.UUID,
) (PricingRule, error) {
	if networkID <= 0 {
		return PricingRule{}, NewInvalidInputError("network id is required", fmt.Sprintf("network_id=%d", networkID))
	}
	if !model.Valid() {
		return PricingRule{}, NewInvalidInputError("unknown pricing model", string(model))
	}
	if err := rates.validate(model); err != nil {
		return PricingRule{}, err
	}
	if dayOfWeek != nil && (*dayOfWeek < 0 || *dayOfWeek > 6) {
		return PricingRule{}, NewMalformedWindowError(fmt.Sprintf("day of week must be between 0 (Sunday) and 6 (Saturday), got %d", *dayOfWeek))
	}
	if window != nil {
		if err := window.Validate(); err != nil {
			return PricingRule{}, err
		}
		// An all-day window narrows nothing; omit it instead of letting it
		// inflate the rule's specificity.
		if window.AllDay {
			return PricingRule{}, NewMalformedWindowError("a rule window covering the whole day must be omitted")
		}
	}

	now := time.Now().UTC()
	return PricingRule{
		NetworkID:       networkID,
		ConnectorTypeID: connectorTypeID,
		Model:           model,
		Rates:           rates,
		DayOfWeek:       dayOfWeek,
		Window:          window,
		Active:          true,
		Effective:       effective,
		CreatedBy:       createdBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Deactivate retires the rule while preserving the record for historical
// cost recomputation and pricing-history queries. Rules are never deleted.
func (r *PricingRule) Deactivate(actor uuid.UUID) {
	r.Active = false
	r.UpdatedBy = &actor
	r.UpdatedAt = time.Now().UTC()
}

// HasConnectorScope reports whether the rule is narrowed to a connector type.
func (r PricingRule) HasConnectorScope() bool { return r.ConnectorTypeID != nil }

// HasDayScope reports whether the rule is narrowed to a day of week.
func (r PricingRule) HasDayScope() bool { return r.DayOfWeek != nil }

// HasWindowScope reports whether the rule is narrowed to a time window.
func (r PricingRule) HasWindowScope() bool { return r.Window != nil }
