package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chargegrid/configurator/internal/audit"
	"github.com/chargegrid/configurator/internal/events"
	"github.com/chargegrid/configurator/internal/tariff/domain"
	"github.com/chargegrid/configurator/internal/tariff/repo"
)

var testActor = uuid.MustParse("11111111-1111-1111-1111-111111111111")

func intPtr(v int) *int         { return &v }
func i32Ptr(v int32) *int32     { return &v }
func f64Ptr(v float64) *float64 { return &v }
func i64Ptr(v int64) *int64     { return &v }

func newServices(t *testing.T) (*ResolutionService, *RuleService, *AvailabilityService) {
	t.Helper()
	store := repo.NewMemoryStore()
	resolution := NewResolutionService(store, store, nil, "USD", false)
	rules := NewRuleService(store, nil, events.NoopPublisher{}, audit.NopLogger{})
	availability := NewAvailabilityService(store, nil, events.NoopPublisher{}, audit.NopLogger{})
	return resolution, rules, availability
}

func createRule(t *testing.T, rules *RuleService, cmd CreateRuleCommand) domain.PricingRule {
	t.Helper()
	if cmd.EffectiveFrom.IsZero() {
		cmd.EffectiveFrom = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	if cmd.CreatedBy == uuid.Nil {
		cmd.CreatedBy = testActor
	}
	rule, err := rules.CreateRule(context.Background(), cmd)
	require.NoError(t, err)
	return rule
}

// seedNetwork sets up the canonical network 1 rule set:
//
//	A: network-wide fallback, per-energy 0.30/kWh
//	B: connector type 2 (CCS), per-energy 0.45/kWh
//	C: connector type 2, Saturdays 06:00-12:00, per-energy 0.60/kWh
func seedNetwork(t *testing.T, rules *RuleService) (a, b, c domain.PricingRule) {
	t.Helper()
	a = createRule(t, rules, CreateRuleCommand{
		NetworkID: 1, Model: domain.ModelPerEnergy, Rates: domain.PerEnergyRates(0.30),
	})
	b = createRule(t, rules, CreateRuleCommand{
		NetworkID: 1, ConnectorTypeID: i32Ptr(2),
		Model: domain.ModelPerEnergy, Rates: domain.PerEnergyRates(0.45),
	})
	window := domain.NewTimeWindow(domain.MustTimeOfDay(6, 0), domain.MustTimeOfDay(12, 0))
	c = createRule(t, rules, CreateRuleCommand{
		NetworkID: 1, ConnectorTypeID: i32Ptr(2), DayOfWeek: intPtr(6), Window: &window,
		Model: domain.ModelPerEnergy, Rates: domain.PerEnergyRates(0.60),
	})
	return a, b, c
}

func TestResolvePrice_EndToEnd(t *testing.T) {
	resolution, rules, _ := newServices(t)
	a, b, c := seedNetwork(t, rules)

	// Saturday 2024-06-01 14:00 is outside C's morning window, so the
	// connector-scoped B wins.
	t.Run("saturday afternoon picks the connector rule", func(t *testing.T) {
		rctx := domain.At(1, i32Ptr(2), time.Date(2024, time.June, 1, 14, 0, 0, 0, time.UTC))
		calc, err := resolution.ResolvePrice(context.Background(), rctx, f64Ptr(20), nil)
		require.NoError(t, err)
		assert.Equal(t, b.ID, calc.Rule.ID)
		assert.InDelta(t, 9.00, calc.Cost.Amount, 1e-9)
		assert.Equal(t, "USD", calc.Cost.Currency)
	})

	t.Run("saturday morning picks the fully scoped rule", func(t *testing.T) {
		rctx := domain.At(1, i32Ptr(2), time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC))
		calc, err := resolution.ResolvePrice(context.Background(), rctx, f64Ptr(20), nil)
		require.NoError(t, err)
		assert.Equal(t, c.ID, calc.Rule.ID)
		assert.InDelta(t, 12.00, calc.Cost.Amount, 1e-9)

		// The full candidate list comes back most specific first.
		require.Len(t, calc.ApplicableRules, 3)
		assert.Equal(t, []int32{c.ID, b.ID, a.ID}, ruleIDs(calc.ApplicableRules))
	})

	t.Run("sunday without connector falls back to the network rule", func(t *testing.T) {
		rctx := domain.At(1, nil, time.Date(2024, time.June, 2, 10, 0, 0, 0, time.UTC))
		calc, err := resolution.ResolvePrice(context.Background(), rctx, f64Ptr(20), nil)
		require.NoError(t, err)
		assert.Equal(t, a.ID, calc.Rule.ID)
		assert.InDelta(t, 6.00, calc.Cost.Amount, 1e-9)
	})

	t.Run("unknown network surfaces no applicable rule", func(t *testing.T) {
		rctx := domain.At(99, nil, time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC))
		_, err := resolution.ResolvePrice(context.Background(), rctx, f64Ptr(20), nil)
		assert.ErrorIs(t, err, domain.ErrNoApplicableRule)
	})

	t.Run("missing consumption input is an error", func(t *testing.T) {
		rctx := domain.At(1, nil, time.Date(2024, time.June, 2, 10, 0, 0, 0, time.UTC))
		_, err := resolution.ResolvePrice(context.Background(), rctx, nil, nil)
		assert.ErrorIs(t, err, domain.ErrMissingInput)
	})
}

func TestResolvePrice_ScopedWeekendTariff(t *testing.T) {
	resolution, rules, _ := newServices(t)

	// Network 2 runs a base tariff plus a pricier Saturday daytime tariff
	// for CCS connectors (connector type 2).
	base := createRule(t, rules, CreateRuleCommand{
		NetworkID: 2, Model: domain.ModelPerEnergy, Rates: domain.PerEnergyRates(0.30),
	})
	window := domain.NewTimeWindow(domain.MustTimeOfDay(8, 0), domain.MustTimeOfDay(20, 0))
	saturday := createRule(t, rules, CreateRuleCommand{
		NetworkID: 2, ConnectorTypeID: i32Ptr(2), DayOfWeek: intPtr(6), Window: &window,
		Model: domain.ModelPerEnergy, Rates: domain.PerEnergyRates(0.45),
	})

	// Saturday 2024-06-01 10:00, CCS, 20 kWh: the scoped tariff wins.
	rctx := domain.At(2, i32Ptr(2), time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC))
	calc, err := resolution.ResolvePrice(context.Background(), rctx, f64Ptr(20), nil)
	require.NoError(t, err)
	assert.Equal(t, saturday.ID, calc.Rule.ID)
	assert.InDelta(t, 9.00, calc.Cost.Amount, 1e-9)

	// Sunday 2024-06-02 10:00, same connector: the day scope fails, the
	// base tariff applies.
	rctx = domain.At(2, i32Ptr(2), time.Date(2024, time.June, 2, 10, 0, 0, 0, time.UTC))
	calc, err = resolution.ResolvePrice(context.Background(), rctx, f64Ptr(20), nil)
	require.NoError(t, err)
	assert.Equal(t, base.ID, calc.Rule.ID)
	assert.InDelta(t, 6.00, calc.Cost.Amount, 1e-9)
}

func TestResolvePrice_DeactivatedRuleNoLongerWins(t *testing.T) {
	resolution, rules, _ := newServices(t)
	a, b, _ := seedNetwork(t, rules)

	rctx := domain.At(1, i32Ptr(2), time.Date(2024, time.June, 1, 14, 0, 0, 0, time.UTC))
	calc, err := resolution.ResolvePrice(context.Background(), rctx, f64Ptr(10), nil)
	require.NoError(t, err)
	require.Equal(t, b.ID, calc.Rule.ID)

	require.NoError(t, rules.DeactivateRule(context.Background(), b.ID, testActor))

	calc, err = resolution.ResolvePrice(context.Background(), rctx, f64Ptr(10), nil)
	require.NoError(t, err)
	assert.Equal(t, a.ID, calc.Rule.ID, "resolution falls through to the network rule")

	err = rules.DeactivateRule(context.Background(), b.ID, testActor)
	assert.Error(t, err, "deactivating twice is rejected")
}

func TestResolvePrice_PerDurationRule(t *testing.T) {
	resolution, rules, _ := newServices(t)
	createRule(t, rules, CreateRuleCommand{
		NetworkID: 3, Model: domain.ModelPerDuration, Rates: domain.PerDurationRates(0.10),
	})

	rctx := domain.At(3, nil, time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC))
	calc, err := resolution.ResolvePrice(context.Background(), rctx, nil, i64Ptr(45))
	require.NoError(t, err)
	assert.InDelta(t, 4.50, calc.Cost.Amount, 1e-9)

	_, err = resolution.ResolvePrice(context.Background(), rctx, f64Ptr(20), nil)
	assert.ErrorIs(t, err, domain.ErrMissingInput, "energy does not substitute for duration")
}

func TestResolvePrice_ExpiredRuleExcluded(t *testing.T) {
	resolution, rules, _ := newServices(t)
	until := time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC)
	createRule(t, rules, CreateRuleCommand{
		NetworkID: 4, Model: domain.ModelFlatRate, Rates: domain.FlatRates(5.00),
		EffectiveFrom: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), EffectiveUntil: &until,
	})

	onBoundary := domain.At(4, nil, time.Date(2024, time.June, 30, 23, 0, 0, 0, time.UTC))
	calc, err := resolution.ResolvePrice(context.Background(), onBoundary, nil, nil)
	require.NoError(t, err, "until date is inclusive")
	assert.Equal(t, 5.00, calc.Cost.Amount)

	after := domain.At(4, nil, time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC))
	_, err = resolution.ResolvePrice(context.Background(), after, nil, nil)
	assert.ErrorIs(t, err, domain.ErrNoApplicableRule)
}

func TestPricingHistory(t *testing.T) {
	resolution, rules, _ := newServices(t)
	until := time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC)
	first := createRule(t, rules, CreateRuleCommand{
		NetworkID: 5, Model: domain.ModelPerEnergy, Rates: domain.PerEnergyRates(0.30),
		EffectiveFrom: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), EffectiveUntil: &until,
	})
	second := createRule(t, rules, CreateRuleCommand{
		NetworkID: 5, Model: domain.ModelPerEnergy, Rates: domain.PerEnergyRates(0.35),
		EffectiveFrom: time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC),
	})

	history, err := resolution.PricingHistory(context.Background(), 5,
		time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []int32{first.ID, second.ID}, ruleIDs(history))

	// A range entirely before the second rule excludes it.
	history, err = resolution.PricingHistory(context.Background(), 5,
		time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []int32{first.ID}, ruleIDs(history))

	_, err = resolution.PricingHistory(context.Background(), 5,
		time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))
	assert.Error(t, err, "inverted interval is rejected")
}

func TestCreateRule_Validation(t *testing.T) {
	_, rules, _ := newServices(t)

	_, err := rules.CreateRule(context.Background(), CreateRuleCommand{
		NetworkID: 1, Model: domain.ModelPerEnergy, Rates: domain.PerDurationRates(0.10),
		EffectiveFrom: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), CreatedBy: testActor,
	})
	assert.Error(t, err, "rate field must match the model")

	_, err = rules.CreateRule(context.Background(), CreateRuleCommand{
		NetworkID: 1, Model: domain.ModelPerEnergy, Rates: domain.PerEnergyRates(0.30),
		EffectiveFrom: time.Date(2019, time.June, 1, 0, 0, 0, 0, time.UTC), CreatedBy: testActor,
	})
	assert.Error(t, err, "effective from predates the platform floor")
}

func TestListRules_Pagination(t *testing.T) {
	_, rules, _ := newServices(t)
	for i := 0; i < 5; i++ {
		createRule(t, rules, CreateRuleCommand{
			NetworkID: 6, Model: domain.ModelFlatRate, Rates: domain.FlatRates(float64(i + 1)),
		})
	}

	page1, err := rules.ListRules(context.Background(), 6, 1, 2)
	require.NoError(t, err)
	require.Len(t, page1, 2)

	page3, err := rules.ListRules(context.Background(), 6, 3, 2)
	require.NoError(t, err)
	require.Len(t, page3, 1)

	assert.Greater(t, page1[0].ID, page1[1].ID, "newest first")
}

func TestDeactivateExpired(t *testing.T) {
	resolution, rules, _ := newServices(t)
	until := time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC)
	expired := createRule(t, rules, CreateRuleCommand{
		NetworkID: 7, Model: domain.ModelFlatRate, Rates: domain.FlatRates(5.00),
		EffectiveFrom: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), EffectiveUntil: &until,
	})
	evergreen := createRule(t, rules, CreateRuleCommand{
		NetworkID: 7, Model: domain.ModelFlatRate, Rates: domain.FlatRates(6.00),
	})

	count, err := rules.DeactivateExpired(context.Background(), time.Date(2024, time.July, 15, 0, 0, 0, 0, time.UTC), testActor)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// The sweep is idempotent.
	count, err = rules.DeactivateExpired(context.Background(), time.Date(2024, time.July, 15, 0, 0, 0, 0, time.UTC), testActor)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	rctx := domain.At(7, nil, time.Date(2024, time.August, 1, 10, 0, 0, 0, time.UTC))
	calc, err := resolution.ResolvePrice(context.Background(), rctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, evergreen.ID, calc.Rule.ID)
	assert.NotEqual(t, expired.ID, calc.Rule.ID)
}

func TestAvailability_CheckOpenAndTransitions(t *testing.T) {
	resolution, _, availability := newServices(t)
	ctx := context.Background()

	// Station 7: weekdays 08:00-20:00, Saturday around the clock.
	day := domain.NewTimeWindow(domain.MustTimeOfDay(8, 0), domain.MustTimeOfDay(20, 0))
	for d := 1; d <= 5; d++ {
		_, err := availability.SetWindow(ctx, 7, d, day, testActor)
		require.NoError(t, err)
	}
	_, err := availability.SetWindow(ctx, 7, 6, domain.AllDayWindow(), testActor)
	require.NoError(t, err)

	// 2024-06-03 is a Monday.
	open, err := resolution.CheckOpen(ctx, 7, time.Date(2024, time.June, 3, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, open)

	open, err = resolution.CheckOpen(ctx, 7, time.Date(2024, time.June, 3, 21, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, open)

	// Sunday has no record; defaultOpen=false makes it closed.
	open, err = resolution.CheckOpen(ctx, 7, time.Date(2024, time.June, 2, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, open)

	tr, err := resolution.NextTransition(ctx, 7, time.Date(2024, time.June, 3, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, tr)
	assert.Equal(t, 1, tr.DayOfWeek)
	assert.Equal(t, domain.MustTimeOfDay(20, 1), tr.At)
	assert.False(t, tr.Open)

	// Replacing a window takes effect for subsequent checks.
	_, err = availability.SetWindow(ctx, 7, 1, domain.NewTimeWindow(domain.MustTimeOfDay(6, 0), domain.MustTimeOfDay(22, 0)), testActor)
	require.NoError(t, err)
	open, err = resolution.CheckOpen(ctx, 7, time.Date(2024, time.June, 3, 21, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, open)

	week, err := availability.GetWeek(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, week, 6, "upsert replaces rather than duplicates")

	// Removing Monday reverts it to the default policy.
	require.NoError(t, availability.RemoveWindow(ctx, 7, 1, testActor))
	open, err = resolution.CheckOpen(ctx, 7, time.Date(2024, time.June, 3, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, open)
}

func TestAvailability_DayValidation(t *testing.T) {
	_, _, availability := newServices(t)

	_, err := availability.SetWindow(context.Background(), 7, 7, domain.AllDayWindow(), testActor)
	assert.ErrorIs(t, err, domain.ErrMalformedWindow)

	err = availability.RemoveWindow(context.Background(), 7, -1, testActor)
	assert.ErrorIs(t, err, domain.ErrMalformedWindow)
}

func ruleIDs(rules []domain.PricingRule) []int32 {
	out := make([]int32, len(rules))
	for i, r := range rules {
		out[i] = r.ID
	}
	return out
}
