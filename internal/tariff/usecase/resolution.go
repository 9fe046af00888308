// Package usecase wires the pure resolution core to storage, caching,
// events and observability. All business decisions stay in the resolve
// package; this layer fetches candidate sets and maps outcomes.
package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/chargegrid/configurator/internal/cache"
	"github.com/chargegrid/configurator/internal/log"
	"github.com/chargegrid/configurator/internal/metrics"
	"github.com/chargegrid/configurator/internal/tariff/domain"
	"github.com/chargegrid/configurator/internal/tariff/repo"
	"github.com/chargegrid/configurator/internal/tariff/resolve"
	"github.com/chargegrid/configurator/internal/tracing"
)

// CostCalculation is the result of a price resolution: the winning rule,
// the cost it produced, and the full ordered candidate list for display.
type CostCalculation struct {
	Cost            domain.Money         `json:"cost"`
	Rule            domain.PricingRule   `json:"rule"`
	ApplicableRules []domain.PricingRule `json:"applicable_rules"`
}

// ResolutionService answers pricing and availability queries.
type ResolutionService struct {
	rules        repo.RuleRepository
	availability repo.AvailabilityRepository
	cache        *cache.Cache
	currency     string
	defaultOpen  bool
}

// NewResolutionService creates a resolution service. Cache may be nil, in
// which case every query hits the repository.
func NewResolutionService(
	rules repo.RuleRepository,
	availability repo.AvailabilityRepository,
	ruleCache *cache.Cache,
	currency string,
	defaultOpen bool,
) *ResolutionService {
	return &ResolutionService{
		rules:        rules,
		availability: availability,
		cache:        ruleCache,
		currency:     currency,
		defaultOpen:  defaultOpen,
	}
}

// ResolvePrice selects the most specific applicable rule for the context
// and applies it to the consumption inputs. An empty candidate set surfaces
// as ErrNoApplicableRule, never as a zero cost.
func (s *ResolutionService) ResolvePrice(ctx context.Context, rctx domain.ResolutionContext, energyKWh *float64, durationMinutes *int64) (*CostCalculation, error) {
	ctx, span := tracing.StartSpan(ctx, "tariff.ResolvePrice")
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.ResolutionDuration.Observe(time.Since(start).Seconds())
	}()

	candidates, err := s.fetchCandidates(ctx, rctx)
	if err != nil {
		metrics.PriceResolutions.WithLabelValues("error", "").Inc()
		return nil, err
	}

	ranked := resolve.Resolve(candidates, rctx)
	metrics.CandidateSetSize.Observe(float64(len(ranked)))
	if len(ranked) == 0 {
		metrics.PriceResolutions.WithLabelValues("no_rule", "").Inc()
		return nil, domain.NewNoApplicableRuleError(
			fmt.Sprintf("network_id=%d date=%s", rctx.NetworkID, rctx.Date.Format(time.DateOnly)))
	}

	winner := ranked[0]
	cost, err := resolve.Calculate(winner, energyKWh, durationMinutes, s.currency)
	if err != nil {
		metrics.PriceResolutions.WithLabelValues("missing_input", string(winner.Model)).Inc()
		return nil, err
	}

	metrics.PriceResolutions.WithLabelValues("ok", string(winner.Model)).Inc()
	log.Debug(ctx, "Resolved price",
		zap.Int32("network_id", rctx.NetworkID),
		zap.Int32("rule_id", winner.ID),
		zap.String("model", string(winner.Model)),
		zap.Float64("amount", cost.Amount),
		zap.String("currency", cost.Currency))

	return &CostCalculation{Cost: cost, Rule: winner, ApplicableRules: ranked}, nil
}

// ResolveRules returns the full ordered candidate list for a context, for
// listing endpoints that show every applicable rule.
func (s *ResolutionService) ResolveRules(ctx context.Context, rctx domain.ResolutionContext) ([]domain.PricingRule, error) {
	candidates, err := s.fetchCandidates(ctx, rctx)
	if err != nil {
		return nil, err
	}
	return resolve.Resolve(candidates, rctx), nil
}

// PricingHistory returns every rule of a network whose effective range
// overlaps the inclusive date interval. Specificity ranking is not
// meaningful here; records come back chronologically.
func (s *ResolutionService) PricingHistory(ctx context.Context, networkID int32, from, until time.Time) ([]domain.PricingRule, error) {
	if until.Before(from) {
		return nil, domain.NewInvalidInputError("history end date precedes start date", "")
	}
	rules, err := s.rules.FindEffectiveBetween(ctx, networkID, from, until)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pricing history: %w", err)
	}
	return rules, nil
}

// CheckOpen answers whether a station is open at the given instant. A day
// with no availability record resolves to the configured default policy.
func (s *ResolutionService) CheckOpen(ctx context.Context, stationID int32, at time.Time) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "tariff.CheckOpen")
	defer span.End()

	windows, err := s.fetchWindows(ctx, stationID)
	if err != nil {
		return false, err
	}

	at = at.UTC()
	tod := domain.TimeOfDay(at.Hour()*60 + at.Minute())
	open, err := resolve.IsOpen(windows, domain.DayOfWeek(at), tod, s.defaultOpen)
	if err != nil {
		metrics.AvailabilityChecks.WithLabelValues("error").Inc()
		return false, err
	}

	if open {
		metrics.AvailabilityChecks.WithLabelValues("open").Inc()
	} else {
		metrics.AvailabilityChecks.WithLabelValues("closed").Inc()
	}
	return open, nil
}

// NextTransition reports the next open/close boundary for a station within
// the coming week, or nil when its state never changes.
func (s *ResolutionService) NextTransition(ctx context.Context, stationID int32, at time.Time) (*resolve.Transition, error) {
	windows, err := s.fetchWindows(ctx, stationID)
	if err != nil {
		return nil, err
	}

	at = at.UTC()
	tod := domain.TimeOfDay(at.Hour()*60 + at.Minute())
	return resolve.NextTransition(windows, domain.DayOfWeek(at), tod, s.defaultOpen)
}

// fetchCandidates loads the active rule set for the context, through the
// cache when one is configured. The cached set is the storage-level
// candidate fetch; context filtering still happens in the resolver.
func (s *ResolutionService) fetchCandidates(ctx context.Context, rctx domain.ResolutionContext) ([]domain.PricingRule, error) {
	if s.cache == nil {
		return s.findActiveRules(ctx, rctx)
	}

	key := cache.NetworkRulesKey(rctx.NetworkID, rctx.ConnectorTypeID, rctx.Date)
	var cached []domain.PricingRule
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		metrics.RuleCacheHit.Inc()
		return cached, nil
	}
	metrics.RuleCacheMiss.Inc()

	rules, err := s.findActiveRules(ctx, rctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, rules, cache.DefaultTTL); err != nil {
		log.Warn(ctx, "Failed to cache rule set", zap.Error(err))
	}
	return rules, nil
}

func (s *ResolutionService) findActiveRules(ctx context.Context, rctx domain.ResolutionContext) ([]domain.PricingRule, error) {
	rules, err := s.rules.FindActiveRules(ctx, rctx.NetworkID, rctx.ConnectorTypeID, rctx.Date)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch active rules: %w", err)
	}
	return rules, nil
}

func (s *ResolutionService) fetchWindows(ctx context.Context, stationID int32) ([]domain.AvailabilityWindow, error) {
	if s.cache != nil {
		key := cache.StationWindowsKey(stationID)
		var cached []domain.AvailabilityWindow
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	windows, err := s.availability.FindByStation(ctx, stationID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch station availability: %w", err)
	}

	if s.cache != nil {
		key := cache.StationWindowsKey(stationID)
		if err := s.cache.Set(ctx, key, windows, cache.DefaultTTL); err != nil {
			log.Warn(ctx, "Failed to cache station windows", zap.Error(err))
		}
	}
	return windows, nil
}
