package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chargegrid/configurator/internal/audit"
	"github.com/chargegrid/configurator/internal/cache"
	"github.com/chargegrid/configurator/internal/events"
	"github.com/chargegrid/configurator/internal/log"
	"github.com/chargegrid/configurator/internal/metrics"
	"github.com/chargegrid/configurator/internal/tariff/domain"
	"github.com/chargegrid/configurator/internal/tariff/repo"
)

// CreateRuleCommand carries the inputs for creating a pricing rule.
type CreateRuleCommand struct {
	NetworkID       int32               `json:"network_id"`
	ConnectorTypeID *int32              `json:"connector_type_id,omitempty"`
	Model           domain.PricingModel `json:"pricing_model"`
	Rates           domain.RateAmounts  `json:"rates"`
	DayOfWeek       *int                `json:"day_of_week,omitempty"`
	Window          *domain.TimeWindow  `json:"window,omitempty"`
	EffectiveFrom   time.Time           `json:"effective_from"`
	EffectiveUntil  *time.Time          `json:"effective_until,omitempty"`
	CreatedBy       uuid.UUID           `json:"created_by"`
}

// RuleService manages the pricing rule lifecycle. Rules are created active
// and deactivated in place; they are never mutated otherwise and never
// deleted, so historical cost recomputation stays correct.
type RuleService struct {
	rules     repo.RuleRepository
	cache     *cache.Cache
	publisher events.Publisher
	auditor   audit.Logger
}

// NewRuleService creates a rule lifecycle service. Cache may be nil;
// publisher and auditor must not be (use the noop implementations).
func NewRuleService(rules repo.RuleRepository, ruleCache *cache.Cache, publisher events.Publisher, auditor audit.Logger) *RuleService {
	return &RuleService{
		rules:     rules,
		cache:     ruleCache,
		publisher: publisher,
		auditor:   auditor,
	}
}

// CreateRule validates and persists a new active rule, invalidates the
// network's cached candidate sets and announces the change.
func (s *RuleService) CreateRule(ctx context.Context, cmd CreateRuleCommand) (domain.PricingRule, error) {
	effective, err := domain.NewEffectiveRange(cmd.EffectiveFrom, cmd.EffectiveUntil)
	if err != nil {
		return domain.PricingRule{}, err
	}

	rule, err := domain.NewPricingRule(
		cmd.NetworkID, cmd.ConnectorTypeID, cmd.Model, cmd.Rates,
		cmd.DayOfWeek, cmd.Window, effective, cmd.CreatedBy,
	)
	if err != nil {
		return domain.PricingRule{}, err
	}

	if err := s.rules.Create(ctx, &rule); err != nil {
		return domain.PricingRule{}, fmt.Errorf("failed to persist pricing rule: %w", err)
	}

	s.invalidateNetwork(ctx, rule.NetworkID)
	metrics.RulesCreated.WithLabelValues(string(rule.Model)).Inc()
	s.auditor.Log(ctx, audit.NewEvent("create", "pricing_rule", rule.ID, cmd.CreatedBy))
	s.publish(ctx, events.NewEvent(events.TypeRuleCreated, fmt.Sprintf("network-%d", rule.NetworkID), map[string]interface{}{
		"rule_id":    rule.ID,
		"network_id": rule.NetworkID,
		"model":      string(rule.Model),
	}))

	log.Info(ctx, "Created pricing rule",
		zap.Int32("rule_id", rule.ID),
		zap.Int32("network_id", rule.NetworkID),
		zap.String("model", string(rule.Model)))
	return rule, nil
}

// DeactivateRule retires a rule, stamping the acting user and time.
func (s *RuleService) DeactivateRule(ctx context.Context, id int32, actor uuid.UUID) error {
	rule, err := s.rules.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !rule.Active {
		return domain.NewInvalidInputError("pricing rule is already inactive", fmt.Sprintf("rule_id=%d", id))
	}

	rule.Deactivate(actor)
	if err := s.rules.Update(ctx, rule); err != nil {
		s.auditor.Log(ctx, audit.NewEvent("deactivate", "pricing_rule", id, actor).Failed(err))
		return fmt.Errorf("failed to deactivate pricing rule: %w", err)
	}

	s.invalidateNetwork(ctx, rule.NetworkID)
	metrics.RulesDeactivated.WithLabelValues("manual").Inc()
	s.auditor.Log(ctx, audit.NewEvent("deactivate", "pricing_rule", id, actor))
	s.publish(ctx, events.NewEvent(events.TypeRuleDeactivated, fmt.Sprintf("network-%d", rule.NetworkID), map[string]interface{}{
		"rule_id":    rule.ID,
		"network_id": rule.NetworkID,
	}))

	log.Info(ctx, "Deactivated pricing rule",
		zap.Int32("rule_id", id),
		zap.String("actor", actor.String()))
	return nil
}

// ListRules returns a page of a network's rules, newest first, active or not.
func (s *RuleService) ListRules(ctx context.Context, networkID int32, page, pageSize int) ([]domain.PricingRule, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	rules, err := s.rules.ListByNetwork(ctx, networkID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list pricing rules: %w", err)
	}
	return rules, nil
}

// DeactivateExpired retires every active rule whose effective until date
// has passed, on behalf of the system actor. Returns how many were retired.
func (s *RuleService) DeactivateExpired(ctx context.Context, asOf time.Time, systemActor uuid.UUID) (int, error) {
	expired, err := s.rules.FindExpired(ctx, asOf)
	if err != nil {
		return 0, fmt.Errorf("failed to find expired rules: %w", err)
	}

	count := 0
	for _, rule := range expired {
		rule.Deactivate(systemActor)
		if err := s.rules.Update(ctx, rule); err != nil {
			log.Error(ctx, "Failed to deactivate expired rule",
				zap.Int32("rule_id", rule.ID), zap.Error(err))
			continue
		}
		s.invalidateNetwork(ctx, rule.NetworkID)
		metrics.RulesDeactivated.WithLabelValues("expired").Inc()
		s.auditor.Log(ctx, audit.NewEvent("deactivate_expired", "pricing_rule", rule.ID, systemActor))
		count++
	}
	return count, nil
}

func (s *RuleService) invalidateNetwork(ctx context.Context, networkID int32) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateNetwork(ctx, networkID); err != nil {
		log.Warn(ctx, "Failed to invalidate network rule cache",
			zap.Int32("network_id", networkID), zap.Error(err))
	}
}

func (s *RuleService) publish(ctx context.Context, event *events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Warn(ctx, "Failed to publish event",
			zap.String("event_type", event.Type), zap.Error(err))
	}
}
