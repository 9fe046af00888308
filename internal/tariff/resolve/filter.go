package resolve

import (
	"github.com/chargegrid/configurator/internal/tariff/domain"
)

// Filter narrows a rule set to the candidates valid for the context: same
// network, active, live on the context date, and with every scoping
// dimension either absent or matching. A rule with no scoping at all is the
// network fallback and always survives when network and date match.
func Filter(rules []domain.PricingRule, ctx domain.ResolutionContext) []domain.PricingRule {
	candidates := make([]domain.PricingRule, 0, len(rules))
	for _, r := range rules {
		if applies(r, ctx) {
			candidates = append(candidates, r)
		}
	}
	return candidates
}

func applies(r domain.PricingRule, ctx domain.ResolutionContext) bool {
	if r.NetworkID != ctx.NetworkID || !r.Active {
		return false
	}
	if !r.Effective.Contains(ctx.Date) {
		return false
	}
	if r.ConnectorTypeID != nil {
		if ctx.ConnectorTypeID == nil || *r.ConnectorTypeID != *ctx.ConnectorTypeID {
			return false
		}
	}
	if r.DayOfWeek != nil && *r.DayOfWeek != ctx.DayOfWeek {
		return false
	}
	if r.Window != nil {
		if ctx.Time == nil || !Matches(*r.Window, *ctx.Time) {
			return false
		}
	}
	return true
}
