package resolve

import (
	"sort"

	"github.com/chargegrid/configurator/internal/tariff/domain"
)

// Specificity bits, highest most significant. A connector-scoped rule
// always outranks any combination of day and window scoping alone.
const (
	specConnector = 1 << 2
	specDay       = 1 << 1
	specWindow    = 1 << 0
)

// Specificity scores a rule by which optional scoping dimensions it
// carries. The explicit score replaces the storage-order tie-break the
// service used to lean on (ORDER BY ... NULLS LAST), so precedence is
// testable without a database.
func Specificity(r domain.PricingRule) int {
	score := 0
	if r.HasConnectorScope() {
		score |= specConnector
	}
	if r.HasDayScope() {
		score |= specDay
	}
	if r.HasWindowScope() {
		score |= specWindow
	}
	return score
}

// Rank orders candidates most specific first. Rules with identical
// specificity are broken by recency, newest first, then by descending ID,
// so the order is total and deterministic.
func Rank(candidates []domain.PricingRule) []domain.PricingRule {
	ranked := make([]domain.PricingRule, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := Specificity(ranked[i]), Specificity(ranked[j])
		if si != sj {
			return si > sj
		}
		if !ranked[i].CreatedAt.Equal(ranked[j].CreatedAt) {
			return ranked[i].CreatedAt.After(ranked[j].CreatedAt)
		}
		return ranked[i].ID > ranked[j].ID
	})
	return ranked
}

// Resolve filters and ranks, returning the full ordered candidate list.
// Pricing takes the head as authoritative; history endpoints may use the
// whole slice. An empty result means no applicable rule, which callers must
// surface, never default to a zero cost.
func Resolve(rules []domain.PricingRule, ctx domain.ResolutionContext) []domain.PricingRule {
	return Rank(Filter(rules, ctx))
}
