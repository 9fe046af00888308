package resolve

import (
	"github.com/chargegrid/configurator/internal/tariff/domain"
)

// Calculate applies the rule's pricing model to the consumption inputs and
// returns the cost in the given currency. A missing input the model
// requires is a caller contract violation and comes back as
// ErrMissingInput, never silently treated as zero. No clamping or rounding
// happens here.
func Calculate(rule domain.PricingRule, energyKWh *float64, durationMinutes *int64, currency string) (domain.Money, error) {
	var amount float64
	switch rule.Model {
	case domain.ModelPerEnergy:
		if energyKWh == nil {
			return domain.Money{}, domain.NewMissingInputError("energy_kwh")
		}
		amount = *rule.Rates.PerKWh * *energyKWh
	case domain.ModelPerDuration:
		if durationMinutes == nil {
			return domain.Money{}, domain.NewMissingInputError("duration_minutes")
		}
		amount = *rule.Rates.PerMinute * float64(*durationMinutes)
	case domain.ModelFlatRate:
		amount = *rule.Rates.FlatAmount
	case domain.ModelMembership:
		amount = *rule.Rates.PeriodicFee
	default:
		return domain.Money{}, domain.NewInvalidInputError("unknown pricing model", string(rule.Model))
	}
	return domain.NewMoney(amount, currency)
}
