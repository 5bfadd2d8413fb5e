package pricing

import (
	"math"

	"clinicpay/internal/core/domain"
)

// Tier defines one supported installment term. Multiplier 1 means the
// tier is interest-free; 1.10 means the patient pays 10% on top.
type Tier struct {
	TermCount  int     `json:"term_count"`
	Multiplier float64 `json:"multiplier"`
}

// Plan is a concrete installment option for a base amount
type Plan struct {
	TermCount           int     `json:"term_count"`
	PerInstallment      float64 `json:"per_installment"`
	Total               float64 `json:"total"`
	InterestRatePercent float64 `json:"interest_rate_percent"`
}

// ComputePlans derives one Plan per tier, preserving tier order.
// Pure: no I/O, deterministic, safe to call repeatedly from a simulator UI.
// Amounts keep full float64 precision; callers round at presentation.
func ComputePlans(baseAmount float64, tiers []Tier) ([]Plan, error) {
	if baseAmount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	plans := make([]Plan, 0, len(tiers))
	for _, tier := range tiers {
		if tier.TermCount < 1 {
			continue
		}

		multiplier := tier.Multiplier
		if multiplier < 1 {
			multiplier = 1
		}

		total := baseAmount * multiplier
		plans = append(plans, Plan{
			TermCount:           tier.TermCount,
			PerInstallment:      total / float64(tier.TermCount),
			Total:               total,
			InterestRatePercent: (multiplier - 1) * 100,
		})
	}

	return plans, nil
}

// Round2 rounds a monetary value to 2 decimals for presentation
func Round2(value float64) float64 {
	return math.Round(value*100) / 100
}
