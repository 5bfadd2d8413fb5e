package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"clinicpay/internal/adapters/persistence/repositories"
	"clinicpay/internal/core/pricing"

	json "github.com/goccy/go-json"
)

const quoteCacheTTL = 10 * time.Minute

// PricingService composes the tier master data with the pure pricing
// engine. Quotes are cacheable because the engine is deterministic; the
// cache is optional and its failures are never surfaced.
type PricingService struct {
	tierRepo repositories.PlanTierRepository
	cache    repositories.CacheRepository
}

// NewPricingService creates a new pricing service. cache may be nil.
func NewPricingService(tierRepo repositories.PlanTierRepository, cache repositories.CacheRepository) *PricingService {
	return &PricingService{tierRepo: tierRepo, cache: cache}
}

// Quote computes the installment plans offered for a base amount.
// Amounts in the result are rounded for presentation.
func (s *PricingService) Quote(ctx context.Context, baseAmount float64) ([]pricing.Plan, error) {
	key := fmt.Sprintf("quote:%.2f", baseAmount)

	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, key); ok {
			var plans []pricing.Plan
			if err := json.Unmarshal([]byte(cached), &plans); err == nil {
				return plans, nil
			}
		}
	}

	tiers, err := s.activeTiers(ctx)
	if err != nil {
		return nil, err
	}

	plans, err := pricing.ComputePlans(baseAmount, tiers)
	if err != nil {
		return nil, err
	}

	for i := range plans {
		plans[i].PerInstallment = pricing.Round2(plans[i].PerInstallment)
		plans[i].Total = pricing.Round2(plans[i].Total)
		plans[i].InterestRatePercent = pricing.Round2(plans[i].InterestRatePercent)
	}

	if s.cache != nil {
		if body, err := json.Marshal(plans); err == nil {
			if err := s.cache.Set(ctx, key, string(body), quoteCacheTTL); err != nil {
				log.Printf("⚠️ Quote cache write failed: %v", err)
			}
		}
	}

	return plans, nil
}

func (s *PricingService) activeTiers(ctx context.Context) ([]pricing.Tier, error) {
	rows, err := s.tierRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	tiers := make([]pricing.Tier, 0, len(rows))
	for _, row := range rows {
		tiers = append(tiers, row.ToTier())
	}
	return tiers, nil
}
