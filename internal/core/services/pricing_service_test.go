package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"clinicpay/internal/adapters/persistence/models"
	"clinicpay/internal/adapters/persistence/repositories"
	"clinicpay/internal/core/domain"
)

// cacheStub is a map-backed CacheRepository
type cacheStub struct {
	mu   sync.Mutex
	data map[string]string
	sets int
	hits int
}

func newCacheStub() *cacheStub {
	return &cacheStub{data: make(map[string]string)}
}

func (c *cacheStub) Get(ctx context.Context, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	val, ok := c.data[key]
	if ok {
		c.hits++
	}
	return val, ok
}

func (c *cacheStub) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	c.sets++
	return nil
}

func quoteTierRepo() *repositories.PlanTierRepositoryMemory {
	return repositories.NewPlanTierRepositoryMemory(
		&models.PlanTier{TermCount: 3, Multiplier: 1.00, IsActive: true},
		&models.PlanTier{TermCount: 12, Multiplier: 1.10, IsActive: true},
		&models.PlanTier{TermCount: 24, Multiplier: 1.20, IsActive: false},
	)
}

func TestQuoteComputesPlans(t *testing.T) {
	svc := NewPricingService(quoteTierRepo(), nil)

	plans, err := svc.Quote(context.Background(), 1200)
	if err != nil {
		t.Fatalf("Quote() error = %v", err)
	}
	if len(plans) != 2 {
		t.Fatalf("Quote() returned %d plans, want 2 (inactive tier excluded)", len(plans))
	}

	three := plans[0]
	if three.TermCount != 3 || three.PerInstallment != 400.00 || three.Total != 1200.00 || three.InterestRatePercent != 0 {
		t.Errorf("3-term plan = %+v, want 400.00/1200.00/0%%", three)
	}

	twelve := plans[1]
	if twelve.TermCount != 12 || twelve.PerInstallment != 110.00 || twelve.Total != 1320.00 {
		t.Errorf("12-term plan = %+v, want 110.00/1320.00", twelve)
	}
}

func TestQuoteInvalidAmount(t *testing.T) {
	svc := NewPricingService(quoteTierRepo(), nil)

	for _, amount := range []float64{0, -50} {
		if _, err := svc.Quote(context.Background(), amount); !errors.Is(err, domain.ErrInvalidAmount) {
			t.Errorf("Quote(%v) error = %v, want ErrInvalidAmount", amount, err)
		}
	}
}

func TestQuoteUsesCache(t *testing.T) {
	tierRepo := quoteTierRepo()
	cache := newCacheStub()
	svc := NewPricingService(tierRepo, cache)

	first, err := svc.Quote(context.Background(), 1200)
	if err != nil {
		t.Fatalf("Quote() error = %v", err)
	}
	if cache.sets != 1 {
		t.Errorf("cache writes = %d, want 1", cache.sets)
	}

	// Change the master data; the cached quote must still be served.
	tier, err := tierRepo.GetByTermCount(context.Background(), 12)
	if err != nil {
		t.Fatalf("GetByTermCount() error = %v", err)
	}
	tier.Multiplier = 1.50
	if err := tierRepo.Update(context.Background(), tier); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	second, err := svc.Quote(context.Background(), 1200)
	if err != nil {
		t.Fatalf("second Quote() error = %v", err)
	}
	if cache.hits != 1 {
		t.Errorf("cache hits = %d, want 1", cache.hits)
	}
	if len(second) != len(first) || second[1].Total != first[1].Total {
		t.Errorf("cached quote = %+v, want %+v", second, first)
	}

	// A different amount is a different key and recomputes.
	if _, err := svc.Quote(context.Background(), 900); err != nil {
		t.Fatalf("Quote(900) error = %v", err)
	}
	if cache.sets != 2 {
		t.Errorf("cache writes = %d, want 2", cache.sets)
	}
}
