package pricing

import (
	"errors"
	"math"
	"testing"

	"clinicpay/internal/core/domain"
)

// referenceTiers mirrors the seeded master data
var referenceTiers = []Tier{
	{TermCount: 1, Multiplier: 1},
	{TermCount: 3, Multiplier: 1},
	{TermCount: 6, Multiplier: 1},
	{TermCount: 12, Multiplier: 1.10},
	{TermCount: 18, Multiplier: 1.15},
	{TermCount: 24, Multiplier: 1.20},
}

func TestComputePlans_ReferenceAmounts(t *testing.T) {
	plans, err := ComputePlans(1200, referenceTiers)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plans) != 6 {
		t.Fatalf("expected 6 plans, got %d", len(plans))
	}

	// 3 installments, interest-free
	p3 := plans[1]
	if Round2(p3.PerInstallment) != 400.00 {
		t.Errorf("term 3 per-installment = %.2f, want 400.00", p3.PerInstallment)
	}
	if p3.Total != 1200.00 {
		t.Errorf("term 3 total = %.2f, want 1200.00", p3.Total)
	}
	if p3.InterestRatePercent != 0 {
		t.Errorf("term 3 interest = %.2f, want 0", p3.InterestRatePercent)
	}

	// 12 installments, 10% markup
	p12 := plans[3]
	if Round2(p12.Total) != 1320.00 {
		t.Errorf("term 12 total = %.2f, want 1320.00", p12.Total)
	}
	if Round2(p12.PerInstallment) != 110.00 {
		t.Errorf("term 12 per-installment = %.2f, want 110.00", p12.PerInstallment)
	}
}

func TestComputePlans_TotalMatchesInstallments(t *testing.T) {
	amounts := []float64{1, 99.99, 350, 1250.75, 980000}

	for _, amount := range amounts {
		plans, err := ComputePlans(amount, referenceTiers)
		if err != nil {
			t.Fatalf("amount %.2f: unexpected error: %v", amount, err)
		}
		for _, p := range plans {
			diff := math.Abs(p.PerInstallment*float64(p.TermCount) - p.Total)
			if diff > 0.01 {
				t.Errorf("amount %.2f term %d: per*term differs from total by %.4f",
					amount, p.TermCount, diff)
			}
		}
	}
}

func TestComputePlans_InterestFreeTiersKeepBaseAmount(t *testing.T) {
	plans, _ := ComputePlans(777.77, referenceTiers)
	for _, p := range plans {
		if p.InterestRatePercent == 0 && p.Total != 777.77 {
			t.Errorf("term %d: interest-free total = %v, want exact base amount", p.TermCount, p.Total)
		}
		if p.InterestRatePercent > 0 && p.Total <= 777.77 {
			t.Errorf("term %d: interest-bearing total = %v, want > base amount", p.TermCount, p.Total)
		}
	}
}

func TestComputePlans_PreservesTierOrder(t *testing.T) {
	tiers := []Tier{{24, 1.20}, {1, 1}, {12, 1.10}}
	plans, _ := ComputePlans(100, tiers)

	want := []int{24, 1, 12}
	for i, p := range plans {
		if p.TermCount != want[i] {
			t.Errorf("plan %d term = %d, want %d", i, p.TermCount, want[i])
		}
	}
}

func TestComputePlans_InvalidAmount(t *testing.T) {
	for _, amount := range []float64{0, -1, -500.25} {
		if _, err := ComputePlans(amount, referenceTiers); !errors.Is(err, domain.ErrInvalidAmount) {
			t.Errorf("amount %.2f: want ErrInvalidAmount, got %v", amount, err)
		}
	}
}

func TestComputePlans_SkipsInvalidTerms(t *testing.T) {
	plans, err := ComputePlans(100, []Tier{{0, 1}, {6, 1}, {-3, 1}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plans) != 1 || plans[0].TermCount != 6 {
		t.Errorf("expected only the term-6 plan, got %+v", plans)
	}
}

func TestRound2(t *testing.T) {
	if Round2(110.004999) != 110.00 {
		t.Errorf("Round2 down failed")
	}
	if Round2(1.239) != 1.24 {
		t.Errorf("Round2 up failed: got %v", Round2(1.239))
	}
	if Round2(400.0/3) != 133.33 {
		t.Errorf("Round2 repeating failed: got %v", Round2(400.0/3))
	}
}
