package services

import (
	"context"
	"errors"
	"log"
	"time"

	"clinicpay/internal/adapters/persistence/repositories"

	"github.com/robfig/cron/v3"
)

// SweepService periodically resubmits LENDER_PENDING requests whose
// background submission failed on transient provider errors. Requests
// that used up their attempt budget are left alone for manual retry
// through the admin console.
type SweepService struct {
	financingRepo repositories.FinancingRepository
	financingSvc  *FinancingService
	staleAfter    time.Duration
	maxAttempts   int
	cron          *cron.Cron
}

// NewSweepService creates a new sweep service
func NewSweepService(
	financingRepo repositories.FinancingRepository,
	financingSvc *FinancingService,
	staleAfter time.Duration,
	maxAttempts int,
) *SweepService {
	return &SweepService{
		financingRepo: financingRepo,
		financingSvc:  financingSvc,
		staleAfter:    staleAfter,
		maxAttempts:   maxAttempts,
		cron:          cron.New(),
	}
}

// Start schedules the sweep
func (s *SweepService) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.Sweep); err != nil {
		return err
	}
	s.cron.Start()
	log.Printf("🚀 Lender sweep scheduled [%s]", spec)
	return nil
}

// Stop stops the scheduler, waiting for a running sweep to finish
func (s *SweepService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("🛑 Lender sweep stopped")
}

// Sweep resubmits stale pending requests once
func (s *SweepService) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-s.staleAfter)
	stale, err := s.financingRepo.ListStalePending(ctx, cutoff, s.maxAttempts)
	if err != nil {
		log.Printf("❌ Sweep query error: %v", err)
		return
	}

	for _, req := range stale {
		if err := s.financingSvc.SubmitToLender(ctx, req.ID); err != nil {
			if errors.Is(err, ErrLenderRetryExhausted) {
				log.Printf("⚠️ Request %d exhausted lender retries, manual intervention required", req.ID)
				continue
			}
			log.Printf("⚠️ Sweep resubmission failed for request %d: %v", req.ID, err)
		}
	}

	if len(stale) > 0 {
		log.Printf("✅ Sweep processed %d stale pending request(s)", len(stale))
	}
}
