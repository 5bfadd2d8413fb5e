package services

import (
	"context"
	"time"

	"clinicpay/internal/adapters/persistence/models"
	"clinicpay/internal/core/domain"
)

// Role-scoped gateways. Each gateway exposes only the transitions its
// actor may raise and injects the actor identity into the call, so an
// illegal transition cannot be expressed at the call-site. One method
// per transition.

// PatientGateway exposes the patient-side financing operations
type PatientGateway struct {
	svc *FinancingService
}

// NewPatientGateway creates a new patient gateway
func NewPatientGateway(svc *FinancingService) *PatientGateway {
	return &PatientGateway{svc: svc}
}

// Submit creates a financing request for one of the patient's
// appointments. Fails with domain.ErrInvalidAmount when the amount
// exceeds the policy cap and domain.ErrDuplicateRequest when the
// appointment already has active financing.
func (g *PatientGateway) Submit(ctx context.Context, actor domain.Actor, input *SubmitRequestInput, ip string) (*models.FinancingRequest, error) {
	if actor.Role != domain.RolePatient {
		return nil, domain.ErrForbidden
	}
	return g.svc.createRequest(ctx, actor, input, ip)
}

// ListMine lists the patient's own requests
func (g *PatientGateway) ListMine(ctx context.Context, actor domain.Actor) ([]*models.FinancingRequest, error) {
	if actor.Role != domain.RolePatient {
		return nil, domain.ErrForbidden
	}
	return g.svc.financingRepo.ListByPatient(ctx, actor.UserID)
}

// ClinicGateway exposes the clinic decision on financing requests
type ClinicGateway struct {
	svc *FinancingService
}

// NewClinicGateway creates a new clinic gateway
func NewClinicGateway(svc *FinancingService) *ClinicGateway {
	return &ClinicGateway{svc: svc}
}

// loadOwned loads a request and checks the acting clinic owns it
func (g *ClinicGateway) loadOwned(ctx context.Context, actor domain.Actor, id uint) (*models.FinancingRequest, error) {
	if actor.Role != domain.RoleClinic {
		return nil, domain.ErrForbidden
	}
	req, err := g.svc.financingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.ErrRequestNotFound
	}
	if req.ClinicID != actor.ClinicID {
		return nil, domain.ErrForbidden
	}
	return req, nil
}

// Approve endorses a PATIENT_REQUESTED request
func (g *ClinicGateway) Approve(ctx context.Context, actor domain.Actor, id uint, notes, ip string) (*models.FinancingRequest, error) {
	req, err := g.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	updates := map[string]interface{}{
		"clinic_approval_at": now,
	}
	if notes != "" {
		updates["clinic_notes"] = notes
	}
	return g.svc.transition(ctx, req, domain.EventClinicApprove, updates, notes, actor.UserID, ip)
}

// Reject declines a PATIENT_REQUESTED request. Notes optional.
func (g *ClinicGateway) Reject(ctx context.Context, actor domain.Actor, id uint, notes, ip string) (*models.FinancingRequest, error) {
	req, err := g.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if notes != "" {
		updates["clinic_notes"] = notes
	}
	return g.svc.transition(ctx, req, domain.EventClinicReject, updates, notes, actor.UserID, ip)
}

// List lists the clinic's financing requests
func (g *ClinicGateway) List(ctx context.Context, actor domain.Actor, offset, limit int) ([]*models.FinancingRequest, int64, error) {
	if actor.Role != domain.RoleClinic {
		return nil, 0, domain.ErrForbidden
	}
	return g.svc.financingRepo.ListByClinic(ctx, actor.ClinicID, offset, limit)
}

// AdminGateway exposes the platform-side forwarding to the lender
type AdminGateway struct {
	svc *FinancingService
}

// NewAdminGateway creates a new admin gateway
func NewAdminGateway(svc *FinancingService) *AdminGateway {
	return &AdminGateway{svc: svc}
}

// Forward parks a CLINIC_APPROVED request in LENDER_PENDING and submits
// it to the external provider. The submission runs in the background so
// provider latency never blocks the admin console; the losing side of a
// concurrent forward gets domain.ErrConflict.
func (g *AdminGateway) Forward(ctx context.Context, actor domain.Actor, id uint, ip string) (*models.FinancingRequest, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, domain.ErrForbidden
	}

	req, err := g.svc.financingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.ErrRequestNotFound
	}

	now := time.Now()
	updated, err := g.svc.transition(ctx, req, domain.EventForward, map[string]interface{}{
		"admin_decision_at": now,
	}, "", actor.UserID, ip)
	if err != nil {
		return nil, err
	}

	if g.svc.policy.SyncSubmit {
		if err := g.svc.SubmitToLender(ctx, updated.ID); err != nil {
			return g.svc.financingRepo.GetByID(ctx, updated.ID)
		}
		return g.svc.financingRepo.GetByID(ctx, updated.ID)
	}

	go func(requestID uint) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := g.svc.SubmitToLender(ctx, requestID); err != nil {
			// Stays LENDER_PENDING; the sweep service retries later.
		}
	}(updated.ID)

	return updated, nil
}

// ListByStatus lists requests in a given status for the admin console
func (g *AdminGateway) ListByStatus(ctx context.Context, actor domain.Actor, status domain.FinancingStatus, offset, limit int) ([]*models.FinancingRequest, int64, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, 0, domain.ErrForbidden
	}
	if !status.IsValid() {
		return nil, 0, domain.ErrInvalidInput
	}
	return g.svc.financingRepo.ListByStatus(ctx, status, offset, limit)
}

// Retry resubmits a stuck LENDER_PENDING request after manual review
func (g *AdminGateway) Retry(ctx context.Context, actor domain.Actor, id uint) error {
	if actor.Role != domain.RoleAdmin {
		return domain.ErrForbidden
	}
	return g.svc.SubmitToLender(ctx, id)
}
