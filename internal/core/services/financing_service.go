package services

import (
	"context"
	"errors"
	"log"
	"time"

	"clinicpay/internal/adapters/lender"
	"clinicpay/internal/adapters/persistence/models"
	"clinicpay/internal/adapters/persistence/repositories"
	"clinicpay/internal/core/domain"

	"github.com/google/uuid"
)

// Financing service errors
var (
	ErrAppointmentNotFound    = errors.New("appointment not found")
	ErrTermNotOffered         = errors.New("installment term not offered")
	ErrLenderRetryExhausted   = errors.New("lender submission attempts exhausted")
	ErrRequestNotPending      = errors.New("request is not pending a lender decision")
	ErrMissingLenderReference = errors.New("lender reference id required for approval")
)

// LenderClient is the adapter contract consumed when forwarding a
// clinic-approved request
type LenderClient interface {
	Submit(ctx context.Context, sub *lender.Submission) (*lender.Acknowledgement, error)
}

// FinancingPolicy holds the provisional business rules flagged as
// configurable: the amount cap factor and the lender retry budget.
type FinancingPolicy struct {
	MaxAmountFactor float64
	MaxAttempts     int
	RetryBackoff    time.Duration
	// SyncSubmit makes Forward call the lender inline instead of in a
	// background goroutine. Tests only.
	SyncSubmit bool
}

// DefaultFinancingPolicy returns the reference policy
func DefaultFinancingPolicy() FinancingPolicy {
	return FinancingPolicy{
		MaxAmountFactor: 2.0,
		MaxAttempts:     3,
		RetryBackoff:    2 * time.Second,
	}
}

// FinancingService owns the financing request store and its state
// machine. All mutations go through transition, which serializes
// concurrent attempts per entity via the repository's conditional
// update.
type FinancingService struct {
	financingRepo   repositories.FinancingRepository
	eventRepo       repositories.FinancingEventRepository
	appointmentRepo repositories.AppointmentRepository
	tierRepo        repositories.PlanTierRepository
	lenderClient    LenderClient
	notifier        Notifier
	policy          FinancingPolicy
}

// NewFinancingService creates a new financing service
func NewFinancingService(
	financingRepo repositories.FinancingRepository,
	eventRepo repositories.FinancingEventRepository,
	appointmentRepo repositories.AppointmentRepository,
	tierRepo repositories.PlanTierRepository,
	lenderClient LenderClient,
	notifier Notifier,
	policy FinancingPolicy,
) *FinancingService {
	return &FinancingService{
		financingRepo:   financingRepo,
		eventRepo:       eventRepo,
		appointmentRepo: appointmentRepo,
		tierRepo:        tierRepo,
		lenderClient:    lenderClient,
		notifier:        notifier,
		policy:          policy,
	}
}

// SubmitRequestInput represents patient submission input
type SubmitRequestInput struct {
	AppointmentID uint    `json:"appointment_id" validate:"required"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	Installments  int     `json:"installments" validate:"required,gte=1"`
}

// createRequest validates the submission preconditions and stores the
// request in PATIENT_REQUESTED. Called via PatientGateway.
func (s *FinancingService) createRequest(ctx context.Context, actor domain.Actor, input *SubmitRequestInput, ip string) (*models.FinancingRequest, error) {
	if input.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if input.Installments < 1 {
		return nil, domain.ErrInvalidInput
	}

	appt, err := s.appointmentRepo.GetByID(ctx, input.AppointmentID)
	if err != nil {
		return nil, ErrAppointmentNotFound
	}
	if appt.PatientID != actor.UserID {
		return nil, domain.ErrForbidden
	}

	// Provisional policy: amount may not exceed MaxAmountFactor times
	// the appointment price.
	if input.Amount > appt.Price*s.policy.MaxAmountFactor {
		return nil, domain.ErrInvalidAmount
	}

	// One active financing per appointment.
	exists, err := s.financingRepo.ExistsActiveForAppointment(ctx, input.AppointmentID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrDuplicateRequest
	}

	// The chosen term must be an offered tier.
	if _, err := s.tierRepo.GetByTermCount(ctx, input.Installments); err != nil {
		return nil, ErrTermNotOffered
	}

	now := time.Now()
	req := &models.FinancingRequest{
		RequestNo:     uuid.NewString(),
		PatientID:     actor.UserID,
		ClinicID:      appt.ClinicID,
		AppointmentID: appt.ID,
		Amount:        input.Amount,
		Installments:  input.Installments,
		Status:        string(domain.StatusPatientRequested),
		RequestDate:   now,
	}

	if err := s.financingRepo.Create(ctx, req); err != nil {
		return nil, err
	}

	s.recordEvent(ctx, req.ID, "", domain.StatusPatientRequested, "SUBMIT", "", actor.UserID, ip)
	s.notify(req, "", domain.StatusPatientRequested)

	return req, nil
}

// transition applies one state-machine event atomically. It validates
// the event against the loaded status first (ErrInvalidTransition), then
// lets the repository's compare-and-swap decide races
// (domain.ErrConflict for the loser).
func (s *FinancingService) transition(ctx context.Context, req *models.FinancingRequest, event domain.FinancingEvent, updates map[string]interface{}, notes string, actorID uint, ip string) (*models.FinancingRequest, error) {
	from := req.FinancingStatus()
	to, err := domain.NextStatus(from, event)
	if err != nil {
		return nil, err
	}

	if err := s.financingRepo.Transition(ctx, req.ID, from, to, updates); err != nil {
		return nil, err
	}

	s.recordEvent(ctx, req.ID, from, to, string(event), notes, actorID, ip)
	s.notify(req, from, to)

	return s.financingRepo.GetByID(ctx, req.ID)
}

func (s *FinancingService) recordEvent(ctx context.Context, requestID uint, from, to domain.FinancingStatus, event, notes string, actorID uint, ip string) {
	ev := &models.FinancingEvent{
		RequestID:   requestID,
		FromStatus:  string(from),
		ToStatus:    string(to),
		Event:       event,
		Notes:       notes,
		PerformedBy: actorID,
		IPAddress:   ip,
	}
	if err := s.eventRepo.Create(ctx, ev); err != nil {
		log.Printf("⚠️ Failed to record financing event for request %d: %v", requestID, err)
	}
}

func (s *FinancingService) notify(req *models.FinancingRequest, from, to domain.FinancingStatus) {
	if s.notifier == nil {
		return
	}
	s.notifier.NotifyStatusChange(domain.StatusChange{
		RequestID:      req.ID,
		RequestNo:      req.RequestNo,
		PreviousStatus: from,
		NewStatus:      to,
		Timestamp:      time.Now(),
	})
}

// GetByID gets a financing request, enforcing view access per role
func (s *FinancingService) GetByID(ctx context.Context, actor domain.Actor, id uint) (*models.FinancingRequest, error) {
	req, err := s.financingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.ErrRequestNotFound
	}

	switch actor.Role {
	case domain.RoleAdmin:
	case domain.RoleClinic:
		if req.ClinicID != actor.ClinicID {
			return nil, domain.ErrForbidden
		}
	case domain.RolePatient:
		if req.PatientID != actor.UserID {
			return nil, domain.ErrForbidden
		}
	default:
		return nil, domain.ErrForbidden
	}

	return req, nil
}

// History lists the audit trail of a request
func (s *FinancingService) History(ctx context.Context, actor domain.Actor, id uint) ([]*models.FinancingEvent, error) {
	if _, err := s.GetByID(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.eventRepo.ListByRequest(ctx, id)
}

// SubmitToLender pushes one LENDER_PENDING request to the external
// provider, retrying transient failures with backoff up to the policy
// budget. On rejection the request transitions to LENDER_REJECTED; on
// synchronous approval to LENDER_APPROVED; on a pending acknowledgement
// it stays LENDER_PENDING until the webhook resolves it. When the retry
// budget runs out the request also stays LENDER_PENDING for manual
// intervention, never auto-failed.
func (s *FinancingService) SubmitToLender(ctx context.Context, requestID uint) error {
	req, err := s.financingRepo.GetByID(ctx, requestID)
	if err != nil {
		return domain.ErrRequestNotFound
	}
	if req.FinancingStatus() != domain.StatusLenderPending {
		return ErrRequestNotPending
	}

	sub := &lender.Submission{
		ReferenceNo:   req.RequestNo,
		Amount:        req.Amount,
		Installments:  req.Installments,
		PatientID:     req.PatientID,
		ClinicID:      req.ClinicID,
		AppointmentID: req.AppointmentID,
	}

	// Each invocation gets a fresh retry budget; SubmitAttempts records
	// the lifetime total and caps what the automatic sweep picks up.
	for attempt := 0; attempt < s.policy.MaxAttempts; attempt++ {
		if err := s.financingRepo.IncrementSubmitAttempts(ctx, req.ID); err != nil {
			return err
		}

		ack, err := s.lenderClient.Submit(ctx, sub)
		if err == nil {
			return s.applyAcknowledgement(ctx, req, ack)
		}

		var rejection *lender.RejectionError
		switch {
		case errors.As(err, &rejection):
			_, terr := s.transition(ctx, req, domain.EventLenderReject, map[string]interface{}{
				"lender_notes": rejection.Reason,
			}, rejection.Reason, 0, "")
			return terr
		case errors.Is(err, lender.ErrInvalidPayload):
			// Programmer error: surfaced, never retried, request stays pending.
			log.Printf("❌ Lender refused payload for request %d: %v", req.ID, err)
			return err
		case errors.Is(err, lender.ErrUnavailable):
			log.Printf("⚠️ Lender unavailable for request %d (attempt %d/%d): %v",
				req.ID, attempt+1, s.policy.MaxAttempts, err)
			if attempt+1 < s.policy.MaxAttempts {
				select {
				case <-time.After(s.policy.RetryBackoff * time.Duration(attempt+1)):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		default:
			return err
		}
	}

	return ErrLenderRetryExhausted
}

func (s *FinancingService) applyAcknowledgement(ctx context.Context, req *models.FinancingRequest, ack *lender.Acknowledgement) error {
	switch ack.Decision {
	case lender.DecisionApproved:
		if ack.LenderReferenceID == "" {
			return ErrMissingLenderReference
		}
		_, err := s.transition(ctx, req, domain.EventLenderApprove, map[string]interface{}{
			"lender_reference_id": ack.LenderReferenceID,
		}, "", 0, "")
		return err
	case lender.DecisionPending:
		// Final answer arrives on the webhook; park the reference if given.
		if ack.LenderReferenceID != "" {
			return s.financingRepo.Transition(ctx, req.ID,
				domain.StatusLenderPending, domain.StatusLenderPending,
				map[string]interface{}{"lender_reference_id": ack.LenderReferenceID})
		}
		return nil
	default:
		return lender.ErrInvalidPayload
	}
}

// ApplyLenderDecision handles the provider webhook callback
func (s *FinancingService) ApplyLenderDecision(ctx context.Context, requestNo, lenderReferenceID, decision, reason string) (*models.FinancingRequest, error) {
	req, err := s.financingRepo.GetByRequestNo(ctx, requestNo)
	if err != nil {
		return nil, domain.ErrRequestNotFound
	}

	switch decision {
	case lender.DecisionApproved:
		if lenderReferenceID == "" && req.LenderReferenceID == nil {
			return nil, ErrMissingLenderReference
		}
		updates := map[string]interface{}{}
		if lenderReferenceID != "" {
			updates["lender_reference_id"] = lenderReferenceID
		}
		return s.transition(ctx, req, domain.EventLenderApprove, updates, reason, 0, "")
	case lender.DecisionRejected:
		return s.transition(ctx, req, domain.EventLenderReject, map[string]interface{}{
			"lender_notes": reason,
		}, reason, 0, "")
	default:
		return nil, domain.ErrInvalidInput
	}
}
