package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"clinicpay/internal/adapters/lender"
	"clinicpay/internal/adapters/persistence/models"
	"clinicpay/internal/adapters/persistence/repositories"
	"clinicpay/internal/core/domain"
)

// lenderStub is a scriptable LenderClient
type lenderStub struct {
	mu    sync.Mutex
	calls int
	fn    func(sub *lender.Submission) (*lender.Acknowledgement, error)
}

func (l *lenderStub) Submit(ctx context.Context, sub *lender.Submission) (*lender.Acknowledgement, error) {
	l.mu.Lock()
	l.calls++
	fn := l.fn
	l.mu.Unlock()
	if fn == nil {
		return &lender.Acknowledgement{Decision: lender.DecisionPending}, nil
	}
	return fn(sub)
}

func (l *lenderStub) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

// notifierStub records status change notifications
type notifierStub struct {
	mu      sync.Mutex
	changes []domain.StatusChange
}

func (n *notifierStub) NotifyStatusChange(change domain.StatusChange) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, change)
}

type testEnv struct {
	financingRepo *repositories.FinancingRepositoryMemory
	eventRepo     *repositories.FinancingEventRepositoryMemory
	apptRepo      *repositories.AppointmentRepositoryMemory
	lender        *lenderStub
	notifier      *notifierStub
	svc           *FinancingService
	patient       *PatientGateway
	clinic        *ClinicGateway
	admin         *AdminGateway
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	financingRepo := repositories.NewFinancingRepositoryMemory()
	eventRepo := repositories.NewFinancingEventRepositoryMemory()
	apptRepo := repositories.NewAppointmentRepositoryMemory()
	tierRepo := repositories.NewPlanTierRepositoryMemory(
		&models.PlanTier{TermCount: 1, Multiplier: 1.00, IsActive: true},
		&models.PlanTier{TermCount: 3, Multiplier: 1.00, IsActive: true},
		&models.PlanTier{TermCount: 6, Multiplier: 1.00, IsActive: true},
		&models.PlanTier{TermCount: 12, Multiplier: 1.10, IsActive: true},
	)

	lenderClient := &lenderStub{}
	notifier := &notifierStub{}

	policy := FinancingPolicy{
		MaxAmountFactor: 2.0,
		MaxAttempts:     3,
		RetryBackoff:    time.Millisecond,
		SyncSubmit:      true,
	}

	svc := NewFinancingService(financingRepo, eventRepo, apptRepo, tierRepo, lenderClient, notifier, policy)

	return &testEnv{
		financingRepo: financingRepo,
		eventRepo:     eventRepo,
		apptRepo:      apptRepo,
		lender:        lenderClient,
		notifier:      notifier,
		svc:           svc,
		patient:       NewPatientGateway(svc),
		clinic:        NewClinicGateway(svc),
		admin:         NewAdminGateway(svc),
	}
}

var (
	patientActor = domain.Actor{UserID: 1, Role: domain.RolePatient}
	clinicActor  = domain.Actor{UserID: 2, Role: domain.RoleClinic, ClinicID: 10}
	adminActor   = domain.Actor{UserID: 3, Role: domain.RoleAdmin}
)

// bookAppointment seeds an appointment for patient 1 at clinic 10
func (e *testEnv) bookAppointment(t *testing.T, price float64) *models.Appointment {
	t.Helper()
	appt := &models.Appointment{
		PatientID:   1,
		ClinicID:    10,
		Procedure:   "Dental implant",
		Price:       price,
		ScheduledAt: time.Now().Add(48 * time.Hour),
		Status:      models.ApptStatusScheduled,
	}
	if err := e.apptRepo.Create(context.Background(), appt); err != nil {
		t.Fatalf("seed appointment: %v", err)
	}
	return appt
}

// submitRequest walks a request into PATIENT_REQUESTED
func (e *testEnv) submitRequest(t *testing.T, appt *models.Appointment, amount float64, installments int) *models.FinancingRequest {
	t.Helper()
	req, err := e.patient.Submit(context.Background(), patientActor, &SubmitRequestInput{
		AppointmentID: appt.ID,
		Amount:        amount,
		Installments:  installments,
	}, "127.0.0.1")
	if err != nil {
		t.Fatalf("submit request: %v", err)
	}
	return req
}

func TestPatientSubmit(t *testing.T) {
	env := newTestEnv(t)
	appt := env.bookAppointment(t, 600)

	req := env.submitRequest(t, appt, 1200, 12)

	if req.FinancingStatus() != domain.StatusPatientRequested {
		t.Errorf("status = %s, want %s", req.Status, domain.StatusPatientRequested)
	}
	if req.RequestNo == "" {
		t.Error("request number not assigned")
	}

	mine, err := env.patient.ListMine(context.Background(), patientActor)
	if err != nil {
		t.Fatalf("ListMine() error = %v", err)
	}
	if len(mine) != 1 {
		t.Errorf("ListMine() returned %d requests, want 1", len(mine))
	}
}

func TestPatientSubmitAmountCap(t *testing.T) {
	env := newTestEnv(t)
	appt := env.bookAppointment(t, 600)

	// Twice the procedure price is the ceiling: 1200 passes, above fails.
	_, err := env.patient.Submit(context.Background(), patientActor, &SubmitRequestInput{
		AppointmentID: appt.ID,
		Amount:        1250,
		Installments:  12,
	}, "")
	if !errors.Is(err, domain.ErrInvalidAmount) {
		t.Errorf("Submit(1250) error = %v, want ErrInvalidAmount", err)
	}

	if _, err := env.patient.Submit(context.Background(), patientActor, &SubmitRequestInput{
		AppointmentID: appt.ID,
		Amount:        1200,
		Installments:  12,
	}, ""); err != nil {
		t.Errorf("Submit(1200) error = %v, want nil", err)
	}
}

func TestPatientSubmitValidation(t *testing.T) {
	env := newTestEnv(t)
	appt := env.bookAppointment(t, 600)

	cases := []struct {
		name  string
		input SubmitRequestInput
		want  error
	}{
		{"zero amount", SubmitRequestInput{AppointmentID: appt.ID, Amount: 0, Installments: 3}, domain.ErrInvalidAmount},
		{"negative amount", SubmitRequestInput{AppointmentID: appt.ID, Amount: -10, Installments: 3}, domain.ErrInvalidAmount},
		{"zero installments", SubmitRequestInput{AppointmentID: appt.ID, Amount: 500, Installments: 0}, domain.ErrInvalidInput},
		{"unknown appointment", SubmitRequestInput{AppointmentID: 999, Amount: 500, Installments: 3}, ErrAppointmentNotFound},
		{"term not offered", SubmitRequestInput{AppointmentID: appt.ID, Amount: 500, Installments: 5}, ErrTermNotOffered},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.patient.Submit(context.Background(), patientActor, &tc.input, "")
			if !errors.Is(err, tc.want) {
				t.Errorf("Submit() error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestPatientSubmitDuplicate(t *testing.T) {
	env := newTestEnv(t)
	appt := env.bookAppointment(t, 600)
	env.submitRequest(t, appt, 500, 3)

	_, err := env.patient.Submit(context.Background(), patientActor, &SubmitRequestInput{
		AppointmentID: appt.ID,
		Amount:        500,
		Installments:  3,
	}, "")
	if !errors.Is(err, domain.ErrDuplicateRequest) {
		t.Errorf("second Submit() error = %v, want ErrDuplicateRequest", err)
	}
}

func TestSubmitRoleChecks(t *testing.T) {
	env := newTestEnv(t)
	appt := env.bookAppointment(t, 600)

	input := &SubmitRequestInput{AppointmentID: appt.ID, Amount: 500, Installments: 3}

	if _, err := env.patient.Submit(context.Background(), clinicActor, input, ""); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("clinic actor Submit() error = %v, want ErrForbidden", err)
	}

	// Another patient must not finance someone else's appointment.
	other := domain.Actor{UserID: 99, Role: domain.RolePatient}
	if _, err := env.patient.Submit(context.Background(), other, input, ""); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("other patient Submit() error = %v, want ErrForbidden", err)
	}
}

func TestClinicApprove(t *testing.T) {
	env := newTestEnv(t)
	appt := env.bookAppointment(t, 600)
	req := env.submitRequest(t, appt, 500, 3)

	approved, err := env.clinic.Approve(context.Background(), clinicActor, req.ID, "verified in person", "10.0.0.1")
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if approved.FinancingStatus() != domain.StatusClinicApproved {
		t.Errorf("status = %s, want %s", approved.Status, domain.StatusClinicApproved)
	}
	if approved.ClinicApprovalAt == nil {
		t.Error("ClinicApprovalAt not set")
	}
	if approved.ClinicNotes != "verified in person" {
		t.Errorf("ClinicNotes = %q", approved.ClinicNotes)
	}
}

func TestClinicOwnership(t *testing.T) {
	env := newTestEnv(t)
	appt := env.bookAppointment(t, 600)
	req := env.submitRequest(t, appt, 500, 3)

	otherClinic := domain.Actor{UserID: 5, Role: domain.RoleClinic, ClinicID: 77}
	if _, err := env.clinic.Approve(context.Background(), otherClinic, req.ID, "", ""); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("foreign clinic Approve() error = %v, want ErrForbidden", err)
	}
	if _, err := env.clinic.Reject(context.Background(), otherClinic, req.ID, "", ""); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("foreign clinic Reject() error = %v, want ErrForbidden", err)
	}
}

func TestRejectedRequestStaysRejected(t *testing.T) {
	env := newTestEnv(t)
	appt := env.bookAppointment(t, 600)
	req := env.submitRequest(t, appt, 500, 3)

	rejected, err := env.clinic.Reject(context.Background(), clinicActor, req.ID, "incomplete records", "")
	if err != nil {
		t.Fatalf("Reject() error = %v", err)
	}
	if rejected.FinancingStatus() != domain.StatusClinicRejected {
		t.Fatalf("status = %s, want %s", rejected.Status, domain.StatusClinicRejected)
	}

	// A later approval of the same request must not resurrect it.
	_, err = env.clinic.Approve(context.Background(), clinicActor, req.ID, "", "")
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("Approve() after Reject() error = %v, want ErrInvalidTransition", err)
	}
}

func TestAdminForwardApproved(t *testing.T) {
	env := newTestEnv(t)
	appt := env.bookAppointment(t, 600)
	req := env.submitRequest(t, appt, 500, 3)
	if _, err := env.clinic.Approve(context.Background(), clinicActor, req.ID, "", ""); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}

	env.lender.fn = func(sub *lender.Submission) (*lender.Acknowledgement, error) {
		return &lender.Acknowledgement{
			LenderReferenceID: "LND-001",
			Decision:          lender.DecisionApproved,
		}, nil
	}

	result, err := env.admin.Forward(context.Background(), adminActor, req.ID, "")
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	if result.FinancingStatus() != domain.StatusLenderApproved {
		t.Errorf("status = %s, want %s", result.Status, domain.StatusLenderApproved)
	}
	if result.LenderReferenceID == nil || *result.LenderReferenceID != "LND-001" {
		t.Errorf("LenderReferenceID = %v, want LND-001", result.LenderReferenceID)
	}
	if result.AdminDecisionAt == nil {
		t.Error("AdminDecisionAt not set")
	}
}

func TestAdminForwardRejected(t *testing.T) {
	env := newTestEnv(t)
	appt := env.bookAppointment(t, 600)
	req := env.submitRequest(t, appt, 500, 3)
	if _, err := env.clinic.Approve(context.Background(), clinicActor, req.ID, "", ""); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}

	env.lender.fn = func(sub *lender.Submission) (*lender.Acknowledgement, error) {
		return nil, &lender.RejectionError{Reason: "score too low"}
	}

	result, err := env.admin.Forward(context.Background(), adminActor, req.ID, "")
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	if result.FinancingStatus() != domain.StatusLenderRejected {
		t.Errorf("status = %s, want %s", result.Status, domain.StatusLenderRejected)
	}
	if result.LenderNotes != "score too low" {
		t.Errorf("LenderNotes = %q, want %q", result.LenderNotes, "score too low")
	}
}

func TestForwardOnlyFromClinicApproved(t *testing.T) {
	env := newTestEnv(t)
	appt := env.bookAppointment(t, 600)
	req := env.submitRequest(t, appt, 500, 3)

	_, err := env.admin.Forward(context.Background(), adminActor, req.ID, "")
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("Forward() from PATIENT_REQUESTED error = %v, want ErrInvalidTransition", err)
	}

	if _, err := env.admin.Forward(context.Background(), clinicActor, req.ID, ""); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("clinic actor Forward() error = %v, want ErrForbidden", err)
	}
}

func TestConcurrentForwardSingleWinner(t *testing.T) {
	env := newTestEnv(t)
	appt := env.bookAppointment(t, 600)
	req := env.submitRequest(t, appt, 500, 3)
	if _, err := env.clinic.Approve(context.Background(), clinicActor, req.ID, "", ""); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}

	// Lender acknowledges pending so the request stays LENDER_PENDING.
	env.lender.fn = func(sub *lender.Submission) (*lender.Acknowledgement, error) {
		return &lender.Acknowledgement{Decision: lender.DecisionPending}, nil
	}

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.admin.Forward(context.Background(), adminActor, req.ID, "")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var wins, losses int
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrInvalidTransition):
			losses++
		default:
			t.Errorf("unexpected Forward() error: %v", err)
		}
	}
	if wins != 1 || losses != 1 {
		t.Errorf("wins = %d, losses = %d, want exactly one of each", wins, losses)
	}

	final, err := env.financingRepo.GetByID(context.Background(), req.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if final.FinancingStatus() != domain.StatusLenderPending {
		t.Errorf("final status = %s, want %s", final.Status, domain.StatusLenderPending)
	}
	if env.lender.callCount() != 1 {
		t.Errorf("lender called %d times, want 1", env.lender.callCount())
	}
}

func TestLenderUnavailableKeepsPending(t *testing.T) {
	env := newTestEnv(t)
	appt := env.bookAppointment(t, 600)
	req := env.submitRequest(t, appt, 500, 3)
	if _, err := env.clinic.Approve(context.Background(), clinicActor, req.ID, "", ""); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}

	env.lender.fn = func(sub *lender.Submission) (*lender.Acknowledgement, error) {
		return nil, lender.ErrUnavailable
	}

	// Forward swallows the submission failure and returns the parked request.
	result, err := env.admin.Forward(context.Background(), adminActor, req.ID, "")
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	if result.FinancingStatus() != domain.StatusLenderPending {
		t.Errorf("status = %s, want %s", result.Status, domain.StatusLenderPending)
	}
	if result.SubmitAttempts != 3 {
		t.Errorf("SubmitAttempts = %d, want 3", result.SubmitAttempts)
	}

	// A manual retry gets a fresh budget and surfaces the exhaustion.
	err = env.admin.Retry(context.Background(), adminActor, req.ID)
	if !errors.Is(err, ErrLenderRetryExhausted) {
		t.Errorf("Retry() error = %v, want ErrLenderRetryExhausted", err)
	}

	final, _ := env.financingRepo.GetByID(context.Background(), req.ID)
	if final.FinancingStatus() != domain.StatusLenderPending {
		t.Errorf("final status = %s, want %s", final.Status, domain.StatusLenderPending)
	}
	if final.SubmitAttempts != 6 {
		t.Errorf("SubmitAttempts = %d, want 6", final.SubmitAttempts)
	}
}

func TestApplyLenderDecision(t *testing.T) {
	env := newTestEnv(t)
	appt := env.bookAppointment(t, 600)
	req := env.submitRequest(t, appt, 500, 3)
	if _, err := env.clinic.Approve(context.Background(), clinicActor, req.ID, "", ""); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if _, err := env.admin.Forward(context.Background(), adminActor, req.ID, ""); err != nil {
		t.Fatalf("Forward() error = %v", err)
	}

	// Approval must carry the provider's reference.
	_, err := env.svc.ApplyLenderDecision(context.Background(), req.RequestNo, "", "approved", "")
	if !errors.Is(err, ErrMissingLenderReference) {
		t.Errorf("ApplyLenderDecision() without reference error = %v, want ErrMissingLenderReference", err)
	}

	_, err = env.svc.ApplyLenderDecision(context.Background(), req.RequestNo, "LND-002", "financed", "")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("ApplyLenderDecision() with unknown decision error = %v, want ErrInvalidInput", err)
	}

	_, err = env.svc.ApplyLenderDecision(context.Background(), "no-such-request", "LND-002", "approved", "")
	if !errors.Is(err, domain.ErrRequestNotFound) {
		t.Errorf("ApplyLenderDecision() for unknown request error = %v, want ErrRequestNotFound", err)
	}

	result, err := env.svc.ApplyLenderDecision(context.Background(), req.RequestNo, "LND-002", "approved", "")
	if err != nil {
		t.Fatalf("ApplyLenderDecision() error = %v", err)
	}
	if result.FinancingStatus() != domain.StatusLenderApproved {
		t.Errorf("status = %s, want %s", result.Status, domain.StatusLenderApproved)
	}
	if result.LenderReferenceID == nil || *result.LenderReferenceID != "LND-002" {
		t.Errorf("LenderReferenceID = %v, want LND-002", result.LenderReferenceID)
	}

	// The decision is terminal; a second callback loses.
	_, err = env.svc.ApplyLenderDecision(context.Background(), req.RequestNo, "LND-002", "rejected", "changed our mind")
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("second decision error = %v, want ErrInvalidTransition", err)
	}
}

func TestHistoryRecordsTrail(t *testing.T) {
	env := newTestEnv(t)
	appt := env.bookAppointment(t, 600)
	req := env.submitRequest(t, appt, 500, 3)
	if _, err := env.clinic.Approve(context.Background(), clinicActor, req.ID, "ok", ""); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if _, err := env.admin.Forward(context.Background(), adminActor, req.ID, ""); err != nil {
		t.Fatalf("Forward() error = %v", err)
	}

	events, err := env.svc.History(context.Background(), adminActor, req.ID)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(events) < 3 {
		t.Fatalf("History() returned %d events, want at least 3", len(events))
	}
	if events[0].Event != "SUBMIT" {
		t.Errorf("first event = %s, want SUBMIT", events[0].Event)
	}
	if events[1].Event != string(domain.EventClinicApprove) {
		t.Errorf("second event = %s, want %s", events[1].Event, domain.EventClinicApprove)
	}

	// Patients see only their own trail.
	stranger := domain.Actor{UserID: 42, Role: domain.RolePatient}
	if _, err := env.svc.History(context.Background(), stranger, req.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("History() as stranger error = %v, want ErrForbidden", err)
	}
}

func TestNotificationsFire(t *testing.T) {
	env := newTestEnv(t)
	appt := env.bookAppointment(t, 600)
	req := env.submitRequest(t, appt, 500, 3)
	if _, err := env.clinic.Approve(context.Background(), clinicActor, req.ID, "", ""); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}

	env.notifier.mu.Lock()
	defer env.notifier.mu.Unlock()
	if len(env.notifier.changes) != 2 {
		t.Fatalf("got %d notifications, want 2", len(env.notifier.changes))
	}
	last := env.notifier.changes[1]
	if last.PreviousStatus != domain.StatusPatientRequested || last.NewStatus != domain.StatusClinicApproved {
		t.Errorf("notification %s -> %s, want %s -> %s",
			last.PreviousStatus, last.NewStatus,
			domain.StatusPatientRequested, domain.StatusClinicApproved)
	}
}
