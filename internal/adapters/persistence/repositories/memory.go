package repositories

import (
	"context"
	"sync"
	"time"

	"clinicpay/internal/adapters/persistence/models"
	"clinicpay/internal/core/domain"

	"gorm.io/gorm"
)

// In-memory implementations used by tests and local development without
// a database. Transition semantics match the SQL implementation: the
// status check and the write happen under one lock.

// FinancingRepositoryMemory is an in-memory FinancingRepository
type FinancingRepositoryMemory struct {
	mu     sync.Mutex
	nextID uint
	data   map[uint]*models.FinancingRequest
}

// NewFinancingRepositoryMemory creates a new in-memory financing repository
func NewFinancingRepositoryMemory() *FinancingRepositoryMemory {
	return &FinancingRepositoryMemory{
		nextID: 1,
		data:   make(map[uint]*models.FinancingRequest),
	}
}

func (r *FinancingRepositoryMemory) Create(ctx context.Context, req *models.FinancingRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	req.ID = r.nextID
	r.nextID++
	now := time.Now()
	req.CreatedAt = now
	req.UpdatedAt = now
	clone := *req
	r.data[req.ID] = &clone
	return nil
}

func (r *FinancingRepositoryMemory) GetByID(ctx context.Context, id uint) (*models.FinancingRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.data[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *req
	return &clone, nil
}

func (r *FinancingRepositoryMemory) GetByRequestNo(ctx context.Context, requestNo string) (*models.FinancingRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, req := range r.data {
		if req.RequestNo == requestNo {
			clone := *req
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *FinancingRepositoryMemory) ListByPatient(ctx context.Context, patientID uint) ([]*models.FinancingRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.FinancingRequest
	for _, req := range r.data {
		if req.PatientID == patientID {
			clone := *req
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *FinancingRepositoryMemory) ListByClinic(ctx context.Context, clinicID uint, offset, limit int) ([]*models.FinancingRequest, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.FinancingRequest
	for _, req := range r.data {
		if req.ClinicID == clinicID {
			clone := *req
			out = append(out, &clone)
		}
	}
	return paginate(out, offset, limit), int64(len(out)), nil
}

func (r *FinancingRepositoryMemory) ListByStatus(ctx context.Context, status domain.FinancingStatus, offset, limit int) ([]*models.FinancingRequest, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.FinancingRequest
	for _, req := range r.data {
		if req.Status == string(status) {
			clone := *req
			out = append(out, &clone)
		}
	}
	return paginate(out, offset, limit), int64(len(out)), nil
}

func (r *FinancingRepositoryMemory) ListStalePending(ctx context.Context, olderThan time.Time, maxAttempts int) ([]*models.FinancingRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.FinancingRequest
	for _, req := range r.data {
		if req.Status == string(domain.StatusLenderPending) &&
			req.UpdatedAt.Before(olderThan) &&
			req.SubmitAttempts < maxAttempts {
			clone := *req
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *FinancingRepositoryMemory) ExistsActiveForAppointment(ctx context.Context, appointmentID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, req := range r.data {
		if req.AppointmentID != appointmentID {
			continue
		}
		switch domain.FinancingStatus(req.Status) {
		case domain.StatusClinicRejected, domain.StatusLenderRejected:
		default:
			return true, nil
		}
	}
	return false, nil
}

func (r *FinancingRepositoryMemory) Transition(ctx context.Context, id uint, from, to domain.FinancingStatus, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.data[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if req.Status != string(from) {
		return domain.ErrConflict
	}
	req.Status = string(to)
	req.UpdatedAt = time.Now()
	applyFinancingUpdates(req, updates)
	return nil
}

func (r *FinancingRepositoryMemory) IncrementSubmitAttempts(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.data[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	req.SubmitAttempts++
	return nil
}

// applyFinancingUpdates mirrors the column names the SQL path uses
func applyFinancingUpdates(req *models.FinancingRequest, updates map[string]interface{}) {
	for col, val := range updates {
		switch col {
		case "clinic_approval_at":
			if t, ok := val.(time.Time); ok {
				req.ClinicApprovalAt = &t
			}
		case "clinic_notes":
			if s, ok := val.(string); ok {
				req.ClinicNotes = s
			}
		case "admin_decision_at":
			if t, ok := val.(time.Time); ok {
				req.AdminDecisionAt = &t
			}
		case "lender_reference_id":
			if s, ok := val.(string); ok {
				req.LenderReferenceID = &s
			}
		case "lender_notes":
			if s, ok := val.(string); ok {
				req.LenderNotes = s
			}
		}
	}
}

func paginate(reqs []*models.FinancingRequest, offset, limit int) []*models.FinancingRequest {
	if offset >= len(reqs) {
		return nil
	}
	end := len(reqs)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return reqs[offset:end]
}

// FinancingEventRepositoryMemory is an in-memory FinancingEventRepository
type FinancingEventRepositoryMemory struct {
	mu     sync.Mutex
	nextID uint
	events []*models.FinancingEvent
}

// NewFinancingEventRepositoryMemory creates a new in-memory event repository
func NewFinancingEventRepositoryMemory() *FinancingEventRepositoryMemory {
	return &FinancingEventRepositoryMemory{nextID: 1}
}

func (r *FinancingEventRepositoryMemory) Create(ctx context.Context, event *models.FinancingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	event.ID = r.nextID
	r.nextID++
	event.CreatedAt = time.Now()
	clone := *event
	r.events = append(r.events, &clone)
	return nil
}

func (r *FinancingEventRepositoryMemory) ListByRequest(ctx context.Context, requestID uint) ([]*models.FinancingEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.FinancingEvent
	for _, ev := range r.events {
		if ev.RequestID == requestID {
			clone := *ev
			out = append(out, &clone)
		}
	}
	return out, nil
}

// AppointmentRepositoryMemory is an in-memory AppointmentRepository
type AppointmentRepositoryMemory struct {
	mu     sync.Mutex
	nextID uint
	data   map[uint]*models.Appointment
}

// NewAppointmentRepositoryMemory creates a new in-memory appointment repository
func NewAppointmentRepositoryMemory() *AppointmentRepositoryMemory {
	return &AppointmentRepositoryMemory{
		nextID: 1,
		data:   make(map[uint]*models.Appointment),
	}
}

func (r *AppointmentRepositoryMemory) Create(ctx context.Context, appt *models.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	appt.ID = r.nextID
	r.nextID++
	clone := *appt
	r.data[appt.ID] = &clone
	return nil
}

func (r *AppointmentRepositoryMemory) GetByID(ctx context.Context, id uint) (*models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	appt, ok := r.data[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *appt
	return &clone, nil
}

func (r *AppointmentRepositoryMemory) ListByPatient(ctx context.Context, patientID uint) ([]*models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Appointment
	for _, appt := range r.data {
		if appt.PatientID == patientID {
			clone := *appt
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *AppointmentRepositoryMemory) ListByClinic(ctx context.Context, clinicID uint, offset, limit int) ([]*models.Appointment, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Appointment
	for _, appt := range r.data {
		if appt.ClinicID == clinicID {
			clone := *appt
			out = append(out, &clone)
		}
	}
	return out, int64(len(out)), nil
}

func (r *AppointmentRepositoryMemory) Update(ctx context.Context, appt *models.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[appt.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	clone := *appt
	r.data[appt.ID] = &clone
	return nil
}

// PlanTierRepositoryMemory is an in-memory PlanTierRepository
type PlanTierRepositoryMemory struct {
	mu     sync.Mutex
	nextID uint
	tiers  []*models.PlanTier
}

// NewPlanTierRepositoryMemory creates a new in-memory plan tier repository
func NewPlanTierRepositoryMemory(tiers ...*models.PlanTier) *PlanTierRepositoryMemory {
	r := &PlanTierRepositoryMemory{nextID: 1}
	for _, t := range tiers {
		r.Create(context.Background(), t)
	}
	return r
}

func (r *PlanTierRepositoryMemory) Create(ctx context.Context, tier *models.PlanTier) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tier.ID = r.nextID
	r.nextID++
	clone := *tier
	r.tiers = append(r.tiers, &clone)
	return nil
}

func (r *PlanTierRepositoryMemory) GetByTermCount(ctx context.Context, termCount int) (*models.PlanTier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tiers {
		if t.TermCount == termCount {
			clone := *t
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *PlanTierRepositoryMemory) ListActive(ctx context.Context) ([]*models.PlanTier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.PlanTier
	for _, t := range r.tiers {
		if t.IsActive {
			clone := *t
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *PlanTierRepositoryMemory) Update(ctx context.Context, tier *models.PlanTier) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, t := range r.tiers {
		if t.ID == tier.ID {
			clone := *tier
			r.tiers[i] = &clone
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}
