package repositories

import (
	"context"
	"time"

	"clinicpay/internal/adapters/persistence/models"
	"clinicpay/internal/core/domain"

	"gorm.io/gorm"
)

// financingRepository handles financing request data access
type financingRepository struct {
	db *gorm.DB
}

// NewFinancingRepository creates a new financing repository
func NewFinancingRepository(db *gorm.DB) FinancingRepository {
	return &financingRepository{db: db}
}

// Create creates a new financing request
func (r *financingRepository) Create(ctx context.Context, req *models.FinancingRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

// GetByID gets a financing request with relations
func (r *financingRepository) GetByID(ctx context.Context, id uint) (*models.FinancingRequest, error) {
	var req models.FinancingRequest
	err := r.db.WithContext(ctx).
		Preload("Clinic").
		Preload("Appointment").
		First(&req, id).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// GetByRequestNo gets a financing request by its public reference
func (r *financingRepository) GetByRequestNo(ctx context.Context, requestNo string) (*models.FinancingRequest, error) {
	var req models.FinancingRequest
	err := r.db.WithContext(ctx).
		Where("request_no = ?", requestNo).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// ListByPatient lists a patient's financing requests, newest first
func (r *financingRepository) ListByPatient(ctx context.Context, patientID uint) ([]*models.FinancingRequest, error) {
	var reqs []*models.FinancingRequest
	err := r.db.WithContext(ctx).
		Preload("Clinic").
		Where("patient_id = ?", patientID).
		Order("created_at DESC").
		Find(&reqs).Error
	return reqs, err
}

// ListByClinic lists a clinic's financing requests with pagination
func (r *financingRepository) ListByClinic(ctx context.Context, clinicID uint, offset, limit int) ([]*models.FinancingRequest, int64, error) {
	var reqs []*models.FinancingRequest
	var total int64

	r.db.WithContext(ctx).Model(&models.FinancingRequest{}).
		Where("clinic_id = ?", clinicID).Count(&total)

	err := r.db.WithContext(ctx).
		Preload("Appointment").
		Where("clinic_id = ?", clinicID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&reqs).Error
	return reqs, total, err
}

// ListByStatus lists financing requests in a given status with pagination
func (r *financingRepository) ListByStatus(ctx context.Context, status domain.FinancingStatus, offset, limit int) ([]*models.FinancingRequest, int64, error) {
	var reqs []*models.FinancingRequest
	var total int64

	r.db.WithContext(ctx).Model(&models.FinancingRequest{}).
		Where("status = ?", string(status)).Count(&total)

	err := r.db.WithContext(ctx).
		Preload("Clinic").
		Where("status = ?", string(status)).
		Order("created_at ASC").
		Offset(offset).Limit(limit).
		Find(&reqs).Error
	return reqs, total, err
}

// ListStalePending lists LENDER_PENDING requests that have not been
// touched since olderThan and still have retry budget left
func (r *financingRepository) ListStalePending(ctx context.Context, olderThan time.Time, maxAttempts int) ([]*models.FinancingRequest, error) {
	var reqs []*models.FinancingRequest
	err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ? AND submit_attempts < ?",
			string(domain.StatusLenderPending), olderThan, maxAttempts).
		Order("updated_at ASC").
		Find(&reqs).Error
	return reqs, err
}

// ExistsActiveForAppointment reports whether the appointment already has
// financing that is not rejected
func (r *financingRepository) ExistsActiveForAppointment(ctx context.Context, appointmentID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.FinancingRequest{}).
		Where("appointment_id = ? AND status NOT IN ?", appointmentID,
			[]string{string(domain.StatusClinicRejected), string(domain.StatusLenderRejected)}).
		Count(&count).Error
	return count > 0, err
}

// Transition applies updates only while the row still holds from.
// The conditional UPDATE is the serialization point: of two racing
// transitions exactly one matches the WHERE clause.
func (r *financingRepository) Transition(ctx context.Context, id uint, from, to domain.FinancingStatus, updates map[string]interface{}) error {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = string(to)

	res := r.db.WithContext(ctx).Model(&models.FinancingRequest{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

// IncrementSubmitAttempts bumps the lender submission attempt counter
func (r *financingRepository) IncrementSubmitAttempts(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.FinancingRequest{}).
		Where("id = ?", id).
		Update("submit_attempts", gorm.Expr("submit_attempts + 1")).Error
}

// financingEventRepository handles the transition audit trail
type financingEventRepository struct {
	db *gorm.DB
}

// NewFinancingEventRepository creates a new financing event repository
func NewFinancingEventRepository(db *gorm.DB) FinancingEventRepository {
	return &financingEventRepository{db: db}
}

// Create records a transition
func (r *financingEventRepository) Create(ctx context.Context, event *models.FinancingEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// ListByRequest lists a request's history, oldest first
func (r *financingEventRepository) ListByRequest(ctx context.Context, requestID uint) ([]*models.FinancingEvent, error) {
	var events []*models.FinancingEvent
	err := r.db.WithContext(ctx).
		Preload("Performer").
		Where("request_id = ?", requestID).
		Order("created_at ASC").
		Find(&events).Error
	return events, err
}
