package repositories

import (
	"context"

	"clinicpay/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// appointmentRepository handles appointment data access
type appointmentRepository struct {
	db *gorm.DB
}

// NewAppointmentRepository creates a new appointment repository
func NewAppointmentRepository(db *gorm.DB) AppointmentRepository {
	return &appointmentRepository{db: db}
}

// Create creates a new appointment
func (r *appointmentRepository) Create(ctx context.Context, appt *models.Appointment) error {
	return r.db.WithContext(ctx).Create(appt).Error
}

// GetByID gets an appointment with its clinic
func (r *appointmentRepository) GetByID(ctx context.Context, id uint) (*models.Appointment, error) {
	var appt models.Appointment
	err := r.db.WithContext(ctx).
		Preload("Clinic").
		First(&appt, id).Error
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

// ListByPatient lists a patient's appointments, newest first
func (r *appointmentRepository) ListByPatient(ctx context.Context, patientID uint) ([]*models.Appointment, error) {
	var appts []*models.Appointment
	err := r.db.WithContext(ctx).
		Preload("Clinic").
		Where("patient_id = ?", patientID).
		Order("scheduled_at DESC").
		Find(&appts).Error
	return appts, err
}

// ListByClinic lists a clinic's appointments with pagination
func (r *appointmentRepository) ListByClinic(ctx context.Context, clinicID uint, offset, limit int) ([]*models.Appointment, int64, error) {
	var appts []*models.Appointment
	var total int64

	r.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("clinic_id = ?", clinicID).Count(&total)

	err := r.db.WithContext(ctx).
		Where("clinic_id = ?", clinicID).
		Order("scheduled_at DESC").
		Offset(offset).Limit(limit).
		Find(&appts).Error
	return appts, total, err
}

// Update updates an appointment
func (r *appointmentRepository) Update(ctx context.Context, appt *models.Appointment) error {
	return r.db.WithContext(ctx).Save(appt).Error
}
