package services

import (
	"context"
	"errors"
	"time"

	"clinicpay/internal/adapters/persistence/models"
	"clinicpay/internal/adapters/persistence/repositories"
	"clinicpay/internal/core/domain"
)

// Appointment service errors
var (
	ErrClinicNotFound     = errors.New("clinic not found")
	ErrClinicInactive     = errors.New("clinic is not accepting bookings")
	ErrInvalidSchedule    = errors.New("scheduled time must be in the future")
	ErrApptNotFound       = errors.New("appointment not found")
	ErrApptNotCancellable = errors.New("appointment can no longer be cancelled")
)

// AppointmentService handles booking business logic. Financing reads
// appointments through the repository; this service owns their writes.
type AppointmentService struct {
	appointmentRepo repositories.AppointmentRepository
	clinicRepo      repositories.ClinicRepository
}

// NewAppointmentService creates a new appointment service
func NewAppointmentService(
	appointmentRepo repositories.AppointmentRepository,
	clinicRepo repositories.ClinicRepository,
) *AppointmentService {
	return &AppointmentService{
		appointmentRepo: appointmentRepo,
		clinicRepo:      clinicRepo,
	}
}

// BookInput represents booking input
type BookInput struct {
	ClinicID    uint      `json:"clinic_id" validate:"required"`
	Procedure   string    `json:"procedure" validate:"required"`
	Price       float64   `json:"price" validate:"required,gt=0"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
	Notes       string    `json:"notes,omitempty"`
}

// Book creates an appointment for the acting patient
func (s *AppointmentService) Book(ctx context.Context, actor domain.Actor, input *BookInput) (*models.Appointment, error) {
	if actor.Role != domain.RolePatient {
		return nil, domain.ErrForbidden
	}
	if input.Price <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if input.ScheduledAt.Before(time.Now()) {
		return nil, ErrInvalidSchedule
	}

	clinic, err := s.clinicRepo.GetByID(ctx, input.ClinicID)
	if err != nil {
		return nil, ErrClinicNotFound
	}
	if !clinic.IsActive {
		return nil, ErrClinicInactive
	}

	appt := &models.Appointment{
		PatientID:   actor.UserID,
		ClinicID:    clinic.ID,
		Procedure:   input.Procedure,
		Price:       input.Price,
		ScheduledAt: input.ScheduledAt,
		Status:      models.ApptStatusScheduled,
		Notes:       input.Notes,
	}

	if err := s.appointmentRepo.Create(ctx, appt); err != nil {
		return nil, err
	}
	return appt, nil
}

// GetByID gets an appointment, enforcing view access per role
func (s *AppointmentService) GetByID(ctx context.Context, actor domain.Actor, id uint) (*models.Appointment, error) {
	appt, err := s.appointmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrApptNotFound
	}

	switch actor.Role {
	case domain.RoleAdmin:
	case domain.RoleClinic:
		if appt.ClinicID != actor.ClinicID {
			return nil, domain.ErrForbidden
		}
	case domain.RolePatient:
		if appt.PatientID != actor.UserID {
			return nil, domain.ErrForbidden
		}
	default:
		return nil, domain.ErrForbidden
	}
	return appt, nil
}

// ListMine lists the acting patient's appointments
func (s *AppointmentService) ListMine(ctx context.Context, actor domain.Actor) ([]*models.Appointment, error) {
	if actor.Role != domain.RolePatient {
		return nil, domain.ErrForbidden
	}
	return s.appointmentRepo.ListByPatient(ctx, actor.UserID)
}

// ListForClinic lists the acting clinic's appointments
func (s *AppointmentService) ListForClinic(ctx context.Context, actor domain.Actor, offset, limit int) ([]*models.Appointment, int64, error) {
	if actor.Role != domain.RoleClinic {
		return nil, 0, domain.ErrForbidden
	}
	return s.appointmentRepo.ListByClinic(ctx, actor.ClinicID, offset, limit)
}

// Confirm marks a scheduled appointment as confirmed by its clinic
func (s *AppointmentService) Confirm(ctx context.Context, actor domain.Actor, id uint) (*models.Appointment, error) {
	if actor.Role != domain.RoleClinic {
		return nil, domain.ErrForbidden
	}

	appt, err := s.appointmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrApptNotFound
	}
	if appt.ClinicID != actor.ClinicID {
		return nil, domain.ErrForbidden
	}

	appt.Status = models.ApptStatusConfirmed
	if err := s.appointmentRepo.Update(ctx, appt); err != nil {
		return nil, err
	}
	return appt, nil
}

// Cancel cancels a scheduled appointment, by its patient or clinic
func (s *AppointmentService) Cancel(ctx context.Context, actor domain.Actor, id uint) (*models.Appointment, error) {
	appt, err := s.GetByID(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if appt.Status == models.ApptStatusCancelled {
		return nil, ErrApptNotCancellable
	}

	appt.Status = models.ApptStatusCancelled
	if err := s.appointmentRepo.Update(ctx, appt); err != nil {
		return nil, err
	}
	return appt, nil
}
