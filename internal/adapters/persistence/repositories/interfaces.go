package repositories

import (
	"context"
	"time"

	"clinicpay/internal/adapters/persistence/models"
	"clinicpay/internal/core/domain"
)

// UserRepository defines user repository interface
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// RefreshTokenRepository defines refresh token repository interface
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	RevokeByTokenHash(ctx context.Context, tokenHash string) error
	RevokeAllByUserID(ctx context.Context, userID uint) error
	DeleteExpired(ctx context.Context) error
}

// ClinicRepository defines clinic master repository interface
type ClinicRepository interface {
	Create(ctx context.Context, clinic *models.Clinic) error
	GetByID(ctx context.Context, id uint) (*models.Clinic, error)
	List(ctx context.Context) ([]*models.Clinic, error)
}

// PlanTierRepository defines installment tier master repository interface
type PlanTierRepository interface {
	Create(ctx context.Context, tier *models.PlanTier) error
	GetByTermCount(ctx context.Context, termCount int) (*models.PlanTier, error)
	ListActive(ctx context.Context) ([]*models.PlanTier, error)
	Update(ctx context.Context, tier *models.PlanTier) error
}

// AppointmentRepository defines appointment repository interface
type AppointmentRepository interface {
	Create(ctx context.Context, appt *models.Appointment) error
	GetByID(ctx context.Context, id uint) (*models.Appointment, error)
	ListByPatient(ctx context.Context, patientID uint) ([]*models.Appointment, error)
	ListByClinic(ctx context.Context, clinicID uint, offset, limit int) ([]*models.Appointment, int64, error)
	Update(ctx context.Context, appt *models.Appointment) error
}

// FinancingRepository defines the financing request store.
//
// Transition is the single mutation path for status changes: it applies
// updates only while the row still holds the expected from status, so
// concurrent conflicting transitions leave exactly one winner. The loser
// gets domain.ErrConflict.
type FinancingRepository interface {
	Create(ctx context.Context, req *models.FinancingRequest) error
	GetByID(ctx context.Context, id uint) (*models.FinancingRequest, error)
	GetByRequestNo(ctx context.Context, requestNo string) (*models.FinancingRequest, error)
	ListByPatient(ctx context.Context, patientID uint) ([]*models.FinancingRequest, error)
	ListByClinic(ctx context.Context, clinicID uint, offset, limit int) ([]*models.FinancingRequest, int64, error)
	ListByStatus(ctx context.Context, status domain.FinancingStatus, offset, limit int) ([]*models.FinancingRequest, int64, error)
	ListStalePending(ctx context.Context, olderThan time.Time, maxAttempts int) ([]*models.FinancingRequest, error)
	ExistsActiveForAppointment(ctx context.Context, appointmentID uint) (bool, error)
	Transition(ctx context.Context, id uint, from, to domain.FinancingStatus, updates map[string]interface{}) error
	IncrementSubmitAttempts(ctx context.Context, id uint) error
}

// FinancingEventRepository defines the transition audit trail
type FinancingEventRepository interface {
	Create(ctx context.Context, event *models.FinancingEvent) error
	ListByRequest(ctx context.Context, requestID uint) ([]*models.FinancingEvent, error)
}
