package models

import (
	"time"

	"gorm.io/gorm"

	"clinicpay/internal/core/domain"
	"clinicpay/internal/core/pricing"
)

// ============================================================
// Auth tables
// ============================================================

// User represents users table
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Username  string         `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email     string         `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Password  string         `gorm:"size:255;not null" json:"-"`
	Role      string         `gorm:"size:20;default:'PATIENT'" json:"role"`
	ClinicID  *uint          `gorm:"index" json:"clinic_id"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Clinic *Clinic `gorm:"foreignKey:ClinicID" json:"clinic,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// UserResponse DTO
type UserResponse struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	ClinicID  *uint     `json:"clinic_id,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		ClinicID:  u.ClinicID,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// Actor builds the domain identity carried through gateway calls
func (u *User) Actor() domain.Actor {
	actor := domain.Actor{UserID: u.ID, Role: domain.Role(u.Role)}
	if u.ClinicID != nil {
		actor.ClinicID = *u.ClinicID
	}
	return actor
}

// RefreshToken represents refresh_tokens table
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	TokenHash string     `gorm:"size:255;not null;index" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at"`
	User      User       `gorm:"foreignKey:UserID" json:"-"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// ============================================================
// Master tables
// ============================================================

// Clinic represents clinics table
type Clinic struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Code      string         `gorm:"size:20;uniqueIndex;not null" json:"code"`
	Name      string         `gorm:"size:100;not null" json:"name"`
	Address   string         `gorm:"type:text" json:"address"`
	Phone     string         `gorm:"size:20" json:"phone"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Clinic) TableName() string {
	return "clinics"
}

// PlanTier represents plan_tiers master table. Multiplier 1.00 marks an
// interest-free term; anything above prices the markup into the plan.
type PlanTier struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	TermCount  int            `gorm:"uniqueIndex;not null" json:"term_count"`
	Multiplier float64        `gorm:"type:decimal(5,4);not null;default:1" json:"multiplier"`
	IsActive   bool           `gorm:"default:true" json:"is_active"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (PlanTier) TableName() string {
	return "plan_tiers"
}

// ToTier converts the row into the pricing engine's input
func (t *PlanTier) ToTier() pricing.Tier {
	return pricing.Tier{TermCount: t.TermCount, Multiplier: t.Multiplier}
}

// ============================================================
// Booking tables
// ============================================================

// Appointment statuses
const (
	ApptStatusScheduled = "SCHEDULED"
	ApptStatusConfirmed = "CONFIRMED"
	ApptStatusCancelled = "CANCELLED"
)

// Appointment represents appointments table
type Appointment struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	PatientID   uint           `gorm:"not null;index" json:"patient_id"`
	ClinicID    uint           `gorm:"not null;index" json:"clinic_id"`
	Procedure   string         `gorm:"size:200;not null" json:"procedure"`
	Price       float64        `gorm:"type:decimal(15,2);not null" json:"price"`
	ScheduledAt time.Time      `gorm:"not null" json:"scheduled_at"`
	Status      string         `gorm:"size:20;not null;default:'SCHEDULED'" json:"status"`
	Notes       string         `gorm:"type:text" json:"notes"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Patient *User   `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Clinic  *Clinic `gorm:"foreignKey:ClinicID" json:"clinic,omitempty"`
}

func (Appointment) TableName() string {
	return "appointments"
}

// AppointmentResponse DTO
type AppointmentResponse struct {
	ID          uint      `json:"id"`
	PatientID   uint      `json:"patient_id"`
	ClinicID    uint      `json:"clinic_id"`
	ClinicName  string    `json:"clinic_name,omitempty"`
	Procedure   string    `json:"procedure"`
	Price       float64   `json:"price"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Status      string    `json:"status"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (a *Appointment) ToResponse() *AppointmentResponse {
	resp := &AppointmentResponse{
		ID:          a.ID,
		PatientID:   a.PatientID,
		ClinicID:    a.ClinicID,
		Procedure:   a.Procedure,
		Price:       pricing.Round2(a.Price),
		ScheduledAt: a.ScheduledAt,
		Status:      a.Status,
		Notes:       a.Notes,
		CreatedAt:   a.CreatedAt,
	}
	if a.Clinic != nil {
		resp.ClinicName = a.Clinic.Name
	}
	return resp
}

// ============================================================
// Financing tables
// ============================================================

// FinancingRequest ตารางหลัก: never deleted, only transitioned, so the
// approval trail stays auditable.
type FinancingRequest struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	RequestNo         string         `gorm:"size:40;uniqueIndex;not null" json:"request_no"`
	PatientID         uint           `gorm:"not null;index" json:"patient_id"`
	ClinicID          uint           `gorm:"not null;index" json:"clinic_id"`
	AppointmentID     uint           `gorm:"not null;index" json:"appointment_id"`
	Amount            float64        `gorm:"type:decimal(15,2);not null" json:"amount"`
	Installments      int            `gorm:"not null" json:"installments"`
	Status            string         `gorm:"size:30;not null;index" json:"status"`
	RequestDate       time.Time      `gorm:"not null" json:"request_date"`
	ClinicApprovalAt  *time.Time     `json:"clinic_approval_at"`
	ClinicNotes       string         `gorm:"type:text" json:"clinic_notes"`
	AdminDecisionAt   *time.Time     `json:"admin_decision_at"`
	LenderReferenceID *string        `gorm:"size:100;index" json:"lender_reference_id"`
	LenderNotes       string         `gorm:"type:text" json:"lender_notes"`
	SubmitAttempts    int            `gorm:"default:0" json:"submit_attempts"`
	CreatedAt         time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`

	Patient     *User        `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Clinic      *Clinic      `gorm:"foreignKey:ClinicID" json:"clinic,omitempty"`
	Appointment *Appointment `gorm:"foreignKey:AppointmentID" json:"appointment,omitempty"`
}

func (FinancingRequest) TableName() string {
	return "financing_requests"
}

// FinancingStatus returns the typed status
func (f *FinancingRequest) FinancingStatus() domain.FinancingStatus {
	return domain.FinancingStatus(f.Status)
}

// FinancingRequestResponse DTO
type FinancingRequestResponse struct {
	ID                uint       `json:"id"`
	RequestNo         string     `json:"request_no"`
	PatientID         uint       `json:"patient_id"`
	ClinicID          uint       `json:"clinic_id"`
	ClinicName        string     `json:"clinic_name,omitempty"`
	AppointmentID     uint       `json:"appointment_id"`
	Amount            float64    `json:"amount"`
	Installments      int        `json:"installments"`
	Status            string     `json:"status"`
	RequestDate       time.Time  `json:"request_date"`
	ClinicApprovalAt  *time.Time `json:"clinic_approval_at,omitempty"`
	ClinicNotes       string     `json:"clinic_notes,omitempty"`
	AdminDecisionAt   *time.Time `json:"admin_decision_at,omitempty"`
	LenderReferenceID *string    `json:"lender_reference_id,omitempty"`
	LenderNotes       string     `json:"lender_notes,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (f *FinancingRequest) ToResponse() *FinancingRequestResponse {
	resp := &FinancingRequestResponse{
		ID:                f.ID,
		RequestNo:         f.RequestNo,
		PatientID:         f.PatientID,
		ClinicID:          f.ClinicID,
		AppointmentID:     f.AppointmentID,
		Amount:            pricing.Round2(f.Amount),
		Installments:      f.Installments,
		Status:            f.Status,
		RequestDate:       f.RequestDate,
		ClinicApprovalAt:  f.ClinicApprovalAt,
		ClinicNotes:       f.ClinicNotes,
		AdminDecisionAt:   f.AdminDecisionAt,
		LenderReferenceID: f.LenderReferenceID,
		LenderNotes:       f.LenderNotes,
		CreatedAt:         f.CreatedAt,
		UpdatedAt:         f.UpdatedAt,
	}
	if f.Clinic != nil {
		resp.ClinicName = f.Clinic.Name
	}
	return resp
}

// FinancingEvent ธุรกรรม/History: one row per applied transition
type FinancingEvent struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	RequestID   uint      `gorm:"not null;index" json:"request_id"`
	FromStatus  string    `gorm:"size:30" json:"from_status"`
	ToStatus    string    `gorm:"size:30;not null" json:"to_status"`
	Event       string    `gorm:"size:30;not null" json:"event"`
	Notes       string    `gorm:"type:text" json:"notes"`
	PerformedBy uint      `json:"performed_by"`
	IPAddress   string    `gorm:"size:50" json:"ip_address"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`

	Request   *FinancingRequest `gorm:"foreignKey:RequestID" json:"request,omitempty"`
	Performer *User             `gorm:"foreignKey:PerformedBy" json:"performer,omitempty"`
}

func (FinancingEvent) TableName() string {
	return "financing_events"
}

// ============================================================
// Auto Migration
// ============================================================

// AutoMigrate runs auto migration for all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&RefreshToken{},
		&Clinic{},
		&PlanTier{},
		&Appointment{},
		&FinancingRequest{},
		&FinancingEvent{},
	)
}
