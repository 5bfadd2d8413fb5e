package domain

import "time"

// Role represents user role in the system
type Role string

const (
	RolePatient Role = "PATIENT"
	RoleClinic  Role = "CLINIC"
	RoleAdmin   Role = "ADMIN"
)

// Actor is the authenticated identity a gateway call runs as.
// ClinicID is only set for CLINIC users.
type Actor struct {
	UserID   uint
	Role     Role
	ClinicID uint
}

// User represents a user in the domain layer
type User struct {
	ID        uint
	Username  string
	Email     string
	Password  string // Hashed
	Role      Role
	ClinicID  *uint
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RefreshToken represents a refresh token in the domain
type RefreshToken struct {
	ID        uint
	UserID    uint
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}

// TokenPair represents access and refresh tokens
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// StatusChange is the event emitted on every successful financing
// transition, consumed by the notification subsystem.
type StatusChange struct {
	RequestID      uint            `json:"request_id"`
	RequestNo      string          `json:"request_no"`
	PreviousStatus FinancingStatus `json:"previous_status"`
	NewStatus      FinancingStatus `json:"new_status"`
	Timestamp      time.Time       `json:"timestamp"`
}
