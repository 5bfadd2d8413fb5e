package services

import (
	"context"

	"clinicpay/internal/adapters/persistence/models"
	"clinicpay/internal/core/domain"

	"gorm.io/gorm"
)

// DashboardService aggregates financing figures for the admin console
type DashboardService struct {
	db *gorm.DB
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db}
}

// StatusCount is one row of the per-status breakdown
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// DashboardStats represents admin dashboard data
type DashboardStats struct {
	TotalRequests   int64                              `json:"total_requests"`
	PendingLender   int64                              `json:"pending_lender"`
	AwaitingClinic  int64                              `json:"awaiting_clinic"`
	ApprovedAmount  float64                            `json:"approved_amount"`
	ByStatus        []StatusCount                      `json:"by_status"`
	RecentRequests  []*models.FinancingRequestResponse `json:"recent_requests"`
	TotalClinics    int64                              `json:"total_clinics"`
	TotalAppointmts int64                              `json:"total_appointments"`
}

// GetStats builds the admin dashboard
func (s *DashboardService) GetStats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{}

	db := s.db.WithContext(ctx)

	if err := db.Model(&models.FinancingRequest{}).Count(&stats.TotalRequests).Error; err != nil {
		return nil, err
	}

	db.Model(&models.FinancingRequest{}).
		Where("status = ?", string(domain.StatusLenderPending)).
		Count(&stats.PendingLender)

	db.Model(&models.FinancingRequest{}).
		Where("status = ?", string(domain.StatusPatientRequested)).
		Count(&stats.AwaitingClinic)

	db.Model(&models.FinancingRequest{}).
		Where("status = ?", string(domain.StatusLenderApproved)).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&stats.ApprovedAmount)

	if err := db.Model(&models.FinancingRequest{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&stats.ByStatus).Error; err != nil {
		return nil, err
	}

	var recent []*models.FinancingRequest
	if err := db.Preload("Clinic").
		Order("created_at DESC").
		Limit(10).
		Find(&recent).Error; err != nil {
		return nil, err
	}
	for _, req := range recent {
		stats.RecentRequests = append(stats.RecentRequests, req.ToResponse())
	}

	db.Model(&models.Clinic{}).Count(&stats.TotalClinics)
	db.Model(&models.Appointment{}).Count(&stats.TotalAppointmts)

	return stats, nil
}
