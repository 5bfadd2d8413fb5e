package repositories

import (
	"context"

	"clinicpay/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// clinicRepository handles clinic master data access
type clinicRepository struct {
	db *gorm.DB
}

// NewClinicRepository creates a new clinic repository
func NewClinicRepository(db *gorm.DB) ClinicRepository {
	return &clinicRepository{db: db}
}

// Create creates a new clinic
func (r *clinicRepository) Create(ctx context.Context, clinic *models.Clinic) error {
	return r.db.WithContext(ctx).Create(clinic).Error
}

// GetByID gets a clinic by ID
func (r *clinicRepository) GetByID(ctx context.Context, id uint) (*models.Clinic, error) {
	var clinic models.Clinic
	err := r.db.WithContext(ctx).First(&clinic, id).Error
	if err != nil {
		return nil, err
	}
	return &clinic, nil
}

// List lists active clinics
func (r *clinicRepository) List(ctx context.Context) ([]*models.Clinic, error) {
	var clinics []*models.Clinic
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&clinics).Error
	return clinics, err
}

// planTierRepository handles installment tier master data access
type planTierRepository struct {
	db *gorm.DB
}

// NewPlanTierRepository creates a new plan tier repository
func NewPlanTierRepository(db *gorm.DB) PlanTierRepository {
	return &planTierRepository{db: db}
}

// Create creates a new tier
func (r *planTierRepository) Create(ctx context.Context, tier *models.PlanTier) error {
	return r.db.WithContext(ctx).Create(tier).Error
}

// GetByTermCount gets a tier by its term count
func (r *planTierRepository) GetByTermCount(ctx context.Context, termCount int) (*models.PlanTier, error) {
	var tier models.PlanTier
	err := r.db.WithContext(ctx).Where("term_count = ?", termCount).First(&tier).Error
	if err != nil {
		return nil, err
	}
	return &tier, nil
}

// ListActive lists active tiers ordered by term count
func (r *planTierRepository) ListActive(ctx context.Context) ([]*models.PlanTier, error) {
	var tiers []*models.PlanTier
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("term_count ASC").
		Find(&tiers).Error
	return tiers, err
}

// Update updates a tier
func (r *planTierRepository) Update(ctx context.Context, tier *models.PlanTier) error {
	return r.db.WithContext(ctx).Save(tier).Error
}
