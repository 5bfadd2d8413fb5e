package config

import (
	"log"

	"clinicpay/internal/adapters/persistence/models"
	"clinicpay/internal/core/domain"
	"clinicpay/internal/pkg/password"

	"gorm.io/gorm"
)

// SeedMasterData seeds initial master data
func SeedMasterData(db *gorm.DB) error {
	if err := seedPlanTiers(db); err != nil {
		return err
	}
	if err := seedClinics(db); err != nil {
		return err
	}
	if err := seedAdminUser(db); err != nil {
		return err
	}

	log.Println("✅ Master data seeded successfully")
	return nil
}

// seedPlanTiers seeds the reference installment tiers: terms 1/3/6
// interest-free, 12/18/24 with a stepped markup. Terms between 6 and 12
// are deliberately not offered; product has not priced them.
func seedPlanTiers(db *gorm.DB) error {
	tiers := []models.PlanTier{
		{TermCount: 1, Multiplier: 1.00, IsActive: true},
		{TermCount: 3, Multiplier: 1.00, IsActive: true},
		{TermCount: 6, Multiplier: 1.00, IsActive: true},
		{TermCount: 12, Multiplier: 1.10, IsActive: true},
		{TermCount: 18, Multiplier: 1.15, IsActive: true},
		{TermCount: 24, Multiplier: 1.20, IsActive: true},
	}

	for _, tier := range tiers {
		var existing models.PlanTier
		if err := db.Where("term_count = ?", tier.TermCount).First(&existing).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				if err := db.Create(&tier).Error; err != nil {
					return err
				}
				log.Printf("   Created plan_tier: %dx (multiplier %.2f)", tier.TermCount, tier.Multiplier)
			}
		}
	}
	return nil
}

func seedClinics(db *gorm.DB) error {
	clinics := []models.Clinic{
		{
			Code:     "CENTRAL",
			Name:     "Central Dental Clinic",
			Address:  "123 Main Avenue",
			Phone:    "+55 11 5555-0101",
			IsActive: true,
		},
		{
			Code:     "NORTH",
			Name:     "North Side Odontology",
			Address:  "45 Park Street",
			Phone:    "+55 11 5555-0102",
			IsActive: true,
		},
	}

	for _, clinic := range clinics {
		var existing models.Clinic
		if err := db.Where("code = ?", clinic.Code).First(&existing).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				if err := db.Create(&clinic).Error; err != nil {
					return err
				}
				log.Printf("   Created clinic: %s", clinic.Name)
			}
		}
	}
	return nil
}

// seedAdminUser creates the initial admin master account when missing.
// The default password only survives until first login in dev setups;
// production must set ADMIN_INITIAL_PASSWORD.
func seedAdminUser(db *gorm.DB) error {
	var existing models.User
	err := db.Where("role = ?", string(domain.RoleAdmin)).First(&existing).Error
	if err == nil {
		return nil
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}

	hashed, err := password.Hash(getEnv("ADMIN_INITIAL_PASSWORD", "changeme123"))
	if err != nil {
		return err
	}

	admin := models.User{
		Username: "admin",
		Email:    getEnv("ADMIN_EMAIL", "admin@clinicpay.io"),
		Password: hashed,
		Role:     string(domain.RoleAdmin),
		IsActive: true,
	}

	if err := db.Create(&admin).Error; err != nil {
		return err
	}
	log.Println("   Created admin master account")
	return nil
}
