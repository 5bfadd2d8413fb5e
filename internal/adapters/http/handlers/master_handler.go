package handlers

import (
	"errors"

	"clinicpay/internal/adapters/persistence/models"
	"clinicpay/internal/adapters/persistence/repositories"
	"clinicpay/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// MasterHandler handles master data endpoints (clinics, plan tiers)
type MasterHandler struct {
	clinicRepo repositories.ClinicRepository
	tierRepo   repositories.PlanTierRepository
}

// NewMasterHandler creates a new master data handler
func NewMasterHandler(clinicRepo repositories.ClinicRepository, tierRepo repositories.PlanTierRepository) *MasterHandler {
	return &MasterHandler{
		clinicRepo: clinicRepo,
		tierRepo:   tierRepo,
	}
}

// CreateClinicRequest represents clinic creation body
type CreateClinicRequest struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// UpsertTierRequest represents plan tier creation/update body
type UpsertTierRequest struct {
	TermCount  int     `json:"term_count"`
	Multiplier float64 `json:"multiplier"`
	IsActive   *bool   `json:"is_active,omitempty"`
}

// ListClinics handles listing clinics (public, used by the booking form)
// @Summary List clinics
// @Tags Master
// @Produce json
// @Success 200 {object} response.Response
// @Router /clinics [get]
func (h *MasterHandler) ListClinics(c *fiber.Ctx) error {
	clinics, err := h.clinicRepo.List(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to retrieve clinics")
	}

	return response.Success(c, "Clinics retrieved", fiber.Map{
		"clinics": clinics,
	})
}

// CreateClinic handles admin clinic creation
// @Summary Create clinic
// @Tags Master
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateClinicRequest true "Clinic data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /admin/clinics [post]
func (h *MasterHandler) CreateClinic(c *fiber.Ctx) error {
	var req CreateClinicRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.Code == "" {
		return response.BadRequest(c, "Clinic code is required")
	}
	if req.Name == "" {
		return response.BadRequest(c, "Clinic name is required")
	}

	clinic := &models.Clinic{
		Code:     req.Code,
		Name:     req.Name,
		Address:  req.Address,
		Phone:    req.Phone,
		IsActive: true,
	}

	if err := h.clinicRepo.Create(c.Context(), clinic); err != nil {
		return response.Conflict(c, "Clinic code already exists")
	}

	return response.Created(c, "Clinic created", fiber.Map{
		"clinic": clinic,
	})
}

// ListTiers handles listing the active installment tiers
// @Summary List plan tiers
// @Tags Master
// @Produce json
// @Success 200 {object} response.Response
// @Router /pricing/tiers [get]
func (h *MasterHandler) ListTiers(c *fiber.Ctx) error {
	tiers, err := h.tierRepo.ListActive(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to retrieve plan tiers")
	}

	return response.Success(c, "Plan tiers retrieved", fiber.Map{
		"tiers": tiers,
	})
}

// UpsertTier handles admin creation or update of an installment tier
// @Summary Create or update plan tier
// @Tags Master
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body UpsertTierRequest true "Tier data"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /admin/tiers [post]
func (h *MasterHandler) UpsertTier(c *fiber.Ctx) error {
	var req UpsertTierRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.TermCount < 1 {
		return response.BadRequest(c, "Term count must be at least 1")
	}
	if req.Multiplier < 1 {
		return response.BadRequest(c, "Multiplier must be at least 1.0")
	}

	existing, err := h.tierRepo.GetByTermCount(c.Context(), req.TermCount)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return response.InternalServerError(c, "Failed to look up plan tier")
	}

	if existing != nil {
		existing.Multiplier = req.Multiplier
		if req.IsActive != nil {
			existing.IsActive = *req.IsActive
		}
		if err := h.tierRepo.Update(c.Context(), existing); err != nil {
			return response.InternalServerError(c, "Failed to update plan tier")
		}
		return response.Success(c, "Plan tier updated", fiber.Map{"tier": existing})
	}

	tier := &models.PlanTier{
		TermCount:  req.TermCount,
		Multiplier: req.Multiplier,
		IsActive:   true,
	}
	if req.IsActive != nil {
		tier.IsActive = *req.IsActive
	}
	if err := h.tierRepo.Create(c.Context(), tier); err != nil {
		return response.InternalServerError(c, "Failed to create plan tier")
	}

	return response.Created(c, "Plan tier created", fiber.Map{"tier": tier})
}
