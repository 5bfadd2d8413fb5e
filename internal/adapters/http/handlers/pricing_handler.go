package handlers

import (
	"errors"
	"strconv"

	"clinicpay/internal/core/domain"
	"clinicpay/internal/core/services"
	"clinicpay/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// PricingHandler handles installment plan quote endpoints
type PricingHandler struct {
	pricingService *services.PricingService
}

// NewPricingHandler creates a new pricing handler
func NewPricingHandler(pricingService *services.PricingService) *PricingHandler {
	return &PricingHandler{pricingService: pricingService}
}

// Quote returns the installment plan options for a base amount
// @Summary Quote installment plans
// @Description Compute per-installment and total amounts for every offered term
// @Tags Pricing
// @Accept json
// @Produce json
// @Param amount query number true "Procedure base amount"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /pricing/plans [get]
func (h *PricingHandler) Quote(c *fiber.Ctx) error {
	raw := c.Query("amount")
	if raw == "" {
		return response.BadRequest(c, "Amount is required")
	}

	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return response.BadRequest(c, "Amount must be a number")
	}

	plans, err := h.pricingService.Quote(c.Context(), amount)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidAmount) {
			return response.BadRequest(c, "Amount must be greater than zero")
		}
		return response.InternalServerError(c, "Failed to compute plans")
	}

	return response.Success(c, "Plans computed successfully", fiber.Map{
		"base_amount": amount,
		"plans":       plans,
	})
}
