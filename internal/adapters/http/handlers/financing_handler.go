package handlers

import (
	"errors"
	"strconv"

	"clinicpay/internal/adapters/http/middleware"
	"clinicpay/internal/adapters/persistence/models"
	"clinicpay/internal/config"
	"clinicpay/internal/core/domain"
	"clinicpay/internal/core/services"
	"clinicpay/internal/pkg/pagination"
	"clinicpay/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// FinancingHandler handles financing request endpoints for all roles
type FinancingHandler struct {
	patientGateway *services.PatientGateway
	clinicGateway  *services.ClinicGateway
	adminGateway   *services.AdminGateway
	financing      *services.FinancingService
	cfg            *config.Config
}

// NewFinancingHandler creates a new financing handler
func NewFinancingHandler(
	patientGateway *services.PatientGateway,
	clinicGateway *services.ClinicGateway,
	adminGateway *services.AdminGateway,
	financing *services.FinancingService,
	cfg *config.Config,
) *FinancingHandler {
	return &FinancingHandler{
		patientGateway: patientGateway,
		clinicGateway:  clinicGateway,
		adminGateway:   adminGateway,
		financing:      financing,
		cfg:            cfg,
	}
}

// getClientIP gets client IP address
func getClientIP(c *fiber.Ctx) string {
	ip := c.Get("X-Real-IP")
	if ip == "" {
		ip = c.Get("X-Forwarded-For")
	}
	if ip == "" {
		ip = c.IP()
	}
	return ip
}

// parseID parses the :id path parameter
func parseID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}

// SubmitFinancingRequest represents patient financing submission body
type SubmitFinancingRequest struct {
	AppointmentID uint    `json:"appointment_id"`
	Amount        float64 `json:"amount"`
	Installments  int     `json:"installments"`
}

// DecisionRequest represents approve/reject body
type DecisionRequest struct {
	Notes string `json:"notes,omitempty"`
}

// LenderCallbackRequest represents the credit provider webhook body
type LenderCallbackRequest struct {
	RequestNo   string `json:"request_no"`
	ReferenceID string `json:"reference_id,omitempty"`
	Decision    string `json:"decision"`
	Reason      string `json:"reason,omitempty"`
}

// mapFinancingError maps service errors to HTTP responses
func mapFinancingError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount):
		return response.BadRequest(c, "Requested amount is invalid or exceeds the allowed limit")
	case errors.Is(err, domain.ErrInvalidInput):
		return response.BadRequest(c, "Invalid request data")
	case errors.Is(err, services.ErrTermNotOffered):
		return response.BadRequest(c, "Installment term is not offered")
	case errors.Is(err, services.ErrAppointmentNotFound):
		return response.NotFound(c, "Appointment not found")
	case errors.Is(err, domain.ErrRequestNotFound), errors.Is(err, domain.ErrNotFound):
		return response.NotFound(c, "Financing request not found")
	case errors.Is(err, domain.ErrForbidden):
		return response.Forbidden(c, "You don't have permission to access this resource")
	case errors.Is(err, domain.ErrDuplicateRequest):
		return response.Conflict(c, "An active financing request already exists for this appointment")
	case errors.Is(err, domain.ErrInvalidTransition):
		return response.Conflict(c, "Request status does not allow this action")
	case errors.Is(err, domain.ErrConflict):
		return response.Conflict(c, "Request was modified by another action, please reload")
	case errors.Is(err, services.ErrRequestNotPending):
		return response.Conflict(c, "Request is not pending a lender decision")
	case errors.Is(err, services.ErrMissingLenderReference):
		return response.UnprocessableEntity(c, "Lender reference id is required for approval")
	default:
		return response.InternalServerError(c, "Failed to process financing request")
	}
}

// Submit handles patient financing submission
// @Summary Submit financing request
// @Description Submit a financing request for a booked appointment
// @Tags Financing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body SubmitFinancingRequest true "Financing request data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /financing/requests [post]
func (h *FinancingHandler) Submit(c *fiber.Ctx) error {
	var req SubmitFinancingRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.AppointmentID == 0 {
		return response.BadRequest(c, "Appointment ID is required")
	}
	if req.Installments < 1 {
		return response.BadRequest(c, "Installments must be at least 1")
	}

	actor := middleware.ActorFromContext(c)
	input := &services.SubmitRequestInput{
		AppointmentID: req.AppointmentID,
		Amount:        req.Amount,
		Installments:  req.Installments,
	}

	result, err := h.patientGateway.Submit(c.Context(), actor, input, getClientIP(c))
	if err != nil {
		return mapFinancingError(c, err)
	}

	return response.Created(c, "Financing request submitted", fiber.Map{
		"request": result.ToResponse(),
	})
}

// ListMine handles listing the patient's own requests
// @Summary List my financing requests
// @Tags Financing
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /financing/requests/my [get]
func (h *FinancingHandler) ListMine(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)

	requests, err := h.patientGateway.ListMine(c.Context(), actor)
	if err != nil {
		return mapFinancingError(c, err)
	}

	return response.Success(c, "Financing requests retrieved", fiber.Map{
		"requests": toRequestResponses(requests),
	})
}

// GetByID handles fetching a single request (any role, access-checked)
// @Summary Get financing request
// @Tags Financing
// @Produce json
// @Security BearerAuth
// @Param id path int true "Request ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /financing/requests/{id} [get]
func (h *FinancingHandler) GetByID(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid request ID")
	}

	actor := middleware.ActorFromContext(c)
	req, err := h.financing.GetByID(c.Context(), actor, id)
	if err != nil {
		return mapFinancingError(c, err)
	}

	return response.Success(c, "Financing request retrieved", fiber.Map{
		"request": req.ToResponse(),
	})
}

// History handles fetching a request's transition audit trail
// @Summary Get financing request history
// @Tags Financing
// @Produce json
// @Security BearerAuth
// @Param id path int true "Request ID"
// @Success 200 {object} response.Response
// @Router /financing/requests/{id}/history [get]
func (h *FinancingHandler) History(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid request ID")
	}

	actor := middleware.ActorFromContext(c)
	events, err := h.financing.History(c.Context(), actor, id)
	if err != nil {
		return mapFinancingError(c, err)
	}

	return response.Success(c, "Request history retrieved", fiber.Map{
		"events": events,
	})
}

// ClinicList handles listing requests for the clinic's own patients
// @Summary List clinic financing requests
// @Tags Financing
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /financing/clinic/requests [get]
func (h *FinancingHandler) ClinicList(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)
	params := pagination.GetParams(c)

	requests, total, err := h.clinicGateway.List(c.Context(), actor, params.Offset, params.Limit)
	if err != nil {
		return mapFinancingError(c, err)
	}

	return c.JSON(pagination.NewResponse(toRequestResponses(requests), params, total))
}

// Approve handles clinic approval of a patient request
// @Summary Approve financing request
// @Description Clinic approves a request, moving it to CLINIC_APPROVED
// @Tags Financing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Request ID"
// @Param body body DecisionRequest false "Optional notes"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /financing/clinic/requests/{id}/approve [post]
func (h *FinancingHandler) Approve(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid request ID")
	}

	var req DecisionRequest
	_ = c.BodyParser(&req)

	actor := middleware.ActorFromContext(c)
	result, err := h.clinicGateway.Approve(c.Context(), actor, id, req.Notes, getClientIP(c))
	if err != nil {
		return mapFinancingError(c, err)
	}

	return response.Success(c, "Financing request approved", fiber.Map{
		"request": result.ToResponse(),
	})
}

// Reject handles clinic rejection of a patient request
// @Summary Reject financing request
// @Tags Financing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Request ID"
// @Param body body DecisionRequest false "Optional notes"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /financing/clinic/requests/{id}/reject [post]
func (h *FinancingHandler) Reject(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid request ID")
	}

	var req DecisionRequest
	_ = c.BodyParser(&req)

	actor := middleware.ActorFromContext(c)
	result, err := h.clinicGateway.Reject(c.Context(), actor, id, req.Notes, getClientIP(c))
	if err != nil {
		return mapFinancingError(c, err)
	}

	return response.Success(c, "Financing request rejected", fiber.Map{
		"request": result.ToResponse(),
	})
}

// Forward handles admin forwarding a clinic-approved request to the lender
// @Summary Forward request to lender
// @Description Moves the request to LENDER_PENDING and submits it to the credit provider
// @Tags Financing
// @Produce json
// @Security BearerAuth
// @Param id path int true "Request ID"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /financing/admin/requests/{id}/forward [post]
func (h *FinancingHandler) Forward(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid request ID")
	}

	actor := middleware.ActorFromContext(c)
	result, err := h.adminGateway.Forward(c.Context(), actor, id, getClientIP(c))
	if err != nil {
		return mapFinancingError(c, err)
	}

	return response.Success(c, "Request forwarded to lender", fiber.Map{
		"request": result.ToResponse(),
	})
}

// Retry handles manual resubmission of a stuck LENDER_PENDING request
// @Summary Retry lender submission
// @Tags Financing
// @Produce json
// @Security BearerAuth
// @Param id path int true "Request ID"
// @Success 200 {object} response.Response
// @Router /financing/admin/requests/{id}/retry [post]
func (h *FinancingHandler) Retry(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid request ID")
	}

	actor := middleware.ActorFromContext(c)
	if err := h.adminGateway.Retry(c.Context(), actor, id); err != nil {
		switch {
		case errors.Is(err, services.ErrLenderRetryExhausted):
			return response.ServiceUnavailable(c, "Lender is unavailable, request remains pending")
		default:
			return mapFinancingError(c, err)
		}
	}

	return response.Success(c, "Lender submission completed", nil)
}

// AdminList handles listing requests by status for back-office review
// @Summary List financing requests by status
// @Tags Financing
// @Produce json
// @Security BearerAuth
// @Param status query string true "Financing status"
// @Success 200 {object} response.Response
// @Router /financing/admin/requests [get]
func (h *FinancingHandler) AdminList(c *fiber.Ctx) error {
	status := domain.FinancingStatus(c.Query("status", string(domain.StatusClinicApproved)))
	actor := middleware.ActorFromContext(c)
	params := pagination.GetParams(c)

	requests, total, err := h.adminGateway.ListByStatus(c.Context(), actor, status, params.Offset, params.Limit)
	if err != nil {
		return mapFinancingError(c, err)
	}

	return c.JSON(pagination.NewResponse(toRequestResponses(requests), params, total))
}

// LenderCallback handles the credit provider's decision webhook.
// Authenticated by a shared token instead of a user session.
// @Summary Lender decision callback
// @Tags Financing
// @Accept json
// @Produce json
// @Param body body LenderCallbackRequest true "Lender decision"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /financing/lender/callback [post]
func (h *FinancingHandler) LenderCallback(c *fiber.Ctx) error {
	token := c.Get("X-Callback-Token")
	if h.cfg.Lender.CallbackToken == "" || token != h.cfg.Lender.CallbackToken {
		return response.Unauthorized(c, "Invalid callback token")
	}

	var req LenderCallbackRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.RequestNo == "" {
		return response.BadRequest(c, "Request number is required")
	}
	if req.Decision == "" {
		return response.BadRequest(c, "Decision is required")
	}

	result, err := h.financing.ApplyLenderDecision(c.Context(), req.RequestNo, req.ReferenceID, req.Decision, req.Reason)
	if err != nil {
		return mapFinancingError(c, err)
	}

	return response.Success(c, "Lender decision applied", fiber.Map{
		"request": result.ToResponse(),
	})
}

func toRequestResponses(requests []*models.FinancingRequest) []*models.FinancingRequestResponse {
	out := make([]*models.FinancingRequestResponse, 0, len(requests))
	for _, req := range requests {
		out = append(out, req.ToResponse())
	}
	return out
}
