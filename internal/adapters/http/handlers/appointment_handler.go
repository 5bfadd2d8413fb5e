package handlers

import (
	"errors"
	"time"

	"clinicpay/internal/adapters/http/middleware"
	"clinicpay/internal/adapters/persistence/models"
	"clinicpay/internal/core/domain"
	"clinicpay/internal/core/services"
	"clinicpay/internal/pkg/pagination"
	"clinicpay/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AppointmentHandler handles appointment booking endpoints
type AppointmentHandler struct {
	appointmentService *services.AppointmentService
}

// NewAppointmentHandler creates a new appointment handler
func NewAppointmentHandler(appointmentService *services.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{appointmentService: appointmentService}
}

// BookRequest represents booking request body
type BookRequest struct {
	ClinicID    uint    `json:"clinic_id"`
	Procedure   string  `json:"procedure"`
	Price       float64 `json:"price"`
	ScheduledAt string  `json:"scheduled_at"`
	Notes       string  `json:"notes,omitempty"`
}

func mapAppointmentError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrClinicNotFound):
		return response.NotFound(c, "Clinic not found")
	case errors.Is(err, services.ErrClinicInactive):
		return response.BadRequest(c, "Clinic is not accepting bookings")
	case errors.Is(err, services.ErrInvalidSchedule):
		return response.BadRequest(c, "Scheduled time must be in the future")
	case errors.Is(err, services.ErrApptNotFound):
		return response.NotFound(c, "Appointment not found")
	case errors.Is(err, services.ErrApptNotCancellable):
		return response.Conflict(c, "Appointment can no longer be cancelled")
	case errors.Is(err, domain.ErrInvalidInput):
		return response.BadRequest(c, "Invalid appointment data")
	case errors.Is(err, domain.ErrForbidden):
		return response.Forbidden(c, "You don't have permission to access this resource")
	default:
		return response.InternalServerError(c, "Failed to process appointment")
	}
}

// Book handles a patient booking an appointment
// @Summary Book appointment
// @Tags Appointments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body BookRequest true "Booking data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /appointments [post]
func (h *AppointmentHandler) Book(c *fiber.Ctx) error {
	var req BookRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.ClinicID == 0 {
		return response.BadRequest(c, "Clinic ID is required")
	}
	if req.Procedure == "" {
		return response.BadRequest(c, "Procedure is required")
	}

	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		return response.BadRequest(c, "Scheduled time must be RFC3339 formatted")
	}

	actor := middleware.ActorFromContext(c)
	input := &services.BookInput{
		ClinicID:    req.ClinicID,
		Procedure:   req.Procedure,
		Price:       req.Price,
		ScheduledAt: scheduledAt,
		Notes:       req.Notes,
	}

	appt, err := h.appointmentService.Book(c.Context(), actor, input)
	if err != nil {
		return mapAppointmentError(c, err)
	}

	return response.Created(c, "Appointment booked", fiber.Map{
		"appointment": appt.ToResponse(),
	})
}

// ListMine handles listing the patient's own appointments
// @Summary List my appointments
// @Tags Appointments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /appointments/my [get]
func (h *AppointmentHandler) ListMine(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)

	appts, err := h.appointmentService.ListMine(c.Context(), actor)
	if err != nil {
		return mapAppointmentError(c, err)
	}

	return response.Success(c, "Appointments retrieved", fiber.Map{
		"appointments": toAppointmentResponses(appts),
	})
}

// GetByID handles fetching a single appointment
// @Summary Get appointment
// @Tags Appointments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Appointment ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /appointments/{id} [get]
func (h *AppointmentHandler) GetByID(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid appointment ID")
	}

	actor := middleware.ActorFromContext(c)
	appt, err := h.appointmentService.GetByID(c.Context(), actor, id)
	if err != nil {
		return mapAppointmentError(c, err)
	}

	return response.Success(c, "Appointment retrieved", fiber.Map{
		"appointment": appt.ToResponse(),
	})
}

// ClinicList handles listing the clinic's appointments
// @Summary List clinic appointments
// @Tags Appointments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /appointments/clinic [get]
func (h *AppointmentHandler) ClinicList(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)
	params := pagination.GetParams(c)

	appts, total, err := h.appointmentService.ListForClinic(c.Context(), actor, params.Offset, params.Limit)
	if err != nil {
		return mapAppointmentError(c, err)
	}

	return c.JSON(pagination.NewResponse(toAppointmentResponses(appts), params, total))
}

// Confirm handles a clinic confirming an appointment
// @Summary Confirm appointment
// @Tags Appointments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Appointment ID"
// @Success 200 {object} response.Response
// @Router /appointments/{id}/confirm [post]
func (h *AppointmentHandler) Confirm(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid appointment ID")
	}

	actor := middleware.ActorFromContext(c)
	appt, err := h.appointmentService.Confirm(c.Context(), actor, id)
	if err != nil {
		return mapAppointmentError(c, err)
	}

	return response.Success(c, "Appointment confirmed", fiber.Map{
		"appointment": appt.ToResponse(),
	})
}

// Cancel handles cancelling an appointment
// @Summary Cancel appointment
// @Tags Appointments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Appointment ID"
// @Success 200 {object} response.Response
// @Router /appointments/{id}/cancel [post]
func (h *AppointmentHandler) Cancel(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid appointment ID")
	}

	actor := middleware.ActorFromContext(c)
	appt, err := h.appointmentService.Cancel(c.Context(), actor, id)
	if err != nil {
		return mapAppointmentError(c, err)
	}

	return response.Success(c, "Appointment cancelled", fiber.Map{
		"appointment": appt.ToResponse(),
	})
}

func toAppointmentResponses(appts []*models.Appointment) []*models.AppointmentResponse {
	out := make([]*models.AppointmentResponse, 0, len(appts))
	for _, appt := range appts {
		out = append(out, appt.ToResponse())
	}
	return out
}
