package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/ciepi/portal-service/internal/api/dto"
	"github.com/ciepi/portal-service/internal/service"
)

// RegistrationHandler exposes citizen self-registration endpoints.
type RegistrationHandler struct {
	registration *service.RegistrationService
}

// NewRegistrationHandler constructs handler.
func NewRegistrationHandler(registration *service.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registration: registration}
}

// Register handles POST /api/registro.
func (h *RegistrationHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	ip := c.IP()
	result, err := h.registration.Register(c.UserContext(), service.RegisterInput{
		Cedula:         req.Cedula,
		Email:          req.Email,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Phone:          req.Phone,
		CapacitacionID: req.CapacitacionID,
		IP:             &ip,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{
			"registrant":   dto.NewRegistrantView(result.Registrant),
			"verification": issueResponse(result.Issue),
		},
	})
}

// Get handles GET /api/registro/:id (staff).
func (h *RegistrationHandler) Get(c *fiber.Ctx) error {
	registrant, err := h.registration.GetRegistrant(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRegistrantView(registrant)})
}
