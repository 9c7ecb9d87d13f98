package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/ciepi/portal-service/internal/api/dto"
	"github.com/ciepi/portal-service/internal/service"
)

// ContactHandler exposes public inquiry endpoints.
type ContactHandler struct {
	contact *service.ContactService
}

// NewContactHandler constructs handler.
func NewContactHandler(contact *service.ContactService) *ContactHandler {
	return &ContactHandler{contact: contact}
}

// Submit handles POST /api/contacto.
func (h *ContactHandler) Submit(c *fiber.Ctx) error {
	var req dto.ContactRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	message, err := h.contact.Submit(c.UserContext(), service.ContactInput{
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Body:    req.Body,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": fiber.Map{"id": message.ID}})
}

// List handles GET /api/admin/contacto.
func (h *ContactHandler) List(c *fiber.Ctx) error {
	limit, offset := paging(c)
	messages, err := h.contact.List(c.UserContext(), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": messages})
}
