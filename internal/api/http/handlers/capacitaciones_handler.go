package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/ciepi/portal-service/internal/api/dto"
	"github.com/ciepi/portal-service/internal/domain"
	"github.com/ciepi/portal-service/internal/service"
)

// CapacitacionesHandler exposes course endpoints.
type CapacitacionesHandler struct {
	capacitaciones *service.CapacitacionService
}

// NewCapacitacionesHandler constructs handler.
func NewCapacitacionesHandler(capacitaciones *service.CapacitacionService) *CapacitacionesHandler {
	return &CapacitacionesHandler{capacitaciones: capacitaciones}
}

// ListPublic handles GET /api/capacitaciones.
func (h *CapacitacionesHandler) ListPublic(c *fiber.Ctx) error {
	limit, offset := paging(c)
	list, err := h.capacitaciones.ListOpen(c.UserContext(), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": list})
}

// ListAll handles GET /api/admin/capacitaciones.
func (h *CapacitacionesHandler) ListAll(c *fiber.Ctx) error {
	limit, offset := paging(c)
	list, err := h.capacitaciones.ListAll(c.UserContext(), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": list})
}

// Get handles GET /api/capacitaciones/:id.
func (h *CapacitacionesHandler) Get(c *fiber.Ctx) error {
	capacitacion, err := h.capacitaciones.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": capacitacion})
}

// Create handles POST /api/admin/capacitaciones.
func (h *CapacitacionesHandler) Create(c *fiber.Ctx) error {
	input, err := parseCapacitacionInput(c)
	if err != nil {
		return err
	}
	capacitacion, err := h.capacitaciones.Create(c.UserContext(), input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": capacitacion})
}

// Update handles PUT /api/admin/capacitaciones/:id.
func (h *CapacitacionesHandler) Update(c *fiber.Ctx) error {
	input, err := parseCapacitacionInput(c)
	if err != nil {
		return err
	}
	capacitacion, err := h.capacitaciones.Update(c.UserContext(), c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": capacitacion})
}

// ListEnrollments handles GET /api/admin/capacitaciones/:id/inscripciones.
func (h *CapacitacionesHandler) ListEnrollments(c *fiber.Ctx) error {
	entries, err := h.capacitaciones.ListEnrollments(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}

	views := make([]fiber.Map, 0, len(entries))
	for _, entry := range entries {
		views = append(views, fiber.Map{
			"enrollment": dto.EnrollmentView{
				ID:             entry.Enrollment.ID,
				CapacitacionID: entry.Enrollment.CapacitacionID,
				CreatedAt:      entry.Enrollment.CreatedAt,
			},
			"registrant": dto.NewRegistrantView(entry.Registrant),
		})
	}
	return c.JSON(fiber.Map{"data": views})
}

func parseCapacitacionInput(c *fiber.Ctx) (service.CapacitacionInput, error) {
	var req dto.CapacitacionRequest
	if err := c.BodyParser(&req); err != nil {
		return service.CapacitacionInput{}, fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	return service.CapacitacionInput{
		Title:       req.Title,
		Description: req.Description,
		Modality:    req.Modality,
		Location:    req.Location,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		Capacity:    req.Capacity,
		Status:      domain.CapacitacionStatus(req.Status),
	}, nil
}

func paging(c *fiber.Ctx) (limit, offset int) {
	limit, _ = strconv.Atoi(c.Query("limit", "20"))
	offset, _ = strconv.Atoi(c.Query("offset", "0"))
	return limit, offset
}
