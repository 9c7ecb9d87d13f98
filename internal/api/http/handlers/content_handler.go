package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/ciepi/portal-service/internal/api/dto"
	"github.com/ciepi/portal-service/internal/auth"
	"github.com/ciepi/portal-service/internal/service"
)

// ContentHandler exposes blog and event endpoints.
type ContentHandler struct {
	content *service.ContentService
}

// NewContentHandler constructs handler.
func NewContentHandler(content *service.ContentService) *ContentHandler {
	return &ContentHandler{content: content}
}

// ListPosts handles GET /api/blog.
func (h *ContentHandler) ListPosts(c *fiber.Ctx) error {
	limit, offset := paging(c)
	posts, err := h.content.ListPublishedPosts(c.UserContext(), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": posts})
}

// GetPost handles GET /api/blog/:slug.
func (h *ContentHandler) GetPost(c *fiber.Ctx) error {
	post, err := h.content.GetPublishedPost(c.UserContext(), c.Params("slug"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": post})
}

// CreatePost handles POST /api/admin/blog.
func (h *ContentHandler) CreatePost(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	var req dto.BlogPostRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	post, err := h.content.CreatePost(c.UserContext(), service.BlogPostInput{
		Title:    req.Title,
		Summary:  req.Summary,
		Body:     req.Body,
		AuthorID: principal.Staff.ID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": post})
}

// ListUpcomingEvents handles GET /api/eventos.
func (h *ContentHandler) ListUpcomingEvents(c *fiber.Ctx) error {
	limit, offset := paging(c)
	events, err := h.content.ListUpcomingEvents(c.UserContext(), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": events})
}

// CreateEvent handles POST /api/admin/eventos.
func (h *ContentHandler) CreateEvent(c *fiber.Ctx) error {
	var req dto.EventRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	event, err := h.content.CreateEvent(c.UserContext(), eventInput(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": event})
}

// UpdateEvent handles PUT /api/admin/eventos/:id.
func (h *ContentHandler) UpdateEvent(c *fiber.Ctx) error {
	var req dto.EventRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	event, err := h.content.UpdateEvent(c.UserContext(), c.Params("id"), eventInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": event})
}

func eventInput(req dto.EventRequest) service.EventInput {
	return service.EventInput{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		Published:   req.Published,
	}
}
