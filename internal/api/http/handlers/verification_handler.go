package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/ciepi/portal-service/internal/api/dto"
	"github.com/ciepi/portal-service/internal/service"
)

// VerificationHandler exposes the verification token endpoints.
type VerificationHandler struct {
	verification *service.VerificationService
}

// NewVerificationHandler constructs handler.
func NewVerificationHandler(verification *service.VerificationService) *VerificationHandler {
	return &VerificationHandler{verification: verification}
}

// Issue handles POST /api/verificacion.
func (h *VerificationHandler) Issue(c *fiber.Ctx) error {
	var req dto.IssueTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.SubjectID == "" || req.Purpose == "" {
		return fiber.NewError(http.StatusBadRequest, "subject_id and purpose required")
	}

	ip := c.IP()
	result, err := h.verification.Issue(c.UserContext(), service.IssueInput{
		SubjectID:  req.SubjectID,
		Purpose:    req.Purpose,
		Metadata:   req.Metadata,
		TTLMinutes: req.TTLMinutes,
		IssuingIP:  &ip,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": issueResponse(result)})
}

// Status handles GET /api/verificacion/:token/estado.
func (h *VerificationHandler) Status(c *fiber.Ctx) error {
	status, err := h.verification.Status(c.UserContext(), c.Params("token"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TokenStatusResponse{
		Exists:  status.Exists,
		Used:    status.Used,
		Expired: status.Expired,
		State:   status.State,
	}})
}

// Consume handles POST /api/verificacion/:token/confirmar.
func (h *VerificationHandler) Consume(c *fiber.Ctx) error {
	ip := c.IP()
	result, err := h.verification.Consume(c.UserContext(), c.Params("token"), &ip)
	if err != nil {
		return err
	}

	response := dto.ConsumeResponse{
		Purpose:    result.Token.Purpose,
		Registrant: dto.NewRegistrantView(result.Registrant),
		NewEmail:   result.NewEmail,
	}
	if result.Enrollment != nil {
		response.Enrollment = &dto.EnrollmentView{
			ID:             result.Enrollment.ID,
			CapacitacionID: result.Enrollment.CapacitacionID,
			CreatedAt:      result.Enrollment.CreatedAt,
		}
	}
	return c.JSON(fiber.Map{"data": response})
}

// Resend handles POST /api/verificacion/reenviar.
func (h *VerificationHandler) Resend(c *fiber.Ctx) error {
	var req dto.ResendRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	ip := c.IP()
	var result *service.IssueResult
	var err error
	switch {
	case req.Token != "":
		result, err = h.verification.Resend(c.UserContext(), req.Token, &ip)
	case req.SubjectID != "" && req.Purpose != "":
		result, err = h.verification.Issue(c.UserContext(), service.IssueInput{
			SubjectID:  req.SubjectID,
			Purpose:    req.Purpose,
			Metadata:   req.Metadata,
			TTLMinutes: req.TTLMinutes,
			IssuingIP:  &ip,
		})
	default:
		return fiber.NewError(http.StatusBadRequest, "token or subject_id/purpose required")
	}
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": issueResponse(result)})
}

func issueResponse(result *service.IssueResult) dto.IssueTokenResponse {
	return dto.IssueTokenResponse{
		Token:          result.Token.Token,
		ContactAddress: result.Token.ContactAddress,
		ExpiresAt:      result.Token.ExpiresAt,
		TTLMinutes:     result.TTLMinutes,
		EmailSent:      result.EmailSent,
	}
}
