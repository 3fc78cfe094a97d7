package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/checkin-service/internal/api/dto"
	"github.com/spec-kit/checkin-service/internal/domain"
	"github.com/spec-kit/checkin-service/internal/service"
	apperrors "github.com/spec-kit/checkin-service/pkg/util/errorutil"
)

// CheckinHandler manages the public check-in endpoints.
type CheckinHandler struct {
	service *service.CheckinService
}

// NewCheckinHandler constructs handler.
func NewCheckinHandler(checkinService *service.CheckinService) *CheckinHandler {
	return &CheckinHandler{service: checkinService}
}

// Submit POST /checkin.
func (h *CheckinHandler) Submit(c *fiber.Ctx) error {
	var req dto.CheckinRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.EventID == "" || req.Token == "" {
		return apperrors.NewValidationError("event_id and token required", nil)
	}
	if strings.TrimSpace(req.User.Name) == "" {
		return apperrors.NewValidationError("user.name required", nil)
	}

	checkin, err := h.service.Submit(c.Context(), service.CheckinInput{
		EventID:   req.EventID,
		Token:     req.Token,
		UserName:  strings.TrimSpace(req.User.Name),
		UserEmail: strings.TrimSpace(req.User.Email),
		Location:  req.Location,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": checkinResponse(checkin)})
}

// Preview POST /checkin/preview validates a token without consuming it.
func (h *CheckinHandler) Preview(c *fiber.Ctx) error {
	var req dto.PreviewRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.EventID == "" || req.Token == "" {
		return apperrors.NewValidationError("event_id and token required", nil)
	}

	validation, err := h.service.Preview(c.Context(), req.EventID, req.Token)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": validation})
}

func checkinResponse(checkin *domain.CheckIn) dto.CheckinResponse {
	return dto.CheckinResponse{
		ID:               checkin.ID,
		EventID:          checkin.EventID,
		UserName:         checkin.UserName,
		UserEmail:        checkin.UserEmail,
		Location:         checkin.Location,
		CheckinTime:      checkin.CheckinTime,
		ValidationStatus: checkin.ValidationStatus,
	}
}
