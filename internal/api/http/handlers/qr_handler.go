package handlers

import (
	"encoding/base64"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/checkin-service/internal/api/dto"
	"github.com/spec-kit/checkin-service/internal/domain"
	"github.com/spec-kit/checkin-service/internal/service"
	apperrors "github.com/spec-kit/checkin-service/pkg/util/errorutil"
)

// QRHandler manages admin check-in code endpoints.
type QRHandler struct {
	qr     *service.QRService
	events *service.EventService
}

// NewQRHandler constructs handler.
func NewQRHandler(qrService *service.QRService, eventService *service.EventService) *QRHandler {
	return &QRHandler{qr: qrService, events: eventService}
}

// Generate POST /admin/events/:id/qr.
func (h *QRHandler) Generate(c *fiber.Ctx) error {
	return h.mint(c)
}

// Refresh POST /admin/events/:id/qr/refresh mints a replacement code,
// independent of any prior one.
func (h *QRHandler) Refresh(c *fiber.Ctx) error {
	return h.mint(c)
}

func (h *QRHandler) mint(c *fiber.Ctx) error {
	eventID := c.Params("id")
	if _, err := h.events.Get(c.Context(), eventID); err != nil {
		return err
	}

	var req dto.GenerateQRRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	ttl := h.qr.DefaultTTLSeconds()
	if req.TTLSeconds != nil {
		ttl = *req.TTLSeconds
	}

	record, err := h.qr.Generate(c.Context(), eventID, ttl)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": qrResponse(record)})
}

// Active GET /admin/events/:id/qr/active returns the live code, if any.
func (h *QRHandler) Active(c *fiber.Ctx) error {
	eventID := c.Params("id")
	entry, token, ok := h.qr.Active(c.Context(), eventID)
	if !ok {
		return apperrors.NewNotFound("active code", map[string]any{"event_id": eventID})
	}
	return c.JSON(fiber.Map{"data": dto.ActiveQRResponse{
		Token:     token,
		IssuedAt:  entry.IssuedAt,
		ExpiresAt: entry.ExpiresAt,
	}})
}

// Stats GET /admin/events/:id/qr/stats.
func (h *QRHandler) Stats(c *fiber.Ctx) error {
	stats := h.qr.Stats(c.Context(), c.Params("id"))
	return c.JSON(fiber.Map{"data": dto.QRStatsResponse{QRStats: stats}})
}

// Cleanup POST /admin/events/:id/qr/cleanup.
func (h *QRHandler) Cleanup(c *fiber.Ctx) error {
	removed := h.qr.Cleanup(c.Context(), c.Params("id"))
	return c.JSON(fiber.Map{"data": dto.CleanupResponse{Removed: removed}})
}

func qrResponse(record *domain.QRRecord) dto.QRResponse {
	return dto.QRResponse{
		EventID:   record.EventID,
		Token:     record.Token,
		URL:       record.URL,
		ImageData: "data:image/png;base64," + base64.StdEncoding.EncodeToString(record.ImagePNG),
		IssuedAt:  record.IssuedAt,
		ExpiresAt: record.ExpiresAt,
	}
}
