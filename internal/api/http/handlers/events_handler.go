package handlers

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/checkin-service/internal/api/dto"
	"github.com/spec-kit/checkin-service/internal/domain"
	"github.com/spec-kit/checkin-service/internal/service"
	apperrors "github.com/spec-kit/checkin-service/pkg/util/errorutil"
)

// EventsHandler manages admin event endpoints.
type EventsHandler struct {
	events   *service.EventService
	checkins *service.CheckinService
}

// NewEventsHandler constructs handler.
func NewEventsHandler(eventService *service.EventService, checkinService *service.CheckinService) *EventsHandler {
	return &EventsHandler{events: eventService, checkins: checkinService}
}

// Create POST /admin/events.
func (h *EventsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateEventRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	event := &domain.Event{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    true,
		Geofence:    req.Geofence,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
	}
	if req.IsActive != nil {
		event.IsActive = *req.IsActive
	}

	created, err := h.events.Create(c.Context(), event)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": eventResponse(created)})
}

// Update PATCH /admin/events/:id.
func (h *EventsHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateEventRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	updated, err := h.events.Update(c.Context(), c.Params("id"), func(event *domain.Event) {
		if req.Name != nil {
			event.Name = *req.Name
		}
		if req.Description != nil {
			event.Description = *req.Description
		}
		if req.IsActive != nil {
			event.IsActive = *req.IsActive
		}
		if req.Geofence != nil {
			event.Geofence = req.Geofence
		}
		if req.StartsAt != nil {
			event.StartsAt = req.StartsAt
		}
		if req.EndsAt != nil {
			event.EndsAt = req.EndsAt
		}
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": eventResponse(updated)})
}

// Get GET /admin/events/:id.
func (h *EventsHandler) Get(c *fiber.Ctx) error {
	event, err := h.events.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": eventResponse(event)})
}

// List GET /admin/events.
func (h *EventsHandler) List(c *fiber.Ctx) error {
	activeOnly := c.Query("active") == "true"
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)

	events, err := h.events.List(c.Context(), activeOnly, pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	items := make([]dto.EventResponse, 0, len(events))
	for i := range events {
		items = append(items, eventResponse(&events[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListCheckins GET /admin/events/:id/checkins.
func (h *EventsHandler) ListCheckins(c *fiber.Ctx) error {
	eventID := c.Params("id")
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)

	checkins, err := h.checkins.ListForEvent(c.Context(), eventID, pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	total, err := h.checkins.CountForEvent(c.Context(), eventID)
	if err != nil {
		return err
	}

	items := make([]dto.CheckinResponse, 0, len(checkins))
	for i := range checkins {
		items = append(items, checkinResponse(&checkins[i]))
	}
	return c.JSON(fiber.Map{"data": items, "total": total})
}

// ExportCheckins GET /admin/events/:id/checkins/export streams CSV.
func (h *EventsHandler) ExportCheckins(c *fiber.Ctx) error {
	eventID := c.Params("id")
	checkins, err := h.checkins.ListForEvent(c.Context(), eventID, 10000, 0)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="checkins-`+eventID+`.csv"`)

	writer := csv.NewWriter(c.Response().BodyWriter())
	if err := writer.Write([]string{"id", "user_name", "user_email", "lat", "lng", "checkin_time", "validation_status"}); err != nil {
		return err
	}
	for i := range checkins {
		record := &checkins[i]
		lat, lng := "", ""
		if record.Location != nil {
			lat = strconv.FormatFloat(record.Location.Lat, 'f', -1, 64)
			lng = strconv.FormatFloat(record.Location.Lng, 'f', -1, 64)
		}
		row := []string{
			record.ID,
			record.UserName,
			record.UserEmail,
			lat,
			lng,
			record.CheckinTime.Format(time.RFC3339),
			string(record.ValidationStatus),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func eventResponse(event *domain.Event) dto.EventResponse {
	return dto.EventResponse{
		ID:          event.ID,
		Name:        event.Name,
		Description: event.Description,
		IsActive:    event.IsActive,
		Geofence:    event.Geofence,
		StartsAt:    event.StartsAt,
		EndsAt:      event.EndsAt,
		CreatedAt:   event.CreatedAt,
		UpdatedAt:   event.UpdatedAt,
	}
}
