package service

import (
	"context"
	"strings"

	"github.com/spec-kit/checkin-service/internal/domain"
	"github.com/spec-kit/checkin-service/internal/geo"
	"github.com/spec-kit/checkin-service/internal/repository"
	apperrors "github.com/spec-kit/checkin-service/pkg/util/errorutil"
)

// EventService coordinates admin event management.
type EventService struct {
	events          repository.EventRepository
	maxRadiusMeters float64
}

// NewEventService constructs the service.
func NewEventService(events repository.EventRepository, maxRadiusMeters float64) *EventService {
	if maxRadiusMeters <= 0 {
		maxRadiusMeters = 10000
	}
	return &EventService{events: events, maxRadiusMeters: maxRadiusMeters}
}

// Create validates and persists a new event.
func (s *EventService) Create(ctx context.Context, event *domain.Event) (*domain.Event, error) {
	event.Name = strings.TrimSpace(event.Name)
	if event.Name == "" {
		return nil, apperrors.NewValidationError("name required", nil)
	}
	if err := s.validateGeofence(event.Geofence); err != nil {
		return nil, err
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// Update validates and persists changes to an existing event.
func (s *EventService) Update(ctx context.Context, id string, apply func(*domain.Event)) (*domain.Event, error) {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	apply(event)
	event.Name = strings.TrimSpace(event.Name)
	if event.Name == "" {
		return nil, apperrors.NewValidationError("name required", nil)
	}
	if err := s.validateGeofence(event.Geofence); err != nil {
		return nil, err
	}
	if err := s.events.Update(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// Get fetches one event.
func (s *EventService) Get(ctx context.Context, id string) (*domain.Event, error) {
	return s.events.GetByID(ctx, id)
}

// List returns events, optionally filtered to active ones.
func (s *EventService) List(ctx context.Context, activeOnly bool, limit, offset int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.events.List(ctx, activeOnly, limit, offset)
}

// SetActive toggles whether an event accepts check-ins.
func (s *EventService) SetActive(ctx context.Context, id string, active bool) (*domain.Event, error) {
	return s.Update(ctx, id, func(event *domain.Event) {
		event.IsActive = active
	})
}

func (s *EventService) validateGeofence(fence *domain.Geofence) error {
	if fence == nil {
		return nil
	}
	switch fence.Type {
	case domain.GeofenceTypeCircle:
		if fence.Center == nil {
			return apperrors.NewValidationError("circle geofence requires a center", nil)
		}
		if err := geo.ValidateCoordinate(fence.Center.Lat, fence.Center.Lng); err != nil {
			return apperrors.NewValidationError("invalid geofence center", map[string]any{"reason": err.Error()})
		}
		if fence.RadiusMeters <= 0 || fence.RadiusMeters > s.maxRadiusMeters {
			return apperrors.NewValidationError("geofence radius out of range", map[string]any{
				"max_radius_meters": s.maxRadiusMeters,
			})
		}
	case domain.GeofenceTypePolygon:
		if len(fence.Vertices) < 3 {
			return apperrors.NewValidationError("polygon geofence requires at least 3 vertices", nil)
		}
		for _, v := range fence.Vertices {
			if err := geo.ValidateCoordinate(v.Lat, v.Lng); err != nil {
				return apperrors.NewValidationError("invalid polygon vertex", map[string]any{"reason": err.Error()})
			}
		}
	default:
		return apperrors.NewValidationError("unknown geofence type", map[string]any{"type": fence.Type})
	}
	return nil
}
