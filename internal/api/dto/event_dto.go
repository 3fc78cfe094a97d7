package dto

import (
	"time"

	"github.com/spec-kit/checkin-service/internal/domain"
)

// CreateEventRequest payload.
type CreateEventRequest struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	IsActive    *bool            `json:"is_active"`
	Geofence    *domain.Geofence `json:"geofence"`
	StartsAt    *time.Time       `json:"starts_at"`
	EndsAt      *time.Time       `json:"ends_at"`
}

// UpdateEventRequest payload; nil fields are left unchanged.
type UpdateEventRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	IsActive    *bool            `json:"is_active"`
	Geofence    *domain.Geofence `json:"geofence"`
	StartsAt    *time.Time       `json:"starts_at"`
	EndsAt      *time.Time       `json:"ends_at"`
}

// EventResponse response.
type EventResponse struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	IsActive    bool             `json:"is_active"`
	Geofence    *domain.Geofence `json:"geofence,omitempty"`
	StartsAt    *time.Time       `json:"starts_at,omitempty"`
	EndsAt      *time.Time       `json:"ends_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}
