package domain

import "time"

// Event represents a check-in enabled event.
type Event struct {
	ID          string
	Name        string
	Description string
	IsActive    bool
	Geofence    *Geofence
	StartsAt    *time.Time
	EndsAt      *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
