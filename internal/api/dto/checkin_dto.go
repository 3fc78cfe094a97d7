package dto

import (
	"time"

	"github.com/spec-kit/checkin-service/internal/domain"
)

// CheckinRequest payload for the public check-in endpoint.
type CheckinRequest struct {
	EventID  string         `json:"event_id"`
	Token    string         `json:"token"`
	User     CheckinUser    `json:"user"`
	Location *domain.LatLng `json:"location"`
}

// CheckinUser carries the submitter's details.
type CheckinUser struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// PreviewRequest payload for non-consuming token validation.
type PreviewRequest struct {
	EventID string `json:"event_id"`
	Token   string `json:"token"`
}

// CheckinResponse response.
type CheckinResponse struct {
	ID               string               `json:"id"`
	EventID          string               `json:"event_id"`
	UserName         string               `json:"user_name"`
	UserEmail        string               `json:"user_email"`
	Location         *domain.LatLng       `json:"location,omitempty"`
	CheckinTime      time.Time            `json:"checkin_time"`
	ValidationStatus domain.CheckinStatus `json:"validation_status"`
}
