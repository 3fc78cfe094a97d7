package events

import (
	"time"

	"github.com/spec-kit/checkin-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventQRGenerated     EventType = "qr_generated"
	EventQRConsumed      EventType = "qr_consumed"
	EventCheckinRecorded EventType = "checkin_recorded"
	EventCheckinRejected EventType = "checkin_rejected"
)

// Event represents a domain event emitted by services. EventID refers to the
// attendance event the action concerns.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	EventID   string      `json:"event_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// QRGeneratedPayload payload.
type QRGeneratedPayload struct {
	IssuedAt   int64 `json:"issued_at"`
	ExpiresAt  int64 `json:"expires_at"`
	TTLSeconds int   `json:"ttl_seconds"`
}

// QRConsumedPayload payload.
type QRConsumedPayload struct {
	UsedAt int64 `json:"used_at"`
}

// CheckinRecordedPayload payload.
type CheckinRecordedPayload struct {
	CheckinID string               `json:"checkin_id"`
	UserEmail string               `json:"user_email"`
	Status    domain.CheckinStatus `json:"status"`
	Location  *domain.LatLng       `json:"location,omitempty"`
}

// CheckinRejectedPayload payload.
type CheckinRejectedPayload struct {
	Code string `json:"code"`
}
