package dto

import "github.com/spec-kit/checkin-service/internal/domain"

// GenerateQRRequest payload. TTLSeconds nil means the configured default.
type GenerateQRRequest struct {
	TTLSeconds *int `json:"ttl_seconds"`
}

// QRResponse response. The image is a base64 PNG data URL.
type QRResponse struct {
	EventID   string `json:"event_id"`
	Token     string `json:"token"`
	URL       string `json:"url"`
	ImageData string `json:"image_data"`
	IssuedAt  int64  `json:"issued_at"`
	ExpiresAt int64  `json:"expires_at"`
}

// ActiveQRResponse response for the currently-live code.
type ActiveQRResponse struct {
	Token     string `json:"token"`
	IssuedAt  int64  `json:"issued_at"`
	ExpiresAt int64  `json:"expires_at"`
}

// QRStatsResponse response.
type QRStatsResponse struct {
	domain.QRStats
}

// CleanupResponse response.
type CleanupResponse struct {
	Removed int `json:"removed"`
}
