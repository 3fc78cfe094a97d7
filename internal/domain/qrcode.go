package domain

// QRPayload is the plaintext token payload before encryption. Timestamps are
// millisecond epoch so the wire form stays language-neutral.
type QRPayload struct {
	EventID   string `json:"eventId"`
	IssuedAt  int64  `json:"issuedAt"`
	ExpiresAt int64  `json:"expiresAt"`
	Nonce     string `json:"nonce"`
}

// QRCacheEntry mirrors the payload inside the TTL store. IsUsed is advisory
// only; the authoritative consumed state is the separate used: marker.
type QRCacheEntry struct {
	QRPayload
	CachedAt int64 `json:"cachedAt"`
	IsUsed   bool  `json:"isUsed"`
}

// QRRecord is the caller-facing result of generating a code.
type QRRecord struct {
	EventID   string
	Token     string
	URL       string
	ImagePNG  []byte
	IssuedAt  int64
	ExpiresAt int64
}

// QRValidation is the typed outcome of validating a token. It is always a
// value, never an error: corrupted input folds into the Error code.
type QRValidation struct {
	IsValid         bool   `json:"is_valid"`
	IsExpired       bool   `json:"is_expired"`
	IsUsed          bool   `json:"is_used"`
	IsValidEvent    bool   `json:"is_valid_event"`
	TimeRemainingMs int64  `json:"time_remaining_ms"`
	Error           string `json:"error,omitempty"`
}

// QRStats aggregates cache contents for one event.
type QRStats struct {
	Total    int     `json:"total"`
	Active   int     `json:"active"`
	Expired  int     `json:"expired"`
	HitRatio float64 `json:"hit_ratio"`
}
