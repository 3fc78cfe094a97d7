package service

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/spec-kit/checkin-service/internal/domain"
	"github.com/spec-kit/checkin-service/internal/events"
	"github.com/spec-kit/checkin-service/internal/qr"
	apperrors "github.com/spec-kit/checkin-service/pkg/util/errorutil"
)

// QRService orchestrates the check-in code lifecycle: minting encrypted
// tokens, validating them against the cache and their own timestamps, and
// consuming them exactly once.
type QRService struct {
	cipher     *qr.Cipher
	cache      *qr.Cache
	dispatcher events.Dispatcher
	logger     *zap.Logger

	baseURL    string
	defaultTTL int
	usedTTL    int
	imageSize  int
}

// QRDependencies bundles collaborators for the QR service.
type QRDependencies struct {
	Cipher     *qr.Cipher
	Cache      *qr.Cache
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// QROptions carries tunables from configuration.
type QROptions struct {
	BaseURL           string
	DefaultTTLSeconds int
	UsedTTLSeconds    int
	ImageSizePixels   int
}

// NewQRService constructs the service.
func NewQRService(deps QRDependencies, opts QROptions) *QRService {
	if opts.DefaultTTLSeconds <= 0 {
		opts.DefaultTTLSeconds = 300
	}
	if opts.UsedTTLSeconds <= 0 {
		opts.UsedTTLSeconds = 3600
	}
	if opts.ImageSizePixels <= 0 {
		opts.ImageSizePixels = 256
	}
	return &QRService{
		cipher:     deps.Cipher,
		cache:      deps.Cache,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		baseURL:    opts.BaseURL,
		defaultTTL: opts.DefaultTTLSeconds,
		usedTTL:    opts.UsedTTLSeconds,
		imageSize:  opts.ImageSizePixels,
	}
}

// Generate mints a fresh encrypted token for the event, caches its entry with
// TTL equal to the expiration window, and returns the scannable record.
func (s *QRService) Generate(ctx context.Context, eventID string, ttlSeconds int) (*domain.QRRecord, error) {
	if ttlSeconds < 0 {
		return nil, apperrors.NewValidationError("ttl must not be negative", nil)
	}

	now := time.Now()
	payload := domain.QRPayload{
		EventID:   eventID,
		IssuedAt:  now.UnixMilli(),
		ExpiresAt: now.Add(time.Duration(ttlSeconds) * time.Second).UnixMilli(),
		Nonce:     newNonce(),
	}

	plaintext, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	token, err := s.cipher.Encrypt(plaintext)
	if err != nil {
		return nil, fmt.Errorf("encrypt token: %w", err)
	}

	checkinURL := fmt.Sprintf("%s/checkin?event=%s&token=%s&ts=%d",
		s.baseURL, url.QueryEscape(eventID), url.QueryEscape(token), payload.IssuedAt)

	image, err := qrcode.Encode(checkinURL, qrcode.Medium, s.imageSize)
	if err != nil {
		return nil, fmt.Errorf("render qr image: %w", err)
	}

	if !s.cache.Put(ctx, eventID, token, payload, ttlSeconds) {
		s.logger.Warn("cache write failed for freshly minted token", zap.String("event_id", eventID))
	}

	s.publish(ctx, events.Event{
		Type:    events.EventQRGenerated,
		EventID: eventID,
		Payload: events.QRGeneratedPayload{
			IssuedAt:   payload.IssuedAt,
			ExpiresAt:  payload.ExpiresAt,
			TTLSeconds: ttlSeconds,
		},
	})

	return &domain.QRRecord{
		EventID:   eventID,
		Token:     token,
		URL:       checkinURL,
		ImagePNG:  image,
		IssuedAt:  payload.IssuedAt,
		ExpiresAt: payload.ExpiresAt,
	}, nil
}

// DefaultTTLSeconds exposes the configured default window for callers that
// let the request omit a TTL.
func (s *QRService) DefaultTTLSeconds() int {
	return s.defaultTTL
}

// Refresh mints a new token for the event. The result is cryptographically
// and temporally independent of any prior code; no relationship is tracked.
func (s *QRService) Refresh(ctx context.Context, eventID string, ttlSeconds int) (*domain.QRRecord, error) {
	return s.Generate(ctx, eventID, ttlSeconds)
}

// Validate runs the two-layer check: cache presence first, then decryption of
// the token itself as an integrity guard independent of the cache. It never
// returns an error; every failure folds into the result's flags and code.
func (s *QRService) Validate(ctx context.Context, token, eventID string) *domain.QRValidation {
	result := &domain.QRValidation{}

	entry, found := s.cache.Get(ctx, eventID, token)
	if !found {
		// TTL eviction is indistinguishable from true absence; both read as
		// expired.
		result.IsExpired = true
		result.Error = apperrors.CodeQRExpired
		return result
	}

	plaintext, err := s.cipher.Decrypt(token)
	if err != nil {
		result.Error = apperrors.CodeQRCorrupted
		return result
	}
	var payload domain.QRPayload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		result.Error = apperrors.CodeQRCorrupted
		return result
	}

	now := time.Now().UnixMilli()
	result.IsValidEvent = payload.EventID == eventID
	// Redundant with the cache TTL on purpose: guards against a store that
	// does not evict promptly or a payload replayed into another instance.
	result.IsExpired = now > payload.ExpiresAt
	result.IsUsed = entry.IsUsed || s.cache.IsUsed(ctx, token)
	if remaining := payload.ExpiresAt - now; remaining > 0 {
		result.TimeRemainingMs = remaining
	}

	result.IsValid = !result.IsExpired && !result.IsUsed && result.IsValidEvent
	switch {
	case result.IsValid:
	case result.IsExpired:
		result.Error = apperrors.CodeQRExpired
	case result.IsUsed:
		result.Error = apperrors.CodeQRAlreadyUsed
	default:
		result.Error = apperrors.CodeInvalidEvent
	}
	return result
}

// MarkUsed writes the consumed marker unconditionally. Prefer TryConsume on
// the check-in path; this exists for operational tooling.
func (s *QRService) MarkUsed(ctx context.Context, token string) bool {
	return s.cache.MarkUsed(ctx, token, s.usedTTL)
}

// TryConsume atomically claims the token. Exactly one concurrent caller wins;
// the result is the authoritative single-use decision.
func (s *QRService) TryConsume(ctx context.Context, eventID, token string) bool {
	ok := s.cache.TryConsume(ctx, token, s.usedTTL)
	if ok {
		s.publish(ctx, events.Event{
			Type:    events.EventQRConsumed,
			EventID: eventID,
			Payload: events.QRConsumedPayload{UsedAt: time.Now().UnixMilli()},
		})
	}
	return ok
}

// ReleaseConsumed rolls back a consume whose follow-up persistence failed.
func (s *QRService) ReleaseConsumed(ctx context.Context, token string) {
	if !s.cache.ReleaseConsumed(ctx, token) {
		s.logger.Warn("failed to release consumed marker; token stays burned until marker TTL")
	}
}

// Active returns the most recently minted unexpired code for the event.
func (s *QRService) Active(ctx context.Context, eventID string) (*domain.QRCacheEntry, string, bool) {
	return s.cache.ActiveForEvent(ctx, eventID)
}

// Cleanup removes expired cache entries for the event.
func (s *QRService) Cleanup(ctx context.Context, eventID string) int {
	return s.cache.CleanupExpired(ctx, eventID)
}

// Stats aggregates the event's cache contents.
func (s *QRService) Stats(ctx context.Context, eventID string) domain.QRStats {
	return s.cache.Stats(ctx, eventID)
}

func (s *QRService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func newNonce() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}
